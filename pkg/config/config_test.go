package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBaseURL(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		trimmed bool
	}{
		{"vacía", "", "", false},
		{"limpia", "https://puente.example.com", "https://puente.example.com", false},
		{"slash final", "https://puente.example.com/", "https://puente.example.com", false},
		{"con path del api", "https://puente.example.com/api/v1/dte", "https://puente.example.com", true},
		{"con path y recurso", "https://puente.example.com/api/v1/dte/envio", "https://puente.example.com", true},
		{"path ajeno", "https://puente.example.com/otra/cosa", "https://puente.example.com", true},
		{"espacios", "  https://puente.example.com  ", "https://puente.example.com", false},
		{"con puerto", "http://localhost:9000/api/v1/dte", "http://localhost:9000", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, trimmed := NormalizeBaseURL(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.trimmed, trimmed)
		})
	}
}

func TestDBConfig_DSNEscapaLaPassword(t *testing.T) {
	c := DBConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "facturador",
		Password: "p@ss/w:rd",
		DBName:   "facturador",
		SSLMode:  "disable",
	}
	dsn := c.DSN()
	assert.Contains(t, dsn, "p%40ss%2Fw:rd@localhost:5432")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestDBConfig_ConnectionStringPrefiereDatabaseURL(t *testing.T) {
	c := DBConfig{DatabaseURL: "postgres://u:p@db:5432/x", Host: "otro"}
	assert.Equal(t, "postgres://u:p@db:5432/x", c.ConnectionString())
}
