package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App          AppConfig
	DB           DBConfig
	HTTP         HTTPConfig
	DTE          DTEConfig
	Connectivity ConnectivityConfig
	Autoresend   AutoresendConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN construye el connection string de PostgreSQL con escaping correcto de la contraseña.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DTEConfig configuración del puente DTE (Hacienda, El Salvador).
type DTEConfig struct {
	BaseURL        string // URL base del puente, sin el path /api/v1/dte
	BaseURLTrimmed bool   // true si DTE_BASE_URL traía el path del API y hubo que recortarlo
	Token          string // bearer token del puente
	Ambiente       string // "00" = pruebas, "01" = producción
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// ConnectivityConfig configuración del centinela de conectividad.
type ConnectivityConfig struct {
	InternetURL string
	APIURL      string
	Interval    time.Duration
	Timeout     time.Duration
}

// AutoresendConfig configuración del reenvío automático de DTE pendientes.
type AutoresendConfig struct {
	BatchSize int
	Backoff   time.Duration
}

// dteBasePath es el path del API del puente; si viene incluido en la URL configurada se recorta.
const dteBasePath = "/api/v1/dte"

// NormalizeBaseURL recorta el path del API y cualquier slash final de la URL
// base del puente. Devuelve también si hubo que recortar, para que el caller
// lo reporte como señal de configuración descuidada.
func NormalizeBaseURL(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}
	trimmed := false
	if idx := strings.Index(value, dteBasePath); idx >= 0 {
		value = value[:idx]
		trimmed = true
	}
	value = strings.TrimRight(value, "/")
	if parsed, err := url.Parse(value); err == nil && parsed.Scheme != "" && parsed.Host != "" {
		if parsed.Path != "" && parsed.Path != "/" {
			trimmed = true
		}
		return parsed.Scheme + "://" + parsed.Host, trimmed
	}
	return value, trimmed
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo .env).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, DTE_BASE_URL, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	ambiente := strings.TrimSpace(getString(v, "MH_AMBIENTE", "01"))
	if ambiente != "00" && ambiente != "01" {
		return nil, fmt.Errorf("MH_AMBIENTE inválido: %q (valores permitidos: \"00\" o \"01\")", ambiente)
	}

	baseURL, baseURLTrimmed := NormalizeBaseURL(getString(v, "DTE_BASE_URL", ""))

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "facturador-api"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "facturador"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		DTE: DTEConfig{
			BaseURL:        baseURL,
			BaseURLTrimmed: baseURLTrimmed,
			Token:          getString(v, "DTE_API_TOKEN", ""),
			Ambiente:       ambiente,
			ConnectTimeout: time.Duration(getInt(v, "DTE_CONNECT_TIMEOUT", 5)) * time.Second,
			ReadTimeout:    time.Duration(getInt(v, "DTE_READ_TIMEOUT", 30)) * time.Second,
		},
		Connectivity: ConnectivityConfig{
			InternetURL: getString(v, "INTERNET_HEALTH_URL", "https://www.google.com/generate_204"),
			APIURL:      getString(v, "API_HEALTH_URL", ""),
			Interval:    time.Duration(getInt(v, "CONNECTIVITY_CHECK_INTERVAL", 15)) * time.Second,
			Timeout:     time.Duration(getInt(v, "CONNECTIVITY_CHECK_TIMEOUT", 5)) * time.Second,
		},
		Autoresend: AutoresendConfig{
			BatchSize: getInt(v, "DTE_AUTORETRY_BATCH_SIZE", 25),
			Backoff:   time.Duration(getInt(v, "DTE_AUTORETRY_BACKOFF_SECONDS", 60)) * time.Second,
		},
	}

	if cfg.Connectivity.APIURL == "" && cfg.DTE.BaseURL != "" {
		cfg.Connectivity.APIURL = cfg.DTE.BaseURL + "/health"
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		return v.GetInt(key)
	}
	return def
}
