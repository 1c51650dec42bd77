package dte_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garciaflores/facturador-api/internal/domain/dte"
)

func TestSplitGrossAmount_CasoCanonico(t *testing.T) {
	// 113.00 con IVA incluido debe partirse en base 100.00 + IVA 13.00.
	base, iva := dte.SplitGrossAmount(decimal.NewFromFloat(113.00))

	assert.True(t, base.Equal(decimal.NewFromFloat(100.00)), "base = %s", base)
	assert.True(t, iva.Equal(decimal.NewFromFloat(13.00)), "iva = %s", iva)
}

func TestSplitGrossAmount_BaseMasIvaIgualGross(t *testing.T) {
	// Propiedad: para cualquier monto bruto, base + iva == gross exacto.
	cases := []string{
		"0.01", "0.13", "1.00", "5.65", "10.00", "25.99", "99.99",
		"113.00", "117.13", "250.75", "1000.00", "12345.67", "0.02", "3.39",
	}
	for _, c := range cases {
		gross := decimal.RequireFromString(c)
		base, iva := dte.SplitGrossAmount(gross)
		assert.True(t, base.Add(iva).Equal(gross),
			"gross=%s base=%s iva=%s", gross, base, iva)
	}
}

func TestSplitGrossAmount_RedondeoHalfUp(t *testing.T) {
	// 10.00 / 1.13 * 0.13 = 1.15044..., se redondea hacia abajo a 1.15;
	// 11.30 produce exactamente 1.30.
	_, iva := dte.SplitGrossAmount(decimal.NewFromFloat(10.00))
	require.Equal(t, "1.15", iva.StringFixed(2))

	_, iva = dte.SplitGrossAmount(decimal.NewFromFloat(11.30))
	require.Equal(t, "1.30", iva.StringFixed(2))
}

func TestRound2_HalfUp(t *testing.T) {
	assert.Equal(t, "1.15", dte.Round2(decimal.RequireFromString("1.145")).StringFixed(2))
	assert.Equal(t, "1.14", dte.Round2(decimal.RequireFromString("1.144")).StringFixed(2))
}
