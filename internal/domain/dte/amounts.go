// Package dte contiene la aritmética tributaria pura del subsistema DTE:
// la partición de montos con IVA incluido en base imponible e impuesto.
package dte

import "github.com/shopspring/decimal"

// IVARate tasa de IVA vigente en El Salvador (13%).
var IVARate = decimal.NewFromFloat(0.13)

var one = decimal.NewFromInt(1)

// Round2 redondea a 2 decimales con half-up (si el tercer decimal es >= 5
// se sube el segundo). decimal.Round implementa half away from zero, que
// para montos no negativos coincide con half-up.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// SplitGrossAmount recibe un monto con IVA incluido y devuelve (base, iva)
// cumpliendo:
//   - iva  = round2(gross / 1.13 * 0.13)
//   - base = gross - iva
//   - base + iva == gross, exacto, línea por línea y en agregado
func SplitGrossAmount(gross decimal.Decimal) (base, iva decimal.Decimal) {
	baseUnrounded := gross.Div(one.Add(IVARate))
	iva = Round2(baseUnrounded.Mul(IVARate))
	base = gross.Sub(iva)
	return base, iva
}
