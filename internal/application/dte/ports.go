package dte

import "context"

// BridgeResult respuesta cruda del puente: status HTTP y cuerpo sin tocar.
type BridgeResult struct {
	StatusCode int
	Body       []byte
}

// BridgeClient puerto de salida hacia el puente DTE. Una llamada, sin
// reintentos: reintentar es trabajo del autoresender. Un error no nil
// significa fallo de red (incluye timeout).
type BridgeClient interface {
	Send(ctx context.Context, path string, payload []byte) (*BridgeResult, error)
}

// IsOfflineStatus indica si un status HTTP del puente debe tratarse igual que
// un fallo de red: el puente o Hacienda están caídos, no hay veredicto.
func IsOfflineStatus(code int) bool {
	return code >= 500
}

// Paths del API del puente.
const (
	PathFactura      = "/api/v1/dte/factura"
	PathInvalidacion = "/api/v1/dte/invalidacion"
)
