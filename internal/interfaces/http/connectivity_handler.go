package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/garciaflores/facturador-api/internal/application/connectivity"
)

// ConnectivityHandler expone el estado del centinela de conectividad.
type ConnectivityHandler struct {
	status *connectivity.Status
}

// NewConnectivityHandler construye el handler.
func NewConnectivityHandler(status *connectivity.Status) *ConnectivityHandler {
	return &ConnectivityHandler{status: status}
}

// Status devuelve el último resultado de las sondas de internet y del puente.
// GET /api/connectivity/status
func (h *ConnectivityHandler) Status(c *fiber.Ctx) error {
	return c.JSON(h.status.Snapshot())
}
