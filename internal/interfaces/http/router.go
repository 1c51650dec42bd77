package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/garciaflores/facturador-api/internal/application/billing"
	"github.com/garciaflores/facturador-api/internal/application/connectivity"
	"github.com/garciaflores/facturador-api/internal/application/dte"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CreateInvoice *billing.CreateInvoiceUseCase
	Invalidation  *dte.InvalidationPipeline
	Connectivity  *connectivity.Status
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Conectividad
	connHandler := NewConnectivityHandler(deps.Connectivity)
	api.Get("/connectivity/status", connHandler.Status)

	// Facturas y su ciclo DTE
	invoices := api.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.CreateInvoice, deps.Invalidation)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Post("/:id/resend-dte", invoiceHandler.ResendDTE)
	invoices.Post("/:id/invalidate-dte", invoiceHandler.InvalidateDTE)
}
