package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/garciaflores/facturador-api/internal/application/billing"
	"github.com/garciaflores/facturador-api/internal/application/dte"
	"github.com/garciaflores/facturador-api/internal/application/dto"
	"github.com/garciaflores/facturador-api/internal/domain"
)

// InvoiceHandler maneja las peticiones HTTP de facturación.
type InvoiceHandler struct {
	uc           *billing.CreateInvoiceUseCase
	invalidation *dte.InvalidationPipeline
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(uc *billing.CreateInvoiceUseCase, invalidation *dte.InvalidationPipeline) *InvoiceHandler {
	return &InvoiceHandler{uc: uc, invalidation: invalidation}
}

// Create crea una factura y dispara su transmisión a Hacienda. Si el puente
// está caído igualmente responde 201: la factura queda pendiente y el
// autoreenvío se encarga.
// POST /api/invoices
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	invoice, err := h.uc.CreateInvoice(c.Context(), in)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(invoice)
}

// GetByID obtiene la factura con sus líneas y estado DTE.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	invoice, err := h.uc.GetInvoice(c.Context(), id)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(invoice)
}

// ResendDTE reintenta manualmente la transmisión de una factura pendiente.
// POST /api/invoices/:id/resend-dte
func (h *InvoiceHandler) ResendDTE(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	invoice, err := h.uc.ResendDTE(c.Context(), id)
	if err != nil {
		return mapDomainError(c, err)
	}
	if invoice.DTEPendingOutage {
		// 202: la petición se aceptó pero Hacienda no respondió todavía.
		return c.Status(fiber.StatusAccepted).JSON(invoice)
	}
	return c.JSON(invoice)
}

// InvalidateDTE solicita la anulación del DTE aceptado de la factura.
// POST /api/invoices/:id/invalidate-dte
func (h *InvoiceHandler) InvalidateDTE(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	var in dto.InvalidateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.invalidation.Invalidate(c.Context(), id, dte.InvalidationRequest{
		TipoAnulacion:   in.TipoAnulacion,
		MotivoAnulacion: in.MotivoAnulacion,
		Solicitante:     in.Solicitante,
	})
	if err != nil {
		return mapDomainError(c, err)
	}
	resp := dto.InvalidationResponse{
		ID:               res.Invalidation.ID,
		InvoiceID:        res.Invalidation.InvoiceID,
		Status:           res.Status,
		HaciendaState:    res.Invalidation.HaciendaState,
		CodigoGeneracion: res.Invalidation.CodigoGeneracion,
		Message:          res.Message,
	}
	return c.Status(invalidationHTTPStatus(res.Status)).JSON(resp)
}

func invalidationHTTPStatus(status string) int {
	switch status {
	case "ACEPTADO":
		return fiber.StatusOK
	case "RECHAZADO":
		return fiber.StatusUnprocessableEntity
	case "NO_AUTENTICADO":
		return fiber.StatusUnauthorized
	case "ERROR_PUENTE":
		return fiber.StatusBadGateway
	default:
		return fiber.StatusAccepted
	}
}

func parseID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func mapDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrTipoDocumentoInvalido),
		errors.Is(err, domain.ErrSinItems),
		errors.Is(err, domain.ErrSinIdentificadores):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrEstadoInvalido), errors.Is(err, domain.ErrSinSello), errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
