package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garciaflores/facturador-api/internal/application/dte"
	"github.com/garciaflores/facturador-api/internal/application/dto"
	"github.com/garciaflores/facturador-api/internal/domain"
	domdte "github.com/garciaflores/facturador-api/internal/domain/dte"
	"github.com/garciaflores/facturador-api/internal/domain/entity"
	"github.com/garciaflores/facturador-api/internal/domain/repository"
	"github.com/garciaflores/facturador-api/pkg/logger"
)

// CreateInvoiceUseCase crea la factura y dispara su transmisión a Hacienda.
// La emisión es degradada por diseño: si el puente está caído la factura se
// crea igual, queda PENDIENTE y el autoreenvío la retoma. La caída de
// Hacienda nunca bloquea la venta.
type CreateInvoiceUseCase struct {
	invoices repository.InvoiceRepository
	clients  repository.ClientRepository
	pipeline *dte.Pipeline
	log      *logger.Logger
}

// NewCreateInvoiceUseCase construye el caso de uso.
func NewCreateInvoiceUseCase(
	invoices repository.InvoiceRepository,
	clients repository.ClientRepository,
	pipeline *dte.Pipeline,
	log *logger.Logger,
) *CreateInvoiceUseCase {
	return &CreateInvoiceUseCase{
		invoices: invoices,
		clients:  clients,
		pipeline: pipeline,
		log:      log,
	}
}

// CreateInvoice valida, persiste y envía. El error de envío no deshace la
// creación: la respuesta refleja el estado DTE que haya quedado.
func (uc *CreateInvoiceUseCase) CreateInvoice(ctx context.Context, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if in.ClientID == 0 || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	switch in.DocType {
	case entity.DocTypeCF, entity.DocTypeCCF, entity.DocTypeSX:
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrTipoDocumentoInvalido, in.DocType)
	}

	client, err := uc.clients.GetByID(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, domain.ErrNotFound
	}

	now := time.Now()
	total := decimal.Zero
	items := make([]*entity.InvoiceItem, 0, len(in.Items))
	for _, it := range in.Items {
		if !it.Quantity.GreaterThan(decimal.Zero) || it.UnitPrice.LessThan(decimal.Zero) {
			return nil, domain.ErrInvalidInput
		}
		subtotal := domdte.Round2(it.Quantity.Mul(it.UnitPrice))
		total = total.Add(subtotal)
		items = append(items, &entity.InvoiceItem{
			ServiceID:   it.ServiceID,
			ServiceCode: it.ServiceCode,
			ServiceName: it.ServiceName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    subtotal,
			NoSujeta:    it.NoSujeta,
		})
	}

	invoice := &entity.Invoice{
		Number:        fmt.Sprintf("FAC-%d", now.Unix()),
		Date:          now,
		ClientID:      in.ClientID,
		DocType:       in.DocType,
		PaymentMethod: in.PaymentMethod,
		Observations:  in.Observations,
		Total:         domdte.Round2(total),
		DTEStatus:     entity.DTEStatusPendiente,
	}
	if err := uc.invoices.Create(ctx, invoice, items); err != nil {
		return nil, err
	}

	resp := toInvoiceResponse(invoice, items)

	res, err := uc.pipeline.Send(ctx, invoice.ID, dte.SendOptions{})
	if err != nil {
		// La factura ya existe; el envío fallido queda registrado en ella.
		uc.log.Error().Err(err).Int64("invoice_id", invoice.ID).
			Msg("creación ok pero el envío DTE falló")
		resp.DTEStatus = invoice.DTEStatus
		resp.LastDTEError = invoice.LastDTEError
		resp.LastDTEErrorCode = invoice.LastDTEErrorCode
		resp.DTEMessage = "No se pudo enviar el DTE; la factura queda pendiente."
		return resp, nil
	}

	fillDTEResult(resp, res)
	return resp, nil
}

// ResendDTE reintenta manualmente la transmisión de una factura pendiente.
func (uc *CreateInvoiceUseCase) ResendDTE(ctx context.Context, invoiceID int64) (*dto.InvoiceResponse, error) {
	res, err := uc.pipeline.Send(ctx, invoiceID, dte.SendOptions{
		EnsureIdentifiers: true,
		ForceNowTimestamp: true,
	})
	if err != nil {
		return nil, err
	}
	resp := toInvoiceResponse(res.Invoice, nil)
	fillDTEResult(resp, res)
	return resp, nil
}

// GetInvoice devuelve la factura con sus líneas.
func (uc *CreateInvoiceUseCase) GetInvoice(ctx context.Context, invoiceID int64) (*dto.InvoiceResponse, error) {
	invoice, err := uc.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	items, err := uc.invoices.GetItems(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(invoice, items), nil
}

func fillDTEResult(resp *dto.InvoiceResponse, res *dte.SendResult) {
	resp.DTEStatus = res.Invoice.DTEStatus
	resp.CodigoGeneracion = res.Invoice.CodigoGeneracion
	resp.NumeroControl = res.Invoice.NumeroControl
	resp.DTESendAttempts = res.Invoice.DTESendAttempts
	resp.LastDTEError = res.Invoice.LastDTEError
	resp.LastDTEErrorCode = res.Invoice.LastDTEErrorCode
	resp.DTEMessage = res.Message
	resp.DTEPendingOutage = res.PendingOutage
}

func toInvoiceResponse(invoice *entity.Invoice, items []*entity.InvoiceItem) *dto.InvoiceResponse {
	resp := &dto.InvoiceResponse{
		ID:               invoice.ID,
		Number:           invoice.Number,
		Date:             invoice.Date.Format("2006-01-02"),
		ClientID:         invoice.ClientID,
		DocType:          invoice.DocType,
		PaymentMethod:    invoice.PaymentMethod,
		Observations:     invoice.Observations,
		Total:            invoice.Total,
		DTEStatus:        invoice.DTEStatus,
		CodigoGeneracion: invoice.CodigoGeneracion,
		NumeroControl:    invoice.NumeroControl,
		DTESendAttempts:  invoice.DTESendAttempts,
		LastDTEError:     invoice.LastDTEError,
		LastDTEErrorCode: invoice.LastDTEErrorCode,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, dto.InvoiceItemResponse{
			ID:          it.ID,
			ServiceID:   it.ServiceID,
			ServiceCode: it.ServiceCode,
			ServiceName: it.ServiceName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal,
			NoSujeta:    it.NoSujeta,
		})
	}
	return resp
}
