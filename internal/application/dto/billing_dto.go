package dto

import (
	"github.com/shopspring/decimal"
)

// CreateInvoiceItemRequest línea de la factura a crear.
type CreateInvoiceItemRequest struct {
	ServiceID   int64           `json:"service_id"`
	ServiceCode string          `json:"service_code"`
	ServiceName string          `json:"service_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	NoSujeta    bool            `json:"no_sujeta"`
}

// CreateInvoiceRequest petición de creación de factura. Los precios unitarios
// son IVA incluido: el desglose base/IVA lo calcula el subsistema DTE.
type CreateInvoiceRequest struct {
	ClientID      int64                      `json:"client_id"`
	DocType       string                     `json:"doc_type"`
	PaymentMethod string                     `json:"payment_method"`
	Observations  string                     `json:"observations"`
	Items         []CreateInvoiceItemRequest `json:"items"`
}

// InvoiceItemResponse línea en la respuesta.
type InvoiceItemResponse struct {
	ID          int64           `json:"id"`
	ServiceID   int64           `json:"service_id"`
	ServiceCode string          `json:"service_code"`
	ServiceName string          `json:"service_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	NoSujeta    bool            `json:"no_sujeta"`
}

// InvoiceResponse factura con el estado de su transmisión a Hacienda.
// DTEMessage y DTEPendingOutage describen el último intento y son efímeros:
// no se persisten, solo viajan en la respuesta.
type InvoiceResponse struct {
	ID               int64           `json:"id"`
	Number           string          `json:"number"`
	Date             string          `json:"date"`
	ClientID         int64           `json:"client_id"`
	DocType          string          `json:"doc_type"`
	PaymentMethod    string          `json:"payment_method"`
	Observations     string          `json:"observations,omitempty"`
	Total            decimal.Decimal `json:"total"`
	DTEStatus        string          `json:"dte_status"`
	CodigoGeneracion string          `json:"codigo_generacion,omitempty"`
	NumeroControl    string          `json:"numero_control,omitempty"`
	DTESendAttempts  int             `json:"dte_send_attempts"`
	LastDTEError     string          `json:"last_dte_error,omitempty"`
	LastDTEErrorCode string          `json:"last_dte_error_code,omitempty"`

	DTEMessage       string `json:"dte_message,omitempty"`
	DTEPendingOutage bool   `json:"dte_pending_outage,omitempty"`

	Items []InvoiceItemResponse `json:"items,omitempty"`
}

// InvalidateInvoiceRequest petición de anulación de un DTE aceptado.
type InvalidateInvoiceRequest struct {
	TipoAnulacion   int    `json:"tipo_anulacion"`
	MotivoAnulacion string `json:"motivo_anulacion"`
	Solicitante     string `json:"solicitante"`
}

// InvalidationResponse resultado de un intento de anulación.
type InvalidationResponse struct {
	ID               int64  `json:"id"`
	InvoiceID        int64  `json:"invoice_id"`
	Status           string `json:"status"`
	HaciendaState    string `json:"hacienda_state,omitempty"`
	CodigoGeneracion string `json:"codigo_generacion"`
	Message          string `json:"message,omitempty"`
}
