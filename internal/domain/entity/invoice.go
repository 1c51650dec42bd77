package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de documento tributario electrónico que emite la oficina.
const (
	DocTypeCF  = "CF"  // Factura consumidor final (tipoDte 01)
	DocTypeCCF = "CCF" // Comprobante de crédito fiscal (tipoDte 03)
	DocTypeSX  = "SX"  // Factura sujeto excluido (tipoDte 14)
)

// Estados DTE de la factura. Transiciones válidas para código automatizado:
// PENDIENTE -> ACEPTADO | RECHAZADO, y ACEPTADO -> INVALIDADO.
const (
	DTEStatusPendiente  = "PENDIENTE"
	DTEStatusAceptado   = "ACEPTADO"
	DTEStatusRechazado  = "RECHAZADO"
	DTEStatusInvalidado = "INVALIDADO"
)

// Invoice cabecera de factura con el estado de envío a Hacienda.
// CodigoGeneracion y NumeroControl se asignan una sola vez: una vez presentes
// se reutilizan tal cual en cada reenvío de la misma factura.
type Invoice struct {
	ID            int64
	Number        string
	Date          time.Time
	ClientID      int64
	DocType       string
	PaymentMethod string
	Observations  string
	Total         decimal.Decimal

	DTEStatus        string
	CodigoGeneracion string // UUID v4 en mayúsculas; vacío = aún no asignado
	NumeroControl    string // DTE-{tipo}-{est}{pv}-{secuencia de 15 dígitos}
	DTESendAttempts  int
	LastDTEError     string
	LastDTEErrorCode string
	LastDTESentAt    *time.Time
	DTEIsSending     bool // bandera advisory; la exclusión real la da el SKIP LOCKED del worker

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasIdentifiers indica si la factura ya tiene asignados sus identificadores DTE.
func (i *Invoice) HasIdentifiers() bool {
	return i.CodigoGeneracion != "" && i.NumeroControl != ""
}

// InvoiceItem línea de factura. ServiceCode y ServiceName vienen denormalizados
// del catálogo de servicios para construir el cuerpoDocumento sin más lecturas.
type InvoiceItem struct {
	ID          int64
	InvoiceID   int64
	ServiceID   int64
	ServiceCode string
	ServiceName string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
	NoSujeta    bool // venta no sujeta: excluida de base gravada e IVA
}
