package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados internos de un DTERecord (un registro por intento de transmisión).
const (
	RecordStatusEnviando  = "ENVIANDO"
	RecordStatusAceptado  = "ACEPTADO"
	RecordStatusRechazado = "RECHAZADO"
	RecordStatusPendiente = "PENDIENTE"
)

// HaciendaSinRespuesta es el estado externo sintético cuando el puente no
// devolvió un veredicto interpretable de Hacienda.
const HaciendaSinRespuesta = "SIN_RESPUESTA"

// DTERecord bitácora inmutable de un intento de transmisión: JSON exacto
// enviado y recibido, más campos denormalizados para búsqueda rápida.
// Se crea en estado ENVIANDO antes de la llamada de red y siempre se
// finaliza a un estado terminal antes de que el pipeline retorne.
type DTERecord struct {
	ID        int64
	InvoiceID int64

	DTEType string
	Status  string

	ControlNumber string
	HaciendaUUID  string // codigoGeneracion/uuid que el puente devuelve como eco
	HaciendaState string // estado textual propio de Hacienda (PROCESADO, RECIBIDO, ...)

	IssuerNIT    string
	ReceiverNIT  string
	ReceiverName string
	IssueDate    time.Time
	TotalAmount  decimal.Decimal

	RequestPayload  []byte // JSON saliente exacto
	ResponsePayload []byte // JSON entrante exacto, o fallback textual envuelto

	CreatedAt time.Time
	UpdatedAt time.Time
}
