package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un intento de invalidación. A diferencia del envío, una
// invalidación nunca se reintenta automáticamente: el estado queda terminal
// para el intento y el usuario debe volver a solicitarla.
const (
	InvalidationStatusEnviando      = "ENVIANDO"
	InvalidationStatusAceptado      = "ACEPTADO"
	InvalidationStatusRechazado     = "RECHAZADO"
	InvalidationStatusPendiente     = "PENDIENTE"
	InvalidationStatusErrorPuente   = "ERROR_PUENTE"
	InvalidationStatusNoAutenticado = "NO_AUTENTICADO"
)

// DTEInvalidation registro de un intento de anulación de un DTE aceptado.
// Copia los campos identificatorios del documento original para que el
// registro sea auditable aunque el DTERecord cambie de forma.
type DTEInvalidation struct {
	ID          int64
	InvoiceID   int64
	DTERecordID int64

	Status           string
	CodigoGeneracion string // codigoGeneracion propio de la solicitud de anulación
	TipoAnulacion    int
	MotivoAnulacion  string

	SolicitaNombre     string
	SolicitaTipoDoc    string
	SolicitaNumDoc     string
	ResponsableNombre  string
	ResponsableTipoDoc string
	ResponsableNumDoc  string

	OriginalCodigoGeneracion string
	OriginalNumeroControl    string
	OriginalSelloRecibido    string
	OriginalTipoDte          string
	OriginalFecEmi           string
	OriginalMontoIVA         decimal.Decimal

	RequestPayload  []byte
	ResponsePayload []byte
	HaciendaState   string
	ErrorMessage    string
	ErrorCode       string

	SentAt      *time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
