package repository

import (
	"context"

	"github.com/garciaflores/facturador-api/internal/domain/entity"
)

// DTERecordRepository bitácora append-only de transmisiones.
type DTERecordRepository interface {
	Create(ctx context.Context, record *entity.DTERecord) error

	// Finalize escribe el estado terminal del intento (status, respuesta,
	// uuid y estado de Hacienda). Después de esto el registro no se vuelve a
	// mutar salvo referencias desde la invalidación.
	Finalize(ctx context.Context, record *entity.DTERecord) error

	GetLatestByInvoice(ctx context.Context, invoiceID int64) (*entity.DTERecord, error)
}

// ControlCounterRepository contador transaccional de números de control.
type ControlCounterRepository interface {
	// NextNumber incrementa y devuelve el siguiente número de la clave, de
	// forma atómica: dos llamadas concurrentes jamás observan el mismo valor.
	NextNumber(ctx context.Context, key entity.ControlCounterKey) (int64, error)

	// MarkProcessed avanza la marca de agua de aceptados solo si number la
	// supera. Best effort: no participa en la asignación.
	MarkProcessed(ctx context.Context, key entity.ControlCounterKey, number int64) error
}

// DTEInvalidationRepository bitácora append-only de anulaciones.
type DTEInvalidationRepository interface {
	Create(ctx context.Context, inv *entity.DTEInvalidation) error
	Finalize(ctx context.Context, inv *entity.DTEInvalidation) error
}
