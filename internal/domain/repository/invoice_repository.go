package repository

import (
	"context"
	"time"

	"github.com/garciaflores/facturador-api/internal/domain/entity"
)

// InvoiceRepository acceso a facturas y sus líneas.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice, items []*entity.InvoiceItem) error
	GetByID(ctx context.Context, id int64) (*entity.Invoice, error)
	GetItems(ctx context.Context, invoiceID int64) ([]*entity.InvoiceItem, error)

	// SetIdentifiers persiste codigoGeneracion y numeroControl. Se llama antes
	// de la llamada de red: un crash a mitad de envío nunca debe producir dos
	// números distintos para la misma factura.
	SetIdentifiers(ctx context.Context, id int64, codigoGeneracion, numeroControl string) error

	// UpdateDTEResult persiste el resultado de un intento: estado, contador de
	// intentos, último error y timestamp de envío.
	UpdateDTEResult(ctx context.Context, invoice *entity.Invoice) error

	// SetDTEStatus cambia solo el estado DTE (usado por la invalidación).
	SetDTEStatus(ctx context.Context, id int64, status string) error

	// ReservePending selecciona facturas PENDIENTE con identificadores
	// asignados y fuera de la ventana de backoff, con FOR UPDATE SKIP LOCKED,
	// y las marca dte_is_sending=true dentro de la misma transacción. Nunca
	// bloquea esperando un lock de otro worker.
	ReservePending(ctx context.Context, limit int, backoff time.Duration) ([]*entity.Invoice, error)

	// ClearSending limpia la bandera dte_is_sending pase lo que pase.
	ClearSending(ctx context.Context, id int64) error
}

// ClientRepository acceso de lectura a los receptores.
type ClientRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Client, error)
}
