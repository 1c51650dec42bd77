package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/garciaflores/facturador-api/internal/domain/entity"
	"github.com/garciaflores/facturador-api/internal/domain/repository"
)

var _ repository.DTERecordRepository = (*DTERecordRepo)(nil)

// DTERecordRepo bitácora de transmisiones DTE. Pasar pool o tx (Querier).
type DTERecordRepo struct {
	q Querier
}

// NewDTERecordRepository construye el adaptador.
func NewDTERecordRepository(q Querier) *DTERecordRepo {
	return &DTERecordRepo{q: q}
}

// Create inserta el registro en estado ENVIANDO, antes de la llamada de red.
func (r *DTERecordRepo) Create(ctx context.Context, record *entity.DTERecord) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO dte_records (invoice_id, dte_type, status, control_number, issuer_nit,
		                         receiver_nit, receiver_name, issue_date, total_amount, request_payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		record.InvoiceID, record.DTEType, record.Status, record.ControlNumber, record.IssuerNIT,
		nullIfEmpty(record.ReceiverNIT), record.ReceiverName, record.IssueDate,
		record.TotalAmount, record.RequestPayload,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert dte record: %w", err)
	}
	return nil
}

// Finalize escribe el estado terminal del intento.
func (r *DTERecordRepo) Finalize(ctx context.Context, record *entity.DTERecord) error {
	_, err := r.q.Exec(ctx, `
		UPDATE dte_records
		SET status           = $2,
		    hacienda_uuid    = $3,
		    hacienda_state   = $4,
		    response_payload = $5,
		    updated_at       = now()
		WHERE id = $1`,
		record.ID, record.Status, nullIfEmpty(record.HaciendaUUID),
		nullIfEmpty(record.HaciendaState), record.ResponsePayload)
	if err != nil {
		return fmt.Errorf("finalize dte record: %w", err)
	}
	return nil
}

// GetLatestByInvoice devuelve el registro más reciente de la factura, o nil.
func (r *DTERecordRepo) GetLatestByInvoice(ctx context.Context, invoiceID int64) (*entity.DTERecord, error) {
	record := &entity.DTERecord{}
	var haciendaUUID, haciendaState, receiverNIT *string
	err := r.q.QueryRow(ctx, `
		SELECT id, invoice_id, dte_type, status, control_number, hacienda_uuid, hacienda_state,
		       issuer_nit, receiver_nit, receiver_name, issue_date, total_amount,
		       request_payload, response_payload, created_at, updated_at
		FROM dte_records
		WHERE invoice_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, invoiceID).Scan(
		&record.ID, &record.InvoiceID, &record.DTEType, &record.Status, &record.ControlNumber,
		&haciendaUUID, &haciendaState,
		&record.IssuerNIT, &receiverNIT, &record.ReceiverName, &record.IssueDate, &record.TotalAmount,
		&record.RequestPayload, &record.ResponsePayload, &record.CreatedAt, &record.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select latest dte record: %w", err)
	}
	record.HaciendaUUID = orEmpty(haciendaUUID)
	record.HaciendaState = orEmpty(haciendaState)
	record.ReceiverNIT = orEmpty(receiverNIT)
	return record, nil
}
