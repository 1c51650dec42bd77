package postgres

import (
	"context"
	"fmt"

	"github.com/garciaflores/facturador-api/internal/domain/entity"
	"github.com/garciaflores/facturador-api/internal/domain/repository"
)

var _ repository.DTEInvalidationRepository = (*DTEInvalidationRepo)(nil)

// DTEInvalidationRepo bitácora de anulaciones. Pasar pool o tx (Querier).
type DTEInvalidationRepo struct {
	q Querier
}

// NewDTEInvalidationRepository construye el adaptador.
func NewDTEInvalidationRepository(q Querier) *DTEInvalidationRepo {
	return &DTEInvalidationRepo{q: q}
}

// Create inserta el intento en estado ENVIANDO.
func (r *DTEInvalidationRepo) Create(ctx context.Context, inv *entity.DTEInvalidation) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO dte_invalidations (
			invoice_id, dte_record_id, status, codigo_generacion, tipo_anulacion, motivo_anulacion,
			solicita_nombre, solicita_tipo_doc, solicita_num_doc,
			responsable_nombre, responsable_tipo_doc, responsable_num_doc,
			original_codigo_generacion, original_numero_control, original_sello_recibido,
			original_tipo_dte, original_fec_emi, original_monto_iva,
			request_payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, updated_at`,
		inv.InvoiceID, inv.DTERecordID, inv.Status, inv.CodigoGeneracion,
		inv.TipoAnulacion, inv.MotivoAnulacion,
		inv.SolicitaNombre, inv.SolicitaTipoDoc, inv.SolicitaNumDoc,
		inv.ResponsableNombre, inv.ResponsableTipoDoc, inv.ResponsableNumDoc,
		inv.OriginalCodigoGeneracion, inv.OriginalNumeroControl, inv.OriginalSelloRecibido,
		inv.OriginalTipoDte, inv.OriginalFecEmi, inv.OriginalMontoIVA,
		inv.RequestPayload,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert dte invalidation: %w", err)
	}
	return nil
}

// Finalize escribe el estado terminal del intento de anulación.
func (r *DTEInvalidationRepo) Finalize(ctx context.Context, inv *entity.DTEInvalidation) error {
	_, err := r.q.Exec(ctx, `
		UPDATE dte_invalidations
		SET status           = $2,
		    hacienda_state   = $3,
		    response_payload = $4,
		    error_message    = $5,
		    error_code       = $6,
		    sent_at          = $7,
		    processed_at     = $8,
		    updated_at       = now()
		WHERE id = $1`,
		inv.ID, inv.Status, nullIfEmpty(inv.HaciendaState), inv.ResponsePayload,
		nullIfEmpty(inv.ErrorMessage), nullIfEmpty(inv.ErrorCode),
		inv.SentAt, inv.ProcessedAt)
	if err != nil {
		return fmt.Errorf("finalize dte invalidation: %w", err)
	}
	return nil
}
