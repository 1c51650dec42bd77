package postgres

import (
	"context"
	"fmt"

	"github.com/garciaflores/facturador-api/internal/domain/entity"
	"github.com/garciaflores/facturador-api/internal/domain/repository"
)

var _ repository.ControlCounterRepository = (*ControlCounterRepo)(nil)

// ControlCounterRepo contador transaccional de números de control. Pasar pool
// o tx (Querier).
type ControlCounterRepo struct {
	q Querier
}

// NewControlCounterRepository construye el adaptador.
func NewControlCounterRepository(q Querier) *ControlCounterRepo {
	return &ControlCounterRepo{q: q}
}

// NextNumber incrementa y devuelve el siguiente número de la clave en un solo
// statement. El upsert con RETURNING es la sección crítica completa: dos
// transacciones concurrentes serializan sobre la fila y jamás ven el mismo
// valor.
func (r *ControlCounterRepo) NextNumber(ctx context.Context, key entity.ControlCounterKey) (int64, error) {
	var next int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO dte_control_counters (ambiente, tipo_dte, anio_emision, est_code, pv_code, last_number)
		VALUES ($1, $2, $3, $4, $5, 1)
		ON CONFLICT (ambiente, tipo_dte, anio_emision, est_code, pv_code)
		DO UPDATE SET last_number = dte_control_counters.last_number + 1,
		              updated_at  = now()
		RETURNING last_number`,
		key.Ambiente, key.TipoDte, key.AnioEmision, key.EstCode, key.PvCode,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next control number: %w", err)
	}
	return next, nil
}

// MarkProcessed avanza la marca de agua de aceptados, solo hacia adelante.
func (r *ControlCounterRepo) MarkProcessed(ctx context.Context, key entity.ControlCounterKey, number int64) error {
	_, err := r.q.Exec(ctx, `
		UPDATE dte_control_counters
		SET processed_number = $6,
		    updated_at       = now()
		WHERE ambiente = $1 AND tipo_dte = $2 AND anio_emision = $3
		  AND est_code = $4 AND pv_code = $5
		  AND processed_number < $6`,
		key.Ambiente, key.TipoDte, key.AnioEmision, key.EstCode, key.PvCode, number)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}
