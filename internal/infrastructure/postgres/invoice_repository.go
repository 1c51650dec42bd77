package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/garciaflores/facturador-api/internal/domain/entity"
	"github.com/garciaflores/facturador-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository sobre PostgreSQL.
// Necesita el pool (no un Querier genérico) porque ReservePending abre su
// propia transacción.
type InvoiceRepo struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepository construye el adaptador.
func NewInvoiceRepository(pool *pgxpool.Pool) *InvoiceRepo {
	return &InvoiceRepo{pool: pool}
}

const invoiceColumns = `
	id, number, date, client_id, doc_type, payment_method, observations, total,
	dte_status, codigo_generacion, numero_control, dte_send_attempts,
	last_dte_error, last_dte_error_code, last_dte_sent_at, dte_is_sending,
	created_at, updated_at`

// Create persiste cabecera y líneas en una sola transacción.
func (r *InvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice, items []*entity.InvoiceItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (number, date, client_id, doc_type, payment_method, observations, total, dte_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		invoice.Number, invoice.Date, invoice.ClientID, invoice.DocType,
		invoice.PaymentMethod, invoice.Observations, invoice.Total, invoice.DTEStatus,
	).Scan(&invoice.ID, &invoice.CreatedAt, &invoice.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("numero de factura duplicado: %w", err)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}

	for _, item := range items {
		item.InvoiceID = invoice.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO invoice_items (invoice_id, service_id, service_code, service_name, quantity, unit_price, subtotal, no_sujeta)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			item.InvoiceID, item.ServiceID, item.ServiceCode, item.ServiceName,
			item.Quantity, item.UnitPrice, item.Subtotal, item.NoSujeta,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID devuelve la factura o nil si no existe.
func (r *InvoiceRepo) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	invoice, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select invoice: %w", err)
	}
	return invoice, nil
}

// GetItems devuelve las líneas de la factura en orden de inserción.
func (r *InvoiceRepo) GetItems(ctx context.Context, invoiceID int64) ([]*entity.InvoiceItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, service_id, service_code, service_name, quantity, unit_price, subtotal, no_sujeta
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("select invoice items: %w", err)
	}
	defer rows.Close()

	var items []*entity.InvoiceItem
	for rows.Next() {
		item := &entity.InvoiceItem{}
		if err := rows.Scan(
			&item.ID, &item.InvoiceID, &item.ServiceID, &item.ServiceCode, &item.ServiceName,
			&item.Quantity, &item.UnitPrice, &item.Subtotal, &item.NoSujeta,
		); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SetIdentifiers persiste los identificadores DTE. Solo escribe si aún no
// existen: los identificadores se asignan una única vez.
func (r *InvoiceRepo) SetIdentifiers(ctx context.Context, id int64, codigoGeneracion, numeroControl string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices
		SET codigo_generacion = $2,
		    numero_control    = $3,
		    updated_at        = now()
		WHERE id = $1
		  AND (codigo_generacion IS NULL OR codigo_generacion = '')
		  AND (numero_control IS NULL OR numero_control = '')`,
		id, codigoGeneracion, numeroControl)
	if err != nil {
		return fmt.Errorf("set identifiers: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("la factura %d ya tiene identificadores asignados", id)
	}
	return nil
}

// UpdateDTEResult persiste el resultado de un intento de transmisión.
func (r *InvoiceRepo) UpdateDTEResult(ctx context.Context, invoice *entity.Invoice) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE invoices
		SET dte_status          = $2,
		    dte_send_attempts   = $3,
		    last_dte_error      = $4,
		    last_dte_error_code = $5,
		    last_dte_sent_at    = $6,
		    updated_at          = now()
		WHERE id = $1`,
		invoice.ID, invoice.DTEStatus, invoice.DTESendAttempts,
		nullIfEmpty(invoice.LastDTEError), nullIfEmpty(invoice.LastDTEErrorCode),
		invoice.LastDTESentAt)
	if err != nil {
		return fmt.Errorf("update dte result: %w", err)
	}
	return nil
}

// SetDTEStatus cambia solo el estado DTE.
func (r *InvoiceRepo) SetDTEStatus(ctx context.Context, id int64, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE invoices SET dte_status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("set dte status: %w", err)
	}
	return nil
}

// ReservePending selecciona y marca en una sola transacción las facturas
// PENDIENTE elegibles para reenvío. SKIP LOCKED: si otro worker ya tiene
// filas bloqueadas, este simplemente no las ve, nunca espera.
func (r *InvoiceRepo) ReservePending(ctx context.Context, limit int, backoff time.Duration) ([]*entity.Invoice, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE dte_status = $1
		  AND codigo_generacion IS NOT NULL AND codigo_generacion <> ''
		  AND numero_control IS NOT NULL AND numero_control <> ''
		  AND dte_is_sending = false
		  AND (last_dte_sent_at IS NULL OR last_dte_sent_at < now() - make_interval(secs => $2))
		ORDER BY id
		LIMIT $3
		FOR UPDATE SKIP LOCKED`,
		entity.DTEStatusPendiente, backoff.Seconds(), limit)
	if err != nil {
		return nil, fmt.Errorf("select pending invoices: %w", err)
	}

	var invoices []*entity.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan pending invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, invoice := range invoices {
		if _, err := tx.Exec(ctx, `
			UPDATE invoices SET dte_is_sending = true, updated_at = now() WHERE id = $1`,
			invoice.ID); err != nil {
			return nil, fmt.Errorf("mark sending: %w", err)
		}
		invoice.DTEIsSending = true
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return invoices, nil
}

// ClearSending limpia la bandera advisory de envío en curso.
func (r *InvoiceRepo) ClearSending(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE invoices SET dte_is_sending = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("clear sending: %w", err)
	}
	return nil
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	invoice := &entity.Invoice{}
	var codigoGeneracion, numeroControl, lastError, lastErrorCode *string
	err := row.Scan(
		&invoice.ID, &invoice.Number, &invoice.Date, &invoice.ClientID,
		&invoice.DocType, &invoice.PaymentMethod, &invoice.Observations, &invoice.Total,
		&invoice.DTEStatus, &codigoGeneracion, &numeroControl, &invoice.DTESendAttempts,
		&lastError, &lastErrorCode, &invoice.LastDTESentAt, &invoice.DTEIsSending,
		&invoice.CreatedAt, &invoice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	invoice.CodigoGeneracion = orEmpty(codigoGeneracion)
	invoice.NumeroControl = orEmpty(numeroControl)
	invoice.LastDTEError = orEmpty(lastError)
	invoice.LastDTEErrorCode = orEmpty(lastErrorCode)
	return invoice, nil
}
