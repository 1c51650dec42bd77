package dte_test

import (
	"context"
	"fmt"
	"time"

	"github.com/garciaflores/facturador-api/internal/application/dte"
	"github.com/garciaflores/facturador-api/internal/domain/entity"
)

// Fakes en memoria para los tests del pipeline. Implementan las interfaces de
// repositorio con el mínimo de semántica que los tests necesitan verificar.

type fakeInvoiceRepo struct {
	invoices map[int64]*entity.Invoice
	items    map[int64][]*entity.InvoiceItem

	setIdentifiersCalls int
	clearedSending      []int64
	reserveResult       []*entity.Invoice
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices: make(map[int64]*entity.Invoice),
		items:    make(map[int64][]*entity.InvoiceItem),
	}
}

func (r *fakeInvoiceRepo) add(inv *entity.Invoice, items ...*entity.InvoiceItem) {
	r.invoices[inv.ID] = inv
	r.items[inv.ID] = items
}

func (r *fakeInvoiceRepo) Create(_ context.Context, invoice *entity.Invoice, items []*entity.InvoiceItem) error {
	invoice.ID = int64(len(r.invoices) + 1)
	r.add(invoice, items...)
	return nil
}

func (r *fakeInvoiceRepo) GetByID(_ context.Context, id int64) (*entity.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	copia := *inv
	return &copia, nil
}

func (r *fakeInvoiceRepo) GetItems(_ context.Context, invoiceID int64) ([]*entity.InvoiceItem, error) {
	return r.items[invoiceID], nil
}

func (r *fakeInvoiceRepo) SetIdentifiers(_ context.Context, id int64, codigoGeneracion, numeroControl string) error {
	inv, ok := r.invoices[id]
	if !ok {
		return fmt.Errorf("factura %d no existe", id)
	}
	if inv.CodigoGeneracion != "" || inv.NumeroControl != "" {
		return fmt.Errorf("la factura %d ya tiene identificadores asignados", id)
	}
	r.setIdentifiersCalls++
	inv.CodigoGeneracion = codigoGeneracion
	inv.NumeroControl = numeroControl
	return nil
}

func (r *fakeInvoiceRepo) UpdateDTEResult(_ context.Context, invoice *entity.Invoice) error {
	stored, ok := r.invoices[invoice.ID]
	if !ok {
		return fmt.Errorf("factura %d no existe", invoice.ID)
	}
	*stored = *invoice
	return nil
}

func (r *fakeInvoiceRepo) SetDTEStatus(_ context.Context, id int64, status string) error {
	inv, ok := r.invoices[id]
	if !ok {
		return fmt.Errorf("factura %d no existe", id)
	}
	inv.DTEStatus = status
	return nil
}

func (r *fakeInvoiceRepo) ReservePending(_ context.Context, limit int, _ time.Duration) ([]*entity.Invoice, error) {
	out := r.reserveResult
	if len(out) > limit {
		out = out[:limit]
	}
	for _, inv := range out {
		inv.DTEIsSending = true
	}
	return out, nil
}

func (r *fakeInvoiceRepo) ClearSending(_ context.Context, id int64) error {
	r.clearedSending = append(r.clearedSending, id)
	if inv, ok := r.invoices[id]; ok {
		inv.DTEIsSending = false
	}
	return nil
}

type fakeClientRepo struct {
	clients map[int64]*entity.Client
}

func newFakeClientRepo(clients ...*entity.Client) *fakeClientRepo {
	r := &fakeClientRepo{clients: make(map[int64]*entity.Client)}
	for _, c := range clients {
		r.clients[c.ID] = c
	}
	return r
}

func (r *fakeClientRepo) GetByID(_ context.Context, id int64) (*entity.Client, error) {
	return r.clients[id], nil
}

type fakeRecordRepo struct {
	records []*entity.DTERecord
}

func (r *fakeRecordRepo) Create(_ context.Context, record *entity.DTERecord) error {
	record.ID = int64(len(r.records) + 1)
	record.CreatedAt = time.Now()
	r.records = append(r.records, record)
	return nil
}

func (r *fakeRecordRepo) Finalize(_ context.Context, record *entity.DTERecord) error {
	for i, stored := range r.records {
		if stored.ID == record.ID {
			r.records[i] = record
			return nil
		}
	}
	return fmt.Errorf("registro %d no existe", record.ID)
}

func (r *fakeRecordRepo) GetLatestByInvoice(_ context.Context, invoiceID int64) (*entity.DTERecord, error) {
	var latest *entity.DTERecord
	for _, record := range r.records {
		if record.InvoiceID == invoiceID {
			latest = record
		}
	}
	return latest, nil
}

func (r *fakeRecordRepo) last() *entity.DTERecord {
	if len(r.records) == 0 {
		return nil
	}
	return r.records[len(r.records)-1]
}

type fakeCounterRepo struct {
	next      int64
	processed int64
}

func (r *fakeCounterRepo) NextNumber(_ context.Context, _ entity.ControlCounterKey) (int64, error) {
	r.next++
	return r.next, nil
}

func (r *fakeCounterRepo) MarkProcessed(_ context.Context, _ entity.ControlCounterKey, number int64) error {
	if number > r.processed {
		r.processed = number
	}
	return nil
}

type fakeInvalidationRepo struct {
	invalidations []*entity.DTEInvalidation
}

func (r *fakeInvalidationRepo) Create(_ context.Context, inv *entity.DTEInvalidation) error {
	inv.ID = int64(len(r.invalidations) + 1)
	r.invalidations = append(r.invalidations, inv)
	return nil
}

func (r *fakeInvalidationRepo) Finalize(_ context.Context, inv *entity.DTEInvalidation) error {
	for i, stored := range r.invalidations {
		if stored.ID == inv.ID {
			r.invalidations[i] = inv
			return nil
		}
	}
	return fmt.Errorf("invalidación %d no existe", inv.ID)
}

// fakeBridge responde con la función configurada; registra los envíos.
type fakeBridge struct {
	respond func(path string, payload []byte) (*dte.BridgeResult, error)
	sent    [][]byte
	paths   []string
}

func (b *fakeBridge) Send(_ context.Context, path string, payload []byte) (*dte.BridgeResult, error) {
	b.sent = append(b.sent, payload)
	b.paths = append(b.paths, path)
	return b.respond(path, payload)
}

func bridgeOK(body string) *fakeBridge {
	return &fakeBridge{respond: func(string, []byte) (*dte.BridgeResult, error) {
		return &dte.BridgeResult{StatusCode: 200, Body: []byte(body)}, nil
	}}
}

func bridgeStatus(code int, body string) *fakeBridge {
	return &fakeBridge{respond: func(string, []byte) (*dte.BridgeResult, error) {
		return &dte.BridgeResult{StatusCode: code, Body: []byte(body)}, nil
	}}
}

func bridgeDown(err error) *fakeBridge {
	return &fakeBridge{respond: func(string, []byte) (*dte.BridgeResult, error) {
		return nil, err
	}}
}
