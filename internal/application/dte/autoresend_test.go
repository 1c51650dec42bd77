package dte_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garciaflores/facturador-api/internal/application/dte"
	"github.com/garciaflores/facturador-api/internal/domain/entity"
	"github.com/garciaflores/facturador-api/pkg/logger"
)

func newAutoresendFixture(bridge *fakeBridge) (*pipelineFixture, *dte.Autoresender) {
	f := newPipelineFixture(bridge)
	worker := dte.NewAutoresender(f.invoices, f.pipeline, 10, time.Minute, logger.Nop())
	return f, worker
}

func addPendingWithIdentifiers(f *pipelineFixture, id int64, seq string) *entity.Invoice {
	inv := f.addPendingInvoice(id)
	inv.CodigoGeneracion = "AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE"
	inv.NumeroControl = "DTE-01-M002P001-" + seq
	inv.DTESendAttempts = 1
	return inv
}

func TestAutoresend_LoteAceptado(t *testing.T) {
	f, worker := newAutoresendFixture(bridgeOK(respuestaAceptado))
	a := addPendingWithIdentifiers(f, 1, "000000000000001")
	b := addPendingWithIdentifiers(f, 2, "000000000000002")
	f.invoices.reserveResult = []*entity.Invoice{a, b}

	stats, err := worker.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Reserved)
	assert.Equal(t, 2, stats.Accepted)
	assert.Zero(t, stats.Errors)

	// La bandera se limpia para todas las facturas del lote.
	assert.ElementsMatch(t, []int64{1, 2}, f.invoices.clearedSending)

	one, _ := f.invoices.GetByID(context.Background(), 1)
	assert.Equal(t, entity.DTEStatusAceptado, one.DTEStatus)
	assert.Equal(t, 2, one.DTESendAttempts)
}

func TestAutoresend_UnaFallaNoAbortaElLote(t *testing.T) {
	calls := 0
	bridge := &fakeBridge{respond: func(string, []byte) (*dte.BridgeResult, error) {
		calls++
		if calls == 1 {
			return &dte.BridgeResult{StatusCode: 503, Body: []byte("unavailable")}, nil
		}
		return &dte.BridgeResult{StatusCode: 200, Body: []byte(respuestaAceptado)}, nil
	}}
	f, worker := newAutoresendFixture(bridge)
	a := addPendingWithIdentifiers(f, 1, "000000000000001")
	b := addPendingWithIdentifiers(f, 2, "000000000000002")
	f.invoices.reserveResult = []*entity.Invoice{a, b}

	stats, err := worker.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Accepted)
	assert.ElementsMatch(t, []int64{1, 2}, f.invoices.clearedSending)

	one, _ := f.invoices.GetByID(context.Background(), 1)
	assert.Equal(t, entity.DTEStatusPendiente, one.DTEStatus)
	two, _ := f.invoices.GetByID(context.Background(), 2)
	assert.Equal(t, entity.DTEStatusAceptado, two.DTEStatus)
}

func TestAutoresend_SinPendientes(t *testing.T) {
	f, worker := newAutoresendFixture(bridgeOK(respuestaAceptado))
	f.invoices.reserveResult = nil

	stats, err := worker.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Reserved)
	assert.Empty(t, f.bridge.sent)
}

func TestAutoresend_ReenvioConFechaActual(t *testing.T) {
	f, worker := newAutoresendFixture(bridgeOK(respuestaAceptado))
	inv := addPendingWithIdentifiers(f, 1, "000000000000001")
	inv.Date = time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	f.invoices.reserveResult = []*entity.Invoice{inv}

	_, err := worker.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, f.bridge.sent, 1)
	// El reenvío tardío no manda la fecha vieja de la factura.
	assert.NotContains(t, string(f.bridge.sent[0]), `"fecEmi":"2024-12-01"`)
}

func TestAutoresend_SumaMontosConDecimales(t *testing.T) {
	f, worker := newAutoresendFixture(bridgeOK(respuestaAceptado))
	inv := addPendingWithIdentifiers(f, 1, "000000000000001")
	inv.Total = decimal.RequireFromString("56.50")
	f.invoices.items[1] = []*entity.InvoiceItem{{
		InvoiceID:   1,
		ServiceName: "Media asesoría",
		Quantity:    decimal.RequireFromString("0.5"),
		UnitPrice:   decimal.RequireFromString("113.00"),
	}}
	f.invoices.reserveResult = []*entity.Invoice{inv}

	stats, err := worker.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Accepted)

	record := f.records.last()
	require.NotNil(t, record)
	assert.True(t, record.TotalAmount.Equal(decimal.RequireFromString("56.50")),
		"total archivado: %s", record.TotalAmount)
}
