package dte_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garciaflores/facturador-api/internal/application/dte"
	"github.com/garciaflores/facturador-api/internal/domain"
	"github.com/garciaflores/facturador-api/internal/domain/entity"
	"github.com/garciaflores/facturador-api/pkg/logger"
)

const invalidacionAceptada = `{
	"success": true,
	"respuesta_hacienda": {"estado": "PROCESADO"}
}`

type invalidationFixture struct {
	invoices      *fakeInvoiceRepo
	records       *fakeRecordRepo
	invalidations *fakeInvalidationRepo
	bridge        *fakeBridge
	pipeline      *dte.InvalidationPipeline
}

func newInvalidationFixture(bridge *fakeBridge) *invalidationFixture {
	invoices := newFakeInvoiceRepo()
	clients := newFakeClientRepo(&entity.Client{ID: 3, FullName: "Ana Martínez", DUI: "01234567-8", Phone: "+503 7652-3555"})
	records := &fakeRecordRepo{}
	invalidations := &fakeInvalidationRepo{}

	pipeline := dte.NewInvalidationPipeline(
		invoices, clients, records, invalidations,
		bridge, dte.DefaultEmitter, "00", logger.Nop(),
	)
	return &invalidationFixture{
		invoices:      invoices,
		records:       records,
		invalidations: invalidations,
		bridge:        bridge,
		pipeline:      pipeline,
	}
}

// addAcceptedInvoice deja una factura ACEPTADA con su registro de transmisión
// (payload original y respuesta con sello).
func (f *invalidationFixture) addAcceptedInvoice(id int64) {
	f.invoices.add(&entity.Invoice{
		ID:               id,
		ClientID:         3,
		DocType:          entity.DocTypeCF,
		DTEStatus:        entity.DTEStatusAceptado,
		CodigoGeneracion: "ORIG-UUID",
		NumeroControl:    "DTE-01-M002P001-000000000000009",
	})
	f.records.records = append(f.records.records, &entity.DTERecord{
		ID:            1,
		InvoiceID:     id,
		DTEType:       entity.DocTypeCF,
		Status:        entity.RecordStatusAceptado,
		ControlNumber: "DTE-01-M002P001-000000000000009",
		IssueDate:     time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		RequestPayload: []byte(`{
			"dte": {
				"identificacion": {
					"ambiente": "00",
					"tipoDte": "01",
					"codigoGeneracion": "ORIG-UUID",
					"numeroControl": "DTE-01-M002P001-000000000000009",
					"fecEmi": "2025-03-10"
				},
				"resumen": {"totalIva": 13.0},
				"receptor": {"numDocumento": "01234567-8", "nombre": "Ana Martínez", "telefono": "7652-3555"}
			}
		}`),
		ResponsePayload: []byte(`{
			"success": true,
			"respuesta_hacienda": {"estado": "PROCESADO", "selloRecibido": "SELLO-ORIGINAL"}
		}`),
	})
}

func TestInvalidation_Aceptada(t *testing.T) {
	f := newInvalidationFixture(bridgeOK(invalidacionAceptada))
	f.addAcceptedInvoice(1)

	res, err := f.pipeline.Invalidate(context.Background(), 1, dte.InvalidationRequest{})
	require.NoError(t, err)

	assert.Equal(t, entity.InvalidationStatusAceptado, res.Status)

	// La factura queda INVALIDADA solo tras aceptación de Hacienda.
	stored, _ := f.invoices.GetByID(context.Background(), 1)
	assert.Equal(t, entity.DTEStatusInvalidado, stored.DTEStatus)

	inv := f.invalidations.invalidations[0]
	assert.Equal(t, "ORIG-UUID", inv.OriginalCodigoGeneracion)
	assert.Equal(t, "SELLO-ORIGINAL", inv.OriginalSelloRecibido)
	assert.Equal(t, 2, inv.TipoAnulacion)
	assert.True(t, inv.OriginalMontoIVA.Equal(decimal.RequireFromString("13")))

	// Payload enviado: documento original + motivo por defecto.
	require.Len(t, f.bridge.sent, 1)
	assert.Equal(t, dte.PathInvalidacion, f.bridge.paths[0])
	var payload map[string]any
	require.NoError(t, json.Unmarshal(f.bridge.sent[0], &payload))
	invalidacion := payload["invalidacion"].(map[string]any)
	documento := invalidacion["documento"].(map[string]any)
	assert.Equal(t, "SELLO-ORIGINAL", documento["selloRecibido"])
	assert.Equal(t, "ORIG-UUID", documento["codigoGeneracion"])
	assert.Equal(t, "76523555", documento["telefono"], "teléfono normalizado a 8 dígitos")
	motivo := invalidacion["motivo"].(map[string]any)
	assert.Equal(t, "Rescindir de la operación realizada", motivo["motivoAnulacion"])
	assert.Equal(t, float64(2), motivo["tipoAnulacion"])
}

func TestInvalidation_SinSello(t *testing.T) {
	f := newInvalidationFixture(bridgeOK(invalidacionAceptada))
	f.addAcceptedInvoice(1)
	f.records.records[0].ResponsePayload = []byte(`{"success": true}`)

	_, err := f.pipeline.Invalidate(context.Background(), 1, dte.InvalidationRequest{})
	assert.ErrorIs(t, err, domain.ErrSinSello)
	assert.Empty(t, f.bridge.sent)
	assert.Empty(t, f.invalidations.invalidations)
}

func TestInvalidation_FacturaNoAceptada(t *testing.T) {
	f := newInvalidationFixture(bridgeOK(invalidacionAceptada))
	f.invoices.add(&entity.Invoice{ID: 1, ClientID: 3, DTEStatus: entity.DTEStatusPendiente})

	_, err := f.pipeline.Invalidate(context.Background(), 1, dte.InvalidationRequest{})
	assert.ErrorIs(t, err, domain.ErrEstadoInvalido)
}

func TestInvalidation_NoAutenticado(t *testing.T) {
	f := newInvalidationFixture(bridgeStatus(401, `{"detail": "credenciales inválidas"}`))
	f.addAcceptedInvoice(1)

	res, err := f.pipeline.Invalidate(context.Background(), 1, dte.InvalidationRequest{})
	require.NoError(t, err)

	assert.Equal(t, entity.InvalidationStatusNoAutenticado, res.Status)
	stored, _ := f.invoices.GetByID(context.Background(), 1)
	assert.Equal(t, entity.DTEStatusAceptado, stored.DTEStatus, "la factura no cambia si la anulación no fue aceptada")
}

func TestInvalidation_ErrorPuente(t *testing.T) {
	f := newInvalidationFixture(bridgeStatus(503, "unavailable"))
	f.addAcceptedInvoice(1)

	res, err := f.pipeline.Invalidate(context.Background(), 1, dte.InvalidationRequest{})
	require.NoError(t, err)

	assert.Equal(t, entity.InvalidationStatusErrorPuente, res.Status)
	assert.Equal(t, "503", f.invalidations.invalidations[0].ErrorCode)
}

func TestInvalidation_RechazoHTTP(t *testing.T) {
	f := newInvalidationFixture(bridgeStatus(422, `{"detail": "documento ya anulado"}`))
	f.addAcceptedInvoice(1)

	res, err := f.pipeline.Invalidate(context.Background(), 1, dte.InvalidationRequest{})
	require.NoError(t, err)
	assert.Equal(t, entity.InvalidationStatusRechazado, res.Status)
}

func TestInvalidation_CaidaDeRed(t *testing.T) {
	f := newInvalidationFixture(bridgeDown(context.DeadlineExceeded))
	f.addAcceptedInvoice(1)

	res, err := f.pipeline.Invalidate(context.Background(), 1, dte.InvalidationRequest{})
	require.NoError(t, err)

	assert.Equal(t, entity.InvalidationStatusPendiente, res.Status)
	inv := f.invalidations.invalidations[0]
	assert.Equal(t, entity.HaciendaSinRespuesta, inv.HaciendaState)
	assert.Equal(t, "network_error", inv.ErrorCode)
}

func TestInvalidation_RechazoDeHacienda(t *testing.T) {
	f := newInvalidationFixture(bridgeOK(`{
		"success": false,
		"respuesta_hacienda": {"estado": "RECHAZADO", "descripcionMsg": "sello no coincide"}
	}`))
	f.addAcceptedInvoice(1)

	res, err := f.pipeline.Invalidate(context.Background(), 1, dte.InvalidationRequest{})
	require.NoError(t, err)

	assert.Equal(t, entity.InvalidationStatusRechazado, res.Status)
	stored, _ := f.invoices.GetByID(context.Background(), 1)
	assert.Equal(t, entity.DTEStatusAceptado, stored.DTEStatus)
}

func TestInvalidation_MotivoPersonalizado(t *testing.T) {
	f := newInvalidationFixture(bridgeOK(invalidacionAceptada))
	f.addAcceptedInvoice(1)

	_, err := f.pipeline.Invalidate(context.Background(), 1, dte.InvalidationRequest{
		TipoAnulacion:   1,
		MotivoAnulacion: "Error en monto facturado",
		Solicitante:     "Carlos Rivas",
	})
	require.NoError(t, err)

	inv := f.invalidations.invalidations[0]
	assert.Equal(t, 1, inv.TipoAnulacion)
	assert.Equal(t, "Error en monto facturado", inv.MotivoAnulacion)
	assert.Equal(t, "Carlos Rivas", inv.SolicitaNombre)
}
