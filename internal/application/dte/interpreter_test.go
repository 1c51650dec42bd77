package dte_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garciaflores/facturador-api/internal/application/dte"
	"github.com/garciaflores/facturador-api/internal/domain/entity"
)

func TestInterpret_AceptadoProcesado(t *testing.T) {
	raw := []byte(`{
		"success": true,
		"respuesta_hacienda": {
			"estado": "PROCESADO",
			"codigoGeneracion": "ABC-123",
			"selloRecibido": "2025SELLO001"
		}
	}`)

	got := dte.Interpret(raw)

	assert.Equal(t, entity.RecordStatusAceptado, got.Status)
	assert.Equal(t, "PROCESADO", got.HaciendaState)
	assert.Equal(t, "ABC-123", got.HaciendaUUID)
	assert.Equal(t, "2025SELLO001", got.SelloRecibido)
}

func TestInterpret_AceptadoPorDescripcionRecibido(t *testing.T) {
	// Algunas respuestas traen el veredicto solo en descripcionMsg, con
	// espacios alrededor.
	raw := []byte(`{
		"success": true,
		"haciendaResponse": {
			"descripcionMsg": "  RECIBIDO  ",
			"sello_recibido": "SELLOX"
		}
	}`)

	got := dte.Interpret(raw)

	assert.Equal(t, entity.RecordStatusAceptado, got.Status)
	assert.Equal(t, "SELLOX", got.SelloRecibido)
}

func TestInterpret_SuccessTrueEstadoDesconocido(t *testing.T) {
	raw := []byte(`{"success": true, "respuesta_hacienda": {"estado": "EN_PROCESO"}}`)

	got := dte.Interpret(raw)

	assert.Equal(t, entity.RecordStatusPendiente, got.Status)
	assert.Equal(t, "EN_PROCESO", got.HaciendaState)
}

func TestInterpret_SuccessTrueSinVeredicto(t *testing.T) {
	raw := []byte(`{"success": true}`)

	got := dte.Interpret(raw)

	assert.Equal(t, entity.RecordStatusPendiente, got.Status)
	assert.Equal(t, entity.HaciendaSinRespuesta, got.HaciendaState)
}

func TestInterpret_RechazadoConVeredicto(t *testing.T) {
	raw := []byte(`{
		"success": false,
		"respuesta_hacienda": {
			"estado": "RECHAZADO",
			"descripcion_msg": "NIT del receptor no coincide"
		}
	}`)

	got := dte.Interpret(raw)

	assert.Equal(t, entity.RecordStatusRechazado, got.Status)
	assert.Equal(t, "RECHAZADO", got.HaciendaState)
	assert.Equal(t, "NIT del receptor no coincide", got.Message)
}

func TestInterpret_SuccessFalseSinVeredictoEsPendiente(t *testing.T) {
	// El puente falló por su cuenta: Hacienda nunca vio el documento, así
	// que no hay rechazo que registrar.
	raw := []byte(`{"success": false, "error": "bridge timeout upstream"}`)

	got := dte.Interpret(raw)

	assert.Equal(t, entity.RecordStatusPendiente, got.Status)
	assert.Equal(t, entity.HaciendaSinRespuesta, got.HaciendaState)
}

func TestInterpret_CuerpoNoParseable(t *testing.T) {
	got := dte.Interpret([]byte("<html>502 Bad Gateway</html>"))

	assert.Equal(t, entity.RecordStatusPendiente, got.Status)
	assert.Equal(t, entity.HaciendaSinRespuesta, got.HaciendaState)
}

func TestInterpret_SinCampoSuccess(t *testing.T) {
	got := dte.Interpret([]byte(`{"uuid": "XYZ"}`))

	assert.Equal(t, entity.RecordStatusPendiente, got.Status)
	assert.Equal(t, "XYZ", got.HaciendaUUID)
}

func TestInterpret_PrioridadDeAlias(t *testing.T) {
	// respuesta_hacienda gana sobre haciendaResponse cuando vienen ambos.
	raw := []byte(`{
		"success": true,
		"respuesta_hacienda": {"estado": "PROCESADO"},
		"haciendaResponse": {"estado": "RECHAZADO"}
	}`)

	got := dte.Interpret(raw)

	assert.Equal(t, entity.RecordStatusAceptado, got.Status)
	assert.Equal(t, "PROCESADO", got.HaciendaState)
}

func TestInterpret_EstadoTopLevelComoFallback(t *testing.T) {
	raw := []byte(`{"success": true, "estado": "RECIBIDO", "uuid": "U1"}`)

	got := dte.Interpret(raw)

	assert.Equal(t, entity.RecordStatusAceptado, got.Status)
	assert.Equal(t, "RECIBIDO", got.HaciendaState)
	assert.Equal(t, "U1", got.HaciendaUUID)
}
