package dte

import (
	"encoding/json"
	"strings"

	"github.com/garciaflores/facturador-api/internal/domain/entity"
)

// Interpretation clasificación de una respuesta cruda del puente.
type Interpretation struct {
	Status        string // entity.RecordStatus{Aceptado,Rechazado,Pendiente}
	HaciendaState string // estado textual de Hacienda, o SIN_RESPUESTA
	Message       string // mensaje legible para el usuario; no se persiste
	HaciendaUUID  string // codigoGeneracion/uuid devuelto como eco, si vino
	SelloRecibido string // sello de aceptación, si vino
}

// bridgeResponse forma tolerante de la respuesta del puente. Los alias de
// clave se intentan en orden fijo; ver respuestaHacienda().
type bridgeResponse struct {
	Success *bool  `json:"success"`
	UUID    string `json:"uuid"`
	Estado  string `json:"estado"`

	RespuestaHaciendaSnake json.RawMessage `json:"respuesta_hacienda"`
	HaciendaResponseSnake  json.RawMessage `json:"hacienda_response"`
	RespuestaHaciendaCamel json.RawMessage `json:"respuestaHacienda"`
	HaciendaResponseCamel  json.RawMessage `json:"haciendaResponse"`
}

// haciendaVerdict objeto anidado con el veredicto propio de Hacienda.
type haciendaVerdict struct {
	Estado              string `json:"estado"`
	DescripcionMsg      string `json:"descripcionMsg"`
	DescripcionMsgSnake string `json:"descripcion_msg"`
	ClasificaMsg        string `json:"clasificaMsg"`
	CodigoGeneracion    string `json:"codigoGeneracion"`
	SelloRecibido       string `json:"selloRecibido"`
	SelloRecibidoSnake  string `json:"sello_recibido"`
}

func (v *haciendaVerdict) descripcion() string {
	if v.DescripcionMsg != "" {
		return v.DescripcionMsg
	}
	return v.DescripcionMsgSnake
}

func (v *haciendaVerdict) sello() string {
	if v.SelloRecibido != "" {
		return v.SelloRecibido
	}
	return v.SelloRecibidoSnake
}

// respuestaHacienda localiza el objeto de veredicto probando los alias de
// clave en orden de prioridad fijo. Devuelve nil si ninguno viene o ninguno
// es un objeto.
func (r *bridgeResponse) respuestaHacienda() *haciendaVerdict {
	for _, raw := range []json.RawMessage{
		r.RespuestaHaciendaSnake,
		r.HaciendaResponseSnake,
		r.RespuestaHaciendaCamel,
		r.HaciendaResponseCamel,
	} {
		if len(raw) == 0 {
			continue
		}
		var v haciendaVerdict
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		return &v
	}
	return nil
}

// Interpret clasifica la respuesta cruda del puente en el tri-estado interno.
// Es la única implementación: el pipeline de envío, el autoreenvío y la rama
// tri-estado de la invalidación pasan por aquí; dos interpretaciones
// divergentes serían un bug de corrección.
//
// Reglas, en orden:
//  1. Cuerpo no parseable -> PENDIENTE / SIN_RESPUESTA.
//  2. success=false: si Hacienda trae estado o descripción propios ->
//     RECHAZADO con ese estado; si no, el puente rechazó la llamada sin
//     veredicto de Hacienda -> PENDIENTE / SIN_RESPUESTA.
//  3. success=true: estado PROCESADO o RECIBIDO (vocabulario literal de
//     Hacienda), o descripción que recortada sea RECIBIDO -> ACEPTADO.
//     Cualquier otro estado -> PENDIENTE (Hacienda aún no resuelve).
//  4. Cualquier otra forma -> PENDIENTE / SIN_RESPUESTA.
func Interpret(raw []byte) Interpretation {
	pendiente := Interpretation{
		Status:        entity.RecordStatusPendiente,
		HaciendaState: entity.HaciendaSinRespuesta,
		Message:       "El puente no devolvió un veredicto de Hacienda; la factura queda pendiente.",
	}

	var resp bridgeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return pendiente
	}

	verdict := resp.respuestaHacienda()
	uuid := resp.UUID
	sello := ""
	if verdict != nil {
		if verdict.CodigoGeneracion != "" {
			uuid = verdict.CodigoGeneracion
		}
		sello = verdict.sello()
	}

	if resp.Success == nil {
		pendiente.HaciendaUUID = uuid
		return pendiente
	}

	if !*resp.Success {
		if verdict != nil && (verdict.Estado != "" || verdict.descripcion() != "") {
			state := verdict.Estado
			if state == "" {
				state = "RECHAZADO"
			}
			return Interpretation{
				Status:        entity.RecordStatusRechazado,
				HaciendaState: state,
				Message:       rejectionMessage(verdict),
				HaciendaUUID:  uuid,
			}
		}
		pendiente.HaciendaUUID = uuid
		return pendiente
	}

	estado := verdictEstado(verdict, resp.Estado)
	if estado == "PROCESADO" || estado == "RECIBIDO" ||
		(verdict != nil && strings.TrimSpace(verdict.descripcion()) == "RECIBIDO") {
		if estado == "" {
			estado = "RECIBIDO"
		}
		return Interpretation{
			Status:        entity.RecordStatusAceptado,
			HaciendaState: estado,
			Message:       "El DTE fue aceptado por Hacienda.",
			HaciendaUUID:  uuid,
			SelloRecibido: sello,
		}
	}

	state := estado
	if state == "" {
		state = entity.HaciendaSinRespuesta
	}
	return Interpretation{
		Status:        entity.RecordStatusPendiente,
		HaciendaState: state,
		Message:       "Hacienda no ha terminado de procesar el DTE.",
		HaciendaUUID:  uuid,
		SelloRecibido: sello,
	}
}

func verdictEstado(verdict *haciendaVerdict, fallback string) string {
	if verdict != nil && verdict.Estado != "" {
		return verdict.Estado
	}
	return fallback
}

func rejectionMessage(verdict *haciendaVerdict) string {
	desc := strings.TrimSpace(verdict.descripcion())
	if desc == "" {
		return "El DTE fue rechazado por Hacienda."
	}
	return desc
}
