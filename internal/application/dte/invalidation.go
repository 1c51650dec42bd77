package dte

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garciaflores/facturador-api/internal/domain"
	"github.com/garciaflores/facturador-api/internal/domain/entity"
	"github.com/garciaflores/facturador-api/internal/domain/repository"
	"github.com/garciaflores/facturador-api/pkg/logger"
)

// InvalidationPipeline gestiona la anulación de un DTE ya aceptado. Solo se
// puede invalidar una factura ACEPTADA cuyo último registro conserve el sello
// recibido de Hacienda; sin sello no hay solicitud que armar.
//
// A diferencia del envío, una invalidación fallida no entra al autoreenvío:
// el intento queda registrado y el usuario debe solicitarla de nuevo.
type InvalidationPipeline struct {
	invoices      repository.InvoiceRepository
	clients       repository.ClientRepository
	records       repository.DTERecordRepository
	invalidations repository.DTEInvalidationRepository
	bridge        BridgeClient
	emitter       entity.Emitter
	ambiente      string
	log           *logger.Logger
	now           func() time.Time
}

// NewInvalidationPipeline construye el pipeline de anulación.
func NewInvalidationPipeline(
	invoices repository.InvoiceRepository,
	clients repository.ClientRepository,
	records repository.DTERecordRepository,
	invalidations repository.DTEInvalidationRepository,
	bridge BridgeClient,
	emitter entity.Emitter,
	ambiente string,
	log *logger.Logger,
) *InvalidationPipeline {
	return &InvalidationPipeline{
		invoices:      invoices,
		clients:       clients,
		records:       records,
		invalidations: invalidations,
		bridge:        bridge,
		emitter:       emitter,
		ambiente:      ambiente,
		log:           log,
		now:           time.Now,
	}
}

// InvalidationRequest parámetros de la solicitud de anulación.
type InvalidationRequest struct {
	TipoAnulacion   int    // 1..3 según catálogo de Hacienda; 0 = 2 (rescindir)
	MotivoAnulacion string // texto libre; vacío usa el motivo por defecto
	Solicitante     string // nombre de quien solicita; vacío usa al emisor
}

// InvalidationResult resultado de un intento de anulación.
type InvalidationResult struct {
	Invalidation *entity.DTEInvalidation
	Status       string
	Message      string
}

const motivoAnulacionDefault = "Rescindir de la operación realizada"

// Invalidate ejecuta un intento de anulación para la factura indicada.
func (s *InvalidationPipeline) Invalidate(ctx context.Context, invoiceID int64, req InvalidationRequest) (*InvalidationResult, error) {
	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("cargar factura %d: %w", invoiceID, err)
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	if invoice.DTEStatus != entity.DTEStatusAceptado {
		return nil, fmt.Errorf("%w: solo se invalidan facturas ACEPTADAS, estado actual %q",
			domain.ErrEstadoInvalido, invoice.DTEStatus)
	}

	record, err := s.records.GetLatestByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("cargar registro DTE de factura %d: %w", invoiceID, err)
	}
	if record == nil {
		return nil, fmt.Errorf("factura %d sin registro DTE: %w", invoiceID, domain.ErrNotFound)
	}

	client, err := s.clients.GetByID(ctx, invoice.ClientID)
	if err != nil {
		return nil, fmt.Errorf("cargar cliente %d: %w", invoice.ClientID, err)
	}

	stored := parseStoredDocument(record.RequestPayload)
	sello := extractSelloRecibido(record.ResponsePayload)
	if sello == "" {
		return nil, domain.ErrSinSello
	}

	codigoOriginal := firstNonEmpty(stored.Identificacion.CodigoGeneracion, record.HaciendaUUID, invoice.CodigoGeneracion)
	numeroControl := firstNonEmpty(stored.Identificacion.NumeroControl, record.ControlNumber, invoice.NumeroControl)
	fecEmi := stored.Identificacion.FecEmi
	if fecEmi == "" {
		fecEmi = record.IssueDate.Format("2006-01-02")
	}
	ambiente := firstNonEmpty(stored.Identificacion.Ambiente, s.ambiente)

	tipoAnulacion := req.TipoAnulacion
	if tipoAnulacion == 0 {
		tipoAnulacion = 2
	}
	motivo := req.MotivoAnulacion
	if strings.TrimSpace(motivo) == "" {
		motivo = motivoAnulacionDefault
	}
	solicitante := firstNonEmpty(req.Solicitante, s.emitter.Nombre)

	montoIVA := decimal.Zero
	if stored.Resumen.TotalIva != nil {
		montoIVA = decimal.NewFromFloat(*stored.Resumen.TotalIva)
	}

	now := s.now()
	codigoSolicitud := strings.ToUpper(uuid.New().String())

	payload, err := json.Marshal(invalidationEnvelope{
		Invalidacion: invalidacionDoc{
			Identificacion: invalidacionIdentificacion{
				Version:          2,
				Ambiente:         ambiente,
				CodigoGeneracion: codigoSolicitud,
				FecAnula:         now.Format("2006-01-02"),
				HorAnula:         now.Format("15:04:05"),
			},
			Emisor: invalidacionEmisor{
				NIT:                 s.emitter.NIT,
				Nombre:              s.emitter.Nombre,
				TipoEstablecimiento: s.emitter.TipoEstablecimiento,
				NomEstablecimiento:  firstNonEmpty(s.emitter.NombreComercial, s.emitter.Nombre),
				CodEstableMH:        s.emitter.CodEstableMH,
				CodEstable:          s.emitter.CodEstable,
				CodPuntoVentaMH:     s.emitter.CodPuntoVentaMH,
				CodPuntoVenta:       s.emitter.CodPuntoVenta,
				Telefono:            normalizePhone(s.emitter.Telefono),
				Correo:              s.emitter.Correo,
			},
			Documento: invalidacionDocumento{
				TipoDte:           stored.Identificacion.TipoDte,
				CodigoGeneracion:  codigoOriginal,
				NumeroControl:     numeroControl,
				SelloRecibido:     sello,
				FecEmi:            fecEmi,
				MontoIva:          f2(montoIVA),
				CodigoGeneracionR: nil,
				TipoDocumento:     firstNonEmpty(stored.Receiver.TipoDocumento, "13"),
				NumDocumento:      s.resolveReceiverDoc(stored, client),
				Nombre:            s.resolveReceiverName(stored, client),
				Telefono:          s.resolveReceiverPhone(stored, client),
				Correo:            s.resolveReceiverEmail(stored, client),
			},
			Motivo: invalidacionMotivo{
				TipoAnulacion:     tipoAnulacion,
				MotivoAnulacion:   motivo,
				NombreResponsable: solicitante,
				TipDocResponsable: "36",
				NumDocResponsable: s.emitter.NIT,
				NombreSolicita:    solicitante,
				TipDocSolicita:    "36",
				NumDocSolicita:    s.emitter.NIT,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("serializar invalidación de factura %d: %w", invoiceID, err)
	}

	inv := &entity.DTEInvalidation{
		InvoiceID:                invoice.ID,
		DTERecordID:              record.ID,
		Status:                   entity.InvalidationStatusEnviando,
		CodigoGeneracion:         codigoSolicitud,
		TipoAnulacion:            tipoAnulacion,
		MotivoAnulacion:          motivo,
		SolicitaNombre:           solicitante,
		SolicitaTipoDoc:          "36",
		SolicitaNumDoc:           s.emitter.NIT,
		ResponsableNombre:        solicitante,
		ResponsableTipoDoc:       "36",
		ResponsableNumDoc:        s.emitter.NIT,
		OriginalCodigoGeneracion: codigoOriginal,
		OriginalNumeroControl:    numeroControl,
		OriginalSelloRecibido:    sello,
		OriginalTipoDte:          stored.Identificacion.TipoDte,
		OriginalFecEmi:           fecEmi,
		OriginalMontoIVA:         montoIVA,
		RequestPayload:           payload,
	}
	if err := s.invalidations.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("registrar invalidación de factura %d: %w", invoiceID, err)
	}

	s.log.Info().
		Int64("invoice_id", invoice.ID).
		Str("codigo_generacion", codigoOriginal).
		Str("numero_control", numeroControl).
		Msg("enviando invalidación al puente")

	sentAt := s.now()
	inv.SentAt = &sentAt

	bres, berr := s.bridge.Send(ctx, PathInvalidacion, payload)
	if berr != nil {
		inv.ResponsePayload = mustJSON(map[string]any{
			"success": nil,
			"error":   map[string]string{"type": "network_error", "message": berr.Error()},
		})
		return s.finalize(ctx, invoice, inv, entity.InvalidationStatusPendiente,
			entity.HaciendaSinRespuesta, "network_error", berr.Error(),
			"Sin conexión al puente; vuelva a solicitar la invalidación."), nil
	}

	inv.ResponsePayload = wrapRawBody(bres.Body)

	switch {
	case bres.StatusCode == 401 || bres.StatusCode == 403:
		return s.finalize(ctx, invoice, inv, entity.InvalidationStatusNoAutenticado,
			"NO_AUTENTICADO", fmt.Sprintf("%d", bres.StatusCode),
			fmt.Sprintf("el puente devolvió HTTP %d", bres.StatusCode),
			"No autenticado contra el puente DTE."), nil
	case bres.StatusCode >= 500:
		return s.finalize(ctx, invoice, inv, entity.InvalidationStatusErrorPuente,
			"ERROR_PUENTE", fmt.Sprintf("%d", bres.StatusCode),
			fmt.Sprintf("el puente devolvió HTTP %d", bres.StatusCode),
			"El puente DTE devolvió un error; intente de nuevo."), nil
	case bres.StatusCode >= 400:
		return s.finalize(ctx, invoice, inv, entity.InvalidationStatusRechazado,
			"RECHAZADO", fmt.Sprintf("%d", bres.StatusCode),
			fmt.Sprintf("el puente devolvió HTTP %d", bres.StatusCode),
			"El puente rechazó la solicitud de invalidación."), nil
	}

	interp := Interpret(bres.Body)
	switch interp.Status {
	case entity.RecordStatusAceptado:
		res := s.finalize(ctx, invoice, inv, entity.InvalidationStatusAceptado,
			interp.HaciendaState, "", "",
			"La invalidación fue aceptada por Hacienda.")
		if err := s.invoices.SetDTEStatus(ctx, invoice.ID, entity.DTEStatusInvalidado); err != nil {
			s.log.Error().Err(err).Int64("invoice_id", invoice.ID).
				Msg("no se pudo marcar la factura como INVALIDADA")
		} else {
			invoice.DTEStatus = entity.DTEStatusInvalidado
		}
		return res, nil
	case entity.RecordStatusRechazado:
		return s.finalize(ctx, invoice, inv, entity.InvalidationStatusRechazado,
			interp.HaciendaState, "rechazado", interp.Message,
			"La invalidación fue rechazada por Hacienda."), nil
	default:
		return s.finalize(ctx, invoice, inv, entity.InvalidationStatusPendiente,
			interp.HaciendaState, "", interp.Message,
			"La invalidación quedó en estado pendiente."), nil
	}
}

func (s *InvalidationPipeline) finalize(ctx context.Context, invoice *entity.Invoice, inv *entity.DTEInvalidation, status, haciendaState, errorCode, errorMessage, detail string) *InvalidationResult {
	now := s.now()
	inv.Status = status
	inv.HaciendaState = haciendaState
	inv.ErrorCode = errorCode
	inv.ErrorMessage = errorMessage
	inv.ProcessedAt = &now
	if err := s.invalidations.Finalize(ctx, inv); err != nil {
		s.log.Error().Err(err).Int64("invoice_id", invoice.ID).
			Msg("no se pudo finalizar el registro de invalidación")
	}
	s.log.Info().
		Int64("invoice_id", invoice.ID).
		Str("status", status).
		Str("hacienda_state", haciendaState).
		Msg("invalidación procesada")
	return &InvalidationResult{Invalidation: inv, Status: status, Message: detail}
}

func (s *InvalidationPipeline) resolveReceiverDoc(stored storedDocument, client *entity.Client) string {
	if stored.Receiver.NumDocumento != "" {
		return stored.Receiver.NumDocumento
	}
	if client != nil {
		if doc := firstNonEmpty(client.NIT, client.DUI); doc != "" {
			return doc
		}
	}
	return PlaceholderNumDocumento
}

func (s *InvalidationPipeline) resolveReceiverName(stored storedDocument, client *entity.Client) string {
	if stored.Receiver.Nombre != "" {
		return stored.Receiver.Nombre
	}
	if client != nil {
		if name := client.DisplayName(); name != "" {
			return name
		}
	}
	return "CONSUMIDOR FINAL"
}

func (s *InvalidationPipeline) resolveReceiverPhone(stored storedDocument, client *entity.Client) string {
	if stored.Receiver.Telefono != "" {
		return normalizePhone(stored.Receiver.Telefono)
	}
	if client != nil {
		return normalizePhone(client.Phone)
	}
	return "00000000"
}

func (s *InvalidationPipeline) resolveReceiverEmail(stored storedDocument, client *entity.Client) string {
	if stored.Receiver.Correo != "" {
		return stored.Receiver.Correo
	}
	if client != nil {
		return client.Email
	}
	return ""
}

// ── Formas de lectura tolerante del payload almacenado ──

// storedDocument proyección mínima del JSON guardado en el DTERecord. El
// receptor puede venir como "receptor" (CF/CCF) o "sujetoExcluido" (SX).
type storedDocument struct {
	Identificacion struct {
		Ambiente         string `json:"ambiente"`
		TipoDte          string `json:"tipoDte"`
		CodigoGeneracion string `json:"codigoGeneracion"`
		NumeroControl    string `json:"numeroControl"`
		FecEmi           string `json:"fecEmi"`
	} `json:"identificacion"`
	Resumen struct {
		TotalIva *float64 `json:"totalIva"`
	} `json:"resumen"`
	Receptor       storedReceiver `json:"receptor"`
	SujetoExcluido storedReceiver `json:"sujetoExcluido"`

	Receiver storedReceiver `json:"-"`
}

type storedReceiver struct {
	TipoDocumento string `json:"tipoDocumento"`
	NumDocumento  string `json:"numDocumento"`
	Nombre        string `json:"nombre"`
	Telefono      string `json:"telefono"`
	Correo        string `json:"correo"`
}

type storedEnvelope struct {
	DTE       json.RawMessage `json:"dte"`
	Documento json.RawMessage `json:"documento"`
}

// parseStoredDocument acepta el sobre {"dte": {...}}, {"documento": {...}} o
// el documento a pelo. Nunca falla: devuelve la proyección vacía ante JSON
// irrecuperable.
func parseStoredDocument(raw []byte) storedDocument {
	var doc storedDocument
	if len(raw) == 0 {
		return doc
	}
	var env storedEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return doc
	}
	inner := raw
	if len(env.DTE) > 0 {
		inner = env.DTE
	} else if len(env.Documento) > 0 {
		inner = env.Documento
	}
	_ = json.Unmarshal(inner, &doc)
	if doc.Receptor != (storedReceiver{}) {
		doc.Receiver = doc.Receptor
	} else {
		doc.Receiver = doc.SujetoExcluido
	}
	return doc
}

// extractSelloRecibido busca el sello en la respuesta almacenada del puente,
// con los mismos alias de clave que el intérprete.
func extractSelloRecibido(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var resp bridgeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ""
	}
	if verdict := resp.respuestaHacienda(); verdict != nil {
		return verdict.sello()
	}
	return ""
}

// normalizePhone reduce el teléfono a los últimos 8 dígitos, rellenando con
// ceros a la izquierda si hay menos.
func normalizePhone(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case len(digits) >= 8:
		return digits[len(digits)-8:]
	case len(digits) == 0:
		return "00000000"
	default:
		return strings.Repeat("0", 8-len(digits)) + digits
	}
}

// ── Formas del payload de invalidación ──

type invalidationEnvelope struct {
	Invalidacion invalidacionDoc `json:"invalidacion"`
}

type invalidacionDoc struct {
	Identificacion invalidacionIdentificacion `json:"identificacion"`
	Emisor         invalidacionEmisor         `json:"emisor"`
	Documento      invalidacionDocumento      `json:"documento"`
	Motivo         invalidacionMotivo         `json:"motivo"`
}

type invalidacionIdentificacion struct {
	Version          int    `json:"version"`
	Ambiente         string `json:"ambiente"`
	CodigoGeneracion string `json:"codigoGeneracion"`
	FecAnula         string `json:"fecAnula"`
	HorAnula         string `json:"horAnula"`
}

type invalidacionEmisor struct {
	NIT                 string `json:"nit"`
	Nombre              string `json:"nombre"`
	TipoEstablecimiento string `json:"tipoEstablecimiento"`
	NomEstablecimiento  string `json:"nomEstablecimiento"`
	CodEstableMH        string `json:"codEstableMH"`
	CodEstable          string `json:"codEstable"`
	CodPuntoVentaMH     string `json:"codPuntoVentaMH"`
	CodPuntoVenta       string `json:"codPuntoVenta"`
	Telefono            string `json:"telefono"`
	Correo              string `json:"correo"`
}

type invalidacionDocumento struct {
	TipoDte           string  `json:"tipoDte"`
	CodigoGeneracion  string  `json:"codigoGeneracion"`
	NumeroControl     string  `json:"numeroControl"`
	SelloRecibido     string  `json:"selloRecibido"`
	FecEmi            string  `json:"fecEmi"`
	MontoIva          float64 `json:"montoIva"`
	CodigoGeneracionR *string `json:"codigoGeneracionR"`
	TipoDocumento     string  `json:"tipoDocumento"`
	NumDocumento      string  `json:"numDocumento"`
	Nombre            string  `json:"nombre"`
	Telefono          string  `json:"telefono"`
	Correo            string  `json:"correo"`
}

type invalidacionMotivo struct {
	TipoAnulacion     int    `json:"tipoAnulacion"`
	MotivoAnulacion   string `json:"motivoAnulacion"`
	NombreResponsable string `json:"nombreResponsable"`
	TipDocResponsable string `json:"tipDocResponsable"`
	NumDocResponsable string `json:"numDocResponsable"`
	NombreSolicita    string `json:"nombreSolicita"`
	TipDocSolicita    string `json:"tipDocSolicita"`
	NumDocSolicita    string `json:"numDocSolicita"`
}
