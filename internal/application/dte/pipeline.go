package dte

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garciaflores/facturador-api/internal/domain"
	"github.com/garciaflores/facturador-api/internal/domain/entity"
	"github.com/garciaflores/facturador-api/internal/domain/repository"
	"github.com/garciaflores/facturador-api/pkg/logger"
)

// Pipeline orquesta un intento de transmisión por factura:
//
//	validar -> asignar/reusar identificadores -> construir -> DTERecord ENVIANDO
//	-> puente -> interpretar -> finalizar registro y factura
//
// Un intento siempre termina con el DTERecord en estado terminal y la factura
// actualizada; nunca queda nada en ENVIANDO.
type Pipeline struct {
	invoices  repository.InvoiceRepository
	clients   repository.ClientRepository
	records   repository.DTERecordRepository
	allocator *Allocator
	bridge    BridgeClient
	builder   *Builder
	emitter   entity.Emitter
	log       *logger.Logger
	now       func() time.Time
}

// NewPipeline construye el pipeline con todas sus dependencias.
func NewPipeline(
	invoices repository.InvoiceRepository,
	clients repository.ClientRepository,
	records repository.DTERecordRepository,
	allocator *Allocator,
	bridge BridgeClient,
	builder *Builder,
	emitter entity.Emitter,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		invoices:  invoices,
		clients:   clients,
		records:   records,
		allocator: allocator,
		bridge:    bridge,
		builder:   builder,
		emitter:   emitter,
		log:       log,
		now:       time.Now,
	}
}

// SendOptions parámetros de un intento.
type SendOptions struct {
	// EnsureIdentifiers permite asignar identificadores si faltan aunque no
	// sea el primer intento (lo usa el autoresender). Sin esta bandera, un
	// reenvío sin identificadores es un error de validación.
	EnsureIdentifiers bool
	// ForceNowTimestamp emite el DTE con fecha actual en lugar de la fecha de
	// la factura (reenvíos tardíos).
	ForceNowTimestamp bool
}

// SendResult resultado de un intento. Message es efímero: se muestra al
// usuario pero no se persiste.
type SendResult struct {
	Invoice       *entity.Invoice
	Record        *entity.DTERecord
	Status        string
	Message       string
	PendingOutage bool // true si quedó pendiente por caída de red/puente
}

// Send ejecuta un intento de transmisión para la factura indicada.
//
// Los errores de validación (sin líneas, sin identificadores, estado que no
// es PENDIENTE) se devuelven como error y no tocan nada. A partir de la
// creación del DTERecord todo fallo degrada a PENDIENTE con código
// "unexpected_error": la emisión nunca debe reventar por indisponibilidad
// de Hacienda.
func (p *Pipeline) Send(ctx context.Context, invoiceID int64, opts SendOptions) (res *SendResult, err error) {
	invoice, err := p.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("cargar factura %d: %w", invoiceID, err)
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	if invoice.DTEStatus != entity.DTEStatusPendiente {
		return nil, fmt.Errorf("%w: estado %q", domain.ErrEstadoInvalido, invoice.DTEStatus)
	}

	items, err := p.invoices.GetItems(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("cargar items de factura %d: %w", invoiceID, err)
	}
	if len(items) == 0 {
		return nil, domain.ErrSinItems
	}

	client, err := p.clients.GetByID(ctx, invoice.ClientID)
	if err != nil {
		return nil, fmt.Errorf("cargar cliente %d: %w", invoice.ClientID, err)
	}

	tipoDte, err := TipoDteFor(invoice.DocType)
	if err != nil {
		return nil, err
	}

	now := p.now()

	// Identificadores: se asignan una sola vez y se persisten ANTES de la
	// llamada de red. Un crash a mitad de envío no puede producir dos números
	// distintos para la misma factura.
	if !invoice.HasIdentifiers() {
		if invoice.DTESendAttempts > 0 && !opts.EnsureIdentifiers {
			return nil, domain.ErrSinIdentificadores
		}
		numeroControl, _, aerr := p.allocator.Allocate(ctx, tipoDte, now)
		if aerr != nil {
			return nil, p.failBeforeSend(ctx, invoice, aerr)
		}
		codigoGeneracion := strings.ToUpper(uuid.New().String())
		if serr := p.invoices.SetIdentifiers(ctx, invoice.ID, codigoGeneracion, numeroControl); serr != nil {
			return nil, p.failBeforeSend(ctx, invoice, serr)
		}
		invoice.CodigoGeneracion = codigoGeneracion
		invoice.NumeroControl = numeroControl
	}

	built, err := p.builder.Build(invoice, items, client, BuildOptions{
		Emission:     now,
		ForceNowDate: opts.ForceNowTimestamp,
	})
	if err != nil {
		return nil, p.failBeforeSend(ctx, invoice, err)
	}

	record := &entity.DTERecord{
		InvoiceID:      invoice.ID,
		DTEType:        invoice.DocType,
		Status:         entity.RecordStatusEnviando,
		ControlNumber:  invoice.NumeroControl,
		IssuerNIT:      p.emitter.NIT,
		ReceiverNIT:    built.ReceiverDoc,
		ReceiverName:   built.ReceiverName,
		IssueDate:      invoice.Date,
		TotalAmount:    built.Total,
		RequestPayload: built.Payload,
	}
	if err := p.records.Create(ctx, record); err != nil {
		return nil, p.failBeforeSend(ctx, invoice, err)
	}

	// Rama de último recurso: pase lo que pase de aquí en adelante, el
	// registro no puede quedar en ENVIANDO ni la factura sin actualizar.
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Int64("invoice_id", invoice.ID).
				Msg("pánico durante el envío DTE; se finaliza en PENDIENTE")
			p.finalizePending(ctx, invoice, record, "unexpected_error", fmt.Sprintf("panic: %v", r))
			res = &SendResult{
				Invoice: invoice,
				Record:  record,
				Status:  invoice.DTEStatus,
				Message: "Error inesperado al enviar el DTE; la factura queda pendiente.",
			}
			err = nil
		}
	}()

	p.log.Info().
		Int64("invoice_id", invoice.ID).
		Str("doc_type", invoice.DocType).
		Str("numero_control", invoice.NumeroControl).
		Int("attempt", invoice.DTESendAttempts+1).
		Msg("enviando DTE al puente")

	bres, berr := p.bridge.Send(ctx, PathFactura, built.Payload)
	if berr != nil || IsOfflineStatus(bres.StatusCode) {
		errorCode := "network_error"
		detail := ""
		if berr != nil {
			detail = berr.Error()
		} else {
			errorCode = strconv.Itoa(bres.StatusCode)
			detail = fmt.Sprintf("el puente devolvió HTTP %d", bres.StatusCode)
			record.ResponsePayload = wrapRawBody(bres.Body)
		}
		if record.ResponsePayload == nil {
			record.ResponsePayload = mustJSON(map[string]string{"error": detail})
		}
		p.finalizePending(ctx, invoice, record, errorCode, detail)
		p.log.Warn().
			Int64("invoice_id", invoice.ID).
			Str("error_code", errorCode).
			Msg("puente inalcanzable; factura pendiente para autoreenvío")
		return &SendResult{
			Invoice:       invoice,
			Record:        record,
			Status:        invoice.DTEStatus,
			Message:       "Sin conexión con Hacienda; la factura queda pendiente y se reenviará automáticamente.",
			PendingOutage: true,
		}, nil
	}

	interp := Interpret(bres.Body)

	record.Status = interp.Status
	record.HaciendaState = interp.HaciendaState
	record.HaciendaUUID = interp.HaciendaUUID
	record.ResponsePayload = wrapRawBody(bres.Body)
	if ferr := p.records.Finalize(ctx, record); ferr != nil {
		p.log.Error().Err(ferr).Int64("invoice_id", invoice.ID).Msg("no se pudo finalizar DTERecord")
	}

	invoice.DTESendAttempts++
	invoice.LastDTESentAt = &now
	switch interp.Status {
	case entity.RecordStatusAceptado:
		invoice.DTEStatus = entity.DTEStatusAceptado
		invoice.LastDTEError = ""
		invoice.LastDTEErrorCode = ""
		if seq, ok := sequenceFromControlNumber(invoice.NumeroControl); ok {
			if werr := p.allocator.MarkProcessed(ctx, tipoDte, now, seq); werr != nil {
				p.log.Warn().Err(werr).Int64("invoice_id", invoice.ID).
					Msg("no se pudo avanzar la marca de agua del contador")
			}
		}
	case entity.RecordStatusRechazado:
		invoice.DTEStatus = entity.DTEStatusRechazado
		invoice.LastDTEError = interp.Message
		invoice.LastDTEErrorCode = "rechazado"
	default:
		invoice.LastDTEError = interp.Message
		invoice.LastDTEErrorCode = ""
	}
	if uerr := p.invoices.UpdateDTEResult(ctx, invoice); uerr != nil {
		p.log.Error().Err(uerr).Int64("invoice_id", invoice.ID).Msg("no se pudo actualizar la factura")
	}

	p.log.Info().
		Int64("invoice_id", invoice.ID).
		Str("status", interp.Status).
		Str("hacienda_state", interp.HaciendaState).
		Msg("DTE procesado")

	return &SendResult{
		Invoice: invoice,
		Record:  record,
		Status:  invoice.DTEStatus,
		Message: interp.Message,
	}, nil
}

// failBeforeSend registra un fallo previo a la llamada de red: la factura
// queda PENDIENTE con código unexpected_error y el error se propaga.
func (p *Pipeline) failBeforeSend(ctx context.Context, invoice *entity.Invoice, cause error) error {
	invoice.LastDTEError = cause.Error()
	invoice.LastDTEErrorCode = "unexpected_error"
	if err := p.invoices.UpdateDTEResult(ctx, invoice); err != nil {
		p.log.Error().Err(err).Int64("invoice_id", invoice.ID).
			Msg("no se pudo registrar el error previo al envío")
	}
	return fmt.Errorf("preparar envío DTE de factura %d: %w", invoice.ID, cause)
}

// finalizePending cierra registro y factura en PENDIENTE (caída de red,
// puente caído o error inesperado).
func (p *Pipeline) finalizePending(ctx context.Context, invoice *entity.Invoice, record *entity.DTERecord, errorCode, detail string) {
	record.Status = entity.RecordStatusPendiente
	record.HaciendaState = entity.HaciendaSinRespuesta
	if record.ResponsePayload == nil {
		record.ResponsePayload = mustJSON(map[string]string{"error": detail})
	}
	if err := p.records.Finalize(ctx, record); err != nil {
		p.log.Error().Err(err).Int64("invoice_id", invoice.ID).Msg("no se pudo finalizar DTERecord")
	}

	now := p.now()
	invoice.DTEStatus = entity.DTEStatusPendiente
	invoice.DTESendAttempts++
	invoice.LastDTESentAt = &now
	invoice.LastDTEError = detail
	invoice.LastDTEErrorCode = errorCode
	if err := p.invoices.UpdateDTEResult(ctx, invoice); err != nil {
		p.log.Error().Err(err).Int64("invoice_id", invoice.ID).Msg("no se pudo actualizar la factura")
	}
}

// wrapRawBody conserva el cuerpo tal cual si es JSON válido; si no, lo
// envuelve como texto para que el registro siga siendo un JSON almacenable.
func wrapRawBody(body []byte) []byte {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return body
	}
	return mustJSON(map[string]string{"raw_text": string(body)})
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"error":"marshal"}`)
	}
	return b
}

// sequenceFromControlNumber extrae la secuencia de 15 dígitos del número de
// control (el tramo tras el último guion).
func sequenceFromControlNumber(numeroControl string) (int64, bool) {
	idx := strings.LastIndexByte(numeroControl, '-')
	if idx < 0 || idx == len(numeroControl)-1 {
		return 0, false
	}
	seq, err := strconv.ParseInt(numeroControl[idx+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}
