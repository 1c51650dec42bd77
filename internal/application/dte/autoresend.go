package dte

import (
	"context"
	"time"

	"github.com/garciaflores/facturador-api/internal/domain/entity"
	"github.com/garciaflores/facturador-api/internal/domain/repository"
	"github.com/garciaflores/facturador-api/pkg/logger"
)

// Autoresender reenvía en lote las facturas que quedaron PENDIENTE por caída
// de red o del puente. Cada corrida reserva un lote con SKIP LOCKED, así dos
// workers concurrentes nunca pelean por la misma factura ni se bloquean entre
// sí.
type Autoresender struct {
	invoices repository.InvoiceRepository
	pipeline *Pipeline
	log      *logger.Logger

	batchSize int
	backoff   time.Duration
}

// NewAutoresender construye el worker de reenvío.
func NewAutoresender(invoices repository.InvoiceRepository, pipeline *Pipeline, batchSize int, backoff time.Duration, log *logger.Logger) *Autoresender {
	return &Autoresender{
		invoices:  invoices,
		pipeline:  pipeline,
		log:       log,
		batchSize: batchSize,
		backoff:   backoff,
	}
}

// RunStats resumen de una corrida de reenvío.
type RunStats struct {
	Reserved int
	Accepted int
	Rejected int
	Pending  int
	Errors   int
}

// Run ejecuta una corrida: reserva un lote de facturas pendientes y las
// reenvía una por una. El fallo de una factura no aborta el resto del lote, y
// la bandera dte_is_sending se limpia siempre, incluso ante pánico del envío.
func (a *Autoresender) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats

	invoices, err := a.invoices.ReservePending(ctx, a.batchSize, a.backoff)
	if err != nil {
		return stats, err
	}
	stats.Reserved = len(invoices)
	if len(invoices) == 0 {
		a.log.Debug().Msg("autoreenvío: sin facturas pendientes")
		return stats, nil
	}

	a.log.Info().Int("count", len(invoices)).Msg("autoreenvío: lote reservado")

	for _, inv := range invoices {
		if ctx.Err() != nil {
			// Con el contexto cancelado no tiene sentido seguir enviando,
			// pero las banderas de las facturas restantes sí hay que soltarlas.
			a.releaseRemaining(invoices, inv.ID)
			return stats, ctx.Err()
		}
		a.resendOne(ctx, inv, &stats)
	}

	a.log.Info().
		Int("reserved", stats.Reserved).
		Int("accepted", stats.Accepted).
		Int("rejected", stats.Rejected).
		Int("pending", stats.Pending).
		Int("errors", stats.Errors).
		Msg("autoreenvío: corrida terminada")

	return stats, nil
}

func (a *Autoresender) resendOne(ctx context.Context, inv *entity.Invoice, stats *RunStats) {
	defer func() {
		if err := a.invoices.ClearSending(context.WithoutCancel(ctx), inv.ID); err != nil {
			a.log.Error().Err(err).Int64("invoice_id", inv.ID).
				Msg("autoreenvío: no se pudo limpiar dte_is_sending")
		}
	}()

	res, err := a.pipeline.Send(ctx, inv.ID, SendOptions{
		EnsureIdentifiers: true,
		ForceNowTimestamp: true,
	})
	if err != nil {
		stats.Errors++
		a.log.Error().Err(err).Int64("invoice_id", inv.ID).Msg("autoreenvío: envío falló")
		return
	}

	switch res.Status {
	case entity.DTEStatusAceptado:
		stats.Accepted++
	case entity.DTEStatusRechazado:
		stats.Rejected++
	default:
		stats.Pending++
	}
}

// releaseRemaining suelta las banderas de las facturas a partir de fromID
// inclusive cuando la corrida se corta por cancelación.
func (a *Autoresender) releaseRemaining(invoices []*entity.Invoice, fromID int64) {
	ctx := context.Background()
	releasing := false
	for _, inv := range invoices {
		if inv.ID == fromID {
			releasing = true
		}
		if !releasing {
			continue
		}
		if err := a.invoices.ClearSending(ctx, inv.ID); err != nil {
			a.log.Error().Err(err).Int64("invoice_id", inv.ID).
				Msg("autoreenvío: no se pudo limpiar dte_is_sending")
		}
	}
}
