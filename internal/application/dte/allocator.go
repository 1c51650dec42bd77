package dte

import (
	"context"
	"fmt"
	"time"

	"github.com/garciaflores/facturador-api/internal/domain"
	"github.com/garciaflores/facturador-api/internal/domain/entity"
	"github.com/garciaflores/facturador-api/internal/domain/repository"
)

// Allocator reparte números de control secuenciales por clave
// (ambiente, tipoDte, año, establecimiento, punto de venta). La sección
// crítica vive en el repositorio: un solo statement con upsert que incrementa
// y devuelve, de modo que dos llamadas concurrentes nunca reciben el mismo
// número. Los huecos por envíos rechazados no se compactan jamás.
type Allocator struct {
	counters repository.ControlCounterRepository
	emitter  entity.Emitter
	ambiente string
}

// NewAllocator construye el asignador.
func NewAllocator(counters repository.ControlCounterRepository, emitter entity.Emitter, ambiente string) *Allocator {
	return &Allocator{counters: counters, emitter: emitter, ambiente: ambiente}
}

func (a *Allocator) key(tipoDte string, year int) entity.ControlCounterKey {
	return entity.ControlCounterKey{
		Ambiente:    a.ambiente,
		TipoDte:     tipoDte,
		AnioEmision: year,
		EstCode:     a.emitter.CodEstable,
		PvCode:      a.emitter.CodPuntoVenta,
	}
}

// Allocate emite el siguiente número de control para el tipo de documento y
// lo devuelve formateado: DTE-{tipo}-{est}{pv}-{secuencia de 15 dígitos}.
func (a *Allocator) Allocate(ctx context.Context, tipoDte string, emission time.Time) (string, int64, error) {
	seq, err := a.counters.NextNumber(ctx, a.key(tipoDte, emission.Year()))
	if err != nil {
		return "", 0, fmt.Errorf("asignar numero de control: %w", err)
	}
	return FormatControlNumber(tipoDte, a.emitter.CodEstable, a.emitter.CodPuntoVenta, seq), seq, nil
}

// MarkProcessed avanza la marca de agua de números aceptados. Best effort:
// un fallo aquí no invalida el envío, solo se reporta al caller.
func (a *Allocator) MarkProcessed(ctx context.Context, tipoDte string, emission time.Time, seq int64) error {
	return a.counters.MarkProcessed(ctx, a.key(tipoDte, emission.Year()), seq)
}

// FormatControlNumber arma el número de control estructurado que exige
// Hacienda, con la secuencia en 15 dígitos rellenados con ceros.
func FormatControlNumber(tipoDte, est, pv string, seq int64) string {
	return fmt.Sprintf("DTE-%s-%s%s-%015d", tipoDte, est, pv, seq)
}

// TipoDteFor mapea el tipo de documento interno al código de Hacienda.
func TipoDteFor(docType string) (string, error) {
	switch docType {
	case entity.DocTypeCF:
		return TipoDteCF, nil
	case entity.DocTypeCCF:
		return TipoDteCCF, nil
	case entity.DocTypeSX:
		return TipoDteSX, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrTipoDocumentoInvalido, docType)
	}
}
