package connectivity

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/garciaflores/facturador-api/pkg/logger"
)

// Config parámetros del sentinel.
type Config struct {
	InternetURL string
	APIURL      string
	Interval    time.Duration
	Timeout     time.Duration
}

// Sentinel sondea periódicamente el acceso a internet y al puente DTE, y
// publica el resultado en un Status compartido. Si internet está caído ni
// siquiera intenta el puente: se marca caído con razón "internet_down", que
// distingue "no hay red" de "el puente no responde".
//
// Cuando el puente pasa de caído a arriba dispara el callback OnAPIRecovered
// una vez por flanco, para que el autoreenvío corra inmediatamente en lugar
// de esperar su próximo tick.
type Sentinel struct {
	cfg    Config
	status *Status
	client *http.Client
	log    *logger.Logger

	onAPIRecovered func()
	now            func() time.Time
}

// NewSentinel construye el sentinel. No arranca nada: llamar Run.
func NewSentinel(cfg Config, status *Status, log *logger.Logger) *Sentinel {
	return &Sentinel{
		cfg:    cfg,
		status: status,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
		now:    time.Now,
	}
}

// OnAPIRecovered registra el callback de recuperación del puente. Debe
// llamarse antes de Run.
func (s *Sentinel) OnAPIRecovered(fn func()) {
	s.onAPIRecovered = fn
}

// Run ejecuta una ronda inmediata y luego sondea hasta que el contexto se
// cancele. El intervalo lleva un jitter de hasta 10% para que varias
// instancias no sincronicen sus sondas.
func (s *Sentinel) Run(ctx context.Context) {
	s.RunOnce(ctx)
	for {
		jitter := time.Duration(rand.Int63n(int64(s.cfg.Interval)/10 + 1))
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.Interval + jitter):
			s.RunOnce(ctx)
		}
	}
}

// RunOnce ejecuta una ronda de sondeo: primero internet, luego el puente.
func (s *Sentinel) RunOnce(ctx context.Context) {
	now := s.now()

	internetOK, reason := s.probe(ctx, s.cfg.InternetURL, func(code int) bool {
		return code == http.StatusOK || code == http.StatusNoContent
	})
	s.status.markInternet(internetOK, reason, now)

	if !internetOK {
		s.status.markAPI(false, "internet_down", now)
		s.log.Warn().Str("reason", reason).Msg("sin acceso a internet; puente marcado caído")
		return
	}

	apiOK, reason := s.probe(ctx, s.cfg.APIURL, func(code int) bool {
		return code == http.StatusOK
	})
	recovered := s.status.markAPI(apiOK, reason, now)

	if !apiOK {
		s.log.Warn().Str("reason", reason).Msg("puente DTE inalcanzable")
		return
	}
	if recovered {
		s.log.Info().Msg("puente DTE recuperado")
		if s.onAPIRecovered != nil {
			s.onAPIRecovered()
		}
	}
}

// probe hace GET a la URL y clasifica. Devuelve razón "none" cuando ok, o
// "status_<código>" / "network_error: <detalle>" cuando no.
func (s *Sentinel) probe(ctx context.Context, url string, accept func(int) bool) (bool, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Sprintf("network_error: %v", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Sprintf("network_error: %v", err)
	}
	defer resp.Body.Close()
	if accept(resp.StatusCode) {
		return true, "none"
	}
	return false, fmt.Sprintf("status_%d", resp.StatusCode)
}
