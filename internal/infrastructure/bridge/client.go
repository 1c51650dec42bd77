package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/garciaflores/facturador-api/internal/application/dte"
	"github.com/garciaflores/facturador-api/pkg/logger"
)

// maxResponseBody límite de lectura del cuerpo de respuesta del puente.
const maxResponseBody = 1 << 20 // 1 MiB

// Config del cliente del puente DTE.
type Config struct {
	BaseURL        string // sin path del API; los paths llegan por llamada
	Token          string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// Client cliente HTTP del puente DTE. Una llamada por envío, sin reintentos:
// la resiliencia vive en el autoreenvío, no aquí. Devuelve el status y el
// cuerpo crudos; la interpretación es de la capa de aplicación.
type Client struct {
	cfg    Config
	client *http.Client
	log    *logger.Logger
}

// New construye el cliente con timeouts separados de conexión y lectura.
func New(cfg Config, log *logger.Logger) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
	}
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.ConnectTimeout + cfg.ReadTimeout,
		},
		log: log,
	}
}

var _ dte.BridgeClient = (*Client)(nil)

// ErrNoBaseURL indica que DTE_BASE_URL no está configurada.
var ErrNoBaseURL = errors.New("DTE_BASE_URL no configurada")

// Send hace POST del payload JSON al path indicado del puente. Error no nil
// significa fallo de red; un status HTTP cualquiera (incluso 5xx) se devuelve
// al caller sin interpretar.
func (c *Client) Send(ctx context.Context, path string, payload []byte) (*dte.BridgeResult, error) {
	if c.cfg.BaseURL == "" {
		return nil, ErrNoBaseURL
	}
	url := c.cfg.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("armar request al puente: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	c.log.Debug().
		Str("url", url).
		Str("authorization", maskToken(c.cfg.Token)).
		Int("payload_bytes", len(payload)).
		Msg("POST al puente DTE")

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("url", url).
			Dur("elapsed", time.Since(started)).
			Msg("fallo de red contra el puente DTE")
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("leer respuesta del puente: %w", err)
	}

	c.log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Int("body_bytes", len(body)).
		Dur("elapsed", time.Since(started)).
		Msg("respuesta del puente DTE")

	return &dte.BridgeResult{StatusCode: resp.StatusCode, Body: body}, nil
}

// maskToken deja visibles solo los últimos 4 caracteres del token. Los
// secretos nunca se loguean completos.
func maskToken(token string) string {
	if token == "" {
		return "(sin token)"
	}
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
