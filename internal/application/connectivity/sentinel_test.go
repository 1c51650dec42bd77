package connectivity_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garciaflores/facturador-api/internal/application/connectivity"
	"github.com/garciaflores/facturador-api/pkg/logger"
)

// probeServer servidor que responde siempre el mismo código.
func probeServer(t *testing.T, code int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newSentinel(t *testing.T, internetURL, apiURL string) (*connectivity.Sentinel, *connectivity.Status) {
	t.Helper()
	status := connectivity.NewStatus()
	s := connectivity.NewSentinel(connectivity.Config{
		InternetURL: internetURL,
		APIURL:      apiURL,
		Interval:    time.Minute,
		Timeout:     2 * time.Second,
	}, status, logger.Nop())
	return s, status
}

func TestSentinel_TodoArriba(t *testing.T) {
	internet := probeServer(t, http.StatusNoContent)
	api := probeServer(t, http.StatusOK)
	s, status := newSentinel(t, internet.URL, api.URL)

	s.RunOnce(context.Background())

	snap := status.Snapshot()
	assert.True(t, snap.Internet.OK)
	assert.Equal(t, "none", snap.Internet.Reason)
	assert.True(t, snap.API.OK)
	require.NotNil(t, snap.API.LastOK)
	assert.Nil(t, snap.API.LastFail)
}

func TestSentinel_InternetCaidoNoSondeaElPuente(t *testing.T) {
	internet := probeServer(t, http.StatusBadGateway)
	var apiCalls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apiCalls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(api.Close)
	s, status := newSentinel(t, internet.URL, api.URL)

	s.RunOnce(context.Background())

	snap := status.Snapshot()
	assert.False(t, snap.Internet.OK)
	assert.Equal(t, "status_502", snap.Internet.Reason)
	assert.False(t, snap.API.OK)
	assert.Equal(t, "internet_down", snap.API.Reason)
	assert.Zero(t, apiCalls.Load(), "con internet caído no se toca el puente")
}

func TestSentinel_PuenteCaido(t *testing.T) {
	internet := probeServer(t, http.StatusOK)
	api := probeServer(t, http.StatusServiceUnavailable)
	s, status := newSentinel(t, internet.URL, api.URL)

	s.RunOnce(context.Background())

	snap := status.Snapshot()
	assert.True(t, snap.Internet.OK)
	assert.False(t, snap.API.OK)
	assert.Equal(t, "status_503", snap.API.Reason)
	require.NotNil(t, snap.API.LastFail)
}

func TestSentinel_ErrorDeRed(t *testing.T) {
	internet := probeServer(t, http.StatusOK)
	s, status := newSentinel(t, internet.URL, "http://127.0.0.1:1/salud")

	s.RunOnce(context.Background())

	snap := status.Snapshot()
	assert.False(t, snap.API.OK)
	assert.Contains(t, snap.API.Reason, "network_error")
}

func TestSentinel_RecuperacionDisparaCallback(t *testing.T) {
	internet := probeServer(t, http.StatusOK)
	var apiCode atomic.Int32
	apiCode.Store(http.StatusServiceUnavailable)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(apiCode.Load()))
	}))
	t.Cleanup(api.Close)

	s, _ := newSentinel(t, internet.URL, api.URL)
	var fired atomic.Int32
	s.OnAPIRecovered(func() { fired.Add(1) })

	ctx := context.Background()
	s.RunOnce(ctx) // caído
	assert.Zero(t, fired.Load())

	apiCode.Store(http.StatusOK)
	s.RunOnce(ctx) // flanco caído -> arriba
	assert.Equal(t, int32(1), fired.Load())

	s.RunOnce(ctx) // sigue arriba: sin flanco
	assert.Equal(t, int32(1), fired.Load())
}

func TestSentinel_PrimeraRondaArribaNoEsRecuperacion(t *testing.T) {
	internet := probeServer(t, http.StatusOK)
	api := probeServer(t, http.StatusOK)

	s, _ := newSentinel(t, internet.URL, api.URL)
	var fired atomic.Int32
	s.OnAPIRecovered(func() { fired.Add(1) })

	s.RunOnce(context.Background())
	assert.Zero(t, fired.Load(), "arrancar con el puente arriba no es un flanco de recuperación")
}

func TestSentinel_RunSeDetieneConElContexto(t *testing.T) {
	internet := probeServer(t, http.StatusOK)
	api := probeServer(t, http.StatusOK)
	s, _ := newSentinel(t, internet.URL, api.URL)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run no terminó tras cancelar el contexto")
	}
}
