package bridge

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garciaflores/facturador-api/internal/application/dte"
	"github.com/garciaflores/facturador-api/pkg/logger"
)

func newTestClient(baseURL string) *Client {
	return New(Config{
		BaseURL:        baseURL,
		Token:          "token-secreto-1234",
		ConnectTimeout: 2 * time.Second,
		ReadTimeout:    2 * time.Second,
	}, logger.Nop())
}

func TestSend_CabecerasYCuerpo(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	res, err := c.Send(context.Background(), dte.PathFactura, []byte(`{"dte":{}}`))
	require.NoError(t, err)

	assert.Equal(t, dte.PathFactura, gotPath)
	assert.Equal(t, "Bearer token-secreto-1234", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, `{"dte":{}}`, string(gotBody))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"success": true}`, string(res.Body))
}

func TestSend_StatusDeErrorSeDevuelveSinInterpretar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(530)
		_, _ = w.Write([]byte("<html>origin unreachable</html>"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	res, err := c.Send(context.Background(), dte.PathFactura, []byte(`{}`))
	require.NoError(t, err, "un status HTTP no es error de red")

	assert.Equal(t, 530, res.StatusCode)
	assert.Contains(t, string(res.Body), "origin unreachable")
}

func TestSend_ErrorDeRed(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")

	res, err := c.Send(context.Background(), dte.PathFactura, []byte(`{}`))
	assert.Error(t, err)
	assert.Nil(t, res)
}

func TestSend_SinBaseURL(t *testing.T) {
	c := New(Config{}, logger.Nop())

	_, err := c.Send(context.Background(), dte.PathFactura, []byte(`{}`))
	assert.ErrorIs(t, err, ErrNoBaseURL)
}

func TestSend_SinTokenNoMandaAuthorization(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, ConnectTimeout: time.Second, ReadTimeout: time.Second}, logger.Nop())
	_, err := c.Send(context.Background(), dte.PathFactura, []byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "(sin token)", maskToken(""))
	assert.Equal(t, "****", maskToken("abc"))
	assert.Equal(t, "****1234", maskToken("token-secreto-1234"))
}
