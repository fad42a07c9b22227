package soap

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfetools/dfesync/internal/core/domain"
)

// TestClient_Post tests a successful round trip.
func TestClient_Post(t *testing.T) {
	var gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte("<ok/>"))
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.Client())
	status, body, err := c.Post(context.Background(), srv.URL, []byte("<env/>"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []byte("<ok/>"), body)
	assert.Equal(t, "application/soap+xml; charset=utf-8", gotContentType)
	assert.Equal(t, []byte("<env/>"), gotBody)
}

// TestClient_Post_ServerError tests that non-2xx responses surface as
// transport errors while still returning the body preview.
func TestClient_Post_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<fault>bad envelope</fault>"))
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.Client())
	status, body, err := c.Post(context.Background(), srv.URL, []byte("<env/>"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(body), "bad envelope")
	assert.Contains(t, err.Error(), "bad envelope")
}

// TestClient_Post_ConnectionRefused tests network-level failure.
func TestClient_Post_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClientWithHTTP(http.DefaultClient)
	_, _, err := c.Post(context.Background(), url, []byte("<env/>"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

// TestClient_Post_ContextCancelled tests cancellation propagation.
func TestClient_Post_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClientWithHTTP(srv.Client())
	_, _, err := c.Post(ctx, srv.URL, []byte("<env/>"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

// TestNewClient_MissingBundle tests the certificate-load error path.
func TestNewClient_MissingBundle(t *testing.T) {
	_, err := NewClient("/does/not/exist.pfx", "secret", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
