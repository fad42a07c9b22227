// Package soap provides the HTTP transport for the distribution
// service, authenticated with an A1 client certificate (PKCS#12
// bundle). The core never sees TLS mechanics; it posts bytes and
// receives bytes through the driven.Transport port.
package soap

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	pkcs12 "software.sslmate.com/src/go-pkcs12"

	"github.com/nfetools/dfesync/internal/core/domain"
	"github.com/nfetools/dfesync/internal/core/ports/driven"
	"github.com/nfetools/dfesync/internal/logger"
)

// DefaultTimeout bounds one distribution query round trip.
const DefaultTimeout = 60 * time.Second

// bodyPreviewLimit caps how much of an error body is quoted in logs.
const bodyPreviewLimit = 4000

// Ensure Client implements the transport port.
var _ driven.Transport = (*Client)(nil)

// Client posts SOAP 1.2 envelopes over mutual TLS.
type Client struct {
	http *http.Client
}

// NewClient loads the PKCS#12 bundle at pfxPath and builds a client
// that presents it on every connection.
func NewClient(pfxPath, passphrase string, timeout time.Duration) (*Client, error) {
	data, err := os.ReadFile(pfxPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: certificate bundle %s", domain.ErrNotFound, pfxPath)
		}
		return nil, fmt.Errorf("reading certificate bundle: %w", err)
	}

	key, cert, caCerts, err := pkcs12.DecodeChain(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decoding certificate bundle: %w", err)
	}

	tlsCert := tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}
	for _, ca := range caCerts {
		tlsCert.Certificate = append(tlsCert.Certificate, ca.Raw)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					Certificates: []tls.Certificate{tlsCert},
					MinVersion:   tls.VersionTLS12,
				},
			},
		},
	}, nil
}

// NewClientWithHTTP wraps an existing HTTP client. Used by tests and
// by deployments that manage TLS externally.
func NewClientWithHTTP(h *http.Client) *Client {
	return &Client{http: h}
}

// Post sends a SOAP 1.2 envelope and returns the status and body.
// Non-2xx statuses return the body alongside a transport error so the
// caller can log a fault preview.
func (c *Client) Post(ctx context.Context, url string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: building request: %v", domain.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("Connection", "keep-alive")

	logger.Debug("POST %s (%d bytes)", url, len(body))

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: reading response: %v", domain.ErrTransport, err)
	}

	logger.Debug("HTTP %d (%d bytes)", resp.StatusCode, len(respBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, respBody, fmt.Errorf("%w: HTTP %d from %s: %s",
			domain.ErrTransport, resp.StatusCode, url, preview(respBody))
	}
	return resp.StatusCode, respBody, nil
}

func preview(body []byte) string {
	s := string(bytes.TrimSpace(body))
	if len(s) > bodyPreviewLimit {
		return s[:bodyPreviewLimit]
	}
	return s
}
