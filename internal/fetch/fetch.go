// Package fetch resolves a URL to the byte stream of the full artifact.
// It is the engine's download boundary; nothing here is trusted until the
// checksum verifier has passed the bytes.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Downloader produces the byte stream behind a URL.
type Downloader interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// HTTP downloads over plain GET requests. No range requests: a failed
// download simply never gets promoted out of the temp file.
type HTTP struct {
	Client *http.Client
}

// NewHTTP returns a downloader with a generous timeout suited to large
// release artifacts.
func NewHTTP(client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	return &HTTP{Client: client}
}

func (h *HTTP) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("DL_REQUEST: %w", err)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("DL_FETCH: %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("DL_FETCH: %s: status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}
