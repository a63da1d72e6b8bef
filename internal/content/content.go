// Package content abstracts the external blob storage used for produce
// images and price commitments. Put failures never propagate past the
// ledger; callers fall back to PlaceholderRef.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PlaceholderRef is the sentinel reference used when the storage gateway is
// unreachable.
const PlaceholderRef = "ref:unavailable"

type Store interface {
	// Put stores the blob and returns an opaque content reference.
	Put(ctx context.Context, blob []byte) (string, error)
}

// Mock keeps blobs in memory and hands out deterministic refs.
type Mock struct {
	// Fail, when set, makes Put return this error.
	Fail  error
	blobs map[string][]byte
}

func NewMock() *Mock {
	return &Mock{blobs: make(map[string][]byte)}
}

func (m *Mock) Put(_ context.Context, blob []byte) (string, error) {
	if m.Fail != nil {
		return "", m.Fail
	}
	ref := fmt.Sprintf("ref:%x", [16]byte(uuid.NewSHA1(uuid.NameSpaceOID, blob)))
	m.blobs[ref] = blob
	return ref, nil
}

// Get returns a stored blob; used by tests and the demo flow.
func (m *Mock) Get(ref string) ([]byte, bool) {
	b, ok := m.blobs[ref]
	return b, ok
}

// HTTPGateway posts blobs to a remote content gateway.
type HTTPGateway struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{BaseURL: baseURL, Timeout: 10 * time.Second}
}

func (g *HTTPGateway) Put(ctx context.Context, blob []byte) (string, error) {
	if strings.TrimSpace(g.BaseURL) == "" {
		return "", fmt.Errorf("content gateway not configured")
	}
	client := g.HTTPClient
	if client == nil {
		timeout := g.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(g.BaseURL, "/")+"/blobs", bytes.NewReader(blob))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	res, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", fmt.Errorf("content gateway status %d: %s", res.StatusCode, strings.TrimSpace(string(data)))
	}
	var out struct {
		Ref string `json:"ref"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Ref == "" {
		return "", fmt.Errorf("content gateway returned empty ref")
	}
	return out.Ref, nil
}
