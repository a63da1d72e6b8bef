package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"agrichain/internal/domain"
)

// HTTPClient talks to a remote chain gateway over JSON. The gateway surface
// is deliberately small: submit, update status, get.
type HTTPClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{BaseURL: baseURL, Timeout: 10 * time.Second}
}

func (c *HTTPClient) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (c *HTTPClient) do(ctx context.Context, method, p string, body, out any) error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrUnavailable
	}
	u, err := url.JoinPath(c.BaseURL, p)
	if err != nil {
		return err
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	res, err := c.client().Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("chain gateway status %d: %s", res.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

type txResponse struct {
	TxHash  string `json:"tx_hash"`
	Account string `json:"account,omitempty"`
}

func (c *HTTPClient) Connect(ctx context.Context) (string, error) {
	var out txResponse
	if err := c.do(ctx, http.MethodPost, "/connect", nil, &out); err != nil {
		return "", err
	}
	return out.Account, nil
}

func (c *HTTPClient) SubmitRecord(ctx context.Context, rec domain.ProduceRecord) (string, error) {
	var out txResponse
	if err := c.do(ctx, http.MethodPost, "/records", rec, &out); err != nil {
		return "", err
	}
	return out.TxHash, nil
}

func (c *HTTPClient) UpdateStatus(ctx context.Context, id, status, location string) (string, error) {
	body := map[string]string{"status": status, "location": location}
	var out txResponse
	if err := c.do(ctx, http.MethodPatch, "/records/"+url.PathEscape(id)+"/status", body, &out); err != nil {
		return "", err
	}
	return out.TxHash, nil
}

func (c *HTTPClient) GetRecord(ctx context.Context, id string) (OnChainRecord, error) {
	var out OnChainRecord
	if err := c.do(ctx, http.MethodGet, "/records/"+url.PathEscape(id), nil, &out); err != nil {
		return OnChainRecord{}, err
	}
	return out, nil
}
