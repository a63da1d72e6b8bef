package agrichainsdk

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

	"agrichain/internal/chain"
	"agrichain/internal/domain"
)

// Client is a minimal Agrichain HTTP API client.
type Client struct {
	BaseURL string
	// BasePath must match the server's base_path. Empty means "v0".
	BasePath    string
	BearerToken string
	ActorID     string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

func (c *Client) endpoint(p string) string {
	base := strings.Trim(c.BasePath, "/")
	if base == "" {
		base = "v0"
	}
	return base + "/" + p
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// RegisterProduceInput are the fields for a new produce record.
type RegisterProduceInput struct {
	Name        string  `json:"name"`
	Farmer      string  `json:"farmer"`
	Location    string  `json:"location"`
	Quality     string  `json:"quality,omitempty"`
	Unit        string  `json:"unit,omitempty"`
	HarvestDate string  `json:"harvest_date,omitempty"`
	Price       float64 `json:"price"`
	Quantity    float64 `json:"quantity"`
}

// PayResult is the outcome of a pay call.
type PayResult struct {
	Order     domain.Order         `json:"order"`
	Payment   domain.PaymentRecord `json:"payment"`
	Dismissed bool                 `json:"dismissed"`
}

// FeeQuote is a fee breakdown for a base amount.
type FeeQuote struct {
	BaseAmount    float64 `json:"base_amount"`
	ProcessingFee float64 `json:"processing_fee"`
	GST           float64 `json:"gst"`
	TotalAmount   float64 `json:"total_amount"`
}

// RegisterProduce creates a produce record.
func (c *Client) RegisterProduce(ctx context.Context, in RegisterProduceInput) (domain.ProduceRecord, error) {
	var resp domain.ProduceRecord
	err := c.do(ctx, http.MethodPost, c.endpoint("produce"), in, &resp)
	return resp, err
}

// ListProduce returns all records, optionally filtered by status.
func (c *Client) ListProduce(ctx context.Context, status string) ([]domain.ProduceRecord, error) {
	endpoint := c.endpoint("produce")
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp []domain.ProduceRecord
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// GetProduce fetches one record by id.
func (c *Client) GetProduce(ctx context.Context, id string) (domain.ProduceRecord, error) {
	var resp domain.ProduceRecord
	err := c.do(ctx, http.MethodGet, c.endpoint("produce/"+url.PathEscape(id)), nil, &resp)
	return resp, err
}

// UpdateStatus moves a record along the supply chain.
func (c *Client) UpdateStatus(ctx context.Context, id, status, location, details string) (domain.ProduceRecord, error) {
	body := map[string]any{
		"status":   status,
		"location": location,
		"details":  details,
	}
	var resp domain.ProduceRecord
	err := c.do(ctx, http.MethodPatch, c.endpoint("produce/"+url.PathEscape(id)+"/status"), body, &resp)
	return resp, err
}

// GetMirror returns the chain's view of a record.
func (c *Client) GetMirror(ctx context.Context, id string) (chain.OnChainRecord, error) {
	var resp chain.OnChainRecord
	err := c.do(ctx, http.MethodGet, c.endpoint("produce/"+url.PathEscape(id)+"/mirror"), nil, &resp)
	return resp, err
}

// GetHistory returns a record's status history. Unknown ids read as empty.
func (c *Client) GetHistory(ctx context.Context, id string) ([]domain.HistoryEntry, error) {
	var resp []domain.HistoryEntry
	err := c.do(ctx, http.MethodGet, c.endpoint("produce/"+url.PathEscape(id)+"/history"), nil, &resp)
	return resp, err
}

// Pay charges the fee-inclusive total for a record.
func (c *Client) Pay(ctx context.Context, id, buyerID string) (PayResult, error) {
	body := map[string]any{"buyer_id": buyerID}
	var resp PayResult
	err := c.do(ctx, http.MethodPost, c.endpoint("produce/"+url.PathEscape(id)+"/pay"), body, &resp)
	return resp, err
}

// QuoteFees returns the fee breakdown for a base amount.
func (c *Client) QuoteFees(ctx context.Context, amount float64) (FeeQuote, error) {
	var resp FeeQuote
	err := c.do(ctx, http.MethodPost, c.endpoint("fees/quote"), map[string]any{"amount": amount}, &resp)
	return resp, err
}

// ListPayments returns payment history, optionally scoped to a buyer or item.
func (c *Client) ListPayments(ctx context.Context, itemID, buyerID string) ([]domain.PaymentRecord, error) {
	endpoint := c.endpoint("payments")
	q := url.Values{}
	if itemID != "" {
		q.Set("item_id", itemID)
	}
	if buyerID != "" {
		q.Set("buyer_id", buyerID)
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []domain.PaymentRecord
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Events returns recent ledger events.
func (c *Client) Events(ctx context.Context, limit int) ([]domain.Event, error) {
	endpoint := c.endpoint("events")
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []domain.Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	} else if c.ActorID != "" {
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
