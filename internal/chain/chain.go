// Package chain abstracts the external ledger client used for best-effort
// mirroring. Implementations are selected at construction time; any error
// from any call is treated by the ledger service as "no mirroring".
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"agrichain/internal/domain"
)

// ErrUnavailable is returned when the client has no backend to talk to.
var ErrUnavailable = errors.New("chain client unavailable")

// OnChainRecord is the minimal view of a mirrored record.
type OnChainRecord struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Owner    string `json:"owner,omitempty"`
	TxHash   string `json:"tx_hash"`
	Location string `json:"location,omitempty"`
}

type Client interface {
	// Connect establishes a session and returns the account identifier.
	Connect(ctx context.Context) (string, error)
	// SubmitRecord mirrors a new record and returns the transaction hash.
	SubmitRecord(ctx context.Context, rec domain.ProduceRecord) (string, error)
	// UpdateStatus mirrors a status change and returns the transaction hash.
	UpdateStatus(ctx context.Context, id, status, location string) (string, error)
	GetRecord(ctx context.Context, id string) (OnChainRecord, error)
}

// Mock is the in-process client used when no real chain is configured. It
// produces deterministic pseudo-hashes per id and keeps its own view of the
// mirrored records.
type Mock struct {
	// Fail, when set, makes every call return this error.
	Fail error
	// Delay is applied before each call returns, for exercising bounded
	// waits.
	Delay time.Duration

	mu      sync.Mutex
	account string
	records map[string]OnChainRecord
	nonce   int
}

func NewMock() *Mock {
	return &Mock{
		account: "0xmock-account",
		records: make(map[string]OnChainRecord),
	}
}

func (m *Mock) wait(ctx context.Context) error {
	if m.Fail != nil {
		return m.Fail
	}
	if m.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(m.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mock) hash(seed string) string {
	m.nonce++
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s|%d", seed, m.nonce)))
	return fmt.Sprintf("0x%x", [16]byte(id))
}

func (m *Mock) Connect(ctx context.Context) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	return m.account, nil
}

func (m *Mock) SubmitRecord(ctx context.Context, rec domain.ProduceRecord) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := m.hash(rec.ID)
	m.records[rec.ID] = OnChainRecord{
		ID:       rec.ID,
		Status:   rec.Status,
		Owner:    rec.Owner,
		TxHash:   tx,
		Location: rec.Location,
	}
	return tx, nil
}

func (m *Mock) UpdateStatus(ctx context.Context, id, status, location string) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		rec = OnChainRecord{ID: id}
	}
	rec.Status = status
	rec.Location = location
	rec.TxHash = m.hash(id + "|" + status)
	m.records[id] = rec
	return rec.TxHash, nil
}

func (m *Mock) GetRecord(ctx context.Context, id string) (OnChainRecord, error) {
	if err := m.wait(ctx); err != nil {
		return OnChainRecord{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return OnChainRecord{}, fmt.Errorf("record %s not on chain", id)
	}
	return rec, nil
}
