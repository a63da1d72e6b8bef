package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"agrichain/internal/domain"
	"agrichain/internal/kv"
)

// HistoryKey is the kv key holding the serialized payment history.
const HistoryKey = "payment_history"

// History is the append-only payment record store. The full sequence is
// written to the kv store after every append and rehydrated on open; a
// corrupt payload is treated as an empty history, not a fatal error.
type History struct {
	mu      sync.Mutex
	kv      *kv.Store
	log     *slog.Logger
	records []domain.PaymentRecord
}

// OpenHistory rehydrates the history from the kv store. A nil kv store
// yields a purely in-memory history.
func OpenHistory(ctx context.Context, kvs *kv.Store, log *slog.Logger) (*History, error) {
	if log == nil {
		log = slog.Default()
	}
	h := &History{kv: kvs, log: log}
	if kvs == nil {
		return h, nil
	}
	raw, ok, err := kvs.GetItem(ctx, HistoryKey)
	if err != nil {
		return nil, fmt.Errorf("load payment history: %w", err)
	}
	if !ok {
		return h, nil
	}
	var records []domain.PaymentRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		log.Warn("payment history corrupt, starting empty", "error", err)
		return h, nil
	}
	h.records = records
	return h, nil
}

// Append stores the record and persists the full sequence.
func (h *History) Append(ctx context.Context, rec domain.PaymentRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	if h.kv == nil {
		return nil
	}
	data, err := json.Marshal(h.records)
	if err != nil {
		return fmt.Errorf("marshal payment history: %w", err)
	}
	if err := h.kv.SetItem(ctx, HistoryKey, string(data)); err != nil {
		return fmt.Errorf("persist payment history: %w", err)
	}
	return nil
}

// All returns the full history in append order.
func (h *History) All() []domain.PaymentRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.PaymentRecord, len(h.records))
	copy(out, h.records)
	return out
}

// ByItem filters to payments whose snapshot is the given produce id.
func (h *History) ByItem(id string) []domain.PaymentRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.PaymentRecord
	for _, rec := range h.records {
		if rec.ProduceSnapshot.ID == id {
			out = append(out, rec)
		}
	}
	return out
}

// ByBuyer filters to payments made by the given buyer.
func (h *History) ByBuyer(buyerID string) []domain.PaymentRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.PaymentRecord
	for _, rec := range h.records {
		if rec.BuyerID == buyerID {
			out = append(out, rec)
		}
	}
	return out
}
