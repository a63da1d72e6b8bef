package domain

// Produce status vocabulary. The set is closed; transitions outside the
// table in store.EnsureTransition are rejected.
const (
	StatusHarvested         = "Harvested"
	StatusPackaged          = "Packaged"
	StatusInTransit         = "In Transit"
	StatusDelivered         = "Delivered"
	StatusPaidAndRegistered = "Paid and Registered"
	StatusSold              = "Sold"
)

// Statuses lists every known produce status.
var Statuses = []string{
	StatusHarvested,
	StatusPackaged,
	StatusInTransit,
	StatusDelivered,
	StatusPaidAndRegistered,
	StatusSold,
}

// KnownStatus reports whether s belongs to the closed vocabulary.
func KnownStatus(s string) bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Payment settlement states.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

type ProduceRecord struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Farmer       string         `json:"farmer"`
	Location     string         `json:"location"`
	Quality      string         `json:"quality,omitempty" enum:"Premium,Standard,Basic"`
	Unit         string         `json:"unit,omitempty"`
	HarvestDate  string         `json:"harvest_date,omitempty" format:"date"`
	Price        float64        `json:"price"`
	Quantity     float64        `json:"quantity"`
	Status       string         `json:"status"`
	Owner        string         `json:"owner,omitempty"`
	ExternalHash string         `json:"external_hash,omitempty"`
	ImageRef     string         `json:"image_ref,omitempty"`
	PriceRef     string         `json:"price_ref,omitempty"`
	History      []HistoryEntry `json:"history"`
	CreatedAt    string         `json:"created_at" format:"date-time"`
}

// Clone returns a deep copy; History is the only reference field.
func (p ProduceRecord) Clone() ProduceRecord {
	out := p
	out.History = make([]HistoryEntry, len(p.History))
	copy(out.History, p.History)
	return out
}

// HistoryEntry is immutable once appended to a record's history.
type HistoryEntry struct {
	Action    string `json:"action"`
	Timestamp string `json:"timestamp" format:"date-time"`
	Location  string `json:"location,omitempty"`
	Details   string `json:"details,omitempty"`
}

type PaymentRecord struct {
	ID              string        `json:"id"`
	OrderID         string        `json:"order_id"`
	Amount          float64       `json:"amount"`
	Currency        string        `json:"currency"`
	Status          string        `json:"status" enum:"pending,completed,failed"`
	Timestamp       string        `json:"timestamp" format:"date-time"`
	ProduceSnapshot ProduceRecord `json:"produce_snapshot"`
	ExternalHash    string        `json:"external_hash,omitempty"`
	BuyerID         string        `json:"buyer_id,omitempty"`
	// LedgerApplied is false when the gateway captured the payment but the
	// ledger mutation failed, so a human can reconcile manually.
	LedgerApplied bool `json:"ledger_applied"`
}

// Order is the chargeable unit quoted to the payment gateway. Amount is the
// fee-inclusive total, not the base price.
type Order struct {
	ID       string            `json:"id"`
	Amount   float64           `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Event is one row of the append-only operation journal.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
