package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"agrichain/internal/domain"
)

// ErrNotFound is returned for lookups of unknown produce ids.
var ErrNotFound = errors.New("not found")

// ValidationError reports a bad field on record creation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidTransitionError reports an illegal status edge.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// Store is the in-memory produce table. Records never leave it; every read
// returns a copy so callers cannot mutate history behind its back. A single
// mutex serializes mutations, which keeps per-record history ordering intact
// when the store is shared with the HTTP server.
type Store struct {
	mu    sync.Mutex
	Now   func() time.Time
	items map[string]*domain.ProduceRecord
	order []string
}

func New() *Store {
	return &Store{
		Now:   time.Now,
		items: make(map[string]*domain.ProduceRecord),
	}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateFields are the caller-supplied fields for a new record.
type CreateFields struct {
	Name        string
	Farmer      string
	Location    string
	Quality     string
	Unit        string
	HarvestDate string
	Price       float64
	Quantity    float64
}

// Validate checks the fields the way Create does, so callers can reject bad
// input before any side effects.
func (f CreateFields) Validate() error {
	if f.Name == "" {
		return ValidationError{Field: "name", Reason: "required"}
	}
	if f.Farmer == "" {
		return ValidationError{Field: "farmer", Reason: "required"}
	}
	if f.Location == "" {
		return ValidationError{Field: "location", Reason: "required"}
	}
	if f.Price < 0 {
		return ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if f.Quantity < 0 {
		return ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	return nil
}

// Create inserts a new record with status Harvested and a single history
// entry. The id is never reassigned afterwards.
func (s *Store) Create(fields CreateFields) (domain.ProduceRecord, error) {
	if err := fields.Validate(); err != nil {
		return domain.ProduceRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC().Format(time.RFC3339)
	unit := fields.Unit
	if unit == "" {
		unit = "kg"
	}
	rec := &domain.ProduceRecord{
		ID:          uuid.New().String(),
		Name:        fields.Name,
		Farmer:      fields.Farmer,
		Location:    fields.Location,
		Quality:     fields.Quality,
		Unit:        unit,
		HarvestDate: fields.HarvestDate,
		Price:       fields.Price,
		Quantity:    fields.Quantity,
		Status:      domain.StatusHarvested,
		CreatedAt:   now,
		History: []domain.HistoryEntry{{
			Action:    domain.StatusHarvested,
			Timestamp: now,
			Location:  fields.Location,
		}},
	}
	s.items[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	return rec.Clone(), nil
}

// Get returns a copy of the record or ErrNotFound.
func (s *Store) Get(id string) (domain.ProduceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok {
		return domain.ProduceRecord{}, ErrNotFound
	}
	return rec.Clone(), nil
}

// List returns a fresh snapshot of all records in insertion order.
func (s *Store) List() []domain.ProduceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ProduceRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id].Clone())
	}
	return out
}

// History returns a copy of the record's history, or an empty slice when the
// id is unknown. Display paths tolerate missing items.
func (s *Store) History(id string) []domain.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok {
		return []domain.HistoryEntry{}
	}
	out := make([]domain.HistoryEntry, len(rec.History))
	copy(out, rec.History)
	return out
}

// TransitionOptions carry the optional fields of a status change.
type TransitionOptions struct {
	Location string
	Details  string
	// Owner, when set, records the new holder (purchases set the buyer).
	Owner string
}

// Transition moves a record to newStatus if the edge is legal, appends a
// history entry and returns the updated record.
func (s *Store) Transition(id, newStatus string, opts TransitionOptions) (domain.ProduceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok {
		return domain.ProduceRecord{}, ErrNotFound
	}
	if err := EnsureTransition(rec.Status, newStatus); err != nil {
		return domain.ProduceRecord{}, err
	}
	rec.Status = newStatus
	if opts.Owner != "" {
		rec.Owner = opts.Owner
	}
	rec.History = append(rec.History, domain.HistoryEntry{
		Action:    newStatus,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Location:  opts.Location,
		Details:   opts.Details,
	})
	return rec.Clone(), nil
}

// AttachExternalHash records the identifier returned by an external ledger
// write. It does not touch status or history.
func (s *Store) AttachExternalHash(id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	rec.ExternalHash = hash
	return nil
}

// AttachContentRefs records external content references for the image and
// price-commitment blobs.
func (s *Store) AttachContentRefs(id, imageRef, priceRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	if imageRef != "" {
		rec.ImageRef = imageRef
	}
	if priceRef != "" {
		rec.PriceRef = priceRef
	}
	return nil
}

// EnsureTransition validates a status edge against the closed state machine:
// Harvested -> Packaged -> In Transit -> Delivered, with Paid and Registered
// and Sold reachable from any non-terminal state. Delivered and Sold are
// terminal.
func EnsureTransition(oldStatus, newStatus string) error {
	if !domain.KnownStatus(newStatus) {
		return InvalidTransitionError{From: oldStatus, To: newStatus}
	}
	switch oldStatus {
	case domain.StatusHarvested:
		if newStatus == domain.StatusPackaged ||
			newStatus == domain.StatusPaidAndRegistered ||
			newStatus == domain.StatusSold {
			return nil
		}
	case domain.StatusPackaged:
		if newStatus == domain.StatusInTransit ||
			newStatus == domain.StatusPaidAndRegistered ||
			newStatus == domain.StatusSold {
			return nil
		}
	case domain.StatusInTransit:
		if newStatus == domain.StatusDelivered ||
			newStatus == domain.StatusPaidAndRegistered ||
			newStatus == domain.StatusSold {
			return nil
		}
	case domain.StatusPaidAndRegistered:
		// Paid produce keeps moving through the supply chain.
		if newStatus == domain.StatusPackaged ||
			newStatus == domain.StatusInTransit ||
			newStatus == domain.StatusDelivered ||
			newStatus == domain.StatusSold {
			return nil
		}
	}
	return InvalidTransitionError{From: oldStatus, To: newStatus}
}
