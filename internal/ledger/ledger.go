// Package ledger is the façade callers use to read and mutate produce
// records. Local state is authoritative; the external chain client is a
// best-effort mirror and its failures are logged and swallowed, never
// surfaced.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"agrichain/internal/chain"
	"agrichain/internal/content"
	"agrichain/internal/domain"
	"agrichain/internal/journal"
	"agrichain/internal/store"
)

// DefaultMirrorTimeout bounds the wait on external mirroring calls so local
// writes are never blocked indefinitely.
const DefaultMirrorTimeout = 5 * time.Second

// ErrMirrorDisabled is returned by chain read paths when no chain client is
// configured.
var ErrMirrorDisabled = errors.New("chain mirroring disabled")

type Service struct {
	Store   *store.Store
	Chain   chain.Client    // nil means no mirroring
	Content content.Store   // nil means no blob storage
	Journal *journal.Writer // nil means no operation log
	Log     *slog.Logger

	MirrorTimeout time.Duration
}

func New(st *store.Store) *Service {
	return &Service{
		Store:         st,
		Log:           slog.Default(),
		MirrorTimeout: DefaultMirrorTimeout,
	}
}

func (s *Service) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

func (s *Service) mirrorCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.MirrorTimeout
	if timeout <= 0 {
		timeout = DefaultMirrorTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// RegisterFields are the inputs to a registration: record fields plus
// optional blobs destined for external content storage.
type RegisterFields struct {
	store.CreateFields
	Image           []byte
	PriceCommitment []byte
}

// RegisterItem creates the local record, stores any blobs, and mirrors the
// write to the chain client when one is configured. The record is returned
// even when every external call fails; ExternalHash stays empty in that
// case.
func (s *Service) RegisterItem(ctx context.Context, fields RegisterFields, actorID string) (domain.ProduceRecord, error) {
	rec, err := s.Store.Create(fields.CreateFields)
	if err != nil {
		return domain.ProduceRecord{}, err
	}

	if imageRef, priceRef := s.putBlobs(ctx, fields); imageRef != "" || priceRef != "" {
		if err := s.Store.AttachContentRefs(rec.ID, imageRef, priceRef); err == nil {
			rec.ImageRef = imageRef
			rec.PriceRef = priceRef
		}
	}

	if s.Chain != nil {
		mctx, cancel := s.mirrorCtx(ctx)
		hash, err := s.Chain.SubmitRecord(mctx, rec)
		cancel()
		if err != nil {
			s.log().Warn("chain mirror failed for registration", "id", rec.ID, "error", err)
		} else if hash != "" {
			if err := s.Store.AttachExternalHash(rec.ID, hash); err == nil {
				rec.ExternalHash = hash
			}
		}
	}

	s.journalAppend(ctx, journal.TypeProduceRegistered, rec.ID, actorID, journal.Payload{
		"name":          rec.Name,
		"farmer":        rec.Farmer,
		"status":        rec.Status,
		"external_hash": rec.ExternalHash,
	})
	return rec, nil
}

func (s *Service) putBlobs(ctx context.Context, fields RegisterFields) (imageRef, priceRef string) {
	if s.Content == nil {
		return "", ""
	}
	put := func(blob []byte) string {
		if len(blob) == 0 {
			return ""
		}
		ref, err := s.Content.Put(ctx, blob)
		if err != nil {
			s.log().Warn("content storage failed, using placeholder", "error", err)
			return content.PlaceholderRef
		}
		return ref
	}
	return put(fields.Image), put(fields.PriceCommitment)
}

// UpdateStatus applies a status transition and mirrors it with the same
// fallback discipline as RegisterItem.
func (s *Service) UpdateStatus(ctx context.Context, id, newStatus string, opts store.TransitionOptions, actorID string) (domain.ProduceRecord, error) {
	rec, err := s.Store.Transition(id, newStatus, opts)
	if err != nil {
		return domain.ProduceRecord{}, err
	}

	if s.Chain != nil {
		mctx, cancel := s.mirrorCtx(ctx)
		hash, err := s.Chain.UpdateStatus(mctx, id, newStatus, opts.Location)
		cancel()
		if err != nil {
			s.log().Warn("chain mirror failed for status update", "id", id, "status", newStatus, "error", err)
		} else if hash != "" {
			if err := s.Store.AttachExternalHash(id, hash); err == nil {
				rec.ExternalHash = hash
			}
		}
	}

	s.journalAppend(ctx, journal.TypeProduceStatus, id, actorID, journal.Payload{
		"status":   newStatus,
		"location": opts.Location,
	})
	return rec, nil
}

// Get returns a record snapshot.
func (s *Service) Get(id string) (domain.ProduceRecord, error) {
	return s.Store.Get(id)
}

// Connect opens the chain session and returns the mirror account. Unlike
// write mirroring this surfaces errors: callers decide whether a missing
// chain matters.
func (s *Service) Connect(ctx context.Context) (string, error) {
	if s.Chain == nil {
		return "", ErrMirrorDisabled
	}
	mctx, cancel := s.mirrorCtx(ctx)
	defer cancel()
	return s.Chain.Connect(mctx)
}

// MirrorRecord reads the chain's view of a record. The record must exist
// locally first; an id the store does not know is a not-found error, not a
// chain lookup.
func (s *Service) MirrorRecord(ctx context.Context, id string) (chain.OnChainRecord, error) {
	if _, err := s.Store.Get(id); err != nil {
		return chain.OnChainRecord{}, err
	}
	if s.Chain == nil {
		return chain.OnChainRecord{}, ErrMirrorDisabled
	}
	mctx, cancel := s.mirrorCtx(ctx)
	defer cancel()
	return s.Chain.GetRecord(mctx, id)
}

// List returns a snapshot of all records in insertion order.
func (s *Service) List() []domain.ProduceRecord {
	return s.Store.List()
}

// GetHistory returns the record's history, empty for unknown ids. This read
// path never fails; display contexts tolerate missing items.
func (s *Service) GetHistory(id string) []domain.HistoryEntry {
	return s.Store.History(id)
}

func (s *Service) journalAppend(ctx context.Context, evtType, entityID, actorID string, payload journal.Payload) {
	if s.Journal == nil {
		return
	}
	if err := s.Journal.Append(ctx, evtType, "produce", entityID, actorID, payload); err != nil {
		s.log().Warn("journal append failed", "type", evtType, "error", err)
	}
}
