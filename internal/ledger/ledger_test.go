package ledger_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"agrichain/internal/chain"
	"agrichain/internal/content"
	"agrichain/internal/domain"
	"agrichain/internal/ledger"
	"agrichain/internal/store"
)

func registerFields() ledger.RegisterFields {
	return ledger.RegisterFields{
		CreateFields: store.CreateFields{
			Name:     "Tomatoes",
			Farmer:   "A",
			Location: "X",
			Price:    2,
			Quantity: 10,
		},
	}
}

func TestRegisterWithoutChainClient(t *testing.T) {
	svc := ledger.New(store.New())
	rec, err := svc.RegisterItem(context.Background(), registerFields(), "tester")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if rec.Status != domain.StatusHarvested {
		t.Fatalf("expected Harvested, got %s", rec.Status)
	}
	if rec.ExternalHash != "" {
		t.Fatalf("expected no external hash, got %s", rec.ExternalHash)
	}
	if len(rec.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(rec.History))
	}
}

func TestRegisterMirrorsToChain(t *testing.T) {
	svc := ledger.New(store.New())
	svc.Chain = chain.NewMock()
	rec, err := svc.RegisterItem(context.Background(), registerFields(), "tester")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.HasPrefix(rec.ExternalHash, "0x") {
		t.Fatalf("expected mirrored hash, got %q", rec.ExternalHash)
	}
	// hash stays visible on subsequent reads
	got, err := svc.Get(rec.ID)
	if err != nil || got.ExternalHash != rec.ExternalHash {
		t.Fatalf("hash not attached to stored record: %v %q", err, got.ExternalHash)
	}
}

func TestRegisterSwallowsMirrorFailure(t *testing.T) {
	svc := ledger.New(store.New())
	mock := chain.NewMock()
	mock.Fail = errors.New("rpc down")
	svc.Chain = mock

	rec, err := svc.RegisterItem(context.Background(), registerFields(), "tester")
	if err != nil {
		t.Fatalf("mirror failure must not fail registration: %v", err)
	}
	if rec.ExternalHash != "" {
		t.Fatalf("expected empty hash after mirror failure")
	}
}

func TestMirrorWaitIsBounded(t *testing.T) {
	svc := ledger.New(store.New())
	mock := chain.NewMock()
	mock.Delay = time.Second
	svc.Chain = mock
	svc.MirrorTimeout = 20 * time.Millisecond

	start := time.Now()
	rec, err := svc.RegisterItem(context.Background(), registerFields(), "tester")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("register blocked on slow mirror for %v", elapsed)
	}
	if rec.ExternalHash != "" {
		t.Fatalf("expected no hash from timed-out mirror")
	}
}

func TestUpdateStatusMirrorsAndValidates(t *testing.T) {
	svc := ledger.New(store.New())
	svc.Chain = chain.NewMock()
	rec, err := svc.RegisterItem(context.Background(), registerFields(), "tester")
	if err != nil {
		t.Fatal(err)
	}
	updated, err := svc.UpdateStatus(context.Background(), rec.ID, domain.StatusPackaged, store.TransitionOptions{Location: "Plant"}, "tester")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.StatusPackaged || len(updated.History) != 2 {
		t.Fatalf("unexpected record: %+v", updated)
	}
	if _, err := svc.UpdateStatus(context.Background(), rec.ID, domain.StatusHarvested, store.TransitionOptions{}, "tester"); err == nil {
		t.Fatalf("expected invalid transition")
	}
	if _, err := svc.UpdateStatus(context.Background(), "missing", domain.StatusPackaged, store.TransitionOptions{}, "tester"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConnectAndMirrorRecord(t *testing.T) {
	svc := ledger.New(store.New())
	svc.Chain = chain.NewMock()

	account, err := svc.Connect(context.Background())
	if err != nil || account == "" {
		t.Fatalf("connect: %q %v", account, err)
	}

	rec, err := svc.RegisterItem(context.Background(), registerFields(), "tester")
	if err != nil {
		t.Fatal(err)
	}
	mirror, err := svc.MirrorRecord(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("mirror: %v", err)
	}
	if mirror.ID != rec.ID || mirror.Status != domain.StatusHarvested || mirror.TxHash == "" {
		t.Fatalf("unexpected mirror: %+v", mirror)
	}

	if _, err := svc.MirrorRecord(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestMirrorReadsDisabledWithoutChain(t *testing.T) {
	svc := ledger.New(store.New())
	rec, err := svc.RegisterItem(context.Background(), registerFields(), "tester")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Connect(context.Background()); !errors.Is(err, ledger.ErrMirrorDisabled) {
		t.Fatalf("expected ErrMirrorDisabled, got %v", err)
	}
	if _, err := svc.MirrorRecord(context.Background(), rec.ID); !errors.Is(err, ledger.ErrMirrorDisabled) {
		t.Fatalf("expected ErrMirrorDisabled, got %v", err)
	}
}

func TestGetHistoryUnknownIDIsEmpty(t *testing.T) {
	svc := ledger.New(store.New())
	if h := svc.GetHistory("nope"); len(h) != 0 {
		t.Fatalf("expected empty history")
	}
}

func TestContentRefsWithPlaceholderFallback(t *testing.T) {
	svc := ledger.New(store.New())
	svc.Content = content.NewMock()
	fields := registerFields()
	fields.Image = []byte("jpeg bytes")
	fields.PriceCommitment = []byte(`{"price":2}`)

	rec, err := svc.RegisterItem(context.Background(), fields, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if rec.ImageRef == "" || rec.PriceRef == "" {
		t.Fatalf("expected content refs, got %q %q", rec.ImageRef, rec.PriceRef)
	}

	failing := content.NewMock()
	failing.Fail = errors.New("gateway down")
	svc.Content = failing
	rec, err = svc.RegisterItem(context.Background(), fields, "tester")
	if err != nil {
		t.Fatalf("content failure must not fail registration: %v", err)
	}
	if rec.ImageRef != content.PlaceholderRef {
		t.Fatalf("expected placeholder ref, got %q", rec.ImageRef)
	}
}
