package payment_test

import (
	"context"
	"testing"

	"agrichain/internal/db"
	"agrichain/internal/domain"
	"agrichain/internal/kv"
	"agrichain/internal/migrate"
	"agrichain/internal/payment"
)

func newTestKV(t *testing.T) *kv.Store {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return kv.New(conn)
}

func samplePayment(id, itemID, buyerID string) domain.PaymentRecord {
	return domain.PaymentRecord{
		ID:       id,
		OrderID:  "order_" + id,
		Amount:   120.36,
		Currency: "INR",
		Status:   domain.PaymentCompleted,
		ProduceSnapshot: domain.ProduceRecord{
			ID:     itemID,
			Name:   "Tomatoes",
			Status: domain.StatusPaidAndRegistered,
		},
		BuyerID:       buyerID,
		LedgerApplied: true,
	}
}

func TestHistoryPersistsAcrossReopen(t *testing.T) {
	kvs := newTestKV(t)
	ctx := context.Background()

	h, err := payment.OpenHistory(ctx, kvs, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []domain.PaymentRecord{
		samplePayment("pay_1", "item-1", "buyer-a"),
		samplePayment("pay_2", "item-2", "buyer-b"),
		samplePayment("pay_3", "item-1", "buyer-a"),
	} {
		if err := h.Append(ctx, p); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	// fresh process: rehydrate from the same kv store
	reopened, err := payment.OpenHistory(ctx, kvs, nil)
	if err != nil {
		t.Fatal(err)
	}
	all := reopened.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	for i, want := range []string{"pay_1", "pay_2", "pay_3"} {
		if all[i].ID != want {
			t.Fatalf("order not preserved at %d: %s", i, all[i].ID)
		}
	}
	if all[0].Amount != 120.36 || all[0].Currency != "INR" {
		t.Fatalf("field values not preserved: %+v", all[0])
	}
}

func TestHistoryViews(t *testing.T) {
	ctx := context.Background()
	h, err := payment.OpenHistory(ctx, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = h.Append(ctx, samplePayment("pay_1", "item-1", "buyer-a"))
	_ = h.Append(ctx, samplePayment("pay_2", "item-2", "buyer-b"))
	_ = h.Append(ctx, samplePayment("pay_3", "item-1", "buyer-a"))

	if got := h.ByItem("item-1"); len(got) != 2 {
		t.Fatalf("ByItem: expected 2, got %d", len(got))
	}
	if got := h.ByBuyer("buyer-b"); len(got) != 1 || got[0].ID != "pay_2" {
		t.Fatalf("ByBuyer: unexpected %+v", got)
	}
	if got := h.ByItem("unknown"); len(got) != 0 {
		t.Fatalf("unknown item filter must be empty")
	}
}

func TestCorruptHistoryYieldsEmptyStore(t *testing.T) {
	kvs := newTestKV(t)
	ctx := context.Background()
	if err := kvs.SetItem(ctx, payment.HistoryKey, "{not json"); err != nil {
		t.Fatal(err)
	}
	h, err := payment.OpenHistory(ctx, kvs, nil)
	if err != nil {
		t.Fatalf("corrupt payload must not be fatal: %v", err)
	}
	if len(h.All()) != 0 {
		t.Fatalf("expected empty history")
	}
	// the store remains writable after recovery
	if err := h.Append(ctx, samplePayment("pay_1", "item-1", "buyer-a")); err != nil {
		t.Fatalf("append after recovery: %v", err)
	}
}
