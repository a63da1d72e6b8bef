package payment_test

import (
	"context"
	"errors"
	"testing"

	"agrichain/internal/domain"
	"agrichain/internal/ledger"
	"agrichain/internal/payment"
	"agrichain/internal/store"
)

func newTestOrchestrator(t *testing.T, gw payment.Gateway) (*payment.Orchestrator, *ledger.Service) {
	t.Helper()
	svc := ledger.New(store.New())
	hist, err := payment.OpenHistory(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	return payment.NewOrchestrator(svc, gw, hist), svc
}

func registeredRecord(t *testing.T, svc *ledger.Service) domain.ProduceRecord {
	t.Helper()
	rec, err := svc.RegisterItem(context.Background(), ledger.RegisterFields{CreateFields: store.CreateFields{
		Name:     "Tomatoes",
		Farmer:   "A",
		Location: "X",
		Price:    2,
		Quantity: 10,
	}}, "tester")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return rec
}

func TestCreateOrderQuotesFeeInclusiveTotal(t *testing.T) {
	o, svc := newTestOrchestrator(t, &payment.MockGateway{})
	rec := registeredRecord(t, svc)

	order, err := o.CreateOrder(rec, 100)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Amount != 120.36 {
		t.Fatalf("expected fee-inclusive total 120.36, got %v", order.Amount)
	}
	if order.Currency != "INR" {
		t.Fatalf("expected INR, got %s", order.Currency)
	}
	if order.ID == "" || order.Receipt != order.ID {
		t.Fatalf("unexpected order identifiers: %+v", order)
	}
	if order.Notes["produce_name"] != "Tomatoes" {
		t.Fatalf("expected produce metadata in notes")
	}
}

func TestCreateOrderRejectsBadAmount(t *testing.T) {
	o, svc := newTestOrchestrator(t, &payment.MockGateway{})
	rec := registeredRecord(t, svc)
	if _, err := o.CreateOrder(rec, -5); err == nil {
		t.Fatalf("expected invalid amount error")
	}
}

func TestChargeSuccessSettlesAndRecordsPayment(t *testing.T) {
	gw := &payment.MockGateway{Handler: func(domain.Order) (payment.GatewayResult, error) {
		return payment.GatewayResult{TransactionID: "pay_1"}, nil
	}}
	o, svc := newTestOrchestrator(t, gw)
	rec := registeredRecord(t, svc)
	order, _ := o.CreateOrder(rec, 100)

	res, err := o.Charge(context.Background(), order, rec, payment.ChargeOptions{BuyerID: "buyer-1"})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if res.Dismissed {
		t.Fatalf("unexpected dismissal")
	}
	if res.Payment.ID != "pay_1" || res.Payment.Status != domain.PaymentCompleted {
		t.Fatalf("unexpected payment: %+v", res.Payment)
	}
	if !res.Payment.LedgerApplied {
		t.Fatalf("expected ledger applied")
	}
	if res.Payment.Amount != order.Amount {
		t.Fatalf("payment amount must match order total")
	}

	got, err := svc.Get(rec.ID)
	if err != nil || got.Status != domain.StatusPaidAndRegistered {
		t.Fatalf("expected Paid and Registered, got %s (%v)", got.Status, err)
	}
	all := o.History.All()
	if len(all) != 1 || all[0].ID != "pay_1" {
		t.Fatalf("expected exactly one recorded payment, got %d", len(all))
	}
	if all[0].ProduceSnapshot.Status != domain.StatusPaidAndRegistered {
		t.Fatalf("snapshot must reflect post-settlement status")
	}
}

func TestChargeRegistrationFlow(t *testing.T) {
	o, svc := newTestOrchestrator(t, &payment.MockGateway{})
	draft := domain.ProduceRecord{
		Name:     "Lettuce",
		Farmer:   "B",
		Location: "Y",
		Price:    1.8,
		Quantity: 5,
	}
	order, err := o.CreateOrder(draft, 50)
	if err != nil {
		t.Fatal(err)
	}
	res, err := o.Charge(context.Background(), order, draft, payment.ChargeOptions{Register: true, BuyerID: "buyer-2"})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	snap := res.Payment.ProduceSnapshot
	if snap.ID == "" {
		t.Fatalf("registration flow must assign an id")
	}
	if snap.Status != domain.StatusPaidAndRegistered {
		t.Fatalf("expected Paid and Registered snapshot, got %s", snap.Status)
	}
	if got, err := svc.Get(snap.ID); err != nil || got.Status != domain.StatusPaidAndRegistered {
		t.Fatalf("registered record missing from ledger: %v", err)
	}
}

func TestChargeDismissalMutatesNothing(t *testing.T) {
	gw := &payment.MockGateway{Handler: func(domain.Order) (payment.GatewayResult, error) {
		return payment.GatewayResult{Dismissed: true}, nil
	}}
	o, svc := newTestOrchestrator(t, gw)
	rec := registeredRecord(t, svc)
	order, _ := o.CreateOrder(rec, 100)

	res, err := o.Charge(context.Background(), order, rec, payment.ChargeOptions{})
	if err != nil {
		t.Fatalf("dismissal is not an error: %v", err)
	}
	if !res.Dismissed {
		t.Fatalf("expected dismissed result")
	}
	if got, _ := svc.Get(rec.ID); got.Status != domain.StatusHarvested {
		t.Fatalf("dismissal must not mutate the record")
	}
	if len(o.History.All()) != 0 {
		t.Fatalf("dismissal must not record a payment")
	}
	if o.InFlight(order.ID) {
		t.Fatalf("in-flight flag must clear after dismissal")
	}
}

func TestChargeWithoutGateway(t *testing.T) {
	o, svc := newTestOrchestrator(t, nil)
	rec := registeredRecord(t, svc)
	order, _ := o.CreateOrder(rec, 100)
	if _, err := o.Charge(context.Background(), order, rec, payment.ChargeOptions{}); !errors.Is(err, payment.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if len(o.History.All()) != 0 {
		t.Fatalf("no payment record on gateway failure")
	}
}

func TestChargeGatewayErrorIsUnavailable(t *testing.T) {
	gw := &payment.MockGateway{Handler: func(domain.Order) (payment.GatewayResult, error) {
		return payment.GatewayResult{}, errors.New("script failed to load")
	}}
	o, svc := newTestOrchestrator(t, gw)
	rec := registeredRecord(t, svc)
	order, _ := o.CreateOrder(rec, 100)
	if _, err := o.Charge(context.Background(), order, rec, payment.ChargeOptions{}); !errors.Is(err, payment.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestSettlementMismatchStillRecordsPayment(t *testing.T) {
	gw := &payment.MockGateway{Handler: func(domain.Order) (payment.GatewayResult, error) {
		return payment.GatewayResult{TransactionID: "pay_9"}, nil
	}}
	o, svc := newTestOrchestrator(t, gw)
	rec := registeredRecord(t, svc)
	// force the ledger mutation to fail: the record is already terminal
	if _, err := svc.UpdateStatus(context.Background(), rec.ID, domain.StatusSold, store.TransitionOptions{}, "tester"); err != nil {
		t.Fatal(err)
	}
	order, _ := o.CreateOrder(rec, 100)

	_, err := o.Charge(context.Background(), order, rec, payment.ChargeOptions{BuyerID: "buyer-3"})
	var mismatch *payment.SettlementMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SettlementMismatchError, got %v", err)
	}
	if mismatch.Payment.ID != "pay_9" || mismatch.Payment.Status != domain.PaymentCompleted {
		t.Fatalf("mismatch must carry the captured payment: %+v", mismatch.Payment)
	}
	all := o.History.All()
	if len(all) != 1 || all[0].LedgerApplied {
		t.Fatalf("payment must be persisted with ledger_applied=false, got %+v", all)
	}
}

func TestChargeDuringTransitThenDeliver(t *testing.T) {
	o, svc := newTestOrchestrator(t, &payment.MockGateway{})
	rec := registeredRecord(t, svc)
	ctx := context.Background()

	for _, status := range []string{domain.StatusPackaged, domain.StatusInTransit} {
		var err error
		rec, err = svc.UpdateStatus(ctx, rec.ID, status, store.TransitionOptions{}, "tester")
		if err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	order, err := o.CreateOrder(rec, rec.Price)
	if err != nil {
		t.Fatal(err)
	}
	res, err := o.Charge(ctx, order, rec, payment.ChargeOptions{BuyerID: "buyer-4"})
	if err != nil {
		t.Fatalf("charge mid-transit: %v", err)
	}
	if !res.Payment.LedgerApplied {
		t.Fatalf("expected ledger applied, got %+v", res.Payment)
	}
	if got, _ := svc.Get(rec.ID); got.Status != domain.StatusPaidAndRegistered {
		t.Fatalf("expected Paid and Registered, got %s", got.Status)
	}

	// delivery is still reachable after payment
	got, err := svc.UpdateStatus(ctx, rec.ID, domain.StatusDelivered, store.TransitionOptions{Location: "market"}, "tester")
	if err != nil {
		t.Fatalf("post-payment delivery: %v", err)
	}
	if got.Status != domain.StatusDelivered {
		t.Fatalf("expected Delivered, got %s", got.Status)
	}
}

func TestSingleFlightPerOrder(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	gw := &payment.MockGateway{Handler: func(domain.Order) (payment.GatewayResult, error) {
		close(entered)
		<-release
		return payment.GatewayResult{TransactionID: "pay_slow"}, nil
	}}
	o, svc := newTestOrchestrator(t, gw)
	rec := registeredRecord(t, svc)
	order, _ := o.CreateOrder(rec, 100)

	done := make(chan error, 1)
	go func() {
		_, err := o.Charge(context.Background(), order, rec, payment.ChargeOptions{})
		done <- err
	}()
	<-entered
	if !o.InFlight(order.ID) {
		t.Fatalf("expected order in flight")
	}
	if _, err := o.Charge(context.Background(), order, rec, payment.ChargeOptions{}); !errors.Is(err, payment.ErrChargeInFlight) {
		t.Fatalf("expected ErrChargeInFlight, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first charge: %v", err)
	}
	if o.InFlight(order.ID) {
		t.Fatalf("in-flight flag must clear after settlement")
	}
}
