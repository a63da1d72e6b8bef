// Package payment drives single payment attempts from order creation
// through settlement, and owns the durable payment history.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"agrichain/internal/domain"
	"agrichain/internal/fees"
	"agrichain/internal/journal"
	"agrichain/internal/ledger"
	"agrichain/internal/store"
)

// ErrGatewayUnavailable means the payment widget could not be engaged; no
// order or payment record is created.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// ErrChargeInFlight means a charge for this order is already outstanding.
var ErrChargeInFlight = errors.New("charge already in flight for order")

// SettlementMismatchError: the gateway captured the payment but the ledger
// mutation failed. The payment record is persisted with ledger_applied=false
// so a human can reconcile.
type SettlementMismatchError struct {
	Payment domain.PaymentRecord
	Err     error
}

func (e *SettlementMismatchError) Error() string {
	return fmt.Sprintf("payment %s captured but ledger update failed: %v", e.Payment.ID, e.Err)
}

func (e *SettlementMismatchError) Unwrap() error { return e.Err }

const defaultCurrency = "INR"

type Orchestrator struct {
	Ledger   *ledger.Service
	Gateway  Gateway
	History  *History
	Fees     fees.Calculator
	Currency string
	Journal  *journal.Writer
	Log      *slog.Logger
	Now      func() time.Time

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewOrchestrator(l *ledger.Service, g Gateway, h *History) *Orchestrator {
	return &Orchestrator{
		Ledger:   l,
		Gateway:  g,
		History:  h,
		Fees:     fees.NewCalculator(),
		Currency: defaultCurrency,
		Log:      slog.Default(),
		Now:      time.Now,
		inFlight: make(map[string]bool),
	}
}

func (o *Orchestrator) log() *slog.Logger {
	if o.Log != nil {
		return o.Log
	}
	return slog.Default()
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// CreateOrder builds the chargeable order for a record. The caller passes
// the base amount; the order carries the fee-inclusive total. Pure
// construction, no network.
func (o *Orchestrator) CreateOrder(rec domain.ProduceRecord, baseAmount float64) (domain.Order, error) {
	breakdown, err := o.Fees.Compute(baseAmount)
	if err != nil {
		return domain.Order{}, err
	}
	currency := o.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	id := "order_" + uuid.New().String()
	return domain.Order{
		ID:       id,
		Amount:   breakdown.TotalAmount,
		Currency: currency,
		Receipt:  id,
		Notes: map[string]string{
			"produce_name": rec.Name,
			"farmer_name":  rec.Farmer,
			"location":     rec.Location,
		},
	}, nil
}

// ChargeOptions select the settlement flow for a successful payment.
type ChargeOptions struct {
	BuyerID string
	// Register runs the first-time registration flow: the produce fields
	// are registered on the ledger before the paid status is applied.
	Register bool
}

// ChargeResult is the explicit outcome of a charge. Dismissed charges carry
// no payment record and mutate nothing.
type ChargeResult struct {
	Payment   domain.PaymentRecord
	Dismissed bool
}

// InFlight reports whether a charge for the order is currently outstanding.
func (o *Orchestrator) InFlight(orderID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight[orderID]
}

func (o *Orchestrator) begin(orderID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[orderID] {
		return ErrChargeInFlight
	}
	if o.inFlight == nil {
		o.inFlight = make(map[string]bool)
	}
	o.inFlight[orderID] = true
	return nil
}

func (o *Orchestrator) end(orderID string) {
	o.mu.Lock()
	delete(o.inFlight, orderID)
	o.mu.Unlock()
}

// Charge opens the gateway for the order and settles on success. At most
// one charge per order id may be outstanding; dismissal discards the order
// with no state change and no automatic retry.
func (o *Orchestrator) Charge(ctx context.Context, order domain.Order, rec domain.ProduceRecord, opts ChargeOptions) (ChargeResult, error) {
	if o.Gateway == nil {
		return ChargeResult{}, ErrGatewayUnavailable
	}
	if err := o.begin(order.ID); err != nil {
		return ChargeResult{}, err
	}
	defer o.end(order.ID)

	result, err := o.Gateway.Open(ctx, order)
	if err != nil {
		return ChargeResult{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if result.Dismissed {
		return ChargeResult{Dismissed: true}, nil
	}
	payment, err := o.settle(ctx, order, rec, result.TransactionID, opts)
	return ChargeResult{Payment: payment}, err
}

// settle reconciles a captured payment with the ledger. The payment record
// is recorded even when the ledger mutation fails.
func (o *Orchestrator) settle(ctx context.Context, order domain.Order, rec domain.ProduceRecord, transactionID string, opts ChargeOptions) (domain.PaymentRecord, error) {
	actorID := opts.BuyerID
	if actorID == "" {
		actorID = rec.Farmer
	}

	var ledgerErr error
	current := rec
	if opts.Register {
		registered, err := o.Ledger.RegisterItem(ctx, ledger.RegisterFields{CreateFields: store.CreateFields{
			Name:        rec.Name,
			Farmer:      rec.Farmer,
			Location:    rec.Location,
			Quality:     rec.Quality,
			Unit:        rec.Unit,
			HarvestDate: rec.HarvestDate,
			Price:       rec.Price,
			Quantity:    rec.Quantity,
		}}, actorID)
		if err != nil {
			ledgerErr = err
		} else {
			current = registered
		}
	}
	if ledgerErr == nil {
		updated, err := o.Ledger.UpdateStatus(ctx, current.ID, domain.StatusPaidAndRegistered, store.TransitionOptions{
			Location: current.Location,
			Owner:    opts.BuyerID,
		}, actorID)
		if err != nil {
			ledgerErr = err
		} else {
			current = updated
		}
	}

	payment := domain.PaymentRecord{
		ID:              transactionID,
		OrderID:         order.ID,
		Amount:          order.Amount,
		Currency:        order.Currency,
		Status:          domain.PaymentCompleted,
		Timestamp:       o.now().UTC().Format(time.RFC3339),
		ProduceSnapshot: current.Clone(),
		ExternalHash:    current.ExternalHash,
		BuyerID:         opts.BuyerID,
		LedgerApplied:   ledgerErr == nil,
	}
	if o.History != nil {
		if err := o.History.Append(ctx, payment); err != nil {
			o.log().Warn("payment history append failed", "payment_id", payment.ID, "error", err)
		}
	}

	if ledgerErr != nil {
		o.journalAppend(ctx, journal.TypeSettlementMismatch, payment.ID, actorID, journal.Payload{
			"order_id": order.ID,
			"error":    ledgerErr.Error(),
		})
		return payment, &SettlementMismatchError{Payment: payment, Err: ledgerErr}
	}
	o.journalAppend(ctx, journal.TypePaymentCaptured, payment.ID, actorID, journal.Payload{
		"order_id":   order.ID,
		"amount":     order.Amount,
		"produce_id": current.ID,
	})
	return payment, nil
}

func (o *Orchestrator) journalAppend(ctx context.Context, evtType, entityID, actorID string, payload journal.Payload) {
	if o.Journal == nil {
		return
	}
	if err := o.Journal.Append(ctx, evtType, "payment", entityID, actorID, payload); err != nil {
		o.log().Warn("journal append failed", "type", evtType, "error", err)
	}
}
