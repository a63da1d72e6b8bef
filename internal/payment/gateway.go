package payment

import (
	"context"

	"github.com/google/uuid"

	"agrichain/internal/domain"
)

// GatewayResult is the outcome of one gateway interaction. Exactly one of
// TransactionID or Dismissed is set; the gateway contract is one result per
// Open call.
type GatewayResult struct {
	TransactionID string
	Dismissed     bool
}

// Gateway is the external payment widget. Open blocks until the user
// completes or dismisses the flow.
type Gateway interface {
	Open(ctx context.Context, order domain.Order) (GatewayResult, error)
}

// MockGateway simulates the widget. The zero value approves every charge
// with a fresh pay_ transaction id.
type MockGateway struct {
	// Handler, when set, decides the outcome per order.
	Handler func(order domain.Order) (GatewayResult, error)
}

func (g *MockGateway) Open(ctx context.Context, order domain.Order) (GatewayResult, error) {
	if err := ctx.Err(); err != nil {
		return GatewayResult{}, err
	}
	if g.Handler != nil {
		return g.Handler(order)
	}
	return GatewayResult{TransactionID: "pay_" + uuid.New().String()}, nil
}
