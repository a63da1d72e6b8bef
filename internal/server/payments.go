package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"agrichain/internal/app"
	"agrichain/internal/domain"
	"agrichain/internal/payment"
	"agrichain/internal/store"
)

func registerFees(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "quote-fees",
		Method:      http.MethodPost,
		Path:        "/fees/quote",
		Summary:     "Quote payment fees",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body FeeQuoteRequest `json:"body"`
	}) (*struct {
		Body FeeQuoteResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		breakdown, err := a.Fees.Compute(input.Body.Amount)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body FeeQuoteResponse `json:"body"`
		}{Body: FeeQuoteResponse{
			BaseAmount:    breakdown.BaseAmount,
			ProcessingFee: breakdown.ProcessingFee,
			GST:           breakdown.GST,
			TotalAmount:   breakdown.TotalAmount,
		}}, nil
	})
}

func registerPayments(api huma.API, a *app.App, webhookSecret string) {
	huma.Register(api, huma.Operation{
		OperationID: "pay-produce",
		Method:      http.MethodPost,
		Path:        "/produce/{id}/pay",
		Summary:     "Pay for produce",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
			http.StatusBadGateway,
		},
	}, func(ctx context.Context, input *struct {
		ID   string     `path:"id"`
		Body PayRequest `json:"body"`
	}) (*struct {
		Body PayResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rec, err := a.Ledger.Get(input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		base := input.Body.Amount
		if base == 0 {
			base = rec.Price
		}
		order, err := a.Orchestrator.CreateOrder(rec, base)
		if err != nil {
			return nil, handleError(err)
		}
		buyerID := input.Body.BuyerID
		if buyerID == "" {
			buyerID = actorID
		}
		result, err := a.Orchestrator.Charge(ctx, order, rec, payment.ChargeOptions{BuyerID: buyerID})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PayResponse `json:"body"`
		}{Body: PayResponse{
			Order:     order,
			Payment:   result.Payment,
			Dismissed: result.Dismissed,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "checkout-produce",
		Method:        http.MethodPost,
		Path:          "/checkout",
		Summary:       "Register and pay for new produce",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusConflict,
			http.StatusBadGateway,
		},
	}, func(ctx context.Context, input *struct {
		Body CheckoutRequest `json:"body"`
	}) (*struct {
		Body PayResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		fields := store.CreateFields{
			Name:        input.Body.Name,
			Farmer:      input.Body.Farmer,
			Location:    input.Body.Location,
			Quality:     input.Body.Quality,
			Unit:        input.Body.Unit,
			HarvestDate: input.Body.HarvestDate,
			Price:       input.Body.Price,
			Quantity:    input.Body.Quantity,
		}
		// reject bad fields before the gateway captures anything
		if err := fields.Validate(); err != nil {
			return nil, handleError(err)
		}
		rec := domain.ProduceRecord{
			Name:        fields.Name,
			Farmer:      fields.Farmer,
			Location:    fields.Location,
			Quality:     fields.Quality,
			Unit:        fields.Unit,
			HarvestDate: fields.HarvestDate,
			Price:       fields.Price,
			Quantity:    fields.Quantity,
		}
		order, err := a.Orchestrator.CreateOrder(rec, rec.Price)
		if err != nil {
			return nil, handleError(err)
		}
		buyerID := input.Body.BuyerID
		if buyerID == "" {
			buyerID = actorID
		}
		result, err := a.Orchestrator.Charge(ctx, order, rec, payment.ChargeOptions{
			BuyerID:  buyerID,
			Register: true,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PayResponse `json:"body"`
		}{Body: PayResponse{
			Order:     order,
			Payment:   result.Payment,
			Dismissed: result.Dismissed,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-payments",
		Method:      http.MethodGet,
		Path:        "/payments",
		Summary:     "List payment history",
	}, func(ctx context.Context, input *struct {
		ItemID  string `query:"item_id"`
		BuyerID string `query:"buyer_id"`
	}) (*struct {
		Body []domain.PaymentRecord `json:"body"`
	}, error) {
		var items []domain.PaymentRecord
		switch {
		case input.ItemID != "":
			items = a.History.ByItem(input.ItemID)
		case input.BuyerID != "":
			items = a.History.ByBuyer(input.BuyerID)
		default:
			items = a.History.All()
		}
		if items == nil {
			items = []domain.PaymentRecord{}
		}
		return &struct {
			Body []domain.PaymentRecord `json:"body"`
		}{Body: items}, nil
	})

	registerPaymentWebhook(api, a, webhookSecret)
}

func registerEvents(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent ledger events",
	}, func(ctx context.Context, input *struct {
		Limit      int    `query:"limit" default:"20"`
		EntityKind string `query:"entity_kind" enum:"produce,payment"`
		EntityID   string `query:"entity_id"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		var (
			items []domain.Event
			err   error
		)
		if input.EntityKind != "" && input.EntityID != "" {
			items, err = a.Journal.ByEntity(ctx, input.EntityKind, input.EntityID)
		} else {
			items, err = a.Journal.Tail(ctx, input.Limit)
		}
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Event{}
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})
}
