package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"agrichain/internal/app"
	"agrichain/internal/chain"
	"agrichain/internal/domain"
	"agrichain/internal/ledger"
	"agrichain/internal/store"
)

func registerProduce(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID:   "register-produce",
		Method:        http.MethodPost,
		Path:          "/produce",
		Summary:       "Register produce",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body RegisterProduceRequest `json:"body"`
	}) (*struct {
		Body domain.ProduceRecord `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rec, err := a.Ledger.RegisterItem(ctx, ledger.RegisterFields{
			CreateFields: store.CreateFields{
				Name:        input.Body.Name,
				Farmer:      input.Body.Farmer,
				Location:    input.Body.Location,
				Quality:     input.Body.Quality,
				Unit:        input.Body.Unit,
				HarvestDate: input.Body.HarvestDate,
				Price:       input.Body.Price,
				Quantity:    input.Body.Quantity,
			},
			Image:           input.Body.Image,
			PriceCommitment: input.Body.PriceCommitment,
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ProduceRecord `json:"body"`
		}{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-produce",
		Method:      http.MethodGet,
		Path:        "/produce",
		Summary:     "List produce",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
		Farmer string `query:"farmer"`
	}) (*struct {
		Body []domain.ProduceRecord `json:"body"`
	}, error) {
		items := a.Ledger.List()
		out := make([]domain.ProduceRecord, 0, len(items))
		for _, rec := range items {
			if input.Status != "" && rec.Status != input.Status {
				continue
			}
			if input.Farmer != "" && rec.Farmer != input.Farmer {
				continue
			}
			out = append(out, rec)
		}
		return &struct {
			Body []domain.ProduceRecord `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-produce",
		Method:      http.MethodGet,
		Path:        "/produce/{id}",
		Summary:     "Get produce",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.ProduceRecord `json:"body"`
	}, error) {
		rec, err := a.Ledger.Get(input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ProduceRecord `json:"body"`
		}{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-produce-status",
		Method:      http.MethodPatch,
		Path:        "/produce/{id}/status",
		Summary:     "Update produce status",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ID   string              `path:"id"`
		Body UpdateStatusRequest `json:"body"`
	}) (*struct {
		Body domain.ProduceRecord `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.Status == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "status is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rec, err := a.Ledger.UpdateStatus(ctx, input.ID, input.Body.Status, store.TransitionOptions{
			Location: input.Body.Location,
			Details:  input.Body.Details,
			Owner:    input.Body.Owner,
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ProduceRecord `json:"body"`
		}{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "produce-mirror",
		Method:      http.MethodGet,
		Path:        "/produce/{id}/mirror",
		Summary:     "Chain view of a produce record",
		Errors: []int{
			http.StatusNotFound,
			http.StatusBadGateway,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body chain.OnChainRecord `json:"body"`
	}, error) {
		rec, err := a.Ledger.MirrorRecord(ctx, input.ID)
		if err != nil {
			switch {
			case errors.Is(err, ledger.ErrMirrorDisabled):
				return nil, newAPIError(http.StatusBadGateway, "mirror_disabled", err.Error(), nil)
			case errors.Is(err, store.ErrNotFound):
				return nil, handleError(err)
			default:
				// chain-side failure; local record exists
				return nil, newAPIError(http.StatusBadGateway, "gateway_unavailable", err.Error(), nil)
			}
		}
		return &struct {
			Body chain.OnChainRecord `json:"body"`
		}{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "produce-history",
		Method:      http.MethodGet,
		Path:        "/produce/{id}/history",
		Summary:     "Produce status history",
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body []domain.HistoryEntry `json:"body"`
	}, error) {
		// Unknown ids read as an empty history, not an error.
		return &struct {
			Body []domain.HistoryEntry `json:"body"`
		}{Body: a.Ledger.GetHistory(input.ID)}, nil
	})
}
