package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"agrichain/internal/app"
	"agrichain/internal/journal"
)

// WebhookSignature computes the gateway callback signature: hex HMAC-SHA256
// over "orderID|paymentID".
func WebhookSignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyWebhookSignature(secret, orderID, paymentID, signature string) bool {
	want := WebhookSignature(secret, orderID, paymentID)
	return hmac.Equal([]byte(want), []byte(signature))
}

func registerPaymentWebhook(api huma.API, a *app.App, secret string) {
	huma.Register(api, huma.Operation{
		OperationID: "payment-webhook",
		Method:      http.MethodPost,
		Path:        "/payments/webhook",
		Summary:     "Gateway payment callback",
		Errors: []int{
			http.StatusBadRequest,
		},
	}, func(ctx context.Context, input *struct {
		Body WebhookRequest `json:"body"`
	}) (*struct {
		Body WebhookResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.OrderID == "" || input.Body.PaymentID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "order_id and payment_id are required", nil)
		}
		if secret != "" && !verifyWebhookSignature(secret, input.Body.OrderID, input.Body.PaymentID, input.Body.Signature) {
			return nil, newAPIError(http.StatusBadRequest, "invalid_signature", "webhook signature mismatch", nil)
		}
		if a.Journal != nil {
			if err := a.Journal.Append(ctx, "payment.webhook", "payment", input.Body.PaymentID, "gateway", journal.Payload{
				"order_id": input.Body.OrderID,
				"verified": secret != "",
			}); err != nil {
				a.Log.Warn("webhook journal append failed", "payment_id", input.Body.PaymentID, "error", err)
			}
		}
		return &struct {
			Body WebhookResponse `json:"body"`
		}{Body: WebhookResponse{Verified: secret != ""}}, nil
	})
}
