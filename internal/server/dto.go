package server

import (
	"agrichain/internal/domain"
)

// Request payloads

type RegisterProduceRequest struct {
	Name        string  `json:"name"`
	Farmer      string  `json:"farmer"`
	Location    string  `json:"location"`
	Quality     string  `json:"quality,omitempty" enum:"Premium,Standard,Basic"`
	Unit        string  `json:"unit,omitempty"`
	HarvestDate string  `json:"harvest_date,omitempty" format:"date"`
	Price       float64 `json:"price"`
	Quantity    float64 `json:"quantity"`
	// Image and PriceCommitment are base64-encoded blobs destined for
	// external content storage.
	Image           []byte `json:"image,omitempty"`
	PriceCommitment []byte `json:"price_commitment,omitempty"`
}

type UpdateStatusRequest struct {
	Status   string `json:"status" enum:"Harvested,Packaged,In Transit,Delivered,Paid and Registered,Sold"`
	Location string `json:"location,omitempty"`
	Details  string `json:"details,omitempty"`
	Owner    string `json:"owner,omitempty"`
}

type PayRequest struct {
	BuyerID string `json:"buyer_id,omitempty"`
	// Amount overrides the record's base price when non-zero.
	Amount float64 `json:"amount,omitempty"`
}

type CheckoutRequest struct {
	Name        string  `json:"name"`
	Farmer      string  `json:"farmer"`
	Location    string  `json:"location"`
	Quality     string  `json:"quality,omitempty" enum:"Premium,Standard,Basic"`
	Unit        string  `json:"unit,omitempty"`
	HarvestDate string  `json:"harvest_date,omitempty" format:"date"`
	Price       float64 `json:"price"`
	Quantity    float64 `json:"quantity"`
	BuyerID     string  `json:"buyer_id,omitempty"`
}

type FeeQuoteRequest struct {
	Amount float64 `json:"amount"`
}

type WebhookRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature,omitempty"`
}

// Response payloads

type FeeQuoteResponse struct {
	BaseAmount    float64 `json:"base_amount"`
	ProcessingFee float64 `json:"processing_fee"`
	GST           float64 `json:"gst"`
	TotalAmount   float64 `json:"total_amount"`
}

type PayResponse struct {
	Order     domain.Order         `json:"order"`
	Payment   domain.PaymentRecord `json:"payment,omitempty"`
	Dismissed bool                 `json:"dismissed"`
}

type WebhookResponse struct {
	Verified bool `json:"verified"`
}
