package fees

import (
	"errors"
	"math"
)

// ErrInvalidAmount is returned for amounts that are negative or not finite.
var ErrInvalidAmount = errors.New("invalid amount")

// Default rates: 2% processing fee, 18% GST on base plus fee.
const (
	DefaultProcessingRate = 0.02
	DefaultGSTRate        = 0.18
)

// Breakdown is the deterministic fee split for a base amount. No rounding is
// applied here; presentation rounding is the display layer's concern.
type Breakdown struct {
	BaseAmount    float64 `json:"base_amount"`
	ProcessingFee float64 `json:"processing_fee"`
	GST           float64 `json:"gst"`
	TotalAmount   float64 `json:"total_amount"`
}

// Calculator computes payment breakdowns. The zero value is unusable; use
// NewCalculator or set both rates.
type Calculator struct {
	ProcessingRate float64
	GSTRate        float64
}

func NewCalculator() Calculator {
	return Calculator{ProcessingRate: DefaultProcessingRate, GSTRate: DefaultGSTRate}
}

// Compute returns the breakdown for baseAmount.
func (c Calculator) Compute(baseAmount float64) (Breakdown, error) {
	if baseAmount < 0 || math.IsNaN(baseAmount) || math.IsInf(baseAmount, 0) {
		return Breakdown{}, ErrInvalidAmount
	}
	fee := baseAmount * c.ProcessingRate
	gst := (baseAmount + fee) * c.GSTRate
	return Breakdown{
		BaseAmount:    baseAmount,
		ProcessingFee: fee,
		GST:           gst,
		TotalAmount:   baseAmount + fee + gst,
	}, nil
}
