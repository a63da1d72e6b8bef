package fees_test

import (
	"errors"
	"math"
	"testing"

	"agrichain/internal/fees"
)

func TestComputeBreakdownOf100(t *testing.T) {
	c := fees.NewCalculator()
	b, err := c.Compute(100)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if b.BaseAmount != 100 {
		t.Fatalf("base: %v", b.BaseAmount)
	}
	if b.ProcessingFee != 2 {
		t.Fatalf("processing fee: %v", b.ProcessingFee)
	}
	if b.GST != 18.36 {
		t.Fatalf("gst: %v", b.GST)
	}
	if b.TotalAmount != 120.36 {
		t.Fatalf("total: %v", b.TotalAmount)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	c := fees.NewCalculator()
	first, err := c.Compute(42.5)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := c.Compute(42.5)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("breakdown drifted: %+v vs %+v", again, first)
		}
	}
}

func TestComputeZeroBase(t *testing.T) {
	b, err := fees.NewCalculator().Compute(0)
	if err != nil {
		t.Fatalf("zero base must be valid: %v", err)
	}
	if b.TotalAmount != 0 {
		t.Fatalf("expected zero total, got %v", b.TotalAmount)
	}
}

func TestComputeRejectsBadAmounts(t *testing.T) {
	c := fees.NewCalculator()
	for _, amount := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := c.Compute(amount); !errors.Is(err, fees.ErrInvalidAmount) {
			t.Fatalf("amount %v: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}
