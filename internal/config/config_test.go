package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Ledger.Currency != "INR" {
		t.Fatalf("expected INR, got %q", cfg.Ledger.Currency)
	}
	if cfg.Fees.ProcessingRate != 0.02 || cfg.Fees.GSTRate != 0.18 {
		t.Fatalf("unexpected fee rates: %+v", cfg.Fees)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Ledger.Name != "agrichain" {
		t.Fatalf("expected default name, got %q", cfg.Ledger.Name)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	raw := []byte("ledger:\n  name: mandi\n  currency: USD\nchain:\n  enabled: false\n")
	if err := os.WriteFile(filepath.Join(dir, "agrichain.yml"), raw, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Ledger.Name != "mandi" || cfg.Ledger.Currency != "USD" {
		t.Fatalf("overrides not applied: %+v", cfg.Ledger)
	}
	if cfg.Chain.Enabled {
		t.Fatal("chain should be disabled")
	}
	// untouched sections keep defaults
	if cfg.Fees.ProcessingRate != 0.02 {
		t.Fatalf("expected default processing rate, got %v", cfg.Fees.ProcessingRate)
	}
}

func TestValidateRejectsBadRates(t *testing.T) {
	cfg := Default()
	cfg.Fees.GSTRate = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for gst_rate >= 1")
	}
}

func TestValidateRequiresEndpointForHTTPChain(t *testing.T) {
	cfg := Default()
	cfg.Chain.Mode = "http"
	cfg.Chain.Endpoint = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for http chain without endpoint")
	}
}
