package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ALLOW_NEGATIVE_STOCK", "")
	t.Setenv("LOYALTY_EARN_RATE", "")
	t.Setenv("ADMIN_PASSWORD", "")

	cfg := Load()
	if !cfg.AllowNegativeStock {
		t.Fatalf("expected negative stock allowed by default")
	}
	if cfg.LoyaltyEarnRate != 0.10 {
		t.Fatalf("expected default loyalty earn rate 0.10, got %v", cfg.LoyaltyEarnRate)
	}
	if cfg.AdminPassword != "" {
		t.Fatalf("expected empty ADMIN_PASSWORD when unset, got %q", cfg.AdminPassword)
	}
}

func TestLoadRejectsGarbageNumbers(t *testing.T) {
	t.Setenv("PRODUCT_CACHE_TTL_SECONDS", "-5")
	t.Setenv("DEFAULT_VAT_RATE", "abc")

	cfg := Load()
	if cfg.ProductCacheTTLSec != 60 {
		t.Fatalf("expected cache TTL fallback 60, got %d", cfg.ProductCacheTTLSec)
	}
	if cfg.DefaultVATRate != 20 {
		t.Fatalf("expected VAT rate fallback 20, got %v", cfg.DefaultVATRate)
	}
}
