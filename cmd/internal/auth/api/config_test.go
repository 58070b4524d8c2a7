package authapi

import "testing"

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("COLDEYE_TRUST_PROXY", "")
	t.Setenv("COLDEYE_MAX_BODY_BYTES", "")
	t.Setenv("COLDEYE_DEFAULT_COMPANY_NAME", "")

	cfg := LoadConfigFromEnv()

	if cfg.TrustProxy {
		t.Fatalf("proxy headers must not be trusted by default")
	}
	if cfg.MaxBodyBytes != 64<<10 {
		t.Fatalf("expected 64KiB body limit, got %d", cfg.MaxBodyBytes)
	}
	if cfg.DefaultCompanyName != DefaultCompanyName {
		t.Fatalf("expected default company %q, got %q", DefaultCompanyName, cfg.DefaultCompanyName)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("COLDEYE_TRUST_PROXY", "true")
	t.Setenv("COLDEYE_MAX_BODY_BYTES", "-1")
	t.Setenv("COLDEYE_DEFAULT_COMPANY_NAME", "Acme")

	cfg := LoadConfigFromEnv()

	if !cfg.TrustProxy {
		t.Fatalf("expected TrustProxy=true")
	}
	if cfg.MaxBodyBytes != 64<<10 {
		t.Fatalf("invalid body limit must fall back to default, got %d", cfg.MaxBodyBytes)
	}
	if cfg.DefaultCompanyName != "Acme" {
		t.Fatalf("expected Acme, got %q", cfg.DefaultCompanyName)
	}
}
