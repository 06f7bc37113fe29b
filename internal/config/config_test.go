package config

import (
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Policy.TreasuryAccount != "republic_treasury" {
		t.Errorf("treasury = %q", cfg.Policy.TreasuryAccount)
	}
	if cfg.Policy.DefaultLegDuration() != 30*time.Minute {
		t.Errorf("default leg = %v", cfg.Policy.DefaultLegDuration())
	}
	if cfg.Policy.PatronagePeriod() != 24*time.Hour {
		t.Errorf("patronage period = %v", cfg.Policy.PatronagePeriod())
	}
	if cfg.Oracle.Model == "" || cfg.Oracle.MaxTokens <= 0 {
		t.Errorf("oracle defaults missing: %+v", cfg.Oracle)
	}
	if cfg.Oracle.Timeout() != 30*time.Second {
		t.Errorf("oracle timeout = %v", cfg.Oracle.Timeout())
	}
}

func TestRegistrationFee(t *testing.T) {
	p := Default().Policy
	cases := []struct {
		price, want int64
	}{
		{1000, 50}, // 5%
		{100, 10},  // floor
		{0, 10},    // floor even on free transfers
		{10000, 500},
	}
	for _, tc := range cases {
		if got := p.RegistrationFee(tc.price); got != tc.want {
			t.Errorf("fee(%d) = %d, want %d", tc.price, got, tc.want)
		}
	}
}

func TestFromYAMLOverridesDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("db_path: /tmp/x.db\npolicy:\n  registration_fee_pct: 0.1\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.DBPath != "/tmp/x.db" {
		t.Errorf("db_path = %q", cfg.DBPath)
	}
	if cfg.Policy.RegistrationFeePct != 0.1 {
		t.Errorf("fee pct = %v", cfg.Policy.RegistrationFeePct)
	}
	// Untouched fields keep their defaults.
	if cfg.APIPort != 8080 {
		t.Errorf("api_port = %d", cfg.APIPort)
	}
	if cfg.Policy.TreasuryAccount != "republic_treasury" {
		t.Errorf("treasury = %q", cfg.Policy.TreasuryAccount)
	}
}

func TestFromYAMLRejectsBadValues(t *testing.T) {
	cases := []string{
		"db_path: \"\"\n",
		"policy:\n  registration_fee_pct: 1.5\n",
		"policy:\n  default_leg_minutes: 0\n",
		"ticker:\n  interval_seconds: -1\n",
		"oracle:\n  max_tokens: 0\n",
		"db_path: [not, a, string]\n",
	}
	for _, raw := range cases {
		if _, err := FromYAML([]byte(raw)); err == nil {
			t.Errorf("accepted invalid config %q", raw)
		}
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load("/nonexistent/rialto.yml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath == "" {
		t.Error("fallback config is empty")
	}
}
