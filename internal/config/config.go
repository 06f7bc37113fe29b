// Package config loads rialto.yml: storage paths, the trigger API, and the
// policy constants the creators and processors consult.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models rialto.yml.
type Config struct {
	DBPath  string `yaml:"db_path"`
	APIPort int    `yaml:"api_port"`

	Ticker struct {
		IntervalSeconds int `yaml:"interval_seconds"`
	} `yaml:"ticker"`

	Travel struct {
		Seed          int64   `yaml:"seed"`
		BaseSpeed     float64 `yaml:"base_speed_mps"`
		WaypointEvery float64 `yaml:"waypoint_every_m"`
	} `yaml:"travel"`

	Oracle Oracle `yaml:"oracle"`

	Policy Policy `yaml:"policy"`
}

// Oracle configures the LLM consultation client. The API key itself stays in
// the environment, never in the file.
type Oracle struct {
	Model             string `yaml:"model"`
	MaxTokens         int    `yaml:"max_tokens"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
}

// Timeout is the per-request deadline for oracle calls.
func (o Oracle) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// Policy holds the tunable constants of the execution engine. Defaults match
// the values the tests assume.
type Policy struct {
	TreasuryAccount        string  `yaml:"treasury_account"`
	DefaultLegMinutes      int     `yaml:"default_leg_minutes"`
	TerminalStepMinutes    int     `yaml:"terminal_step_minutes"`
	RegistrationFeePct     float64 `yaml:"registration_fee_pct"`
	RegistrationFeeMin     int64   `yaml:"registration_fee_min"`
	ListingDurationHours   int     `yaml:"listing_duration_hours"`
	BidDurationHours       int     `yaml:"bid_duration_hours"`
	PatronagePeriodHours   int     `yaml:"patronage_period_hours"`
	CommissionDelayHours   int     `yaml:"commission_delay_hours"`
	CommissionJitterHours  int     `yaml:"commission_jitter_hours"`
	TradeTrustIncrement    float64 `yaml:"trade_trust_increment"`
	PatronageTrustPerTick  float64 `yaml:"patronage_trust_per_tick"`
	PatronageFinalBonus    float64 `yaml:"patronage_final_bonus"`
	ReconcileAfterMinutes  int     `yaml:"reconcile_after_minutes"`
}

// DefaultLegDuration is the substitute duration when the travel planner
// cannot resolve one; keeps chains well-formed under degradation.
func (p Policy) DefaultLegDuration() time.Duration {
	return time.Duration(p.DefaultLegMinutes) * time.Minute
}

// TerminalStepDuration is the fixed window allotted to a terminal step.
func (p Policy) TerminalStepDuration() time.Duration {
	return time.Duration(p.TerminalStepMinutes) * time.Minute
}

// PatronagePeriod is the interval between patronage payments.
func (p Policy) PatronagePeriod() time.Duration {
	return time.Duration(p.PatronagePeriodHours) * time.Hour
}

// RegistrationFee computes the land registration fee owed to the treasury.
func (p Policy) RegistrationFee(price int64) int64 {
	fee := int64(float64(price) * p.RegistrationFeePct)
	if fee < p.RegistrationFeeMin {
		fee = p.RegistrationFeeMin
	}
	return fee
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return &cfg
}

// Load reads config from a file, falling back to defaults when the path is
// empty or the file does not exist.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes. Omitted fields
// take their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the config is internally consistent.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.Policy.TreasuryAccount == "" {
		return fmt.Errorf("policy.treasury_account is required")
	}
	if c.Policy.RegistrationFeePct < 0 || c.Policy.RegistrationFeePct > 1 {
		return fmt.Errorf("policy.registration_fee_pct must be in [0, 1]")
	}
	if c.Policy.DefaultLegMinutes <= 0 {
		return fmt.Errorf("policy.default_leg_minutes must be positive")
	}
	if c.Policy.PatronagePeriodHours <= 0 {
		return fmt.Errorf("policy.patronage_period_hours must be positive")
	}
	if c.Ticker.IntervalSeconds <= 0 {
		return fmt.Errorf("ticker.interval_seconds must be positive")
	}
	if c.Oracle.MaxTokens <= 0 {
		return fmt.Errorf("oracle.max_tokens must be positive")
	}
	if c.Oracle.RequestsPerMinute <= 0 {
		return fmt.Errorf("oracle.requests_per_minute must be positive")
	}
	return nil
}

const defaultTemplate = `db_path: data/rialto.db
api_port: 8080

ticker:
  interval_seconds: 30

travel:
  seed: 42
  base_speed_mps: 1.4
  waypoint_every_m: 50

oracle:
  model: claude-haiku-4-5-20251001
  max_tokens: 300
  requests_per_minute: 20
  timeout_seconds: 30

policy:
  treasury_account: republic_treasury
  default_leg_minutes: 30
  terminal_step_minutes: 5
  registration_fee_pct: 0.05
  registration_fee_min: 10
  listing_duration_hours: 168
  bid_duration_hours: 168
  patronage_period_hours: 24
  commission_delay_hours: 24
  commission_jitter_hours: 12
  trade_trust_increment: 0.5
  patronage_trust_per_tick: 1.0
  patronage_final_bonus: 5.0
  reconcile_after_minutes: 10
`
