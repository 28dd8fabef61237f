package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries everything a run needs. Retry budgets, ceilings and defaults
// used to be hardcoded constants; they are plain fields here so a run can
// override them and tests can shrink the timings.
type Config struct {
	AccessKey  string `env:"COUPANG_ACCESS_KEY,required"`
	SecretKey  string `env:"COUPANG_SECRET_KEY,required"`
	VendorID   string `env:"COUPANG_VENDOR_ID,required"`
	UserID     string `env:"COUPANG_USER_ID,required"` // WING operator account
	ContractID int64  `env:"COUPANG_CONTRACT_ID,required"`
	BaseURL    string `env:"COUPANG_BASE_URL" envDefault:"https://api-gateway.coupang.com"`

	Loader   LoaderConfig   `envPrefix:"LOADER_"`
	Issuance IssuanceConfig `envPrefix:"ISSUANCE_"`
	SMTP     SMTPConfig     `envPrefix:"SMTP_"`
}

// LoaderConfig bounds and defaults applied while parsing the specification
// file.
type LoaderConfig struct {
	// Platform minimum for a download coupon's purchase threshold.
	DefaultMinPurchasePrice int64 `env:"DEFAULT_MIN_PURCHASE" envDefault:"10"`
	DefaultIssueCount       int64 `env:"DEFAULT_ISSUE_COUNT" envDefault:"1"`
	MaxInstantItems         int   `env:"MAX_INSTANT_ITEMS" envDefault:"10000"`
	MaxDownloadItems        int   `env:"MAX_DOWNLOAD_ITEMS" envDefault:"100"`
}

// IssuanceConfig controls the per-coupon workflow timings.
type IssuanceConfig struct {
	// Whole-sequence attempts per coupon before recording a failure.
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	RetryDelay  time.Duration `env:"RETRY_DELAY" envDefault:"5s"`
	// Status poll budget for the asynchronous instant workflow.
	PollAttempts int           `env:"POLL_ATTEMPTS" envDefault:"5"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	// A download coupon only becomes valid this long after creation, so the
	// platform has time to propagate it before shoppers can claim it.
	DownloadStartDelay time.Duration `env:"DOWNLOAD_START_DELAY" envDefault:"10m"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
}

// SMTPConfig is optional; when incomplete the batch report is not mailed.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     string `env:"PORT" envDefault:"587"`
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
	To       string `env:"TO"`
}

// Enabled reports whether enough is configured to send the report mail.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != "" && s.To != ""
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadLoaderConfig reads only the loader settings. The verify command uses
// it so previewing a file never demands API credentials.
func LoadLoaderConfig() (LoaderConfig, error) {
	var lc LoaderConfig
	if err := env.ParseWithOptions(&lc, env.Options{Prefix: "LOADER_"}); err != nil {
		return LoaderConfig{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return lc, nil
}

// Validate rejects settings that would make a run misbehave.
func (c *Config) Validate() error {
	if c.ContractID <= 0 {
		return fmt.Errorf("contract id must be positive (got %d)", c.ContractID)
	}
	if c.Loader.DefaultMinPurchasePrice < 1 {
		return fmt.Errorf("default min purchase price must be >= 1 (got %d)", c.Loader.DefaultMinPurchasePrice)
	}
	if c.Loader.DefaultIssueCount < 1 {
		return fmt.Errorf("default issue count must be >= 1 (got %d)", c.Loader.DefaultIssueCount)
	}
	if c.Loader.MaxInstantItems < 1 || c.Loader.MaxDownloadItems < 1 {
		return fmt.Errorf("item ceilings must be positive")
	}
	if c.Issuance.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be >= 1 (got %d)", c.Issuance.MaxAttempts)
	}
	if c.Issuance.PollAttempts < 1 {
		return fmt.Errorf("poll attempts must be >= 1 (got %d)", c.Issuance.PollAttempts)
	}
	if c.Issuance.PollInterval <= 0 || c.Issuance.RetryDelay < 0 {
		return fmt.Errorf("poll interval must be positive and retry delay non-negative")
	}
	if c.Issuance.DownloadStartDelay < 0 {
		return fmt.Errorf("download start delay must be non-negative")
	}
	return nil
}
