package crawler

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob that influences a crawl session. All values
// originate from Viper so the engine can be configured via files, env vars,
// or CLI flags while staying decoupled from Viper itself.
type Config struct {
	BaseURL       string
	TargetGenre   string
	StartYear     int
	YearsBack     int
	AlbumsPerYear int
	UserAgent     string

	BaseDelay  time.Duration
	MaxDelay   time.Duration
	RelaxAfter int
	MaxRetries int

	RequestTimeout time.Duration

	CheckpointPath  string
	CheckpointEvery int
	Resume          bool

	BlockSignatures  []string
	BlockStatusCodes []int

	HeadlessEnabled     bool
	HeadlessNavTimeout  time.Duration
	HeadlessMaxParallel int
	HeadlessDomainQPS   float64
}

// LoadConfig constructs a Config by reading from Viper.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		BaseURL:       v.GetString("crawler.base_url"),
		TargetGenre:   v.GetString("crawler.genre"),
		StartYear:     v.GetInt("crawler.start_year"),
		YearsBack:     v.GetInt("crawler.years_back"),
		AlbumsPerYear: v.GetInt("crawler.albums_per_year"),
		UserAgent:     v.GetString("crawler.user_agent"),

		BaseDelay:  v.GetDuration("crawler.base_delay"),
		MaxDelay:   v.GetDuration("crawler.max_delay"),
		RelaxAfter: v.GetInt("crawler.relax_after"),
		MaxRetries: v.GetInt("crawler.max_retries"),

		RequestTimeout: v.GetDuration("crawler.request_timeout"),

		CheckpointPath:  v.GetString("crawler.checkpoint_path"),
		CheckpointEvery: v.GetInt("crawler.checkpoint_every"),
		Resume:          v.GetBool("crawler.resume"),

		BlockSignatures:  v.GetStringSlice("detector.signatures"),
		BlockStatusCodes: v.GetIntSlice("detector.status_codes"),

		HeadlessEnabled:     v.GetBool("headless.enabled"),
		HeadlessNavTimeout:  v.GetDuration("headless.nav_timeout"),
		HeadlessMaxParallel: v.GetInt("headless.max_parallel"),
		HeadlessDomainQPS:   v.GetFloat64("headless.domain_qps"),
	}
	if len(cfg.BlockSignatures) == 0 {
		cfg.BlockSignatures = DefaultBlockSignatures
	}
	if len(cfg.BlockStatusCodes) == 0 {
		cfg.BlockStatusCodes = DefaultBlockStatusCodes
	}
	return cfg, cfg.Validate()
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("crawler.base_url must be set")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("crawler.user_agent must be set")
	}
	if c.StartYear <= 0 {
		return fmt.Errorf("crawler.start_year must be > 0")
	}
	if c.YearsBack <= 0 {
		return fmt.Errorf("crawler.years_back must be > 0")
	}
	if c.AlbumsPerYear <= 0 {
		return fmt.Errorf("crawler.albums_per_year must be > 0")
	}
	if c.BaseDelay <= 0 {
		return fmt.Errorf("crawler.base_delay must be > 0")
	}
	if c.MaxDelay < c.BaseDelay {
		return fmt.Errorf("crawler.max_delay must be >= crawler.base_delay")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("crawler.max_retries must be >= 0")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0")
	}
	if c.CheckpointPath == "" {
		return fmt.Errorf("crawler.checkpoint_path must be set")
	}
	if c.CheckpointEvery <= 0 {
		return fmt.Errorf("crawler.checkpoint_every must be > 0")
	}
	if c.HeadlessEnabled && c.HeadlessMaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	return nil
}
