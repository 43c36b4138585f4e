// Package config initializes the application's configuration. It uses Viper
// to read settings from a config file and environment variables, providing a
// unified configuration surface for the CLI.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/aotydata/album-crawler/internal/logging"
)

// InitConfig sets defaults, search paths, and environment mapping. Call once
// at startup, before any component reads configuration. cfgFile, when
// non-empty, pins the config file instead of searching the default paths.
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/albumcrawler/")
		viper.AddConfigPath("$HOME/.albumcrawler")
	}

	const defaultUA = "AlbumCrawler/1.0 (+https://github.com/aotydata/album-crawler)"

	// Crawl scope.
	viper.SetDefault("crawler.base_url", "https://www.albumoftheyear.org")
	viper.SetDefault("crawler.genre", "")
	viper.SetDefault("crawler.start_year", time.Now().UTC().Year())
	viper.SetDefault("crawler.years_back", 5)
	viper.SetDefault("crawler.albums_per_year", 250)
	viper.SetDefault("crawler.user_agent", defaultUA)

	// Politeness and retries.
	viper.SetDefault("crawler.base_delay", "3s")
	viper.SetDefault("crawler.max_delay", "60s")
	viper.SetDefault("crawler.relax_after", 5)
	viper.SetDefault("crawler.max_retries", 3)
	viper.SetDefault("crawler.request_timeout", "15s")

	// Checkpointing.
	viper.SetDefault("crawler.checkpoint_path", "data/checkpoint.json")
	viper.SetDefault("crawler.checkpoint_every", 25)
	viper.SetDefault("crawler.resume", false)

	// Block detection. Signatures are configuration, not code, so new
	// challenge pages can be handled without a release.
	viper.SetDefault("detector.signatures", []string{})
	viper.SetDefault("detector.status_codes", []int{403})

	// Headless fallback.
	viper.SetDefault("headless.enabled", false)
	viper.SetDefault("headless.nav_timeout", "45s")
	viper.SetDefault("headless.max_parallel", 1)
	viper.SetDefault("headless.domain_qps", 0.5)

	// Output and observability.
	viper.SetDefault("sink.provider", "jsonl")
	viper.SetDefault("sink.output_dir", "data/albums")
	viper.SetDefault("sink.postgres_dsn", "")
	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.addr", ":8080")
	viper.SetDefault("logging.development", false)

	viper.SetEnvPrefix("CRAWLER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
