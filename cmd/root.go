package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/aotydata/album-crawler/internal/app"
	"github.com/aotydata/album-crawler/internal/crawler"
	"github.com/aotydata/album-crawler/internal/logging"
	"github.com/aotydata/album-crawler/internal/progress"
	"github.com/aotydata/album-crawler/pkg/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application surface commands use. An interface so tests can
// inject a fake container.
type App interface {
	Close()
	GetLogger() *zap.Logger
	RunID() string
	GetSink() crawler.Sink
	GetCheckpoints() crawler.CheckpointStore
	GetHub() *progress.Hub
}

// newApp is the application factory, a variable so tests can replace it.
var newApp func(ctx context.Context) (App, error) = func(ctx context.Context) (App, error) {
	return app.NewApp(ctx)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "albumcrawler",
		Short: "A polite crawler for album metadata on albumoftheyear.org.",
		Long: `albumcrawler walks the genre index, per-genre-year ratings lists, and
album detail pages of albumoftheyear.org, extracting album metadata into a
JSONL file or Postgres. The crawl is resumable: a checkpoint file carries
completed work and the pending frontier across interruptions.`,

		// Runs after config is loaded but before the subcommand's RunE; builds
		// and injects the application container.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cobra.OnInitialize(func() { config.InitConfig(cfgFile) })

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.albumcrawler/config.yaml)")

	cmd.AddCommand(newCrawlCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	logging.InitLogger(viper.GetBool("logging.development"))

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
