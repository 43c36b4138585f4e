// Package cmd defines and implements the CLI commands for the albumcrawler
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/aotydata/album-crawler/internal/aoty"
	"github.com/aotydata/album-crawler/internal/api"
	"github.com/aotydata/album-crawler/internal/clock/system"
	"github.com/aotydata/album-crawler/internal/crawler"
	collyfetch "github.com/aotydata/album-crawler/internal/fetcher/colly"
	"github.com/aotydata/album-crawler/internal/fetcher/headless"
)

// newCrawlCmd creates the 'crawl' subcommand, which runs one crawl session to
// completion or interruption.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Starts the album metadata crawl",
		Long: `Runs a crawl session: seeds the genre index (or resumes from the
checkpoint), walks ratings lists and album pages under the per-host politeness
budget, and emits extracted album records to the configured sink.`,

		RunE: runCrawlCommand,
	}
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.GetLogger()

	cfg, err := crawler.LoadConfig(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load crawler config: %w", err)
	}

	session, cleanup, err := buildSession(cfg, appInstance)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resumed := false
	if cfg.Resume {
		resumed, err = session.Resume(ctx)
		if err != nil {
			return fmt.Errorf("resume session: %w", err)
		}
	}
	if !resumed {
		session.Seed(aoty.SeedTask(cfg))
	}

	var srv *api.Server
	if viper.GetBool("api.enabled") {
		srv = api.New(viper.GetString("api.addr"), appInstance.RunID(), session, nil, logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if serr := srv.Shutdown(shutdownCtx); serr != nil {
				logger.Warn("Status server shutdown failed", zap.Error(serr))
			}
		}()
	}

	stats, err := session.Run(ctx)
	logger.Info("Crawl command finished.",
		zap.Bool("resumed", resumed),
		zap.Int64("completed", stats.Completed),
		zap.Int64("failed", stats.Failed),
		zap.Int64("skipped", stats.Skipped),
		zap.Int64("emitted", stats.Emitted),
		zap.Int64("retries", stats.Retries),
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl session: %w", err)
	}
	return nil
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

func buildSession(cfg crawler.Config, appInstance App) (*crawler.Session, func(), error) {
	logger := appInstance.GetLogger()
	clock := system.New()

	primary := collyfetch.New(collyfetch.Config{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout,
	})

	var (
		fallback crawler.Transport
		cleanup  = func() {}
	)
	if cfg.HeadlessEnabled {
		browser, err := headless.NewChromedp(headless.Config{
			MaxParallel:       cfg.HeadlessMaxParallel,
			UserAgent:         cfg.UserAgent,
			NavigationTimeout: cfg.HeadlessNavTimeout,
			DomainQPS:         cfg.HeadlessDomainQPS,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init headless transport: %w", err)
		}
		fallback = browser
		cleanup = browser.Close
	}

	rate := crawler.NewHostRateController(cfg.BaseDelay, cfg.MaxDelay, cfg.RelaxAfter, clock)
	detector := crawler.NewSignatureDetector(cfg.BlockSignatures, cfg.BlockStatusCodes)
	pipeline := crawler.NewPipeline(primary, fallback, detector, rate, logger)

	router := crawler.NewRouter()
	aoty.RegisterHandlers(router, cfg, clock)

	session, err := crawler.NewSession(cfg, appInstance.RunID(), crawler.SessionDeps{
		Frontier:    crawler.NewFrontier(),
		Dedup:       crawler.NewDedupStore(),
		Rate:        rate,
		Fetcher:     pipeline,
		Router:      router,
		Sink:        appInstance.GetSink(),
		Checkpoints: appInstance.GetCheckpoints(),
		Retry:       crawler.NewExponentialRetryPolicy(cfg.MaxRetries, cfg.BaseDelay, cfg.MaxDelay),
		Clock:       clock,
		Hub:         appInstance.GetHub(),
		Logger:      logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("build session: %w", err)
	}
	return session, cleanup, nil
}
