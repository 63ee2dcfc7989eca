package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"eventscout/internal/cache"
	"eventscout/internal/config"
	appLog "eventscout/internal/log"
	"eventscout/internal/metrics"
	"eventscout/internal/providers"
	"eventscout/internal/view"
	"eventscout/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	category   string
	dump       bool
}

func main() {
	appLog.Info("eventscout starting", "version", "0.1.0")

	flags := parseFlags()

	// API tokens live in the environment; a .env file is a convenience for
	// development and is skipped silently when absent.
	if err := godotenv.Load(); err == nil {
		appLog.Info("loaded environment from .env")
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"log_level", conf.LogLevel,
		"ttl_seconds", conf.TTLSeconds,
		"refresh", conf.RefreshCron,
		"warm_categories", fmt.Sprint(conf.WarmCategories),
		"similarity_threshold", conf.Matching.SimilarityThreshold,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	m := metrics.New(nil)
	store := cache.NewStore(cache.WithFuzzyPrefixChars(conf.Matching.FuzzyPrefixChars))
	agg := providers.NewAggregator(store, time.Duration(conf.TTLSeconds)*time.Second, m, buildFetchers(conf)...)

	if flags.once {
		runOnce(ctx, conf, agg, flags)
		return
	}

	// Warm the configured categories up front so the first API call does
	// not pay the full fetch latency.
	warmAll(ctx, conf, agg)

	// Background refresh on the configured cron schedule.
	var scheduler *cron.Cron
	if conf.RefreshCron != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(conf.RefreshCron, func() {
			warmAll(ctx, conf, agg)
		})
		if err != nil {
			appLog.Error("invalid refresh cron spec; background refresh disabled", err, "refresh", conf.RefreshCron)
		} else {
			scheduler.Start()
			appLog.Info("background refresh scheduled", "refresh", conf.RefreshCron)
		}
	}

	srv := &http.Server{
		Addr:    conf.Listen,
		Handler: web.NewServer(conf, agg, m).Handler(),
	}

	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP shutdown failed", err)
	}

	appLog.Info("eventscout exiting")
}

// runOnce warms a single category and prints the minimal view, which is
// handy for checking credentials and category routing from the shell.
func runOnce(ctx context.Context, conf *config.Config, agg *providers.Aggregator, flags flagConfig) {
	category := flags.category
	if category == "" && len(conf.WarmCategories) > 0 {
		category = conf.WarmCategories[0]
	}

	errs := agg.WarmCategory(ctx, category, true)
	for _, fe := range errs {
		appLog.Error("once: source failed", fe, "source", fe.Source)
	}

	text := view.Minimal(agg.Store(), view.MinimalOptions{
		Category:  category,
		Threshold: conf.Matching.SimilarityThreshold,
		Limit:     conf.Minimal.DefaultLimit,
		NameChars: conf.Minimal.NameChars,
		DateChars: conf.Minimal.DateChars,
		DescChars: conf.Minimal.DescChars,
	})
	if text == "" {
		fmt.Println("no events found")
	} else {
		fmt.Println(text)
	}

	if flags.dump {
		st := agg.Store().Stats()
		fmt.Printf("total=%d by_source=%v memory_kb=%.1f\n", st.TotalEvents, st.BySource, st.MemoryEstimateKB)
	}
}

// warmAll refreshes every configured category, respecting per-source TTLs.
func warmAll(ctx context.Context, conf *config.Config, agg *providers.Aggregator) {
	for _, category := range conf.WarmCategories {
		if ctx.Err() != nil {
			return
		}
		errs := agg.WarmCategory(ctx, category, false)
		if len(errs) > 0 {
			appLog.Warn("warm finished with errors", "category", category, "error_count", len(errs))
		}
	}
}

// buildFetchers assembles the enabled provider adapters.
func buildFetchers(conf *config.Config) []providers.Fetcher {
	fetchers := make([]providers.Fetcher, 0, 3)
	if conf.Providers.Brussels {
		fetchers = append(fetchers, providers.NewBrussels())
	}
	if conf.Providers.Ticketmaster {
		fetchers = append(fetchers, providers.NewTicketmaster(conf.Providers.CountryCode, conf.Providers.City))
	}
	if conf.Providers.Eventbrite {
		fetchers = append(fetchers, providers.NewEventbrite(conf.Providers.EventbriteVenues))
	}
	return fetchers
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/eventscout/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Warm one category, print the minimal view and exit")
	flag.StringVar(&cfg.category, "category", "", "Category for -once (defaults to the first warm category)")
	flag.BoolVar(&cfg.dump, "dump", false, "Print cache stats after -once")

	flag.Parse()

	return cfg
}
