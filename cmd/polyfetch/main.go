package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"polyfetch/internal/config"
	"polyfetch/internal/gather"
	"polyfetch/internal/metrics"
	"polyfetch/internal/polygon"
	"polyfetch/internal/store"
	"polyfetch/internal/util"
)

const version = "0.1.0"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: polyfetch <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  tickers    Fetch the ticker universe into <data_dir>/tickers.parquet\n")
	fmt.Fprintf(os.Stderr, "  ohlc       Fetch OHLC bars into <data_dir>/<mult>_<timeframe>/<date>.parquet\n")
	fmt.Fprintf(os.Stderr, "  version    Print the version\n")
	fmt.Fprintf(os.Stderr, "\nRun 'polyfetch <command> -h' for command options.\n")
}

func main() {
	flag.Usage = usage
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch cmd := os.Args[1]; cmd {
	case "version":
		fmt.Printf("polyfetch %s\n", version)

	case "tickers", "ohlc":
		if err := run(cmd, os.Args[2:]); err != nil {
			log.Fatalf("%s: %v", cmd, err)
		}

	case "-h", "-help", "--help", "help":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(2)
	}
}

func run(cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cfgPath := fs.String("config", config.Path(), "path to the YAML config file")
	schedule := fs.String("schedule", "", "cron spec; run repeatedly instead of once (overrides schedule.cron)")
	ov := registerOverrides(fs, cmd)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	ov.apply(fs, &cfg.Gather)
	if *schedule != "" {
		cfg.Schedule.Cron = *schedule
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rec := metrics.New()
	if cfg.Metrics.Addr != "" {
		go serveMetrics(ctx, cfg.Metrics.Addr, rec, logger)
	}

	client, err := polygon.NewClient(polygon.Config{
		APIKey:            cfg.Polygon.APIKey,
		BaseURL:           cfg.Polygon.BaseURL,
		MaxAttempts:       cfg.Polygon.MaxAttempts,
		BackoffBase:       cfg.Polygon.BackoffBase,
		Timeout:           cfg.Polygon.Timeout,
		SoftErrorCooldown: cfg.Polygon.SoftErrorCooldown,
		RateLimitPerMin:   cfg.Polygon.RateLimitPerMin,
	}, polygon.WithLogger(logger.With("component", "polygon")), polygon.WithMetrics(rec))
	if err != nil {
		return err
	}

	loc, err := cfg.Gather.Location()
	if err != nil {
		return fmt.Errorf("loading timezone: %w", err)
	}
	job, err := newJob(cmd, cfg.Gather, loc, jobDeps{
		collector: gather.NewCollector(client, rec, logger),
		store:     store.NewParquetStore(cfg.Storage.DataDir),
		metrics:   rec,
		log:       logger,
	})
	if err != nil {
		return err
	}

	if cfg.Schedule.Cron != "" {
		return gather.Schedule(ctx, cfg.Schedule.Cron, loc, job, logger)
	}

	slog.Info("starting polyfetch", "job", job.Name(), "dataDir", cfg.Storage.DataDir, "baseURL", client.BaseURL())
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		return err
	}
	slog.Info("polyfetch finished", "job", job.Name(), "elapsed", time.Since(start))
	return nil
}

// serveMetrics exposes the Prometheus registry on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, rec *metrics.Recorder, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown error", "error", err)
		}
	}()

	logger.Info("metrics listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server error", "error", err)
	}
}
