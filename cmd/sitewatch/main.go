package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"sitewatch/internal/config"
	"sitewatch/internal/fetch"
	"sitewatch/internal/index"
	"sitewatch/internal/manifest"
	"sitewatch/internal/monitoring"
	"sitewatch/internal/pipeline"
	"sitewatch/internal/report"
	"sitewatch/internal/site"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	dryRun := flag.Bool("dry-run", false, "search and match only, download nothing")
	flag.Parse()

	// Bootstrap logger; replaced once the configured log path is known.
	logger, _ := zap.NewProduction()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}
	if *dryRun {
		cfg.DryRun = true
	}

	for _, p := range []string{cfg.LogPath, cfg.IndexPath, cfg.SuccessPath, cfg.FailuresPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			logger.Fatal("could not create output directory", zap.String("path", p), zap.Error(err))
		}
	}

	logger, err = buildLogger(cfg.LogPath)
	if err != nil {
		logger.Fatal("could not open log file", zap.Error(err))
	}
	defer logger.Sync()

	fs := afero.NewOsFs()

	rows, err := manifest.Read(fs, cfg.ManifestPath, logger)
	if err != nil {
		logger.Fatal("could not read manifest", zap.Error(err))
	}
	if len(rows) == 0 {
		logger.Warn("manifest has no usable rows")
	}

	idx, err := index.Load(fs, cfg.IndexPath)
	if err != nil {
		logger.Fatal("could not load download index", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	var metricsServer *monitoring.Server
	if cfg.MetricsListen != "" {
		metricsServer = monitoring.NewServer(cfg.MetricsListen, registry, logger)
		go metricsServer.Start()
	}

	client := fetch.NewClient(cfg.Timeout(), cfg.UserAgent)
	renderer := fetch.NewRenderer(cfg.Timeout(), cfg.UserAgent)
	defer renderer.Close()

	sites := site.NewRegistry(cfg.SiteOverrides, client, renderer, logger)
	reports := report.NewWriter(fs, cfg.SuccessPath, cfg.FailuresPath)
	engine := pipeline.NewEngine(cfg, sites, idx, fs, client, reports, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("run starting",
		zap.Int("rows", len(rows)),
		zap.Bool("dry_run", cfg.DryRun))

	runErr := engine.Run(ctx, rows)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", zap.Error(err))
		}
		cancel()
	}

	if runErr != nil {
		logger.Fatal("run failed", zap.Error(runErr))
	}
	logger.Info("run complete", zap.Int("index_entries", idx.Len()))
}

// buildLogger writes production-formatted logs to both stdout and the
// configured log file.
func buildLogger(logPath string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{"stdout", logPath}
	return zapCfg.Build()
}
