package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"indexbt/internal/application/usecase/backtest"
	"indexbt/internal/infrastructure/config"
	"indexbt/internal/infrastructure/logger"
	"indexbt/internal/infrastructure/metrics"
	"indexbt/internal/infrastructure/svc"

	"github.com/rs/zerolog/log"
)

type options struct {
	configPath string
	importPath string
	exchange   string
	importOnly bool
	serve      bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "configs/config.toml", "path to config.toml")
	flag.StringVar(&opts.importPath, "import", "", "CSV of daily candles to import before the backtest")
	flag.StringVar(&opts.exchange, "exchange", "csv", "exchange name recorded for imported candles")
	flag.BoolVar(&opts.importOnly, "import-only", false, "import candles and exit")
	flag.BoolVar(&opts.serve, "serve", false, "keep serving /metrics after the backtest until interrupted")
	flag.Parse()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		logger.Setup("info")
		log.Fatal().Err(err).Str("config", opts.configPath).Msg("load config failed")
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, opts)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("indexbt failed")
		os.Exit(1)
	}
}

// run 返回前总会关闭 ServiceContext
func run(ctx context.Context, cfg *config.Config, opts options) error {
	sc, err := svc.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("service context initialization failed: %w", err)
	}
	defer sc.Close()

	if opts.importPath != "" {
		f, err := os.Open(opts.importPath)
		if err != nil {
			return fmt.Errorf("open candles: %w", err)
		}
		n, err := sc.ImportCandles(ctx, f, opts.exchange)
		f.Close()
		if err != nil {
			return fmt.Errorf("import candles from %s: %w", opts.importPath, err)
		}
		log.Info().Str("file", opts.importPath).Int("candles", n).Msg("import done")
		if opts.importOnly {
			return nil
		}
	}

	if err := sc.CheckCandles(ctx); err != nil {
		return fmt.Errorf("no prices to replay in %s: %w", cfg.Backtest.Quote, err)
	}

	serveErr := make(chan error, 1)
	if cfg.Metrics.Enabled {
		go func() { serveErr <- metrics.Serve(ctx, cfg.Metrics.Addr) }()
	}

	log.Info().
		Str("config", opts.configPath).
		Str("start", cfg.Backtest.Start.String()).
		Str("end", cfg.Backtest.End.String()).
		Int("cadence_days", cfg.Backtest.CadenceDays).
		Int("top_n", cfg.Backtest.TopN).
		Msg("indexbt started")

	bt := backtest.NewService(sc.BuildBacktestServiceDeps(), cfg.App.Color)
	if _, err := bt.Run(ctx); err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.PushURL != "" {
		if err := metrics.Push(ctx, cfg.Metrics.PushURL, cfg.Metrics.PushJob, nil); err != nil {
			log.Warn().Err(err).Msg("metrics push failed")
		}
	}

	if opts.serve && !cfg.Metrics.Enabled {
		log.Warn().Msg("-serve ignored, metrics are disabled")
	}
	if cfg.Metrics.Enabled && opts.serve {
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("backtest done, serving metrics until interrupted")
		select {
		case <-ctx.Done():
		case err := <-serveErr:
			return err
		}
	}
	return nil
}
