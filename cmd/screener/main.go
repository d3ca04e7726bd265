package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nrebound/trader/internal/adapters"
	"github.com/nrebound/trader/internal/config"
	"github.com/nrebound/trader/internal/observ"
	"github.com/nrebound/trader/internal/scanner"
	"github.com/nrebound/trader/internal/signalstore"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		observ.Error("config_load_failed", err, map[string]any{"path": *cfgPath})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := signalstore.New(cfg.Data.Dir)
	if err != nil {
		observ.Error("store_init_failed", err, nil)
		os.Exit(1)
	}

	timeout := time.Duration(cfg.Data.FetchTimeoutSec) * time.Second
	universe := adapters.NewUniverse(cfg.Data.UniverseURL, cfg.Data.UniverseFile, timeout)
	symbols, err := universe.ListSymbols(ctx)
	if err != nil {
		observ.Error("universe_load_failed", err, nil)
		os.Exit(1)
	}

	history := adapters.NewTencentHistory(adapters.TencentHistoryConfig{
		URLTemplate: cfg.Data.HistoryURL,
		TimeoutSec:  cfg.Data.FetchTimeoutSec,
		RatePerSec:  cfg.Data.RatePerSec,
	})

	screener := scanner.NewScreener(history, store, cfg.Screener)
	signals, err := screener.Run(ctx, symbols)
	if err != nil {
		observ.Error("scan_failed", err, nil)
		os.Exit(1)
	}
	observ.Log("scan_done", map[string]any{"hits": len(signals)})
}
