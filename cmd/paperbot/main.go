package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nrebound/trader/internal/adapters"
	"github.com/nrebound/trader/internal/broker"
	"github.com/nrebound/trader/internal/config"
	"github.com/nrebound/trader/internal/control"
	"github.com/nrebound/trader/internal/ledger"
	"github.com/nrebound/trader/internal/observ"
	"github.com/nrebound/trader/internal/portfolio"
	"github.com/nrebound/trader/internal/scanner"
	"github.com/nrebound/trader/internal/schedule"
	"github.com/nrebound/trader/internal/scorer"
	"github.com/nrebound/trader/internal/signalstore"
	"github.com/nrebound/trader/internal/watchlist"
)

const stopFileName = "STOP_PAPERBOT_SIGNAL"

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	metricsAddr := flag.String("metrics", "", "address for the metrics endpoint, empty to disable")
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

	// A stale or missing signal set means the screener runs synchronously
	// before any live loop starts.
	if schedule.NeedsScan(store, time.Duration(cfg.Broker.StalenessHours)*time.Hour) {
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
		if _, err := scanner.NewScreener(history, store, cfg.Screener).Run(ctx, symbols); err != nil {
			observ.Error("scan_failed", err, nil)
			os.Exit(1)
		}
	}

	watch, err := watchlist.Load(store, cfg.Radar.RangePosCeiling)
	if err != nil {
		observ.Error("watchlist_load_failed", err, nil)
		os.Exit(1)
	}

	pf := portfolio.NewManager(filepath.Join(cfg.Data.Dir, "portfolio.json"), cfg.Broker.TotalCapital)
	if err := pf.Load(); err != nil {
		observ.Error("portfolio_load_failed", err, nil)
		os.Exit(1)
	}

	book, err := ledger.New(filepath.Join(cfg.Data.Dir, "trade_history.csv"))
	if err != nil {
		observ.Error("ledger_init_failed", err, nil)
		os.Exit(1)
	}

	var gate scorer.Scorer
	if cfg.Scorer.URL != "" {
		gate = scorer.NewHTTPScorer(cfg.Scorer.URL, time.Duration(cfg.Scorer.TimeoutSec)*time.Second)
	} else {
		// No model wired up: flat score the strategy was tuned against.
		gate = scorer.Fixed{Score: 65, Advice: "no scorer configured"}
	}

	quotes := adapters.NewCachedQuotes(adapters.NewSinaQuotes(adapters.SinaQuotesConfig{
		BaseURL:    cfg.Data.QuoteURL,
		ChunkSize:  cfg.Data.QuoteChunkSize,
		TimeoutSec: cfg.Data.FetchTimeoutSec,
		RatePerSec: cfg.Data.RatePerSec,
	}), time.Duration(cfg.Data.QuoteCacheTTLMs)*time.Millisecond)

	if *metricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(*metricsAddr, observ.Handler()); err != nil {
				observ.Error("metrics_server_failed", err, nil)
			}
		}()
	}

	ctrl := control.New(ctx, filepath.Join(cfg.Data.Dir, stopFileName))
	if err := broker.New(quotes, gate, pf, book, watch, cfg.Broker).Run(ctrl); err != nil {
		os.Exit(1)
	}
}
