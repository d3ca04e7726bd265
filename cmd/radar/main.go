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
	"github.com/nrebound/trader/internal/config"
	"github.com/nrebound/trader/internal/control"
	"github.com/nrebound/trader/internal/notify"
	"github.com/nrebound/trader/internal/observ"
	"github.com/nrebound/trader/internal/radar"
	"github.com/nrebound/trader/internal/signalstore"
	"github.com/nrebound/trader/internal/watchlist"
)

const stopFileName = "STOP_RADAR_SIGNAL"

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	metricsAddr := flag.String("metrics", "", "address for the metrics endpoint, empty to disable")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		observ.Error("config_load_failed", err, map[string]any{"path": *cfgPath})
		os.Exit(1)
	}

	store, err := signalstore.New(cfg.Data.Dir)
	if err != nil {
		observ.Error("store_init_failed", err, nil)
		os.Exit(1)
	}

	// No watchlist means nothing to monitor; that is a startup failure.
	watch, err := watchlist.Load(store, cfg.Radar.RangePosCeiling)
	if err != nil {
		observ.Error("watchlist_load_failed", err, nil)
		os.Exit(1)
	}
	if watch.Len() == 0 {
		observ.Log("watchlist_empty", nil)
		os.Exit(1)
	}

	quotes := adapters.NewCachedQuotes(adapters.NewSinaQuotes(adapters.SinaQuotesConfig{
		BaseURL:    cfg.Data.QuoteURL,
		ChunkSize:  cfg.Data.QuoteChunkSize,
		TimeoutSec: cfg.Data.FetchTimeoutSec,
		RatePerSec: cfg.Data.RatePerSec,
	}), time.Duration(cfg.Data.QuoteCacheTTLMs)*time.Millisecond)

	sinks := notify.Fanout{notify.LogSink{}}
	if cfg.Notify.TelegramToken != "" {
		tg, err := notify.NewTelegramSink(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		if err != nil {
			observ.Error("telegram_init_failed", err, nil)
		} else {
			sinks = append(sinks, tg)
		}
	}

	if *metricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(*metricsAddr, observ.Handler()); err != nil {
				observ.Error("metrics_server_failed", err, nil)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctrl := control.New(ctx, filepath.Join(cfg.Data.Dir, stopFileName))

	radar.New(quotes, watch, sinks, cfg.Radar).Run(ctrl)
}
