// Package main is the entry point for the Polymates wallet tracker.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/polymates/engine/internal/config"
	"github.com/polymates/engine/internal/feed"
	"github.com/polymates/engine/internal/ingest"
	"github.com/polymates/engine/internal/metrics"
	"github.com/polymates/engine/internal/report"
	"github.com/polymates/engine/internal/store"
	"github.com/polymates/engine/internal/ui"
	"github.com/polymates/engine/internal/wallet"
)

// TradeChannelBuffer is the size of the buffered live-trade channel.
const TradeChannelBuffer = 256

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logger := setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("polymates starting",
		"version", "1.0.0",
	)

	slog.Info("config_loaded",
		"trades_url", cfg.TradesBaseURL,
		"markets_url", cfg.MarketsBaseURL,
		"ens_url", cfg.ENSBaseURL,
		"api_key", cfg.MaskedAPIKey(),
		"trade_limit", cfg.TradeLimit,
		"cache_ttl", cfg.CacheTTL,
		"state_path", cfg.StatePath,
		"enable_tui", cfg.EnableTUI,
		"enable_live_ws", cfg.EnableLiveWS,
	)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sink := report.NewSlogSink()
	tracker := metrics.NewTracker()

	// Local state and wallet registry
	state := store.OpenState(cfg.StatePath, sink)
	resolver := wallet.NewENSResolver(cfg.ENSBaseURL)
	registry := wallet.NewRegistry(state, resolver, sink)

	settings := store.DefaultSettings()
	state.Get(store.KeySettings, &settings)

	// Trade source: live API, or the deterministic demo source
	client := ingest.NewClient(cfg.TradesBaseURL, cfg.MarketsBaseURL, cfg.APIKey)
	var source feed.TradeSource = client
	if settings.DemoMode {
		slog.Info("demo_mode_enabled")
		source = ingest.NewDemoSource(time.Now())
	}
	metadata := ingest.NewMetadataResolver(client)

	// Live user-channel watcher (optional)
	var tradeChan chan store.Trade
	var watcher *ingest.UserWatcher
	if cfg.EnableLiveWS && !settings.DemoMode {
		tradeChan = make(chan store.Trade, TradeChannelBuffer)
		watcher = ingest.NewUserWatcher(cfg.UserWSURL, tradeChan)
		watcher.SetWallets(registry.Wallets())
		watcher.Start(ctx)
		tracker.SetWebSocketStatus("connecting")

		// Keep the subscription set in step with wallet add/remove.
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					watcher.SetWallets(registry.Wallets())
				}
			}
		}()
	}

	slog.Info("tracker_started",
		"wallets", len(registry.Wallets()),
		"tui_enabled", cfg.EnableTUI,
	)

	if cfg.EnableTUI {
		runTUI(ctx, cancel, sigChan, cfg, source, metadata, registry, sink, tracker, state, client, tradeChan)
	} else {
		runHeadless(ctx, sigChan, cfg, source, metadata, registry, sink, tracker)
	}
	cancel()

	// Graceful shutdown
	if watcher != nil {
		slog.Info("shutting_down", "status", "stopping watcher")
		watcher.Stop()
	}
	slog.Info("shutdown_complete")
}

// runTUI wires the feed service into the terminal UI and blocks until
// quit or signal.
func runTUI(ctx context.Context, cancel context.CancelFunc, sigChan <-chan os.Signal,
	cfg *config.Config, source feed.TradeSource, metadata feed.MetadataSource,
	registry *wallet.Registry, sink report.Sink, tracker *metrics.Tracker,
	state *store.StateStore, searcher ui.MarketSearcher, tradeChan <-chan store.Trade) {

	// The app is its own renderer, so build it first with a placeholder
	// service and swap in the real one.
	var app *ui.App
	svc := feed.NewService(source, metadata, registry, renderFunc(func(trades []store.Trade) {
		if app != nil {
			app.RenderFeed(trades)
		}
	}), sink, tracker, cfg.TradeLimit, cfg.CacheTTL)

	app = ui.NewApp(svc, registry, searcher, tracker, state, tradeChan)

	slog.Info("starting_tui")
	go func() {
		if err := app.Run(); err != nil {
			slog.Error("tui_error", "error", err)
		}
		cancel()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("shutdown_signal_received", "signal", sig.String())
		app.Stop()
	case <-ctx.Done():
		app.Stop()
	}
}

// runHeadless refreshes the feed on a timer and logs it, for running
// under a supervisor without a terminal.
func runHeadless(ctx context.Context, sigChan <-chan os.Signal, cfg *config.Config,
	source feed.TradeSource, metadata feed.MetadataSource, registry *wallet.Registry,
	sink report.Sink, tracker *metrics.Tracker) {

	svc := feed.NewService(source, metadata, registry, feed.NopRenderer{},
		sink, tracker, cfg.TradeLimit, cfg.CacheTTL)

	interval := cfg.CacheTTL
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logFeed(svc.Refresh(ctx))

	for {
		select {
		case sig := <-sigChan:
			slog.Info("shutdown_signal_received", "signal", sig.String())
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			logFeed(svc.Refresh(ctx))
		}
	}
}

// logFeed logs a one-line summary plus the newest few trades.
func logFeed(trades []store.Trade) {
	slog.Info("feed_refreshed", "trades", len(trades))
	for i, t := range trades {
		if i >= 5 {
			break
		}
		slog.Info("trade",
			"market", truncateID(t.MarketTitle),
			"outcome", t.Outcome,
			"side", t.Side,
			"price", t.Price,
			"size", t.Size,
			"wallet", truncateID(t.User),
		)
	}
}

// renderFunc adapts a function to the feed.Renderer interface.
type renderFunc func([]store.Trade)

func (f renderFunc) RenderFeed(trades []store.Trade) { f(trades) }

// truncateID shortens a string for logging.
func truncateID(id string) string {
	if len(id) <= 24 {
		return id
	}
	return id[:14] + "..." + id[len(id)-4:]
}

// setupLogger creates a structured logger with the specified level.
// Format: 2025-01-04 14:32:01 [INFO]  message key=value
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format("2006-01-02 15:04:05"))
				}
			}
			return a
		},
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}
