package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/polymates/engine/internal/store"
)

// Reconnection and heartbeat tuning for the user-channel watcher.
const (
	InitialBackoff   = 1 * time.Second
	MaxBackoff       = 60 * time.Second
	BackoffFactor    = 2.0
	JitterPercent    = 0.2
	HeartbeatTimeout = 60 * time.Second
	WriteTimeout     = 10 * time.Second
)

// UserWatcher maintains a WebSocket subscription to the user channel for
// the tracked wallets and pushes normalized trades onto a channel as they
// land. It is a live supplement to the polled feed: the aggregator's
// cache is invalidated on every delivered trade so the next refresh picks
// the event up through the canonical pipeline too.
type UserWatcher struct {
	url       string
	tradeChan chan<- store.Trade

	conn      *websocket.Conn
	connMu    sync.Mutex
	backoff   time.Duration
	lastMsg   time.Time
	lastMsgMu sync.RWMutex
	stopChan  chan struct{}
	wg        sync.WaitGroup

	walletsMu sync.RWMutex
	wallets   map[string]store.Wallet // keyed by lowercased address
}

// NewUserWatcher creates a watcher that delivers trades for the given
// wallets to tradeChan.
func NewUserWatcher(url string, tradeChan chan<- store.Trade) *UserWatcher {
	return &UserWatcher{
		url:       url,
		tradeChan: tradeChan,
		backoff:   InitialBackoff,
		stopChan:  make(chan struct{}),
		wallets:   make(map[string]store.Wallet),
	}
}

// SetWallets replaces the tracked wallet set and resubscribes on the
// live connection when one exists.
func (w *UserWatcher) SetWallets(wallets []store.Wallet) {
	w.walletsMu.Lock()
	w.wallets = make(map[string]store.Wallet, len(wallets))
	for _, wallet := range wallets {
		w.wallets[strings.ToLower(wallet.Address)] = wallet
	}
	w.walletsMu.Unlock()

	w.connMu.Lock()
	connected := w.conn != nil
	w.connMu.Unlock()
	if connected {
		if err := w.subscribe(); err != nil {
			slog.Warn("user_ws_resubscribe_failed", "error", err)
		}
	}
}

// Start begins the watcher with automatic reconnection.
func (w *UserWatcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.runLoop(ctx)

	w.wg.Add(1)
	go w.heartbeatMonitor(ctx)
}

// Stop gracefully shuts down the watcher.
func (w *UserWatcher) Stop() {
	close(w.stopChan)
	w.closeConnection()
	w.wg.Wait()
}

// runLoop handles connection, reading, and reconnection.
func (w *UserWatcher) runLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			slog.Info("user_ws_stopping", "reason", "context cancelled")
			return
		case <-w.stopChan:
			slog.Info("user_ws_stopping", "reason", "stop signal")
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			slog.Warn("user_ws_connect_failed", "error", err, "backoff", w.backoff)
			w.waitBackoff(ctx)
			continue
		}

		if err := w.readLoop(ctx); err != nil {
			slog.Debug("user_ws_read_error", "error", err)
		}

		w.closeConnection()

		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		default:
			w.waitBackoff(ctx)
		}
	}
}

// connect dials the user channel and subscribes to the tracked wallets.
func (w *UserWatcher) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	headers := http.Header{}
	headers.Set("Origin", "https://polymarket.com")

	url := w.url
	if !strings.HasSuffix(url, "/user") {
		url = strings.TrimSuffix(url, "/") + "/user"
	}

	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("%w: dial failed with status %d: %v", ErrFetch, resp.StatusCode, err)
		}
		return fmt.Errorf("%w: dial failed: %v", ErrFetch, err)
	}

	w.connMu.Lock()
	w.conn = conn
	w.connMu.Unlock()

	w.backoff = InitialBackoff
	slog.Info("user_ws_connected", "endpoint", url)

	if err := w.subscribe(); err != nil {
		return err
	}

	w.updateLastMsg()
	return nil
}

// subscribe sends the user-channel subscription message.
func (w *UserWatcher) subscribe() error {
	w.walletsMu.RLock()
	addresses := make([]string, 0, len(w.wallets))
	for addr := range w.wallets {
		addresses = append(addresses, addr)
	}
	w.walletsMu.RUnlock()

	msg := map[string]any{
		"type":  "user",
		"users": addresses,
	}

	w.connMu.Lock()
	defer w.connMu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("%w: connection is nil", ErrFetch)
	}

	w.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	if err := w.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("%w: send subscribe message: %v", ErrFetch, err)
	}

	slog.Info("user_ws_subscribed", "wallet_count", len(addresses))
	return nil
}

// readLoop reads messages until the connection errors or the watcher stops.
func (w *UserWatcher) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopChan:
			return nil
		default:
		}

		w.connMu.Lock()
		conn := w.conn
		w.connMu.Unlock()

		if conn == nil {
			return fmt.Errorf("%w: connection is nil", ErrFetch)
		}

		conn.SetReadDeadline(time.Now().Add(HeartbeatTimeout + WriteTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("%w: read: %v", ErrFetch, err)
		}

		w.updateLastMsg()
		w.handleMessage(message)
	}
}

// handleMessage parses an incoming payload, normalizes any trades owned
// by a tracked wallet, and dispatches them.
func (w *UserWatcher) handleMessage(data []byte) {
	for _, raw := range decodeTradePayload(data) {
		wallet, ok := w.ownerOf(raw)
		if !ok {
			continue
		}

		trade, err := NormalizeTrade(raw, wallet.Address)
		if err != nil {
			slog.Debug("user_ws_bad_trade", "error", err)
			continue
		}
		trade.Blockchain = wallet.Blockchain

		select {
		case w.tradeChan <- trade:
			slog.Debug("live_trade_received",
				"wallet", trade.User,
				"market", trade.MarketID,
				"side", trade.Side,
				"price", trade.Price,
			)
		default:
			slog.Warn("live_trade_channel_full", "dropped_trade", trade.ID)
		}
	}
}

// decodeTradePayload accepts a bare raw-trade object, an array of them,
// or an envelope wrapping them under "trades".
func decodeTradePayload(data []byte) []RawTrade {
	var raws []RawTrade
	if err := json.Unmarshal(data, &raws); err == nil {
		return raws
	}

	var single RawTrade
	if err := json.Unmarshal(data, &single); err != nil {
		return nil
	}

	if inner, ok := single["trades"]; ok {
		if encoded, err := json.Marshal(inner); err == nil {
			var nested []RawTrade
			if err := json.Unmarshal(encoded, &nested); err == nil {
				return nested
			}
		}
	}

	if len(single) > 0 {
		return []RawTrade{single}
	}
	return nil
}

// ownerOf matches a raw trade's address fields against the tracked set.
func (w *UserWatcher) ownerOf(raw RawTrade) (store.Wallet, bool) {
	w.walletsMu.RLock()
	defer w.walletsMu.RUnlock()

	for _, key := range []string{"user", "proxyWallet", "maker_address", "taker_address", "maker", "taker"} {
		addr := stringField(raw, key)
		if addr == "" {
			continue
		}
		if wallet, ok := w.wallets[strings.ToLower(addr)]; ok {
			return wallet, true
		}
	}
	return store.Wallet{}, false
}

// heartbeatMonitor pings the connection when traffic goes quiet.
func (w *UserWatcher) heartbeatMonitor(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.checkHeartbeat()
		}
	}
}

// checkHeartbeat verifies we've received messages recently.
func (w *UserWatcher) checkHeartbeat() {
	w.lastMsgMu.RLock()
	lastMsg := w.lastMsg
	w.lastMsgMu.RUnlock()

	if lastMsg.IsZero() || time.Since(lastMsg) <= HeartbeatTimeout {
		return
	}

	slog.Debug("user_ws_heartbeat_timeout", "elapsed", time.Since(lastMsg))

	w.connMu.Lock()
	conn := w.conn
	w.connMu.Unlock()

	if conn != nil {
		conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
		if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			slog.Warn("user_ws_ping_failed", "error", err)
			w.closeConnection()
		}
	}
}

// updateLastMsg updates the last message timestamp.
func (w *UserWatcher) updateLastMsg() {
	w.lastMsgMu.Lock()
	w.lastMsg = time.Now()
	w.lastMsgMu.Unlock()
}

// closeConnection safely closes the WebSocket connection.
func (w *UserWatcher) closeConnection() {
	w.connMu.Lock()
	defer w.connMu.Unlock()

	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
		slog.Info("user_ws_disconnected")
	}
}

// waitBackoff waits for the backoff duration with jitter.
func (w *UserWatcher) waitBackoff(ctx context.Context) {
	jitter := time.Duration(float64(w.backoff) * JitterPercent * (rand.Float64()*2 - 1))
	wait := w.backoff + jitter

	select {
	case <-ctx.Done():
	case <-w.stopChan:
	case <-time.After(wait):
	}

	w.backoff = time.Duration(float64(w.backoff) * BackoffFactor)
	if w.backoff > MaxBackoff {
		w.backoff = MaxBackoff
	}
}
