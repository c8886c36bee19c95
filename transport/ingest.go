// Package transport implements the WebSocket ingest worker: a
// single-threaded consumer that dials the trade/quote stream and invokes
// the engine's OnTrade/OnQuote in delivery order, with the
// reconnect-and-health-monitor loop the production deployment runs under.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"momentumsentry/clock"
)

// Handler is the narrow interface the engine exposes to the ingest
// worker — the worker never reasons about bars, flags, or alerts.
type Handler interface {
	OnTrade(symbol string, price float64, size int64, ts time.Time) error
	OnQuote(symbol string, bid, ask float64, bidSize, askSize int64, ts time.Time) error
}

// rawMessage is the wire envelope: a type discriminator plus the fields
// relevant to that type. Unknown types and malformed fields are skipped,
// not fatal.
type rawMessage struct {
	Type    string  `json:"type"`
	Symbol  string  `json:"symbol"`
	Price   float64 `json:"price"`
	Size    int64   `json:"size"`
	Bid     float64 `json:"bid"`
	Ask     float64 `json:"ask"`
	BidSize int64   `json:"bid_size"`
	AskSize int64   `json:"ask_size"`
	Ts      int64   `json:"ts"` // seconds, millis, or nanos since epoch — caller normalizes
}

// Worker owns the WebSocket connection lifecycle: dial, read loop,
// reconnect with backoff, and a health monitor that forces a reconnect
// when no message has arrived recently.
type Worker struct {
	url     string
	header  http.Header
	handler Handler

	conn        *websocket.Conn
	lastMsgTime time.Time
}

// NewWorker builds an ingest worker for the given stream URL.
func NewWorker(url string, header http.Header, handler Handler) *Worker {
	if header == nil {
		header = make(http.Header)
	}
	return &Worker{url: url, header: header, handler: handler, lastMsgTime: time.Now()}
}

// Connect dials the WebSocket endpoint.
func (w *Worker) Connect() error {
	log.Printf("🔌 connecting to ingest stream %s", w.url)
	conn, _, err := websocket.DefaultDialer.Dial(w.url, w.header)
	if err != nil {
		return fmt.Errorf("ingest connect failed: %w", err)
	}
	w.conn = conn
	log.Println("✅ ingest stream connected")
	return nil
}

func (w *Worker) Close() error {
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// Run reads messages until ctx is canceled, reconnecting with exponential
// backoff on transient errors. The event ts (sec/ms/ns) is normalized with
// clock.NormalizeEpoch in dispatch, before the handler is called.
func (w *Worker) Run(ctx context.Context) {
	backoff := 2 * time.Second
	const maxBackoff = 60 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if w.conn == nil {
			if err := w.Connect(); err != nil {
				log.Printf("⚠️  %v, retrying in %v", err, backoff)
				if !sleepOrDone(ctx, backoff) {
					return
				}
				backoff = nextBackoff(backoff, maxBackoff)
				continue
			}
			backoff = 2 * time.Second
		}

		_, data, err := w.conn.ReadMessage()
		if err != nil {
			log.Printf("⚠️  ingest read error: %v", err)
			_ = w.Close()
			w.conn = nil
			if !sleepOrDone(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		w.lastMsgTime = time.Now()
		w.dispatch(data)
	}
}

func (w *Worker) dispatch(data []byte) {
	var msg rawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("⚠️  malformed ingest message, skipping: %v", err)
		return
	}

	ts := clock.NormalizeEpoch(msg.Ts)
	switch msg.Type {
	case "trade":
		if msg.Symbol == "" || msg.Price <= 0 || msg.Size <= 0 {
			return
		}
		if err := w.handler.OnTrade(msg.Symbol, msg.Price, msg.Size, ts); err != nil {
			log.Printf("⚠️  OnTrade failed for %s: %v", msg.Symbol, err)
		}
	case "quote":
		if msg.Symbol == "" {
			return
		}
		if err := w.handler.OnQuote(msg.Symbol, msg.Bid, msg.Ask, msg.BidSize, msg.AskSize, ts); err != nil {
			log.Printf("⚠️  OnQuote failed for %s: %v", msg.Symbol, err)
		}
	default:
		// unrecognized message types (heartbeats, acks) are ignored
	}
}

// RunHealthMonitor forces a reconnect if no message has arrived within the
// stale window, mirroring the reconnect-and-health-monitor loop the
// production deployment runs under.
func (w *Worker) RunHealthMonitor(ctx context.Context, stale time.Duration) {
	ticker := time.NewTicker(stale / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Since(w.lastMsgTime) > stale {
				log.Printf("⚠️  no ingest message for %v, forcing reconnect", stale)
				_ = w.Close()
				w.conn = nil
			}
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	cur *= 2
	if cur > max {
		return max
	}
	return cur
}
