// Package sink implements the detector.Sink contract: a write-only
// interface with a boolean success return. A failed send is logged and
// reported as false; the call itself is synchronous.
package sink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"momentumsentry/detector"
)

// Telegram posts each alert as a JSON payload to a Telegram bot's
// sendMessage endpoint: one attempt per alert with a 10-second client
// timeout, no retry, since alert delivery has no durability guarantee.
type Telegram struct {
	botToken string
	chatID   string
	client   *http.Client
}

// NewTelegram builds a sink posting to https://api.telegram.org/bot<token>/sendMessage.
func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Send formats the alert and POSTs it. A non-2xx response or network error
// is logged and treated as a lost alert. Send returns once the request
// completes or the 10-second client timeout expires; it never panics.
func (s *Telegram) Send(a detector.Alert) bool {
	text := Format(a)
	payload, err := json.Marshal(telegramRequest{ChatID: s.chatID, Text: text, ParseMode: "Markdown"})
	if err != nil {
		log.Printf("⚠️  failed to marshal alert payload: %v", err)
		return false
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)
	resp, err := s.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Printf("⚠️  alert sink request failed for %s: %v", a.Symbol, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("⚠️  alert sink returned status %d for %s", resp.StatusCode, a.Symbol)
		return false
	}
	return true
}

// Format renders an alert as the human-readable text the sink transmits.
func Format(a detector.Alert) string {
	spread := "unknown"
	if a.SpreadRatio != nil {
		spread = fmt.Sprintf("%.4f", *a.SpreadRatio)
	}

	base := fmt.Sprintf("*%s* %s @ %s\nPrice: %.2f (%.2f%%) | RelVol: %.2fx | Vol: %d | Trades: %d\nVWAP: %.2f | Spread: %s | Quality: %.1f",
		a.Symbol, a.Stage, a.Ts.Format("15:04:05"), a.EntryPrice, a.PctChange, a.RelVol, a.Volume, a.TradeCount, a.VWAP, spread, a.Quality)

	if a.Stage == detector.StageTwoConfirmed {
		setup := 0.0
		if a.SetupPrice != nil {
			setup = *a.SetupPrice
		}
		expansion := 0.0
		if a.ExpansionPct != nil {
			expansion = *a.ExpansionPct
		}
		base += fmt.Sprintf("\nSetup: %.2f | Expansion: %.2f%% | Path: %s", setup, expansion, a.Path)
	}
	return base
}

// Null discards every alert — used when DISABLE_NOTIFICATIONS is set.
type Null struct{}

func (Null) Send(detector.Alert) bool { return true }
