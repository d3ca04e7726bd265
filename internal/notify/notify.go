package notify

import (
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/nrebound/trader/internal/observ"
)

// Alert is one radar trigger. Presentation is a sink concern; the radar only
// emits these.
type Alert struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	PctChange float64   `json:"pct_change"`
	At        time.Time `json:"at"`
}

// Sink consumes alert batches. Sinks must not block the polling loop for
// long; slow delivery is the sink's problem to buffer.
type Sink interface {
	Publish(batch []Alert)
	Shutdown()
}

// LogSink writes alerts to the structured event log.
type LogSink struct{}

func (LogSink) Publish(batch []Alert) {
	for _, a := range batch {
		observ.Log("radar_alert", map[string]any{
			"id": a.ID, "symbol": a.Symbol, "name": a.Name,
			"price": a.Price, "pct_change": a.PctChange,
		})
	}
}

func (LogSink) Shutdown() {
	observ.Log("radar_stopped", nil)
}

// TelegramSink pushes alert batches to a Telegram chat.
type TelegramSink struct {
	bot  *tele.Bot
	chat *tele.Chat
}

func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramSink{bot: bot, chat: &tele.Chat{ID: chatID}}, nil
}

func (t *TelegramSink) Publish(batch []Alert) {
	if len(batch) == 0 {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Rebound triggers (%d):\n", len(batch))
	for _, a := range batch {
		fmt.Fprintf(&b, "%s %s  +%.2f%%  @%.2f\n", a.Symbol, a.Name, a.PctChange, a.Price)
	}
	if _, err := t.bot.Send(t.chat, b.String()); err != nil {
		observ.Error("telegram_send_failed", err, map[string]any{"alerts": len(batch)})
	}
}

func (t *TelegramSink) Shutdown() {
	if _, err := t.bot.Send(t.chat, "Radar monitoring stopped."); err != nil {
		observ.Error("telegram_send_failed", err, nil)
	}
}

// Fanout delivers each batch to every sink.
type Fanout []Sink

func (f Fanout) Publish(batch []Alert) {
	for _, s := range f {
		s.Publish(batch)
	}
}

func (f Fanout) Shutdown() {
	for _, s := range f {
		s.Shutdown()
	}
}
