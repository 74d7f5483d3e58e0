package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/nitinkhare/tradingorchestrator/internal/signals"
)

const telegramAPIBase = "https://api.telegram.org"

// telegramNotifier posts a short text summary to a Telegram chat via the
// bot API's sendMessage method. Delivery failures are logged and
// swallowed; a dead chat or an expired token must never interrupt a
// decision cycle.
type telegramNotifier struct {
	token  string
	chatID string
	client *http.Client
	logger *log.Logger
}

// NewTelegramNotifier returns a Notifier backed by a Telegram bot, or
// nil if token or chatID is empty.
func NewTelegramNotifier(token, chatID string, logger *log.Logger) Notifier {
	if token == "" || chatID == "" {
		return nil
	}
	return &telegramNotifier{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (t *telegramNotifier) NotifyCycleSummary(ctx context.Context, summary signals.ExecutionSummary) {
	mode := "paper"
	if summary.IsReal {
		mode = "live"
	}
	text := fmt.Sprintf("[%s] budget %s, spent %s, bought %d, failed %d",
		mode, summary.Budget, summary.TotalSpent, len(summary.Bought), len(summary.Failed))
	t.send(ctx, text)
}

func (t *telegramNotifier) NotifySellSignals(ctx context.Context, sells []signals.SellSignal) {
	for _, s := range sells {
		text := fmt.Sprintf("sell %s: %s (%s%% return at %s)", s.Ticker, s.SignalType, s.ReturnPct, s.TriggerPrice)
		t.send(ctx, text)
	}
}

func (t *telegramNotifier) send(ctx context.Context, text string) {
	body, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	})
	if err != nil {
		t.logger.Printf("[notifier:telegram] encode message: %v", err)
		return
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.logger.Printf("[notifier:telegram] build request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Printf("[notifier:telegram] send: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		t.logger.Printf("[notifier:telegram] unexpected status %d", resp.StatusCode)
	}
}
