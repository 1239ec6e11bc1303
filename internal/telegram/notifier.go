package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Twiddllo/v2ray-healthcheck/internal/model"
	"github.com/Twiddllo/v2ray-healthcheck/internal/report"
)

// Notifier pushes run summaries to a Telegram chat. Rate-limited to stay
// under the Bot API's 30 msg/s ceiling.
type Notifier struct {
	botToken string
	chatID   string
	client   *http.Client
	limiter  *rate.Limiter
}

func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(time.Second/30), 1),
	}
}

// SendSummary posts the stage counters and the fastest endpoints.
func (n *Notifier) SendSummary(ctx context.Context, stats report.Stats, working []model.ProbeResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Health check complete: %d working configs\n", len(working))
	fmt.Fprintf(&b, "%s\n", stats)

	for i, r := range report.Top(working, 5) {
		fmt.Fprintf(&b, "%d. [%s] %dms %s\n",
			i+1, strings.ToUpper(string(r.Config.Protocol)),
			r.Latency.Milliseconds(), r.Config.DisplayName)
	}

	return n.SendMessage(ctx, b.String())
}

func (n *Notifier) SendMessage(ctx context.Context, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	body, err := json.Marshal(map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: %s - %s", resp.Status, string(detail))
	}
	return nil
}
