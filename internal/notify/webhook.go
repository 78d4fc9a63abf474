package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Webhook pushes recomputed next-trigger metadata to an operator-configured
// callback URL. Pushes are best-effort: the caller logs failures and moves on.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a callback URL was configured.
func (w *Webhook) Enabled() bool { return w != nil && w.url != "" }

type event struct {
	TriggerID   string     `json:"trigger_id"`
	WorkflowID  string     `json:"workflow_id"`
	NextTrigger *time.Time `json:"next_trigger"`
	ComputedAt  time.Time  `json:"computed_at"`
}

// Push sends one next-trigger update. 4xx/5xx responses are mapped to errors.
func (w *Webhook) Push(ctx context.Context, triggerID, workflowID string, next *time.Time, computedAt time.Time) error {
	if !w.Enabled() {
		return nil
	}

	body, err := json.Marshal(event{
		TriggerID:   triggerID,
		WorkflowID:  workflowID,
		NextTrigger: next,
		ComputedAt:  computedAt,
	})
	if err != nil {
		return fmt.Errorf("encode next-trigger event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned HTTP %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}
