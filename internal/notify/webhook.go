package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/devpulse/pkg/retry"
)

const maxErrorBody = 512

// Poster delivers a rendered message.
type Poster interface {
	Post(ctx context.Context, text string) error
}

// Webhook posts {"text": ...} to a chat incoming-webhook URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a Webhook. A nil client uses a 10 second timeout.
func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{url: strings.TrimSpace(url), client: client}
}

type webhookPayload struct {
	Text string `json:"text"`
}

// Post sends text. Client errors other than 408 and 429 are permanent.
func (w *Webhook) Post(ctx context.Context, text string) error {
	if w.url == "" {
		return retry.Permanent(ErrMissingWebhook)
	}
	body, err := json.Marshal(webhookPayload{Text: text})
	if err != nil {
		return retry.Permanent(fmt.Errorf("encode payload: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err = fmt.Errorf("%w: status %d: %s", ErrDelivery, resp.StatusCode, strings.TrimSpace(string(snippet)))
	switch {
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusTooManyRequests:
		return err
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return retry.Permanent(err)
	default:
		return err
	}
}
