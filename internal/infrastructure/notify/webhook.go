// Package notify delivers lifecycle notifications to chat. Both transports
// implement ports.Notifier.
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

const defaultHTTPTimeout = 10 * time.Second

// webhookPayload is the body accepted by chat incoming webhooks.
type webhookPayload struct {
	Content   string `json:"content"`
	ChannelID string `json:"channel_id,omitempty"`
	Recipient string `json:"recipient_id,omitempty"`
}

// WebhookNotifier posts messages to a chat incoming-webhook URL. Direct
// messages are posted to the same URL with the recipient set; the receiving
// bot is responsible for routing them.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &WebhookNotifier{url: url, client: client}
}

func (n *WebhookNotifier) Notify(ctx context.Context, channelID, message string) error {
	return n.post(ctx, webhookPayload{Content: message, ChannelID: channelID})
}

func (n *WebhookNotifier) DirectMessage(ctx context.Context, userExternalID, message string) error {
	return n.post(ctx, webhookPayload{Content: message, Recipient: userExternalID})
}

func (n *WebhookNotifier) post(ctx context.Context, p webhookPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}
