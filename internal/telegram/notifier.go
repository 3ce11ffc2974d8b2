// Package telegram posts console alerts to a Telegram group through the Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"aircraftconsole/internal/notify"
)

const defaultAPIBase = "https://api.telegram.org"

type Notifier struct {
	client      *http.Client
	apiBase     string
	botToken    string
	groupChatID string
}

type Option func(*Notifier)

// WithHTTPClient replaces the default 5s-timeout client.
func WithHTTPClient(c *http.Client) Option { return func(n *Notifier) { n.client = c } }

// WithAPIBase points the notifier at another Bot API host.
func WithAPIBase(base string) Option {
	return func(n *Notifier) { n.apiBase = strings.TrimRight(base, "/") }
}

// New returns notify.Noop when either the token or the group is unset.
func New(botToken, groupChatID string, opts ...Option) notify.Notifier {
	botToken, groupChatID = strings.TrimSpace(botToken), strings.TrimSpace(groupChatID)
	if botToken == "" || groupChatID == "" {
		return notify.Noop{}
	}
	n := &Notifier{
		client:      &http.Client{Timeout: 5 * time.Second},
		apiBase:     defaultAPIBase,
		botToken:    botToken,
		groupChatID: groupChatID,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

func (n *Notifier) NotifyGroup(ctx context.Context, msg string) {
	if err := n.send(ctx, n.groupChatID, msg); err != nil {
		slog.Warn("telegram.send", "err", err)
	}
}

func (n *Notifier) send(ctx context.Context, chatID, msg string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    msg,
	})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %s", resp.Status)
	}
	return nil
}
