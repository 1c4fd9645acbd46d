// Package notify delivers operator messages to a chat room through an Iris relay.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds relay settings.
type Config struct {
	URL     string
	Room    string
	Timeout time.Duration
}

// Iris posts text messages to {URL}/reply.
type Iris struct {
	url    string
	room   string
	client *http.Client
	logger *zap.Logger
}

type replyRequest struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Data string `json:"data"`
}

// NewIris creates a relay notifier.
func NewIris(cfg Config, logger *zap.Logger) *Iris {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Iris{
		url:    strings.TrimRight(cfg.URL, "/"),
		room:   cfg.Room,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Notify sends message to the configured room. Without a room the message is
// dropped with a warning. Delivery failures are logged and returned.
func (n *Iris) Notify(ctx context.Context, message string) error {
	if n.room == "" || n.url == "" {
		n.logger.Warn("Notification room not configured, skipping")
		return nil
	}

	body, err := json.Marshal(replyRequest{Type: "text", Room: n.room, Data: message})
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url+"/reply", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Error("Notification delivery failed", zap.Error(err))
		return fmt.Errorf("post reply: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		n.logger.Warn("Notification relay returned non-200", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("relay status %d", resp.StatusCode)
	}
	n.logger.Info("Notification sent")
	return nil
}
