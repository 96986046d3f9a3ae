// Package alert delivers failure notifications for scheduled runs.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	c "github.com/relloyd/engagement/constants"
	"github.com/relloyd/engagement/logger"
)

// Notification describes one failed attempt of a scheduled run.
type Notification struct {
	DefinitionID string    `json:"definitionId"`
	TaskID       string    `json:"taskId"`
	RunID        string    `json:"runId"`
	LogicalDate  time.Time `json:"logicalDate"`
	Attempt      int       `json:"attempt"`
	MaxAttempts  int       `json:"maxAttempts"`
	Final        bool      `json:"final"`
	Error        string    `json:"error"`
}

// Text renders the notification as a single chat message.
func (n Notification) Text() string {
	state := "will retry"
	if n.Final {
		state = "failed"
	}
	return fmt.Sprintf("%v Task `%v` in `%v` %v (attempt %v of %v, logical date %v, run %v): %v",
		c.EmojiBang,
		n.TaskID,
		n.DefinitionID,
		state,
		n.Attempt,
		n.MaxAttempts,
		n.LogicalDate.Format(time.RFC3339),
		n.RunID,
		n.Error,
	)
}

// Alerter is called when a scheduled run attempt fails.
type Alerter interface {
	Alert(ctx context.Context, n Notification) error
}

// LogAlerter writes notifications to the log.
type LogAlerter struct {
	Log logger.Logger
}

func (a *LogAlerter) Alert(ctx context.Context, n Notification) error {
	a.Log.Error(n.Text())
	return nil
}

// WebhookAlerter posts notifications to a Mattermost or Slack compatible incoming webhook.
type WebhookAlerter struct {
	URL      string
	Channel  string
	Username string
	Client   *http.Client
}

type webhookPayload struct {
	Text     string `json:"text"`
	Channel  string `json:"channel,omitempty"`
	Username string `json:"username,omitempty"`
}

// NewWebhookAlerter returns a WebhookAlerter with a client that times out after 10 seconds.
func NewWebhookAlerter(url string, channel string) *WebhookAlerter {
	return &WebhookAlerter{
		URL:      url,
		Channel:  channel,
		Username: c.ServiceName,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *WebhookAlerter) Alert(ctx context.Context, n Notification) error {
	b, err := json.Marshal(webhookPayload{Text: n.Text(), Channel: a.Channel, Username: a.Username})
	if err != nil {
		return errors.Wrap(err, "unable to marshal webhook payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "unable to create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "webhook request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("webhook returned status %v: %v", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// Multi fans a notification out to every alerter and returns the first error.
type Multi []Alerter

func (m Multi) Alert(ctx context.Context, n Notification) error {
	var first error
	for _, a := range m {
		if err := a.Alert(ctx, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}
