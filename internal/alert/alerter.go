// Package alert delivers operator alerts to Slack and generic webhooks.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emperorhan/custody-settlement/internal/metrics"
	"github.com/go-resty/resty/v2"
)

// AlertType categorizes the kind of alert.
type AlertType string

const (
	AlertTypeUnhealthy       AlertType = "UNHEALTHY"
	AlertTypeRecovery        AlertType = "RECOVERY"
	AlertTypeReorg           AlertType = "REORG"
	AlertTypeReorgTooDeep    AlertType = "REORG_TOO_DEEP"
	AlertTypeBroadcastFailed AlertType = "BROADCAST_FAILED"
	AlertTypeFeeTopUp        AlertType = "FEE_TOPUP"
	AlertTypeDBPool          AlertType = "DB_POOL"
)

// Alert represents a single alert event.
type Alert struct {
	Type    AlertType
	Network string
	Title   string
	Message string
	Fields  map[string]string
}

// Alerter is the interface for sending alerts.
type Alerter interface {
	Send(ctx context.Context, alert Alert) error
}

// MultiAlerter fans out alerts to multiple channels.
type MultiAlerter struct {
	alerters []Alerter
	cooldown time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewMultiAlerter creates a new multi-channel alerter with cooldown.
func NewMultiAlerter(cooldown time.Duration, logger *slog.Logger, alerters ...Alerter) *MultiAlerter {
	return &MultiAlerter{
		alerters: alerters,
		cooldown: cooldown,
		logger:   logger.With("component", "alerter"),
		lastSent: make(map[string]time.Time),
	}
}

func cooldownKey(a Alert) string {
	return fmt.Sprintf("%s:%s", a.Type, a.Network)
}

// Send dispatches alert to all channels, respecting cooldown. Recovery and
// broadcast failures are never suppressed.
func (m *MultiAlerter) Send(ctx context.Context, alert Alert) error {
	key := cooldownKey(alert)

	if suppressible(alert.Type) {
		m.mu.Lock()
		if last, ok := m.lastSent[key]; ok && time.Since(last) < m.cooldown {
			m.mu.Unlock()
			m.logger.Debug("alert suppressed by cooldown", "key", key)
			for _, a := range m.alerters {
				metrics.AlertsCooldownSkipped.WithLabelValues(alerterName(a), string(alert.Type)).Inc()
			}
			return nil
		}
		m.lastSent[key] = time.Now()
		m.mu.Unlock()
	}

	var firstErr error
	for _, a := range m.alerters {
		if err := a.Send(ctx, alert); err != nil {
			m.logger.Warn("alert send failed",
				"channel", alerterName(a),
				"type", alert.Type,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
		} else {
			metrics.AlertsSentTotal.WithLabelValues(alerterName(a), string(alert.Type)).Inc()
		}
	}
	return firstErr
}

func suppressible(t AlertType) bool {
	switch t {
	case AlertTypeRecovery, AlertTypeBroadcastFailed:
		return false
	}
	return true
}

func alerterName(a Alerter) string {
	switch a.(type) {
	case *SlackAlerter:
		return "slack"
	case *WebhookAlerter:
		return "webhook"
	default:
		return "unknown"
	}
}

func newHTTP() *resty.Client {
	return resty.New().
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")
}

func post(ctx context.Context, client *resty.Client, url string, payload any, channel string) error {
	resp, err := client.R().SetContext(ctx).SetBody(payload).Post(url)
	if err != nil {
		return fmt.Errorf("send %s alert: %w", channel, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s returned status %d", channel, resp.StatusCode())
	}
	return nil
}

// SlackAlerter sends alerts to a Slack webhook.
type SlackAlerter struct {
	webhookURL string
	client     *resty.Client
}

func NewSlackAlerter(webhookURL string) *SlackAlerter {
	return &SlackAlerter{webhookURL: webhookURL, client: newHTTP()}
}

func (s *SlackAlerter) Send(ctx context.Context, alert Alert) error {
	emoji := ":warning:"
	switch alert.Type {
	case AlertTypeRecovery:
		emoji = ":white_check_mark:"
	case AlertTypeReorg, AlertTypeReorgTooDeep:
		emoji = ":rotating_light:"
	case AlertTypeBroadcastFailed:
		emoji = ":x:"
	case AlertTypeFeeTopUp:
		emoji = ":fuelpump:"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *[%s]* %s: %s\n%s", emoji, alert.Type, alert.Network, alert.Title, alert.Message)
	if len(alert.Fields) > 0 {
		keys := make([]string, 0, len(alert.Fields))
		for k := range alert.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- *%s*: %s\n", k, alert.Fields[k])
		}
	}
	return post(ctx, s.client, s.webhookURL, map[string]string{"text": b.String()}, "slack")
}

// WebhookAlerter sends alerts to a generic HTTP webhook.
type WebhookAlerter struct {
	url    string
	client *resty.Client
}

func NewWebhookAlerter(url string) *WebhookAlerter {
	return &WebhookAlerter{url: url, client: newHTTP()}
}

func (w *WebhookAlerter) Send(ctx context.Context, alert Alert) error {
	payload := map[string]any{
		"type":    string(alert.Type),
		"network": alert.Network,
		"title":   alert.Title,
		"message": alert.Message,
		"fields":  alert.Fields,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}
	return post(ctx, w.client, w.url, payload, "webhook")
}

// NoopAlerter does nothing. Used when no alert channels are configured.
type NoopAlerter struct{}

func (n *NoopAlerter) Send(_ context.Context, _ Alert) error { return nil }
