// Package notify tells the rest of the exchange about settled transfers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/emperorhan/custody-settlement/internal/domain/event"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
)

// Notifier is called once a transfer's final status has committed.
// Delivery is best effort; callers log failures and move on.
type Notifier interface {
	Notify(ctx context.Context, t *model.Transfer) error
}

// Publisher is the subset of the Redis stream the StreamNotifier needs.
type Publisher interface {
	Publish(ctx context.Context, kind string, payload []byte) (string, error)
}

// StreamNotifier appends a JSON TransferEvent to a stream.
type StreamNotifier struct {
	pub    Publisher
	now    func() time.Time
	logger *slog.Logger
}

func NewStreamNotifier(pub Publisher, logger *slog.Logger) *StreamNotifier {
	return &StreamNotifier{
		pub:    pub,
		now:    time.Now,
		logger: logger.With("component", "notifier"),
	}
}

func (n *StreamNotifier) Notify(ctx context.Context, t *model.Transfer) error {
	ev := event.NewTransferEvent(t, n.now())
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal transfer event: %w", err)
	}
	id, err := n.pub.Publish(ctx, string(ev.Type), payload)
	if err != nil {
		return fmt.Errorf("publish %s for %s: %w", ev.Type, t.ID, err)
	}
	n.logger.Debug("transfer event published", "transfer", t.ID, "type", ev.Type, "stream_id", id)
	return nil
}

// LogNotifier only logs. It is used when no Redis is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

func (n *LogNotifier) Notify(_ context.Context, t *model.Transfer) error {
	n.logger.Info("transfer settled",
		"transfer", t.ID,
		"network", t.Network,
		"account", t.AccountID,
		"asset", t.Asset,
		"amount", t.Amount.String(),
		"direction", t.Direction,
		"status", t.Status,
	)
	return nil
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, *model.Transfer) error { return nil }
