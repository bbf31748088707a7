// Package pipeline schedules the per-network settlement run: history,
// block-info population, then withdrawals.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/emperorhan/custody-settlement/internal/alert"
	"github.com/emperorhan/custody-settlement/internal/chain/rpcpool"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/metrics"
	"github.com/emperorhan/custody-settlement/internal/pipeline/history"
	"github.com/emperorhan/custody-settlement/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelTrace "go.opentelemetry.io/otel/trace"
)

const (
	DefaultInterval   = 3 * time.Second
	DefaultRunTimeout = 2 * time.Minute
)

type HistoryRunner interface {
	Run(ctx context.Context) (history.Result, error)
}

type BlockInfoPopulator interface {
	Run(ctx context.Context) (int, error)
}

type WithdrawProcessor interface {
	Process(ctx context.Context) error
}

// EndpointReporter exposes RPC endpoint state for health snapshots.
type EndpointReporter interface {
	Health() []rpcpool.EndpointHealth
}

type Config struct {
	Network            model.Network
	Interval           time.Duration
	RunTimeout         time.Duration
	UnhealthyThreshold int
}

// Pipeline runs one network on a fixed interval. The run lock, not the
// pipeline, guarantees that runs for a network never overlap.
type Pipeline struct {
	cfg       Config
	lock      RunLock
	history   HistoryRunner
	populator BlockInfoPopulator
	withdraw  WithdrawProcessor
	endpoints EndpointReporter
	alerter   alert.Alerter
	health    *NetworkHealth
	logger    *slog.Logger
}

type Option func(*Pipeline)

func WithWithdraw(w WithdrawProcessor) Option {
	return func(p *Pipeline) { p.withdraw = w }
}

func WithAlerter(a alert.Alerter) Option {
	return func(p *Pipeline) { p.alerter = a }
}

func WithEndpoints(r EndpointReporter) Option {
	return func(p *Pipeline) { p.endpoints = r }
}

func New(
	cfg Config,
	lock RunLock,
	historyRunner HistoryRunner,
	populator BlockInfoPopulator,
	logger *slog.Logger,
	opts ...Option,
) *Pipeline {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	if lock == nil {
		lock = NewLocalRunLock()
	}
	p := &Pipeline{
		cfg:       cfg,
		lock:      lock,
		history:   historyRunner,
		populator: populator,
		health:    NewNetworkHealth(cfg.Network.Symbol, cfg.UnhealthyThreshold),
		logger:    logger.With("component", "pipeline", "network", cfg.Network.Symbol),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Network() string { return p.cfg.Network.Symbol }

func (p *Pipeline) Health() *NetworkHealth { return p.health }

// Snapshot returns the network's health along with its RPC endpoint states.
func (p *Pipeline) Snapshot() HealthSnapshot {
	snap := p.health.Snapshot()
	if p.endpoints != nil {
		snap.Endpoints = p.endpoints.Health()
	}
	return snap
}

// Run ticks until ctx is canceled. A failed tick is logged and retried on the
// next one.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.cfg.Interval, "min_confirm", p.cfg.Network.MinConfirm)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := p.Tick(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick performs one guarded run. It returns nil without running when another
// holder owns the network lock.
func (p *Pipeline) Tick(ctx context.Context) (err error) {
	network := p.cfg.Network.Symbol

	release, ok, err := p.lock.TryAcquire(ctx, network)
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		metrics.RunLockContended.WithLabelValues(network).Inc()
		p.logger.Debug("run lock held elsewhere, skipping tick")
		return nil
	}
	defer func() {
		// The run context may already be done; release on a fresh one.
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if relErr := release(relCtx); relErr != nil {
			p.logger.Warn("release run lock failed", "error", relErr)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, p.cfg.RunTimeout)
	defer cancel()
	runCtx, span := tracing.Tracer("pipeline").Start(runCtx, "pipeline.run",
		otelTrace.WithAttributes(attribute.String("network", network)),
	)
	defer span.End()

	metrics.RunsTotal.WithLabelValues(network).Inc()
	start := time.Now()

	res, err := p.guarded(runCtx)
	took := time.Since(start)
	metrics.RunLatency.WithLabelValues(network).Observe(took.Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RunErrors.WithLabelValues(network).Inc()
		if p.health.RecordFailure(err) {
			p.sendAlert(ctx, alert.Alert{
				Type:    alert.AlertTypeUnhealthy,
				Network: network,
				Title:   fmt.Sprintf("%s settlement unhealthy", network),
				Message: err.Error(),
				Fields: map[string]string{
					"consecutive_failures": strconv.Itoa(p.health.Snapshot().ConsecutiveFailures),
				},
			})
		}
		return err
	}

	span.SetAttributes(
		attribute.String("mode", string(res.Mode)),
		attribute.Int64("head", res.Head),
		attribute.Int("appended", res.Appended),
	)
	if p.health.RecordSuccess(res.Head, string(res.Mode), took) {
		p.logger.Info("network recovered", "head", res.Head)
		p.sendAlert(ctx, alert.Alert{
			Type:    alert.AlertTypeRecovery,
			Network: network,
			Title:   fmt.Sprintf("%s settlement recovered", network),
			Message: fmt.Sprintf("run succeeded at head %d", res.Head),
		})
	}
	return nil
}

// guarded runs the stages in order and converts a panic into an error so one
// bad run cannot take the process down.
func (p *Pipeline) guarded(ctx context.Context) (res history.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v\n%s", r, debug.Stack())
		}
	}()
	return p.stages(ctx)
}

func (p *Pipeline) stages(ctx context.Context) (history.Result, error) {
	res, err := p.history.Run(ctx)
	if err != nil {
		return res, fmt.Errorf("history: %w", err)
	}
	p.logger.Debug("history done",
		"mode", res.Mode,
		"head", res.Head,
		"appended", res.Appended,
		"deposits", res.Deposits,
		"done", res.Confirmed.Done,
		"canceled", res.Confirmed.Canceled,
	)

	if p.populator != nil {
		if _, err := p.populator.Run(ctx); err != nil {
			return res, fmt.Errorf("populate block info: %w", err)
		}
	}

	if p.withdraw != nil {
		if err := p.withdraw.Process(ctx); err != nil {
			// Withdrawal faults are alerted by the handler and do not mark
			// the network unhealthy.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, fmt.Errorf("withdraw: %w", err)
			}
			p.logger.Error("withdraw processing failed", "error", err)
		}
	}
	return res, nil
}

func (p *Pipeline) sendAlert(ctx context.Context, a alert.Alert) {
	if p.alerter == nil {
		return
	}
	if err := p.alerter.Send(ctx, a); err != nil {
		p.logger.Warn("send alert failed", "type", a.Type, "error", err)
	}
}
