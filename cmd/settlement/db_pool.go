package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/emperorhan/custody-settlement/internal/alert"
	"github.com/emperorhan/custody-settlement/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const dbPoolExhaustionRatio = 0.8

type dbStatsProvider interface {
	Stats() sql.DBStats
}

type dbPoolStatsGauges struct {
	open      prometheus.Gauge
	inUse     prometheus.Gauge
	idle      prometheus.Gauge
	waitCount prometheus.Gauge
}

func collectDBPoolStats(db dbStatsProvider, gauges dbPoolStatsGauges) (stats sql.DBStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("db pool stats collection panicked: %v", r)
		}
	}()
	if db == nil {
		return stats, fmt.Errorf("db stats provider is nil")
	}

	stats = db.Stats()
	gauges.open.Set(float64(stats.OpenConnections))
	gauges.inUse.Set(float64(stats.InUse))
	gauges.idle.Set(float64(stats.Idle))
	gauges.waitCount.Set(float64(stats.WaitCount))
	return stats, nil
}

// poolExhausted reports whether in-use connections exceed the alert ratio.
// An unlimited pool never is.
func poolExhausted(stats sql.DBStats) bool {
	if stats.MaxOpenConnections <= 0 {
		return false
	}
	return float64(stats.InUse)/float64(stats.MaxOpenConnections) > dbPoolExhaustionRatio
}

func startDBPoolStatsPump(ctx context.Context, db dbStatsProvider, interval time.Duration, alerter alert.Alerter, logger *slog.Logger) {
	if db == nil || interval <= 0 {
		return
	}

	gauges := dbPoolStatsGauges{
		open:      metrics.DBPoolOpen,
		inUse:     metrics.DBPoolInUse,
		idle:      metrics.DBPoolIdle,
		waitCount: metrics.DBPoolWaitCount,
	}

	sample := func() {
		stats, err := collectDBPoolStats(db, gauges)
		if err != nil {
			logger.Warn("failed to collect db pool stats", "error", err)
			return
		}
		if !poolExhausted(stats) {
			return
		}
		if err := alerter.Send(ctx, alert.Alert{
			Type:    alert.AlertTypeDBPool,
			Title:   "PostgreSQL connection pool near exhaustion",
			Message: fmt.Sprintf("%d of %d connections in use", stats.InUse, stats.MaxOpenConnections),
			Fields: map[string]string{
				"in_use":     strconv.Itoa(stats.InUse),
				"max_open":   strconv.Itoa(stats.MaxOpenConnections),
				"wait_count": strconv.FormatInt(stats.WaitCount, 10),
			},
		}); err != nil {
			logger.Warn("send db pool alert failed", "error", err)
		}
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		sample()
		for {
			select {
			case <-ctx.Done():
				logger.Info("db pool stats sampler stopped", "cause", "context_done")
				return
			case <-ticker.C:
				sample()
			}
		}
	}()
}
