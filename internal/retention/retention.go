// Package retention trims old assistant messages on a cron schedule so a
// long-lived installation's history does not grow without bound. The
// synthetic greeting is never removed.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"ironwall/pkg/chat"
	"ironwall/pkg/config"
	"ironwall/pkg/logger"
)

// Start launches the retention scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg config.RetentionConfig, conv *chat.Conversation) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}

	period, err := cfg.PeriodDuration()
	if err != nil {
		return nil, err
	}

	cronExpr := cfg.Cron
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", cronExpr)
		return nil, fmt.Errorf("invalid retention cron expression: %s", cronExpr)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "period", period.String())
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, period, conv)
	return cancel, nil
}

// RunOnce performs a single trim pass immediately.
func RunOnce(cfg config.RetentionConfig, conv *chat.Conversation) error {
	period, err := cfg.PeriodDuration()
	if err != nil {
		return err
	}
	runTrim(period, conv)
	return nil
}

// runScheduler computes the next tick with gronx and sleeps until it, so
// full cron syntax is supported without a polling loop.
func runScheduler(ctx context.Context, cronExpr string, period time.Duration, conv *chat.Conversation) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			runTrim(period, conv)
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}

func runTrim(period time.Duration, conv *chat.Conversation) {
	cutoff := time.Now().UTC().Add(-period)
	removed := conv.TrimOlderThan(cutoff)
	if removed > 0 {
		logger.Info("retention_trimmed", "removed", removed, "cutoff", cutoff.Format(time.RFC3339))
	}
}
