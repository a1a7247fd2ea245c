package jito

import (
	"context"
	"fmt"
	"time"

	"bundler/config"
	"bundler/logger"
	"bundler/types"
)

// StatusSource is the slice of the relay client the poller needs.
type StatusSource interface {
	GetBundleStatuses(ctx context.Context, bundleIDs []string) ([]*types.BundleStatus, error)
	GetInflightBundleStatuses(ctx context.Context, bundleIDs []string) ([]*types.InflightStatus, error)
}

// Poller drives repeated status queries for one submitted bundle until a
// terminal outcome. States: polling until landed, failed or timed out; all
// three halt the loop for good.
type Poller struct {
	source   StatusSource
	interval time.Duration

	// The inflight endpoint is queried in addition to the landed view.
	// Switchable because the double query costs relay rate limit.
	queryInflight bool
}

func NewPoller(source StatusSource) *Poller {
	return &Poller{
		source:        source,
		interval:      config.DefaultPollInterval,
		queryInflight: true,
	}
}

func (p *Poller) WithInterval(interval time.Duration) *Poller {
	if interval > 0 {
		p.interval = interval
	}
	return p
}

func (p *Poller) WithInflightQueries(enabled bool) *Poller {
	p.queryInflight = enabled
	return p
}

// Wait polls until the bundle reaches a terminal state or the budget runs
// out. Transient query failures are logged and swallowed; they only count
// against the caller by eating into the budget. A timed-out outcome means
// the bundle state is unknown, it may still land later.
func (p *Poller) Wait(ctx context.Context, bundleID string, timeout time.Duration) *types.Outcome {
	if timeout <= 0 {
		timeout = config.DefaultConfirmTimeout
	}
	start := time.Now()
	deadline := start.Add(timeout)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if outcome := p.tick(ctx, bundleID); outcome != nil {
			outcome.Elapsed = time.Since(start)
			return outcome
		}

		if !time.Now().Before(deadline) {
			logger.RelayLogger.Warn("Confirmation budget exhausted", "bundle_id", bundleID, "timeout", timeout)
			return &types.Outcome{
				Kind:     types.OutcomeTimedOut,
				BundleID: bundleID,
				Err:      types.ErrConfirmationTimeout,
				Elapsed:  time.Since(start),
			}
		}

		select {
		case <-ctx.Done():
			return &types.Outcome{
				Kind:     types.OutcomeTimedOut,
				BundleID: bundleID,
				Err:      fmt.Errorf("%w: %w", types.ErrConfirmationTimeout, ctx.Err()),
				Elapsed:  time.Since(start),
			}
		case <-ticker.C:
		}
	}
}

// tick runs one round of status queries. A nil return means no terminal
// state was observed and polling continues.
func (p *Poller) tick(ctx context.Context, bundleID string) *types.Outcome {
	statuses, err := p.source.GetBundleStatuses(ctx, []string{bundleID})
	if err != nil {
		logger.RelayLogger.Warn("Status query failed, will retry next tick", "bundle_id", bundleID, "err", err)
	} else {
		for _, status := range statuses {
			if status == nil || status.BundleID != bundleID {
				continue
			}
			if payload := status.OnChainErr(); payload != nil {
				logger.RelayLogger.Error("Bundle landed with on-chain error", "bundle_id", bundleID, "slot", status.Slot, "err", string(payload))
				return &types.Outcome{
					Kind:     types.OutcomeFailed,
					BundleID: bundleID,
					Slot:     status.Slot,
					Err:      fmt.Errorf("%w: %s", types.ErrOnChainFailure, string(payload)),
				}
			}
			if status.Landed() {
				logger.RelayLogger.Info("Bundle landed", "bundle_id", bundleID, "slot", status.Slot, "confirmation", status.ConfirmationStatus)
				return &types.Outcome{
					Kind:     types.OutcomeLanded,
					BundleID: bundleID,
					Slot:     status.Slot,
				}
			}
		}
	}

	if !p.queryInflight {
		return nil
	}

	inflight, err := p.source.GetInflightBundleStatuses(ctx, []string{bundleID})
	if err != nil {
		logger.RelayLogger.Warn("Inflight query failed, will retry next tick", "bundle_id", bundleID, "err", err)
		return nil
	}
	for _, status := range inflight {
		if status == nil || status.BundleID != bundleID {
			continue
		}
		switch status.Status {
		case types.InflightFailed:
			logger.RelayLogger.Error("Relay marked bundle failed pre-landing", "bundle_id", bundleID)
			return &types.Outcome{
				Kind:     types.OutcomeFailed,
				BundleID: bundleID,
				Err:      fmt.Errorf("%w: relay reported inflight failure", types.ErrOnChainFailure),
			}
		case types.InflightLanded:
			return &types.Outcome{
				Kind:     types.OutcomeLanded,
				BundleID: bundleID,
				Slot:     status.LandedSlot,
			}
		default:
			// Invalid means not yet seen, Pending means seen but not
			// landed. Neither is terminal during the budget window.
		}
	}
	return nil
}
