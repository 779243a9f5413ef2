package cron

import (
	"fmt"
	"time"

	"github.com/nftennis/nftennis-backend/internal/activity"
	"github.com/nftennis/nftennis-backend/pkg/config"
	"github.com/nftennis/nftennis-backend/pkg/logger"
	"github.com/nftennis/nftennis-backend/pkg/metrics"
)

// LockName is the lock every sweeper process competes for, so an embedded
// sweeper and the standalone binary never close the same auction twice.
const LockName = "auction-sweeper"

const lockTTLMargin = time.Minute

type SweeperParams struct {
	Logger   *logger.Logger
	Config   config.SweeperConfig
	Chain    sweepGateway
	Store    lockStore
	LockKey  string
	Pins     pinSweeper
	Recorder *activity.Recorder
	Metrics  *metrics.JobMetrics
	Clock    func() time.Time
	// ReceiptTimeout is how long one end transaction may wait to be mined.
	ReceiptTimeout time.Duration
}

// SweepLockTTL is the lock TTL for one cycle: the configured TTL, raised so
// that a cycle waiting the full receipt timeout on every end it may attempt
// still finishes while holding the lock.
func SweepLockTTL(cfg config.SweeperConfig, receiptTimeout time.Duration) time.Duration {
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	worst := time.Duration(normalizeMaxEnds(cfg.MaxEndsPerCycle))*receiptTimeout + lockTTLMargin
	if receiptTimeout > 0 && worst > ttl {
		return worst
	}
	return ttl
}

// NewSweeper registers the auction sweep and, when a pin store is given, the
// orphan-pin job behind one Redis lock.
func NewSweeper(p SweeperParams) (*Service, error) {
	lock, err := NewRedisLock(p.Store, p.LockKey, SweepLockTTL(p.Config, p.ReceiptTimeout))
	if err != nil {
		return nil, err
	}

	registry := NewRegistry()
	sweep, err := NewAuctionSweepJob(AuctionSweepJobParams{
		Logger:   p.Logger,
		Chain:    p.Chain,
		Recorder: p.Recorder,
		Metrics:  p.Metrics,
		Clock:    p.Clock,
		MaxEnds:  p.Config.MaxEndsPerCycle,
	})
	if err != nil {
		return nil, fmt.Errorf("auction sweep job: %w", err)
	}
	if err := registry.Register(sweep); err != nil {
		return nil, err
	}

	if p.Pins != nil {
		orphans, err := NewOrphanPinJob(OrphanPinJobParams{
			Logger:    p.Logger,
			Pins:      p.Pins,
			Retention: p.Config.OrphanRetention,
			Clock:     p.Clock,
		})
		if err != nil {
			return nil, fmt.Errorf("orphan pin job: %w", err)
		}
		if err := registry.Register(orphans); err != nil {
			return nil, err
		}
	}

	return NewService(ServiceParams{
		Logger:   p.Logger,
		Registry: registry,
		Lock:     lock,
		Metrics:  p.Metrics,
		Interval: p.Config.Interval,
	})
}
