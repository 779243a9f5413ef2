package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/nftennis/nftennis-backend/pkg/logger"
)

const (
	OrphanPinJobName       = "orphan-pins"
	defaultOrphanRetention = 24 * time.Hour
)

type pinSweeper interface {
	OrphanStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type OrphanPinJobParams struct {
	Logger    *logger.Logger
	Pins      pinSweeper
	Retention time.Duration
	Clock     func() time.Time
}

// orphanPinJob marks pins that never reached a mint as orphaned, e.g. after a
// crash between upload and mint. Nothing is unpinned.
type orphanPinJob struct {
	logg      *logger.Logger
	pins      pinSweeper
	retention time.Duration
	clock     func() time.Time
}

func NewOrphanPinJob(params OrphanPinJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pins == nil {
		return nil, fmt.Errorf("pin repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOrphanRetention
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &orphanPinJob{logg: params.Logger, pins: params.Pins, retention: retention, clock: clock}, nil
}

func (j *orphanPinJob) Name() string { return OrphanPinJobName }

func (j *orphanPinJob) Run(ctx context.Context) error {
	cutoff := j.clock().UTC().Add(-j.retention)
	n, err := j.pins.OrphanStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("orphan stale pins: %w", err)
	}
	if n > 0 {
		j.logg.Info(j.logg.WithField(ctx, "count", n), "pins.orphaned")
	}
	return nil
}
