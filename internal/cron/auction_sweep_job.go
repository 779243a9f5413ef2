package cron

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/multierr"

	"github.com/nftennis/nftennis-backend/internal/activity"
	"github.com/nftennis/nftennis-backend/pkg/chain"
	"github.com/nftennis/nftennis-backend/pkg/enums"
	"github.com/nftennis/nftennis-backend/pkg/logger"
	"github.com/nftennis/nftennis-backend/pkg/metrics"
)

const (
	AuctionSweepJobName = "auction-sweep"

	// DefaultMaxEndsPerCycle bounds how many end transactions one cycle
	// waits on.
	DefaultMaxEndsPerCycle = 10
)

type sweepGateway interface {
	Operator() common.Address
	ActiveAuctions(ctx context.Context) ([]*big.Int, error)
	Auction(ctx context.Context, tokenID *big.Int) (chain.Auction, error)
	LatestBlockTime(ctx context.Context) (time.Time, error)
	EndAuction(ctx context.Context, from common.Address, tokenID *big.Int) (chain.Receipt, error)
}

type AuctionSweepJobParams struct {
	Logger   *logger.Logger
	Chain    sweepGateway
	Recorder *activity.Recorder
	Metrics  *metrics.JobMetrics
	Clock    func() time.Time
	// MaxEnds caps end attempts per cycle; the rest wait for the next tick.
	MaxEnds int
}

// auctionSweepJob ends every open auction whose end time has passed, from the
// operator account. Each auction is handled independently; a failed end is
// picked up again on the next cycle if the auction is still open.
type auctionSweepJob struct {
	logg     *logger.Logger
	chain    sweepGateway
	recorder *activity.Recorder
	metrics  *metrics.JobMetrics
	clock    func() time.Time
	maxEnds  int
}

func NewAuctionSweepJob(params AuctionSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Chain == nil {
		return nil, fmt.Errorf("chain gateway required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &auctionSweepJob{
		logg:     params.Logger,
		chain:    params.Chain,
		recorder: params.Recorder,
		metrics:  params.Metrics,
		clock:    clock,
		maxEnds:  normalizeMaxEnds(params.MaxEnds),
	}, nil
}

func normalizeMaxEnds(n int) int {
	if n <= 0 {
		return DefaultMaxEndsPerCycle
	}
	return n
}

func (j *auctionSweepJob) Name() string { return AuctionSweepJobName }

func (j *auctionSweepJob) Run(ctx context.Context) error {
	ids, err := j.chain.ActiveAuctions(ctx)
	if err != nil {
		return fmt.Errorf("list active auctions: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	now := j.now(ctx)
	operator := j.chain.Operator()

	var errs error
	swept, attempts := 0, 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}
		itemCtx := j.logg.WithTokenID(ctx, id.String())

		auction, err := j.chain.Auction(itemCtx, id)
		if err != nil {
			j.logg.Warn(j.logg.WithField(itemCtx, "error", err.Error()), "sweep.auction_read_failed")
			errs = multierr.Append(errs, fmt.Errorf("read auction %s: %w", id, err))
			continue
		}
		if !auction.Open || !auction.Expired(now) {
			continue
		}
		if attempts == j.maxEnds {
			j.logg.Info(j.logg.WithField(ctx, "max_ends", j.maxEnds), "sweep.cycle_cap_reached")
			break
		}
		attempts++

		receipt, err := j.chain.EndAuction(itemCtx, operator, id)
		if err != nil {
			// a concurrent end or buy-now wins the race; the contract rejects ours
			j.logg.Warn(j.logg.WithField(itemCtx, "error", err.Error()), "sweep.end_failed")
			errs = multierr.Append(errs, fmt.Errorf("end auction %s: %w", id, err))
			continue
		}
		j.recorder.AuctionEvent(itemCtx, enums.AuctionEventSwept, id, operator.Hex(), auction.HighestBid, receipt)
		j.logg.Info(j.logg.WithField(itemCtx, "tx_hash", receipt.TxHash.Hex()), "sweep.auction_ended")
		swept++
	}
	j.metrics.AddSwept(swept)
	return errs
}

// now returns chain time, falling back to the local clock when the node
// cannot serve a header.
func (j *auctionSweepJob) now(ctx context.Context) time.Time {
	ts, err := j.chain.LatestBlockTime(ctx)
	if err != nil {
		j.logg.Warn(j.logg.WithField(ctx, "error", err.Error()), "sweep.chain_time_unavailable")
		return j.clock()
	}
	return ts
}
