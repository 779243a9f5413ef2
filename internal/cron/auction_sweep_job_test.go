package cron

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/nftennis/nftennis-backend/pkg/chain"
	"github.com/nftennis/nftennis-backend/pkg/metrics"
)

var (
	sweepOperator = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	sweepSeller   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	sweepNow      = time.Unix(1_700_000_000, 0)
)

type sweepChain struct {
	auctions map[int64]*chain.Auction
	endErr   map[int64]error
	timeErr  error
	ended    []int64
}

func (s *sweepChain) Operator() common.Address { return sweepOperator }

func (s *sweepChain) ActiveAuctions(context.Context) ([]*big.Int, error) {
	var ids []*big.Int
	for i := int64(0); i < 10; i++ {
		if a, ok := s.auctions[i]; ok && a.Open {
			ids = append(ids, big.NewInt(i))
		}
	}
	return ids, nil
}

func (s *sweepChain) Auction(_ context.Context, id *big.Int) (chain.Auction, error) {
	return *s.auctions[id.Int64()], nil
}

func (s *sweepChain) LatestBlockTime(context.Context) (time.Time, error) {
	if s.timeErr != nil {
		return time.Time{}, s.timeErr
	}
	return sweepNow, nil
}

func (s *sweepChain) EndAuction(_ context.Context, from common.Address, id *big.Int) (chain.Receipt, error) {
	if from != sweepOperator {
		return chain.Receipt{}, errors.New("wrong sender")
	}
	if err := s.endErr[id.Int64()]; err != nil {
		return chain.Receipt{}, err
	}
	s.auctions[id.Int64()].Open = false
	s.ended = append(s.ended, id.Int64())
	return chain.Receipt{BlockNumber: 1}, nil
}

func auctionEnding(id int64, end time.Time) *chain.Auction {
	return &chain.Auction{TokenID: big.NewInt(id), Seller: sweepSeller, HighestBid: new(big.Int), BuyNowPrice: new(big.Int), EndTime: uint64(end.Unix()), Open: true}
}

func sweptTotal(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "nftennis_auctions_swept_total" {
			return sumCounters(mf.GetMetric())
		}
	}
	return 0
}

func sumCounters(ms []*dto.Metric) float64 {
	var total float64
	for _, m := range ms {
		total += m.GetCounter().GetValue()
	}
	return total
}

func TestSweepEndsOnlyExpiredAuctionsAndIsIdempotent(t *testing.T) {
	fc := &sweepChain{auctions: map[int64]*chain.Auction{
		1: auctionEnding(1, sweepNow.Add(-time.Minute)),
		2: auctionEnding(2, sweepNow.Add(time.Hour)),
		3: auctionEnding(3, sweepNow),
	}}
	reg := prometheus.NewRegistry()
	job, err := NewAuctionSweepJob(AuctionSweepJobParams{Logger: testLogger(), Chain: fc, Metrics: metrics.NewJobMetrics(reg)})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if len(fc.ended) != 2 || fc.ended[0] != 1 || fc.ended[1] != 3 {
		t.Fatalf("expected auctions 1 and 3 ended, got %v", fc.ended)
	}
	if fc.auctions[2].Open != true {
		t.Fatalf("auction 2 is not expired and must stay open")
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(fc.ended) != 2 {
		t.Fatalf("second sweep performed writes: %v", fc.ended)
	}
	if got := sweptTotal(t, reg); got != 2 {
		t.Fatalf("expected 2 swept auctions recorded, got %v", got)
	}
}

func TestSweepCapsEndsPerCycle(t *testing.T) {
	fc := &sweepChain{auctions: map[int64]*chain.Auction{
		1: auctionEnding(1, sweepNow.Add(-time.Minute)),
		2: auctionEnding(2, sweepNow.Add(-time.Minute)),
		3: auctionEnding(3, sweepNow.Add(-time.Minute)),
	}}
	job, err := NewAuctionSweepJob(AuctionSweepJobParams{Logger: testLogger(), Chain: fc, MaxEnds: 2})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if len(fc.ended) != 2 {
		t.Fatalf("expected 2 ends in the first cycle, got %v", fc.ended)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(fc.ended) != 3 || fc.ended[2] != 3 {
		t.Fatalf("expected auction 3 ended on the next cycle, got %v", fc.ended)
	}
}

func TestSweepContinuesAfterFailedEnd(t *testing.T) {
	fc := &sweepChain{
		auctions: map[int64]*chain.Auction{
			1: auctionEnding(1, sweepNow.Add(-time.Minute)),
			2: auctionEnding(2, sweepNow.Add(-time.Minute)),
		},
		endErr: map[int64]error{1: &chain.RevertError{Method: "endAuction", Reason: "Auction is not open"}},
	}
	job, _ := NewAuctionSweepJob(AuctionSweepJobParams{Logger: testLogger(), Chain: fc})

	err := job.Run(context.Background())
	if err == nil {
		t.Fatalf("expected the failed end to be reported")
	}
	if len(fc.ended) != 1 || fc.ended[0] != 2 {
		t.Fatalf("expected auction 2 ended despite failure on 1, got %v", fc.ended)
	}

	delete(fc.endErr, 1)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("retry sweep: %v", err)
	}
	if len(fc.ended) != 2 || fc.ended[1] != 1 {
		t.Fatalf("expected auction 1 ended on the next cycle, got %v", fc.ended)
	}
}

func TestSweepFallsBackToLocalClock(t *testing.T) {
	fc := &sweepChain{
		auctions: map[int64]*chain.Auction{1: auctionEnding(1, sweepNow)},
		timeErr:  errors.New("header unavailable"),
	}
	job, _ := NewAuctionSweepJob(AuctionSweepJobParams{
		Logger: testLogger(),
		Chain:  fc,
		Clock:  func() time.Time { return sweepNow.Add(-time.Second) },
	})
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(fc.ended) != 0 {
		t.Fatalf("auction not yet expired by local clock was ended")
	}
}

type fakePins struct {
	cutoff time.Time
	n      int64
}

func (f *fakePins) OrphanStale(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.n, nil
}

func TestOrphanPinJobUsesRetention(t *testing.T) {
	pins := &fakePins{n: 2}
	job, err := NewOrphanPinJob(OrphanPinJobParams{
		Logger:    testLogger(),
		Pins:      pins,
		Retention: 6 * time.Hour,
		Clock:     func() time.Time { return sweepNow },
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := sweepNow.UTC().Add(-6 * time.Hour); !pins.cutoff.Equal(want) {
		t.Fatalf("cutoff %v, want %v", pins.cutoff, want)
	}
}
