package auctions

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nftennis/nftennis-backend/internal/activity"
	"github.com/nftennis/nftennis-backend/pkg/chain"
	"github.com/nftennis/nftennis-backend/pkg/enums"
	pkgerrors "github.com/nftennis/nftennis-backend/pkg/errors"
	"github.com/nftennis/nftennis-backend/pkg/logger"
)

const (
	ActionBid    = "bid"
	ActionBuyNow = "buy_now"
	ActionStart  = "start"
	ActionEnd    = "end"
)

const (
	msgOwnerOnly     = "Only the owner can start an auction"
	msgAlreadyOpen   = "Auction already open for this token"
	msgNotOpen       = "Auction is not open"
	msgEnded         = "Auction has ended"
	msgInvalidBid    = "Invalid bid amount"
	msgBidTooLow     = "Bid must be higher than the current highest bid"
	msgSellerOnly    = "Only the seller can end the auction"
	msgNoBuyNow      = "Auction has no buy-now price"
	msgBuyNowPassed  = "Highest bid already exceeds the buy-now price"
	msgInvalidLength = "duration must be a positive number of seconds"
)

type gateway interface {
	Address() common.Address
	Operator() common.Address
	CanSign(addr common.Address) bool
	OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error)
	Approved(ctx context.Context, tokenID *big.Int) (common.Address, error)
	Auction(ctx context.Context, tokenID *big.Int) (chain.Auction, error)
	LatestBlockTime(ctx context.Context) (time.Time, error)
	Approve(ctx context.Context, from common.Address, tokenID *big.Int) (chain.Receipt, error)
	StartAuction(ctx context.Context, from common.Address, tokenID *big.Int, duration time.Duration, buyNowPrice *big.Int) (chain.Receipt, error)
	Bid(ctx context.Context, from common.Address, tokenID, value *big.Int) (chain.Receipt, error)
	BuyNow(ctx context.Context, from common.Address, tokenID, value *big.Int) (chain.Receipt, error)
	EndAuction(ctx context.Context, from common.Address, tokenID *big.Int) (chain.Receipt, error)
}

// Service enforces auction preconditions before forwarding writes to the
// contract. The contract re-checks everything; these checks exist to return
// readable errors without paying for a reverted transaction.
type Service interface {
	Start(ctx context.Context, input StartInput) (*WriteResult, error)
	Bid(ctx context.Context, input BidInput) (*WriteResult, error)
	BuyNow(ctx context.Context, caller common.Address, tokenID *big.Int) (*WriteResult, error)
	End(ctx context.Context, caller common.Address, tokenID *big.Int) (*WriteResult, error)
	Get(ctx context.Context, tokenID *big.Int) (*Snapshot, error)
}

type StartInput struct {
	Caller      common.Address
	TokenID     *big.Int
	Duration    time.Duration
	BuyNowPrice *big.Int
}

type BidInput struct {
	Caller  common.Address
	TokenID *big.Int
	Amount  *big.Int
}

// WriteResult describes a mined auction write. Amount is the wei value sent.
type WriteResult struct {
	Action      string
	TokenID     *big.Int
	Amount      *big.Int
	TxHash      common.Hash
	BlockNumber uint64
}

// Snapshot is an auction read at request time.
type Snapshot struct {
	chain.Auction
	Expired bool
}

type service struct {
	chain    gateway
	recorder *activity.Recorder
	logg     *logger.Logger
	clock    func() time.Time
}

// NewService builds the auction service. recorder may be nil.
func NewService(chain gateway, recorder *activity.Recorder, logg *logger.Logger) (Service, error) {
	if chain == nil {
		return nil, fmt.Errorf("chain gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{chain: chain, recorder: recorder, logg: logg, clock: time.Now}, nil
}

func (s *service) Start(ctx context.Context, input StartInput) (*WriteResult, error) {
	if err := requireTokenID(input.TokenID); err != nil {
		return nil, err
	}
	if input.Duration < time.Second {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgInvalidLength)
	}
	buyNow := input.BuyNowPrice
	if buyNow == nil {
		buyNow = new(big.Int)
	}
	if buyNow.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyNowPrice cannot be negative")
	}

	owner, err := s.chain.OwnerOf(ctx, input.TokenID)
	if err != nil {
		return nil, chain.ToAPIError(err, "owner lookup failed")
	}
	if owner != input.Caller {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, msgOwnerOnly)
	}
	auction, err := s.chain.Auction(ctx, input.TokenID)
	if err != nil {
		return nil, chain.ToAPIError(err, "auction lookup failed")
	}
	if auction.Open {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, msgAlreadyOpen)
	}
	if !s.chain.CanSign(input.Caller) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller account cannot sign transactions on this backend")
	}

	approved, err := s.chain.Approved(ctx, input.TokenID)
	if err != nil {
		return nil, chain.ToAPIError(err, "approval lookup failed")
	}
	if approved != s.chain.Address() {
		if _, err := s.chain.Approve(ctx, input.Caller, input.TokenID); err != nil {
			return nil, chain.ToAPIError(err, "approve failed")
		}
	}

	receipt, err := s.chain.StartAuction(ctx, input.Caller, input.TokenID, input.Duration, buyNow)
	if err != nil {
		return nil, chain.ToAPIError(err, "start auction failed")
	}
	s.recorder.AuctionEvent(ctx, enums.AuctionEventStarted, input.TokenID, input.Caller.Hex(), buyNow, receipt)
	s.logg.Info(s.logg.WithTokenID(ctx, input.TokenID.String()), "auction.started")
	return result(ActionStart, input.TokenID, nil, receipt), nil
}

// Bid places a bid. While the highest bid is below the buy-now price, a bid
// that reaches it is executed as a purchase at exactly the buy-now price.
// Otherwise it goes through as a regular bid.
func (s *service) Bid(ctx context.Context, input BidInput) (*WriteResult, error) {
	if err := requireTokenID(input.TokenID); err != nil {
		return nil, err
	}
	if input.Amount == nil || input.Amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgInvalidBid)
	}
	auction, err := s.openAuction(ctx, input.TokenID)
	if err != nil {
		return nil, err
	}
	if input.Amount.Cmp(auction.HighestBid) <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, msgBidTooLow)
	}

	if auction.BuyNowAvailable() && input.Amount.Cmp(auction.BuyNowPrice) >= 0 {
		return s.buyNow(ctx, input.Caller, input.TokenID, auction.BuyNowPrice)
	}

	receipt, err := s.chain.Bid(ctx, input.Caller, input.TokenID, input.Amount)
	if err != nil {
		return nil, chain.ToAPIError(err, "bid failed")
	}
	s.recorder.AuctionEvent(ctx, enums.AuctionEventBid, input.TokenID, input.Caller.Hex(), input.Amount, receipt)
	return result(ActionBid, input.TokenID, input.Amount, receipt), nil
}

func (s *service) BuyNow(ctx context.Context, caller common.Address, tokenID *big.Int) (*WriteResult, error) {
	if err := requireTokenID(tokenID); err != nil {
		return nil, err
	}
	auction, err := s.openAuction(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if !auction.HasBuyNow() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, msgNoBuyNow)
	}
	if !auction.BuyNowAvailable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, msgBuyNowPassed)
	}
	return s.buyNow(ctx, caller, tokenID, auction.BuyNowPrice)
}

func (s *service) buyNow(ctx context.Context, caller common.Address, tokenID, price *big.Int) (*WriteResult, error) {
	receipt, err := s.chain.BuyNow(ctx, caller, tokenID, price)
	if err != nil {
		return nil, chain.ToAPIError(err, "buy now failed")
	}
	s.recorder.AuctionEvent(ctx, enums.AuctionEventBought, tokenID, caller.Hex(), price, receipt)
	s.logg.Info(s.logg.WithTokenID(ctx, tokenID.String()), "auction.bought")
	return result(ActionBuyNow, tokenID, price, receipt), nil
}

// End closes an auction. The seller may end it at any time; the operator
// only once the end time has passed.
func (s *service) End(ctx context.Context, caller common.Address, tokenID *big.Int) (*WriteResult, error) {
	if err := requireTokenID(tokenID); err != nil {
		return nil, err
	}
	auction, err := s.chain.Auction(ctx, tokenID)
	if err != nil {
		return nil, chain.ToAPIError(err, "auction lookup failed")
	}
	allowed := caller == auction.Seller
	if !allowed && caller == s.chain.Operator() {
		allowed = auction.Expired(s.now(ctx))
	}
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, msgSellerOnly)
	}
	if !auction.Open {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, msgNotOpen)
	}

	receipt, err := s.chain.EndAuction(ctx, caller, tokenID)
	if err != nil {
		return nil, chain.ToAPIError(err, "end auction failed")
	}
	s.recorder.AuctionEvent(ctx, enums.AuctionEventEnded, tokenID, caller.Hex(), auction.HighestBid, receipt)
	s.logg.Info(s.logg.WithTokenID(ctx, tokenID.String()), "auction.ended")
	return result(ActionEnd, tokenID, nil, receipt), nil
}

func (s *service) Get(ctx context.Context, tokenID *big.Int) (*Snapshot, error) {
	if err := requireTokenID(tokenID); err != nil {
		return nil, err
	}
	auction, err := s.chain.Auction(ctx, tokenID)
	if err != nil {
		return nil, chain.ToAPIError(err, "auction lookup failed")
	}
	return &Snapshot{Auction: auction, Expired: auction.Open && auction.Expired(s.now(ctx))}, nil
}

func (s *service) openAuction(ctx context.Context, tokenID *big.Int) (chain.Auction, error) {
	auction, err := s.chain.Auction(ctx, tokenID)
	if err != nil {
		return chain.Auction{}, chain.ToAPIError(err, "auction lookup failed")
	}
	if !auction.Open {
		return chain.Auction{}, pkgerrors.New(pkgerrors.CodeStateConflict, msgNotOpen)
	}
	if auction.Expired(s.now(ctx)) {
		return chain.Auction{}, pkgerrors.New(pkgerrors.CodeStateConflict, msgEnded)
	}
	if auction.HighestBid == nil {
		auction.HighestBid = new(big.Int)
	}
	return auction, nil
}

// now prefers chain time, which is what the contract compares end times to.
func (s *service) now(ctx context.Context) time.Time {
	ts, err := s.chain.LatestBlockTime(ctx)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "auction.chain_time_unavailable")
		return s.clock()
	}
	return ts
}

func requireTokenID(id *big.Int) error {
	if id == nil || id.Sign() < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "tokenId is required")
	}
	return nil
}

func result(action string, tokenID, amount *big.Int, receipt chain.Receipt) *WriteResult {
	return &WriteResult{
		Action:      action,
		TokenID:     tokenID,
		Amount:      amount,
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber,
	}
}
