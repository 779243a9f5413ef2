package chain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Auction is the contract's auction record for one token.
type Auction struct {
	TokenID       *big.Int
	Seller        common.Address
	HighestBid    *big.Int
	HighestBidder common.Address
	BuyNowPrice   *big.Int
	EndTime       uint64
	Open          bool
}

// Expired reports whether the auction's end time has passed at now.
func (a Auction) Expired(now time.Time) bool {
	return now.Unix() >= int64(a.EndTime)
}

// HasBuyNow reports whether a buy-now price is configured.
func (a Auction) HasBuyNow() bool {
	return a.BuyNowPrice != nil && a.BuyNowPrice.Sign() > 0
}

// BuyNowAvailable reports whether a buy-now price is set and still above the
// highest bid. Once bidding reaches it the auction only proceeds by bids.
func (a Auction) BuyNowAvailable() bool {
	if !a.HasBuyNow() {
		return false
	}
	return a.HighestBid == nil || a.HighestBid.Cmp(a.BuyNowPrice) < 0
}

// Receipt summarizes a mined write.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	// TokenID is set by Mint only.
	TokenID *big.Int
}
