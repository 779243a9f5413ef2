package controllers

import (
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nftennis/nftennis-backend/api/middleware"
	"github.com/nftennis/nftennis-backend/internal/auctions"
	"github.com/nftennis/nftennis-backend/internal/marketplace"
	"github.com/nftennis/nftennis-backend/internal/metadata"
	"github.com/nftennis/nftennis-backend/pkg/chain"
	pkgerrors "github.com/nftennis/nftennis-backend/pkg/errors"
	"github.com/nftennis/nftennis-backend/pkg/types"
	"github.com/nftennis/nftennis-backend/pkg/units"
)

type tokenDTO struct {
	TokenID types.BigInt `json:"tokenId"`
	URI     string       `json:"uri"`
	Owner   string       `json:"owner"`
}

type auctionDTO struct {
	Seller         string       `json:"seller"`
	HighestBid     types.BigInt `json:"highestBid"`
	HighestBidEth  string       `json:"highestBidEth"`
	HighestBidder  string       `json:"highestBidder"`
	BuyNowPrice    types.BigInt `json:"buyNowPrice"`
	BuyNowPriceEth string       `json:"buyNowPriceEth"`
	EndTime        uint64       `json:"endTime"`
	EndsAt         time.Time    `json:"endsAt"`
	Open           bool         `json:"open"`
}

type auctionSnapshotDTO struct {
	TokenID types.BigInt `json:"tokenId"`
	auctionDTO
	Expired bool `json:"expired"`
}

type auctionListingDTO struct {
	tokenDTO
	Auction  auctionDTO         `json:"auction"`
	Metadata *metadata.Document `json:"metadata"`
}

type collectionItemDTO struct {
	tokenDTO
	Metadata  *metadata.Document `json:"metadata"`
	InAuction bool               `json:"inAuction"`
}

type tokenDetailDTO struct {
	tokenDTO
	Auction  *auctionDTO        `json:"auction"`
	Metadata *metadata.Document `json:"metadata"`
}

type tokenPageDTO struct {
	Total  types.BigInt `json:"total"`
	Offset int          `json:"offset"`
	Limit  int          `json:"limit"`
	Tokens []tokenDTO   `json:"tokens"`
}

type writeResultDTO struct {
	Action      string        `json:"action"`
	TokenID     types.BigInt  `json:"tokenId"`
	Amount      *types.BigInt `json:"amount,omitempty"`
	AmountEth   string        `json:"amountEth,omitempty"`
	TxHash      string        `json:"txHash"`
	BlockNumber uint64        `json:"blockNumber"`
}

func toTokenDTO(v marketplace.TokenView) tokenDTO {
	return tokenDTO{TokenID: types.NewBigInt(v.TokenID), URI: v.URI, Owner: v.Owner.Hex()}
}

func toAuctionDTO(a chain.Auction) auctionDTO {
	return auctionDTO{
		Seller:         a.Seller.Hex(),
		HighestBid:     types.NewBigInt(a.HighestBid),
		HighestBidEth:  units.FormatEther(a.HighestBid),
		HighestBidder:  a.HighestBidder.Hex(),
		BuyNowPrice:    types.NewBigInt(a.BuyNowPrice),
		BuyNowPriceEth: units.FormatEther(a.BuyNowPrice),
		EndTime:        a.EndTime,
		EndsAt:         time.Unix(int64(a.EndTime), 0).UTC(),
		Open:           a.Open,
	}
}

func toSnapshotDTO(id *big.Int, s *auctions.Snapshot) auctionSnapshotDTO {
	return auctionSnapshotDTO{
		TokenID:    types.NewBigInt(id),
		auctionDTO: toAuctionDTO(s.Auction),
		Expired:    s.Expired,
	}
}

func toWriteResultDTO(res *auctions.WriteResult) writeResultDTO {
	out := writeResultDTO{
		Action:      res.Action,
		TokenID:     types.NewBigInt(res.TokenID),
		TxHash:      res.TxHash.Hex(),
		BlockNumber: res.BlockNumber,
	}
	if res.Amount != nil {
		amount := types.NewBigInt(res.Amount)
		out.Amount = &amount
		out.AmountEth = units.FormatEther(res.Amount)
	}
	return out
}

// callerFrom returns the acting account resolved by middleware.Auth.
func callerFrom(r *http.Request) (common.Address, error) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		return common.Address{}, pkgerrors.New(pkgerrors.CodeInternal, "caller context missing")
	}
	return caller, nil
}
