package controllers

import (
	"math/big"
	"net/http"
	"time"

	"github.com/nftennis/nftennis-backend/api/responses"
	"github.com/nftennis/nftennis-backend/api/validators"
	"github.com/nftennis/nftennis-backend/internal/auctions"
	pkgerrors "github.com/nftennis/nftennis-backend/pkg/errors"
	"github.com/nftennis/nftennis-backend/pkg/logger"
	"github.com/nftennis/nftennis-backend/pkg/types"
	"github.com/nftennis/nftennis-backend/pkg/units"
)

// startAuctionRequest takes the duration in seconds and the buy-now price in
// ether; a missing or zero price disables buy-now.
type startAuctionRequest struct {
	TokenID     *types.BigInt    `json:"tokenId" validate:"required"`
	Duration    int64            `json:"duration" validate:"gt=0"`
	BuyNowPrice types.FlexString `json:"buyNowPrice"`
}

type bidRequest struct {
	TokenID   *types.BigInt    `json:"tokenId" validate:"required"`
	BidAmount types.FlexString `json:"bidAmount" validate:"required"`
}

type tokenRequest struct {
	TokenID *types.BigInt `json:"tokenId" validate:"required"`
}

func AuctionStart(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}
		caller, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req startAuctionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		buyNow, err := parseOptionalEther(req.BuyNowPrice, "buyNowPrice")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithTokenID(ctx, req.TokenID.String())
		}
		res, err := svc.Start(ctx, auctions.StartInput{
			Caller:      caller,
			TokenID:     req.TokenID.Big(),
			Duration:    time.Duration(req.Duration) * time.Second,
			BuyNowPrice: buyNow,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toWriteResultDTO(res))
	}
}

// AuctionBid places a bid in ether. A bid at or above the buy-now price is
// settled as a purchase and reported with action "buy_now".
func AuctionBid(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}
		caller, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req bidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := units.ParseEther(req.BidAmount.String())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid bid amount"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithTokenID(ctx, req.TokenID.String())
		}
		res, err := svc.Bid(ctx, auctions.BidInput{Caller: caller, TokenID: req.TokenID.Big(), Amount: amount})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toWriteResultDTO(res))
	}
}

func AuctionBuyNow(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return tokenWrite(logg, func(r *http.Request, req tokenRequest) (*auctions.WriteResult, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable")
		}
		caller, err := callerFrom(r)
		if err != nil {
			return nil, err
		}
		return svc.BuyNow(r.Context(), caller, req.TokenID.Big())
	})
}

func AuctionEnd(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return tokenWrite(logg, func(r *http.Request, req tokenRequest) (*auctions.WriteResult, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable")
		}
		caller, err := callerFrom(r)
		if err != nil {
			return nil, err
		}
		return svc.End(r.Context(), caller, req.TokenID.Big())
	})
}

func AuctionGet(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}
		tokenID, err := validators.ParseTokenIDParam(r, "tokenId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snapshot, err := svc.Get(r.Context(), tokenID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSnapshotDTO(tokenID, snapshot))
	}
}

// tokenWrite decodes a {tokenId} body and runs fn with the token tagged on
// the request logger.
func tokenWrite(logg *logger.Logger, fn func(*http.Request, tokenRequest) (*auctions.WriteResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			r = r.WithContext(logg.WithTokenID(r.Context(), req.TokenID.String()))
		}
		res, err := fn(r, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toWriteResultDTO(res))
	}
}

func parseOptionalEther(raw types.FlexString, field string) (*big.Int, error) {
	if raw.String() == "" {
		return new(big.Int), nil
	}
	wei, err := units.ParseEther(raw.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid ether amount").WithDetails(map[string]string{"field": field})
	}
	return wei, nil
}
