package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nftennis/nftennis-backend/api/responses"
	"github.com/nftennis/nftennis-backend/api/validators"
	"github.com/nftennis/nftennis-backend/internal/marketplace"
	"github.com/nftennis/nftennis-backend/internal/nfts"
	pkgerrors "github.com/nftennis/nftennis-backend/pkg/errors"
	"github.com/nftennis/nftennis-backend/pkg/logger"
	"github.com/nftennis/nftennis-backend/pkg/types"
)

// ListNFTs returns a page of tokens with URI and owner. Tokens that cannot be
// read are left out of the page.
func ListNFTs(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", marketplace.DefaultLimit, 1, marketplace.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListTokens(r.Context(), offset, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := tokenPageDTO{
			Total:  types.NewBigInt(page.Total),
			Offset: page.Offset,
			Limit:  page.Limit,
			Tokens: make([]tokenDTO, 0, len(page.Tokens)),
		}
		for _, token := range page.Tokens {
			out.Tokens = append(out.Tokens, toTokenDTO(token))
		}
		responses.WriteSuccess(w, out)
	}
}

func ActiveAuctions(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}
		views, err := svc.ActiveAuctions(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]auctionListingDTO, 0, len(views))
		for _, v := range views {
			out = append(out, auctionListingDTO{
				tokenDTO: toTokenDTO(v.TokenView),
				Auction:  toAuctionDTO(v.Auction),
				Metadata: v.Metadata,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

func OwnedNFTs(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}
		owner, err := validators.ParseAddressParam(r, "address")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.Collection(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]collectionItemDTO, 0, len(items))
		for _, item := range items {
			out = append(out, collectionItemDTO{
				tokenDTO:  toTokenDTO(item.TokenView),
				Metadata:  item.Metadata,
				InAuction: item.InAuction,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

func NFTDetail(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}
		tokenID, err := validators.ParseTokenIDParam(r, "tokenId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithTokenID(ctx, tokenID.String())
		}
		detail, err := svc.Token(ctx, tokenID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := tokenDetailDTO{tokenDTO: toTokenDTO(detail.TokenView), Metadata: detail.Metadata}
		if detail.Auction != nil {
			a := toAuctionDTO(*detail.Auction)
			out.Auction = &a
		}
		responses.WriteSuccess(w, out)
	}
}

type mintRequest struct {
	Recipient string           `json:"recipient" validate:"required,eth_addr"`
	TokenURI  string           `json:"tokenURI" validate:"required"`
	Rarity    types.FlexString `json:"rarity" validate:"required"`
	MediaType types.FlexString `json:"mediaType" validate:"required"`
}

type mintResponse struct {
	TokenID     *types.BigInt `json:"tokenId"`
	Recipient   string        `json:"recipient"`
	TokenURI    string        `json:"tokenURI"`
	Rarity      string        `json:"rarity"`
	MediaType   string        `json:"mediaType"`
	TxHash      string        `json:"txHash"`
	BlockNumber uint64        `json:"blockNumber"`
}

func toMintResponse(res *nfts.MintResult) mintResponse {
	out := mintResponse{
		Recipient:   res.Recipient.Hex(),
		TokenURI:    res.TokenURI,
		Rarity:      res.Rarity.String(),
		MediaType:   res.MediaType.String(),
		TxHash:      res.TxHash.Hex(),
		BlockNumber: res.BlockNumber,
	}
	if res.TokenID != nil {
		id := types.NewBigInt(res.TokenID)
		out.TokenID = &id
	}
	return out
}

// MintNFT mints a token for an already published metadata URI. Only the
// contract owner may call it.
func MintNFT(svc nfts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "nft service unavailable"))
			return
		}
		caller, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req mintRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := svc.Mint(r.Context(), nfts.MintInput{
			Caller:    caller,
			Recipient: req.Recipient,
			TokenURI:  req.TokenURI,
			Rarity:    req.Rarity.String(),
			MediaType: req.MediaType.String(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toMintResponse(res))
	}
}

func RarityName(svc nfts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "nft service unavailable"))
			return
		}
		res, err := svc.RarityName(r.Context(), chi.URLParam(r, "rarity"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"rarity": uint8(res.Rarity), "name": res.Name})
	}
}
