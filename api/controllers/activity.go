package controllers

import (
	"context"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/nftennis/nftennis-backend/api/responses"
	"github.com/nftennis/nftennis-backend/api/validators"
	"github.com/nftennis/nftennis-backend/pkg/db/models"
	"github.com/nftennis/nftennis-backend/pkg/enums"
	pkgerrors "github.com/nftennis/nftennis-backend/pkg/errors"
	"github.com/nftennis/nftennis-backend/pkg/logger"
	"github.com/nftennis/nftennis-backend/pkg/pagination"
	"github.com/nftennis/nftennis-backend/pkg/units"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// EventReader lists recorded auction events.
type EventReader interface {
	ListEvents(ctx context.Context, tokenID string, limit int) ([]models.AuctionEvent, error)
}

// PinReader lists the pin ledger.
type PinReader interface {
	ListPins(ctx context.Context, status *enums.PinStatus, page pagination.Params) ([]models.Pin, *pagination.Cursor, error)
}

type auctionEventDTO struct {
	Type        string    `json:"type"`
	Actor       string    `json:"actor"`
	AmountWei   string    `json:"amountWei"`
	AmountEth   string    `json:"amountEth"`
	TxHash      string    `json:"txHash"`
	BlockNumber uint64    `json:"blockNumber"`
	CreatedAt   time.Time `json:"createdAt"`
}

type pinDTO struct {
	CID       string    `json:"cid"`
	Kind      string    `json:"kind"`
	FileName  string    `json:"fileName"`
	MimeType  string    `json:"mimeType"`
	SizeBytes int64     `json:"sizeBytes"`
	Status    string    `json:"status"`
	TokenID   *string   `json:"tokenId,omitempty"`
	Recipient string    `json:"recipient"`
	CreatedAt time.Time `json:"createdAt"`
}

type pinPageDTO struct {
	Pins       []pinDTO `json:"pins"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// TokenHistory lists the auction writes this backend submitted for a token,
// oldest first.
func TokenHistory(repo EventReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activity repository unavailable"))
			return
		}
		tokenID, err := validators.ParseTokenIDParam(r, "tokenId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultActivityLimit, 1, maxActivityLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		events, err := repo.ListEvents(r.Context(), tokenID.String(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list auction events"))
			return
		}
		out := make([]auctionEventDTO, 0, len(events))
		for _, e := range events {
			out = append(out, auctionEventDTO{
				Type:        e.Type.String(),
				Actor:       e.Actor,
				AmountWei:   e.AmountWei,
				AmountEth:   formatWeiString(e.AmountWei),
				TxHash:      e.TxHash,
				BlockNumber: e.Block,
				CreatedAt:   e.CreatedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

// ListPins exposes the pin ledger newest first, e.g. ?status=orphaned for
// uploads whose mint never completed. Pages continue with ?cursor=.
func ListPins(repo PinReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activity repository unavailable"))
			return
		}
		var status *enums.PinStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParsePinStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			status = &parsed
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))
		if _, err := pagination.ParseCursor(cursor); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
			return
		}
		pins, next, err := repo.ListPins(r.Context(), status, pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pins"))
			return
		}
		page := pinPageDTO{Pins: make([]pinDTO, 0, len(pins))}
		if next != nil {
			page.NextCursor = pagination.EncodeCursor(*next)
		}
		for _, p := range pins {
			page.Pins = append(page.Pins, pinDTO{
				CID:       p.CID,
				Kind:      p.Kind.String(),
				FileName:  p.FileName,
				MimeType:  p.MimeType,
				SizeBytes: p.SizeBytes,
				Status:    p.Status.String(),
				TokenID:   p.TokenID,
				Recipient: p.Recipient,
				CreatedAt: p.CreatedAt,
			})
		}
		responses.WriteSuccess(w, page)
	}
}

func formatWeiString(raw string) string {
	wei, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return "0"
	}
	return units.FormatEther(wei)
}
