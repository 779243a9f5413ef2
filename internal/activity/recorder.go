package activity

import (
	"context"
	"math/big"

	"github.com/google/uuid"

	"github.com/nftennis/nftennis-backend/pkg/chain"
	"github.com/nftennis/nftennis-backend/pkg/db/models"
	"github.com/nftennis/nftennis-backend/pkg/enums"
	"github.com/nftennis/nftennis-backend/pkg/logger"
)

// Recorder writes the activity ledger on behalf of the write services. The
// contract is the source of truth, so failures here are logged and dropped.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	repo *Repository
	logg *logger.Logger
}

func NewRecorder(repo *Repository, logg *logger.Logger) *Recorder {
	if repo == nil {
		return nil
	}
	return &Recorder{repo: repo, logg: logg}
}

// AuctionEvent records a mined auction write.
func (r *Recorder) AuctionEvent(ctx context.Context, kind enums.AuctionEventType, tokenID *big.Int, actor string, amount *big.Int, receipt chain.Receipt) {
	if r == nil {
		return
	}
	event := &models.AuctionEvent{
		TokenID:   tokenID.String(),
		Type:      kind,
		Actor:     actor,
		AmountWei: "0",
		TxHash:    receipt.TxHash.Hex(),
		Block:     receipt.BlockNumber,
	}
	if amount != nil {
		event.AmountWei = amount.String()
	}
	if err := r.repo.CreateEvent(ctx, event); err != nil {
		r.warn(ctx, "activity.event_write_failed", err)
	}
}

// Pin records an object pinned by the mint pipeline and returns its id, or
// uuid.Nil when the row could not be written.
func (r *Recorder) Pin(ctx context.Context, pin *models.Pin) uuid.UUID {
	if r == nil {
		return uuid.Nil
	}
	if err := r.repo.CreatePin(ctx, pin); err != nil {
		r.warn(ctx, "activity.pin_write_failed", err)
		return uuid.Nil
	}
	return pin.ID
}

// SettlePins marks the given pins minted (tokenID set) or orphaned.
func (r *Recorder) SettlePins(ctx context.Context, ids []uuid.UUID, tokenID *big.Int) {
	if r == nil {
		return
	}
	live := ids[:0:0]
	for _, id := range ids {
		if id != uuid.Nil {
			live = append(live, id)
		}
	}
	status := enums.PinStatusOrphaned
	var token *string
	if tokenID != nil {
		status = enums.PinStatusMinted
		s := tokenID.String()
		token = &s
	}
	if err := r.repo.MarkPins(ctx, live, status, token); err != nil {
		r.warn(ctx, "activity.pin_update_failed", err)
	}
}

func (r *Recorder) warn(ctx context.Context, msg string, err error) {
	if r.logg == nil {
		return
	}
	r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), msg)
}
