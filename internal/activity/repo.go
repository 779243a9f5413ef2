package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nftennis/nftennis-backend/pkg/db/models"
	"github.com/nftennis/nftennis-backend/pkg/enums"
	"github.com/nftennis/nftennis-backend/pkg/pagination"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Repository persists pins and auction events.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) CreatePin(ctx context.Context, pin *models.Pin) error {
	return r.db.WithContext(ctx).Create(pin).Error
}

// MarkPins moves pins to status; tokenID is recorded when non-nil.
func (r *Repository) MarkPins(ctx context.Context, ids []uuid.UUID, status enums.PinStatus, tokenID *string) error {
	if len(ids) == 0 {
		return nil
	}
	updates := map[string]any{"status": status, "updated_at": time.Now().UTC()}
	if tokenID != nil {
		updates["token_id"] = *tokenID
	}
	return r.db.WithContext(ctx).
		Model(&models.Pin{}).
		Where("id IN ?", ids).
		Updates(updates).Error
}

// OrphanStale marks pins still in status pinned and created before cutoff as
// orphaned, returning how many rows changed.
func (r *Repository) OrphanStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Pin{}).
		Where("status = ? AND created_at < ?", enums.PinStatusPinned, cutoff).
		Updates(map[string]any{"status": enums.PinStatusOrphaned, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// ListPins pages through pins newest first, optionally filtered by status.
// The returned cursor is nil on the last page.
func (r *Repository) ListPins(ctx context.Context, status *enums.PinStatus, page pagination.Params) ([]models.Pin, *pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, nil, err
	}
	normalized := pagination.NormalizeLimit(page.Limit)

	q := r.db.WithContext(ctx).Model(&models.Pin{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var pins []models.Pin
	if err := q.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(page.Limit)).Find(&pins).Error; err != nil {
		return nil, nil, err
	}
	if len(pins) > normalized {
		last := pins[normalized-1]
		return pins[:normalized], &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return pins, nil, nil
}

func (r *Repository) CreateEvent(ctx context.Context, event *models.AuctionEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListEvents returns a token's events oldest first.
func (r *Repository) ListEvents(ctx context.Context, tokenID string, limit int) ([]models.AuctionEvent, error) {
	var events []models.AuctionEvent
	err := r.db.WithContext(ctx).
		Where("token_id = ?", tokenID).
		Order("created_at ASC").
		Limit(normalizeLimit(limit)).
		Find(&events).Error
	return events, err
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
