package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nftennis/nftennis-backend/pkg/enums"
)

// AuctionEvent is an append-only record of a write this backend submitted.
// Token ids and wei amounts are stored as decimal strings.
type AuctionEvent struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	TokenID   string                 `gorm:"column:token_id;not null;index"`
	Type      enums.AuctionEventType `gorm:"column:type;not null"`
	Actor     string                 `gorm:"column:actor;not null"`
	AmountWei string                 `gorm:"column:amount_wei;not null;default:'0'"`
	TxHash    string                 `gorm:"column:tx_hash;not null"`
	Block     uint64                 `gorm:"column:block_number;not null"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (AuctionEvent) TableName() string { return "auction_events" }

func (e *AuctionEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
