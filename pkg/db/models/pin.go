package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nftennis/nftennis-backend/pkg/enums"
)

// Pin is one object the mint pipeline pinned to IPFS. Rows that never reach
// status minted are the accepted storage growth of failed mints.
type Pin struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CID       string          `gorm:"column:cid;not null;index"`
	Kind      enums.PinKind   `gorm:"column:kind;not null"`
	FileName  string          `gorm:"column:file_name;not null"`
	MimeType  string          `gorm:"column:mime_type;not null"`
	SizeBytes int64           `gorm:"column:size_bytes;not null"`
	Status    enums.PinStatus `gorm:"column:status;not null;index"`
	TokenID   *string         `gorm:"column:token_id"`
	Recipient string          `gorm:"column:recipient;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Pin) TableName() string { return "pins" }

func (p *Pin) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
