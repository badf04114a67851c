package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountEvent is written by the tab service whenever a discount is granted on
// a tab or on one of its items. The till only reads it, keyed by CreatedAt.
type DiscountEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TabID     *int64    `gorm:"index"`
	ItemID    *int64
	Reason    string          `gorm:"type:varchar(100);not null;default:''"`
	Actor     string          `gorm:"type:varchar(100);not null;default:''"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time       `gorm:"not null;index"`
}

func (DiscountEvent) TableName() string { return "discount_events" }
