package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus: "OPEN" | "CLOSED". CLOSED is terminal.
type SessionStatus string

const (
	SessionOpen   SessionStatus = "OPEN"
	SessionClosed SessionStatus = "CLOSED"
)

// RegisterSession is one till opening-to-closing period.
// The closing fields are nil until Close writes all of them in one update.
// Difference may also be nil on legacy rows that never stored one.
type RegisterSession struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	OpenedAt     time.Time       `gorm:"not null;index"`
	OpenedBy     string          `gorm:"type:varchar(100);not null"`
	OpeningFloat decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status       SessionStatus   `gorm:"type:varchar(10);not null;default:'OPEN'"`
	ClosedAt     *time.Time      `gorm:"index"`
	ClosedBy     *string         `gorm:"type:varchar(100)"`
	// ExpectedCash is computed on close: OpeningFloat + SUM(movements.cash_impact)
	ExpectedCash *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CountedCash  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Difference   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Notes        *string
}

func (RegisterSession) TableName() string { return "register_sessions" }

func (s *RegisterSession) IsOpen() bool { return s.Status == SessionOpen }

// HasClosingData reports whether any closing field was ever stored.
func (s *RegisterSession) HasClosingData() bool {
	return s.ExpectedCash != nil || s.CountedCash != nil || s.Difference != nil
}

// ReferenceTime is the instant used to place a session on a calendar day:
// the closing time when known, the opening time otherwise.
func (s *RegisterSession) ReferenceTime() time.Time {
	if s.ClosedAt != nil {
		return *s.ClosedAt
	}
	return s.OpenedAt
}
