package model

import "time"

// AuditAction names a till operation written to the audit log.
type AuditAction string

const (
	AuditOpen       AuditAction = "OPEN"
	AuditClose      AuditAction = "CLOSE"
	AuditSupply     AuditAction = "SUPPLY"
	AuditWithdrawal AuditAction = "WITHDRAWAL"
	AuditSale       AuditAction = "SALE"
)

// AuditActionFor maps a movement kind to the action logged for it.
func AuditActionFor(k MovementKind) AuditAction {
	switch {
	case k == KindSupply:
		return AuditSupply
	case k == KindWithdrawal:
		return AuditWithdrawal
	default:
		return AuditSale
	}
}

// AuditEntry is one row of the till audit log. Rows are written in the same
// unit as the operation they describe and never updated.
type AuditEntry struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	Action    AuditAction `gorm:"type:varchar(20);not null" json:"action"`
	Actor     string      `gorm:"type:varchar(100);not null" json:"actor"`
	SessionID *int64      `gorm:"index" json:"session_id"`
	Details   string      `gorm:"type:text;not null;default:''" json:"details"`
	CreatedAt time.Time   `gorm:"not null;index" json:"created_at"`
}

func (AuditEntry) TableName() string { return "till_audit_log" }
