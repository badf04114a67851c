package repository

import (
	"context"
	"fmt"

	"github.com/isaqueitalo/restaurante-1.0/internal/model"
)

// AuditStore is the append-only till audit log.
type AuditStore interface {
	AppendAudit(ctx context.Context, e *model.AuditEntry) error
	// RecentAudit returns at most limit entries, newest first.
	RecentAudit(ctx context.Context, limit int) ([]model.AuditEntry, error)
}

func (r *ledgerRepo) AppendAudit(ctx context.Context, e *model.AuditEntry) error {
	if err := conn(ctx, r.db).Create(e).Error; err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (r *ledgerRepo) RecentAudit(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	var entries []model.AuditEntry
	err := conn(ctx, r.db).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
