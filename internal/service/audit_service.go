package service

import (
	"context"
	"fmt"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/model"
	"github.com/isaqueitalo/restaurante-1.0/internal/repository"
)

const (
	DefaultAuditLimit = 100
	MaxAuditLimit     = 1000
)

// AuditService lists the till audit log. Entries are written by
// SessionManager and MovementRecorder inside the unit of the operation.
type AuditService interface {
	// Recent returns the newest entries first. A limit outside
	// (0, MaxAuditLimit] falls back to DefaultAuditLimit or MaxAuditLimit.
	Recent(ctx context.Context, limit int) ([]model.AuditEntry, error)
}

type auditService struct {
	store repository.AuditStore
}

func NewAuditService(store repository.AuditStore) AuditService {
	return &auditService{store: store}
}

func (s *auditService) Recent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultAuditLimit
	case limit > MaxAuditLimit:
		limit = MaxAuditLimit
	}
	entries, err := s.store.RecentAudit(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	return entries, nil
}

// writeAudit appends one entry using ctx, so inside WithTx it commits or rolls
// back together with the operation.
func writeAudit(ctx context.Context, store repository.AuditStore, at time.Time, action model.AuditAction, actor string, sessionID int64, details string) error {
	e := &model.AuditEntry{
		Action:    action,
		Actor:     actor,
		SessionID: &sessionID,
		Details:   details,
		CreatedAt: at,
	}
	if err := store.AppendAudit(ctx, e); err != nil {
		return fmt.Errorf("audit %s: %w", action, err)
	}
	return nil
}
