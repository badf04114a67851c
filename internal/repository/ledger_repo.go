package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerStore is the durable list of register sessions and their movements.
// Implementations return copies; callers never share state with the store.
type LedgerStore interface {
	// WithTx runs fn so that every store call made with the ctx it receives
	// is part of one all-or-nothing unit.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	AppendSession(ctx context.Context, s *model.RegisterSession) error
	// UpdateSession writes the closing fields of a session that is still OPEN.
	UpdateSession(ctx context.Context, s *model.RegisterSession) error
	FindSession(ctx context.Context, id int64) (*model.RegisterSession, error)
	// FindOpenSession returns nil, nil when no session is open. Inside WithTx
	// the row stays locked until the unit ends.
	FindOpenSession(ctx context.Context) (*model.RegisterSession, error)
	AllSessions(ctx context.Context) ([]model.RegisterSession, error)

	AppendMovement(ctx context.Context, m *model.Movement) error
	AllMovements(ctx context.Context) ([]model.Movement, error)
	MovementsBySession(ctx context.Context, sessionID int64) ([]model.Movement, error)
	// MovementsInRange returns movements with from <= created_at < until.
	MovementsInRange(ctx context.Context, from, until time.Time) ([]model.Movement, error)

	AuditStore
}

type ledgerRepo struct{ db *gorm.DB }

func NewLedgerRepository(db *gorm.DB) LedgerStore { return &ledgerRepo{db: db} }

func (r *ledgerRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

func (r *ledgerRepo) AppendSession(ctx context.Context, s *model.RegisterSession) error {
	err := conn(ctx, r.db).Create(s).Error
	if isUniqueViolation(err) {
		return ErrOpenSessionExists
	}
	return err
}

func (r *ledgerRepo) UpdateSession(ctx context.Context, s *model.RegisterSession) error {
	res := conn(ctx, r.db).Model(&model.RegisterSession{}).
		Where("id = ? AND status = ?", s.ID, model.SessionOpen).
		Updates(map[string]interface{}{
			"status":        s.Status,
			"closed_at":     s.ClosedAt,
			"closed_by":     s.ClosedBy,
			"expected_cash": s.ExpectedCash,
			"counted_cash":  s.CountedCash,
			"difference":    s.Difference,
			"notes":         s.Notes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotOpen
	}
	return nil
}

func (r *ledgerRepo) FindSession(ctx context.Context, id int64) (*model.RegisterSession, error) {
	var s model.RegisterSession
	err := conn(ctx, r.db).First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ledgerRepo) FindOpenSession(ctx context.Context) (*model.RegisterSession, error) {
	q := conn(ctx, r.db)
	if txFromContext(ctx) != nil {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rows []model.RegisterSession
	if err := q.Where("status = ?", model.SessionOpen).Order("id ASC").Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *ledgerRepo) AllSessions(ctx context.Context) ([]model.RegisterSession, error) {
	var sessions []model.RegisterSession
	err := conn(ctx, r.db).Order("id ASC").Find(&sessions).Error
	return sessions, err
}

func (r *ledgerRepo) AppendMovement(ctx context.Context, m *model.Movement) error {
	if err := conn(ctx, r.db).Create(m).Error; err != nil {
		return fmt.Errorf("append movement: %w", err)
	}
	return nil
}

func (r *ledgerRepo) AllMovements(ctx context.Context) ([]model.Movement, error) {
	var movs []model.Movement
	err := conn(ctx, r.db).Order("created_at ASC, id ASC").Find(&movs).Error
	return movs, err
}

func (r *ledgerRepo) MovementsBySession(ctx context.Context, sessionID int64) ([]model.Movement, error) {
	var movs []model.Movement
	err := conn(ctx, r.db).Where("session_id = ?", sessionID).Order("created_at ASC, id ASC").Find(&movs).Error
	return movs, err
}

func (r *ledgerRepo) MovementsInRange(ctx context.Context, from, until time.Time) ([]model.Movement, error) {
	var movs []model.Movement
	err := conn(ctx, r.db).
		Where("created_at >= ? AND created_at < ?", from, until).
		Order("created_at ASC, id ASC").
		Find(&movs).Error
	return movs, err
}
