package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/isaqueitalo/restaurante-1.0/internal/clock"
	"github.com/isaqueitalo/restaurante-1.0/internal/model"
	"github.com/isaqueitalo/restaurante-1.0/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// SessionManager owns the till lifecycle and the single guard every ledger
// mutation goes through.
type SessionManager interface {
	Open(ctx context.Context, openingFloat decimal.Decimal, actor string) (*model.RegisterSession, error)
	Close(ctx context.Context, in CloseInput) (*model.RegisterSession, error)
	// CurrentOpenSession returns nil, nil when no session is open.
	CurrentOpenSession(ctx context.Context) (*model.RegisterSession, error)
	// WithOpenSession runs fn under the guard against the OPEN session.
	// sessionID 0 selects whichever session is open.
	WithOpenSession(ctx context.Context, sessionID int64, fn func(ctx context.Context, s *model.RegisterSession) error) error
}

// CloseInput carries the blind count declared by the closing operator.
type CloseInput struct {
	Counted decimal.Decimal
	Actor   string
	Notes   *string
}

type sessionManager struct {
	mu              sync.Mutex
	store           repository.LedgerStore
	clock           clock.Clock
	defaultOperator string
}

func NewSessionManager(store repository.LedgerStore, clk clock.Clock, defaultOperator string) SessionManager {
	return &sessionManager{store: store, clock: clk, defaultOperator: defaultOperator}
}

// ── Open ──────────────────────────────────────────────────────────────────────

func (m *sessionManager) Open(ctx context.Context, openingFloat decimal.Decimal, actor string) (*model.RegisterSession, error) {
	if openingFloat.IsNegative() {
		return nil, fmt.Errorf("opening float %s: %w", openingFloat, ErrInvalidAmount)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var opened *model.RegisterSession
	err := m.store.WithTx(ctx, func(ctx context.Context) error {
		current, err := m.store.FindOpenSession(ctx)
		if err != nil {
			return fmt.Errorf("find open session: %w", err)
		}
		if current != nil {
			return ErrSessionAlreadyOpen
		}

		s := &model.RegisterSession{
			OpenedAt:     m.clock.Now(),
			OpenedBy:     m.actor(actor),
			OpeningFloat: model.RoundMoney(openingFloat),
			Status:       model.SessionOpen,
		}
		if err := m.store.AppendSession(ctx, s); err != nil {
			if errors.Is(err, repository.ErrOpenSessionExists) {
				return ErrSessionAlreadyOpen
			}
			return fmt.Errorf("append session: %w", err)
		}
		opened = s
		return writeAudit(ctx, m.store, s.OpenedAt, model.AuditOpen, s.OpenedBy, s.ID,
			"opening float "+s.OpeningFloat.StringFixed(model.MoneyPlaces))
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("session_id", opened.ID).
		Str("actor", opened.OpenedBy).
		Str("opening_float", opened.OpeningFloat.StringFixed(model.MoneyPlaces)).
		Msg("register session opened")
	return opened, nil
}

// ── Close ─────────────────────────────────────────────────────────────────────
// expected = opening float + Σ cash impact; difference = counted − expected.
// All closing fields are written by one conditional update.

func (m *sessionManager) Close(ctx context.Context, in CloseInput) (*model.RegisterSession, error) {
	if in.Counted.IsNegative() {
		return nil, fmt.Errorf("counted cash %s: %w", in.Counted, ErrInvalidAmount)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var closed *model.RegisterSession
	err := m.store.WithTx(ctx, func(ctx context.Context) error {
		s, err := m.store.FindOpenSession(ctx)
		if err != nil {
			return fmt.Errorf("find open session: %w", err)
		}
		if s == nil {
			return ErrNoOpenSession
		}

		movs, err := m.store.MovementsBySession(ctx, s.ID)
		if err != nil {
			return fmt.Errorf("load movements of session %d: %w", s.ID, err)
		}

		expected := model.RoundMoney(s.OpeningFloat.Add(sumCashImpact(movs)))
		counted := model.RoundMoney(in.Counted)
		difference := counted.Sub(expected)
		now := m.clock.Now()
		closedBy := m.actor(in.Actor)

		s.Status = model.SessionClosed
		s.ClosedAt = &now
		s.ClosedBy = &closedBy
		s.ExpectedCash = &expected
		s.CountedCash = &counted
		s.Difference = &difference
		s.Notes = normalizeNotes(in.Notes)

		if err := m.store.UpdateSession(ctx, s); err != nil {
			if errors.Is(err, repository.ErrSessionNotOpen) {
				return ErrNoOpenSession
			}
			return fmt.Errorf("close session %d: %w", s.ID, err)
		}
		closed = s
		return writeAudit(ctx, m.store, now, model.AuditClose, closedBy, s.ID, fmt.Sprintf(
			"expected %s counted %s difference %s",
			expected.StringFixed(model.MoneyPlaces),
			counted.StringFixed(model.MoneyPlaces),
			difference.StringFixed(model.MoneyPlaces)))
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("session_id", closed.ID).
		Str("actor", *closed.ClosedBy).
		Str("expected", closed.ExpectedCash.StringFixed(model.MoneyPlaces)).
		Str("counted", closed.CountedCash.StringFixed(model.MoneyPlaces)).
		Str("difference", closed.Difference.StringFixed(model.MoneyPlaces)).
		Msg("register session closed")
	return closed, nil
}

// ── Lookups ───────────────────────────────────────────────────────────────────

func (m *sessionManager) CurrentOpenSession(ctx context.Context) (*model.RegisterSession, error) {
	s, err := m.store.FindOpenSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("find open session: %w", err)
	}
	return s, nil
}

func (m *sessionManager) WithOpenSession(ctx context.Context, sessionID int64, fn func(ctx context.Context, s *model.RegisterSession) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store.WithTx(ctx, func(ctx context.Context) error {
		open, err := m.store.FindOpenSession(ctx)
		if err != nil {
			return fmt.Errorf("find open session: %w", err)
		}
		if sessionID != 0 && (open == nil || open.ID != sessionID) {
			if _, err := m.store.FindSession(ctx, sessionID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("session %d: %w", sessionID, ErrSessionNotFound)
				}
				return fmt.Errorf("find session %d: %w", sessionID, err)
			}
			return fmt.Errorf("session %d: %w", sessionID, ErrNoOpenSession)
		}
		if open == nil {
			return ErrNoOpenSession
		}
		return fn(ctx, open)
	})
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (m *sessionManager) actor(a string) string {
	if a = strings.TrimSpace(a); a != "" {
		return a
	}
	return m.defaultOperator
}

func normalizeNotes(n *string) *string {
	if n == nil {
		return nil
	}
	v := strings.TrimSpace(*n)
	if v == "" {
		return nil
	}
	return &v
}

func sumCashImpact(movs []model.Movement) decimal.Decimal {
	total := decimal.Zero
	for i := range movs {
		total = total.Add(movs[i].CashImpact)
	}
	return total
}
