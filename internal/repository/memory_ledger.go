package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/model"

	"github.com/shopspring/decimal"
)

// MemoryLedger is an in-process LedgerStore and DiscountStore. It enforces the
// same rules as the SQL schema: one OPEN session, no orphan movements, closing
// updates only on OPEN rows.
type MemoryLedger struct {
	mu        sync.RWMutex
	lastID    int64
	sessions  []model.RegisterSession
	movements []model.Movement
	discounts []model.DiscountEvent
	audit     []model.AuditEntry
}

func NewMemoryLedger() *MemoryLedger { return &MemoryLedger{} }

var (
	_ LedgerStore   = (*MemoryLedger)(nil)
	_ DiscountStore = (*MemoryLedger)(nil)
	_ AuditStore    = (*MemoryLedger)(nil)
)

// WithTx runs fn directly: every MemoryLedger call is already atomic and the
// session manager serialises writers.
func (l *MemoryLedger) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (l *MemoryLedger) AppendSession(_ context.Context, s *model.RegisterSession) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s.Status == model.SessionOpen {
		for i := range l.sessions {
			if l.sessions[i].Status == model.SessionOpen {
				return ErrOpenSessionExists
			}
		}
	}
	if s.ID == 0 {
		s.ID = l.lastID + 1
	}
	if s.ID > l.lastID {
		l.lastID = s.ID
	}
	l.sessions = append(l.sessions, cloneSession(*s))
	return nil
}

func (l *MemoryLedger) UpdateSession(_ context.Context, s *model.RegisterSession) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(s.ID)
	if i < 0 {
		return ErrNotFound
	}
	if l.sessions[i].Status != model.SessionOpen {
		return ErrSessionNotOpen
	}
	l.sessions[i] = cloneSession(*s)
	return nil
}

func (l *MemoryLedger) FindSession(_ context.Context, id int64) (*model.RegisterSession, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i := l.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	s := cloneSession(l.sessions[i])
	return &s, nil
}

func (l *MemoryLedger) FindOpenSession(_ context.Context) (*model.RegisterSession, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := range l.sessions {
		if l.sessions[i].Status == model.SessionOpen {
			s := cloneSession(l.sessions[i])
			return &s, nil
		}
	}
	return nil, nil
}

func (l *MemoryLedger) AllSessions(_ context.Context) ([]model.RegisterSession, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.RegisterSession, len(l.sessions))
	for i := range l.sessions {
		out[i] = cloneSession(l.sessions[i])
	}
	return out, nil
}

func (l *MemoryLedger) AppendMovement(_ context.Context, m *model.Movement) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.indexOf(m.SessionID) < 0 {
		return ErrNotFound
	}
	l.movements = append(l.movements, cloneMovement(*m))
	return nil
}

func (l *MemoryLedger) AllMovements(_ context.Context) ([]model.Movement, error) {
	return l.filterMovements(func(*model.Movement) bool { return true }), nil
}

func (l *MemoryLedger) MovementsBySession(_ context.Context, sessionID int64) ([]model.Movement, error) {
	return l.filterMovements(func(m *model.Movement) bool { return m.SessionID == sessionID }), nil
}

func (l *MemoryLedger) MovementsInRange(_ context.Context, from, until time.Time) ([]model.Movement, error) {
	return l.filterMovements(func(m *model.Movement) bool {
		return !m.CreatedAt.Before(from) && m.CreatedAt.Before(until)
	}), nil
}

func (l *MemoryLedger) AppendDiscount(_ context.Context, d *model.DiscountEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.discounts = append(l.discounts, *d)
	return nil
}

func (l *MemoryLedger) DiscountsBetween(_ context.Context, from, to time.Time) ([]model.DiscountEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []model.DiscountEvent
	for _, d := range l.discounts {
		if !d.CreatedAt.Before(from) && !d.CreatedAt.After(to) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (l *MemoryLedger) AppendAudit(_ context.Context, e *model.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.ID = int64(len(l.audit) + 1)
	l.audit = append(l.audit, cloneAudit(*e))
	return nil
}

func (l *MemoryLedger) RecentAudit(_ context.Context, limit int) ([]model.AuditEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.AuditEntry, len(l.audit))
	for i := range l.audit {
		out[i] = cloneAudit(l.audit[i])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// filterMovements returns matching movements ordered by creation time; ties
// keep insertion order.
func (l *MemoryLedger) filterMovements(keep func(*model.Movement) bool) []model.Movement {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []model.Movement
	for i := range l.movements {
		if keep(&l.movements[i]) {
			out = append(out, cloneMovement(l.movements[i]))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (l *MemoryLedger) indexOf(id int64) int {
	for i := range l.sessions {
		if l.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneSession(s model.RegisterSession) model.RegisterSession {
	s.ClosedAt = cloneTime(s.ClosedAt)
	s.ClosedBy = cloneString(s.ClosedBy)
	s.ExpectedCash = cloneDecimal(s.ExpectedCash)
	s.CountedCash = cloneDecimal(s.CountedCash)
	s.Difference = cloneDecimal(s.Difference)
	s.Notes = cloneString(s.Notes)
	return s
}

func cloneMovement(m model.Movement) model.Movement {
	if m.PaymentMethod != nil {
		pm := *m.PaymentMethod
		m.PaymentMethod = &pm
	}
	return m
}

func cloneAudit(e model.AuditEntry) model.AuditEntry {
	if e.SessionID != nil {
		id := *e.SessionID
		e.SessionID = &id
	}
	return e
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
