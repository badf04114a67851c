package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/clock"
	"github.com/isaqueitalo/restaurante-1.0/internal/model"
	"github.com/isaqueitalo/restaurante-1.0/internal/repository"

	"github.com/shopspring/decimal"
)

// SummaryState tells a UI whether the figures of a Summary are final.
type SummaryState string

const (
	StateOpen   SummaryState = "OPEN"
	StateClosed SummaryState = "CLOSED"
	// StateIncomplete marks a legacy record whose counted cash cannot be
	// reconstructed, or an OPEN session carrying stray closing data.
	StateIncomplete SummaryState = "INCOMPLETE"
)

// DifferenceClass grades |difference| / expected.
type DifferenceClass string

const (
	DifferenceNormal   DifferenceClass = "normal"   // <= 1%
	DifferenceWarning  DifferenceClass = "warning"  // <= 5%
	DifferenceCritical DifferenceClass = "critical" // > 5%
)

// Summary is the closing report of one session. Counted and Difference are nil
// when unknown, never a guessed zero.
type Summary struct {
	SessionID      int64
	Status         model.SessionStatus
	State          SummaryState
	OpenedAt       time.Time
	OpenedBy       string
	ClosedAt       *time.Time
	ClosedBy       *string
	OpeningFloat   decimal.Decimal
	Expected       decimal.Decimal
	Counted        *decimal.Decimal
	Difference     *decimal.Decimal
	DifferencePct  *decimal.Decimal
	Classification *DifferenceClass
	Payments       map[model.PaymentMethod]decimal.Decimal
	Supplies       decimal.Decimal
	Withdrawals    decimal.Decimal
	Discounts      decimal.Decimal
	PositiveImpact decimal.Decimal
	NegativeImpact decimal.Decimal
	Notes          *string
}

// ExtraTotals are the SUPPLY and WITHDRAWAL face values, both positive.
type ExtraTotals struct {
	Supplies    decimal.Decimal
	Withdrawals decimal.Decimal
}

// DayMovements lists every movement created on one calendar day.
type DayMovements struct {
	Date                time.Time
	Movements           []model.Movement
	TotalValue          decimal.Decimal
	TotalPositiveImpact decimal.Decimal
	TotalNegativeImpact decimal.Decimal
}

// ReconciliationService derives balances and reports from the ledger. It never
// writes.
type ReconciliationService interface {
	CashBalance(ctx context.Context, sessionID int64) (decimal.Decimal, error)
	TotalsByPaymentMethod(ctx context.Context, sessionID int64) (map[model.PaymentMethod]decimal.Decimal, error)
	SupplyAndWithdrawalTotals(ctx context.Context, sessionID int64) (ExtraTotals, error)
	// DiscountsInPeriod sums discounts granted in [opened_at, closed_at or now].
	DiscountsInPeriod(ctx context.Context, s *model.RegisterSession) (decimal.Decimal, error)
	ClosingSummary(ctx context.Context, sessionID int64) (*Summary, error)
	MostRecentClosedSummary(ctx context.Context) (*Summary, error)
	// ClosedSummariesOnDate takes the calendar day of date; the time of day is ignored.
	ClosedSummariesOnDate(ctx context.Context, date time.Time) ([]Summary, error)
	MovementsOnDate(ctx context.Context, date time.Time) (*DayMovements, error)
}

type reconciliationService struct {
	store     repository.LedgerStore
	discounts repository.DiscountStore
	clock     clock.Clock
	loc       *time.Location
}

// NewReconciliationService buckets calendar days in loc (UTC when nil).
func NewReconciliationService(store repository.LedgerStore, discounts repository.DiscountStore, clk clock.Clock, loc *time.Location) ReconciliationService {
	if loc == nil {
		loc = time.UTC
	}
	return &reconciliationService{store: store, discounts: discounts, clock: clk, loc: loc}
}

// ── Per-session totals ────────────────────────────────────────────────────────

func (s *reconciliationService) CashBalance(ctx context.Context, sessionID int64) (decimal.Decimal, error) {
	sess, movs, err := s.load(ctx, sessionID)
	if err != nil {
		return decimal.Zero, err
	}
	return sess.OpeningFloat.Add(sumCashImpact(movs)), nil
}

func (s *reconciliationService) TotalsByPaymentMethod(ctx context.Context, sessionID int64) (map[model.PaymentMethod]decimal.Decimal, error) {
	_, movs, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return paymentTotals(movs), nil
}

func (s *reconciliationService) SupplyAndWithdrawalTotals(ctx context.Context, sessionID int64) (ExtraTotals, error) {
	_, movs, err := s.load(ctx, sessionID)
	if err != nil {
		return ExtraTotals{}, err
	}
	return extraTotals(movs), nil
}

func (s *reconciliationService) DiscountsInPeriod(ctx context.Context, sess *model.RegisterSession) (decimal.Decimal, error) {
	until := s.clock.Now()
	if sess.ClosedAt != nil {
		until = *sess.ClosedAt
	}
	events, err := s.discounts.DiscountsBetween(ctx, sess.OpenedAt, until)
	if err != nil {
		return decimal.Zero, fmt.Errorf("discounts of session %d: %w", sess.ID, err)
	}
	total := decimal.Zero
	for i := range events {
		total = total.Add(events[i].Amount)
	}
	return total, nil
}

// ── Summaries ─────────────────────────────────────────────────────────────────

func (s *reconciliationService) ClosingSummary(ctx context.Context, sessionID int64) (*Summary, error) {
	sess, movs, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, sess, movs)
}

func (s *reconciliationService) MostRecentClosedSummary(ctx context.Context) (*Summary, error) {
	sessions, err := s.store.AllSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var latest *model.RegisterSession
	for i := range sessions {
		c := &sessions[i]
		if c.Status != model.SessionClosed {
			continue
		}
		if latest == nil || closedAfter(c, latest) {
			latest = c
		}
	}
	if latest == nil {
		return nil, ErrNoClosedSession
	}
	return s.summaryOf(ctx, latest)
}

func (s *reconciliationService) ClosedSummariesOnDate(ctx context.Context, date time.Time) ([]Summary, error) {
	from, until := s.dayBounds(date)
	sessions, err := s.store.AllSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var onDay []*model.RegisterSession
	for i := range sessions {
		c := &sessions[i]
		ref := c.ReferenceTime()
		if c.Status == model.SessionClosed && !ref.Before(from) && ref.Before(until) {
			onDay = append(onDay, c)
		}
	}
	sort.SliceStable(onDay, func(i, j int) bool { return closedAfter(onDay[j], onDay[i]) })

	out := make([]Summary, 0, len(onDay))
	for _, c := range onDay {
		sum, err := s.summaryOf(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, *sum)
	}
	return out, nil
}

func (s *reconciliationService) MovementsOnDate(ctx context.Context, date time.Time) (*DayMovements, error) {
	from, until := s.dayBounds(date)
	movs, err := s.store.MovementsInRange(ctx, from, until)
	if err != nil {
		return nil, fmt.Errorf("movements on %s: %w", from.Format("2006-01-02"), err)
	}
	sort.SliceStable(movs, func(i, j int) bool { return movs[i].CreatedAt.Before(movs[j].CreatedAt) })

	day := &DayMovements{
		Date:                from,
		Movements:           movs,
		TotalValue:          decimal.Zero,
		TotalPositiveImpact: decimal.Zero,
		TotalNegativeImpact: decimal.Zero,
	}
	for i := range movs {
		day.TotalValue = day.TotalValue.Add(movs[i].Amount)
		switch {
		case movs[i].CashImpact.IsPositive():
			day.TotalPositiveImpact = day.TotalPositiveImpact.Add(movs[i].CashImpact)
		case movs[i].CashImpact.IsNegative():
			day.TotalNegativeImpact = day.TotalNegativeImpact.Add(movs[i].CashImpact)
		}
	}
	return day, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *reconciliationService) load(ctx context.Context, sessionID int64) (*model.RegisterSession, []model.Movement, error) {
	sess, err := s.store.FindSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("session %d: %w", sessionID, ErrSessionNotFound)
		}
		return nil, nil, fmt.Errorf("find session %d: %w", sessionID, err)
	}
	movs, err := s.store.MovementsBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load movements of session %d: %w", sessionID, err)
	}
	return sess, movs, nil
}

func (s *reconciliationService) summaryOf(ctx context.Context, sess *model.RegisterSession) (*Summary, error) {
	movs, err := s.store.MovementsBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("load movements of session %d: %w", sess.ID, err)
	}
	return s.summarize(ctx, sess, movs)
}

// summarize applies the reconstruction rule for records with missing closing
// fields:
//
//	expected = stored expected | counted − difference | ledger balance
//	counted  = stored counted  | expected + difference | unknown
//
// The difference is reported only for CLOSED sessions or sessions carrying
// closing data, and only when counted is known.
func (s *reconciliationService) summarize(ctx context.Context, sess *model.RegisterSession, movs []model.Movement) (*Summary, error) {
	discounts, err := s.DiscountsInPeriod(ctx, sess)
	if err != nil {
		return nil, err
	}

	var expected decimal.Decimal
	switch {
	case sess.ExpectedCash != nil:
		expected = *sess.ExpectedCash
	case sess.CountedCash != nil && sess.Difference != nil:
		expected = sess.CountedCash.Sub(*sess.Difference)
	default:
		expected = sess.OpeningFloat.Add(sumCashImpact(movs))
	}

	var counted *decimal.Decimal
	switch {
	case sess.CountedCash != nil:
		v := *sess.CountedCash
		counted = &v
	case sess.Difference != nil:
		v := expected.Add(*sess.Difference)
		counted = &v
	}

	closed := sess.Status == model.SessionClosed
	sum := &Summary{
		SessionID:    sess.ID,
		Status:       sess.Status,
		OpenedAt:     sess.OpenedAt,
		OpenedBy:     sess.OpenedBy,
		ClosedAt:     sess.ClosedAt,
		ClosedBy:     sess.ClosedBy,
		OpeningFloat: sess.OpeningFloat,
		Expected:     expected,
		Payments:     paymentTotals(movs),
		Discounts:    discounts,
		Notes:        sess.Notes,
	}
	extras := extraTotals(movs)
	sum.Supplies, sum.Withdrawals = extras.Supplies, extras.Withdrawals
	sum.PositiveImpact, sum.NegativeImpact = splitImpacts(movs)

	if counted != nil && (closed || sess.HasClosingData()) {
		sum.Counted = counted
		diff := counted.Sub(expected)
		sum.Difference = &diff
		sum.DifferencePct = differencePct(diff, expected)
		class := classifyDifference(diff, expected)
		sum.Classification = &class
	}

	switch {
	case closed && counted == nil:
		sum.State = StateIncomplete
	case closed:
		sum.State = StateClosed
	case sess.HasClosingData():
		sum.State = StateIncomplete
	default:
		sum.State = StateOpen
	}
	return sum, nil
}

// dayBounds returns [midnight, next midnight) of date's calendar day in s.loc.
// The instant is converted first, so the zone date was expressed in is irrelevant.
func (s *reconciliationService) dayBounds(date time.Time) (time.Time, time.Time) {
	y, m, d := date.In(s.loc).Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	return from, from.AddDate(0, 0, 1)
}

// closedAfter orders sessions by closing time (opening time when never
// closed), breaking ties by id.
func closedAfter(a, b *model.RegisterSession) bool {
	ta, tb := a.ReferenceTime(), b.ReferenceTime()
	if ta.Equal(tb) {
		return a.ID > b.ID
	}
	return ta.After(tb)
}

func paymentTotals(movs []model.Movement) map[model.PaymentMethod]decimal.Decimal {
	totals := make(map[model.PaymentMethod]decimal.Decimal, len(model.PaymentMethods))
	for _, pm := range model.PaymentMethods {
		totals[pm] = decimal.Zero
	}
	for i := range movs {
		if pm, ok := movs[i].Kind.Method(); ok {
			totals[pm] = totals[pm].Add(movs[i].Amount)
		}
	}
	return totals
}

func extraTotals(movs []model.Movement) ExtraTotals {
	out := ExtraTotals{Supplies: decimal.Zero, Withdrawals: decimal.Zero}
	for i := range movs {
		switch movs[i].Kind {
		case model.KindSupply:
			out.Supplies = out.Supplies.Add(movs[i].Amount)
		case model.KindWithdrawal:
			out.Withdrawals = out.Withdrawals.Add(movs[i].Amount.Abs())
		}
	}
	return out
}

func splitImpacts(movs []model.Movement) (positive, negative decimal.Decimal) {
	positive, negative = decimal.Zero, decimal.Zero
	for i := range movs {
		switch {
		case movs[i].CashImpact.IsPositive():
			positive = positive.Add(movs[i].CashImpact)
		case movs[i].CashImpact.IsNegative():
			negative = negative.Add(movs[i].CashImpact)
		}
	}
	return positive, negative
}

var hundred = decimal.NewFromInt(100)

// differencePct is nil when expected is zero.
func differencePct(diff, expected decimal.Decimal) *decimal.Decimal {
	if expected.IsZero() {
		return nil
	}
	pct := diff.Div(expected).Mul(hundred).Round(2)
	return &pct
}

// classifyDifference: normal |pct| <= 1, warning <= 5, critical > 5.
// With nothing expected any shortage or surplus is critical.
func classifyDifference(diff, expected decimal.Decimal) DifferenceClass {
	if expected.IsZero() {
		if diff.IsZero() {
			return DifferenceNormal
		}
		return DifferenceCritical
	}
	abs := diff.Div(expected).Mul(hundred).Round(2).Abs()
	switch {
	case abs.LessThanOrEqual(decimal.NewFromInt(1)):
		return DifferenceNormal
	case abs.LessThanOrEqual(decimal.NewFromInt(5)):
		return DifferenceWarning
	default:
		return DifferenceCritical
	}
}
