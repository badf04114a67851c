package dto

import (
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/model"
	"github.com/isaqueitalo/restaurante-1.0/internal/service"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenTillRequest struct {
	OpeningFloat decimal.Decimal `json:"opening_float" validate:"min=0"`
}

type CloseTillRequest struct {
	CountedCash decimal.Decimal `json:"counted_cash" validate:"min=0"`
	Notes       *string         `json:"notes"        validate:"omitempty,max=500"`
}

// MovementRequest records a movement. SessionID 0 (or absent) targets the open
// session. Tendered is required for SALE_CASH.
type MovementRequest struct {
	SessionID     int64            `json:"session_id"     validate:"omitempty,min=1"`
	Kind          string           `json:"kind"           validate:"required"`
	Amount        decimal.Decimal  `json:"amount"         validate:"min=0"`
	Description   string           `json:"description"    validate:"max=255"`
	PaymentMethod string           `json:"payment_method" validate:"max=20"`
	Tendered      *decimal.Decimal `json:"tendered"`
}

type DiscountRequest struct {
	TabID  *int64          `json:"tab_id"  validate:"omitempty,min=1"`
	ItemID *int64          `json:"item_id" validate:"omitempty,min=1"`
	Reason string          `json:"reason"  validate:"max=100"`
	Amount decimal.Decimal `json:"amount"  validate:"min=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────
// Money is rendered as a decimal string with two fraction digits.

type SessionResponse struct {
	ID           int64   `json:"id"`
	Status       string  `json:"status"`
	OpenedAt     string  `json:"opened_at"`
	OpenedBy     string  `json:"opened_by"`
	OpeningFloat string  `json:"opening_float"`
	ClosedAt     *string `json:"closed_at"`
	ClosedBy     *string `json:"closed_by"`
	ExpectedCash *string `json:"expected_cash"`
	CountedCash  *string `json:"counted_cash"`
	Difference   *string `json:"difference"`
	Notes        *string `json:"notes"`
}

type MovementResponse struct {
	ID            string  `json:"id"`
	SessionID     int64   `json:"session_id"`
	Kind          string  `json:"kind"`
	Amount        string  `json:"amount"`
	PaymentMethod *string `json:"payment_method"`
	Description   string  `json:"description"`
	CreatedAt     string  `json:"created_at"`
	Actor         string  `json:"actor"`
	CashImpact    string  `json:"cash_impact"`
}

type BalanceResponse struct {
	SessionID int64  `json:"session_id"`
	Balance   string `json:"balance"`
}

type PaymentsResponse struct {
	SessionID int64             `json:"session_id"`
	Totals    map[string]string `json:"totals"`
}

type ExtrasResponse struct {
	SessionID   int64  `json:"session_id"`
	Supplies    string `json:"supplies"`
	Withdrawals string `json:"withdrawals"`
}

type SummaryResponse struct {
	SessionID      int64             `json:"session_id"`
	Status         string            `json:"status"`
	State          string            `json:"state"` // OPEN | CLOSED | INCOMPLETE
	OpenedAt       string            `json:"opened_at"`
	OpenedBy       string            `json:"opened_by"`
	ClosedAt       *string           `json:"closed_at"`
	ClosedBy       *string           `json:"closed_by"`
	OpeningFloat   string            `json:"opening_float"`
	Expected       string            `json:"expected"`
	Counted        *string           `json:"counted"`
	Difference     *string           `json:"difference"`
	DifferencePct  *string           `json:"difference_pct"`
	Classification *string           `json:"classification"` // normal | warning | critical
	Payments       map[string]string `json:"payments"`
	Supplies       string            `json:"supplies"`
	Withdrawals    string            `json:"withdrawals"`
	Discounts      string            `json:"discounts"`
	PositiveImpact string            `json:"positive_impact"`
	NegativeImpact string            `json:"negative_impact"`
	Notes          *string           `json:"notes"`
}

type DayMovementsResponse struct {
	Date                string             `json:"date"`
	Movements           []MovementResponse `json:"movements"`
	TotalValue          string             `json:"total_value"`
	TotalPositiveImpact string             `json:"total_positive_impact"`
	TotalNegativeImpact string             `json:"total_negative_impact"`
}

type DiscountResponse struct {
	ID        string `json:"id"`
	TabID     *int64 `json:"tab_id"`
	ItemID    *int64 `json:"item_id"`
	Reason    string `json:"reason"`
	Actor     string `json:"actor"`
	Amount    string `json:"amount"`
	CreatedAt string `json:"created_at"`
}

type DiscountReportResponse struct {
	From     string            `json:"from"`
	To       string            `json:"to"`
	Total    string            `json:"total"`
	ByReason map[string]string `json:"by_reason"`
	ByActor  map[string]string `json:"by_actor"`
}

type AuditEntryResponse struct {
	ID        int64  `json:"id"`
	Action    string `json:"action"`
	Actor     string `json:"actor"`
	SessionID *int64 `json:"session_id"`
	Details   string `json:"details"`
	CreatedAt string `json:"created_at"`
}

// ─── Mappers ─────────────────────────────────────────────────────────────────

func NewSessionResponse(s *model.RegisterSession) SessionResponse {
	return SessionResponse{
		ID:           s.ID,
		Status:       string(s.Status),
		OpenedAt:     timestamp(s.OpenedAt),
		OpenedBy:     s.OpenedBy,
		OpeningFloat: money(s.OpeningFloat),
		ClosedAt:     optTimestamp(s.ClosedAt),
		ClosedBy:     s.ClosedBy,
		ExpectedCash: optMoney(s.ExpectedCash),
		CountedCash:  optMoney(s.CountedCash),
		Difference:   optMoney(s.Difference),
		Notes:        s.Notes,
	}
}

func NewMovementResponse(m *model.Movement) MovementResponse {
	var method *string
	if m.PaymentMethod != nil {
		pm := string(*m.PaymentMethod)
		method = &pm
	}
	return MovementResponse{
		ID:            m.ID.String(),
		SessionID:     m.SessionID,
		Kind:          string(m.Kind),
		Amount:        money(m.Amount),
		PaymentMethod: method,
		Description:   m.Description,
		CreatedAt:     timestamp(m.CreatedAt),
		Actor:         m.Actor,
		CashImpact:    money(m.CashImpact),
	}
}

func NewPaymentsResponse(sessionID int64, totals map[model.PaymentMethod]decimal.Decimal) PaymentsResponse {
	return PaymentsResponse{SessionID: sessionID, Totals: paymentMap(totals)}
}

func NewSummaryResponse(s *service.Summary) SummaryResponse {
	var class *string
	if s.Classification != nil {
		c := string(*s.Classification)
		class = &c
	}
	var pct *string
	if s.DifferencePct != nil {
		p := s.DifferencePct.StringFixed(2)
		pct = &p
	}
	return SummaryResponse{
		SessionID:      s.SessionID,
		Status:         string(s.Status),
		State:          string(s.State),
		OpenedAt:       timestamp(s.OpenedAt),
		OpenedBy:       s.OpenedBy,
		ClosedAt:       optTimestamp(s.ClosedAt),
		ClosedBy:       s.ClosedBy,
		OpeningFloat:   money(s.OpeningFloat),
		Expected:       money(s.Expected),
		Counted:        optMoney(s.Counted),
		Difference:     optMoney(s.Difference),
		DifferencePct:  pct,
		Classification: class,
		Payments:       paymentMap(s.Payments),
		Supplies:       money(s.Supplies),
		Withdrawals:    money(s.Withdrawals),
		Discounts:      money(s.Discounts),
		PositiveImpact: money(s.PositiveImpact),
		NegativeImpact: money(s.NegativeImpact),
		Notes:          s.Notes,
	}
}

func NewSummaryList(list []service.Summary) []SummaryResponse {
	out := make([]SummaryResponse, 0, len(list))
	for i := range list {
		out = append(out, NewSummaryResponse(&list[i]))
	}
	return out
}

func NewDayMovementsResponse(d *service.DayMovements) DayMovementsResponse {
	movs := make([]MovementResponse, 0, len(d.Movements))
	for i := range d.Movements {
		movs = append(movs, NewMovementResponse(&d.Movements[i]))
	}
	return DayMovementsResponse{
		Date:                d.Date.Format("2006-01-02"),
		Movements:           movs,
		TotalValue:          money(d.TotalValue),
		TotalPositiveImpact: money(d.TotalPositiveImpact),
		TotalNegativeImpact: money(d.TotalNegativeImpact),
	}
}

func NewDiscountResponse(ev *model.DiscountEvent) DiscountResponse {
	return DiscountResponse{
		ID:        ev.ID.String(),
		TabID:     ev.TabID,
		ItemID:    ev.ItemID,
		Reason:    ev.Reason,
		Actor:     ev.Actor,
		Amount:    money(ev.Amount),
		CreatedAt: timestamp(ev.CreatedAt),
	}
}

func NewDiscountReportResponse(r *service.DiscountReport) DiscountReportResponse {
	return DiscountReportResponse{
		From:     timestamp(r.From),
		To:       timestamp(r.To),
		Total:    money(r.Total),
		ByReason: moneyMap(r.ByReason),
		ByActor:  moneyMap(r.ByActor),
	}
}

func NewAuditList(entries []model.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:        e.ID,
			Action:    string(e.Action),
			Actor:     e.Actor,
			SessionID: e.SessionID,
			Details:   e.Details,
			CreatedAt: timestamp(e.CreatedAt),
		})
	}
	return out
}

func money(d decimal.Decimal) string { return d.StringFixed(model.MoneyPlaces) }

func optMoney(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := money(*d)
	return &s
}

func timestamp(t time.Time) string { return t.Format(time.RFC3339) }

func optTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := timestamp(*t)
	return &s
}

// paymentMap always lists the four methods, zero included.
func paymentMap(totals map[model.PaymentMethod]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(model.PaymentMethods))
	for _, m := range model.PaymentMethods {
		out[string(m)] = money(totals[m])
	}
	return out
}

func moneyMap(in map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = money(v)
	}
	return out
}
