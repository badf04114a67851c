package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/isaqueitalo/restaurante-1.0/internal/clock"
	"github.com/isaqueitalo/restaurante-1.0/internal/model"
	"github.com/isaqueitalo/restaurante-1.0/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// MovementRecorder validates till events and appends them to the open session.
type MovementRecorder interface {
	Record(ctx context.Context, in RecordInput) (*model.Movement, error)
	RecordSupply(ctx context.Context, amount decimal.Decimal, description, actor string) (*model.Movement, error)
	RecordWithdrawal(ctx context.Context, amount decimal.Decimal, description, actor string) (*model.Movement, error)
	// RecordSale maps a payment label (CASH, DEBITO, pix...) to its SALE_* kind.
	RecordSale(ctx context.Context, method string, amount decimal.Decimal, tendered *decimal.Decimal, description, actor string) (*model.Movement, error)
}

// RecordInput describes one movement. SessionID 0 targets the open session.
// PaymentMethod is optional for SALE_* kinds; when set it must agree with Kind.
// Tendered is required for SALE_CASH.
type RecordInput struct {
	SessionID     int64
	Kind          model.MovementKind
	Amount        decimal.Decimal
	Description   string
	PaymentMethod string
	Tendered      *decimal.Decimal
	Actor         string
}

type movementRecorder struct {
	sessions        SessionManager
	store           repository.LedgerStore
	clock           clock.Clock
	defaultOperator string
}

func NewMovementRecorder(sessions SessionManager, store repository.LedgerStore, clk clock.Clock, defaultOperator string) MovementRecorder {
	return &movementRecorder{sessions: sessions, store: store, clock: clk, defaultOperator: defaultOperator}
}

func (r *movementRecorder) RecordSupply(ctx context.Context, amount decimal.Decimal, description, actor string) (*model.Movement, error) {
	return r.Record(ctx, RecordInput{Kind: model.KindSupply, Amount: amount, Description: description, Actor: actor})
}

func (r *movementRecorder) RecordWithdrawal(ctx context.Context, amount decimal.Decimal, description, actor string) (*model.Movement, error) {
	return r.Record(ctx, RecordInput{Kind: model.KindWithdrawal, Amount: amount, Description: description, Actor: actor})
}

func (r *movementRecorder) RecordSale(ctx context.Context, method string, amount decimal.Decimal, tendered *decimal.Decimal, description, actor string) (*model.Movement, error) {
	pm, ok := model.ParsePaymentMethod(method)
	if !ok {
		return nil, fmt.Errorf("%q: %w", method, ErrUnsupportedPaymentMethod)
	}
	return r.Record(ctx, RecordInput{
		Kind:          pm.SaleKind(),
		Amount:        amount,
		Description:   description,
		PaymentMethod: string(pm),
		Tendered:      tendered,
		Actor:         actor,
	})
}

// ── Record ────────────────────────────────────────────────────────────────────
// Everything is validated before the guard is taken; a rejected movement
// leaves the ledger untouched.

func (r *movementRecorder) Record(ctx context.Context, in RecordInput) (*model.Movement, error) {
	mov, err := r.build(in)
	if err != nil {
		return nil, err
	}

	err = r.sessions.WithOpenSession(ctx, in.SessionID, func(ctx context.Context, s *model.RegisterSession) error {
		mov.SessionID = s.ID
		mov.CreatedAt = r.clock.Now()
		if err := r.store.AppendMovement(ctx, mov); err != nil {
			return fmt.Errorf("record %s in session %d: %w", mov.Kind, s.ID, err)
		}
		return writeAudit(ctx, r.store, mov.CreatedAt, model.AuditActionFor(mov.Kind), mov.Actor, s.ID,
			fmt.Sprintf("%s %s: %s", mov.Kind, mov.Amount.StringFixed(model.MoneyPlaces), mov.Description))
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("session_id", mov.SessionID).
		Str("kind", string(mov.Kind)).
		Str("amount", mov.Amount.StringFixed(model.MoneyPlaces)).
		Str("cash_impact", mov.CashImpact.StringFixed(model.MoneyPlaces)).
		Str("actor", mov.Actor).
		Msg("till movement recorded")
	return mov, nil
}

// build computes the cash impact and description of a movement that has not
// yet been bound to a session.
func (r *movementRecorder) build(in RecordInput) (*model.Movement, error) {
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%q: %w", in.Kind, ErrInvalidMovementKind)
	}
	if in.Amount.IsNegative() {
		return nil, fmt.Errorf("%s amount %s: %w", in.Kind, in.Amount, ErrInvalidAmount)
	}
	amount := model.RoundMoney(in.Amount)

	mov := &model.Movement{
		ID:          uuid.New(),
		Kind:        in.Kind,
		Amount:      amount,
		Description: strings.TrimSpace(in.Description),
		Actor:       r.actor(in.Actor),
	}

	switch in.Kind {
	case model.KindSupply:
		mov.CashImpact = amount.Abs()
		mov.Description = orDefault(mov.Description, "Supply")
	case model.KindWithdrawal:
		mov.CashImpact = amount.Abs().Neg()
		mov.Description = orDefault(mov.Description, "Withdrawal")
	default:
		method, _ := in.Kind.Method()
		if label := strings.TrimSpace(in.PaymentMethod); label != "" {
			pm, ok := model.ParsePaymentMethod(label)
			if !ok || pm != method {
				return nil, fmt.Errorf("%q for %s: %w", label, in.Kind, ErrUnsupportedPaymentMethod)
			}
		}
		mov.PaymentMethod = &method

		if method != model.MethodCash {
			mov.CashImpact = decimal.Zero
			mov.Description = orDefault(mov.Description, saleLabels[method])
			break
		}

		if in.Tendered == nil {
			return nil, fmt.Errorf("tendered cash missing: %w", ErrInsufficientPayment)
		}
		tendered := model.RoundMoney(*in.Tendered)
		change := tendered.Sub(amount)
		if change.IsNegative() {
			return nil, fmt.Errorf("tendered %s for a sale of %s: %w",
				tendered.StringFixed(model.MoneyPlaces), amount.StringFixed(model.MoneyPlaces), ErrInsufficientPayment)
		}
		mov.CashImpact = tendered.Sub(change)
		note := "change " + change.StringFixed(model.MoneyPlaces)
		if mov.Description == "" {
			mov.Description = "Cash sale (" + note + ")"
		} else {
			mov.Description += " (" + note + ")"
		}
	}

	if err := mov.CheckImpactSign(); err != nil {
		return nil, err
	}
	return mov, nil
}

func (r *movementRecorder) actor(a string) string {
	if a = strings.TrimSpace(a); a != "" {
		return a
	}
	return r.defaultOperator
}

var saleLabels = map[model.PaymentMethod]string{
	model.MethodDebit:  "Debit sale",
	model.MethodCredit: "Credit sale",
	model.MethodPix:    "Pix sale",
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
