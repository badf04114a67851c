package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/clock"
	"github.com/isaqueitalo/restaurante-1.0/internal/model"
	"github.com/isaqueitalo/restaurante-1.0/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DiscountService is the append path used by the tab service and the
// by-reason / by-actor discount report. The till itself only reads discounts
// through ReconciliationService.DiscountsInPeriod.
type DiscountService interface {
	Record(ctx context.Context, in DiscountInput) (*model.DiscountEvent, error)
	Report(ctx context.Context, from, to time.Time) (*DiscountReport, error)
}

type DiscountInput struct {
	TabID  *int64
	ItemID *int64
	Reason string
	Amount decimal.Decimal
	Actor  string
}

type DiscountReport struct {
	From     time.Time
	To       time.Time
	Total    decimal.Decimal
	ByReason map[string]decimal.Decimal
	ByActor  map[string]decimal.Decimal
}

type discountService struct {
	store           repository.DiscountStore
	clock           clock.Clock
	defaultOperator string
}

func NewDiscountService(store repository.DiscountStore, clk clock.Clock, defaultOperator string) DiscountService {
	return &discountService{store: store, clock: clk, defaultOperator: defaultOperator}
}

func (s *discountService) Record(ctx context.Context, in DiscountInput) (*model.DiscountEvent, error) {
	if in.Amount.IsNegative() {
		return nil, fmt.Errorf("discount %s: %w", in.Amount, ErrInvalidAmount)
	}
	actor := strings.TrimSpace(in.Actor)
	if actor == "" {
		actor = s.defaultOperator
	}
	ev := &model.DiscountEvent{
		ID:        uuid.New(),
		TabID:     in.TabID,
		ItemID:    in.ItemID,
		Reason:    strings.TrimSpace(in.Reason),
		Actor:     actor,
		Amount:    model.RoundMoney(in.Amount),
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.AppendDiscount(ctx, ev); err != nil {
		return nil, fmt.Errorf("append discount: %w", err)
	}

	log.Info().
		Str("reason", ev.Reason).
		Str("actor", ev.Actor).
		Str("amount", ev.Amount.StringFixed(model.MoneyPlaces)).
		Msg("discount recorded")
	return ev, nil
}

// Report totals discounts granted in [from, to].
func (s *discountService) Report(ctx context.Context, from, to time.Time) (*DiscountReport, error) {
	events, err := s.store.DiscountsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("discounts between %s and %s: %w", from.Format(time.RFC3339), to.Format(time.RFC3339), err)
	}
	rep := &DiscountReport{
		From:     from,
		To:       to,
		Total:    decimal.Zero,
		ByReason: make(map[string]decimal.Decimal),
		ByActor:  make(map[string]decimal.Decimal),
	}
	for i := range events {
		ev := &events[i]
		rep.Total = rep.Total.Add(ev.Amount)
		rep.ByReason[ev.Reason] = rep.ByReason[ev.Reason].Add(ev.Amount)
		rep.ByActor[ev.Actor] = rep.ByActor[ev.Actor].Add(ev.Amount)
	}
	return rep, nil
}
