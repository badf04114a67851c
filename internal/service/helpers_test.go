package service_test

import (
	"testing"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/clock"
	"github.com/isaqueitalo/restaurante-1.0/internal/repository"
	"github.com/isaqueitalo/restaurante-1.0/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// ── Fixture ───────────────────────────────────────────────────────────────────

const defaultOperator = "sistema"

var t0 = time.Date(2024, 3, 9, 18, 0, 0, 0, time.UTC)

type till struct {
	ledger    *repository.MemoryLedger
	clock     *clock.Manual
	sessions  service.SessionManager
	recorder  service.MovementRecorder
	recon     service.ReconciliationService
	discounts service.DiscountService
}

func newTill(t *testing.T) *till {
	t.Helper()
	return newTillIn(t, time.UTC)
}

func newTillIn(t *testing.T, loc *time.Location) *till {
	t.Helper()
	ledger := repository.NewMemoryLedger()
	clk := clock.NewManual(t0)
	sessions := service.NewSessionManager(ledger, clk, defaultOperator)
	return &till{
		ledger:    ledger,
		clock:     clk,
		sessions:  sessions,
		recorder:  service.NewMovementRecorder(sessions, ledger, clk, defaultOperator),
		recon:     service.NewReconciliationService(ledger, ledger, clk, loc),
		discounts: service.NewDiscountService(ledger, clk, defaultOperator),
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func strp(s string) *string { return &s }

func timep(t time.Time) *time.Time { return &t }

// assertMoney compares decimals by value, so "140" equals "140.00".
func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got.StringFixed(2))
}
