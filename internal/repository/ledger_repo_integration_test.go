//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/clock"
	"github.com/isaqueitalo/restaurante-1.0/internal/infra"
	"github.com/isaqueitalo/restaurante-1.0/internal/model"
	"github.com/isaqueitalo/restaurante-1.0/internal/repository"
	"github.com/isaqueitalo/restaurante-1.0/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("restaurante_test"),
		tcPostgres.WithUsername("restaurante"),
		tcPostgres.WithPassword("restaurante"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := infra.NewDatabase(dsn)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))
	return db
}

func TestLedgerRepo_Postgres(t *testing.T) {
	db := startPostgres(t)
	ledger := repository.NewLedgerRepository(db)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 9, 18, 0, 0, 0, time.UTC)

	first := &model.RegisterSession{OpenedAt: t0, OpenedBy: "ana", OpeningFloat: decimal.NewFromInt(100), Status: model.SessionOpen}
	require.NoError(t, ledger.AppendSession(ctx, first))
	require.NotZero(t, first.ID)

	t.Run("second open session is rejected by the partial index", func(t *testing.T) {
		err := ledger.AppendSession(ctx, &model.RegisterSession{OpenedAt: t0, OpenedBy: "bruno", OpeningFloat: decimal.Zero, Status: model.SessionOpen})
		assert.ErrorIs(t, err, repository.ErrOpenSessionExists)
	})

	t.Run("orphan movement is rejected", func(t *testing.T) {
		err := ledger.AppendMovement(ctx, &model.Movement{
			ID: uuid.New(), SessionID: first.ID + 1000, Kind: model.KindSupply,
			Amount: decimal.NewFromInt(1), CashImpact: decimal.NewFromInt(1), CreatedAt: t0, Actor: "ana",
		})
		assert.Error(t, err)
	})

	t.Run("range is half-open", func(t *testing.T) {
		for i, at := range []time.Time{t0.Add(time.Minute), t0.Add(time.Hour)} {
			require.NoError(t, ledger.AppendMovement(ctx, &model.Movement{
				ID: uuid.New(), SessionID: first.ID, Kind: model.KindSupply,
				Amount: decimal.NewFromInt(int64(i + 1)), CashImpact: decimal.NewFromInt(int64(i + 1)),
				Description: "Supply", CreatedAt: at, Actor: "ana",
			}))
		}
		movs, err := ledger.MovementsInRange(ctx, t0, t0.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, movs, 1)
		assert.True(t, movs[0].Amount.Equal(decimal.NewFromInt(1)))
	})

	t.Run("closed row cannot be updated again", func(t *testing.T) {
		closedAt := t0.Add(2 * time.Hour)
		by := "bruno"
		first.Status = model.SessionClosed
		first.ClosedAt = &closedAt
		first.ClosedBy = &by
		require.NoError(t, ledger.UpdateSession(ctx, first))

		assert.ErrorIs(t, ledger.UpdateSession(ctx, first), repository.ErrSessionNotOpen)

		open, err := ledger.FindOpenSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, open)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := ledger.FindSession(ctx, 9999)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestLedgerRepo_TillFlowOnPostgres(t *testing.T) {
	db := startPostgres(t)
	ledger := repository.NewLedgerRepository(db)
	discounts := repository.NewDiscountRepository(db)
	ctx := context.Background()

	clk := clock.NewManual(time.Date(2024, 3, 9, 11, 0, 0, 0, time.UTC))
	sessions := service.NewSessionManager(ledger, clk, "sistema")
	recorder := service.NewMovementRecorder(sessions, ledger, clk, "sistema")
	recon := service.NewReconciliationService(ledger, discounts, clk, time.UTC)
	discountSvc := service.NewDiscountService(discounts, clk, "sistema")

	s, err := sessions.Open(ctx, decimal.NewFromInt(100), "ana")
	require.NoError(t, err)

	_, err = sessions.Open(ctx, decimal.NewFromInt(50), "bruno")
	assert.ErrorIs(t, err, service.ErrSessionAlreadyOpen)

	tendered := decimal.NewFromInt(100)
	_, err = recorder.RecordSale(ctx, "cash", decimal.RequireFromString("72.50"), &tendered, "", "ana")
	require.NoError(t, err)
	_, err = recorder.RecordSale(ctx, "pix", decimal.NewFromInt(30), nil, "", "ana")
	require.NoError(t, err)
	_, err = recorder.RecordWithdrawal(ctx, decimal.NewFromInt(20), "bank", "ana")
	require.NoError(t, err)
	_, err = discountSvc.Record(ctx, service.DiscountInput{Amount: decimal.NewFromInt(5), Reason: "cortesia", Actor: "ana"})
	require.NoError(t, err)

	clk.Advance(8 * time.Hour)
	closed, err := sessions.Close(ctx, service.CloseInput{Counted: decimal.NewFromInt(150), Actor: "bruno"})
	require.NoError(t, err)
	assert.True(t, closed.ExpectedCash.Equal(decimal.RequireFromString("152.50")))
	assert.True(t, closed.Difference.Equal(decimal.RequireFromString("-2.50")))

	sum, err := recon.ClosingSummary(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, service.StateClosed, sum.State)
	assert.True(t, sum.Payments[model.MethodPix].Equal(decimal.NewFromInt(30)))
	assert.True(t, sum.Discounts.Equal(decimal.NewFromInt(5)))

	entries, err := service.NewAuditService(ledger).Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, model.AuditClose, entries[0].Action)
	assert.Equal(t, "bruno", entries[0].Actor)
	assert.Equal(t, model.AuditWithdrawal, entries[1].Action)
	assert.Equal(t, model.AuditOpen, entries[4].Action)
	require.NotNil(t, entries[4].SessionID)
	assert.Equal(t, s.ID, *entries[4].SessionID)
}
