package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/clock"
	"github.com/isaqueitalo/restaurante-1.0/internal/config"
	"github.com/isaqueitalo/restaurante-1.0/internal/infra"
	"github.com/isaqueitalo/restaurante-1.0/internal/repository"
	"github.com/isaqueitalo/restaurante-1.0/internal/router"
	"github.com/isaqueitalo/restaurante-1.0/internal/service"
	"github.com/isaqueitalo/restaurante-1.0/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: console in development, JSON in production
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	loc, _ := cfg.Location() // validated by Load
	clk := clock.NewSystem()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Ledger ───────────────────────────────────────────────────────────────
	var (
		db        *gorm.DB
		ledger    repository.LedgerStore
		discounts repository.DiscountStore
	)
	switch cfg.LedgerBackend {
	case config.BackendMemory:
		mem := repository.NewMemoryLedger()
		ledger, discounts = mem, mem
		log.Warn().Msg("memory ledger: sessions and movements are lost on restart")
	default:
		db, err = infra.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		ledger = repository.NewLedgerRepository(db)
		discounts = repository.NewDiscountRepository(db)
	}

	// ── Services ─────────────────────────────────────────────────────────────
	sessions := service.NewSessionManager(ledger, clk, cfg.DefaultOperator)
	recorder := service.NewMovementRecorder(sessions, ledger, clk, cfg.DefaultOperator)
	recon := service.NewReconciliationService(ledger, discounts, clk, loc)
	discountSvc := service.NewDiscountService(discounts, clk, cfg.DefaultOperator)
	auditSvc := service.NewAuditService(ledger)

	// ── Closing reports (optional) ───────────────────────────────────────────
	smtpCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	deps := router.Deps{
		Sessions:       sessions,
		Recorder:       recorder,
		Reconciliation: recon,
		Discounts:      discountSvc,
		Audit:          auditSvc,
		Clock:          clk,
		Location:       loc,
		DB:             db,
		SMTPBreaker:    smtpCB,
	}

	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, closing reports disabled")
		rdb = nil
	}
	var workers *sync.WaitGroup
	if rdb != nil {
		deps.Redis = rdb
		deps.Reports = worker.NewDispatcher(rdb)
		workers = startWorkers(ctx, cfg, rdb, recon, smtpCB)
	}

	r := router.New(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("backend", cfg.LedgerBackend).Str("timezone", loc.String()).Msgf("till API listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	if workers != nil {
		workers.Wait()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}

// startWorkers wires the closing report handler into the pool. Without an SMTP
// host the reports are only written to PDF_STORAGE_PATH.
func startWorkers(ctx context.Context, cfg *config.Config, rdb *redis.Client, recon service.ReconciliationService, smtpCB *infra.CircuitBreaker) *sync.WaitGroup {
	loc, _ := cfg.Location()

	var sender worker.ReportSender
	if cfg.SMTPHost != "" {
		sender = infra.NewMailer(cfg)
	}

	pool := worker.NewPool(rdb, cfg.WorkerPoolSize)
	pool.Handle(worker.QueueClosingReport, worker.JobClosingReport, worker.NewClosingReportWorker(recon, sender, smtpCB, worker.ClosingReportConfig{
		BusinessName: cfg.BusinessName,
		StoragePath:  cfg.PDFStoragePath,
		Recipients:   cfg.Recipients(),
		Location:     loc,
	}))
	return pool.Start(ctx)
}
