package worker

// closing_report_worker.go
// Processes closing report jobs from QueueClosingReport:
//  1. rebuild the closing summary of the session
//  2. render it to PDF
//  3. mail it to the managers through the SMTP circuit breaker, with backoff

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/infra"
	"github.com/isaqueitalo/restaurante-1.0/internal/model"
	"github.com/isaqueitalo/restaurante-1.0/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ClosingReportPayload is the job payload sent to QueueClosingReport.
type ClosingReportPayload struct {
	SessionID int64 `json:"session_id"`
}

// ReportSender delivers a rendered report. *infra.Mailer implements it.
type ReportSender interface {
	Send(to []string, subject, body, attachmentPath string) error
}

// ClosingReportConfig holds everything but the collaborators.
type ClosingReportConfig struct {
	BusinessName string
	StoragePath  string
	Recipients   []string
	Location     *time.Location
	MaxAttempts  int           // default 3
	RetryBase    time.Duration // default 1s
}

type ClosingReportWorker struct {
	recon  service.ReconciliationService
	sender ReportSender
	cb     *infra.CircuitBreaker
	cfg    ClosingReportConfig
}

func NewClosingReportWorker(recon service.ReconciliationService, sender ReportSender, cb *infra.CircuitBreaker, cfg ClosingReportConfig) *ClosingReportWorker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ClosingReportWorker{recon: recon, sender: sender, cb: cb, cfg: cfg}
}

// Process renders the report and mails it. Without recipients the PDF is only
// written to disk.
func (w *ClosingReportWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ClosingReportPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("closing_report: invalid payload: %w", err)
	}

	sum, err := w.recon.ClosingSummary(ctx, payload.SessionID)
	if err != nil {
		return fmt.Errorf("closing_report: summary of session %d: %w", payload.SessionID, err)
	}

	path, err := infra.GenerateClosingReportPDF(sum, w.cfg.BusinessName, w.cfg.StoragePath, w.cfg.Location)
	if err != nil {
		return fmt.Errorf("closing_report: %w", err)
	}
	log.Info().Int64("session_id", sum.SessionID).Str("path", path).Msg("closing_report: PDF written")

	if len(w.cfg.Recipients) == 0 || w.sender == nil {
		log.Warn().Int64("session_id", sum.SessionID).Msg("closing_report: no recipients configured, skipping e-mail")
		return nil
	}

	subject := fmt.Sprintf("%s - till closing #%d", w.cfg.BusinessName, sum.SessionID)
	body := reportBody(sum, w.cfg.Location)

	err = withRetry(ctx, w.cfg.MaxAttempts, w.cfg.RetryBase, func(attempt int) error {
		err := w.cb.Execute(func() error {
			return w.sender.Send(w.cfg.Recipients, subject, body, path)
		})
		if err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Int64("session_id", sum.SessionID).
				Msg("closing_report: e-mail attempt failed")
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("closing_report: mail session %d: %w", sum.SessionID, err)
	}

	log.Info().Int64("session_id", sum.SessionID).Strs("to", w.cfg.Recipients).Msg("closing_report: sent")
	return nil
}

func reportBody(sum *service.Summary, loc *time.Location) string {
	closedAt := "-"
	if sum.ClosedAt != nil {
		closedAt = sum.ClosedAt.In(loc).Format("02/01/2006 15:04")
	}
	return fmt.Sprintf(
		"Session #%d (%s) closed at %s.\n\nExpected cash: %s\nCounted cash: %s\nDifference: %s\n\nThe full report is attached.\n",
		sum.SessionID, sum.State, closedAt,
		sum.Expected.StringFixed(model.MoneyPlaces), optionalMoney(sum.Counted), optionalMoney(sum.Difference),
	)
}

func optionalMoney(d *decimal.Decimal) string {
	if d == nil {
		return "unknown"
	}
	return d.StringFixed(model.MoneyPlaces)
}
