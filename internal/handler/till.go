package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/apierror"
	"github.com/isaqueitalo/restaurante-1.0/internal/clock"
	"github.com/isaqueitalo/restaurante-1.0/internal/dto"
	"github.com/isaqueitalo/restaurante-1.0/internal/middleware"
	"github.com/isaqueitalo/restaurante-1.0/internal/model"
	"github.com/isaqueitalo/restaurante-1.0/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ReportQueue enqueues the closing report of a session. *worker.Dispatcher
// implements it.
type ReportQueue interface {
	EnqueueClosingReport(ctx context.Context, sessionID int64) error
}

type TillHandler struct {
	sessions service.SessionManager
	recorder service.MovementRecorder
	recon    service.ReconciliationService
	reports  ReportQueue // nil when Redis is not configured
	clock    clock.Clock
	loc      *time.Location
}

func NewTillHandler(
	sessions service.SessionManager,
	recorder service.MovementRecorder,
	recon service.ReconciliationService,
	reports ReportQueue,
	clk clock.Clock,
	loc *time.Location,
) *TillHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TillHandler{sessions: sessions, recorder: recorder, recon: recon, reports: reports, clock: clk, loc: loc}
}

// Open godoc
// @Summary      Open the register
// @Tags         till
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.OpenTillRequest true "Opening float"
// @Success      201  {object} dto.SessionResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/till/open [post]
func (h *TillHandler) Open(c *gin.Context) {
	var req dto.OpenTillRequest
	if !bindAndValidate(c, &req) {
		return
	}
	s, err := h.sessions.Open(c.Request.Context(), req.OpeningFloat, middleware.GetActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewSessionResponse(s))
}

// Close godoc
// @Summary      Blind count and close the open session
// @Description  Stores expected, counted and difference, then queues the closing report.
// @Description  Answers with the closed session when the summary cannot be built.
// @Tags         till
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.CloseTillRequest true "Counted cash"
// @Success      200  {object} dto.SummaryResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/till/close [post]
func (h *TillHandler) Close(c *gin.Context) {
	var req dto.CloseTillRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ctx := c.Request.Context()
	closed, err := h.sessions.Close(ctx, service.CloseInput{
		Counted: req.CountedCash,
		Actor:   middleware.GetActor(c),
		Notes:   req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if h.reports != nil {
		if err := h.reports.EnqueueClosingReport(ctx, closed.ID); err != nil {
			// the close is committed; the report can be re-queued by hand
			log.Warn().Err(err).Int64("session_id", closed.ID).Msg("till: failed to enqueue closing report")
		}
	}

	sum, err := h.recon.ClosingSummary(ctx, closed.ID)
	if err != nil {
		// committed already; answer with the closed session instead of a 500
		log.Error().Err(err).Int64("session_id", closed.ID).Msg("till: closing summary failed after close")
		c.JSON(http.StatusOK, dto.NewSessionResponse(closed))
		return
	}
	c.JSON(http.StatusOK, dto.NewSummaryResponse(sum))
}

// Current godoc
// @Summary      Currently open session
// @Tags         till
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object} dto.SessionResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/till/current [get]
func (h *TillHandler) Current(c *gin.Context) {
	s, err := h.sessions.CurrentOpenSession(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, apierror.New(service.ErrNoOpenSession.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionResponse(s))
}

// RecordMovement godoc
// @Summary      Record a supply, withdrawal or sale
// @Tags         till
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.MovementRequest true "Movement"
// @Success      201  {object} dto.MovementResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/till/movements [post]
func (h *TillHandler) RecordMovement(c *gin.Context) {
	var req dto.MovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	m, err := h.recorder.Record(c.Request.Context(), service.RecordInput{
		SessionID:     req.SessionID,
		Kind:          model.MovementKind(req.Kind),
		Amount:        req.Amount,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Tendered:      req.Tendered,
		Actor:         middleware.GetActor(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewMovementResponse(m))
}

// ── Per-session reads ─────────────────────────────────────────────────────────

// Balance godoc
// @Summary      Cash balance of a session
// @Tags         till
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     int true "Session id"
// @Success      200  {object} dto.BalanceResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/till/sessions/{id}/balance [get]
func (h *TillHandler) Balance(c *gin.Context) {
	id, ok := sessionIDParam(c)
	if !ok {
		return
	}
	bal, err := h.recon.CashBalance(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BalanceResponse{SessionID: id, Balance: bal.StringFixed(model.MoneyPlaces)})
}

// Payments godoc
// @Summary      Sale totals per payment method
// @Tags         till
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     int true "Session id"
// @Success      200  {object} dto.PaymentsResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/till/sessions/{id}/payments [get]
func (h *TillHandler) Payments(c *gin.Context) {
	id, ok := sessionIDParam(c)
	if !ok {
		return
	}
	totals, err := h.recon.TotalsByPaymentMethod(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaymentsResponse(id, totals))
}

// Extras godoc
// @Summary      Supply and withdrawal totals
// @Tags         till
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     int true "Session id"
// @Success      200  {object} dto.ExtrasResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/till/sessions/{id}/extras [get]
func (h *TillHandler) Extras(c *gin.Context) {
	id, ok := sessionIDParam(c)
	if !ok {
		return
	}
	ex, err := h.recon.SupplyAndWithdrawalTotals(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ExtrasResponse{
		SessionID:   id,
		Supplies:    ex.Supplies.StringFixed(model.MoneyPlaces),
		Withdrawals: ex.Withdrawals.StringFixed(model.MoneyPlaces),
	})
}

// Summary godoc
// @Summary      Closing summary of a session
// @Tags         till
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     int true "Session id"
// @Success      200  {object} dto.SummaryResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/till/sessions/{id}/summary [get]
func (h *TillHandler) Summary(c *gin.Context) {
	id, ok := sessionIDParam(c)
	if !ok {
		return
	}
	sum, err := h.recon.ClosingSummary(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSummaryResponse(sum))
}

// ── Reports ───────────────────────────────────────────────────────────────────

// LatestSummary godoc
// @Summary      Summary of the most recently closed session
// @Tags         till
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object} dto.SummaryResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/till/summaries/latest [get]
func (h *TillHandler) LatestSummary(c *gin.Context) {
	sum, err := h.recon.MostRecentClosedSummary(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSummaryResponse(sum))
}

// SummariesOnDate godoc
// @Summary      Summaries of sessions closed on a day, by closing time
// @Tags         till
// @Produce      json
// @Security     BearerAuth
// @Param        date query    string false "YYYY-MM-DD, defaults to today"
// @Success      200  {array}  dto.SummaryResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/till/summaries [get]
func (h *TillHandler) SummariesOnDate(c *gin.Context) {
	date, ok := dateQuery(c, "date", h.clock.Now(), h.loc)
	if !ok {
		return
	}
	list, err := h.recon.ClosedSummariesOnDate(c.Request.Context(), date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSummaryList(list))
}

// MovementsOnDate godoc
// @Summary      Movements of a day with totals
// @Tags         till
// @Produce      json
// @Security     BearerAuth
// @Param        date query    string false "YYYY-MM-DD, defaults to today"
// @Success      200  {object} dto.DayMovementsResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/till/movements [get]
func (h *TillHandler) MovementsOnDate(c *gin.Context) {
	date, ok := dateQuery(c, "date", h.clock.Now(), h.loc)
	if !ok {
		return
	}
	day, err := h.recon.MovementsOnDate(c.Request.Context(), date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewDayMovementsResponse(day))
}
