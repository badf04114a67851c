package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/clock"
	"github.com/isaqueitalo/restaurante-1.0/internal/handler"
	"github.com/isaqueitalo/restaurante-1.0/internal/middleware"
	"github.com/isaqueitalo/restaurante-1.0/internal/repository"
	"github.com/isaqueitalo/restaurante-1.0/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// ── Fixture ───────────────────────────────────────────────────────────────────

type fakeQueue struct{ enqueued []int64 }

func (q *fakeQueue) EnqueueClosingReport(_ context.Context, sessionID int64) error {
	q.enqueued = append(q.enqueued, sessionID)
	return nil
}

type api struct {
	engine *gin.Engine
	clock  *clock.Manual
	queue  *fakeQueue
	token  string
}

// brokenSummaries fails every ClosingSummary call.
type brokenSummaries struct {
	service.ReconciliationService
}

func (brokenSummaries) ClosingSummary(context.Context, int64) (*service.Summary, error) {
	return nil, errors.New("summary store unavailable")
}

func newAPI(t *testing.T) *api {
	t.Helper()
	return newAPIWith(t, nil)
}

// newAPIWith lets a test replace the reconciliation service, e.g. to inject
// failures.
func newAPIWith(t *testing.T, wrap func(service.ReconciliationService) service.ReconciliationService) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ledger := repository.NewMemoryLedger()
	clk := clock.NewManual(time.Date(2024, 3, 9, 11, 0, 0, 0, time.UTC))
	sessions := service.NewSessionManager(ledger, clk, "sistema")
	recorder := service.NewMovementRecorder(sessions, ledger, clk, "sistema")
	var recon service.ReconciliationService = service.NewReconciliationService(ledger, ledger, clk, time.UTC)
	if wrap != nil {
		recon = wrap(recon)
	}
	discounts := service.NewDiscountService(ledger, clk, "sistema")
	queue := &fakeQueue{}

	tillH := handler.NewTillHandler(sessions, recorder, recon, queue, clk, time.UTC)
	discountsH := handler.NewDiscountsHandler(discounts, time.UTC)
	auditH := handler.NewAuditHandler(service.NewAuditService(ledger))

	r := gin.New()
	v1 := r.Group("/v1", middleware.JWTAuth(testSecret))
	v1.POST("/till/open", tillH.Open)
	v1.POST("/till/close", tillH.Close)
	v1.GET("/till/current", tillH.Current)
	v1.POST("/till/movements", tillH.RecordMovement)
	v1.GET("/till/movements", tillH.MovementsOnDate)
	v1.GET("/till/sessions/:id/balance", tillH.Balance)
	v1.GET("/till/sessions/:id/payments", tillH.Payments)
	v1.GET("/till/sessions/:id/extras", tillH.Extras)
	v1.GET("/till/sessions/:id/summary", tillH.Summary)
	v1.GET("/till/summaries/latest", tillH.LatestSummary)
	v1.GET("/till/summaries", tillH.SummariesOnDate)
	v1.GET("/till/audit", auditH.List)
	v1.POST("/discounts", discountsH.Record)
	v1.GET("/discounts/report", discountsH.Report)

	return &api{engine: r, clock: clk, queue: queue, token: signToken(t, "ana")}
}

func signToken(t *testing.T, operator string) string {
	t.Helper()
	claims := middleware.OperatorClaims{
		Username: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func (a *api) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

// ── Session lifecycle ─────────────────────────────────────────────────────────

func TestTill_OpenRecordClose(t *testing.T) {
	a := newAPI(t)

	w, body := a.do(t, http.MethodPost, "/v1/till/open", map[string]any{"opening_float": "100"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "OPEN", body["status"])
	assert.Equal(t, "100.00", body["opening_float"])
	assert.Equal(t, "ana", body["opened_by"])
	id := int64(body["id"].(float64))

	w, body = a.do(t, http.MethodPost, "/v1/till/movements", map[string]any{
		"kind": "SALE_CASH", "amount": "50", "tendered": "100",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "50.00", body["cash_impact"])
	assert.Equal(t, "CASH", body["payment_method"])

	w, _ = a.do(t, http.MethodPost, "/v1/till/movements", map[string]any{"kind": "SALE_PIX", "amount": 30})
	require.Equal(t, http.StatusCreated, w.Code)

	a.clock.Advance(8 * time.Hour)
	w, body = a.do(t, http.MethodPost, "/v1/till/close", map[string]any{"counted_cash": "148", "notes": "  short two  "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "CLOSED", body["state"])
	assert.Equal(t, "150.00", body["expected"])
	assert.Equal(t, "148.00", body["counted"])
	assert.Equal(t, "-2.00", body["difference"])
	assert.Equal(t, "warning", body["classification"])
	assert.Equal(t, map[string]any{"CASH": "50.00", "DEBIT": "0.00", "CREDIT": "0.00", "PIX": "30.00"}, body["payments"])
	assert.Equal(t, []int64{id}, a.queue.enqueued)

	w, _ = a.do(t, http.MethodGet, "/v1/till/current", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = a.do(t, http.MethodGet, "/v1/till/summaries/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(id), body["session_id"])
}

func TestTill_CloseSurvivesSummaryFailure(t *testing.T) {
	a := newAPIWith(t, func(r service.ReconciliationService) service.ReconciliationService {
		return brokenSummaries{r}
	})

	w, body := a.do(t, http.MethodPost, "/v1/till/open", map[string]any{"opening_float": "20"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := body["id"].(float64)

	w, body = a.do(t, http.MethodPost, "/v1/till/close", map[string]any{"counted_cash": "20"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, id, body["id"])
	assert.Equal(t, "CLOSED", body["status"])
	assert.Equal(t, "20.00", body["expected_cash"])
	assert.Equal(t, "0.00", body["difference"])
	assert.Len(t, a.queue.enqueued, 1)

	w, _ = a.do(t, http.MethodGet, "/v1/till/current", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTill_OpenTwiceConflicts(t *testing.T) {
	a := newAPI(t)
	w, _ := a.do(t, http.MethodPost, "/v1/till/open", map[string]any{"opening_float": 0})
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := a.do(t, http.MethodPost, "/v1/till/open", map[string]any{"opening_float": 10})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NotEmpty(t, body["detail"])
}

func TestTill_CloseWithoutOpenSession(t *testing.T) {
	a := newAPI(t)
	w, _ := a.do(t, http.MethodPost, "/v1/till/close", map[string]any{"counted_cash": 0})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, a.queue.enqueued)
}

func TestTill_NegativeOpeningFloatFailsValidation(t *testing.T) {
	a := newAPI(t)
	w, body := a.do(t, http.MethodPost, "/v1/till/open", map[string]any{"opening_float": -1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, map[string]any{"opening_float": "min"}, body["fields"])

	// rounds to zero as a float64, still negative as a decimal
	w, body = a.do(t, http.MethodPost, "/v1/till/open", map[string]any{"opening_float": "-1e-400"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, map[string]any{"opening_float": "min"}, body["fields"])
}

// ── Movements ─────────────────────────────────────────────────────────────────

func TestTill_MovementErrors(t *testing.T) {
	a := newAPI(t)

	w, _ := a.do(t, http.MethodPost, "/v1/till/movements", map[string]any{"kind": "SUPPLY", "amount": 10})
	assert.Equal(t, http.StatusConflict, w.Code, "no open session")

	w, _ = a.do(t, http.MethodPost, "/v1/till/open", map[string]any{"opening_float": 0})
	require.Equal(t, http.StatusCreated, w.Code)

	cases := []struct {
		name string
		body map[string]any
		code int
	}{
		{"insufficient tendered", map[string]any{"kind": "SALE_CASH", "amount": 50, "tendered": 40}, http.StatusUnprocessableEntity},
		{"missing tendered", map[string]any{"kind": "SALE_CASH", "amount": 50}, http.StatusUnprocessableEntity},
		{"unknown kind", map[string]any{"kind": "REFUND", "amount": 5}, http.StatusUnprocessableEntity},
		{"method disagrees with kind", map[string]any{"kind": "SALE_DEBIT", "amount": 5, "payment_method": "pix"}, http.StatusUnprocessableEntity},
		{"missing kind", map[string]any{"amount": 5}, http.StatusUnprocessableEntity},
		{"unknown session", map[string]any{"kind": "SUPPLY", "amount": 5, "session_id": 99}, http.StatusNotFound},
		{"malformed body", nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body any = tc.body
			if tc.body == nil {
				body = "not an object"
			}
			w, _ := a.do(t, http.MethodPost, "/v1/till/movements", body)
			assert.Equal(t, tc.code, w.Code, w.Body.String())
		})
	}

	w, body := a.do(t, http.MethodGet, "/v1/till/movements?date=2024-03-09", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["movements"], "rejected movements are not stored")
}

func TestTill_PerSessionReads(t *testing.T) {
	a := newAPI(t)
	_, body := a.do(t, http.MethodPost, "/v1/till/open", map[string]any{"opening_float": 100})
	id := int64(body["id"].(float64))
	a.do(t, http.MethodPost, "/v1/till/movements", map[string]any{"kind": "SUPPLY", "amount": 20})
	a.do(t, http.MethodPost, "/v1/till/movements", map[string]any{"kind": "WITHDRAWAL", "amount": 5, "description": "bank"})
	a.do(t, http.MethodPost, "/v1/till/movements", map[string]any{"kind": "SALE_CREDIT", "amount": 12.5})

	base := "/v1/till/sessions/" + jsonInt(id)

	w, body := a.do(t, http.MethodGet, base+"/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "115.00", body["balance"])

	w, body = a.do(t, http.MethodGet, base+"/payments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12.50", body["totals"].(map[string]any)["CREDIT"])

	w, body = a.do(t, http.MethodGet, base+"/extras", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "20.00", body["supplies"])
	assert.Equal(t, "5.00", body["withdrawals"])

	w, body = a.do(t, http.MethodGet, base+"/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OPEN", body["state"])
	assert.Nil(t, body["counted"])
	assert.Nil(t, body["difference"])

	w, _ = a.do(t, http.MethodGet, "/v1/till/sessions/99/summary", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = a.do(t, http.MethodGet, "/v1/till/sessions/abc/balance", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ── Reports ───────────────────────────────────────────────────────────────────

func TestTill_Reports(t *testing.T) {
	a := newAPI(t)

	w, _ := a.do(t, http.MethodGet, "/v1/till/summaries/latest", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	a.do(t, http.MethodPost, "/v1/till/open", map[string]any{"opening_float": 50})
	a.do(t, http.MethodPost, "/v1/till/movements", map[string]any{"kind": "SUPPLY", "amount": 10})
	a.clock.Advance(time.Hour)
	a.do(t, http.MethodPost, "/v1/till/close", map[string]any{"counted_cash": 60})

	req, err := http.NewRequest(http.MethodGet, "/v1/till/summaries?date=2024-03-09", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+a.token)
	w = httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "0.00", list[0]["difference"])
	assert.Equal(t, "normal", list[0]["classification"])

	w, body := a.do(t, http.MethodGet, "/v1/till/movements?date=2024-03-09", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10.00", body["total_value"])
	assert.Len(t, body["movements"], 1)

	w, body = a.do(t, http.MethodGet, "/v1/till/movements?date=2024-03-10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.00", body["total_value"])

	w, _ = a.do(t, http.MethodGet, "/v1/till/movements?date=09/03/2024", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDiscounts_RecordAndReport(t *testing.T) {
	a := newAPI(t)

	w, body := a.do(t, http.MethodPost, "/v1/discounts", map[string]any{"tab_id": 7, "reason": "cortesia", "amount": "5"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "5.00", body["amount"])
	assert.Equal(t, "ana", body["actor"])

	a.do(t, http.MethodPost, "/v1/discounts", map[string]any{"reason": "atraso", "amount": 2.5})

	w, body = a.do(t, http.MethodGet, "/v1/discounts/report?from=2024-03-09&to=2024-03-09", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7.50", body["total"])
	assert.Equal(t, map[string]any{"cortesia": "5.00", "atraso": "2.50"}, body["by_reason"])
	assert.Equal(t, map[string]any{"ana": "7.50"}, body["by_actor"])

	w, _ = a.do(t, http.MethodGet, "/v1/discounts/report?from=2024-03-10", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = a.do(t, http.MethodGet, "/v1/discounts/report?from=2024-03-10&to=2024-03-09", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = a.do(t, http.MethodPost, "/v1/discounts", map[string]any{"amount": -1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// ── Audit log ─────────────────────────────────────────────────────────────────

func (a *api) list(t *testing.T, path string) (*httptest.ResponseRecorder, []map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+a.token)
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var out []map[string]any
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestTill_AuditLog(t *testing.T) {
	a := newAPI(t)

	w, entries := a.list(t, "/v1/till/audit")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, entries)

	a.do(t, http.MethodPost, "/v1/till/open", map[string]any{"opening_float": 50})
	a.clock.Advance(time.Minute)
	a.do(t, http.MethodPost, "/v1/till/movements", map[string]any{"kind": "WITHDRAWAL", "amount": 5})
	a.clock.Advance(time.Minute)
	a.do(t, http.MethodPost, "/v1/till/close", map[string]any{"counted_cash": 45})

	w, entries = a.list(t, "/v1/till/audit")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, entries, 3)
	assert.Equal(t, "CLOSE", entries[0]["action"])
	assert.Equal(t, "WITHDRAWAL", entries[1]["action"])
	assert.Equal(t, "OPEN", entries[2]["action"])
	assert.Equal(t, "ana", entries[0]["actor"])
	assert.Equal(t, float64(1), entries[0]["session_id"])

	w, entries = a.list(t, "/v1/till/audit?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, entries, 1)
	assert.Equal(t, "CLOSE", entries[0]["action"])

	w, _ = a.list(t, "/v1/till/audit?limit=zero")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTill_RequiresToken(t *testing.T) {
	a := newAPI(t)
	a.token = "garbage"
	w, _ := a.do(t, http.MethodGet, "/v1/till/current", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func jsonInt(n int64) string {
	raw, _ := json.Marshal(n)
	return string(raw)
}
