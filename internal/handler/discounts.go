package handler

import (
	"net/http"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/apierror"
	"github.com/isaqueitalo/restaurante-1.0/internal/dto"
	"github.com/isaqueitalo/restaurante-1.0/internal/middleware"
	"github.com/isaqueitalo/restaurante-1.0/internal/service"

	"github.com/gin-gonic/gin"
)

type DiscountsHandler struct {
	svc service.DiscountService
	loc *time.Location
}

func NewDiscountsHandler(svc service.DiscountService, loc *time.Location) *DiscountsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &DiscountsHandler{svc: svc, loc: loc}
}

// Record godoc
// @Summary      Record a discount granted on a tab or item
// @Tags         discounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.DiscountRequest true "Discount"
// @Success      201  {object} dto.DiscountResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/discounts [post]
func (h *DiscountsHandler) Record(c *gin.Context) {
	var req dto.DiscountRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ev, err := h.svc.Record(c.Request.Context(), service.DiscountInput{
		TabID:  req.TabID,
		ItemID: req.ItemID,
		Reason: req.Reason,
		Amount: req.Amount,
		Actor:  middleware.GetActor(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewDiscountResponse(ev))
}

// Report godoc
// @Summary      Discounts by reason and by operator
// @Tags         discounts
// @Produce      json
// @Security     BearerAuth
// @Param        from query    string true "RFC 3339 or YYYY-MM-DD"
// @Param        to   query    string true "RFC 3339 or YYYY-MM-DD (whole day)"
// @Success      200  {object} dto.DiscountReportResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/discounts/report [get]
func (h *DiscountsHandler) Report(c *gin.Context) {
	from, ok := instantQuery(c, "from", false, h.loc)
	if !ok {
		return
	}
	to, ok := instantQuery(c, "to", true, h.loc)
	if !ok {
		return
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, apierror.New("to must not be before from"))
		return
	}
	rep, err := h.svc.Report(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewDiscountReportResponse(rep))
}
