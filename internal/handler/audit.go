package handler

import (
	"net/http"
	"strconv"

	"github.com/isaqueitalo/restaurante-1.0/internal/apierror"
	"github.com/isaqueitalo/restaurante-1.0/internal/dto"
	"github.com/isaqueitalo/restaurante-1.0/internal/service"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	svc service.AuditService
}

func NewAuditHandler(svc service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// List godoc
// @Summary      Till audit log, newest first
// @Tags         till
// @Produce      json
// @Security     BearerAuth
// @Param        limit query    int false "Max entries (default 100, max 1000)"
// @Success      200   {array}  dto.AuditEntryResponse
// @Failure      400   {object} apierror.APIError
// @Router       /v1/till/audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, apierror.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	entries, err := h.svc.Recent(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAuditList(entries))
}
