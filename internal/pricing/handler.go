package pricing

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shopforge/commerce-backend/internal/httpx"
	"github.com/shopforge/commerce-backend/internal/httpx/response"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

type Handler struct {
	log     *logger.Logger
	service Service
}

func NewHandler(baseLog *logger.Logger, service Service) *Handler {
	return &Handler{
		log:     baseLog.With("handler", "PricingHandler"),
		service: service,
	}
}

func (h *Handler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.CreateRule(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, view)
}

func (h *Handler) ListRules(c *gin.Context) {
	limit, offset := httpx.Pagination(c)
	effectiveAt, ok := queryTime(c, "effectiveAt")
	if !ok {
		return
	}
	views, total, err := h.service.ListRules(c.Request.Context(), ListRulesFilter{
		SKU:         c.Query("sku"),
		Region:      c.Query("region"),
		ActiveOnly:  strings.EqualFold(c.Query("activeOnly"), "true"),
		EffectiveAt: effectiveAt,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		h.log.Error("ListRules failed", "error", err)
		response.RespondErr(c, err)
		return
	}
	response.RespondList(c, views, total)
}

func (h *Handler) ResolvePrice(c *gin.Context) {
	effectiveAt, ok := queryTime(c, "effectiveAt")
	if !ok {
		return
	}
	view, err := h.service.ResolvePrice(c.Request.Context(), c.Query("sku"), c.Query("region"), effectiveAt)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) GetRule(c *gin.Context) {
	ruleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.service.GetRule(c.Request.Context(), ruleID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) UpdateRule(c *gin.Context) {
	ruleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.UpdateRule(c.Request.Context(), ruleID, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) DeleteRule(c *gin.Context) {
	ruleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteRule(c.Request.Context(), ruleID); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondNoContent(c)
}

func pathID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return 0, false
	}
	return uint(id), true
}

func queryTime(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_timestamp", err)
		return nil, false
	}
	return &parsed, true
}
