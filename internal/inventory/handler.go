package inventory

import (
	"context"
	"net/http"
	"strconv"

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
		log:     baseLog.With("handler", "InventoryHandler"),
		service: service,
	}
}

func (h *Handler) CreateItem(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.CreateItem(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, view)
}

func (h *Handler) ListItems(c *gin.Context) {
	limit, offset := httpx.Pagination(c)
	views, total, err := h.service.ListItems(c.Request.Context(), ListItemsFilter{
		SKU:      c.Query("sku"),
		Location: c.Query("location"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.log.Error("ListItems failed", "error", err)
		response.RespondErr(c, err)
		return
	}
	response.RespondList(c, views, total)
}

func (h *Handler) GetItem(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.service.GetItem(c.Request.Context(), itemID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) AdjustStock(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.AdjustStock(c.Request.Context(), itemID, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) Restock(c *gin.Context) {
	h.quantityAction(c, h.service.Restock)
}

func (h *Handler) Reserve(c *gin.Context) {
	h.quantityAction(c, h.service.Reserve)
}

func (h *Handler) Release(c *gin.Context) {
	h.quantityAction(c, h.service.Release)
}

func (h *Handler) Commit(c *gin.Context) {
	h.quantityAction(c, h.service.Commit)
}

func (h *Handler) GetEvents(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	views, err := h.service.GetEvents(c.Request.Context(), itemID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, views)
}

func (h *Handler) DeleteItem(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteItem(c.Request.Context(), itemID); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (h *Handler) quantityAction(c *gin.Context, fn func(context.Context, uint, int) (*ItemView, error)) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := fn(c.Request.Context(), itemID, req.Quantity)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
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
