package cart

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shopforge/commerce-backend/internal/httpx/response"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

type Handler struct {
	log     *logger.Logger
	service Service
}

func NewHandler(baseLog *logger.Logger, service Service) *Handler {
	return &Handler{
		log:     baseLog.With("handler", "CartHandler"),
		service: service,
	}
}

func (h *Handler) GetCart(c *gin.Context) {
	customerID, ok := customerParam(c)
	if !ok {
		return
	}
	view, err := h.service.GetCart(c.Request.Context(), customerID)
	if err != nil {
		h.log.Error("GetCart failed", "error", err, "customer_id", customerID)
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) AddItem(c *gin.Context) {
	customerID, ok := customerParam(c)
	if !ok {
		return
	}
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.AddItem(c.Request.Context(), customerID, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, view)
}

func (h *Handler) UpdateItem(c *gin.Context) {
	customerID, ok := customerParam(c)
	if !ok {
		return
	}
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.UpdateItem(c.Request.Context(), customerID, c.Param("sku"), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) RemoveItem(c *gin.Context) {
	customerID, ok := customerParam(c)
	if !ok {
		return
	}
	view, err := h.service.RemoveItem(c.Request.Context(), customerID, c.Param("sku"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) ClearCart(c *gin.Context) {
	customerID, ok := customerParam(c)
	if !ok {
		return
	}
	if err := h.service.ClearCart(c.Request.Context(), customerID); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (h *Handler) GetTotals(c *gin.Context) {
	customerID, ok := customerParam(c)
	if !ok {
		return
	}
	view, err := h.service.GetTotals(c.Request.Context(), customerID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) MergeCarts(c *gin.Context) {
	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.MergeCarts(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func customerParam(c *gin.Context) (int64, bool) {
	raw := c.Param("customerId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		response.RespondError(c, http.StatusBadRequest, "invalid_customer_id", err)
		return 0, false
	}
	return id, true
}
