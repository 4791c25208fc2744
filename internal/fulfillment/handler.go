package fulfillment

import (
	"net/http"
	"strconv"
	"strings"

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
		log:     baseLog.With("handler", "FulfillmentHandler"),
		service: service,
	}
}

func (h *Handler) CreateShipment(c *gin.Context) {
	var req CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.CreateShipment(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, view)
}

func (h *Handler) ListShipments(c *gin.Context) {
	limit, offset := httpx.Pagination(c)
	filter := ListShipmentsFilter{
		Status:         c.Query("status"),
		TrackingNumber: c.Query("trackingNumber"),
		Limit:          limit,
		Offset:         offset,
	}
	if raw := c.Query("orderId"); raw != "" {
		orderID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_order_id", err)
			return
		}
		filter.OrderID = orderID
	}
	views, total, err := h.service.ListShipments(c.Request.Context(), filter)
	if err != nil {
		h.log.Error("ListShipments failed", "error", err)
		response.RespondErr(c, err)
		return
	}
	response.RespondList(c, views, total)
}

func (h *Handler) GetShipment(c *gin.Context) {
	shipmentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.service.GetShipment(c.Request.Context(), shipmentID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	shipmentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.UpdateStatus(c.Request.Context(), shipmentID, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) GetEvents(c *gin.Context) {
	shipmentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	views, err := h.service.GetEvents(c.Request.Context(), shipmentID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, views)
}

func (h *Handler) Track(c *gin.Context) {
	trackingNumber := strings.TrimSpace(c.Param("trackingNumber"))
	if trackingNumber == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_tracking_number", nil)
		return
	}
	view, err := h.service.Track(c.Request.Context(), trackingNumber)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) DeleteShipment(c *gin.Context) {
	shipmentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteShipment(c.Request.Context(), shipmentID); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (h *Handler) CreateReturn(c *gin.Context) {
	var req CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.CreateReturn(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, view)
}

func (h *Handler) GetReturn(c *gin.Context) {
	returnID, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.service.GetReturn(c.Request.Context(), returnID)
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
