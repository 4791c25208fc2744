package customer

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
		log:     baseLog.With("handler", "CustomerHandler"),
		service: service,
	}
}

func (h *Handler) CreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, view)
}

func (h *Handler) GetCustomer(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}
	view, err := h.service.GetCustomer(c.Request.Context(), customerID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) UpdateCustomer(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.UpdateCustomer(c.Request.Context(), customerID, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) DeleteCustomer(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteCustomer(c.Request.Context(), customerID); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (h *Handler) AssignSegment(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}
	var req SegmentAssignment
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.AssignSegment(c.Request.Context(), customerID, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, view)
}

func (h *Handler) ClearSegments(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.ClearSegments(c.Request.Context(), customerID); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondNoContent(c)
}

func pathID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return 0, false
	}
	return uint(id), true
}
