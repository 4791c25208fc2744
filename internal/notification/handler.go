package notification

import (
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
		log:     baseLog.With("handler", "NotificationHandler"),
		service: service,
	}
}

func (h *Handler) CreateNotification(c *gin.Context) {
	var req CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.CreateNotification(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, view)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	limit, offset := httpx.Pagination(c)
	views, total, err := h.service.ListNotifications(c.Request.Context(), ListNotificationsFilter{
		Recipient: c.Query("recipient"),
		Channel:   c.Query("channel"),
		Status:    c.Query("status"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		h.log.Error("ListNotifications failed", "error", err)
		response.RespondErr(c, err)
		return
	}
	response.RespondList(c, views, total)
}

func (h *Handler) GetNotification(c *gin.Context) {
	notificationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.service.GetNotification(c.Request.Context(), notificationID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) SendNotification(c *gin.Context) {
	notificationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.service.SendNotification(c.Request.Context(), notificationID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) FailNotification(c *gin.Context) {
	notificationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req FailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.FailNotification(c.Request.Context(), notificationID, req.Message)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) RescheduleNotification(c *gin.Context) {
	notificationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.RescheduleNotification(c.Request.Context(), notificationID, req.SendAfter)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) GetEvents(c *gin.Context) {
	notificationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	views, err := h.service.GetEvents(c.Request.Context(), notificationID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, views)
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	notificationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteNotification(c.Request.Context(), notificationID); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (h *Handler) ScheduleBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.ScheduleBatch(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondAccepted(c, view)
}

func (h *Handler) CreateTemplate(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, view)
}

func (h *Handler) ListTemplates(c *gin.Context) {
	limit, offset := httpx.Pagination(c)
	views, total, err := h.service.ListTemplates(c.Request.Context(), ListTemplatesFilter{
		Name:    c.Query("name"),
		Channel: c.Query("channel"),
		Locale:  c.Query("locale"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		h.log.Error("ListTemplates failed", "error", err)
		response.RespondErr(c, err)
		return
	}
	response.RespondList(c, views, total)
}

func (h *Handler) GetTemplate(c *gin.Context) {
	view, err := h.service.GetTemplate(c.Request.Context(), c.Param("templateId"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) UpdateTemplate(c *gin.Context) {
	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.UpdateTemplate(c.Request.Context(), c.Param("templateId"), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	if err := h.service.DeleteTemplate(c.Request.Context(), c.Param("templateId")); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (h *Handler) ListJobs(c *gin.Context) {
	limit, offset := httpx.Pagination(c)
	views, total, err := h.service.ListJobs(c.Request.Context(), ListJobsFilter{
		Status:     c.Query("status"),
		TemplateID: c.Query("templateId"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.log.Error("ListJobs failed", "error", err)
		response.RespondErr(c, err)
		return
	}
	response.RespondList(c, views, total)
}

func (h *Handler) GetJob(c *gin.Context) {
	jobID, ok := pathID(c, "jobId")
	if !ok {
		return
	}
	view, err := h.service.GetJob(c.Request.Context(), jobID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) GetPreferences(c *gin.Context) {
	customerID, ok := customerID(c)
	if !ok {
		return
	}
	view, err := h.service.GetPreferences(c.Request.Context(), customerID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	customerID, ok := customerID(c)
	if !ok {
		return
	}
	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.UpdatePreferences(c.Request.Context(), customerID, req.Preferences)
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

func customerID(c *gin.Context) (int64, bool) {
	raw := c.Param("customerId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		response.RespondError(c, http.StatusBadRequest, "invalid_customer_id", err)
		return 0, false
	}
	return id, true
}
