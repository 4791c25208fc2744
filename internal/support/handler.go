package support

import (
	"io"
	"net/http"
	"strconv"
	"strings"

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
		log:     baseLog.With("handler", "SupportHandler"),
		service: service,
	}
}

func (h *Handler) CreateTicket(c *gin.Context) {
	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.CreateTicket(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, view)
}

func (h *Handler) GetTicket(c *gin.Context) {
	ticketID, ok := pathTicketID(c)
	if !ok {
		return
	}
	includeTimeline := false
	if raw := c.Query("timeline"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_timeline_flag", err)
			return
		}
		includeTimeline = parsed
	}
	view, err := h.service.GetTicket(c.Request.Context(), ticketID, includeTimeline)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) AddMessage(c *gin.Context) {
	ticketID, ok := pathTicketID(c)
	if !ok {
		return
	}
	var req MessageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.AddMessage(c.Request.Context(), ticketID, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	ticketID, ok := pathTicketID(c)
	if !ok {
		return
	}
	var assigned *string
	if raw := c.Query("assignedAgentId"); raw != "" {
		assigned = &raw
	}
	view, err := h.service.UpdateStatus(c.Request.Context(), ticketID, c.Query("status"), assigned)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) CloseTicket(c *gin.Context) {
	ticketID, ok := pathTicketID(c)
	if !ok {
		return
	}
	var req *CloseTicketRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		req = &CloseTicketRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
			return
		}
	}
	view, err := h.service.CloseTicket(c.Request.Context(), ticketID, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) GetWorkload(c *gin.Context) {
	agentID := strings.TrimSpace(c.Param("agentId"))
	view, err := h.service.GetWorkload(c.Request.Context(), agentID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) RefreshTimeline(c *gin.Context) {
	ticketID, ok := pathTicketID(c)
	if !ok {
		return
	}
	view, err := h.service.RefreshTimeline(c.Request.Context(), ticketID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) UploadAttachment(c *gin.Context) {
	ticketID, ok := pathTicketID(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_upload", err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_upload", err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_upload", err)
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	view, err := h.service.UploadAttachment(c.Request.Context(), ticketID, fileHeader.Filename, contentType, data)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, view)
}

func (h *Handler) ListAttachments(c *gin.Context) {
	ticketID, ok := pathTicketID(c)
	if !ok {
		return
	}
	views, err := h.service.ListAttachments(c.Request.Context(), ticketID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, views)
}

func pathTicketID(c *gin.Context) (string, bool) {
	ticketID := strings.TrimSpace(c.Param("id"))
	if ticketID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", nil)
		return "", false
	}
	return ticketID, true
}
