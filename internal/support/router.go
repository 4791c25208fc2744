package support

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *Handler) {
	group := r.Group("/support")
	{
		group.POST("/cases", h.CreateTicket)
		group.GET("/cases/:id", h.GetTicket)
		group.POST("/cases/:id/messages", h.AddMessage)
		group.POST("/cases/:id/status", h.UpdateStatus)
		group.POST("/cases/:id/close", h.CloseTicket)
		group.POST("/cases/:id/timeline/refresh", h.RefreshTimeline)
		group.POST("/cases/:id/attachments", h.UploadAttachment)
		group.GET("/cases/:id/attachments", h.ListAttachments)
		group.GET("/agents/:agentId/workload", h.GetWorkload)
	}
}
