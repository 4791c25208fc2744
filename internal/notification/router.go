package notification

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *Handler) {
	group := r.Group("/notifications")
	{
		group.POST("/batch", h.ScheduleBatch)

		group.POST("/templates", h.CreateTemplate)
		group.GET("/templates", h.ListTemplates)
		group.GET("/templates/:templateId", h.GetTemplate)
		group.PUT("/templates/:templateId", h.UpdateTemplate)
		group.DELETE("/templates/:templateId", h.DeleteTemplate)

		group.GET("/jobs", h.ListJobs)
		group.GET("/jobs/:jobId", h.GetJob)

		group.GET("/preferences/:customerId", h.GetPreferences)
		group.PUT("/preferences/:customerId", h.UpdatePreferences)

		group.POST("", h.CreateNotification)
		group.GET("", h.ListNotifications)
		group.GET("/:id", h.GetNotification)
		group.POST("/:id/send", h.SendNotification)
		group.POST("/:id/fail", h.FailNotification)
		group.POST("/:id/reschedule", h.RescheduleNotification)
		group.GET("/:id/events", h.GetEvents)
		group.DELETE("/:id", h.DeleteNotification)
	}
}
