package inventory

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *Handler) {
	items := r.Group("/inventory")
	{
		items.POST("", h.CreateItem)
		items.GET("", h.ListItems)
		items.GET("/:id", h.GetItem)
		items.PATCH("/:id", h.AdjustStock)
		items.POST("/:id/restock", h.Restock)
		items.POST("/:id/reserve", h.Reserve)
		items.POST("/:id/release", h.Release)
		items.POST("/:id/commit", h.Commit)
		items.GET("/:id/events", h.GetEvents)
		items.DELETE("/:id", h.DeleteItem)
	}
}
