package fulfillment

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *Handler) {
	group := r.Group("/fulfillment")
	{
		group.POST("/shipments", h.CreateShipment)
		group.GET("/shipments", h.ListShipments)
		group.GET("/shipments/:id", h.GetShipment)
		group.POST("/shipments/:id/status", h.UpdateStatus)
		group.GET("/shipments/:id/events", h.GetEvents)
		group.DELETE("/shipments/:id", h.DeleteShipment)
		group.GET("/track/:trackingNumber", h.Track)
		group.POST("/returns", h.CreateReturn)
		group.GET("/returns/:id", h.GetReturn)
	}
}
