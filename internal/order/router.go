package order

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *Handler) {
	orders := r.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.PATCH("/:id/status", h.UpdateStatus)
		orders.POST("/:id/payments/capture", h.CapturePayment)
		orders.GET("/:id/events", h.GetEvents)
		orders.DELETE("/:id", h.DeleteOrder)
	}
}
