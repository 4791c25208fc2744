package payment

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *Handler) {
	payments := r.Group("/payments")
	{
		payments.POST("", h.CreatePayment)
		payments.GET("", h.ListPayments)
		payments.GET("/:id", h.GetPayment)
		payments.PATCH("/:id/status", h.UpdateStatus)
		payments.POST("/:id/capture", h.Capture)
		payments.POST("/:id/refund", h.Refund)
		payments.PATCH("/:id/provider", h.UpdateProvider)
		payments.GET("/:id/events", h.GetEvents)
		payments.DELETE("/:id", h.DeletePayment)
	}
}
