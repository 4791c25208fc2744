package pricing

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *Handler) {
	prices := r.Group("/prices")
	{
		prices.GET("/resolve", h.ResolvePrice)
		prices.POST("", h.CreateRule)
		prices.GET("", h.ListRules)
		prices.GET("/:id", h.GetRule)
		prices.PATCH("/:id", h.UpdateRule)
		prices.DELETE("/:id", h.DeleteRule)
	}
}
