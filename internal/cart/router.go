package cart

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *Handler) {
	carts := r.Group("/carts")
	{
		carts.POST("/merge", h.MergeCarts)
		carts.GET("/:customerId", h.GetCart)
		carts.POST("/:customerId/items", h.AddItem)
		carts.PATCH("/:customerId/items/:sku", h.UpdateItem)
		carts.DELETE("/:customerId/items/:sku", h.RemoveItem)
		carts.DELETE("/:customerId", h.ClearCart)
		carts.GET("/:customerId/totals", h.GetTotals)
	}
}
