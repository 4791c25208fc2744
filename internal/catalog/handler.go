package catalog

import (
	"net/http"
	"strconv"
	"strings"

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
		log:     baseLog.With("handler", "CatalogHandler"),
		service: service,
	}
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.CreateProduct(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, view)
}

func (h *Handler) ListProducts(c *gin.Context) {
	limit, offset := httpx.Pagination(c)
	onlyActive := strings.EqualFold(c.Query("onlyActive"), "true")
	views, total, err := h.service.ListProducts(c.Request.Context(), ListProductsFilter{
		Category:   c.Query("category"),
		OnlyActive: onlyActive,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.log.Error("ListProducts failed", "error", err)
		response.RespondErr(c, err)
		return
	}
	response.RespondList(c, views, total)
}

func (h *Handler) GetProduct(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.service.GetProduct(c.Request.Context(), productID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.service.UpdateProduct(c.Request.Context(), productID, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(c.Request.Context(), productID); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondNoContent(c)
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
