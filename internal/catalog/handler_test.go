package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-backend/internal/httpx"
	"github.com/shopforge/commerce-backend/internal/platform/testutil"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := newTestService(t)
	handler := NewHandler(testutil.Logger(t), svc)
	router := httpx.BaseRouter("catalog", testutil.Logger(t), nil, false)
	RegisterRoutes(router, handler)
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)
	w := doRequest(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestProductLifecycleHTTP(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/products", `{
		"sku": "WIDGET-1",
		"name": "Widget",
		"price": "19.99",
		"currency": "USD",
		"categories": ["tools"]
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created ProductView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "19.99", created.Price)

	w = doRequest(t, router, http.MethodPost, "/products", `{
		"sku": "WIDGET-1",
		"name": "Widget",
		"price": "19.99",
		"currency": "USD"
	}`)
	require.Equal(t, http.StatusConflict, w.Code)
	var envelope map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "sku_exists", envelope["error"]["code"])

	w = doRequest(t, router, http.MethodGet, "/products?category=tools", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []ProductView `json:"items"`
		Total int64         `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, int64(1), list.Total)

	w = doRequest(t, router, http.MethodGet, "/products/99999", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}
