package httpx

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/shopforge/commerce-backend/internal/httpx/middleware"
	"github.com/shopforge/commerce-backend/internal/httpx/response"
	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

// BaseRouter builds the gin engine every service starts from: recovery,
// request logging, metrics and CORS middleware, tracing when enabled, plus
// the /health and /metrics endpoints.
func BaseRouter(serviceName string, log *logger.Logger, metrics *observability.Metrics, tracing bool) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if tracing {
		r.Use(otelgin.Middleware(serviceName))
	}
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		response.RespondOK(c, gin.H{"status": "ok"})
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapF(metrics.WriteHTTP))
	}
	return r
}
