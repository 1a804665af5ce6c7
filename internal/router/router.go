package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"invoicescan/internal/handler"
	"invoicescan/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	log *zap.Logger,
	allowedOrigins []string,
	invoiceH *handler.InvoiceHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks and metrics
	r.GET("/health", healthH.Liveness)
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/extract", invoiceH.Extract)
	r.GET("/invoice/:id", invoiceH.GetByID)

	vendors := r.Group("/invoices/vendor/:vendor")
	vendors.GET("", invoiceH.ListByVendor)
	vendors.GET("/export", invoiceH.ExportByVendor)

	return r
}
