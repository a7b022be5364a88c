package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/auma/compliance-gate/internal/api/handlers"
	"github.com/auma/compliance-gate/internal/api/middleware"
	"github.com/auma/compliance-gate/internal/services"
)

// Deps are the shared services the routes are built on.
type Deps struct {
	Compliance *services.ComplianceService
	Health     handlers.HealthInfo
	// APIKey guards /api/v1. Empty disables the check.
	APIKey string
	// Gatherer backs /metrics; nil skips the endpoint.
	Gatherer prometheus.Gatherer
}

// Register wires up API routes.
func Register(router *gin.Engine, deps Deps) {
	router.GET("/api/v1/health", handlers.NewHealthHandler(deps.Health))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1")
	api.Use(middleware.APIKey(deps.APIKey))

	complianceHandler := handlers.NewComplianceHandler(deps.Compliance)
	api.POST("/compliance/check", complianceHandler.Check)
	api.POST("/compliance/validate", complianceHandler.Validate)
	api.GET("/compliance/stats", complianceHandler.Stats)
	api.GET("/compliance/responses/:topic", complianceHandler.CompliantResponse)

	escalationHandler := handlers.NewEscalationHandler(deps.Compliance)
	api.GET("/escalations", escalationHandler.List)
	api.POST("/escalations", escalationHandler.Create)
	api.GET("/escalations/:id", escalationHandler.Get)
	api.POST("/escalations/:id/acknowledge", escalationHandler.Acknowledge)
	api.POST("/escalations/:id/resolve", escalationHandler.Resolve)

	auditHandler := handlers.NewAuditHandler(deps.Compliance)
	api.GET("/audit", auditHandler.List)
}
