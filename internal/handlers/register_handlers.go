package handlers

import (
	"github.com/gin-gonic/gin"

	portssvc "github.com/finbooks/accounting_backend/internal/core/ports/services"
	"github.com/finbooks/accounting_backend/internal/middleware"
	"github.com/finbooks/accounting_backend/internal/platform/config"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
) {
	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	setupAPIV1Routes(r, services)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	services *portssvc.ServiceContainer,
) {
	// The gateway in front of this service authenticates requests and injects
	// X-User-ID; here we only lift it into the context.
	v1 := r.Group("/api/v1", middleware.UserIdentityMiddleware())

	// All resources are company scoped.
	company := v1.Group("/companies/:company_id")

	registerAccountRoutes(company, services.Account)
	registerJournalRoutes(company, services.Posting)
	registerDepreciationRoutes(company, services.Depreciation)
}
