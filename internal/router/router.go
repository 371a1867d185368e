package router

import (
	"github.com/gin-gonic/gin"

	"silkroute/internal/domain"
	"silkroute/internal/handler"
	"silkroute/internal/middleware"
	"silkroute/internal/service"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	authSvc service.AuthService,
	allowedOrigins []string,
	authH *handler.AuthHandler,
	shipmentH *handler.ShipmentHandler,
	documentH *handler.DocumentHandler,
	templateH *handler.TemplateHandler,
	declarationH *handler.DeclarationHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.POST("/refresh", authH.RefreshToken)

	// Protected routes - require valid JWT
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(authSvc))

	// Shipment routes
	shipments := protected.Group("/shipments")
	shipments.POST("", shipmentH.Create)
	shipments.GET("", shipmentH.List)
	shipments.GET("/:id", shipmentH.GetByID)
	shipments.DELETE("/:id", shipmentH.Delete)

	// Shipment-scoped document routes
	shipments.POST("/:id/documents", documentH.Upload)
	shipments.GET("/:id/documents", documentH.ListByShipment)

	// Shipment-scoped declaration routes
	shipments.POST("/:id/declaration", declarationH.Generate)
	shipments.GET("/:id/declaration", declarationH.GetByShipment)
	shipments.GET("/:id/declaration/export", declarationH.Export)

	// Document routes
	documents := protected.Group("/documents")
	documents.GET("/:id", documentH.GetByID)
	documents.POST("/:id/retry", documentH.Retry)
	documents.DELETE("/:id", documentH.Delete)

	// Declaration review
	declarations := protected.Group("/declarations")
	declarations.POST("/:id/review", declarationH.Review)

	// Template routes - management is admin-only
	templates := protected.Group("/templates")
	templates.GET("", templateH.List)
	templates.GET("/:id", templateH.GetByID)
	templates.POST("", middleware.RequireRole(domain.RoleAdmin), templateH.Create)
	templates.PUT("/:id", middleware.RequireRole(domain.RoleAdmin), templateH.Update)
	templates.POST("/:id/activate", middleware.RequireRole(domain.RoleAdmin), templateH.Activate)
	templates.POST("/:id/deactivate", middleware.RequireRole(domain.RoleAdmin), templateH.Deactivate)

	return r
}
