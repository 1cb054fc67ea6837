package handlers

import (
	"evohome_gateway/internal/logger"
	"evohome_gateway/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Snapshot stream (HTTP upgrade) on the same port; token in header or ?access_token=
	router.GET("/ws", h.streamAuthMiddleware, h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.operatorIdMiddleware)
	{
		h.registerGatewayRoutes(api)
		h.registerSystemRoutes(api)
		h.registerZoneRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerGatewayRoutes(api *gin.RouterGroup) {
	gw := api.Group("/gateway")
	{
		gw.GET("/status", h.getGatewayStatus)
		gw.POST("/refresh", h.refreshGateway)
	}
}

func (h *Handler) registerSystemRoutes(api *gin.RouterGroup) {
	systems := api.Group("/systems")
	{
		systems.GET("", h.listSystems)
		systems.GET("/:systemId", h.getSystem)
		systems.GET("/:systemId/zones/:zoneId", h.getZoneStatus)
	}
}

func (h *Handler) registerZoneRoutes(api *gin.RouterGroup) {
	zones := api.Group("/zones")
	{
		zones.GET("/:zoneId/schedule", h.getZoneSchedule)
		// Body example: {"temperature":21.5,"until":"2025-01-01T18:00:00Z"} or {"cancel":true}
		zones.PUT("/:zoneId/setpoint", h.setZoneSetpoint)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
