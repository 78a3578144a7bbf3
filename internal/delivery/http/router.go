package http

import (
	"github.com/gdugdh24/geopresence/internal/delivery/http/handler"
	"github.com/gdugdh24/geopresence/internal/delivery/http/middleware"
	"github.com/gin-gonic/gin"
)

type Router struct {
	profileHandler  *handler.ProfileHandler
	presenceHandler *handler.PresenceHandler
	nearbyHandler   *handler.NearbyHandler
	wsHandler       *handler.WSHandler
	authMiddleware  *middleware.AuthMiddleware
}

func NewRouter(
	profileHandler *handler.ProfileHandler,
	presenceHandler *handler.PresenceHandler,
	nearbyHandler *handler.NearbyHandler,
	wsHandler *handler.WSHandler,
	authMiddleware *middleware.AuthMiddleware,
) *Router {
	return &Router{
		profileHandler:  profileHandler,
		presenceHandler: presenceHandler,
		nearbyHandler:   nearbyHandler,
		wsHandler:       wsHandler,
		authMiddleware:  authMiddleware,
	}
}

func (r *Router) Setup() *gin.Engine {
	router := gin.Default()

	// Health check (supports both GET and HEAD)
	healthHandler := func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	// API v1
	v1 := router.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(r.authMiddleware.RequireAuth())
	{
		profile := protected.Group("/profile")
		{
			profile.POST("/ensure", r.profileHandler.EnsureProfile)
			profile.GET("/me", r.profileHandler.GetMyProfile)
		}

		presence := protected.Group("/presence")
		{
			presence.POST("/online", r.presenceHandler.GoOnline)
			presence.POST("/offline", r.presenceHandler.GoOffline)
		}

		protected.GET("/nearby", r.nearbyHandler.GetNearby)
		protected.GET("/ws", r.wsHandler.Connect)
	}

	return router
}
