package router

import (
	"github.com/gin-gonic/gin"

	"ktp-deploy/internal/handlers"
)

func RegisterRoutes(r *gin.Engine, relay *handlers.RelayHandler) {
	r.GET("/health", relay.Health)

	hltv := r.Group("/hltv")
	hltv.Use(relay.AuthMiddleware())
	{
		hltv.POST("/:port/command", relay.Command)
		hltv.POST("/:port/restart", relay.Restart)
		hltv.GET("/:port/console", relay.Console)
	}
}
