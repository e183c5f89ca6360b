package api

import (
	"Chatify/internal/api/middleware"
	"Chatify/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		chatGroup := apiGroup.Group("/chat")
		{
			chatGroup.GET("/ws", group.WSHandler.Connect)

			authGroup := chatGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/send", group.ChatHandler.SendMessage)
				authGroup.GET("/history", group.ChatHandler.GetChatHistory)
				authGroup.POST("/delivered", group.ChatHandler.MarkDelivered)
				authGroup.POST("/viewed", group.ChatHandler.MarkViewed)
				authGroup.POST("/snapshot/:message_id/open", group.ChatHandler.OpenSnapshot)
				authGroup.POST("/snapshot/:message_id/close", group.ChatHandler.CloseSnapshot)
				authGroup.POST("/:message_id/save", group.ChatHandler.ToggleSaved)
				authGroup.POST("/:message_id/react", group.ChatHandler.React)
				authGroup.DELETE("/:message_id", group.ChatHandler.DeleteMessage)
				authGroup.POST("/cleanup", group.ChatHandler.Cleanup)
				authGroup.GET("/presence", group.ChatHandler.PeerPresence)
			}
		}

		vaultGroup := apiGroup.Group("/vault")
		vaultGroup.Use(middleware.AuthMiddleware())
		{
			vaultGroup.POST("/password", group.VaultHandler.SetPassword)
			vaultGroup.POST("/store", group.VaultHandler.Store)
			vaultGroup.GET("/list", group.VaultHandler.List)
		}
	}

	return r
}
