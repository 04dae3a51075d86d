package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docsage/docsage/internal/middleware"
)

type RouterDeps struct {
	Documents       *DocumentHandler
	Chat            *ChatHandler
	UploadRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	uploadGroup := api.Group("")
	uploadGroup.Use(middleware.RateLimit(deps.UploadRateLimit))
	uploadGroup.POST("/documents", deps.Documents.Upload)

	api.GET("/documents", deps.Documents.List)
	api.GET("/documents/:id", deps.Documents.Get)
	api.GET("/documents/:id/chunks", deps.Documents.Chunks)
	api.DELETE("/documents/:id", deps.Documents.Delete)

	api.POST("/chat", deps.Chat.Chat)
	api.POST("/chat/stream", deps.Chat.ChatStream)
	api.GET("/chats", deps.Chat.List)
	api.GET("/chats/:id", deps.Chat.Get)
	api.DELETE("/chats/:id", deps.Chat.Delete)
}
