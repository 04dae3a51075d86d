package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/ai"
	"github.com/docsage/docsage/internal/model"
	appErr "github.com/docsage/docsage/internal/pkg/errors"
	"github.com/docsage/docsage/internal/pkg/response"
	"github.com/docsage/docsage/internal/rag"
	"github.com/docsage/docsage/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	req := &service.ChatRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		handleError(c, fmt.Errorf("%w: %v", appErr.ErrInvalid, err))
		return
	}
	resp, err := h.chat.Chat(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, resp)
}

// ChatStream answers over SSE. Each frame is one named event with a JSON
// payload; failures after the stream starts are reported as an "error"
// event since the 200 header is already on the wire.
func (h *ChatHandler) ChatStream(c *gin.Context) {
	req := &service.ChatRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		handleError(c, fmt.Errorf("%w: %v", appErr.ErrInvalid, err))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	emit := func(ev service.StreamEvent) error {
		if c.Request.Context().Err() != nil {
			return c.Request.Context().Err()
		}
		c.SSEvent(ev.Type, streamPayload(ev))
		c.Writer.Flush()
		return nil
	}
	if err := h.chat.ChatStream(c.Request.Context(), req, emit); err != nil {
		if c.Request.Context().Err() != nil {
			return
		}
		logutil.GetLogger(c.Request.Context()).Error("chat stream failed", zap.Error(err))
		c.SSEvent("error", streamErrorPayload(err))
		c.Writer.Flush()
	}
}

func streamPayload(ev service.StreamEvent) interface{} {
	switch ev.Type {
	case "chatId":
		return gin.H{"chatId": ev.ChatID}
	case string(rag.EventContext):
		items := ev.Event.Context
		if items == nil {
			items = []model.ContextItem{}
		}
		return gin.H{"context": items}
	case string(rag.EventChunk):
		return gin.H{"text": ev.Event.Text}
	case string(rag.EventDone):
		return ev.Event
	default:
		return ev.Event
	}
}

func streamErrorPayload(err error) gin.H {
	var provErr *ai.ProviderError
	if errors.As(err, &provErr) {
		return gin.H{"kind": string(provErr.Kind), "message": provErr.Error()}
	}
	if errors.Is(err, appErr.ErrInvalid) || errors.Is(err, appErr.ErrNotFound) {
		return gin.H{"kind": "invalid", "message": err.Error()}
	}
	return gin.H{"kind": "internal", "message": http.StatusText(http.StatusInternalServerError)}
}

func (h *ChatHandler) List(c *gin.Context) {
	chats, err := h.chat.ListChats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"chats": chats})
}

func (h *ChatHandler) Get(c *gin.Context) {
	detail, err := h.chat.GetChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, detail)
}

func (h *ChatHandler) Delete(c *gin.Context) {
	if err := h.chat.DeleteChat(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
