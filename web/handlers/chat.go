package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campus-agent/assistant"
	"campus-agent/chat"
	"campus-agent/web/format"
	"campus-agent/web/types"
)

type ChatHandler struct {
	assistant *assistant.Assistant
	sessions  *chat.Manager
	logger    *zap.Logger
}

func NewChatHandler(asst *assistant.Assistant, sessions *chat.Manager, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		assistant: asst,
		sessions:  sessions,
		logger:    logger,
	}
}

// ListSessions returns the sidebar view: all sessions plus the current one.
func (h *ChatHandler) ListSessions(c *gin.Context) {
	current, _ := h.sessions.Current()
	c.JSON(http.StatusOK, gin.H{
		"sessions": h.sessions.Sessions(),
		"current":  current,
	})
}

// CreateSession allocates a fresh session and makes it current.
func (h *ChatHandler) CreateSession(c *gin.Context) {
	id := h.sessions.CreateSession()
	c.JSON(http.StatusCreated, gin.H{"id": id, "title": "New chat"})
}

// GetSession opens a session (making it current) and returns its transcript.
func (h *ChatHandler) GetSession(c *gin.Context) {
	id := c.Param("sessionID")
	if !h.sessions.OpenSession(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	messages := h.sessions.Messages(id)
	views := make([]types.MessageView, 0, len(messages))
	for _, msg := range messages {
		view := types.MessageView{
			ID:        msg.ID,
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt.Format(time.RFC3339),
			Streaming: msg.Streaming,
			Meta:      msg.Meta,
		}
		if msg.Role == chat.RoleAssistant {
			view.HTML = format.RenderHTML(msg.Content)
		}
		views = append(views, view)
	}

	title := "New chat"
	for _, summary := range h.sessions.Sessions() {
		if summary.ID == id {
			title = summary.Title
			break
		}
	}
	c.JSON(http.StatusOK, types.SessionView{ID: id, Title: title, Messages: views})
}

// DeleteSession removes a session. Deleting the current session clears the
// active-session pointer; other sessions are untouched.
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	h.sessions.DeleteSession(c.Param("sessionID"))
	c.Status(http.StatusNoContent)
}

// SendMessage handles one user turn and streams the response as SSE events.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req types.ChatRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Error("Failed to bind chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = h.sessions.EnsureCurrent()
	} else if !h.sessions.Exists(sessionID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	var writeMu sync.Mutex
	emit := func(event assistant.Event) error {
		writeMu.Lock()
		defer writeMu.Unlock()

		select {
		case <-c.Request.Context().Done():
			return c.Request.Context().Err()
		default:
		}

		jsonData, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", jsonData); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	if err := emit(assistant.Event{Type: "session", Content: sessionID}); err != nil {
		return
	}

	if err := h.assistant.Respond(c.Request.Context(), sessionID, req.Message, emit); err != nil {
		h.logger.Error("Chat turn failed",
			zap.Error(err),
			zap.String("session_id", sessionID))
	}
}
