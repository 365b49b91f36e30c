package types

import "campus-agent/chat"

// ChatRequest is the body of a send-message call. SessionID may be empty;
// the engine lazily creates or reuses the current session.
type ChatRequest struct {
	Message   string `json:"message" form:"message"`
	SessionID string `json:"session_id" form:"session_id"`
}

// MessageView is a transcript message as exposed to the presentation layer,
// with the assistant content additionally rendered as HTML.
type MessageView struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	HTML      string     `json:"html,omitempty"`
	CreatedAt string     `json:"created_at"`
	Streaming bool       `json:"streaming"`
	Meta      *chat.Meta `json:"meta,omitempty"`
}

// SessionView is one session with its full message list.
type SessionView struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Messages []MessageView `json:"messages"`
}
