package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	defaultTitle  = "New chat"
	maxTitleRunes = 40
)

// Meta carries provenance for an assistant turn: where the answer came from
// and how confident retrieval was.
type Meta struct {
	Source          string `json:"source,omitempty"`
	MatchedQuestion string `json:"matched_question,omitempty"`
	Confidence      int    `json:"confidence,omitempty"`
}

// Message is a single conversation turn. At most one message per session is
// streaming at any time, and it is always the last one.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Streaming bool      `json:"streaming"`
	Meta      *Meta     `json:"meta,omitempty"`
}

// Session is an ordered message log with a derived title.
type Session struct {
	ID         string
	Title      string
	Messages   []Message
	CreatedAt  time.Time
	LastActive time.Time
}

// Summary is the sidebar view of a session.
type Summary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Manager owns all conversation sessions for the process. Storage is
// volatile and per-process; mutation is scoped by session id, and callers
// are expected to serialize turns within one session. Operations on an
// unknown session id are no-ops so in-flight streams tolerate concurrent
// deletion.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
	current  string
	logger   *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// CreateSession allocates a fresh session with an empty message list and
// default title, and makes it current.
func (m *Manager) CreateSession() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	now := time.Now()
	m.sessions[id] = &Session{
		ID:         id,
		Title:      defaultTitle,
		CreatedAt:  now,
		LastActive: now,
	}
	m.order = append(m.order, id)
	m.current = id

	m.logger.Info("Created session", zap.String("session_id", id))
	return id
}

// EnsureCurrent returns the current session id, lazily creating a session
// if none is active. This is the single lazy-creation path for callers that
// send a message with no session open.
func (m *Manager) EnsureCurrent() string {
	m.mu.RLock()
	current := m.current
	_, ok := m.sessions[current]
	m.mu.RUnlock()
	if ok && current != "" {
		return current
	}
	return m.CreateSession()
}

// Current returns the active session id, if any.
func (m *Manager) Current() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == "" {
		return "", false
	}
	return m.current, true
}

// OpenSession switches the current session. Unknown ids are ignored.
func (m *Manager) OpenSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	m.current = id
	return true
}

// AppendTurn appends a message to the session's log and returns the stored
// message id. The first user turn derives the session title. Unknown
// session ids are a no-op.
func (m *Manager) AppendTurn(id string, msg Message) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return ""
	}

	msg.ID = uuid.New().String()
	msg.CreatedAt = time.Now()
	if msg.Role == RoleUser && session.Title == defaultTitle {
		session.Title = deriveTitle(msg.Content)
	}
	session.Messages = append(session.Messages, msg)
	session.LastActive = msg.CreatedAt
	return msg.ID
}

// BeginAssistantDraft appends an empty assistant message marked streaming.
func (m *Manager) BeginAssistantDraft(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return
	}
	now := time.Now()
	session.Messages = append(session.Messages, Message{
		ID:        uuid.New().String(),
		Role:      RoleAssistant,
		CreatedAt: now,
		Streaming: true,
	})
	session.LastActive = now
}

// ApplyFragment appends a streamed text delta to the trailing assistant
// draft. It is a silent no-op when the trailing message is not a streaming
// assistant draft, which guards against fragments arriving after the turn
// was finalized or the session replaced.
func (m *Manager) ApplyFragment(id string, delta string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok || len(session.Messages) == 0 {
		return
	}
	last := &session.Messages[len(session.Messages)-1]
	if last.Role != RoleAssistant || !last.Streaming {
		return
	}
	last.Content += delta
	session.LastActive = time.Now()
}

// FinalizeTurn clears the streaming flag on the trailing assistant draft
// and optionally attaches provenance metadata. Finalizing twice, or with no
// draft open, is a no-op.
func (m *Manager) FinalizeTurn(id string, meta *Meta) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok || len(session.Messages) == 0 {
		return
	}
	last := &session.Messages[len(session.Messages)-1]
	if last.Role != RoleAssistant || !last.Streaming {
		return
	}
	last.Streaming = false
	if meta != nil {
		metaCopy := *meta
		last.Meta = &metaCopy
	}
	session.LastActive = time.Now()
}

// DeleteSession removes a session. If it was current, current becomes none.
// Unknown ids are a no-op.
func (m *Manager) DeleteSession(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return
	}
	delete(m.sessions, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if m.current == id {
		m.current = ""
	}
	m.logger.Info("Deleted session", zap.String("session_id", id))
}

// Sessions lists all sessions in creation order for the sidebar.
func (m *Manager) Sessions() []Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]Summary, 0, len(m.order))
	for _, id := range m.order {
		if session, ok := m.sessions[id]; ok {
			summaries = append(summaries, Summary{ID: session.ID, Title: session.Title})
		}
	}
	return summaries
}

// Messages returns a copy of a session's message log, or nil for unknown
// ids.
func (m *Manager) Messages(id string) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil
	}
	messages := make([]Message, len(session.Messages))
	copy(messages, session.Messages)
	return messages
}

// Exists reports whether a session id is known.
func (m *Manager) Exists(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[id]
	return ok
}

func deriveTitle(content string) string {
	title := strings.TrimSpace(content)
	if title == "" {
		return defaultTitle
	}
	runes := []rune(title)
	if len(runes) > maxTitleRunes {
		return string(runes[:maxTitleRunes]) + "…"
	}
	return title
}
