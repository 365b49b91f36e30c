package assistant

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"campus-agent/chat"
	"campus-agent/config"
	apperrors "campus-agent/errors"
	"campus-agent/llmclient"
	"campus-agent/prompts"
	"campus-agent/retrieval"
	"campus-agent/router"
)

const transportFailureText = "Sorry, I couldn't reach the language model. Please try again in a moment."

// Streamer is the generation provider capability the orchestrator consumes:
// given a message list, produce a finite, non-restartable sequence of
// incremental text fragments.
type Streamer interface {
	ChatStream(ctx context.Context, messages []llmclient.ChatMessage, temperature *float64) (<-chan string, error)
}

// Event is one presentation-facing streaming update emitted while a turn is
// being answered.
type Event struct {
	Type    string     `json:"type"` // meta, chunk, end, error
	Content string     `json:"content,omitempty"`
	Meta    *chat.Meta `json:"meta,omitempty"`
}

// EmitFunc receives Events as they are produced. A nil EmitFunc is valid;
// the transcript in the session manager is updated either way.
type EmitFunc func(Event) error

// Assistant ties the engine together: it routes each user turn, answers
// locally when retrieval is confident, and otherwise delegates to the
// generation provider while merging streamed fragments into the session
// transcript.
type Assistant struct {
	cfg      *config.Config
	llm      Streamer
	index    *retrieval.Index
	policy   *router.Policy
	sessions *chat.Manager
	logger   *zap.Logger
}

func New(
	cfg *config.Config,
	llm Streamer,
	index *retrieval.Index,
	policy *router.Policy,
	sessions *chat.Manager,
	logger *zap.Logger,
) *Assistant {
	return &Assistant{
		cfg:      cfg,
		llm:      llm,
		index:    index,
		policy:   policy,
		sessions: sessions,
		logger:   logger,
	}
}

// Sessions exposes the transcript manager for the presentation layer.
func (a *Assistant) Sessions() *chat.Manager {
	return a.sessions
}

// Respond handles one user turn in a session: appends the user message,
// routes, then either appends a finalized local answer or streams a
// generated one. Ordering within the turn is strictly sequential; each
// fragment is applied to the transcript before the next one is read. The
// trailing draft is always finalized, including on transport failure and
// cancellation.
func (a *Assistant) Respond(ctx context.Context, sessionID string, text string, emit EmitFunc) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.WrapError(apperrors.ErrInvalidInput, "empty message")
	}
	if emit == nil {
		emit = func(Event) error { return nil }
	}

	a.sessions.AppendTurn(sessionID, chat.Message{Role: chat.RoleUser, Content: text})

	result := a.index.Search(text)
	decision := a.policy.Route(text, result)

	if decision.Kind != router.DecisionDelegate {
		return a.respondLocally(sessionID, decision, emit)
	}
	return a.respondGenerated(ctx, sessionID, text, decision, emit)
}

// respondLocally appends a finalized assistant turn for direct answers and
// refusals. The session manager is agnostic to how the answer was produced;
// provenance goes in the metadata.
func (a *Assistant) respondLocally(sessionID string, decision router.Decision, emit EmitFunc) error {
	meta := &chat.Meta{
		Source:          localSource(decision),
		MatchedQuestion: decision.MatchedQuestion,
		Confidence:      decision.Confidence,
	}

	a.sessions.BeginAssistantDraft(sessionID)
	a.sessions.ApplyFragment(sessionID, decision.Answer)
	a.sessions.FinalizeTurn(sessionID, meta)

	if err := emit(Event{Type: "meta", Meta: meta}); err != nil {
		return err
	}
	if err := emit(Event{Type: "chunk", Content: decision.Answer}); err != nil {
		return err
	}
	return emit(Event{Type: "end"})
}

func localSource(decision router.Decision) string {
	switch decision.Kind {
	case router.DecisionDirectAnswer:
		if decision.Source != "" {
			return decision.Source
		}
		return "knowledge-base"
	case router.DecisionLinkRefusal:
		return "link-policy"
	case router.DecisionOffTopic:
		return "off-topic"
	case router.DecisionClarification:
		return "clarification"
	}
	return ""
}

// respondGenerated delegates to the generation provider with the retrieval
// hints as grounding context and merges the streamed fragments into the
// trailing assistant draft.
func (a *Assistant) respondGenerated(ctx context.Context, sessionID string, text string, decision router.Decision, emit EmitFunc) error {
	messages := a.buildMessages(sessionID, text, decision.Hints)

	a.sessions.BeginAssistantDraft(sessionID)
	meta := &chat.Meta{Source: "generated"}
	if err := emit(Event{Type: "meta", Meta: meta}); err != nil {
		a.sessions.FinalizeTurn(sessionID, meta)
		return err
	}

	temperature := a.cfg.Temperature
	stream, err := a.llm.ChatStream(ctx, messages, &temperature)
	if err != nil {
		// Transport failure still finalizes the draft so no message is left
		// permanently streaming.
		a.sessions.ApplyFragment(sessionID, transportFailureText)
		a.sessions.FinalizeTurn(sessionID, meta)
		emit(Event{Type: "error", Content: transportFailureText})
		a.logger.Error("Generation request failed", zap.Error(err), zap.String("session_id", sessionID))
		return err
	}

	for fragment := range stream {
		a.sessions.ApplyFragment(sessionID, fragment)
		if err := emit(Event{Type: "chunk", Content: fragment}); err != nil {
			// Client went away; stop applying fragments and finalize.
			a.sessions.FinalizeTurn(sessionID, meta)
			return err
		}
		if ctx.Err() != nil {
			break
		}
	}

	a.sessions.FinalizeTurn(sessionID, meta)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return emit(Event{Type: "end"})
}

// buildMessages assembles the outbound prompt: system guard plus grounding
// bullets, the trailing conversation window, then the new user query.
func (a *Assistant) buildMessages(sessionID string, text string, hints []string) []llmclient.ChatMessage {
	var system strings.Builder
	system.WriteString(prompts.SystemGuard())
	if len(hints) > 0 {
		system.WriteString("\n\nKNOWLEDGE BASE CONTEXT:\n")
		for _, hint := range hints {
			system.WriteString("- ")
			system.WriteString(hint)
			system.WriteString("\n")
		}
	}

	messages := []llmclient.ChatMessage{{Role: "system", Content: system.String()}}

	history := a.sessions.Messages(sessionID)
	// Drop the just-appended user turn and the open draft; both are added
	// explicitly below or not at all.
	window := make([]llmclient.ChatMessage, 0, len(history))
	for _, msg := range history {
		if msg.Streaming {
			continue
		}
		window = append(window, llmclient.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	if len(window) > 0 && window[len(window)-1].Role == chat.RoleUser && window[len(window)-1].Content == text {
		window = window[:len(window)-1]
	}
	if a.cfg.HistoryWindow > 0 && len(window) > a.cfg.HistoryWindow {
		window = window[len(window)-a.cfg.HistoryWindow:]
	}

	messages = append(messages, window...)
	messages = append(messages, llmclient.ChatMessage{Role: "user", Content: text})
	return messages
}
