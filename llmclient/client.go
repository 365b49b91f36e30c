package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"campus-agent/config"
	apperrors "campus-agent/errors"
)

// ChatMessage is one turn in the provider's message list.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

// streamEvent is one newline-delimited event from the Ollama chat endpoint.
// done=true is the sole termination signal.
type streamEvent struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *Client {
	// Streaming responses are long-lived; the configured timeout bounds the
	// whole exchange and context cancellation handles early aborts.
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.LLMRequestTimeout},
		logger:     logger,
	}
}

// ChatStream performs a streaming chat call and returns a channel of
// incremental content deltas. The request itself runs synchronously so
// transport failures surface as an error to the caller; once the stream is
// open, malformed lines are skipped as keep-alive noise and the channel is
// closed when the provider reports done=true. No fragment is emitted after
// termination.
func (c *Client) ChatStream(ctx context.Context, messages []ChatMessage, temperature *float64) (<-chan string, error) {
	resp, err := c.send(ctx, messages, temperature, true)
	if err != nil {
		return nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			var event streamEvent
			if err := json.Unmarshal([]byte(line), &event); err != nil {
				// Partial or malformed line; treat as keep-alive noise.
				continue
			}

			if event.Message.Content != "" {
				select {
				case out <- event.Message.Content:
				case <-ctx.Done():
					return
				}
			}
			if event.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			c.logger.Error("Read chat stream", zap.Error(err))
		}
	}()

	return out, nil
}

// send issues the chat request, retrying with backoff while the model is
// still loading (503). Non-2xx responses and transport errors are wrapped
// as ErrLLMCommunication.
func (c *Client) send(ctx context.Context, messages []ChatMessage, temperature *float64, stream bool) (*http.Response, error) {
	reqBody := chatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		Stream:   stream,
	}
	if temperature != nil {
		reqBody.Options = &chatOptions{Temperature: *temperature}
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", strings.TrimRight(c.cfg.OllamaHost, "/"))

	var lastErr error
	unavailable := false
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, fmt.Errorf("create chat request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if resp.StatusCode == http.StatusServiceUnavailable {
			// Model loading; retry with backoff
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			unavailable = true
			c.logger.Warn("LLM service unavailable, retrying", zap.Int("attempt", attempt+1))
			c.backoffSleep(attempt)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, apperrors.WrapErrorf(apperrors.ErrLLMCommunication,
				"llm server status %s: %s", resp.Status, string(bodyBytes))
		}

		return resp, nil
	}

	if unavailable {
		return nil, apperrors.WrapErrorf(apperrors.ErrServiceUnavailable,
			"llm server still loading after %d attempts", c.cfg.MaxRetries)
	}
	return nil, apperrors.WrapError(apperrors.ErrLLMCommunication,
		fmt.Sprintf("no response from LLM server: %v", lastErr))
}

func (c *Client) backoffSleep(attempt int) {
	base := c.cfg.RetryDelaySeconds
	if base <= 0 {
		base = time.Second
	}
	d := base * time.Duration(1<<attempt)
	jitter := time.Duration(float64(d) * 0.1)
	time.Sleep(d - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter+1)))
}
