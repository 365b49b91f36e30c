package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campus-agent/config"
	apperrors "campus-agent/errors"
)

func testClient(serverURL string) *Client {
	logger, _ := zap.NewDevelopment()
	return New(&config.Config{
		OllamaHost:        serverURL,
		Model:             "test-model",
		MaxRetries:        3,
		RetryDelaySeconds: 10 * time.Millisecond,
		LLMRequestTimeout: 5 * time.Second,
	}, logger)
}

func drain(t *testing.T, stream <-chan string) []string {
	t.Helper()
	var fragments []string
	for {
		select {
		case fragment, ok := <-stream:
			if !ok {
				return fragments
			}
			fragments = append(fragments, fragment)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for stream")
		}
	}
}

func TestChatStream(t *testing.T) {
	var gotBody chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		lines := []string{
			`{"message":{"content":"Hel"},"done":false}`,
			`this line is not json`,
			`{"message":{"content":"lo"},"done":false}`,
			`{"message":{"content":""},"done":true}`,
			`{"message":{"content":"after done"},"done":false}`,
		}
		for _, line := range lines {
			w.Write([]byte(line + "\n"))
		}
	}))
	defer server.Close()

	temperature := 0.1
	stream, err := testClient(server.URL).ChatStream(context.Background(),
		[]ChatMessage{{Role: "user", Content: "hi"}}, &temperature)
	require.NoError(t, err)

	assert.Equal(t, []string{"Hel", "lo"}, drain(t, stream))

	assert.Equal(t, "test-model", gotBody.Model)
	assert.True(t, gotBody.Stream)
	require.NotNil(t, gotBody.Options)
	assert.Equal(t, 0.1, gotBody.Options.Temperature)
}

func TestChatStreamServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	stream, err := testClient(server.URL).ChatStream(context.Background(),
		[]ChatMessage{{Role: "user", Content: "hi"}}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrLLMCommunication))
	assert.Nil(t, stream)
}

func TestChatStreamRetriesWhileModelLoading(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "loading", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"message":{"content":"ready"},"done":true}` + "\n"))
	}))
	defer server.Close()

	stream, err := testClient(server.URL).ChatStream(context.Background(),
		[]ChatMessage{{Role: "user", Content: "hi"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ready"}, drain(t, stream))
	assert.Equal(t, 2, attempts)
}

func TestChatStreamContextCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"content":"one"},"done":false}` + "\n"))
		w.(http.Flusher).Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := testClient(server.URL).ChatStream(ctx,
		[]ChatMessage{{Role: "user", Content: "hi"}}, nil)
	require.NoError(t, err)

	select {
	case fragment := <-stream:
		assert.Equal(t, "one", fragment)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first fragment")
	}

	cancel()
	select {
	case _, ok := <-stream:
		assert.False(t, ok, "stream should close after cancellation")
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after cancellation")
	}
}

func TestChatStreamUnavailableAfterRetries(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	stream, err := testClient(server.URL).ChatStream(context.Background(),
		[]ChatMessage{{Role: "user", Content: "hi"}}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavailable))
	assert.Nil(t, stream)
	assert.Equal(t, 3, attempts, "every configured retry should be spent")
}
