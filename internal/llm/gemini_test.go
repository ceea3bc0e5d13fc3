package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func geminiReply(t *testing.T, text string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
			},
			"usageMetadata": map[string]int{
				"promptTokenCount":     3,
				"candidatesTokenCount": 5,
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewGeminiClient("test-key",
		WithBaseURL(srv.URL),
		WithWordDelay(0),
	)
	require.NoError(t, err)
	return client
}

func TestGeminiComplete(t *testing.T) {
	var gotPath, gotKey string
	var gotBody geminiRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		geminiReply(t, "Hi there!")(w, r)
	})

	resp, err := client.Complete(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: "Hello"}},
	})
	require.NoError(t, err)
	require.Equal(t, "Hi there!", resp.Content)
	require.Equal(t, 3, resp.TokensIn)
	require.Equal(t, 5, resp.TokensOut)

	require.Equal(t, "/models/gemini-1.5-flash-latest:generateContent", gotPath)
	require.Equal(t, "test-key", gotKey)

	// Fixed generation config and the four safety categories are part of
	// the request on every call.
	require.Equal(t, fixedGenConfig, gotBody.GenerationConfig)
	require.Len(t, gotBody.SafetySettings, 4)
	for _, setting := range gotBody.SafetySettings {
		require.Equal(t, "BLOCK_MEDIUM_AND_ABOVE", setting.Threshold)
	}
}

func TestGeminiComplete_RoleMapping(t *testing.T) {
	var gotBody geminiRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		geminiReply(t, "ok")(w, r)
	})

	_, err := client.Complete(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{
			{Role: "user", Content: "first"},
			{Role: "assistant", Content: "second"},
			{Role: "user", Content: "third"},
		},
	})
	require.NoError(t, err)

	require.Len(t, gotBody.Contents, 3)
	require.Equal(t, "user", gotBody.Contents[0].Role)
	require.Equal(t, "model", gotBody.Contents[1].Role)
	require.Equal(t, "user", gotBody.Contents[2].Role)
	require.Equal(t, "second", gotBody.Contents[1].Parts[0].Text)
}

func TestGeminiComplete_EmptyCandidates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates": []}`))
	})

	_, err := client.Complete(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: "Hello"}},
	})

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
}

func TestGeminiComplete_RemoteError(t *testing.T) {
	t.Run("with remote message", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": {"message": "quota exceeded"}}`))
		})

		_, err := client.Complete(context.Background(), &CompletionRequest{
			Messages: []ChatMessage{{Role: "user", Content: "Hello"}},
		})

		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		require.Equal(t, http.StatusTooManyRequests, svcErr.StatusCode)
		require.Equal(t, "quota exceeded", svcErr.Message)
	})

	t.Run("without remote message", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.Complete(context.Background(), &CompletionRequest{
			Messages: []ChatMessage{{Role: "user", Content: "Hello"}},
		})

		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		require.Equal(t, http.StatusText(http.StatusInternalServerError), svcErr.Message)
	})
}

func TestGeminiCompleteStream_WordChunks(t *testing.T) {
	client := newTestClient(t, geminiReply(t, "a b c"))

	var chunks []string
	resp, err := client.CompleteStream(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: "count"}},
	}, func(partial string, index int) error {
		require.Equal(t, len(chunks), index)
		chunks = append(chunks, partial)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "a b c", resp.Content)
	require.Equal(t, []string{"a", "a b", "a b c"}, chunks)
}

func TestGeminiCompleteStream_CallbackStops(t *testing.T) {
	client := newTestClient(t, geminiReply(t, "one two three four"))

	stop := context.Canceled
	var calls int
	_, err := client.CompleteStream(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: "count"}},
	}, func(partial string, index int) error {
		calls++
		if index == 1 {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, 2, calls)
}
