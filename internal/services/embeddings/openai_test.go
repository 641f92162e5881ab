package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestOpenAIProvider_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "text-embedding-3-small", body["model"])
		assert.Equal(t, "세브란스병원 병원", body["input"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider("sk-test", "", server.URL+"/v1/", 3, time.Second)
	require.NoError(t, err)

	vector, err := provider.Embed(context.Background(), "세브란스병원 병원")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	assert.Equal(t, "openai/text-embedding-3-small", provider.Name())
	assert.Equal(t, 3, provider.Dimension())
}

func TestOpenAIProvider_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider("sk-test", "text-embedding-3-small", server.URL, 3, time.Second)
	require.NoError(t, err)

	_, err = provider.Embed(context.Background(), "카페")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.True(t, apiErr.Temporary())
}

func TestOpenAIProvider_RejectedKeyIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider("sk-bad", "text-embedding-3-small", server.URL, 3, time.Second)
	require.NoError(t, err)

	service := NewService(provider, RetryPolicy{MaxAttempts: 3}, arbor.NewLogger())
	_, err = service.GenerateEmbedding(context.Background(), "카페")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Contains(t, err.Error(), "Incorrect API key")
	assert.Equal(t, 1, calls)
}

func TestOpenAIProvider_EmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider("sk-test", "", server.URL, 3, time.Second)
	require.NoError(t, err)

	_, err = provider.Embed(context.Background(), "카페")
	assert.Error(t, err)
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider("", "", "", 0, 0)
	assert.Error(t, err)
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "", "", 0)
	assert.Error(t, err)
}
