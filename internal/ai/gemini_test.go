package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/yukikurage/project-planner-api/internal/generation"
)

func TestGeminiGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"subtasks\":[]}"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	g, err := NewGeminiGenerator(context.Background(), "test-key", "gemini-test", server.URL)
	require.NoError(t, err)

	text, err := g.Generate(context.Background(), "plan this")
	require.NoError(t, err)
	assert.Equal(t, `{"subtasks":[]}`, text)
}

func TestClassifyGeminiError(t *testing.T) {
	limited := classifyGeminiError(genai.APIError{Code: http.StatusTooManyRequests, Message: "quota", Status: "RESOURCE_EXHAUSTED"})
	assert.ErrorIs(t, limited, generation.ErrRateLimited)

	wrapped := classifyGeminiError(fmt.Errorf("call: %w", &genai.APIError{Code: http.StatusTooManyRequests}))
	assert.ErrorIs(t, wrapped, generation.ErrRateLimited)

	other := classifyGeminiError(genai.APIError{Code: http.StatusBadRequest})
	assert.NotErrorIs(t, other, generation.ErrRateLimited)

	plain := classifyGeminiError(errors.New("dial tcp: refused"))
	assert.Equal(t, generation.ReasonProviderError, generation.AsFailure(plain).Reason)
}

func TestNewGeminiGenerator_RequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), "", "", "")
	assert.Error(t, err)
}
