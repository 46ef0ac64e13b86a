package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubText struct {
	reply  string
	err    error
	prompt string
}

func (s *stubText) Generate(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

// blockingText waits for the context like a well behaved HTTP client.
type blockingText struct{}

func (blockingText) Generate(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func testDescriptor() ProjectDescriptor {
	return ProjectDescriptor{
		Name:        "Mobile app",
		Description: "Ship the first version of the mobile app",
		Timeline:    10,
		StartDate:   day("2024-01-01"),
		DueDate:     day("2024-01-11"),
		Category:    "mobile",
	}.WithDefaults(day("2024-01-01"))
}

const validReply = `{"subtasks":[
 {"title":"Design","description":"Design screens","estimatedHours":6},
 {"title":"Build","description":"Build screens","estimatedHours":20,"dependencies":[0]}
]}`

func TestAIGenerator_Success(t *testing.T) {
	text := &stubText{reply: validReply}
	g := NewAIGenerator(text, time.Second, zaptest.NewLogger(t))

	set, err := g.Generate(context.Background(), testDescriptor())
	require.NoError(t, err)
	assert.Len(t, set.Subtasks, 2)
	assert.Equal(t, 26.0, set.TotalEstimatedHours)

	assert.Contains(t, text.prompt, "Mobile app")
	assert.Contains(t, text.prompt, "2024-01-11")
}

func TestAIGenerator_Failures(t *testing.T) {
	tests := []struct {
		name   string
		text   TextGenerator
		reason FailureReason
		is     error
	}{
		{"unconfigured", nil, ReasonProviderUnconfigured, ErrProviderUnconfigured},
		{"refusal", &stubText{reply: "Sorry, I can't help with that."}, ReasonMalformedResponse, ErrMalformedResponse},
		{"empty set", &stubText{reply: `{"subtasks":[]}`}, ReasonEmptyTaskSet, ErrEmptyTaskSet},
		{"provider error", &stubText{err: errors.New("connection reset")}, ReasonProviderError, ErrProviderFailed},
		{"rate limited", &stubText{err: fmt.Errorf("429: %w", ErrRateLimited)}, ReasonRateLimited, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewAIGenerator(tt.text, time.Second, nil)

			set, err := g.Generate(context.Background(), testDescriptor())
			assert.Nil(t, set)

			var failure *GenerationFailure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, tt.reason, failure.Reason)
			assert.ErrorIs(t, err, tt.is)
		})
	}
}

func TestAIGenerator_Timeout(t *testing.T) {
	g := NewAIGenerator(blockingText{}, 20*time.Millisecond, nil)

	start := time.Now()
	_, err := g.Generate(context.Background(), testDescriptor())
	assert.Less(t, time.Since(start), 2*time.Second)

	var failure *GenerationFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, ReasonTimeout, failure.Reason)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestAsFailure(t *testing.T) {
	assert.Nil(t, AsFailure(nil))
	assert.Equal(t, ReasonTimeout, AsFailure(context.DeadlineExceeded).Reason)
	assert.Equal(t, ReasonProviderError, AsFailure(errors.New("boom")).Reason)

	existing := &GenerationFailure{Reason: ReasonRateLimited, Err: ErrRateLimited}
	assert.Same(t, existing, AsFailure(fmt.Errorf("wrapped: %w", existing)))
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := BuildPrompt(testDescriptor())
	require.NoError(t, err)
	assert.Contains(t, prompt, "Ship the first version of the mobile app")
	assert.Contains(t, prompt, "2024-01-01")
	assert.Contains(t, prompt, "between 5 and 15 subtasks")
	assert.Contains(t, prompt, "Category: mobile")
	assert.False(t, strings.HasPrefix(prompt, "\n"))
}
