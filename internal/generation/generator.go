package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const DefaultTimeout = 45 * time.Second

// AIGenerator is the TaskGenerator backed by an external text generator.
type AIGenerator struct {
	text    TextGenerator
	timeout time.Duration
	logger  *zap.Logger
}

// NewAIGenerator wraps text. A nil text generator is allowed; every call then
// fails with ErrProviderUnconfigured so callers take the fallback path.
func NewAIGenerator(text TextGenerator, timeout time.Duration, logger *zap.Logger) *AIGenerator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AIGenerator{text: text, timeout: timeout, logger: logger}
}

type completion struct {
	text string
	err  error
}

// Generate builds the prompt, calls the text generator bounded by the
// configured timeout and parses the reply. Every error is a
// *GenerationFailure.
func (g *AIGenerator) Generate(ctx context.Context, project ProjectDescriptor) (*TaskSet, error) {
	if g.text == nil {
		return nil, &GenerationFailure{Reason: ReasonProviderUnconfigured, Err: ErrProviderUnconfigured}
	}

	prompt, err := BuildPrompt(project)
	if err != nil {
		return nil, &GenerationFailure{Reason: ReasonProviderError, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// The call runs in its own goroutine so a provider that ignores ctx
	// cannot hold the request past the deadline.
	done := make(chan completion, 1)
	go func() {
		text, err := g.text.Generate(ctx, prompt)
		done <- completion{text: text, err: err}
	}()

	var reply completion
	select {
	case reply = <-done:
	case <-ctx.Done():
		return nil, g.contextFailure(ctx)
	}

	if reply.err != nil {
		if ctx.Err() != nil {
			return nil, g.contextFailure(ctx)
		}
		return nil, AsFailure(fmt.Errorf("%w: %w", ErrProviderFailed, reply.err))
	}

	set, err := ParseResponse(reply.text)
	if err != nil {
		g.logger.Debug("unusable generation response", zap.Error(err), zap.Int("response_length", len(reply.text)))
		return nil, AsFailure(err)
	}
	return set, nil
}

func (g *AIGenerator) contextFailure(ctx context.Context) *GenerationFailure {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &GenerationFailure{Reason: ReasonTimeout, Err: fmt.Errorf("%w after %s", ErrTimeout, g.timeout)}
	}
	return &GenerationFailure{Reason: ReasonProviderError, Err: ctx.Err()}
}
