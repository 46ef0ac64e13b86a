package generation

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrMalformedResponse    = errors.New("malformed generation response")
	ErrEmptyTaskSet         = errors.New("generation response contains no subtasks")
	ErrProviderFailed       = errors.New("text generation provider failed")
	ErrTimeout              = errors.New("text generation timed out")
	ErrRateLimited          = errors.New("text generation rate limited")
	ErrProviderUnconfigured = errors.New("text generation provider not configured")
)

// FailureReason is the machine readable cause reported with a fallback.
type FailureReason string

const (
	ReasonMalformedResponse    FailureReason = "malformed_response"
	ReasonEmptyTaskSet         FailureReason = "empty_task_set"
	ReasonProviderError        FailureReason = "provider_error"
	ReasonTimeout              FailureReason = "timeout"
	ReasonRateLimited          FailureReason = "rate_limited"
	ReasonProviderUnconfigured FailureReason = "provider_unconfigured"
)

// GenerationFailure is returned by TaskGenerator implementations whenever the
// generative path cannot produce a usable task set. Callers fall back on it.
type GenerationFailure struct {
	Reason FailureReason
	Err    error
}

func (f *GenerationFailure) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", f.Reason, f.Err)
}

func (f *GenerationFailure) Unwrap() error {
	return f.Err
}

// AsFailure converts any error into a GenerationFailure with the best
// matching reason.
func AsFailure(err error) *GenerationFailure {
	if err == nil {
		return nil
	}
	var failure *GenerationFailure
	if errors.As(err, &failure) {
		return failure
	}

	reason := ReasonProviderError
	switch {
	case errors.Is(err, ErrMalformedResponse):
		reason = ReasonMalformedResponse
	case errors.Is(err, ErrEmptyTaskSet):
		reason = ReasonEmptyTaskSet
	case errors.Is(err, ErrRateLimited):
		reason = ReasonRateLimited
	case errors.Is(err, ErrProviderUnconfigured):
		reason = ReasonProviderUnconfigured
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		reason = ReasonTimeout
	}
	return &GenerationFailure{Reason: reason, Err: err}
}
