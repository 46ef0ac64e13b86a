package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yukikurage/project-planner-api/internal/config"
	"github.com/yukikurage/project-planner-api/internal/generation"
)

// NewTextGenerator selects the provider named by cfg.Provider. It returns a
// nil generator, not an error, when the provider is "none" or its API key is
// missing; generation then always uses the fallback.
func NewTextGenerator(ctx context.Context, cfg config.GenerationConfig, logger *zap.Logger) (generation.TextGenerator, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("OPENAI_API_KEY not set, subtask generation will use the fallback template")
			return nil, nil
		}
		g, err := NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIURL)
		if err != nil {
			return nil, err
		}
		logger.Info("text generation provider configured", zap.String("provider", "openai"), zap.String("model", g.model))
		return g, nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			logger.Warn("GEMINI_API_KEY not set, subtask generation will use the fallback template")
			return nil, nil
		}
		g, err := NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, "")
		if err != nil {
			return nil, err
		}
		logger.Info("text generation provider configured", zap.String("provider", "gemini"), zap.String("model", g.model))
		return g, nil
	case "none", "":
		logger.Info("text generation disabled, subtask generation will use the fallback template")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
