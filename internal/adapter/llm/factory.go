package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"catalograg/config"
	"catalograg/internal/adapter/guard"
	"catalograg/internal/domain"
	"catalograg/internal/port"
)

// GuardedGenerator bounds answer generation with a guard.
type GuardedGenerator struct {
	inner port.AnswerGenerator
	guard *guard.Guard
}

func NewGuardedGenerator(inner port.AnswerGenerator, g *guard.Guard) *GuardedGenerator {
	return &GuardedGenerator{inner: inner, guard: g}
}

func (g *GuardedGenerator) Answer(ctx context.Context, req port.AnswerRequest) (string, error) {
	res, err := g.guard.Do(ctx, func(ctx context.Context) (any, error) {
		return g.inner.Answer(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (g *GuardedGenerator) ModelName() string {
	return g.inner.ModelName()
}

// New builds the configured answer generator.
func New(ctx context.Context, cfg config.GenerationConfig, logger *slog.Logger) (port.AnswerGenerator, error) {
	var (
		inner port.AnswerGenerator
		err   error
	)

	switch cfg.Provider {
	case "gemini", "google", "":
		inner, err = NewGeminiGenerator(ctx, cfg.APIKeyEnv, cfg.Model, cfg.Temperature)
	case "openai":
		inner, err = NewOpenAIGenerator(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL, cfg.Temperature)
	default:
		return nil, fmt.Errorf("%w: unknown generation provider: %s", domain.ErrConfiguration, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	g := guard.New(guard.Settings{
		Name:    "generation/" + inner.ModelName(),
		Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
		Logger:  logger,
	})
	return NewGuardedGenerator(inner, g), nil
}
