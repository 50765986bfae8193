package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"catalograg/internal/domain"
	"catalograg/internal/port"
)

// GeminiGenerator answers with a Gemini chat model.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGeminiGenerator(ctx context.Context, apiKeyEnv, model string, temperature float32) (*GeminiGenerator, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key not found in environment variable: %s", domain.ErrConfiguration, apiKeyEnv)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create genai client: %v", domain.ErrConfiguration, err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiGenerator{
		client:      client,
		model:       model,
		temperature: temperature,
	}, nil
}

func (g *GeminiGenerator) Answer(ctx context.Context, req port.AnswerRequest) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(g.temperature)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemPrompt)},
	}

	cs := model.StartChat()
	for _, turn := range req.History {
		cs.History = append(cs.History,
			&genai.Content{Role: "user", Parts: []genai.Part{genai.Text(turn.Question)}},
			&genai.Content{Role: "model", Parts: []genai.Part{genai.Text(turn.Answer)}},
		)
	}

	resp, err := cs.SendMessage(ctx, genai.Text(BuildUserPrompt(req.Question, req.Context)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		// The first candidate with content is the answer.
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: empty response from %s", domain.ErrProvider, g.model)
	}
	return strings.TrimSpace(b.String()), nil
}

func (g *GeminiGenerator) ModelName() string {
	return g.model
}

func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}
