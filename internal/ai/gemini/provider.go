package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/autoreply/internal/ai/provider"
	"github.com/kiranshivaraju/autoreply/internal/config"
	"github.com/kiranshivaraju/autoreply/pkg/models"
	"google.golang.org/genai"
)

// Provider implements models.AIProvider using the Gemini API through the
// google.golang.org/genai SDK.
type Provider struct {
	cfg    config.GeminiConfig
	client *genai.Client
}

// NewProvider builds the SDK client. No network call is made here.
func NewProvider(ctx context.Context, cfg config.GeminiConfig) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Provider{cfg: cfg, client: client}, nil
}

func (p *Provider) Name() string { return "gemini" }

func (p *Provider) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	system, user := provider.BuildPrompt(req)
	model := provider.ModelOrDefault(req.Model, p.cfg.Model)

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
	}

	result, err := p.client.Models.GenerateContent(ctx, model, genai.Text(user), genCfg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("gemini: %w: %v", provider.ErrInferenceTimeout, err)
		}
		return "", fmt.Errorf("gemini: %w: %v", provider.ErrProviderUnavailable, err)
	}

	text := firstText(result)
	if text == "" {
		return "", fmt.Errorf("gemini: %w: no candidate text", provider.ErrInvalidResponse)
	}
	return provider.CleanOutput(text), nil
}

// firstText concatenates the text parts of the first candidate.
func firstText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

var _ models.AIProvider = (*Provider)(nil)
