package openai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kiranshivaraju/autoreply/internal/ai/provider"
	"github.com/kiranshivaraju/autoreply/internal/config"
	"github.com/kiranshivaraju/autoreply/pkg/models"
)

const maxTokens = 200

// Provider implements models.AIProvider using the OpenAI chat completions API.
type Provider struct {
	cfg    config.OpenAIConfig
	client *http.Client
}

func NewProvider(cfg config.OpenAIConfig) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	return &Provider{cfg: cfg, client: &http.Client{}}
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	system, user := provider.BuildPrompt(req)
	model := provider.ModelOrDefault(req.Model, p.cfg.Model)

	text, err := provider.ChatCompletion(ctx, p.client, p.cfg.BaseURL, p.cfg.APIKey, model,
		provider.Messages(system, user), maxTokens)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	return provider.CleanOutput(text), nil
}

var _ models.AIProvider = (*Provider)(nil)
