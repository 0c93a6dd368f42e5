package vllm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kiranshivaraju/autoreply/internal/ai/provider"
	"github.com/kiranshivaraju/autoreply/internal/config"
	"github.com/kiranshivaraju/autoreply/pkg/models"
)

// Provider implements models.AIProvider using vLLM's OpenAI-compatible server.
type Provider struct {
	cfg    config.VLLMConfig
	client *http.Client
}

func NewProvider(cfg config.VLLMConfig) *Provider {
	return &Provider{cfg: cfg, client: &http.Client{}}
}

func (p *Provider) Name() string { return "vllm" }

func (p *Provider) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	system, user := provider.BuildPrompt(req)
	model := provider.ModelOrDefault(req.Model, p.cfg.Model)

	text, err := provider.ChatCompletion(ctx, p.client, p.cfg.BaseURL, "", model,
		provider.Messages(system, user), 0)
	if err != nil {
		return "", fmt.Errorf("vllm: %w", err)
	}
	return provider.CleanOutput(text), nil
}

var _ models.AIProvider = (*Provider)(nil)
