package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/autoreply/internal/ai/provider"
	"github.com/kiranshivaraju/autoreply/internal/config"
	"github.com/kiranshivaraju/autoreply/pkg/models"
)

// Provider implements models.AIProvider using Ollama's /api/chat endpoint.
type Provider struct {
	cfg    config.OllamaConfig
	client *http.Client
}

func NewProvider(cfg config.OllamaConfig) *Provider {
	return &Provider{cfg: cfg, client: &http.Client{}}
}

func (p *Provider) Name() string { return "ollama" }

type chatRequest struct {
	Model    string             `json:"model"`
	Messages []provider.Message `json:"messages"`
	Stream   bool               `json:"stream"`
}

type chatResponse struct {
	Message provider.Message `json:"message"`
	Error   string           `json:"error,omitempty"`
}

func (p *Provider) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	system, user := provider.BuildPrompt(req)
	body := chatRequest{
		Model:    provider.ModelOrDefault(req.Model, p.cfg.Model),
		Messages: provider.Messages(system, user),
		Stream:   false,
	}

	var resp chatResponse
	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/api/chat"
	if err := provider.PostJSON(ctx, p.client, url, nil, body, &resp); err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama: %w: %s", provider.ErrProviderUnavailable, resp.Error)
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		return "", fmt.Errorf("ollama: %w: empty message", provider.ErrInvalidResponse)
	}
	return provider.CleanOutput(resp.Message.Content), nil
}

var _ models.AIProvider = (*Provider)(nil)
