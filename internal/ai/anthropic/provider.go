package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/autoreply/internal/ai/provider"
	"github.com/kiranshivaraju/autoreply/internal/config"
	"github.com/kiranshivaraju/autoreply/pkg/models"
)

const (
	apiVersion = "2023-06-01"
	maxTokens  = 300
)

// Provider implements models.AIProvider using the Anthropic Messages API.
type Provider struct {
	cfg    config.AnthropicConfig
	client *http.Client
}

func NewProvider(cfg config.AnthropicConfig) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	return &Provider{cfg: cfg, client: &http.Client{}}
}

func (p *Provider) Name() string { return "anthropic" }

type messagesRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []provider.Message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *Provider) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	system, user := provider.BuildPrompt(req)
	body := messagesRequest{
		Model:     provider.ModelOrDefault(req.Model, p.cfg.Model),
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []provider.Message{{Role: "user", Content: user}},
	}
	headers := map[string]string{
		"x-api-key":         p.cfg.APIKey,
		"anthropic-version": apiVersion,
	}

	var resp messagesResponse
	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/messages"
	if err := provider.PostJSON(ctx, p.client, url, headers, body, &resp); err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", fmt.Errorf("anthropic: %w: no text content", provider.ErrInvalidResponse)
	}
	return provider.CleanOutput(out.String()), nil
}

var _ models.AIProvider = (*Provider)(nil)
