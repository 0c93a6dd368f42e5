package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Message is one turn of a chat-style request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Messages builds the system + user turns for a reply prompt.
func Messages(system, user string) []Message {
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

type chatCompletionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// ChatCompletion calls an OpenAI-compatible /v1/chat/completions endpoint and
// returns the first choice's content. An empty apiKey sends no auth header.
func ChatCompletion(ctx context.Context, client *http.Client, baseURL, apiKey, model string, messages []Message, maxTokens int) (string, error) {
	headers := map[string]string{}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}

	var resp chatCompletionResponse
	url := strings.TrimRight(baseURL, "/") + "/v1/chat/completions"
	req := chatCompletionRequest{Model: model, Messages: messages, MaxTokens: maxTokens}
	if err := PostJSON(ctx, client, url, headers, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: no choices in completion", ErrInvalidResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// ModelOrDefault picks the per-request model when one is set.
func ModelOrDefault(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	return fallback
}
