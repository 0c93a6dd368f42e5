// Package models contains shared data models used across the autoreply codebase.
package models

import "context"

// AIProvider is the text generation collaborator used for AI replies.
// Never call specific AI providers directly; always inject this interface.
type AIProvider interface {
	// Generate returns reply text for the request. Providers do not enforce
	// MaxLength; callers bound the output.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Name returns the provider identifier (e.g., "ollama", "openai").
	Name() string
}

// GenerationRequest is the input to a reply generation call.
type GenerationRequest struct {
	SourceText         string // the post being replied to
	Context            string // who is replying, e.g. "Replying as @acme"
	Tone               Tone
	MaxLength          int
	IncludeHashtags    bool
	IncludeEmojis      bool
	CustomInstructions string
	Model              string // empty means the provider's configured default
}
