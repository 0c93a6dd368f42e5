package ai

import "github.com/kiranshivaraju/autoreply/internal/ai/provider"

var (
	ErrProviderUnavailable = provider.ErrProviderUnavailable
	ErrInferenceTimeout    = provider.ErrInferenceTimeout
	ErrInvalidResponse     = provider.ErrInvalidResponse
)
