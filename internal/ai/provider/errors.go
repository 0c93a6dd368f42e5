// Package provider holds what every AI backend shares: sentinel errors,
// prompt construction and the JSON-over-HTTP call.
package provider

import "errors"

var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrInferenceTimeout    = errors.New("ai inference timeout")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")
)
