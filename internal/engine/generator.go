package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/kiranshivaraju/autoreply/pkg/models"
)

const (
	ellipsis = "..."
	// wordCutRatio is the earliest point, as a fraction of the limit, at
	// which truncation may still cut on a word boundary.
	wordCutRatio = 0.8
)

// Generator produces the reply text for one candidate.
type Generator struct {
	provider models.AIProvider
	timeout  time.Duration
}

// NewGenerator creates a Generator. provider may be nil when no job uses AI.
func NewGenerator(provider models.AIProvider, timeout time.Duration) *Generator {
	return &Generator{provider: provider, timeout: timeout}
}

// Generate returns the static text when AI is off. Otherwise it asks the
// provider and bounds the answer to models.MaxReplyLength. Provider failures
// wrap ErrGeneration; there is no fallback to the static text.
func (g *Generator) Generate(ctx context.Context, job *models.ReplyJob, account *models.Account, post models.Post) (string, error) {
	if !job.Content.UseAI {
		return TruncateReply(job.Content.StaticText, models.MaxReplyLength), nil
	}
	if g.provider == nil {
		return "", fmt.Errorf("%w: no ai provider configured", ErrGeneration)
	}

	settings := models.AISettings{Tone: models.ToneFriendly}
	if job.Content.AI != nil {
		settings = *job.Content.AI
	}

	req := models.GenerationRequest{
		SourceText:         post.Text,
		Context:            replyContext(account),
		Tone:               settings.Tone,
		MaxLength:          models.MaxReplyLength,
		IncludeHashtags:    settings.IncludeHashtags,
		IncludeEmojis:      settings.IncludeEmojis,
		CustomInstructions: settings.CustomInstructions,
		Model:              settings.Model,
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	text, err := g.provider.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrGeneration, g.provider.Name(), err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s returned empty text", ErrGeneration, g.provider.Name())
	}
	return TruncateReply(text, models.MaxReplyLength), nil
}

func replyContext(account *models.Account) string {
	if account == nil || account.Handle == "" {
		return ""
	}
	return "Replying as @" + strings.TrimPrefix(account.Handle, "@")
}

// TruncateReply bounds text to limit characters. Longer text is cut at the
// last whitespace that leaves room for an ellipsis, unless that whitespace
// falls before 80% of the limit, in which case the cut is hard.
func TruncateReply(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit <= len(ellipsis) {
		return string(runes[:limit])
	}

	head := runes[:limit-len(ellipsis)]
	threshold := int(float64(limit) * wordCutRatio)
	for i := len(head) - 1; i >= threshold; i-- {
		if unicode.IsSpace(head[i]) {
			head = head[:i]
			break
		}
	}
	return strings.TrimRightFunc(string(head), unicode.IsSpace) + ellipsis
}
