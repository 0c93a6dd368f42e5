package provider

import (
	"fmt"
	"strings"

	"github.com/kiranshivaraju/autoreply/pkg/models"
)

var toneGuides = map[models.Tone]string{
	models.ToneProfessional: "professional and courteous",
	models.ToneCasual:       "casual and relaxed",
	models.ToneFriendly:     "warm and friendly",
	models.ToneHumorous:     "light and humorous without being rude",
	models.ToneEnthusiastic: "upbeat and enthusiastic",
	models.ToneInformative:  "informative, adding a useful fact or angle",
}

// BuildPrompt renders a generation request into a system instruction and a
// user message.
func BuildPrompt(req models.GenerationRequest) (system, user string) {
	maxLen := req.MaxLength
	if maxLen <= 0 || maxLen > models.MaxReplyLength {
		maxLen = models.MaxReplyLength
	}
	tone := toneGuides[req.Tone]
	if tone == "" {
		tone = toneGuides[models.ToneFriendly]
	}

	var b strings.Builder
	b.WriteString("You write replies to social media posts.\n")
	if req.Context != "" {
		fmt.Fprintf(&b, "%s.\n", strings.TrimSuffix(req.Context, "."))
	}
	fmt.Fprintf(&b, "Tone: %s.\n", tone)
	fmt.Fprintf(&b, "The reply must be at most %d characters.\n", maxLen)
	if req.IncludeHashtags {
		b.WriteString("Include one or two relevant hashtags.\n")
	} else {
		b.WriteString("Do not use hashtags.\n")
	}
	if req.IncludeEmojis {
		b.WriteString("You may use a fitting emoji.\n")
	} else {
		b.WriteString("Do not use emojis.\n")
	}
	if ci := strings.TrimSpace(req.CustomInstructions); ci != "" {
		fmt.Fprintf(&b, "Additional instructions: %s\n", ci)
	}
	b.WriteString("Respond with the reply text only, no quotes and no preamble.")

	if src := strings.TrimSpace(req.SourceText); src != "" {
		user = "Post to reply to:\n" + src
	} else {
		user = "The post's text is unavailable. Write a short, general reply that fits any post."
	}
	return b.String(), user
}

// CleanOutput trims whitespace and one pair of wrapping quotes that models
// often add around the reply.
func CleanOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
