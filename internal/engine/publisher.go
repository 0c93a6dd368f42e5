package engine

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/autoreply/internal/platform"
)

// Publish posts text as a reply to postID. Credential failures wrap
// ErrCredentialsRejected; everything else is returned as-is and treated as
// candidate-local by the runner.
func Publish(ctx context.Context, client platform.Client, postID, text string) (string, error) {
	replyID, err := client.PublishReply(ctx, postID, text)
	if err != nil {
		if platform.IsCredentialError(err) {
			return "", fmt.Errorf("%w: %w", ErrCredentialsRejected, err)
		}
		return "", err
	}
	return replyID, nil
}
