package engine

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/autoreply/internal/store"
	"github.com/kiranshivaraju/autoreply/pkg/models"
)

// Record persists one attempt. A successful attempt also advances the job's
// reply counter in the same store transaction.
func Record(ctx context.Context, st store.Store, attempt *models.ReplyAttempt) error {
	if err := st.RecordAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("record attempt for post %s: %w", attempt.TargetPostID, err)
	}
	return nil
}
