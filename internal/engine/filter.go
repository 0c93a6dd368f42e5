package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/autoreply/internal/store"
	"github.com/kiranshivaraju/autoreply/pkg/models"
)

// Deduplicate drops candidates the job already has an attempt for, successful
// or not. The attempted set is read from the store on every call.
func Deduplicate(ctx context.Context, st store.Store, jobID uuid.UUID, candidates []models.Post) ([]models.Post, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	seen, err := st.AttemptedTargetIDs(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load attempted targets: %w", err)
	}

	fresh := make([]models.Post, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh, nil
}

// Gate keeps at most remaining candidates, in order.
func Gate(candidates []models.Post, remaining int) []models.Post {
	if remaining <= 0 {
		return nil
	}
	if len(candidates) > remaining {
		return candidates[:remaining]
	}
	return candidates
}
