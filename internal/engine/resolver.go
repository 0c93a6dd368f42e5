package engine

import (
	"context"
	"log/slog"

	"github.com/kiranshivaraju/autoreply/internal/events"
	"github.com/kiranshivaraju/autoreply/internal/platform"
	"github.com/kiranshivaraju/autoreply/pkg/models"
	"github.com/kiranshivaraju/autoreply/pkg/query"
)

// keywordOverfetch widens keyword searches so dedup removal still leaves a
// useful number of candidates.
const keywordOverfetch = 2

// Resolver turns a job's target into an ordered candidate list.
type Resolver struct {
	sink    events.Sink
	limit   int
	queries query.QueryBuilder
}

// NewResolver creates a Resolver fetching up to limit posts per author and
// keywordOverfetch*limit posts per keyword search. A nil sink discards events.
func NewResolver(sink events.Sink, limit int) *Resolver {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Resolver{sink: sink, limit: limit}
}

// Resolve never fails as a whole: a source that cannot be read is logged and
// contributes no candidates. Duplicate post ids keep their first position.
func (r *Resolver) Resolve(ctx context.Context, client platform.Client, job *models.ReplyJob) []models.Post {
	var found []models.Post

	switch job.Target.Kind() {
	case models.TargetPost:
		id, _ := job.Target.PostID()
		found = []models.Post{r.lookupPost(ctx, client, job, id)}

	case models.TargetAuthor, models.TargetAuthors:
		for _, handle := range job.Target.Handles() {
			posts, err := client.RecentByAuthor(ctx, handle, r.limit)
			if err != nil {
				slog.Warn("resolve author failed", "job_id", job.ID, "handle", handle, "error", err)
				continue
			}
			found = append(found, posts...)
		}

	case models.TargetKeywords:
		q := r.queries.BuildKeywordQuery(job.Target.Keywords())
		posts, err := client.SearchRecent(ctx, q, keywordOverfetch*r.limit)
		if err != nil {
			slog.Warn("resolve keywords failed", "job_id", job.ID, "query", q, "error", err)
			break
		}
		found = posts

	default:
		slog.Warn("job has no usable target", "job_id", job.ID, "target", job.Target.String())
	}

	found = uniquePosts(found)
	for _, post := range found {
		r.observe(ctx, job, post)
	}
	return found
}

// lookupPost fetches the text of a post target for AI replies. Static replies
// need only the id, and a failed fetch falls back to it.
func (r *Resolver) lookupPost(ctx context.Context, client platform.Client, job *models.ReplyJob, id string) models.Post {
	if !job.Content.UseAI {
		return models.Post{ID: id}
	}
	post, err := client.GetPost(ctx, id)
	if err != nil {
		slog.Warn("fetch target post failed", "job_id", job.ID, "post_id", id, "error", err)
		return models.Post{ID: id}
	}
	post.ID = id
	return post
}

func (r *Resolver) observe(ctx context.Context, job *models.ReplyJob, post models.Post) {
	ev := events.NewCandidateObserved(job.ID, job.Target.Kind(), post)
	if err := r.sink.CandidateObserved(ctx, ev); err != nil {
		slog.Warn("candidate event not delivered", "job_id", job.ID, "post_id", post.ID, "error", err)
	}
}

func uniquePosts(posts []models.Post) []models.Post {
	seen := make(map[string]bool, len(posts))
	out := posts[:0]
	for _, p := range posts {
		if p.ID == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}
