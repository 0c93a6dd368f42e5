package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/autoreply/pkg/models"
)

// --- helpers ---

func platformServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(handler)
}

func newTestClient(t *testing.T, baseURL string) *HTTPClient {
	t.Helper()
	return NewHTTPClient(baseURL, "test-token", 5*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// --- SearchRecent ---

func TestSearchRecent_ValidResponse(t *testing.T) {
	ts := platformServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets/search/recent" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected auth header: %q", got)
		}
		q := r.URL.Query()
		if q.Get("query") != "ai OR startup" {
			t.Errorf("unexpected query: %s", q.Get("query"))
		}
		if q.Get("max_results") != "20" {
			t.Errorf("unexpected max_results: %s", q.Get("max_results"))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]string{
				{"id": "1", "text": "building an ai startup", "author_id": "u1", "created_at": "2024-02-17T10:00:00Z"},
				{"id": "2", "text": "startup life", "author_id": "u2", "created_at": "2024-02-17T10:05:00Z"},
			},
		})
	})
	defer ts.Close()

	posts, err := newTestClient(t, ts.URL).SearchRecent(context.Background(), "ai OR startup", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].ID != "1" || posts[0].AuthorID != "u1" {
		t.Errorf("unexpected first post: %+v", posts[0])
	}
	want := time.Date(2024, 2, 17, 10, 0, 0, 0, time.UTC)
	if !posts[0].CreatedAt.Equal(want) {
		t.Errorf("expected created_at %v, got %v", want, posts[0].CreatedAt)
	}
}

func TestSearchRecent_ClampsAndTrims(t *testing.T) {
	ts := platformServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("max_results"); got != "10" {
			t.Errorf("expected max_results clamped to 10, got %s", got)
		}
		data := make([]map[string]string, 0, 10)
		for _, id := range []string{"1", "2", "3", "4", "5", "6"} {
			data = append(data, map[string]string{"id": id, "text": "t"})
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": data})
	})
	defer ts.Close()

	posts, err := newTestClient(t, ts.URL).SearchRecent(context.Background(), "go", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 4 {
		t.Errorf("expected 4 posts after trim, got %d", len(posts))
	}
}

func TestSearchRecent_EmptyResult(t *testing.T) {
	ts := platformServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"meta": map[string]int{"result_count": 0}})
	})
	defer ts.Close()

	posts, err := newTestClient(t, ts.URL).SearchRecent(context.Background(), "nothing", 10)
	if err != nil {
		t.Fatalf("expected no error for empty result, got: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("expected empty slice, got %d posts", len(posts))
	}
}

// --- RecentByAuthor ---

func TestRecentByAuthor_LooksUpUserThenTimeline(t *testing.T) {
	var calls []string
	ts := platformServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		switch r.URL.Path {
		case "/2/users/by/username/alice":
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"id": "42", "username": "alice"}})
		case "/2/users/42/tweets":
			if got := r.URL.Query().Get("max_results"); got != "5" {
				t.Errorf("expected max_results 5, got %s", got)
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"data": []map[string]string{{"id": "900", "text": "hello world", "author_id": "42"}},
			})
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	defer ts.Close()

	posts, err := newTestClient(t, ts.URL).RecentByAuthor(context.Background(), "@alice", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "900" {
		t.Errorf("unexpected posts: %+v", posts)
	}
	if len(calls) != 2 {
		t.Errorf("expected 2 calls, got %v", calls)
	}
}

func TestRecentByAuthor_UnknownUser(t *testing.T) {
	ts := platformServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"errors": []map[string]string{{"title": "Not Found Error"}},
		})
	})
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).RecentByAuthor(context.Background(), "ghost", 5)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got: %v", err)
	}
}

// --- PublishReply ---

func TestGetPost_ValidResponse(t *testing.T) {
	ts := platformServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets/42" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("tweet.fields") != "author_id,created_at" {
			t.Errorf("unexpected fields: %s", r.URL.Query().Get("tweet.fields"))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]string{"id": "42", "text": "launch day", "author_id": "u7", "created_at": "2024-02-17T10:00:00Z"},
		})
	})
	defer ts.Close()

	post, err := newTestClient(t, ts.URL).GetPost(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post.ID != "42" || post.Text != "launch day" || post.AuthorID != "u7" {
		t.Errorf("unexpected post: %+v", post)
	}
	if post.CreatedAt.IsZero() {
		t.Error("expected created_at to be parsed")
	}
}

func TestGetPost_NotFound(t *testing.T) {
	ts := platformServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"title": "Not Found Error"})
	})
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).GetPost(context.Background(), "404")
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("expected ErrRequestFailed, got %v", err)
	}
}

func TestPublishReply_Success(t *testing.T) {
	ts := platformServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/2/tweets" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		var body createPostRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Text != "Nice work!" || body.Reply.InReplyToPostID != "123" {
			t.Errorf("unexpected body: %+v", body)
		}
		writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]string{"id": "456", "text": body.Text}})
	})
	defer ts.Close()

	id, err := newTestClient(t, ts.URL).PublishReply(context.Background(), "123", "Nice work!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "456" {
		t.Errorf("expected reply id 456, got %s", id)
	}
}

func TestPublishReply_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		want       error
		credential bool
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized, true},
		{"forbidden", http.StatusForbidden, ErrUnauthorized, true},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited, false},
		{"bad request", http.StatusBadRequest, ErrRequestFailed, false},
		{"server error", http.StatusServiceUnavailable, ErrRequestFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := platformServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"title":"error"}`))
			})
			defer ts.Close()

			_, err := newTestClient(t, ts.URL).PublishReply(context.Background(), "1", "hi")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got: %v", tt.want, err)
			}
			if IsCredentialError(err) != tt.credential {
				t.Errorf("IsCredentialError = %v, want %v", IsCredentialError(err), tt.credential)
			}
		})
	}
}

func TestPublishReply_MissingID(t *testing.T) {
	ts := platformServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]string{}})
	})
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).PublishReply(context.Background(), "1", "hi")
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("expected ErrRequestFailed, got: %v", err)
	}
}

// --- transport errors ---

func TestConnectionRefused(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	_, err := c.SearchRecent(context.Background(), "go", 10)
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("expected ErrUnreachable, got: %v", err)
	}
	if IsCredentialError(err) {
		t.Error("transport errors must not be credential errors")
	}
}

func TestTimeout(t *testing.T) {
	ts := platformServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	})
	defer ts.Close()

	c := NewHTTPClient(ts.URL, "t", 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.PublishReply(ctx, "1", "hi")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got: %v", err)
	}
}

func TestFactory_BindsCredentials(t *testing.T) {
	ts := platformServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer account-2" {
			t.Errorf("unexpected auth header: %q", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
	})
	defer ts.Close()

	factory := NewFactory(ts.URL+"/", 5*time.Second)
	c := factory(models.Credentials{AccessToken: "account-2"})
	if _, err := c.SearchRecent(context.Background(), "go", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
