package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kiranshivaraju/autoreply/pkg/models"
)

// Sentinel errors for platform client failures.
var (
	// ErrUnauthorized means the account's credentials were rejected. It is
	// fatal for every remaining call made with the same credentials.
	ErrUnauthorized  = errors.New("platform rejected credentials")
	ErrRateLimited   = errors.New("platform rate limit exceeded")
	ErrRequestFailed = errors.New("platform request failed")
	ErrUserNotFound  = errors.New("platform user not found")
	ErrUnreachable   = errors.New("platform unreachable")
	ErrTimeout       = errors.New("platform request timeout")
)

// IsCredentialError reports whether err means the credentials are unusable,
// as opposed to a transient or per-request failure.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// Client is the interface for reading from and writing to the social platform
// on behalf of one account.
type Client interface {
	SearchRecent(ctx context.Context, query string, limit int) ([]models.Post, error)
	RecentByAuthor(ctx context.Context, handle string, limit int) ([]models.Post, error)
	GetPost(ctx context.Context, id string) (models.Post, error)
	PublishReply(ctx context.Context, parentID, text string) (string, error)
}

// Factory builds a Client bound to one account's credentials.
type Factory func(creds models.Credentials) Client

// NewFactory returns a Factory producing HTTP clients that share one
// underlying http.Client.
func NewFactory(baseURL string, timeout time.Duration) Factory {
	hc := &http.Client{Timeout: timeout}
	return func(creds models.Credentials) Client {
		return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), token: creds.AccessToken, client: hc}
	}
}

// HTTPClient implements Client against a v2-style REST API with bearer auth.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a platform client for one access token.
func NewHTTPClient(baseURL, accessToken string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   accessToken,
		client:  &http.Client{Timeout: timeout},
	}
}

const (
	searchMinResults   = 10
	timelineMinResults = 5
	maxResults         = 100
	postFields         = "author_id,created_at"
)

func (c *HTTPClient) SearchRecent(ctx context.Context, query string, limit int) ([]models.Post, error) {
	params := url.Values{
		"query":        {query},
		"max_results":  {strconv.Itoa(clamp(limit, searchMinResults, maxResults))},
		"tweet.fields": {postFields},
	}
	u := fmt.Sprintf("%s/2/tweets/search/recent?%s", c.baseURL, params.Encode())

	var resp postsResponse
	if err := c.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return resp.posts(limit), nil
}

func (c *HTTPClient) RecentByAuthor(ctx context.Context, handle string, limit int) ([]models.Post, error) {
	userID, err := c.lookupUser(ctx, handle)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"max_results":  {strconv.Itoa(clamp(limit, timelineMinResults, maxResults))},
		"tweet.fields": {postFields},
		"exclude":      {"retweets,replies"},
	}
	u := fmt.Sprintf("%s/2/users/%s/tweets?%s", c.baseURL, url.PathEscape(userID), params.Encode())

	var resp postsResponse
	if err := c.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("timeline of @%s: %w", handle, err)
	}
	return resp.posts(limit), nil
}

func (c *HTTPClient) GetPost(ctx context.Context, id string) (models.Post, error) {
	params := url.Values{"tweet.fields": {postFields}}
	u := fmt.Sprintf("%s/2/tweets/%s?%s", c.baseURL, url.PathEscape(id), params.Encode())

	var resp postResponse
	if err := c.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
		return models.Post{}, fmt.Errorf("get post %s: %w", id, err)
	}
	if resp.Data.ID == "" {
		return models.Post{}, fmt.Errorf("get post %s: %w: response carried no post", id, ErrRequestFailed)
	}
	p := resp.Data
	return models.Post{ID: p.ID, Text: p.Text, AuthorID: p.AuthorID, CreatedAt: p.CreatedAt}, nil
}

func (c *HTTPClient) PublishReply(ctx context.Context, parentID, text string) (string, error) {
	body := createPostRequest{Text: text}
	body.Reply.InReplyToPostID = parentID

	var resp createPostResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/2/tweets", body, &resp); err != nil {
		return "", fmt.Errorf("reply to %s: %w", parentID, err)
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("reply to %s: %w: response carried no post id", parentID, ErrRequestFailed)
	}
	return resp.Data.ID, nil
}

func (c *HTTPClient) lookupUser(ctx context.Context, handle string) (string, error) {
	u := fmt.Sprintf("%s/2/users/by/username/%s", c.baseURL, url.PathEscape(strings.TrimPrefix(handle, "@")))

	var resp userResponse
	if err := c.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
		return "", fmt.Errorf("lookup @%s: %w", handle, err)
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("lookup @%s: %w", handle, ErrUserNotFound)
	}
	return resp.Data.ID, nil
}

func (c *HTTPClient) do(ctx context.Context, method, u string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding platform response: %w", err)
	}
	return nil
}

// statusError maps non-2xx responses to sentinel errors.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(detail))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d %s", ErrUnauthorized, resp.StatusCode, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	default:
		return fmt.Errorf("%w: status %d %s", ErrRequestFailed, resp.StatusCode, msg)
	}
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// --- wire types ---

type apiPost struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

type postsResponse struct {
	Data []apiPost `json:"data"`
}

// posts converts the payload, keeping at most limit items in response order.
func (r postsResponse) posts(limit int) []models.Post {
	out := make([]models.Post, 0, len(r.Data))
	for _, p := range r.Data {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, models.Post{ID: p.ID, Text: p.Text, AuthorID: p.AuthorID, CreatedAt: p.CreatedAt})
	}
	return out
}

type postResponse struct {
	Data apiPost `json:"data"`
}

type userResponse struct {
	Data struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"data"`
}

type createPostRequest struct {
	Text  string `json:"text"`
	Reply struct {
		InReplyToPostID string `json:"in_reply_to_tweet_id"`
	} `json:"reply"`
}

type createPostResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
