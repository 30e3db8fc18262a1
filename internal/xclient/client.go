package xclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"replyforge/internal/metrics"
	"replyforge/internal/model"
)

// SearchOptions narrows a recent-search call.
type SearchOptions struct {
	MaxResults      int
	Language        string
	ExcludeRetweets bool
	ExcludeReplies  bool
}

// Client defines the platform methods the pipeline consumes.
type Client interface {
	SearchRecent(ctx context.Context, query string, opts SearchOptions) ([]model.Tweet, error)
	UsersByIDs(ctx context.Context, ids []string) ([]model.Author, error)
	PostReply(ctx context.Context, cred model.Credential, postID, text string) (model.PostedReply, error)
}

// HTTPClient talks to the X API v2: bearer auth for reads, OAuth1.0a user
// context for the reply write.
type HTTPClient struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

func NewHTTPClient(bearerToken string) *HTTPClient {
	return &HTTPClient{
		baseURL:     "https://api.twitter.com/2",
		bearerToken: bearerToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newDefaultLimiter(),
		maxAttempts: getEnvInt("X_API_MAX_ATTEMPTS", 3),
		baseBackoff: time.Duration(getEnvInt("X_API_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

func (c *HTTPClient) auth(req *http.Request) {
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	req.Header.Set("Accept", "application/json")
}

// SearchRecent searches recent tweets for one profile-derived query.
func (c *HTTPClient) SearchRecent(ctx context.Context, query string, opts SearchOptions) ([]model.Tweet, error) {
	q := query
	if opts.ExcludeRetweets {
		q += " -is:retweet"
	}
	if opts.ExcludeReplies {
		q += " -is:reply"
	}
	if opts.Language != "" {
		q += " lang:" + opts.Language
	}
	u := fmt.Sprintf("%s/tweets/search/recent?max_results=%d&tweet.fields=created_at,public_metrics,lang,author_id,conversation_id&query=%s",
		c.baseURL, clamp(opts.MaxResults, 10, 100), url.QueryEscape(q))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req, "search")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusError(resp.StatusCode, "search"); err != nil {
		return nil, err
	}
	var raw struct {
		Data []struct {
			ID             string    `json:"id"`
			Text           string    `json:"text"`
			CreatedAt      time.Time `json:"created_at"`
			Lang           string    `json:"lang"`
			AuthorID       string    `json:"author_id"`
			ConversationID string    `json:"conversation_id"`
			PublicMetrics  struct {
				LikeCount    int `json:"like_count"`
				ReplyCount   int `json:"reply_count"`
				RetweetCount int `json:"retweet_count"`
				QuoteCount   int `json:"quote_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]model.Tweet, 0, len(raw.Data))
	for _, d := range raw.Data {
		out = append(out, model.Tweet{
			ID:             d.ID,
			AuthorID:       d.AuthorID,
			ConversationID: d.ConversationID,
			Text:           d.Text,
			CreatedAt:      d.CreatedAt,
			Language:       d.Lang,
			LikeCount:      d.PublicMetrics.LikeCount,
			ReplyCount:     d.PublicMetrics.ReplyCount,
			RetweetCount:   d.PublicMetrics.RetweetCount,
			QuoteCount:     d.PublicMetrics.QuoteCount,
		})
	}
	return out, nil
}

// UsersByIDs fetches author objects for given ids in one request.
func (c *HTTPClient) UsersByIDs(ctx context.Context, ids []string) ([]model.Author, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	// API allows up to 100 IDs per request
	if len(ids) > 100 {
		ids = ids[:100]
	}
	joined := url.QueryEscape(strings.Join(ids, ","))
	u := fmt.Sprintf("%s/users?ids=%s&user.fields=public_metrics,created_at,verified,description", c.baseURL, joined)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req, "users")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusError(resp.StatusCode, "users"); err != nil {
		return nil, err
	}
	var raw struct {
		Data []struct {
			ID            string    `json:"id"`
			Name          string    `json:"name"`
			Username      string    `json:"username"`
			CreatedAt     time.Time `json:"created_at"`
			Verified      bool      `json:"verified"`
			Description   string    `json:"description"`
			PublicMetrics struct {
				FollowersCount int `json:"followers_count"`
				FollowingCount int `json:"following_count"`
				TweetCount     int `json:"tweet_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]model.Author, 0, len(raw.Data))
	for _, d := range raw.Data {
		out = append(out, model.Author{
			ID:             d.ID,
			Username:       d.Username,
			Name:           d.Name,
			Bio:            d.Description,
			CreatedAt:      d.CreatedAt,
			Verified:       d.Verified,
			FollowersCount: d.PublicMetrics.FollowersCount,
			FollowingCount: d.PublicMetrics.FollowingCount,
			TweetCount:     d.PublicMetrics.TweetCount,
		})
	}
	return out, nil
}

// PostReply posts a reply under postID, signed with the passed credential.
// The credential comes in per call so the caller can reload it immediately
// before the write.
func (c *HTTPClient) PostReply(ctx context.Context, cred model.Credential, postID, text string) (model.PostedReply, error) {
	var out model.PostedReply
	body, err := json.Marshal(map[string]any{
		"text":  text,
		"reply": map[string]string{"in_reply_to_tweet_id": postID},
	})
	if err != nil {
		return out, err
	}
	u := c.baseURL + "/tweets"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(string(body)))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	oauth1Sign(req, cred, nil)
	if err := c.limiter.Wait(ctx); err != nil {
		return out, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if strings.Contains(strings.ToLower(string(raw)), "edited") {
			return out, ErrPostEdited
		}
		if err := statusError(resp.StatusCode, "reply"); err != nil {
			return out, err
		}
		return out, fmt.Errorf("reply status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return out, err
	}
	out.ID = created.Data.ID
	out.URL = "https://x.com/i/status/" + created.Data.ID
	return out, nil
}

// statusError maps platform status codes to the run's fatal signals.
func statusError(code int, endpoint string) error {
	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", endpoint, ErrRateLimited)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%s: %w", endpoint, ErrUnauthorized)
	case code >= 400:
		return fmt.Errorf("%s status %d", endpoint, code)
	}
	return nil
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// doWithRetry retries 429/5xx with backoff and jitter, honoring Retry-After.
// The final 429 is returned to the caller so it maps to ErrRateLimited.
func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request, endpoint string) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		r := req.Clone(ctx)
		if req.GetBody != nil {
			if b, berr := req.GetBody(); berr == nil {
				r.Body = b
			}
		}
		resp, err := c.httpClient.Do(r)
		if err == nil {
			if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
				if attempt == c.maxAttempts {
					return resp, nil
				}
				metrics.IncAPIRetry(endpoint)
				ra := resp.Header.Get("Retry-After")
				_ = resp.Body.Close()
				wait := backoff
				if ra != "" {
					if secs, err := strconv.Atoi(ra); err == nil {
						wait = time.Duration(secs) * time.Second
					} else if t, err := http.ParseTime(ra); err == nil {
						if d := time.Until(t); d > 0 {
							wait = d
						}
					}
				}
				// jitter +/-20%
				jitter := time.Duration(float64(wait) * 0.2)
				if jitter > 0 {
					wait = wait - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter))
				}
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
				continue
			}
			return resp, nil
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		metrics.IncAPIRetry(endpoint)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %v", c.maxAttempts, lastErr)
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}
