package collect

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"replyforge/internal/config"
	"replyforge/internal/filter"
	"replyforge/internal/logging"
	"replyforge/internal/metrics"
	"replyforge/internal/model"
	"replyforge/internal/xclient"
)

// Result aggregates one collection pass.
type Result struct {
	Accepted        []model.Candidate
	QueriesExecuted int
	Found           int
	Errors          []string
	// Aborted is set when a rate-limit or auth-invalid response stopped the
	// remaining queries. Candidates collected before the abort still flow on.
	Aborted bool
}

// Collector executes profile-derived searches and streams every result
// through the filter pipeline immediately, bounding memory and letting
// early queries fill the accepted pool first.
type Collector struct {
	Client xclient.Client
	Filter *filter.Pipeline
	Cfg    config.AgentConfig

	// Sleep is injectable for tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

// Collect runs the queries priority-sorted, capped at MaxQueriesPerRun.
func (c *Collector) Collect(ctx context.Context, accountID string, queries []model.SearchQuery) Result {
	var res Result
	sorted := append([]model.SearchQuery(nil), queries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })
	if c.Cfg.MaxQueriesPerRun > 0 && len(sorted) > c.Cfg.MaxQueriesPerRun {
		sorted = sorted[:c.Cfg.MaxQueriesPerRun]
	}
	for i, q := range sorted {
		if i > 0 {
			c.pause(c.Cfg.QueryDelay)
		}
		tweets, err := c.search(ctx, q.Text)
		if err != nil {
			if errors.Is(err, xclient.ErrRateLimited) || errors.Is(err, xclient.ErrUnauthorized) {
				// Do not burn the remaining budget retrying a dead credential
				// or an exhausted window.
				res.Errors = append(res.Errors, fmt.Sprintf("search aborted at query %q: %v", q.Text, err))
				res.Aborted = true
				return res
			}
			res.Errors = append(res.Errors, fmt.Sprintf("search %q: %v", q.Text, err))
			continue
		}
		res.QueriesExecuted++
		if len(tweets) == 0 {
			simplified := SimplifyQuery(q.Text)
			if simplified != "" && simplified != q.Text {
				logging.Debug("query_simplified", map[string]any{"from": q.Text, "to": simplified})
				tweets, err = c.search(ctx, simplified)
				if err != nil {
					if errors.Is(err, xclient.ErrRateLimited) || errors.Is(err, xclient.ErrUnauthorized) {
						res.Errors = append(res.Errors, fmt.Sprintf("search aborted at query %q: %v", simplified, err))
						res.Aborted = true
						return res
					}
					res.Errors = append(res.Errors, fmt.Sprintf("search %q: %v", simplified, err))
					continue
				}
			}
		}
		if len(tweets) == 0 {
			continue
		}
		res.Found += len(tweets)
		metrics.CandidatesFound.Add(float64(len(tweets)))
		authors := c.lookupAuthors(ctx, tweets)
		for _, t := range tweets {
			author, ok := authors[t.AuthorID]
			var aptr *model.Author
			if ok {
				aptr = &author
			}
			pass, _, err := c.Filter.Check(ctx, accountID, t, aptr)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("filter %s: %v", t.ID, err))
				continue
			}
			if !pass {
				continue
			}
			res.Accepted = append(res.Accepted, model.Candidate{
				Tweet:       t,
				Author:      author,
				SourceQuery: q.Text,
			})
		}
	}
	return res
}

func (c *Collector) search(ctx context.Context, query string) ([]model.Tweet, error) {
	return c.Client.SearchRecent(ctx, query, xclient.SearchOptions{
		MaxResults:      c.Cfg.MaxTweetsPerQuery,
		Language:        c.Cfg.Language,
		ExcludeRetweets: true,
		ExcludeReplies:  true,
	})
}

// lookupAuthors is best effort: a failed batch leaves those candidates with
// no author record, and the filter rejects them for that.
func (c *Collector) lookupAuthors(ctx context.Context, tweets []model.Tweet) map[string]model.Author {
	seen := make(map[string]struct{})
	var ids []string
	for _, t := range tweets {
		if t.AuthorID == "" {
			continue
		}
		if _, ok := seen[t.AuthorID]; ok {
			continue
		}
		seen[t.AuthorID] = struct{}{}
		ids = append(ids, t.AuthorID)
	}
	out := make(map[string]model.Author, len(ids))
	for i := 0; i < len(ids); i += 100 {
		end := i + 100
		if end > len(ids) {
			end = len(ids)
		}
		authors, err := c.Client.UsersByIDs(ctx, ids[i:end])
		if err != nil {
			logging.Debug("author_lookup_failed", map[string]any{"error": err.Error()})
			continue
		}
		for _, a := range authors {
			out[a.ID] = a
		}
	}
	return out
}

func (c *Collector) pause(d time.Duration) {
	if d <= 0 {
		return
	}
	if c.Sleep != nil {
		c.Sleep(d)
		return
	}
	time.Sleep(d)
}

// SimplifyQuery reduces a query to its two longest words, dropping search
// operators. Used as a one-shot fallback when the full query finds nothing.
func SimplifyQuery(q string) string {
	words := strings.Fields(q)
	var plain []string
	for _, w := range words {
		w = strings.Trim(w, `"()`)
		if w == "" || strings.Contains(w, ":") || strings.HasPrefix(w, "-") || strings.HasPrefix(w, "#") {
			continue
		}
		plain = append(plain, w)
	}
	if len(plain) <= 2 {
		return strings.Join(plain, " ")
	}
	sort.SliceStable(plain, func(i, j int) bool { return len(plain[i]) > len(plain[j]) })
	top := plain[:2]
	// Keep original word order
	for _, w := range strings.Fields(q) {
		w = strings.Trim(w, `"()`)
		if w == top[0] {
			return top[0] + " " + top[1]
		}
		if w == top[1] {
			return top[1] + " " + top[0]
		}
	}
	return top[0] + " " + top[1]
}
