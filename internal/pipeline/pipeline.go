package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"replyforge/internal/collect"
	"replyforge/internal/config"
	"replyforge/internal/engage"
	"replyforge/internal/filter"
	"replyforge/internal/llm"
	"replyforge/internal/logging"
	"replyforge/internal/metrics"
	"replyforge/internal/model"
	"replyforge/internal/profile"
	"replyforge/internal/reply"
	"replyforge/internal/score"
	"replyforge/internal/store"
	"replyforge/internal/xclient"
)

// Deps are the collaborators one run consumes. All external; the pipeline
// owns no long-lived state of its own.
type Deps struct {
	Store  *store.Store
	Client xclient.Client
	LLM    llm.Completer
	Cfg    config.Config

	// Sleep is injectable for tests; nil means time.Sleep.
	Sleep func(time.Duration)
	// Rand seeds formula selection; nil means time-seeded.
	Rand *rand.Rand
}

// Run executes one full pipeline invocation: profile → collect → filter →
// score → compose → execute. Stages run sequentially: the search and post
// APIs are rate-limited per account and ordering governs budget allocation.
func Run(ctx context.Context, deps Deps, accountID string, overrides *config.AgentConfig) model.RunResult {
	agent := deps.Cfg.Agent
	if overrides != nil {
		agent = *overrides
	}
	res := model.RunResult{
		RunID:     uuid.NewString(),
		AccountID: accountID,
		StartedAt: time.Now().UTC(),
	}
	metrics.PipelineRuns.Inc()
	start := time.Now()
	defer func() {
		res.FinishedAt = time.Now().UTC()
		metrics.ObserveRunDuration(start)
	}()

	// Fatal-for-run checks first: missing account, unusable credential.
	if _, err := deps.Store.Account(ctx, accountID); err != nil {
		return fatal(res, fmt.Errorf("account %s: %w", accountID, err))
	}
	if !agent.DryRun {
		if _, err := deps.Store.ActiveCredential(ctx, accountID, deps.Cfg.Account.Platform); err != nil {
			return fatal(res, fmt.Errorf("credential: %w", err))
		}
	}

	analyzer := &profile.Analyzer{Provider: storeProvider{deps.Store}, LLM: deps.LLM}
	prof, err := analyzer.Build(ctx, accountID, profile.Options{
		IncludeSamples: true,
		IncludeHistory: true,
		HistoryN:       5,
	})
	if err != nil {
		return fatal(res, fmt.Errorf("profile analysis: %w", err))
	}
	if outcomes, oerr := deps.Store.QueryOutcomes(ctx, accountID); oerr == nil && len(outcomes) > 0 {
		po := make([]profile.QueryOutcome, len(outcomes))
		for i, o := range outcomes {
			po[i] = profile.QueryOutcome{Query: o.Query, Sends: o.Sends, Engaged: o.Engaged}
		}
		prof = analyzer.Refine(ctx, prof, po)
	}
	res.Profile = prof

	queries := prof.SearchQueries
	switch {
	case agent.TestQueryOverride != "":
		queries = []model.SearchQuery{{Text: agent.TestQueryOverride, Intent: "override", Priority: 10}}
	case agent.MaxQueriesPerRun > 0 && len(queries) < agent.MaxQueriesPerRun && len(prof.PainPoints) > 0:
		// Sparse profile: top up the query pool from the most urgent pain
		// point. Expanded queries run after the profile's own.
		for _, text := range analyzer.ExpandQueries(ctx, prof, topPainPoint(prof)) {
			queries = append(queries, model.SearchQuery{Text: text, Intent: "expanded", Priority: 3})
		}
	}

	collector := &collect.Collector{
		Client: deps.Client,
		Filter: &filter.Pipeline{Store: deps.Store, Cfg: agent},
		Cfg:    agent,
		Sleep:  deps.Sleep,
	}
	colRes := collector.Collect(ctx, accountID, queries)
	res.QueriesExecuted = colRes.QueriesExecuted
	res.CandidatesFound = colRes.Found
	res.Errors = append(res.Errors, colRes.Errors...)

	scorer := &score.Scorer{LLM: deps.LLM}
	var qualified []model.Candidate
	for _, cand := range colRes.Accepted {
		sr, err := scorer.Score(ctx, prof, cand)
		res.CandidatesEvaluated++
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("score %s: %v", cand.Tweet.ID, err))
		}
		cand.RelevanceScore = sr.RelevanceScore
		cand.EngagementPotential = sr.EngagementPotential
		cand.Reasons = sr.Reasons
		if cand.RelevanceScore < agent.MinRelevanceScore {
			logging.Debug("candidate_below_threshold", map[string]any{
				"tweet_id": cand.Tweet.ID, "relevance": cand.RelevanceScore,
			})
			continue
		}
		qualified = append(qualified, cand)
	}
	selected := score.Rank(qualified, agent.MaxRepliesPerRun)

	composer := reply.NewComposer(deps.LLM)
	if deps.Rand != nil {
		composer.Rand = deps.Rand
	}
	executor := engage.NewExecutor(deps.Store, deps.Client, agent, deps.Cfg.Account.Platform)

replies:
	for i, cand := range selected {
		if i > 0 {
			pause(deps, agent.PostDelay)
		}
		draft, err := composer.Compose(ctx, prof, cand)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("compose %s: %v", cand.Tweet.ID, err))
			continue
		}
		res.RepliesAttempted++
		rec, err := executor.Execute(ctx, accountID, cand, draft)
		switch {
		case err == nil:
			res.RepliesSuccessful++
			res.Engagements = append(res.Engagements, rec)
		case errors.Is(err, xclient.ErrPostEdited):
			// Soft skip; not surfaced.
		case errors.Is(err, engage.ErrBudgetExhausted), errors.Is(err, engage.ErrBreakerOpen):
			res.Errors = append(res.Errors, fmt.Sprintf("stopping replies: %v", err))
			break replies
		default:
			res.Errors = append(res.Errors, fmt.Sprintf("engage %s: %v", cand.Tweet.ID, err))
		}
	}

	res.Success = true
	logging.Info("pipeline_run_complete", map[string]any{
		"run_id":     res.RunID,
		"queries":    res.QueriesExecuted,
		"found":      res.CandidatesFound,
		"evaluated":  res.CandidatesEvaluated,
		"attempted":  res.RepliesAttempted,
		"successful": res.RepliesSuccessful,
		"errors":     len(res.Errors),
	})
	return res
}

func fatal(res model.RunResult, err error) model.RunResult {
	metrics.PipelineErrors.Inc()
	logging.Error("pipeline_run_failed", map[string]any{"run_id": res.RunID, "error": err.Error()})
	res.Success = false
	res.Errors = append(res.Errors, err.Error())
	return res
}

// topPainPoint picks the most urgent pain point, first wins on ties.
func topPainPoint(prof model.TargetingProfile) model.PainPoint {
	rank := map[string]int{"high": 3, "medium": 2, "low": 1}
	best := prof.PainPoints[0]
	for _, pp := range prof.PainPoints[1:] {
		if rank[strings.ToLower(pp.Urgency)] > rank[strings.ToLower(best.Urgency)] {
			best = pp
		}
	}
	return best
}

func pause(deps Deps, d time.Duration) {
	if d <= 0 {
		return
	}
	if deps.Sleep != nil {
		deps.Sleep(d)
		return
	}
	time.Sleep(d)
}

// StoreProvider adapts the store to the analyzer's context interface.
func StoreProvider(s *store.Store) profile.Provider { return storeProvider{s} }

type storeProvider struct{ s *store.Store }

func (p storeProvider) StrategyContext(ctx context.Context, accountID string) (profile.Context, error) {
	text, err := p.s.StrategyText(ctx, accountID)
	if err != nil {
		return profile.Context{}, err
	}
	samples, err := p.s.ContentSamples(ctx, accountID, 10)
	if err != nil {
		return profile.Context{}, err
	}
	posts, err := p.s.TopHistoryPosts(ctx, accountID, 10)
	if err != nil {
		return profile.Context{}, err
	}
	out := profile.Context{Strategy: text, Samples: samples}
	for _, hp := range posts {
		out.TopPosts = append(out.TopPosts, profile.HistoryPost{Body: hp.Body, Engagement: hp.Engagement})
	}
	return out, nil
}
