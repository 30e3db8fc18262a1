package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"replyforge/internal/llm"
	"replyforge/internal/logging"
	"replyforge/internal/metrics"
	"replyforge/internal/model"
)

// QueryOutcome carries per-query send and confirmed-engagement counters.
type QueryOutcome struct {
	Query   string
	Sends   int
	Engaged int
}

// Demotion fires after this many sends with zero confirmed engagement.
const staleQuerySends = 5

// ExpandQueries asks for additional search queries for one pain point.
// Best effort: any failure returns an empty list, never an error.
func (a *Analyzer) ExpandQueries(ctx context.Context, prof model.TargetingProfile, pain model.PainPoint) []string {
	metrics.IncLLMCall("expand_queries")
	raw, err := a.LLM.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: `Generate additional social search queries for one customer pain point. Respond with strict JSON: {"queries":["",""]}. Queries should read like things prospects actually post.`},
			{Role: "user", Content: fmt.Sprintf("Pain point: %s (urgency %s)\nKeywords: %s\nAudience roles: %s",
				pain.Problem, pain.Urgency, strings.Join(pain.Keywords, ", "), strings.Join(prof.Audience.Roles, ", "))},
		},
		Temperature: 0.7,
		MaxTokens:   400,
		Tier:        llm.TierFast,
	})
	if err != nil {
		logging.Debug("expand_queries_failed", map[string]any{"error": err.Error()})
		return nil
	}
	var parsed struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &parsed); err != nil {
		logging.Debug("expand_queries_parse_failed", nil)
		return nil
	}
	var out []string
	for _, q := range parsed.Queries {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

// Refine regenerates and re-weights search queries from per-query outcome
// counters. Queries with confirmed engagement get boosted; queries with at
// least five sends and zero engagement get demoted. On parse failure the
// input profile is returned unmodified.
func (a *Analyzer) Refine(ctx context.Context, prof model.TargetingProfile, outcomes []QueryOutcome) model.TargetingProfile {
	if len(outcomes) == 0 {
		return prof
	}
	var report strings.Builder
	for _, o := range outcomes {
		fmt.Fprintf(&report, "- %q: %d replies sent, %d got engagement\n", o.Query, o.Sends, o.Engaged)
	}
	current, _ := json.Marshal(prof.SearchQueries)
	metrics.IncLLMCall("refine_queries")
	raw, err := a.LLM.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: `Revise a list of social search queries given their outcomes. Keep queries that earned engagement, replace ones that repeatedly earned none. Respond with strict JSON: {"searchQueries":[{"text":"","intent":"","priority":1}]}.`},
			{Role: "user", Content: "Current queries:\n" + string(current) + "\nOutcomes:\n" + report.String()},
		},
		Temperature: 0.5,
		MaxTokens:   800,
		Tier:        llm.TierFast,
	})
	if err != nil {
		logging.Debug("refine_queries_failed", map[string]any{"error": err.Error()})
		return prof
	}
	var parsed struct {
		SearchQueries []model.SearchQuery `json:"searchQueries"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &parsed); err != nil || len(parsed.SearchQueries) == 0 {
		logging.Debug("refine_queries_parse_failed", nil)
		return prof
	}
	out := prof
	out.SearchQueries = parsed.SearchQueries
	clampQueryPriorities(out.SearchQueries)
	applyOutcomeWeights(out.SearchQueries, outcomes)
	return out
}

func applyOutcomeWeights(qs []model.SearchQuery, outcomes []QueryOutcome) {
	byQuery := make(map[string]QueryOutcome, len(outcomes))
	for _, o := range outcomes {
		byQuery[strings.ToLower(o.Query)] = o
	}
	for i := range qs {
		o, ok := byQuery[strings.ToLower(qs[i].Text)]
		if !ok {
			continue
		}
		switch {
		case o.Engaged > 0:
			qs[i].Priority += 2
		case o.Sends >= staleQuerySends:
			qs[i].Priority -= 3
		}
	}
	clampQueryPriorities(qs)
}
