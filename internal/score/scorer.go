package score

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"replyforge/internal/llm"
	"replyforge/internal/logging"
	"replyforge/internal/metrics"
	"replyforge/internal/model"
)

// Result is one relevance evaluation. Unparseable model output becomes the
// Unparseable variant, which scores as {0,0}: a non-answer must look
// unattractive, never neutral.
type Result struct {
	RelevanceScore      float64
	EngagementPotential float64
	Reasons             []string
	Unparseable         bool
}

// Scorer runs one structured-generation call per surviving candidate.
type Scorer struct {
	LLM llm.Completer
}

// Score evaluates one candidate against the profile. The returned error is
// transport-level only; malformed model output degrades to {0,0} instead.
func (s *Scorer) Score(ctx context.Context, prof model.TargetingProfile, cand model.Candidate) (Result, error) {
	metrics.IncLLMCall("relevance")
	raw, err := s.LLM.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: `Score how well a social post matches an ideal-customer profile. Respond with strict JSON: {"relevanceScore":0,"engagementPotential":0,"reasons":[""]}. Both scores are 0-10.`},
			{Role: "user", Content: scorePrompt(prof, cand)},
		},
		Temperature: 0.2,
		MaxTokens:   300,
		Tier:        llm.TierFast,
	})
	if err != nil {
		return Result{Unparseable: true}, err
	}
	return parseResult(raw), nil
}

func scorePrompt(prof model.TargetingProfile, cand model.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target roles: %s\n", strings.Join(prof.Audience.Roles, ", "))
	fmt.Fprintf(&b, "Target industries: %s\n", strings.Join(prof.Audience.Industries, ", "))
	for _, pp := range prof.PainPoints {
		fmt.Fprintf(&b, "Pain point (%s): %s\n", pp.Urgency, pp.Problem)
	}
	fmt.Fprintf(&b, "\nPost by @%s (%d followers): %s\n", cand.Author.Username, cand.Author.FollowersCount, cand.Tweet.Text)
	if cand.Author.Bio != "" {
		fmt.Fprintf(&b, "Author bio: %s\n", cand.Author.Bio)
	}
	return b.String()
}

func parseResult(raw string) Result {
	extracted := llm.ExtractJSON(raw)
	if extracted == "" {
		logging.Debug("relevance_parse_failed", nil)
		return Result{Unparseable: true}
	}
	var parsed struct {
		RelevanceScore      float64  `json:"relevanceScore"`
		EngagementPotential float64  `json:"engagementPotential"`
		Reasons             []string `json:"reasons"`
	}
	if err := json.Unmarshal([]byte(extracted), &parsed); err != nil {
		logging.Debug("relevance_parse_failed", nil)
		return Result{Unparseable: true}
	}
	return Result{
		RelevanceScore:      Clamp(parsed.RelevanceScore),
		EngagementPotential: Clamp(parsed.EngagementPotential),
		Reasons:             parsed.Reasons,
	}
}

// Clamp bounds an untrusted score to [0,10].
func Clamp(v float64) float64 {
	if v < 0 || v != v { // NaN guards included
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// Rank orders candidates by combined score, descending, and returns the top
// n. The 0.6/0.4 weighting lives on model.Candidate.
func Rank(cands []model.Candidate, n int) []model.Candidate {
	out := append([]model.Candidate(nil), cands...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CombinedScore() > out[j].CombinedScore() })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
