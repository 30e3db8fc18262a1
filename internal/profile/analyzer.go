package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"replyforge/internal/llm"
	"replyforge/internal/metrics"
	"replyforge/internal/model"
	"replyforge/internal/util"
)

// ErrNoContext means no strategy text, no content samples and no historical
// posts exist for the account. Fatal for the run.
var ErrNoContext = errors.New("no strategy context available for account")

// HistoryPost is one historical post with its engagement count.
type HistoryPost struct {
	Body       string
	Engagement int
}

// Context is the raw material the analyzer works from.
type Context struct {
	Strategy string
	Samples  []string
	TopPosts []HistoryPost
}

// Provider supplies strategy context for an account.
type Provider interface {
	StrategyContext(ctx context.Context, accountID string) (Context, error)
}

// Options control which context blocks feed the analysis.
type Options struct {
	IncludeSamples bool
	IncludeHistory bool
	HistoryN       int
}

// Analyzer derives a targeting profile from an account's content strategy
// and historical performance.
type Analyzer struct {
	Provider Provider
	LLM      llm.Completer
}

// Build gathers up to three context blocks and issues one structured
// generation call. The response must parse as the exact profile shape; a
// parse failure fails the build, there is no partial acceptance.
func (a *Analyzer) Build(ctx context.Context, accountID string, opts Options) (model.TargetingProfile, error) {
	var prof model.TargetingProfile
	sc, err := a.Provider.StrategyContext(ctx, accountID)
	if err != nil {
		return prof, err
	}
	blocks := contextBlocks(sc, opts)
	if len(blocks) == 0 {
		return prof, ErrNoContext
	}
	metrics.IncLLMCall("profile")
	raw, err := a.LLM.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: profileSystemPrompt},
			{Role: "user", Content: strings.Join(blocks, "\n\n")},
		},
		Temperature: 0.4,
		MaxTokens:   2000,
		Tier:        llm.TierQuality,
	})
	if err != nil {
		return prof, fmt.Errorf("profile generation: %w", err)
	}
	extracted := llm.ExtractJSON(raw)
	if extracted == "" {
		return prof, errors.New("profile generation returned no JSON")
	}
	if err := json.Unmarshal([]byte(extracted), &prof); err != nil {
		return prof, fmt.Errorf("profile parse: %w", err)
	}
	if len(prof.SearchQueries) == 0 {
		prof.SearchQueries = queriesFromPainPoints(prof.PainPoints)
	}
	if len(prof.SearchQueries) == 0 {
		return prof, errors.New("profile has no search queries")
	}
	clampQueryPriorities(prof.SearchQueries)
	enrichPsychographics(&prof)
	return prof, nil
}

const profileSystemPrompt = `You analyze a company's content strategy and derive an ideal-customer targeting profile for social engagement.
Respond with strict JSON only, exactly this shape:
{"targetAudience":{"roles":[],"industries":[],"companySizes":[],"seniority":[]},
"painPoints":[{"problem":"","urgency":"low|medium|high","keywords":[]}],
"searchQueries":[{"text":"","intent":"","priority":1}],
"valueProposition":{"expertiseAreas":[],"differentiatingAngle":"","avoidTopics":[]},
"engagementStyle":{"tone":"","do":[],"avoid":[]},
"psychographics":{"values":[],"beliefSystem":"","coreFear":"","spendingLogic":""},
"coreNeed":"","priorGrievances":[]}
Priorities are 1-10, 10 highest. Queries should read like things real prospects post, not keyword soup.`

func contextBlocks(sc Context, opts Options) []string {
	var blocks []string
	if s := util.NormalizeWhitespace(sc.Strategy); s != "" {
		blocks = append(blocks, "## Declared strategy\n"+s)
	}
	if opts.IncludeSamples && len(sc.Samples) > 0 {
		var b strings.Builder
		b.WriteString("## Repurposable content samples\n")
		for _, s := range sc.Samples {
			if s = util.NormalizeWhitespace(s); s != "" {
				b.WriteString("- " + util.Truncate(s, 300) + "\n")
			}
		}
		if b.Len() > len("## Repurposable content samples\n") {
			blocks = append(blocks, b.String())
		}
	}
	if opts.IncludeHistory && len(sc.TopPosts) > 0 {
		n := opts.HistoryN
		if n <= 0 || n > len(sc.TopPosts) {
			n = len(sc.TopPosts)
		}
		posts := append([]HistoryPost(nil), sc.TopPosts...)
		sort.Slice(posts, func(i, j int) bool { return posts[i].Engagement > posts[j].Engagement })
		var b strings.Builder
		b.WriteString("## Highest-engagement historical posts\n")
		wrote := false
		for _, p := range posts[:n] {
			if body := util.NormalizeWhitespace(p.Body); body != "" {
				fmt.Fprintf(&b, "- (%d engagements) %s\n", p.Engagement, util.Truncate(body, 300))
				wrote = true
			}
		}
		if wrote {
			blocks = append(blocks, b.String())
		}
	}
	return blocks
}

func queriesFromPainPoints(points []model.PainPoint) []model.SearchQuery {
	var out []model.SearchQuery
	for _, pp := range points {
		for _, kw := range pp.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				out = append(out, model.SearchQuery{Text: kw, Intent: "pain_point", Priority: 5})
			}
		}
	}
	return out
}

func clampQueryPriorities(qs []model.SearchQuery) {
	for i := range qs {
		if qs[i].Priority < 1 {
			qs[i].Priority = 1
		}
		if qs[i].Priority > 10 {
			qs[i].Priority = 10
		}
	}
}
