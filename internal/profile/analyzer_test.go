package profile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"replyforge/internal/llm"
)

type fakeProvider struct{ ctx Context }

func (f fakeProvider) StrategyContext(_ context.Context, _ string) (Context, error) {
	return f.ctx, nil
}

type fakeCompleter struct {
	resp     string
	err      error
	lastUser string
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	for _, m := range req.Messages {
		if m.Role == "user" {
			f.lastUser = m.Content
		}
	}
	return f.resp, f.err
}

const goodProfileJSON = `{
 "targetAudience":{"roles":["founder"],"industries":["saas"],"companySizes":["1-10"],"seniority":["owner"]},
 "painPoints":[{"problem":"hiring engineers is slow","urgency":"high","keywords":["hiring","recruiting"]}],
 "searchQueries":[{"text":"struggling to hire engineers","intent":"pain","priority":9}],
 "valueProposition":{"expertiseAreas":["recruiting ops"],"differentiatingAngle":"funnel data","avoidTopics":["layoffs"]},
 "engagementStyle":{"tone":"direct","do":["be concrete"],"avoid":["flattery"]}
}`

func TestBuildParsesProfile(t *testing.T) {
	a := &Analyzer{
		Provider: fakeProvider{ctx: Context{Strategy: "We sell recruiting analytics to seed-stage founders."}},
		LLM:      &fakeCompleter{resp: goodProfileJSON},
	}
	prof, err := a.Build(context.Background(), "acct", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(prof.SearchQueries) != 1 || prof.SearchQueries[0].Priority != 9 {
		t.Fatalf("queries %+v", prof.SearchQueries)
	}
	if prof.Audience.Roles[0] != "founder" {
		t.Fatalf("audience %+v", prof.Audience)
	}
	// Persona enrichment fills the psychographic fields the model omitted.
	if prof.Psychographics == nil || prof.Psychographics.CoreFear == "" {
		t.Fatal("psychographics not enriched")
	}
	if prof.CoreNeed == "" || len(prof.PriorGrievances) == 0 {
		t.Fatal("core need and grievances not enriched")
	}
}

func TestBuildNoContext(t *testing.T) {
	a := &Analyzer{Provider: fakeProvider{}, LLM: &fakeCompleter{resp: goodProfileJSON}}
	_, err := a.Build(context.Background(), "acct", Options{})
	if !errors.Is(err, ErrNoContext) {
		t.Fatalf("expected ErrNoContext, got %v", err)
	}
}

func TestBuildParseFailureFailsBuild(t *testing.T) {
	a := &Analyzer{
		Provider: fakeProvider{ctx: Context{Strategy: "a strategy"}},
		LLM:      &fakeCompleter{resp: "I could not produce JSON for this."},
	}
	if _, err := a.Build(context.Background(), "acct", Options{}); err == nil {
		t.Fatal("expected error on unparseable profile")
	}
}

func TestBuildQueriesFallBackToPainPoints(t *testing.T) {
	resp := `{
 "targetAudience":{"roles":["founder"],"industries":[],"companySizes":[],"seniority":[]},
 "painPoints":[{"problem":"churn is eating growth","urgency":"high","keywords":["churn","retention"]}],
 "searchQueries":[],
 "valueProposition":{"expertiseAreas":[],"differentiatingAngle":"","avoidTopics":[]},
 "engagementStyle":{"tone":"direct","do":[],"avoid":[]}
}`
	a := &Analyzer{
		Provider: fakeProvider{ctx: Context{Strategy: "a strategy"}},
		LLM:      &fakeCompleter{resp: resp},
	}
	prof, err := a.Build(context.Background(), "acct", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(prof.SearchQueries) == 0 {
		t.Fatal("expected pain-point derived queries")
	}
}

func TestBuildClampsPriorities(t *testing.T) {
	resp := `{
 "targetAudience":{"roles":["founder"],"industries":[],"companySizes":[],"seniority":[]},
 "painPoints":[],
 "searchQueries":[{"text":"q1","intent":"pain","priority":99},{"text":"q2","intent":"pain","priority":-5}],
 "valueProposition":{"expertiseAreas":[],"differentiatingAngle":"","avoidTopics":[]},
 "engagementStyle":{"tone":"direct","do":[],"avoid":[]}
}`
	a := &Analyzer{
		Provider: fakeProvider{ctx: Context{Strategy: "a strategy"}},
		LLM:      &fakeCompleter{resp: resp},
	}
	prof, err := a.Build(context.Background(), "acct", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if prof.SearchQueries[0].Priority != 10 || prof.SearchQueries[1].Priority != 1 {
		t.Fatalf("priorities not clamped: %+v", prof.SearchQueries)
	}
}

func TestContextBlocksIncludeHistory(t *testing.T) {
	a := &Analyzer{
		Provider: fakeProvider{ctx: Context{
			Strategy: "a strategy",
			Samples:  []string{"sample post"},
			TopPosts: []HistoryPost{{Body: "big hit", Engagement: 500}, {Body: "small", Engagement: 2}},
		}},
		LLM: &fakeCompleter{resp: goodProfileJSON},
	}
	if _, err := a.Build(context.Background(), "acct", Options{IncludeSamples: true, IncludeHistory: true, HistoryN: 1}); err != nil {
		t.Fatal(err)
	}
	fc := a.LLM.(*fakeCompleter)
	if !strings.Contains(fc.lastUser, "big hit") {
		t.Fatal("history block missing")
	}
	if strings.Contains(fc.lastUser, "small") {
		t.Fatal("HistoryN not honored")
	}
	if !strings.Contains(fc.lastUser, "sample post") {
		t.Fatal("samples block missing")
	}
}
