package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"replyforge/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAccountRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	if _, err := s.Account(ctx, "missing"); !errors.Is(err, ErrNoAccount) {
		t.Fatalf("expected ErrNoAccount, got %v", err)
	}
	if err := s.UpsertAccount(ctx, "acct", "forgers"); err != nil {
		t.Fatal(err)
	}
	name, err := s.Account(ctx, "acct")
	if err != nil || name != "forgers" {
		t.Fatalf("got %q %v", name, err)
	}
	// Upsert replaces
	if err := s.UpsertAccount(ctx, "acct", "renamed"); err != nil {
		t.Fatal(err)
	}
	name, _ = s.Account(ctx, "acct")
	if name != "renamed" {
		t.Fatalf("got %q", name)
	}
}

func TestCredentialRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	if _, err := s.ActiveCredential(ctx, "acct", "twitter"); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
	cred := model.Credential{
		AccountID: "acct", Platform: "twitter",
		ConsumerKey: "ck", ConsumerSecret: "cs", AccessToken: "at", AccessSecret: "as",
	}
	if err := s.SaveCredential(ctx, cred); err != nil {
		t.Fatal(err)
	}
	got, err := s.ActiveCredential(ctx, "acct", "twitter")
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "at" || got.ConsumerSecret != "cs" {
		t.Fatalf("got %+v", got)
	}
	// Rotation overwrites in place
	cred.AccessToken = "at2"
	if err := s.SaveCredential(ctx, cred); err != nil {
		t.Fatal(err)
	}
	got, _ = s.ActiveCredential(ctx, "acct", "twitter")
	if got.AccessToken != "at2" {
		t.Fatalf("got %q after rotation", got.AccessToken)
	}
}

func TestStrategyAndSamples(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	if err := s.SetStrategy(ctx, "acct", "We sell hiring analytics to seed-stage founders"); err != nil {
		t.Fatal(err)
	}
	text, err := s.StrategyText(ctx, "acct")
	if err != nil || text == "" {
		t.Fatalf("got %q %v", text, err)
	}
	for _, b := range []string{"sample one", "sample two", "sample three"} {
		if err := s.AddContentSample(ctx, "acct", b); err != nil {
			t.Fatal(err)
		}
	}
	samples, err := s.ContentSamples(ctx, "acct", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples", len(samples))
	}
}

func TestTopHistoryPostsOrdered(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	_ = s.AddHistoryPost(ctx, "acct", "meh", 3)
	_ = s.AddHistoryPost(ctx, "acct", "hit", 120)
	_ = s.AddHistoryPost(ctx, "acct", "ok", 40)
	posts, err := s.TopHistoryPosts(ctx, "acct", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 2 || posts[0].Body != "hit" || posts[1].Body != "ok" {
		t.Fatalf("got %+v", posts)
	}
}

func TestActionsWindowCount(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	_ = s.PutAction(ctx, day.Add(2*time.Hour), "reply")
	_ = s.PutAction(ctx, day.Add(3*time.Hour), "reply")
	_ = s.PutAction(ctx, day.Add(3*time.Hour), "like")
	_ = s.PutAction(ctx, day.Add(26*time.Hour), "reply")
	n, err := s.CountActionsWithin(ctx, day, day.Add(24*time.Hour), "reply")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("got %d", n)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	if v, err := s.LoadCursor(ctx, "run:last_ts"); err != nil || v != "" {
		t.Fatalf("got %q %v", v, err)
	}
	if err := s.SaveCursor(ctx, "run:last_ts", "2026-08-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}
	_ = s.SaveCursor(ctx, "run:last_ts", "2026-08-02T00:00:00Z")
	v, err := s.LoadCursor(ctx, "run:last_ts")
	if err != nil || v != "2026-08-02T00:00:00Z" {
		t.Fatalf("got %q %v", v, err)
	}
}
