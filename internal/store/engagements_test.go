package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"replyforge/internal/model"
)

func testRecord(id, postID, authorID string) model.EngagementRecord {
	return model.EngagementRecord{
		ID:             id,
		AccountID:      "acct",
		Platform:       "twitter",
		TargetPostID:   postID,
		TargetText:     "struggling to hire engineers",
		AuthorID:       authorID,
		AuthorUsername: "founder",
		ReplyContent:   "A concrete observation about their hiring funnel.",
		RelevanceScore: 8.5,
		MatchedSignals: []string{"founder", "hiring"},
		SourceQuery:    "struggling to hire",
		Status:         model.StatusSent,
		CreatedAt:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCreateEngagementIdempotent(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	if err := s.CreateEngagement(ctx, testRecord("e1", "post1", "a1")); err != nil {
		t.Fatal(err)
	}
	err := s.CreateEngagement(ctx, testRecord("e2", "post1", "a1"))
	if !errors.Is(err, ErrDuplicateEngagement) {
		t.Fatalf("expected ErrDuplicateEngagement, got %v", err)
	}
	recs, err := s.ListEngagements(ctx, "acct")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(recs))
	}
	got := recs[0]
	if got.ID != "e1" || got.SourceQuery != "struggling to hire" || got.RelevanceScore != 8.5 {
		t.Fatalf("round trip mangled record: %+v", got)
	}
	if len(got.MatchedSignals) != 2 {
		t.Fatalf("signals lost: %v", got.MatchedSignals)
	}
}

func TestHasRecentEngagementWindow(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	rec := testRecord("e1", "post1", "a1")
	rec.CreatedAt = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := s.CreateEngagement(ctx, rec); err != nil {
		t.Fatal(err)
	}
	window := 72 * time.Hour
	inside := rec.CreatedAt.Add(window - time.Minute)
	recent, err := s.HasRecentEngagement(ctx, "acct", "a1", window, inside)
	if err != nil || !recent {
		t.Fatalf("expected recent just inside window, got %v %v", recent, err)
	}
	outside := rec.CreatedAt.Add(window + time.Minute)
	recent, err = s.HasRecentEngagement(ctx, "acct", "a1", window, outside)
	if err != nil || recent {
		t.Fatalf("expected stale just outside window, got %v %v", recent, err)
	}
	// Different author unaffected
	recent, _ = s.HasRecentEngagement(ctx, "acct", "other", window, inside)
	if recent {
		t.Fatal("wrong author matched")
	}
}

func TestConversationLifecycle(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	if err := s.CreateEngagement(ctx, testRecord("e1", "post1", "a1")); err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	err := s.SeedConversation(ctx, "e1", model.ConversationTracking{
		ThreadID:            "thread1",
		LastCheckedAt:       now,
		AutoResponseEnabled: true,
		MaxAutoResponses:    3,
	})
	if err != nil {
		t.Fatal(err)
	}

	msg := model.ConversationMessage{ID: "m1", Author: "a1", Content: "thanks, how do you handle referrals?", Timestamp: now, Inbound: true}
	inserted, err := s.AppendConversationMessage(ctx, "e1", msg)
	if err != nil || !inserted {
		t.Fatalf("got %v %v", inserted, err)
	}
	// Re-appending the same message id is a no-op
	inserted, err = s.AppendConversationMessage(ctx, "e1", msg)
	if err != nil || inserted {
		t.Fatalf("duplicate append: %v %v", inserted, err)
	}
	msgs, err := s.ConversationMessages(ctx, "e1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || !msgs[0].Inbound || msgs[0].Content != msg.Content {
		t.Fatalf("got %+v", msgs)
	}

	if err := s.UpdateEngagementStatus(ctx, "e1", model.StatusGotReply, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.BumpAutoResponseCount(ctx, "e1", now.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	tracked, err := s.TrackedEngagements(ctx, "acct")
	if err != nil {
		t.Fatal(err)
	}
	if len(tracked) != 1 {
		t.Fatalf("got %d tracked", len(tracked))
	}
	got := tracked[0]
	if got.Status != model.StatusGotReply || !got.FollowUp.Replied || got.FollowUp.ConversationLength != 1 {
		t.Fatalf("status not advanced: %+v", got)
	}
	if got.Conversation == nil || got.Conversation.ThreadID != "thread1" || got.Conversation.CurrentAutoResponseCount != 1 {
		t.Fatalf("conversation not tracked: %+v", got.Conversation)
	}
}

func TestTrackedEngagementsExcludesDryRun(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	dry := testRecord("e1", "post1", "a1")
	dry.DryRun = true
	if err := s.CreateEngagement(ctx, dry); err != nil {
		t.Fatal(err)
	}
	if err := s.SeedConversation(ctx, "e1", model.ConversationTracking{ThreadID: "t1"}); err != nil {
		t.Fatal(err)
	}
	tracked, err := s.TrackedEngagements(ctx, "acct")
	if err != nil {
		t.Fatal(err)
	}
	if len(tracked) != 0 {
		t.Fatalf("dry-run record tracked: %d", len(tracked))
	}
}

func TestQueryOutcomeCounters(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	_ = s.RecordQuerySend(ctx, "acct", "struggling to hire")
	_ = s.RecordQuerySend(ctx, "acct", "struggling to hire")
	_ = s.RecordQueryEngaged(ctx, "acct", "struggling to hire")
	_ = s.RecordQuerySend(ctx, "acct", "onboarding is broken")
	outcomes, err := s.QueryOutcomes(ctx, "acct")
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes", len(outcomes))
	}
	byQuery := map[string]QueryOutcome{}
	for _, o := range outcomes {
		byQuery[o.Query] = o
	}
	if o := byQuery["struggling to hire"]; o.Sends != 2 || o.Engaged != 1 {
		t.Fatalf("got %+v", o)
	}
	if o := byQuery["onboarding is broken"]; o.Sends != 1 || o.Engaged != 0 {
		t.Fatalf("got %+v", o)
	}
}
