package convo

import (
	"context"
	"errors"
	"testing"
	"time"

	"replyforge/internal/model"
	"replyforge/internal/store"
	"replyforge/internal/xclient"
)

type fakeSearcher struct {
	threads map[string][]model.Tweet
	err     error
	queries []string
}

func (f *fakeSearcher) SearchRecent(_ context.Context, query string, _ xclient.SearchOptions) ([]model.Tweet, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.threads[query], nil
}

func (f *fakeSearcher) UsersByIDs(_ context.Context, _ []string) ([]model.Author, error) {
	return nil, nil
}

func (f *fakeSearcher) PostReply(_ context.Context, _ model.Credential, _, _ string) (model.PostedReply, error) {
	panic("sync must never post")
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedTracked(t *testing.T, s *store.Store, id, postID, threadID string) {
	t.Helper()
	ctx := context.Background()
	rec := model.EngagementRecord{
		ID:           id,
		AccountID:    "acct",
		Platform:     "twitter",
		TargetPostID: postID,
		AuthorID:     "author1",
		ReplyID:      "reply-" + id,
		SourceQuery:  "struggling to hire",
		Status:       model.StatusSent,
		CreatedAt:    time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := s.CreateEngagement(ctx, rec); err != nil {
		t.Fatal(err)
	}
	err := s.SeedConversation(ctx, id, model.ConversationTracking{
		ThreadID:            threadID,
		AutoResponseEnabled: true,
		MaxAutoResponses:    3,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSyncAdvancesToGotReply(t *testing.T) {
	s := openStore(t)
	seedTracked(t, s, "e1", "p1", "thread1")
	client := &fakeSearcher{threads: map[string][]model.Tweet{
		"conversation_id:thread1": {
			{ID: "m1", AuthorID: "author1", Text: "interesting, how did you handle referrals?", CreatedAt: time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)},
		},
	}}
	syncer := &Syncer{Store: s, Client: client, Now: func() time.Time {
		return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	}}
	res, err := syncer.Sync(context.Background(), "acct")
	if err != nil {
		t.Fatal(err)
	}
	if res.Checked != 1 || res.Updated != 1 || res.NewMessages != 1 {
		t.Fatalf("got %+v", res)
	}
	recs, _ := s.ListEngagements(context.Background(), "acct")
	if recs[0].Status != model.StatusGotReply {
		t.Fatalf("status %s", recs[0].Status)
	}
	// First inbound reply credits the originating query
	outcomes, _ := s.QueryOutcomes(context.Background(), "acct")
	if len(outcomes) != 1 || outcomes[0].Engaged != 1 {
		t.Fatalf("query not credited: %+v", outcomes)
	}
}

func TestSyncConversationThreshold(t *testing.T) {
	s := openStore(t)
	seedTracked(t, s, "e1", "p1", "thread1")
	client := &fakeSearcher{threads: map[string][]model.Tweet{
		"conversation_id:thread1": {
			{ID: "m1", AuthorID: "author1", Text: "first response", CreatedAt: time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)},
			{ID: "m2", AuthorID: "author1", Text: "second response", CreatedAt: time.Date(2026, 8, 1, 11, 5, 0, 0, time.UTC)},
			{ID: "reply-e1", AuthorID: "self9", Text: "our own reply", CreatedAt: time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)},
		},
	}}
	syncer := &Syncer{Store: s, Client: client}
	if _, err := syncer.Sync(context.Background(), "acct"); err != nil {
		t.Fatal(err)
	}
	recs, _ := s.ListEngagements(context.Background(), "acct")
	if recs[0].Status != model.StatusConversation {
		t.Fatalf("status %s", recs[0].Status)
	}
	if recs[0].FollowUp.ConversationLength != 2 {
		t.Fatalf("length %d", recs[0].FollowUp.ConversationLength)
	}
	msgs, _ := s.ConversationMessages(context.Background(), "e1")
	if len(msgs) != 2 {
		t.Fatalf("own reply stored as inbound: %d messages", len(msgs))
	}
}

func TestSyncSkipsOwnFollowUps(t *testing.T) {
	s := openStore(t)
	seedTracked(t, s, "e1", "p1", "thread1")
	// Our sent reply identifies our platform author id; a later message from
	// that author is our own follow-up, not an inbound response.
	client := &fakeSearcher{threads: map[string][]model.Tweet{
		"conversation_id:thread1": {
			{ID: "reply-e1", AuthorID: "self9", Text: "our reply", CreatedAt: time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)},
			{ID: "m1", AuthorID: "author1", Text: "inbound response", CreatedAt: time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)},
			{ID: "m2", AuthorID: "self9", Text: "our follow-up", CreatedAt: time.Date(2026, 8, 1, 11, 30, 0, 0, time.UTC)},
		},
	}}
	syncer := &Syncer{Store: s, Client: client}
	if _, err := syncer.Sync(context.Background(), "acct"); err != nil {
		t.Fatal(err)
	}
	msgs, _ := s.ConversationMessages(context.Background(), "e1")
	if len(msgs) != 1 {
		t.Fatalf("own follow-up logged as inbound: %d messages", len(msgs))
	}
	recs, _ := s.ListEngagements(context.Background(), "acct")
	if recs[0].Status != model.StatusGotReply {
		t.Fatalf("status %s", recs[0].Status)
	}
}

func TestSyncIdempotentRescan(t *testing.T) {
	s := openStore(t)
	seedTracked(t, s, "e1", "p1", "thread1")
	client := &fakeSearcher{threads: map[string][]model.Tweet{
		"conversation_id:thread1": {
			{ID: "m1", AuthorID: "author1", Text: "response", CreatedAt: time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)},
		},
	}}
	syncer := &Syncer{Store: s, Client: client}
	if _, err := syncer.Sync(context.Background(), "acct"); err != nil {
		t.Fatal(err)
	}
	if _, err := syncer.Sync(context.Background(), "acct"); err != nil {
		t.Fatal(err)
	}
	msgs, _ := s.ConversationMessages(context.Background(), "e1")
	if len(msgs) != 1 {
		t.Fatalf("message duplicated on rescan: %d", len(msgs))
	}
	outcomes, _ := s.QueryOutcomes(context.Background(), "acct")
	if outcomes[0].Engaged != 1 {
		t.Fatalf("query credited twice: %+v", outcomes)
	}
}

func TestSyncMarksIgnoredAfterSilence(t *testing.T) {
	s := openStore(t)
	seedTracked(t, s, "e1", "p1", "thread1")
	client := &fakeSearcher{threads: map[string][]model.Tweet{}}
	syncer := &Syncer{Store: s, Client: client, Now: func() time.Time {
		return time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	}}
	if _, err := syncer.Sync(context.Background(), "acct"); err != nil {
		t.Fatal(err)
	}
	recs, _ := s.ListEngagements(context.Background(), "acct")
	if recs[0].Status != model.StatusIgnored {
		t.Fatalf("status %s", recs[0].Status)
	}
}

func TestSyncRateLimitAborts(t *testing.T) {
	s := openStore(t)
	seedTracked(t, s, "e1", "p1", "thread1")
	seedTracked(t, s, "e2", "p2", "thread2")
	client := &fakeSearcher{err: xclient.ErrRateLimited}
	syncer := &Syncer{Store: s, Client: client}
	res, err := syncer.Sync(context.Background(), "acct")
	if !errors.Is(err, xclient.ErrRateLimited) {
		t.Fatalf("got %v", err)
	}
	if !res.Aborted {
		t.Fatal("not flagged aborted")
	}
	if len(client.queries) != 1 {
		t.Fatalf("kept querying after rate limit: %v", client.queries)
	}
}
