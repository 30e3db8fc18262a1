package engage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"replyforge/internal/config"
	"replyforge/internal/logging"
	"replyforge/internal/metrics"
	"replyforge/internal/model"
	"replyforge/internal/reply"
	"replyforge/internal/store"
	"replyforge/internal/xclient"
)

var (
	// ErrBudgetExhausted means the daily reply budget is spent; no further
	// replies this run.
	ErrBudgetExhausted = errors.New("daily reply budget exhausted")
	// ErrBreakerOpen means repeated post failures tripped the circuit for
	// this account+platform.
	ErrBreakerOpen = errors.New("post circuit breaker open")
)

const defaultMaxAutoResponses = 3

// Executor posts validated replies and persists immutable engagement
// records. One value per run or process; it owns the breaker map.
type Executor struct {
	Store    *store.Store
	Client   xclient.Client
	Cfg      config.AgentConfig
	Platform string

	Breakers map[string]*Breaker
	Now      func() time.Time
}

func NewExecutor(s *store.Store, client xclient.Client, cfg config.AgentConfig, platform string) *Executor {
	return &Executor{
		Store:    s,
		Client:   client,
		Cfg:      cfg,
		Platform: platform,
		Breakers: make(map[string]*Breaker),
	}
}

// Execute posts one validated reply. In dry-run mode the would-be action is
// recorded with no network write. The credential is reloaded fresh from
// storage immediately before the post: an external refresh process may have
// rotated it since the run started.
func (e *Executor) Execute(ctx context.Context, accountID string, cand model.Candidate, draft reply.Draft) (model.EngagementRecord, error) {
	rec := e.buildRecord(accountID, cand, draft)
	if e.Cfg.DryRun {
		rec.DryRun = true
		if err := e.Store.CreateEngagement(ctx, rec); err != nil {
			return rec, err
		}
		e.seedConversation(ctx, rec, cand)
		logging.Info("dry_run_reply", map[string]any{"tweet_id": cand.Tweet.ID, "reply": draft.Text})
		return rec, nil
	}

	now := e.now()
	if e.Cfg.MaxRepliesPerDay > 0 {
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		sent, err := e.Store.CountActionsWithin(ctx, dayStart, dayStart.Add(24*time.Hour), "reply")
		if err != nil {
			return rec, err
		}
		if sent >= e.Cfg.MaxRepliesPerDay {
			return rec, ErrBudgetExhausted
		}
	}

	br := e.breaker(accountID)
	if br.Open() {
		return rec, ErrBreakerOpen
	}

	cred, err := e.Store.ActiveCredential(ctx, accountID, e.Platform)
	if err != nil {
		br.RecordFailure()
		return rec, fmt.Errorf("credential reload: %w", err)
	}
	posted, err := e.Client.PostReply(ctx, cred, cand.Tweet.ID, draft.Text)
	if err != nil {
		if errors.Is(err, xclient.ErrPostEdited) {
			// Target changed under us; skip quietly.
			logging.Debug("target_post_edited", map[string]any{"tweet_id": cand.Tweet.ID})
			return rec, err
		}
		br.RecordFailure()
		metrics.RepliesFailed.Inc()
		return rec, fmt.Errorf("post reply to %s: %w", cand.Tweet.ID, err)
	}
	br.RecordSuccess()
	metrics.RepliesSent.Inc()

	rec.ReplyID = posted.ID
	rec.ReplyURL = posted.URL
	rec.CreatedAt = now
	if err := e.Store.CreateEngagement(ctx, rec); err != nil {
		return rec, err
	}
	_ = e.Store.PutAction(ctx, now, "reply")
	_ = e.Store.RecordQuerySend(ctx, accountID, cand.SourceQuery)
	e.seedConversation(ctx, rec, cand)
	logging.Info("reply_sent", map[string]any{
		"tweet_id": cand.Tweet.ID, "reply_id": posted.ID, "formula": string(draft.Formula),
	})
	return rec, nil
}

func (e *Executor) buildRecord(accountID string, cand model.Candidate, draft reply.Draft) model.EngagementRecord {
	return model.EngagementRecord{
		ID:              uuid.NewString(),
		AccountID:       accountID,
		Platform:        e.Platform,
		TargetPostID:    cand.Tweet.ID,
		TargetText:      cand.Tweet.Text,
		TargetLikes:     cand.Tweet.LikeCount,
		TargetReplies:   cand.Tweet.ReplyCount,
		AuthorID:        cand.Author.ID,
		AuthorUsername:  cand.Author.Username,
		AuthorFollowers: cand.Author.FollowersCount,
		ReplyContent:    draft.Text,
		RelevanceScore:  cand.RelevanceScore,
		MatchedSignals:  cand.Reasons,
		SourceQuery:     cand.SourceQuery,
		Status:          model.StatusSent,
		CreatedAt:       e.now(),
	}
}

// seedConversation is best effort: a seeding failure is logged, never
// surfaced as an engagement failure.
func (e *Executor) seedConversation(ctx context.Context, rec model.EngagementRecord, cand model.Candidate) {
	threadID := cand.Tweet.ConversationID
	if threadID == "" {
		threadID = cand.Tweet.ID
	}
	err := e.Store.SeedConversation(ctx, rec.ID, model.ConversationTracking{
		ThreadID:            threadID,
		LastCheckedAt:       e.now(),
		AutoResponseEnabled: true,
		MaxAutoResponses:    defaultMaxAutoResponses,
	})
	if err != nil {
		logging.Error("conversation_seed_failed", map[string]any{
			"engagement_id": rec.ID, "error": err.Error(),
		})
	}
}

func (e *Executor) breaker(accountID string) *Breaker {
	key := accountID + "/" + e.Platform
	b, ok := e.Breakers[key]
	if !ok {
		b = &Breaker{}
		e.Breakers[key] = b
	}
	return b
}

func (e *Executor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}
