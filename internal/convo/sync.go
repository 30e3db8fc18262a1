package convo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"replyforge/internal/logging"
	"replyforge/internal/model"
	"replyforge/internal/store"
	"replyforge/internal/xclient"
)

const (
	// searchPageSize caps one thread lookup; threads past this are old news.
	searchPageSize = 50

	// ignoreAfter marks a reply with zero inbound responses as ignored.
	ignoreAfter = 7 * 24 * time.Hour

	// conversationThreshold is the inbound message count at which a single
	// reply becomes a conversation.
	conversationThreshold = 2
)

// Result summarizes one sync sweep over the tracked engagements.
type Result struct {
	Checked      int
	NewMessages  int
	Updated      int
	AutoEligible int
	Aborted      bool
	Errors       []string
}

// Syncer polls conversation threads for tracked engagements and folds
// inbound replies back into the engagement records.
type Syncer struct {
	Store  *store.Store
	Client xclient.Client

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Sync checks every tracked engagement's thread for new inbound replies.
// A per-engagement failure is recorded and skipped; a rate-limit response
// aborts the remaining sweep since every thread hits the same search quota.
func (s *Syncer) Sync(ctx context.Context, accountID string) (Result, error) {
	var res Result
	recs, err := s.Store.TrackedEngagements(ctx, accountID)
	if err != nil {
		return res, fmt.Errorf("load tracked engagements: %w", err)
	}

	for _, rec := range recs {
		if rec.Conversation == nil {
			continue
		}
		res.Checked++
		if rec.Conversation.AutoResponseEnabled &&
			rec.Conversation.CurrentAutoResponseCount < rec.Conversation.MaxAutoResponses {
			res.AutoEligible++
		}

		added, err := s.syncOne(ctx, accountID, rec)
		if errors.Is(err, xclient.ErrRateLimited) {
			res.Aborted = true
			res.Errors = append(res.Errors, fmt.Sprintf("thread %s: rate limited", rec.Conversation.ThreadID))
			return res, err
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("thread %s: %v", rec.Conversation.ThreadID, err))
			logging.Error("convo_sync_failed", map[string]any{
				"engagement_id": rec.ID, "thread_id": rec.Conversation.ThreadID, "error": err.Error(),
			})
			continue
		}
		res.NewMessages += added
		if added > 0 {
			res.Updated++
		}
	}
	return res, nil
}

// syncOne fetches the thread, appends inbound messages, and advances the
// engagement status. Returns the number of messages newly appended.
func (s *Syncer) syncOne(ctx context.Context, accountID string, rec model.EngagementRecord) (int, error) {
	query := "conversation_id:" + rec.Conversation.ThreadID
	tweets, err := s.Client.SearchRecent(ctx, query, xclient.SearchOptions{MaxResults: searchPageSize})
	if err != nil {
		return 0, err
	}

	// The account id is internal; the platform author id of our own messages
	// comes from the sent reply when it shows up in the thread.
	selfAuthorID := ""
	for _, t := range tweets {
		if t.ID == rec.ReplyID {
			selfAuthorID = t.AuthorID
			break
		}
	}

	added := 0
	for _, t := range tweets {
		if t.ID == rec.ReplyID || (selfAuthorID != "" && t.AuthorID == selfAuthorID) {
			continue
		}
		msg := model.ConversationMessage{
			ID:        t.ID,
			Author:    t.AuthorID,
			Content:   t.Text,
			Timestamp: t.CreatedAt,
			Inbound:   true,
		}
		inserted, err := s.Store.AppendConversationMessage(ctx, rec.ID, msg)
		if err != nil {
			return added, fmt.Errorf("append message %s: %w", t.ID, err)
		}
		if inserted {
			added++
		}
	}

	msgs, err := s.Store.ConversationMessages(ctx, rec.ID)
	if err != nil {
		return added, fmt.Errorf("load messages: %w", err)
	}
	inbound := 0
	for _, m := range msgs {
		if m.Inbound {
			inbound++
		}
	}

	now := s.now()
	status := nextStatus(rec, inbound, now)
	if status != rec.Status {
		if err := s.Store.UpdateEngagementStatus(ctx, rec.ID, status, inbound); err != nil {
			return added, fmt.Errorf("update status: %w", err)
		}
		if rec.Status == model.StatusSent && inbound > 0 && rec.SourceQuery != "" {
			if err := s.Store.RecordQueryEngaged(ctx, accountID, rec.SourceQuery); err != nil {
				logging.Error("query_outcome_failed", map[string]any{
					"query": rec.SourceQuery, "error": err.Error(),
				})
			}
		}
		logging.Info("engagement_status", map[string]any{
			"engagement_id": rec.ID, "from": string(rec.Status), "to": string(status), "inbound": inbound,
		})
	} else if added > 0 {
		if err := s.Store.UpdateEngagementStatus(ctx, rec.ID, status, inbound); err != nil {
			return added, fmt.Errorf("update status: %w", err)
		}
	}

	if err := s.Store.TouchConversation(ctx, rec.ID, now); err != nil {
		return added, fmt.Errorf("touch conversation: %w", err)
	}
	return added, nil
}

// nextStatus computes the lifecycle transition for one engagement given
// the inbound message count. Transitions only move forward.
func nextStatus(rec model.EngagementRecord, inbound int, now time.Time) model.EngagementStatus {
	switch {
	case inbound >= conversationThreshold:
		return model.StatusConversation
	case inbound > 0:
		if rec.Status == model.StatusSent || rec.Status == model.StatusIgnored {
			return model.StatusGotReply
		}
		return rec.Status
	case rec.Status == model.StatusSent && now.Sub(rec.CreatedAt) > ignoreAfter:
		return model.StatusIgnored
	default:
		return rec.Status
	}
}
