package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"replyforge/internal/model"
)

// CreateEngagement persists one engagement record. A second record for the
// same target post id returns ErrDuplicateEngagement; the UNIQUE constraint
// is the only safeguard against double-posting after a partial failure.
func (s *Store) CreateEngagement(ctx context.Context, rec model.EngagementRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	signals, _ := json.Marshal(rec.MatchedSignals)
	var threadID sql.NullString
	var lastChecked sql.NullInt64
	autoEnabled, maxAuto, autoCount := 0, 0, 0
	if rec.Conversation != nil {
		threadID = sql.NullString{String: rec.Conversation.ThreadID, Valid: true}
		if !rec.Conversation.LastCheckedAt.IsZero() {
			lastChecked = sql.NullInt64{Int64: rec.Conversation.LastCheckedAt.Unix(), Valid: true}
		}
		if rec.Conversation.AutoResponseEnabled {
			autoEnabled = 1
		}
		maxAuto = rec.Conversation.MaxAutoResponses
		autoCount = rec.Conversation.CurrentAutoResponseCount
	}
	_, err := s.sql.ExecContext(ctx, `
	INSERT INTO engagements(
	  id, account_id, platform, target_post_id, target_text, target_likes, target_replies,
	  author_id, author_username, author_followers,
	  reply_content, reply_id, reply_url, relevance, matched_signals, source_query, status,
	  fu_replied, fu_liked, fu_followed, fu_conversation_length,
	  conv_thread_id, conv_last_checked, conv_auto_enabled, conv_max_auto, conv_auto_count,
	  dry_run, created_at
	) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.AccountID, rec.Platform, rec.TargetPostID, rec.TargetText, rec.TargetLikes, rec.TargetReplies,
		rec.AuthorID, rec.AuthorUsername, rec.AuthorFollowers,
		rec.ReplyContent, rec.ReplyID, rec.ReplyURL, rec.RelevanceScore, string(signals), rec.SourceQuery, string(rec.Status),
		b2i(rec.FollowUp.Replied), b2i(rec.FollowUp.Liked), b2i(rec.FollowUp.Followed), rec.FollowUp.ConversationLength,
		threadID, lastChecked, autoEnabled, maxAuto, autoCount,
		b2i(rec.DryRun), created.Unix())
	if isUniqueViolation(err) {
		return ErrDuplicateEngagement
	}
	return err
}

// HasRecentEngagement reports whether this author was engaged within the
// window before now. Keyed by author id and timestamp, never by post id.
func (s *Store) HasRecentEngagement(ctx context.Context, accountID, authorID string, window time.Duration, now time.Time) (bool, error) {
	cutoff := now.Add(-window)
	row := s.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM engagements WHERE account_id=? AND author_id=? AND created_at>=?`,
		accountID, authorID, cutoff.Unix())
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// SeedConversation attaches conversation tracking to an existing record.
func (s *Store) SeedConversation(ctx context.Context, engagementID string, t model.ConversationTracking) error {
	_, err := s.sql.ExecContext(ctx, `
	UPDATE engagements SET conv_thread_id=?, conv_last_checked=?, conv_auto_enabled=?, conv_max_auto=?, conv_auto_count=?
	WHERE id=?`,
		t.ThreadID, nullUnix(t.LastCheckedAt), b2i(t.AutoResponseEnabled), t.MaxAutoResponses, t.CurrentAutoResponseCount,
		engagementID)
	return err
}

// AppendConversationMessage appends to the ordered message log. Re-appending
// the same message id is a no-op so conversation sync can re-scan safely;
// the bool reports whether the message was actually new.
func (s *Store) AppendConversationMessage(ctx context.Context, engagementID string, m model.ConversationMessage) (bool, error) {
	_, err := s.sql.ExecContext(ctx, `
	INSERT INTO conversation_messages(engagement_id, message_id, author, content, ts, inbound, url)
	VALUES(?,?,?,?,?,?,?)`,
		engagementID, m.ID, m.Author, m.Content, m.Timestamp.Unix(), b2i(m.Inbound), m.URL)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ConversationMessages returns the message log ordered by timestamp.
func (s *Store) ConversationMessages(ctx context.Context, engagementID string) ([]model.ConversationMessage, error) {
	rows, err := s.sql.QueryContext(ctx, `
	SELECT message_id, author, content, ts, inbound, url
	FROM conversation_messages WHERE engagement_id=? ORDER BY ts`, engagementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ConversationMessage
	for rows.Next() {
		var m model.ConversationMessage
		var ts int64
		var inbound int
		var author, content, u sql.NullString
		if err := rows.Scan(&m.ID, &author, &content, &ts, &inbound, &u); err != nil {
			return nil, err
		}
		m.Author = author.String
		m.Content = content.String
		m.URL = u.String
		m.Timestamp = time.Unix(ts, 0).UTC()
		m.Inbound = inbound == 1
		out = append(out, m)
	}
	return out, rows.Err()
}

// BumpAutoResponseCount increments the auto-response counter and touches
// the last-checked timestamp.
func (s *Store) BumpAutoResponseCount(ctx context.Context, engagementID string, now time.Time) error {
	_, err := s.sql.ExecContext(ctx,
		`UPDATE engagements SET conv_auto_count=conv_auto_count+1, conv_last_checked=? WHERE id=?`,
		now.Unix(), engagementID)
	return err
}

// TouchConversation updates the last-checked timestamp only.
func (s *Store) TouchConversation(ctx context.Context, engagementID string, now time.Time) error {
	_, err := s.sql.ExecContext(ctx,
		`UPDATE engagements SET conv_last_checked=? WHERE id=?`, now.Unix(), engagementID)
	return err
}

// UpdateEngagementStatus advances the lifecycle status and the observed
// conversation length.
func (s *Store) UpdateEngagementStatus(ctx context.Context, engagementID string, status model.EngagementStatus, conversationLength int) error {
	_, err := s.sql.ExecContext(ctx,
		`UPDATE engagements SET status=?, fu_replied=CASE WHEN ?>0 THEN 1 ELSE fu_replied END, fu_conversation_length=? WHERE id=?`,
		string(status), conversationLength, conversationLength, engagementID)
	return err
}

// ListEngagements returns all records for an account, newest first.
func (s *Store) ListEngagements(ctx context.Context, accountID string) ([]model.EngagementRecord, error) {
	rows, err := s.sql.QueryContext(ctx, `
	SELECT id, account_id, platform, target_post_id, target_text, target_likes, target_replies,
	  author_id, author_username, author_followers,
	  reply_content, reply_id, reply_url, relevance, matched_signals, source_query, status,
	  fu_replied, fu_liked, fu_followed, fu_conversation_length,
	  conv_thread_id, conv_last_checked, conv_auto_enabled, conv_max_auto, conv_auto_count,
	  dry_run, created_at
	FROM engagements WHERE account_id=? ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.EngagementRecord
	for rows.Next() {
		rec, err := scanEngagement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TrackedEngagements returns records with conversation tracking enabled,
// for the conversation sync job.
func (s *Store) TrackedEngagements(ctx context.Context, accountID string) ([]model.EngagementRecord, error) {
	rows, err := s.sql.QueryContext(ctx, `
	SELECT id, account_id, platform, target_post_id, target_text, target_likes, target_replies,
	  author_id, author_username, author_followers,
	  reply_content, reply_id, reply_url, relevance, matched_signals, source_query, status,
	  fu_replied, fu_liked, fu_followed, fu_conversation_length,
	  conv_thread_id, conv_last_checked, conv_auto_enabled, conv_max_auto, conv_auto_count,
	  dry_run, created_at
	FROM engagements
	WHERE account_id=? AND conv_thread_id IS NOT NULL AND conv_thread_id<>'' AND dry_run=0
	ORDER BY created_at`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.EngagementRecord
	for rows.Next() {
		rec, err := scanEngagement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// QueryOutcome carries per-query send/engagement counters for refinement.
type QueryOutcome struct {
	Query   string
	Sends   int
	Engaged int
}

// RecordQuerySend bumps the send counter for a query.
func (s *Store) RecordQuerySend(ctx context.Context, accountID, query string) error {
	_, err := s.sql.ExecContext(ctx, `
	INSERT INTO query_outcomes(account_id, query, sends, engaged) VALUES(?,?,1,0)
	ON CONFLICT(account_id, query) DO UPDATE SET sends=sends+1`, accountID, query)
	return err
}

// RecordQueryEngaged bumps the confirmed-engagement counter for a query.
func (s *Store) RecordQueryEngaged(ctx context.Context, accountID, query string) error {
	_, err := s.sql.ExecContext(ctx, `
	INSERT INTO query_outcomes(account_id, query, sends, engaged) VALUES(?,?,0,1)
	ON CONFLICT(account_id, query) DO UPDATE SET engaged=engaged+1`, accountID, query)
	return err
}

// QueryOutcomes returns all outcome counters for an account.
func (s *Store) QueryOutcomes(ctx context.Context, accountID string) ([]QueryOutcome, error) {
	rows, err := s.sql.QueryContext(ctx,
		`SELECT query, sends, engaged FROM query_outcomes WHERE account_id=?`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []QueryOutcome
	for rows.Next() {
		var o QueryOutcome
		if err := rows.Scan(&o.Query, &o.Sends, &o.Engaged); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanEngagement(rows *sql.Rows) (model.EngagementRecord, error) {
	var rec model.EngagementRecord
	var targetText, authorUsername, replyContent, replyID, replyURL, signals, sourceQuery, threadID sql.NullString
	var lastChecked sql.NullInt64
	var status string
	var replied, liked, followed, autoEnabled, maxAuto, autoCount, dryRun int
	var created int64
	if err := rows.Scan(
		&rec.ID, &rec.AccountID, &rec.Platform, &rec.TargetPostID, &targetText, &rec.TargetLikes, &rec.TargetReplies,
		&rec.AuthorID, &authorUsername, &rec.AuthorFollowers,
		&replyContent, &replyID, &replyURL, &rec.RelevanceScore, &signals, &sourceQuery, &status,
		&replied, &liked, &followed, &rec.FollowUp.ConversationLength,
		&threadID, &lastChecked, &autoEnabled, &maxAuto, &autoCount,
		&dryRun, &created,
	); err != nil {
		return rec, err
	}
	rec.TargetText = targetText.String
	rec.AuthorUsername = authorUsername.String
	rec.ReplyContent = replyContent.String
	rec.ReplyID = replyID.String
	rec.ReplyURL = replyURL.String
	rec.SourceQuery = sourceQuery.String
	rec.Status = model.EngagementStatus(status)
	rec.FollowUp.Replied = replied == 1
	rec.FollowUp.Liked = liked == 1
	rec.FollowUp.Followed = followed == 1
	rec.DryRun = dryRun == 1
	rec.CreatedAt = time.Unix(created, 0).UTC()
	if signals.Valid && signals.String != "" {
		_ = json.Unmarshal([]byte(signals.String), &rec.MatchedSignals)
	}
	if threadID.Valid && threadID.String != "" {
		rec.Conversation = &model.ConversationTracking{
			ThreadID:                 threadID.String,
			AutoResponseEnabled:      autoEnabled == 1,
			MaxAutoResponses:         maxAuto,
			CurrentAutoResponseCount: autoCount,
		}
		if lastChecked.Valid {
			rec.Conversation.LastCheckedAt = time.Unix(lastChecked.Int64, 0).UTC()
		}
	}
	return rec, nil
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullUnix(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}
