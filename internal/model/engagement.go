package model

import "time"

// EngagementStatus is the lifecycle state of an engagement record.
type EngagementStatus string

const (
	StatusSent         EngagementStatus = "sent"
	StatusGotReply     EngagementStatus = "got_reply"
	StatusGotLike      EngagementStatus = "got_like"
	StatusGotFollow    EngagementStatus = "got_follow"
	StatusConversation EngagementStatus = "conversation"
	StatusIgnored      EngagementStatus = "ignored"
)

// EngagementRecord is the durable record of one attempted reply, keyed by
// the target post's platform id. Created at successful-post time, mutated
// later by the conversation monitor, never deleted in normal operation.
type EngagementRecord struct {
	ID              string
	AccountID       string
	Platform        string
	TargetPostID    string
	TargetText      string
	TargetLikes     int
	TargetReplies   int
	AuthorID        string
	AuthorUsername  string
	AuthorFollowers int

	ReplyContent string
	ReplyID      string
	ReplyURL     string

	RelevanceScore float64
	MatchedSignals []string
	SourceQuery    string

	Status       EngagementStatus
	FollowUp     FollowUp
	Conversation *ConversationTracking

	DryRun    bool
	CreatedAt time.Time
}

// FollowUp tracks downstream outcomes of a sent reply.
type FollowUp struct {
	Replied            bool
	Liked              bool
	Followed           bool
	ConversationLength int
}

// ConversationTracking seeds later follow-up on the reply's thread.
type ConversationTracking struct {
	ThreadID                 string
	LastCheckedAt            time.Time
	AutoResponseEnabled      bool
	MaxAutoResponses         int
	CurrentAutoResponseCount int
}

// ConversationMessage is one entry of an engagement's ordered message log.
type ConversationMessage struct {
	ID        string
	Author    string
	Content   string
	Timestamp time.Time
	Inbound   bool
	URL       string
}
