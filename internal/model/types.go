package model

import "time"

// Author represents a subset of platform user fields used by the pipeline.
type Author struct {
	ID             string
	Username       string
	Name           string
	Bio            string
	CreatedAt      time.Time
	FollowersCount int
	FollowingCount int
	TweetCount     int
	Verified       bool
}

// Tweet represents a subset of platform post fields used by the pipeline.
type Tweet struct {
	ID             string
	AuthorID       string
	ConversationID string
	Text           string
	CreatedAt      time.Time
	LikeCount      int
	ReplyCount     int
	RetweetCount   int
	QuoteCount     int
	Language       string
}

// PostedReply is what the platform hands back after a successful reply.
type PostedReply struct {
	ID  string
	URL string
}

// Credential is a per-account platform token set. Owned and rotated by an
// external refresh process; this subsystem only ever reads it.
type Credential struct {
	AccountID      string
	Platform       string
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}
