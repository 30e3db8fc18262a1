package model

import "time"

// RunResult aggregates one pipeline invocation for the caller.
type RunResult struct {
	RunID      string
	AccountID  string
	StartedAt  time.Time
	FinishedAt time.Time
	Success    bool

	Profile TargetingProfile

	QueriesExecuted     int
	CandidatesFound     int
	CandidatesEvaluated int
	RepliesAttempted    int
	RepliesSuccessful   int

	Engagements []EngagementRecord
	Errors      []string
}
