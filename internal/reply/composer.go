package reply

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"replyforge/internal/llm"
	"replyforge/internal/logging"
	"replyforge/internal/model"
)

// ErrExhausted means no draft survived validation within the retry bound.
// The candidate is skipped for this run, not queued for a later one.
var ErrExhausted = errors.New("no viable reply within retry budget")

const maxComposeAttempts = 3

// Draft is a validated reply ready for the executor.
type Draft struct {
	Text    string
	Formula Formula
	Quality QualityResult
}

// Composer runs the full generate → pattern-reject → quality-score cycle.
type Composer struct {
	LLM  llm.Completer
	Rand *rand.Rand
}

func NewComposer(completer llm.Completer) *Composer {
	return &Composer{LLM: completer, Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Compose retries the whole cycle up to three times for one candidate.
// Each attempt redraws the formula, so a failing rhetorical angle is not
// repeated blindly.
func (c *Composer) Compose(ctx context.Context, prof model.TargetingProfile, cand model.Candidate) (Draft, error) {
	var lastErr error
	for attempt := 1; attempt <= maxComposeAttempts; attempt++ {
		f := PickFormula(c.Rand)
		draft, err := Generate(ctx, c.LLM, prof, cand, f)
		if err != nil {
			lastErr = err
			continue
		}
		if name, rejected := Reject(draft); rejected {
			logging.Debug("draft_pattern_rejected", map[string]any{
				"tweet_id": cand.Tweet.ID, "pattern": name, "attempt": attempt,
			})
			continue
		}
		if reason, ok := QuickCheck(draft); !ok {
			logging.Debug("draft_shape_rejected", map[string]any{
				"tweet_id": cand.Tweet.ID, "reason": reason, "attempt": attempt,
			})
			continue
		}
		quality, err := ScoreQuality(ctx, c.LLM, cand, draft)
		if err != nil {
			lastErr = err
			continue
		}
		if !quality.Passed {
			logging.Debug("draft_quality_rejected", map[string]any{
				"tweet_id": cand.Tweet.ID, "score": quality.OverallScore, "reason": quality.Reason, "attempt": attempt,
			})
			continue
		}
		return Draft{Text: draft, Formula: f, Quality: quality}, nil
	}
	if lastErr != nil {
		return Draft{}, errors.Join(ErrExhausted, lastErr)
	}
	return Draft{}, ErrExhausted
}
