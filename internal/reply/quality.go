package reply

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"replyforge/internal/llm"
	"replyforge/internal/metrics"
	"replyforge/internal/model"
)

// QualityResult is the second, independent evaluation of a draft.
type QualityResult struct {
	Specificity           float64
	ValueAdd              float64
	ConversationStarter   float64
	Authenticity          float64
	ProfileClickPotential float64
	OverallScore          float64
	Passed                bool
	Reason                string
}

const passingScore = 6
const autoFailLength = 50

var agreementOpener = regexp.MustCompile(`(?i)^\s*(agreed|great point|so true|absolutely|love this|totally|100%)\b`)
var fabricatedStat = regexp.MustCompile(`(?i)\b(i|we)\b[^.!?]*\b\d+(\.\d+)?\s?(%|percent\b|x\b)`)

const qualitySystemPrompt = `You are a strict reviewer of draft replies to social posts.
Score the draft 0-10 on: specificity (references the actual post), valueAdd, conversationStarter, authenticity, profileClickPotential.
Auto-fail (passesQuality=false regardless of scores) when the draft: opens with an agreement word, is generic boilerplate that fits any post, contains a fabricated statistic, contains nothing specific to this post, or is under 50 characters.
Respond with strict JSON:
{"specificity":0,"valueAdd":0,"conversationStarter":0,"authenticity":0,"profileClickPotential":0,"overallScore":0,"passesQuality":true,"reason":""}`

// ScoreQuality runs the quality gate. Deterministic auto-fail rules fire
// before any model involvement; model output is untrusted and normalized.
func ScoreQuality(ctx context.Context, completer llm.Completer, cand model.Candidate, draft string) (QualityResult, error) {
	if reason, failed := deterministicAutoFail(draft); failed {
		return QualityResult{Reason: reason}, nil
	}
	metrics.IncLLMCall("reply_quality")
	raw, err := completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: qualitySystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Original post:\n%s\n\nDraft reply:\n%s", cand.Tweet.Text, draft)},
		},
		Temperature: 0.1,
		MaxTokens:   300,
		Tier:        llm.TierQuality,
	})
	if err != nil {
		return QualityResult{Reason: "quality call failed"}, err
	}
	return parseQuality(raw), nil
}

func deterministicAutoFail(draft string) (string, bool) {
	trimmed := strings.TrimSpace(draft)
	if len(trimmed) < autoFailLength {
		return "under 50 characters", true
	}
	if agreementOpener.MatchString(trimmed) {
		return "agreement-word opener", true
	}
	if fabricatedStat.MatchString(trimmed) {
		return "fabricated statistic", true
	}
	return "", false
}

// parseQuality normalizes untrusted model output. A missing or out-of-range
// overall score becomes the sub-dimension average; a missing passesQuality
// flag falls back to overall >= 6. Unparseable output fails the draft.
func parseQuality(raw string) QualityResult {
	extracted := llm.ExtractJSON(raw)
	if extracted == "" {
		return QualityResult{Reason: "unparseable quality response"}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(extracted), &fields); err != nil {
		return QualityResult{Reason: "unparseable quality response"}
	}
	q := QualityResult{
		Specificity:           numField(fields, "specificity"),
		ValueAdd:              numField(fields, "valueAdd"),
		ConversationStarter:   numField(fields, "conversationStarter"),
		Authenticity:          numField(fields, "authenticity"),
		ProfileClickPotential: numField(fields, "profileClickPotential"),
	}
	sum := q.Specificity + q.ValueAdd + q.ConversationStarter + q.Authenticity + q.ProfileClickPotential
	avg := sum / 5
	overall := numFieldRaw(fields, "overallScore")
	if overall == nil || *overall < 0 || *overall > 10 {
		q.OverallScore = avg
	} else {
		q.OverallScore = *overall
	}
	if reason, ok := fields["reason"]; ok {
		_ = json.Unmarshal(reason, &q.Reason)
	}
	if pq, ok := fields["passesQuality"]; ok {
		var passes bool
		if err := json.Unmarshal(pq, &passes); err == nil {
			q.Passed = passes
			return q
		}
	}
	q.Passed = q.OverallScore >= passingScore
	return q
}

func numField(fields map[string]json.RawMessage, key string) float64 {
	if v := numFieldRaw(fields, key); v != nil {
		if *v < 0 {
			return 0
		}
		if *v > 10 {
			return 10
		}
		return *v
	}
	return 0
}

func numFieldRaw(fields map[string]json.RawMessage, key string) *float64 {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}
