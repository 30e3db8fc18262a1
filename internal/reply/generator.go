package reply

import (
	"context"
	"fmt"
	"strings"

	"replyforge/internal/llm"
	"replyforge/internal/metrics"
	"replyforge/internal/model"
	"replyforge/internal/util"
)

const generateSystemPrompt = `You write replies to social posts on behalf of a practitioner engaging their ideal customers.
Hard rules:
- Output the reply text only. No label, category name, or prefix of any kind.
- Never open with an agreement word (agreed, great point, so true, absolutely, love this).
- No self-promotion, no links, no hashtags, no offers to help or connect.
- Never invent first-person statistics or metrics.
- 280 characters maximum.
- End on an observation, a data point, or a single question. Never a sales close.`

func generateUserPrompt(prof model.TargetingProfile, cand model.Candidate, f Formula) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Post by @%s:\n%s\n\n", cand.Author.Username, cand.Tweet.Text)
	if cand.Author.Bio != "" {
		fmt.Fprintf(&b, "Author bio: %s\n\n", util.Truncate(cand.Author.Bio, 200))
	}
	fmt.Fprintf(&b, "Approach: %s\n\n", formulaGuidance[f])
	fmt.Fprintf(&b, "Your voice: %s.", prof.Style.Tone)
	if len(prof.Style.Do) > 0 {
		fmt.Fprintf(&b, " Do: %s.", strings.Join(prof.Style.Do, "; "))
	}
	if len(prof.Style.Avoid) > 0 {
		fmt.Fprintf(&b, " Avoid: %s.", strings.Join(prof.Style.Avoid, "; "))
	}
	b.WriteString("\n")
	if prof.Psychographics != nil {
		fmt.Fprintf(&b, "The reader's core fear: %s. How they justify spending: %s.\n",
			prof.Psychographics.CoreFear, prof.Psychographics.SpendingLogic)
	}
	if prof.CoreNeed != "" {
		fmt.Fprintf(&b, "Their unmet need: %s.\n", prof.CoreNeed)
	}
	if len(prof.PriorGrievances) > 0 {
		fmt.Fprintf(&b, "They have been burned before by: %s.\n", strings.Join(prof.PriorGrievances, "; "))
	}
	return b.String()
}

// Generate issues one drafting call for a candidate using the given formula.
func Generate(ctx context.Context, completer llm.Completer, prof model.TargetingProfile, cand model.Candidate, f Formula) (string, error) {
	metrics.IncLLMCall("reply_draft")
	raw, err := completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: generateSystemPrompt},
			{Role: "user", Content: generateUserPrompt(prof, cand, f)},
		},
		Temperature: 0.9,
		MaxTokens:   200,
		Tier:        llm.TierQuality,
	})
	if err != nil {
		return "", err
	}
	draft := strings.TrimSpace(raw)
	draft = strings.Trim(draft, `"`)
	return draft, nil
}
