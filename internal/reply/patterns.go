package reply

import (
	"regexp"
	"strings"

	"replyforge/internal/util"
)

// rejectPattern is one entry of the deterministic pattern bank. A match
// discards the draft with no further AI cost.
type rejectPattern struct {
	name string
	re   *regexp.Regexp
}

var rejectPatterns = []rejectPattern{
	{"sycophantic_opener", regexp.MustCompile(`(?i)^\s*(agreed|great point|love this|love that|so true|this!|this\.|couldn'?t agree more|well said|absolutely|100%|totally|exactly|spot on|yes!)\b`)},
	{"self_promotion", regexp.MustCompile(`(?i)\b(check out|my (product|tool|app|course|agency|newsletter)|we built|link in bio|dm me|visit (my|our))\b`)},
	{"link", regexp.MustCompile(`https?://`)},
	{"hashtag", regexp.MustCompile(`#\w+`)},
	{"bracket_placeholder", regexp.MustCompile(`\[[^\[\]]{0,40}\]|\{[^{}]{0,40}\}`)},
	{"variable_placeholder", regexp.MustCompile(`\$[A-Z]\b|\bYOUR_[A-Z_]+\b`)},
	{"fabricated_metric", regexp.MustCompile(`(?i)\b(i|we)\b[^.!?]*\b\d+(\.\d+)?\s?(%|percent\b|x\b)`)},
	{"salesy_closer", regexp.MustCompile(`(?i)\b(hop on a (quick )?call|book a (demo|call)|hit me up|let'?s connect|reach out|happy to (chat|help) if|i can help you with)\b`)},
	{"corporate_cliche", regexp.MustCompile(`(?i)\b(synergy|game.?changer|circle back|move the needle|low.?hanging fruit|at the end of the day|paradigm shift|best.?in.?class|win.?win)\b`)},
}

// Reject reports whether the draft matches the pattern bank, with the
// matching pattern's name.
func Reject(draft string) (string, bool) {
	for _, p := range rejectPatterns {
		if p.re.MatchString(draft) {
			return p.name, true
		}
	}
	return "", false
}

const (
	minDraftLength   = 30
	maxDraftLength   = 280
	maxUppercase     = 0.5
	minQuestionWords = 6
)

// QuickCheck applies the cheap shape gates that follow the pattern bank.
func QuickCheck(draft string) (string, bool) {
	trimmed := strings.TrimSpace(draft)
	if len(trimmed) < minDraftLength {
		return "too_short", false
	}
	if len(trimmed) > maxDraftLength {
		return "over_length", false
	}
	if util.UppercaseRatio(trimmed) > maxUppercase {
		return "too_shouty", false
	}
	if strings.HasSuffix(trimmed, "?") && util.WordCount(trimmed) < minQuestionWords {
		return "low_content_question", false
	}
	return "", true
}
