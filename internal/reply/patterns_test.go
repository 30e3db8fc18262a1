package reply

import "testing"

func TestRejectPatternBank(t *testing.T) {
	cases := []struct {
		draft   string
		pattern string
	}{
		{"Agreed, hiring is brutal right now and the market is not helping anyone.", "sycophantic_opener"},
		{"Great point about onboarding, it really is the weak link for most teams.", "sycophantic_opener"},
		{"You should check out my tool for this, it handles the whole flow.", "self_promotion"},
		{"There is a writeup on this at https://example.com worth reading.", "link"},
		{"This is exactly why onboarding matters #startups #hiring", "hashtag"},
		{"Most teams hit this wall when [COMPANY] scales past ten people.", "bracket_placeholder"},
		{"Worth asking what this costs {your company} every single quarter.", "bracket_placeholder"},
		{"Think about what $Y in lost deals means for a team your size.", "variable_placeholder"},
		{"We cut churn 37% by fixing activation emails before anything else.", "fabricated_metric"},
		{"Happy to chat if you want, let's connect and talk it through.", "salesy_closer"},
		{"Focus on the low-hanging fruit first, then circle back to retention.", "corporate_cliche"},
	}
	for _, c := range cases {
		name, rejected := Reject(c.draft)
		if !rejected {
			t.Fatalf("expected rejection for %q", c.draft)
		}
		if name != c.pattern {
			t.Fatalf("draft %q: expected pattern %s, got %s", c.draft, c.pattern, name)
		}
	}
}

func TestRejectPassesCleanDraft(t *testing.T) {
	draft := "The hidden cost is usually calendar time, not salary. Every month that seat stays open, the rest of the team absorbs the work and quietly burns out."
	if name, rejected := Reject(draft); rejected {
		t.Fatalf("clean draft rejected as %s", name)
	}
	if reason, ok := QuickCheck(draft); !ok {
		t.Fatalf("clean draft failed quick check: %s", reason)
	}
}

func TestQuickCheckShape(t *testing.T) {
	if reason, ok := QuickCheck("too short"); ok || reason != "too_short" {
		t.Fatalf("got %q %v", reason, ok)
	}
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	if reason, ok := QuickCheck(string(long)); ok || reason != "over_length" {
		t.Fatalf("got %q %v", reason, ok)
	}
	if reason, ok := QuickCheck("WHY IS EVERYONE IGNORING THE OBVIOUS ANSWER HERE RIGHT NOW"); ok || reason != "too_shouty" {
		t.Fatalf("got %q %v", reason, ok)
	}
	if reason, ok := QuickCheck("Have you considered thiiiiiis angle?"); ok || reason != "low_content_question" {
		t.Fatalf("got %q %v", reason, ok)
	}
}
