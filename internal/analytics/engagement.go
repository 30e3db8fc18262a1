package analytics

import (
	"sort"
	"time"

	"replyforge/internal/model"
)

// ByStatus counts engagement records per lifecycle status.
func ByStatus(recs []model.EngagementRecord) map[model.EngagementStatus]int {
	out := make(map[model.EngagementStatus]int)
	for _, r := range recs {
		out[r.Status]++
	}
	return out
}

// HourlyActivity buckets records by send hour, counting per status.
func HourlyActivity(recs []model.EngagementRecord) map[time.Time]map[string]int {
	buckets := make(map[time.Time]map[string]int)
	for _, r := range recs {
		t := r.CreatedAt.UTC()
		key := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
		if _, ok := buckets[key]; !ok {
			buckets[key] = make(map[string]int)
		}
		buckets[key][string(r.Status)]++
	}
	return buckets
}

// SortedBucketKeys returns the hour keys in chronological order.
func SortedBucketKeys(m map[time.Time]map[string]int) []time.Time {
	keys := make([]time.Time, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

// ResponseRate is the share of non-dry-run records that drew any inbound
// reaction. Returns 0 when nothing has been sent.
func ResponseRate(recs []model.EngagementRecord) float64 {
	sent, responded := 0, 0
	for _, r := range recs {
		if r.DryRun {
			continue
		}
		sent++
		switch r.Status {
		case model.StatusGotReply, model.StatusGotLike, model.StatusGotFollow, model.StatusConversation:
			responded++
		}
	}
	if sent == 0 {
		return 0
	}
	return float64(responded) / float64(sent)
}
