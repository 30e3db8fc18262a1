package filter

import (
	"context"
	"regexp"
	"time"

	"replyforge/internal/config"
	"replyforge/internal/logging"
	"replyforge/internal/metrics"
	"replyforge/internal/model"
	"replyforge/internal/util"
)

// CooldownStore is the single storage lookup the filter pipeline is allowed.
type CooldownStore interface {
	HasRecentEngagement(ctx context.Context, accountID, authorID string, window time.Duration, now time.Time) (bool, error)
}

// Pipeline applies cheap deterministic rejection rules before any AI cost
// is spent. Rejections are expected and frequent; they log at debug only.
type Pipeline struct {
	Store CooldownStore
	Cfg   config.AgentConfig
	Now   func() time.Time
}

const minPostLength = 50
const maxHashtags = 5

// Job-seeker / non-decision-maker phrasing.
var jobSeekerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\blooking for (a |an )?(job|internship|role|opportunit)`),
	regexp.MustCompile(`(?i)\bcareer advice\b`),
	regexp.MustCompile(`(?i)\bany (tips|advice) for (break|gett)ing into\b`),
	regexp.MustCompile(`(?i)\bintern(ship)?s?\b`),
	regexp.MustCompile(`(?i)\b(i'?m|i am) (a )?\d{2}\s?(yo|y/o|year[- ]old)\b`),
	regexp.MustCompile(`(?i)\bopen to work\b`),
	regexp.MustCompile(`(?i)\b(recent|new) grad(uate)?\b`),
	regexp.MustCompile(`(?i)\bresume (review|feedback)\b`),
}

// Hard off-topic verticals; rejected irrespective of relevance score.
var offTopicKeywords = []string{
	"crypto", "bitcoin", "ethereum", "nft", "web3",
	"forex", "day trading", "options trading", "stock picks",
	"car dealership", "automotive", "dealership",
	"defense contractor", "military contract",
	"fashion brand", "streetwear", "clothing line",
	"house flipping", "flipping houses", "wholesaling real estate",
}

// Check returns whether the candidate survives, with the rejection reason
// when it does not. Pure function of its inputs plus one cooldown lookup.
func (p *Pipeline) Check(ctx context.Context, accountID string, tweet model.Tweet, author *model.Author) (bool, string, error) {
	if reason := p.staticReject(tweet, author); reason != "" {
		p.logReject(tweet, reason)
		return false, reason, nil
	}
	now := time.Now().UTC()
	if p.Now != nil {
		now = p.Now()
	}
	recent, err := p.Store.HasRecentEngagement(ctx, accountID, author.ID, p.Cfg.CooldownWindow(), now)
	if err != nil {
		return false, "", err
	}
	if recent {
		p.logReject(tweet, "author_cooldown")
		return false, "author_cooldown", nil
	}
	return true, "", nil
}

func (p *Pipeline) staticReject(tweet model.Tweet, author *model.Author) string {
	if author == nil || author.ID == "" {
		return "no_author_record"
	}
	if author.FollowersCount < p.Cfg.MinFollowers || author.FollowersCount > p.Cfg.MaxFollowers {
		return "followers_out_of_range"
	}
	if author.Verified && p.Cfg.SkipVerified {
		return "verified_author"
	}
	if len(tweet.Text) < minPostLength {
		return "post_too_short"
	}
	if util.HashtagCount(tweet.Text) > maxHashtags {
		return "too_many_hashtags"
	}
	for _, re := range jobSeekerPatterns {
		if re.MatchString(tweet.Text) {
			return "job_seeker_pattern"
		}
	}
	if util.ContainsAnyFold(tweet.Text, offTopicKeywords) || util.ContainsAnyFold(author.Bio, offTopicKeywords) {
		return "off_topic_vertical"
	}
	return ""
}

func (p *Pipeline) logReject(tweet model.Tweet, reason string) {
	metrics.IncFilterRejection(reason)
	logging.Debug("candidate_filtered", map[string]any{
		"tweet_id": tweet.ID,
		"reason":   reason,
	})
}
