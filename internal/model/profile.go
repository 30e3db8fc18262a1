package model

// TargetingProfile is the derived targeting profile for one account.
// It is regenerated (or loaded from cache) per run, never persisted verbatim.
type TargetingProfile struct {
	Audience        TargetAudience   `json:"targetAudience"`
	PainPoints      []PainPoint      `json:"painPoints"`
	SearchQueries   []SearchQuery    `json:"searchQueries"`
	ValueProp       ValueProposition `json:"valueProposition"`
	Style           EngagementStyle  `json:"engagementStyle"`
	Psychographics  *Psychographics  `json:"psychographics,omitempty"`
	CoreNeed        string           `json:"coreNeed,omitempty"`
	PriorGrievances []string         `json:"priorGrievances,omitempty"`
}

type TargetAudience struct {
	Roles        []string `json:"roles"`
	Industries   []string `json:"industries"`
	CompanySizes []string `json:"companySizes"`
	Seniority    []string `json:"seniority"`
}

// PainPoint is one problem the audience is assumed to feel.
type PainPoint struct {
	Problem  string   `json:"problem"`
	Urgency  string   `json:"urgency"` // low, medium, high
	Keywords []string `json:"keywords"`
}

// SearchQuery is one platform search query with a priority in [1,10].
type SearchQuery struct {
	Text     string `json:"text"`
	Intent   string `json:"intent"`
	Priority int    `json:"priority"`
}

type ValueProposition struct {
	Expertise   []string `json:"expertiseAreas"`
	Angle       string   `json:"differentiatingAngle"`
	AvoidTopics []string `json:"avoidTopics"`
}

type EngagementStyle struct {
	Tone  string   `json:"tone"`
	Do    []string `json:"do"`
	Avoid []string `json:"avoid"`
}

// Psychographics humanizes generated replies. Optional: consumers must
// tolerate its absence and fall back to a reference persona.
type Psychographics struct {
	Values        []string `json:"values"`
	BeliefSystem  string   `json:"beliefSystem"`
	CoreFear      string   `json:"coreFear"`
	SpendingLogic string   `json:"spendingLogic"`
}

// AudienceSignals flattens the audience descriptors into matchable strings.
func (p TargetingProfile) AudienceSignals() []string {
	var out []string
	out = append(out, p.Audience.Roles...)
	out = append(out, p.Audience.Industries...)
	out = append(out, p.Audience.Seniority...)
	for _, pp := range p.PainPoints {
		out = append(out, pp.Keywords...)
	}
	return out
}
