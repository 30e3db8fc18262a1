package profile

import (
	"strings"

	"replyforge/internal/model"
)

// referencePersona is one entry of the fixed persona library used to fill
// sparse psychographic layers.
type referencePersona struct {
	Name       string
	Keywords   []string
	Psycho     model.Psychographics
	CoreNeed   string
	Grievances []string
}

var personaLibrary = []referencePersona{
	{
		Name:     "bootstrapped founder",
		Keywords: []string{"founder", "ceo", "startup", "bootstrap", "saas", "indie"},
		Psycho: model.Psychographics{
			Values:        []string{"autonomy", "speed", "capital efficiency"},
			BeliefSystem:  "default alive beats default funded",
			CoreFear:      "running out of runway before product-market fit",
			SpendingLogic: "pays for tools that directly create revenue or save founder hours",
		},
		CoreNeed:   "predictable pipeline without hiring a sales team",
		Grievances: []string{"agencies that billed retainers and delivered decks", "tools that needed a full-time admin"},
	},
	{
		Name:     "sales leader",
		Keywords: []string{"sales", "revenue", "quota", "pipeline", "account executive", "cro", "vp sales"},
		Psycho: model.Psychographics{
			Values:        []string{"accountability", "forecast accuracy", "repeatability"},
			BeliefSystem:  "activity is a vanity metric, conversion is the truth",
			CoreFear:      "missing the number two quarters in a row",
			SpendingLogic: "buys what shortens the sales cycle, measured in closed-won",
		},
		CoreNeed:   "visibility into which deals are actually going to close",
		Grievances: []string{"data vendors with stale contact lists", "enablement platforms reps never opened"},
	},
	{
		Name:     "marketing lead",
		Keywords: []string{"marketing", "growth", "demand", "brand", "content", "cmo", "seo"},
		Psycho: model.Psychographics{
			Values:        []string{"attribution", "creativity", "compounding channels"},
			BeliefSystem:  "owned audience beats rented reach",
			CoreFear:      "being seen as a cost center when budgets tighten",
			SpendingLogic: "funds channels with provable CAC payback inside two quarters",
		},
		CoreNeed:   "a channel that compounds instead of resetting every month",
		Grievances: []string{"agencies reporting impressions instead of pipeline", "paid channels whose CPC doubled year over year"},
	},
	{
		Name:     "engineering manager",
		Keywords: []string{"engineering", "cto", "developer", "platform", "infrastructure", "devops", "tech lead"},
		Psycho: model.Psychographics{
			Values:        []string{"reliability", "team leverage", "boring technology"},
			BeliefSystem:  "the best tool is the one the team stops noticing",
			CoreFear:      "an outage or hiring mistake that stalls the roadmap for a quarter",
			SpendingLogic: "pays for removed toil; allergic to seat-based pricing surprises",
		},
		CoreNeed:   "shipping the roadmap without burning out the senior engineers",
		Grievances: []string{"vendors whose migration took longer than the build-it-ourselves estimate", "observability bills that scaled faster than traffic"},
	},
	{
		Name:     "operations owner",
		Keywords: []string{"operations", "ops", "logistics", "coo", "process", "workflow", "supply"},
		Psycho: model.Psychographics{
			Values:        []string{"predictability", "margins", "documentation"},
			BeliefSystem:  "every manual handoff is a future incident",
			CoreFear:      "a process that only lives in one employee's head",
			SpendingLogic: "buys per removed spreadsheet, not per feature list",
		},
		CoreNeed:   "processes that survive employee turnover",
		Grievances: []string{"ERPs that required consultants for every change", "automation tools that broke silently"},
	},
	{
		Name:     "agency owner",
		Keywords: []string{"agency", "consultant", "freelance", "client", "retainer", "studio"},
		Psycho: model.Psychographics{
			Values:        []string{"client results", "utilization", "referrals"},
			BeliefSystem:  "case studies close deals, cold outreach starts them",
			CoreFear:      "losing the anchor client that covers payroll",
			SpendingLogic: "spends on what wins or retains clients this quarter",
		},
		CoreNeed:   "a steady inbound stream that decouples revenue from founder selling time",
		Grievances: []string{"lead gen vendors reselling the same scraped lists", "platforms that took a cut and owned the client relationship"},
	},
}

// matchPersona returns the best persona for the audience signals by
// substring overlap scoring. Always returns an entry; ties and zero scores
// fall back to the first library entry.
func matchPersona(signals []string) referencePersona {
	best := personaLibrary[0]
	bestScore := -1
	for _, p := range personaLibrary {
		score := 0
		for _, kw := range p.Keywords {
			for _, sig := range signals {
				if strings.Contains(strings.ToLower(sig), kw) {
					score++
				}
			}
		}
		if score > bestScore {
			best = p
			bestScore = score
		}
	}
	return best
}

// enrichPsychographics fills only the missing psychographic sub-fields from
// the best-match persona. AI-derived values are never overwritten.
func enrichPsychographics(prof *model.TargetingProfile) {
	needsPsycho := prof.Psychographics == nil ||
		prof.Psychographics.CoreFear == "" ||
		prof.Psychographics.BeliefSystem == "" ||
		prof.Psychographics.SpendingLogic == ""
	if !needsPsycho && prof.CoreNeed != "" && len(prof.PriorGrievances) > 0 {
		return
	}
	p := matchPersona(prof.AudienceSignals())
	if prof.Psychographics == nil {
		psy := p.Psycho
		prof.Psychographics = &psy
	} else {
		if prof.Psychographics.CoreFear == "" {
			prof.Psychographics.CoreFear = p.Psycho.CoreFear
		}
		if prof.Psychographics.BeliefSystem == "" {
			prof.Psychographics.BeliefSystem = p.Psycho.BeliefSystem
		}
		if prof.Psychographics.SpendingLogic == "" {
			prof.Psychographics.SpendingLogic = p.Psycho.SpendingLogic
		}
		if len(prof.Psychographics.Values) == 0 {
			prof.Psychographics.Values = p.Psycho.Values
		}
	}
	if prof.CoreNeed == "" {
		prof.CoreNeed = p.CoreNeed
	}
	if len(prof.PriorGrievances) == 0 {
		prof.PriorGrievances = p.Grievances
	}
}
