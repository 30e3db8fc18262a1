package model

// Candidate wraps a found post plus its AI evaluation. Ephemeral: scoped to
// one run, never persisted directly.
type Candidate struct {
	Tweet               Tweet
	Author              Author
	RelevanceScore      float64 // [0,10]
	EngagementPotential float64 // [0,10]
	Reasons             []string
	SourceQuery         string
}

// Ranking weights carried over from the original behavior; no deeper
// semantics intended.
const (
	relevanceWeight = 0.6
	potentialWeight = 0.4
)

// CombinedScore ranks candidates for reply-budget allocation.
func (c Candidate) CombinedScore() float64 {
	return relevanceWeight*c.RelevanceScore + potentialWeight*c.EngagementPotential
}
