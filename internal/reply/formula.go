package reply

import "math/rand"

// Formula is a named rhetorical strategy steering reply generation.
type Formula string

const (
	FormulaContrarian    Formula = "contrarian_angle"
	FormulaAnecdote      Formula = "personal_anecdote"
	FormulaDataPoint     Formula = "data_point"
	FormulaProbing       Formula = "probing_question"
	FormulaMentalModel   Formula = "mental_model"
	FormulaMistake       Formula = "confessed_mistake"
	FormulaCuriosityGap  Formula = "curiosity_gap"
	FormulaEmpathetic    Formula = "empathetic_acknowledgment"
	FormulaCostOfWaiting Formula = "cost_of_inaction"
	FormulaFinancial     Formula = "financial_translation"
)

// formulaWeights biases the draw toward empathy and money framing.
var formulaWeights = map[Formula]int{
	FormulaContrarian:    1,
	FormulaAnecdote:      1,
	FormulaDataPoint:     1,
	FormulaProbing:       1,
	FormulaMentalModel:   1,
	FormulaMistake:       1,
	FormulaCuriosityGap:  1,
	FormulaEmpathetic:    2,
	FormulaCostOfWaiting: 2,
	FormulaFinancial:     2,
}

// Fixed iteration order keeps the sampler deterministic under a seeded rand.
var formulaOrder = []Formula{
	FormulaContrarian, FormulaAnecdote, FormulaDataPoint, FormulaProbing,
	FormulaMentalModel, FormulaMistake, FormulaCuriosityGap,
	FormulaEmpathetic, FormulaCostOfWaiting, FormulaFinancial,
}

var formulaGuidance = map[Formula]string{
	FormulaContrarian:    "Take a respectful contrarian angle on the post's premise.",
	FormulaAnecdote:      "Share a short, concrete personal experience that maps onto their situation. No invented numbers.",
	FormulaDataPoint:     "Bring one relevant, commonly known industry observation or data point. Never a fabricated first-person statistic.",
	FormulaProbing:       "Ask one sharp question that makes them reconsider an assumption.",
	FormulaMentalModel:   "Offer a compact mental model or framework that reframes their problem.",
	FormulaMistake:       "Admit a mistake you made in a similar spot and what it taught you.",
	FormulaCuriosityGap:  "Hint at a non-obvious cause or consequence without fully resolving it.",
	FormulaEmpathetic:    "Acknowledge the specific frustration in their words before adding one useful observation.",
	FormulaCostOfWaiting: "Surface what staying in the current situation quietly costs them.",
	FormulaFinancial:     "Translate their problem into time or money terms they haven't framed it in.",
}

// PickFormula draws one formula from the weight table.
func PickFormula(r *rand.Rand) Formula {
	total := 0
	for _, f := range formulaOrder {
		total += formulaWeights[f]
	}
	n := r.Intn(total)
	for _, f := range formulaOrder {
		n -= formulaWeights[f]
		if n < 0 {
			return f
		}
	}
	return formulaOrder[len(formulaOrder)-1]
}
