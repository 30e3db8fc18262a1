package reply

import (
	"math/rand"
	"testing"
)

func TestPickFormulaAlwaysValid(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		f := PickFormula(r)
		if _, ok := formulaWeights[f]; !ok {
			t.Fatalf("unknown formula %q", f)
		}
	}
}

func TestPickFormulaDeterministicUnderSeed(t *testing.T) {
	a := rand.New(rand.NewSource(42))
	b := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		if PickFormula(a) != PickFormula(b) {
			t.Fatal("same seed diverged")
		}
	}
}

func TestPickFormulaRespectsWeights(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	counts := map[Formula]int{}
	const draws = 13000
	for i := 0; i < draws; i++ {
		counts[PickFormula(r)]++
	}
	// Weight-2 formulas should draw roughly twice as often as weight-1 ones.
	if counts[FormulaEmpathetic] <= counts[FormulaContrarian] {
		t.Fatalf("empathetic %d not favored over contrarian %d",
			counts[FormulaEmpathetic], counts[FormulaContrarian])
	}
	for _, f := range formulaOrder {
		if counts[f] == 0 {
			t.Fatalf("formula %q never drawn", f)
		}
	}
}
