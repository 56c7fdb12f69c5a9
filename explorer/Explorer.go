// Package explorer implements action-selection strategies layered on
// top of a model's predicted action values
package explorer

import (
	"gonum.org/v1/gonum/mat"
)

// Capabilities declares how an exploration strategy interacts with
// training so that agents can link the right callbacks without
// inspecting concrete explorer types. Decays means the explorer owns
// an epsilon schedule that must be advanced every training step. Noisy
// means exploration is injected structurally into the model's layers
// rather than at the action-selection call site.
type Capabilities struct {
	Decays bool
	Noisy  bool
}

// Explorer selects an action given the action values predicted by a
// model for a single state
type Explorer interface {
	SelectAction(actionValues mat.Vector) int
	Capabilities() Capabilities
}

// Decayer is an Explorer that owns an epsilon decay schedule
type Decayer interface {
	Explorer

	// Decay advances the epsilon schedule by one step
	Decay()

	// Epsilon returns the current exploration rate
	Epsilon() float64
}

// greedy returns the index of the highest action value, breaking ties
// in favour of the lowest index
func greedy(actionValues mat.Vector) int {
	best := 0
	for i := 1; i < actionValues.Len(); i++ {
		if actionValues.AtVec(i) > actionValues.AtVec(best) {
			best = i
		}
	}
	return best
}
