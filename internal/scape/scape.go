package scape

import "mnemos/internal/model"

// Environment is a one-step transition model: Reset draws a starting
// state, Step scores an action against it and moves on.
type Environment interface {
	Name() string
	Reset() model.State
	Step(action model.Action) (model.State, float64)
	State() model.State
}
