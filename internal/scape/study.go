package scape

import (
	"math/rand"

	"mnemos/internal/model"
)

const (
	MinAvgTime      = 5.0
	MaxAvgTime      = 20.0
	MinCorrectRatio = 0.5
	MaxCorrectRatio = 1.0

	RetentionBonus = 10.0
	ReviewPenalty  = 0.1
	NewPenalty     = 0.2
)

// StudyScape simulates a learner. States are independent uniform draws, so
// the next state never depends on the action or the previous state; only
// the reward reflects the action.
type StudyScape struct {
	rng   *rand.Rand
	state model.State
}

// NewStudyScape uses rng for every draw. The caller owns rng and must not
// share it across goroutines without its own locking.
func NewStudyScape(rng *rand.Rand) *StudyScape {
	return &StudyScape{rng: rng}
}

func (*StudyScape) Name() string {
	return "study"
}

func (s *StudyScape) Reset() model.State {
	s.state = s.sample()
	return s.state
}

// Step rewards the action against the current state, then replaces the
// current state with a fresh draw and returns it.
func (s *StudyScape) Step(action model.Action) (model.State, float64) {
	reward := Reward(s.state, action)
	s.state = s.sample()
	return s.state, reward
}

func (s *StudyScape) State() model.State {
	return s.state
}

func (s *StudyScape) sample() model.State {
	return model.State{
		AvgTime:      MinAvgTime + s.rng.Float64()*(MaxAvgTime-MinAvgTime),
		CorrectRatio: MinCorrectRatio + s.rng.Float64()*(MaxCorrectRatio-MinCorrectRatio),
	}
}

// Reward is correctRatio·10 minus a time cost of 0.1 per review and 0.2 per
// new item.
func Reward(state model.State, action model.Action) float64 {
	penalty := float64(action.ReviewCount)*ReviewPenalty + float64(action.NewCount)*NewPenalty
	return state.CorrectRatio*RetentionBonus - penalty
}
