package stats

import (
	"errors"
	"fmt"
	"math"

	"mnemos/internal/model"
)

var (
	ErrNoAnswers       = errors.New("stats: no answers in session")
	ErrInvalidDuration = errors.New("stats: invalid answer duration")
)

// Answer is one quiz response: whether it was correct and how many seconds
// the learner spent on it.
type Answer struct {
	Correct bool    `json:"correct"`
	Seconds float64 `json:"seconds"`
}

// Summary aggregates a quiz session into the statistics the planner consumes.
type Summary struct {
	Questions      int     `json:"questions"`
	Correct        int     `json:"correct"`
	TotalSeconds   float64 `json:"total_seconds"`
	AverageSeconds float64 `json:"average_seconds"`
	CorrectRatio   float64 `json:"correct_ratio"`
}

func Summarize(answers []Answer) (Summary, error) {
	if len(answers) == 0 {
		return Summary{}, ErrNoAnswers
	}

	var s Summary
	for i, a := range answers {
		if a.Seconds < 0 || math.IsNaN(a.Seconds) || math.IsInf(a.Seconds, 0) {
			return Summary{}, fmt.Errorf("%w: answer %d took %g seconds", ErrInvalidDuration, i, a.Seconds)
		}
		s.Questions++
		s.TotalSeconds += a.Seconds
		if a.Correct {
			s.Correct++
		}
	}
	s.AverageSeconds = s.TotalSeconds / float64(s.Questions)
	s.CorrectRatio = float64(s.Correct) / float64(s.Questions)
	return s, nil
}

// State is the planner input for the session.
func (s Summary) State() model.State {
	return model.State{AvgTime: s.AverageSeconds, CorrectRatio: s.CorrectRatio}
}
