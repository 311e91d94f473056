package model

import "fmt"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// State is a learner's recent study statistics: average seconds spent per
// item and the fraction answered correctly. Bounds are not enforced.
type State struct {
	AvgTime      float64 `json:"avg_time"`
	CorrectRatio float64 `json:"correct_ratio"`
}

// StateDims is the length of State.Vector.
const StateDims = 2

// Vector returns the network input for the state.
func (s State) Vector() []float64 {
	return []float64{s.AvgTime, s.CorrectRatio}
}

type Action struct {
	ReviewCount int `json:"review_count"`
	NewCount    int `json:"new_count"`
}

func (a Action) String() string {
	return fmt.Sprintf("review=%d new=%d", a.ReviewCount, a.NewCount)
}

var defaultActionSpace = [...]Action{
	{ReviewCount: 1, NewCount: 0},
	{ReviewCount: 0, NewCount: 1},
	{ReviewCount: 1, NewCount: 1},
	{ReviewCount: 2, NewCount: 0},
	{ReviewCount: 0, NewCount: 2},
}

// DefaultActionSpace returns a copy of the fixed action enumeration. Actions
// are referenced everywhere by their index into this slice.
func DefaultActionSpace() []Action {
	out := make([]Action, len(defaultActionSpace))
	copy(out, defaultActionSpace[:])
	return out
}

// ActionCount is the size of the default action space.
const ActionCount = len(defaultActionSpace)

// ActionAt resolves an index into the default action space.
func ActionAt(index int) (Action, error) {
	if index < 0 || index >= len(defaultActionSpace) {
		return Action{}, fmt.Errorf("action index %d out of range [0,%d)", index, len(defaultActionSpace))
	}
	return defaultActionSpace[index], nil
}
