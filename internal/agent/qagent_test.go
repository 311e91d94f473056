package agent

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"mnemos/internal/model"
)

func newTestAgent(t *testing.T, seed int64, mutate func(*Config)) *QAgent {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := NewQAgent(rand.New(rand.NewSource(seed)), cfg)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	return a
}

func TestNewQAgentValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "no-actions", mutate: func(c *Config) { c.Actions = nil }},
		{name: "negative-epsilon", mutate: func(c *Config) { c.Epsilon = -0.1 }},
		{name: "epsilon-above-one", mutate: func(c *Config) { c.Epsilon = 1.5 }},
		{name: "gamma-above-one", mutate: func(c *Config) { c.Gamma = 1.1 }},
		{name: "zero-learning-rate", mutate: func(c *Config) { c.LearningRate = 0 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := DefaultConfig()
			c.mutate(&cfg)
			if _, err := NewQAgent(rand.New(rand.NewSource(1)), cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Epsilon != 0.2 || cfg.Gamma != 0.95 || cfg.LearningRate != 0.001 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Actions) != model.ActionCount {
		t.Fatalf("expected %d actions, got %d", model.ActionCount, len(cfg.Actions))
	}
}

func TestSelectActionGreedyIsDeterministic(t *testing.T) {
	a := newTestAgent(t, 3, func(c *Config) { c.Epsilon = 0 })
	state := model.State{AvgTime: 11, CorrectRatio: 0.7}

	values, err := a.QValues(state)
	if err != nil {
		t.Fatalf("q values: %v", err)
	}
	want := argmax(values)

	rng := rand.New(rand.NewSource(100))
	for i := 0; i < 20; i++ {
		got, explored, err := a.SelectAction(rng, state)
		if err != nil {
			t.Fatalf("select action: %v", err)
		}
		if explored {
			t.Fatal("epsilon=0 must never explore")
		}
		if got != want {
			t.Fatalf("call %d chose %d, want %d", i, got, want)
		}
	}
}

func TestSelectActionAlwaysExploresAtEpsilonOne(t *testing.T) {
	a := newTestAgent(t, 3, func(c *Config) { c.Epsilon = 1 })
	rng := rand.New(rand.NewSource(5))
	seen := make(map[int]bool)
	for i := 0; i < 500; i++ {
		idx, explored, err := a.SelectAction(rng, model.State{AvgTime: 10, CorrectRatio: 0.9})
		if err != nil {
			t.Fatalf("select action: %v", err)
		}
		if !explored {
			t.Fatal("epsilon=1 must always explore")
		}
		if idx < 0 || idx >= 5 {
			t.Fatalf("index out of range: %d", idx)
		}
		seen[idx] = true
	}
	if len(seen) != 5 {
		t.Fatalf("expected every action to be explored, saw %v", seen)
	}
}

func TestSelectActionExplorationRate(t *testing.T) {
	a := newTestAgent(t, 8, nil)
	rng := rand.New(rand.NewSource(21))
	const n = 5000
	explored := 0
	for i := 0; i < n; i++ {
		_, e, err := a.SelectAction(rng, model.State{AvgTime: 10, CorrectRatio: 0.9})
		if err != nil {
			t.Fatalf("select action: %v", err)
		}
		if e {
			explored++
		}
	}
	rate := float64(explored) / n
	if math.Abs(rate-0.2) > 0.03 {
		t.Fatalf("exploration rate %f too far from 0.2", rate)
	}
}

func TestSelectActionAcceptsOutOfRangeState(t *testing.T) {
	a := newTestAgent(t, 4, func(c *Config) { c.Epsilon = 0 })
	idx, _, err := a.SelectAction(rand.New(rand.NewSource(1)), model.State{AvgTime: 500, CorrectRatio: -3})
	if err != nil {
		t.Fatalf("out-of-range state should be accepted: %v", err)
	}
	if idx < 0 || idx >= 5 {
		t.Fatalf("index out of range: %d", idx)
	}
}

func TestArgmaxFirstMaximumWins(t *testing.T) {
	cases := []struct {
		values []float64
		want   int
	}{
		{values: []float64{1, 3, 3, 2}, want: 1},
		{values: []float64{5, 5, 5}, want: 0},
		{values: []float64{-2, -1, -1.5}, want: 1},
		{values: []float64{0}, want: 0},
	}
	for _, c := range cases {
		if got := argmax(c.values); got != c.want {
			t.Fatalf("argmax(%v) = %d, want %d", c.values, got, c.want)
		}
	}
}

func TestUpdateReturnsSquaredTDError(t *testing.T) {
	a := newTestAgent(t, 6, nil)
	state := model.State{AvgTime: 12, CorrectRatio: 0.8}
	next := model.State{AvgTime: 7, CorrectRatio: 0.6}
	const reward = 7.9

	q, _ := a.QValues(state)
	qNext, _ := a.QValues(next)
	target := reward + 0.95*qNext[argmax(qNext)]
	want := (target - q[0]) * (target - q[0])

	loss, err := a.Update(state, 0, reward, next)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if math.Abs(loss-want) > 1e-9 {
		t.Fatalf("loss = %f, want %f", loss, want)
	}
}

func TestUpdateMovesChosenActionValueTowardTarget(t *testing.T) {
	a := newTestAgent(t, 6, func(c *Config) { c.Gamma = 0 })
	state := model.State{AvgTime: 12, CorrectRatio: 0.8}
	before, _ := a.QValues(state)

	if _, err := a.Update(state, 2, 9, state); err != nil {
		t.Fatalf("update: %v", err)
	}
	after, _ := a.QValues(state)
	if math.Abs(9-after[2]) >= math.Abs(9-before[2]) {
		t.Fatalf("Q(s,2) did not approach target: before=%f after=%f", before[2], after[2])
	}
}

func TestUpdateLossDecreasesMonotonically(t *testing.T) {
	a := newTestAgent(t, 12, nil)
	state := model.State{AvgTime: 15, CorrectRatio: 0.9}
	next := model.State{AvgTime: 5, CorrectRatio: 0.5}
	const reward = 9.0

	prev := math.Inf(1)
	for i := 0; i < 8; i++ {
		loss, err := a.Update(state, 0, reward, next)
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		if loss >= prev {
			t.Fatalf("loss did not decrease at call %d: prev=%f loss=%f", i, prev, loss)
		}
		prev = loss
	}
}

func TestUpdateRejectsBadActionIndex(t *testing.T) {
	a := newTestAgent(t, 1, nil)
	for _, idx := range []int{-1, 5} {
		if _, err := a.Update(model.State{}, idx, 1, model.State{}); !errors.Is(err, ErrActionIndex) {
			t.Fatalf("index %d: expected ErrActionIndex, got %v", idx, err)
		}
	}
}

func TestUpdateFailureLeavesWeightsUntouched(t *testing.T) {
	a := newTestAgent(t, 2, nil)
	probe := model.State{AvgTime: 10, CorrectRatio: 0.75}
	before, _ := a.QValues(probe)

	cases := []struct {
		name   string
		state  model.State
		reward float64
	}{
		{name: "nan-reward", state: probe, reward: math.NaN()},
		{name: "inf-reward", state: probe, reward: math.Inf(1)},
		{name: "nan-state", state: model.State{AvgTime: math.NaN(), CorrectRatio: 0.5}, reward: 1},
		{name: "overflowing-state", state: model.State{AvgTime: 1e200, CorrectRatio: 0.5}, reward: 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := a.Update(c.state, 1, c.reward, probe); !errors.Is(err, ErrNonFiniteLoss) {
				t.Fatalf("expected ErrNonFiniteLoss, got %v", err)
			}
			after, _ := a.QValues(probe)
			for i := range before {
				if before[i] != after[i] {
					t.Fatalf("weights changed after failed update: before=%v after=%v", before, after)
				}
			}
			if steps := a.opt.Steps(); steps != 0 {
				t.Fatalf("optimizer advanced on failure: steps=%d", steps)
			}
		})
	}
}

func TestUpdateOptimizerFailureRollsBack(t *testing.T) {
	a := newTestAgent(t, 2, nil)
	probe := model.State{AvgTime: 10, CorrectRatio: 0.75}
	if _, err := a.Update(probe, 0, 5, probe); err != nil {
		t.Fatalf("warm-up update: %v", err)
	}
	before, _ := a.QValues(probe)

	// Truncated moment buffers make the optimizer reject the step.
	bad := a.opt.State()
	bad.M = bad.M[:1]
	a.opt.SetState(bad)

	if _, err := a.Update(probe, 0, 5, probe); err == nil {
		t.Fatal("expected update error")
	}
	after, _ := a.QValues(probe)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("weights changed after failed update: before=%v after=%v", before, after)
		}
	}
	if steps := a.opt.Steps(); steps != 1 {
		t.Fatalf("optimizer step count changed on failure: %d", steps)
	}
}

func TestActionLookup(t *testing.T) {
	a := newTestAgent(t, 1, nil)
	act, err := a.Action(3)
	if err != nil {
		t.Fatalf("action: %v", err)
	}
	if act != (model.Action{ReviewCount: 2, NewCount: 0}) {
		t.Fatalf("unexpected action 3: %+v", act)
	}
	if _, err := a.Action(9); !errors.Is(err, ErrActionIndex) {
		t.Fatalf("expected ErrActionIndex, got %v", err)
	}
}
