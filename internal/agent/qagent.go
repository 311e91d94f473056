package agent

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"mnemos/internal/model"
	"mnemos/internal/nn"
	"mnemos/internal/optim"
)

const (
	DefaultEpsilon      = 0.2
	DefaultGamma        = 0.95
	DefaultLearningRate = 0.001
)

var (
	ErrActionIndex   = errors.New("agent: action index out of range")
	ErrNonFiniteLoss = errors.New("agent: non-finite loss")
	ErrUpdateAborted = errors.New("agent: update aborted")
)

type Config struct {
	Epsilon      float64
	Gamma        float64
	LearningRate float64
	Actions      []model.Action
}

func DefaultConfig() Config {
	return Config{
		Epsilon:      DefaultEpsilon,
		Gamma:        DefaultGamma,
		LearningRate: DefaultLearningRate,
		Actions:      model.DefaultActionSpace(),
	}
}

// QAgent is a single-step Q-learner: an action-value network, an Adam
// optimizer and an epsilon-greedy policy. It is not safe for concurrent use.
type QAgent struct {
	cfg Config
	net *nn.Network
	opt *optim.Adam
}

// NewQAgent initializes network weights from rng.
func NewQAgent(rng *rand.Rand, cfg Config) (*QAgent, error) {
	if len(cfg.Actions) == 0 {
		return nil, errors.New("agent: at least one action is required")
	}
	if cfg.Epsilon < 0 || cfg.Epsilon > 1 {
		return nil, fmt.Errorf("agent: epsilon must be in [0,1], got %f", cfg.Epsilon)
	}
	if cfg.Gamma < 0 || cfg.Gamma > 1 {
		return nil, fmt.Errorf("agent: gamma must be in [0,1], got %f", cfg.Gamma)
	}
	if cfg.LearningRate <= 0 {
		return nil, fmt.Errorf("agent: learning rate must be positive, got %f", cfg.LearningRate)
	}

	net, err := nn.NewQNetwork(rng, model.StateDims, len(cfg.Actions))
	if err != nil {
		return nil, fmt.Errorf("agent: build network: %w", err)
	}
	cfg.Actions = append([]model.Action(nil), cfg.Actions...)
	return &QAgent{
		cfg: cfg,
		net: net,
		opt: optim.NewAdam(cfg.LearningRate),
	}, nil
}

func (a *QAgent) Config() Config {
	cfg := a.cfg
	cfg.Actions = append([]model.Action(nil), a.cfg.Actions...)
	return cfg
}

func (a *QAgent) Action(index int) (model.Action, error) {
	if index < 0 || index >= len(a.cfg.Actions) {
		return model.Action{}, fmt.Errorf("%w: %d", ErrActionIndex, index)
	}
	return a.cfg.Actions[index], nil
}

func (a *QAgent) QValues(state model.State) ([]float64, error) {
	return a.net.Forward(state.Vector())
}

// SelectAction is epsilon-greedy: with probability epsilon a uniformly
// random index, otherwise the first index holding the largest Q-value.
func (a *QAgent) SelectAction(rng *rand.Rand, state model.State) (index int, explored bool, err error) {
	if rng.Float64() < a.cfg.Epsilon {
		return rng.Intn(len(a.cfg.Actions)), true, nil
	}
	values, err := a.QValues(state)
	if err != nil {
		return 0, false, err
	}
	return argmax(values), false, nil
}

// Update performs one online TD step toward reward + γ·max Q(next) and
// returns the loss measured before the step. The bootstrap term is
// evaluated without a trace, so no gradient flows through it. On any
// failure the network and optimizer are left exactly as they were.
func (a *QAgent) Update(state model.State, actionIndex int, reward float64, nextState model.State) (loss float64, err error) {
	if actionIndex < 0 || actionIndex >= len(a.cfg.Actions) {
		return 0, fmt.Errorf("%w: %d", ErrActionIndex, actionIndex)
	}

	netSnap := a.net.Snapshot()
	optState := a.opt.State()
	rollback := func() {
		// Same network, same shape: Restore cannot fail here.
		_ = a.net.Restore(netSnap)
		a.opt.SetState(optState)
	}

	defer func() {
		if r := recover(); r != nil {
			rollback()
			loss = 0
			err = fmt.Errorf("%w: %v", ErrUpdateAborted, r)
		}
	}()

	loss, err = a.step(state, actionIndex, reward, nextState)
	if err != nil {
		rollback()
		return 0, err
	}
	if !a.net.Finite() {
		rollback()
		return 0, fmt.Errorf("%w: parameters diverged", ErrNonFiniteLoss)
	}
	return loss, nil
}

func (a *QAgent) step(state model.State, actionIndex int, reward float64, nextState model.State) (float64, error) {
	nextValues, err := a.net.Forward(nextState.Vector())
	if err != nil {
		return 0, fmt.Errorf("evaluate next state: %w", err)
	}
	target := reward + a.cfg.Gamma*nextValues[argmax(nextValues)]

	trace, err := a.net.ForwardTrace(state.Vector())
	if err != nil {
		return 0, fmt.Errorf("evaluate state: %w", err)
	}
	current := trace.Output()[actionIndex]

	diff := target - current
	loss := diff * diff
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return 0, fmt.Errorf("%w: target=%g current=%g", ErrNonFiniteLoss, target, current)
	}

	outGrad := make([]float64, len(a.cfg.Actions))
	outGrad[actionIndex] = -2 * diff
	grads, err := a.net.Backward(trace, outGrad)
	if err != nil {
		return 0, fmt.Errorf("backpropagate: %w", err)
	}
	if err := a.opt.Step(a.net.Params(), grads.Flat()); err != nil {
		return 0, fmt.Errorf("optimizer step: %w", err)
	}
	return loss, nil
}

func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
