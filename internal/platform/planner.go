package platform

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"mnemos/internal/agent"
	"mnemos/internal/logging"
	"mnemos/internal/model"
	"mnemos/internal/scape"
	"mnemos/internal/schedule"
	"mnemos/internal/storage"
)

var ErrPlannerClosed = errors.New("planner is closed")

type PlannerConfig struct {
	// Agent hyperparameters. Nil means agent.DefaultConfig; a nil action
	// space means model.DefaultActionSpace. Other fields are used as given.
	Agent *agent.Config
	// Seed drives weight init, exploration and environment draws. Zero
	// seeds from the clock.
	Seed int64
	// Store receives an audit record of every served plan. Optional.
	Store  storage.Store
	Logger *logging.Logger
	// Environment overrides the default StudyScape. Optional.
	Environment scape.Environment
	Now         func() time.Time
}

// Planner owns the learner, its environment and the shared random source.
// Every Plan call is one full episode, serialized against all others.
type Planner struct {
	mu     sync.Mutex
	closed bool

	agent *agent.QAgent
	env   scape.Environment
	rng   *rand.Rand

	store storage.Store
	log   *logging.Logger
	now   func() time.Time
	newID func() string
}

func NewPlanner(cfg PlannerConfig) (*Planner, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	agentCfg := agent.DefaultConfig()
	if cfg.Agent != nil {
		agentCfg = *cfg.Agent
		if agentCfg.Actions == nil {
			agentCfg.Actions = model.DefaultActionSpace()
		}
	}
	a, err := agent.NewQAgent(rng, agentCfg)
	if err != nil {
		return nil, err
	}

	env := cfg.Environment
	if env == nil {
		env = scape.NewStudyScape(rng)
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Planner{
		agent: a,
		env:   env,
		rng:   rng,
		store: cfg.Store,
		log:   log,
		now:   now,
		newID: func() string { return uuid.NewString() },
	}, nil
}

// Plan runs reset, select, step, update and schedule generation for the
// given learner state. An update whose loss or weights turn non-finite is
// rolled back and the forecast is still served. On error no forecast is
// returned and the learner is unchanged. The context is only consulted
// before the episode begins.
func (p *Planner) Plan(ctx context.Context, state model.State) (model.Plan, error) {
	if err := ctx.Err(); err != nil {
		return model.Plan{}, err
	}

	p.mu.Lock()
	plan, err := p.episode(state)
	p.mu.Unlock()
	if err != nil {
		p.log.Errorf("plan failed for state %+v: %v", state, err)
		return model.Plan{}, err
	}

	p.log.Debugf("plan %s: action=%s explored=%t reward=%.3f updated=%t loss=%.4f", plan.ID, plan.Action, plan.Explored, plan.Reward, plan.Updated, plan.Loss)
	p.record(ctx, plan)
	return plan, nil
}

func (p *Planner) episode(state model.State) (model.Plan, error) {
	if p.closed {
		return model.Plan{}, ErrPlannerClosed
	}

	p.env.Reset()
	index, explored, err := p.agent.SelectAction(p.rng, state)
	if err != nil {
		return model.Plan{}, fmt.Errorf("select action: %w", err)
	}
	action, err := p.agent.Action(index)
	if err != nil {
		return model.Plan{}, err
	}

	next, reward := p.env.Step(action)
	loss, err := p.agent.Update(state, index, reward, next)
	updated := true
	switch {
	case errors.Is(err, agent.ErrNonFiniteLoss):
		p.log.Warnf("skipped update for state %+v: %v", state, err)
		loss, updated = 0, false
	case err != nil:
		return model.Plan{}, fmt.Errorf("update: %w", err)
	}

	now := p.now()
	return model.Plan{
		ID:          p.newID(),
		CreatedAt:   now,
		State:       state,
		ActionIndex: index,
		Action:      action,
		Explored:    explored,
		NextState:   next,
		Reward:      reward,
		Updated:     updated,
		Loss:        loss,
		Forecast:    schedule.Generate(action, now),
	}, nil
}

// record stores the plan for history. A store failure does not fail the
// request: the learner has already been updated.
func (p *Planner) record(ctx context.Context, plan model.Plan) {
	if p.store == nil {
		return
	}
	rec := storage.Stamp(model.PlanRecord{Plan: plan})
	if err := p.store.SavePlan(ctx, rec); err != nil {
		p.log.Warnf("store plan %s: %v", plan.ID, err)
	}
}

// History lists served plans, newest first.
func (p *Planner) History(ctx context.Context, limit int) ([]model.PlanRecord, error) {
	if p.store == nil {
		return nil, nil
	}
	return p.store.ListPlans(ctx, limit)
}

// QValues evaluates the learner without mutating it.
func (p *Planner) QValues(state model.State) ([]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agent.QValues(state)
}

// Close rejects further plans. It does not close the store.
func (p *Planner) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}
