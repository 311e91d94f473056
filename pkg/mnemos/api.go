package mnemos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mnemos/internal/agent"
	"mnemos/internal/config"
	"mnemos/internal/httpapi"
	"mnemos/internal/logging"
	"mnemos/internal/model"
	"mnemos/internal/platform"
	"mnemos/internal/schedule"
	"mnemos/internal/stats"
	"mnemos/internal/storage"
)

const (
	defaultDBPath       = "mnemos.db"
	defaultHistoryLimit = 20
)

var ErrInvalidAction = errors.New("mnemos: invalid action")

type Options struct {
	StoreKind string
	DBPath    string
	Seed      int64

	// Learner hyperparameters. Each nil field keeps its default; a set
	// field is used as given, zero included.
	Epsilon      *float64
	Gamma        *float64
	LearningRate *float64

	HistoryLimit int
	Logger       *logging.Logger
	Now          func() time.Time
}

// OptionsFromConfig maps a loaded configuration onto client options.
func OptionsFromConfig(cfg *config.Config, log *logging.Logger) Options {
	return Options{
		StoreKind:    cfg.StoreKind,
		DBPath:       cfg.DBPath,
		Seed:         cfg.Seed,
		Epsilon:      Float(cfg.Epsilon),
		Gamma:        Float(cfg.Gamma),
		LearningRate: Float(cfg.LearningRate),
		HistoryLimit: cfg.HistoryLimit,
		Logger:       log,
	}
}

// Float returns a pointer to v, for the optional hyperparameters in Options.
func Float(v float64) *float64 {
	return &v
}

type Client struct {
	store   storage.Store
	planner *platform.Planner
	log     *logging.Logger

	historyLimit int
	now          func() time.Time
}

type PlanRequest struct {
	AvgTime      float64
	CorrectRatio float64
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.BackendMemory
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	historyLimit := opts.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(context.Background()); err != nil {
		return nil, fmt.Errorf("init %s store: %w", storeKind, err)
	}

	agentCfg := agent.DefaultConfig()
	if opts.Epsilon != nil {
		agentCfg.Epsilon = *opts.Epsilon
	}
	if opts.Gamma != nil {
		agentCfg.Gamma = *opts.Gamma
	}
	if opts.LearningRate != nil {
		agentCfg.LearningRate = *opts.LearningRate
	}
	planner, err := platform.NewPlanner(platform.PlannerConfig{
		Agent:  &agentCfg,
		Seed:   opts.Seed,
		Store:  store,
		Logger: log,
		Now:    now,
	})
	if err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}

	return &Client{
		store:        store,
		planner:      planner,
		log:          log,
		historyLimit: historyLimit,
		now:          now,
	}, nil
}

func (c *Client) Close() error {
	c.planner.Close()
	return storage.CloseIfSupported(c.store)
}

// Plan runs one learning episode for the learner's statistics and returns
// the chosen action with its forecast.
func (c *Client) Plan(ctx context.Context, req PlanRequest) (model.Plan, error) {
	return c.planner.Plan(ctx, model.State{AvgTime: req.AvgTime, CorrectRatio: req.CorrectRatio})
}

// PlanSession summarizes a quiz session and plans from its statistics.
func (c *Client) PlanSession(ctx context.Context, answers []stats.Answer) (stats.Summary, model.Plan, error) {
	summary, err := stats.Summarize(answers)
	if err != nil {
		return stats.Summary{}, model.Plan{}, err
	}
	plan, err := c.planner.Plan(ctx, summary.State())
	if err != nil {
		return summary, model.Plan{}, err
	}
	return summary, plan, nil
}

// History lists served plans, newest first. A limit <= 0 uses the
// configured default.
func (c *Client) History(ctx context.Context, limit int) ([]model.PlanRecord, error) {
	if limit <= 0 {
		limit = c.historyLimit
	}
	return c.planner.History(ctx, limit)
}

func (c *Client) ClearHistory(ctx context.Context) error {
	return c.store.DeletePlans(ctx)
}

// Forecast computes the schedule for action without touching the learner.
// A zero today means the client's current day.
func (c *Client) Forecast(action model.Action, today time.Time) (model.Forecast, error) {
	if action.ReviewCount < 0 || action.NewCount < 0 {
		return model.Forecast{}, fmt.Errorf("%w: %s", ErrInvalidAction, action)
	}
	if today.IsZero() {
		today = c.now()
	}
	return schedule.Generate(action, today), nil
}

// Handler serves the client over HTTP.
func (c *Client) Handler() http.Handler {
	return httpapi.NewServer(c.planner, c.log, c.historyLimit)
}
