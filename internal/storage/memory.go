package storage

import (
	"context"
	"sync"

	"mnemos/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	plans       map[string]model.PlanRecord
	order       []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.plans = make(map[string]model.PlanRecord)
	s.order = nil
	return nil
}

func (s *MemoryStore) SavePlan(_ context.Context, record model.PlanRecord) error {
	if err := checkVersion(record.VersionedRecord); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if _, exists := s.plans[record.ID]; !exists {
		s.order = append(s.order, record.ID)
	}
	s.plans[record.ID] = clonePlan(record)
	return nil
}

func (s *MemoryStore) GetPlan(_ context.Context, id string) (model.PlanRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.plans[id]
	if !ok {
		return model.PlanRecord{}, false, nil
	}
	return clonePlan(record), true, nil
}

func (s *MemoryStore) ListPlans(_ context.Context, limit int) ([]model.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.PlanRecord, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, clonePlan(s.plans[s.order[i]]))
	}
	return out, nil
}

func (s *MemoryStore) DeletePlans(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.plans = make(map[string]model.PlanRecord)
	s.order = nil
	return nil
}

func clonePlan(record model.PlanRecord) model.PlanRecord {
	f := record.Forecast
	record.Forecast = model.Forecast{
		Schedule:        append([]model.ScheduleEntry(nil), f.Schedule...),
		RecallDates:     append([]string(nil), f.RecallDates...),
		MemoryRetention: append([]float64(nil), f.MemoryRetention...),
		IdealRetention:  append([]float64(nil), f.IdealRetention...),
		ForgettingCurve: append([]float64(nil), f.ForgettingCurve...),
	}
	return record
}
