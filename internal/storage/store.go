package storage

import (
	"context"

	"mnemos/internal/model"
)

// Store persists the audit trail of served plans.
type Store interface {
	Init(ctx context.Context) error
	SavePlan(ctx context.Context, record model.PlanRecord) error
	GetPlan(ctx context.Context, id string) (model.PlanRecord, bool, error)
	// ListPlans returns at most limit records, newest first. A limit <= 0
	// returns every record.
	ListPlans(ctx context.Context, limit int) ([]model.PlanRecord, error)
	DeletePlans(ctx context.Context) error
}
