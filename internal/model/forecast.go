package model

import (
	"encoding/json"
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar day. It marshals as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, t.Location())}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type ScheduleEntry struct {
	CardID         int  `json:"card_id"`
	NextReviewDate Date `json:"next_review_date"`
	IntervalDays   int  `json:"interval_days"`
}

// Forecast is the recall schedule for one chosen action. All slices are
// index-aligned with Schedule.
type Forecast struct {
	Schedule        []ScheduleEntry `json:"schedule"`
	RecallDates     []string        `json:"recall_dates"`
	MemoryRetention []float64       `json:"memory_retention"`
	IdealRetention  []float64       `json:"ideal_retention"`
	ForgettingCurve []float64       `json:"forgetting_curve"`
}

// Plan is the outcome of one planner invocation.
type Plan struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	State       State     `json:"state"`
	ActionIndex int       `json:"action_index"`
	Action      Action    `json:"action"`
	Explored    bool      `json:"explored"`
	NextState   State     `json:"next_state"`
	Reward      float64   `json:"reward"`
	// Updated is false when the learner skipped a non-finite update.
	// Loss is zero in that case.
	Updated  bool     `json:"updated"`
	Loss     float64  `json:"loss"`
	Forecast Forecast `json:"forecast"`
}

// PlanRecord is the persisted form of a served Plan.
type PlanRecord struct {
	VersionedRecord
	Plan
}
