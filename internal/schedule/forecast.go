// Package schedule turns a chosen study action into a recall forecast.
//
// Retention follows an exponential forgetting curve
//
//	R(t) = R0 · e^(−k·t)
//
// with R0 = 90 and k = 0.1. For review i (0-based), the interval is
// reviewCount + i days. MemoryRetention decays over that single interval.
// ForgettingCurve decays over the running sum of intervals, which models
// no review in between. IdealRetention is the target band, dropping 5
// points per review and never falling below 80.
package schedule

import (
	"math"
	"time"

	"mnemos/internal/model"
)

const (
	InitialRetention = 90.0
	ForgettingRate   = 0.1
	Reviews          = 5

	idealStep  = 5.0
	idealFloor = 80.0
)

// Generate is deterministic for a given action and day. today is truncated
// to its calendar date in its own location.
func Generate(action model.Action, today time.Time) model.Forecast {
	day := model.DateOf(today)
	f := model.Forecast{
		Schedule:        make([]model.ScheduleEntry, 0, Reviews),
		RecallDates:     make([]string, 0, Reviews),
		MemoryRetention: make([]float64, 0, Reviews),
		IdealRetention:  make([]float64, 0, Reviews),
		ForgettingCurve: make([]float64, 0, Reviews),
	}

	cumulative := 0
	for i := 0; i < Reviews; i++ {
		interval := action.ReviewCount + i
		cumulative += interval
		next := day.AddDays(interval)

		f.Schedule = append(f.Schedule, model.ScheduleEntry{
			CardID:         i + 1,
			NextReviewDate: next,
			IntervalDays:   interval,
		})
		f.RecallDates = append(f.RecallDates, next.String())
		f.MemoryRetention = append(f.MemoryRetention, Retention(float64(interval)))
		f.IdealRetention = append(f.IdealRetention, math.Max(idealFloor, InitialRetention-idealStep*float64(i)))
		f.ForgettingCurve = append(f.ForgettingCurve, Retention(float64(cumulative)))
	}
	return f
}

// Retention is the forgetting curve after days without review, floored at 0.
func Retention(days float64) float64 {
	return math.Max(0, InitialRetention*math.Exp(-ForgettingRate*days))
}
