package schedule

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"mnemos/internal/model"
)

var newYear = time.Date(2024, time.January, 1, 15, 30, 0, 0, time.UTC)

func TestGenerateReviewOnlyExample(t *testing.T) {
	f := Generate(model.Action{ReviewCount: 1, NewCount: 0}, newYear)

	wantIntervals := []int{1, 2, 3, 4, 5}
	wantDates := []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-06"}
	wantIdeal := []float64{90, 85, 80, 80, 80}
	for i := 0; i < Reviews; i++ {
		if f.Schedule[i].IntervalDays != wantIntervals[i] {
			t.Fatalf("interval[%d] = %d, want %d", i, f.Schedule[i].IntervalDays, wantIntervals[i])
		}
		if f.RecallDates[i] != wantDates[i] {
			t.Fatalf("recall date[%d] = %s, want %s", i, f.RecallDates[i], wantDates[i])
		}
		if f.Schedule[i].NextReviewDate.String() != wantDates[i] {
			t.Fatalf("schedule date[%d] = %s, want %s", i, f.Schedule[i].NextReviewDate, wantDates[i])
		}
		if f.Schedule[i].CardID != i+1 {
			t.Fatalf("card id[%d] = %d, want %d", i, f.Schedule[i].CardID, i+1)
		}
		if f.IdealRetention[i] != wantIdeal[i] {
			t.Fatalf("ideal[%d] = %f, want %f", i, f.IdealRetention[i], wantIdeal[i])
		}
	}

	assertClose(t, "memory[0]", f.MemoryRetention[0], 90*math.Exp(-0.1))
	assertClose(t, "memory[0] rounded", math.Round(f.MemoryRetention[0]*100)/100, 81.44)
	assertClose(t, "forgetting[0]", f.ForgettingCurve[0], 90*math.Exp(-0.1))
	assertClose(t, "forgetting[4]", f.ForgettingCurve[4], 90*math.Exp(-1.5))
	assertClose(t, "forgetting[4] rounded", math.Round(f.ForgettingCurve[4]*100)/100, 20.08)
}

func TestGenerateNewOnlyExample(t *testing.T) {
	f := Generate(model.Action{ReviewCount: 0, NewCount: 2}, newYear)
	for i, want := range []int{0, 1, 2, 3, 4} {
		if f.Schedule[i].IntervalDays != want {
			t.Fatalf("interval[%d] = %d, want %d", i, f.Schedule[i].IntervalDays, want)
		}
	}
	if f.MemoryRetention[0] != 90 {
		t.Fatalf("memory[0] = %f, want 90", f.MemoryRetention[0])
	}
	if f.RecallDates[0] != "2024-01-01" {
		t.Fatalf("recall date[0] = %s, want same day", f.RecallDates[0])
	}
}

func TestGenerateInvariantsForEveryAction(t *testing.T) {
	today := time.Date(2025, time.February, 27, 0, 0, 0, 0, time.UTC)
	for _, action := range model.DefaultActionSpace() {
		t.Run(action.String(), func(t *testing.T) {
			f := Generate(action, today)
			for name, n := range map[string]int{
				"schedule":   len(f.Schedule),
				"dates":      len(f.RecallDates),
				"memory":     len(f.MemoryRetention),
				"ideal":      len(f.IdealRetention),
				"forgetting": len(f.ForgettingCurve),
			} {
				if n != Reviews {
					t.Fatalf("%s has %d entries, want %d", name, n, Reviews)
				}
			}

			for i := 0; i < Reviews; i++ {
				entry := f.Schedule[i]
				if entry.IntervalDays != action.ReviewCount+i {
					t.Fatalf("interval[%d] = %d, want %d", i, entry.IntervalDays, action.ReviewCount+i)
				}
				wantDate := today.AddDate(0, 0, entry.IntervalDays).Format(model.DateLayout)
				if f.RecallDates[i] != wantDate {
					t.Fatalf("recall date[%d] = %s, want %s", i, f.RecallDates[i], wantDate)
				}
				if f.MemoryRetention[i] < 0 || f.ForgettingCurve[i] < 0 {
					t.Fatalf("negative retention at %d: memory=%f forgetting=%f", i, f.MemoryRetention[i], f.ForgettingCurve[i])
				}
				if f.IdealRetention[i] < 80 || f.IdealRetention[i] > 90 {
					t.Fatalf("ideal[%d] = %f outside [80,90]", i, f.IdealRetention[i])
				}
				if i > 0 {
					if f.IdealRetention[i] > f.IdealRetention[i-1] {
						t.Fatalf("ideal retention increased at %d: %v", i, f.IdealRetention)
					}
					if f.ForgettingCurve[i] > f.MemoryRetention[i] {
						t.Fatalf("forgetting[%d]=%f exceeds memory[%d]=%f", i, f.ForgettingCurve[i], i, f.MemoryRetention[i])
					}
				}
			}
		})
	}
}

func TestGenerateCrossesMonthAndLeapDay(t *testing.T) {
	f := Generate(model.Action{ReviewCount: 2}, time.Date(2024, time.February, 27, 23, 59, 0, 0, time.UTC))
	want := []string{"2024-02-29", "2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04"}
	for i := range want {
		if f.RecallDates[i] != want[i] {
			t.Fatalf("recall date[%d] = %s, want %s", i, f.RecallDates[i], want[i])
		}
	}
}

func TestGenerateUsesLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	// 2024-01-01 20:00 UTC is already Jan 2 in UTC+9.
	f := Generate(model.Action{ReviewCount: 1}, time.Date(2024, time.January, 2, 5, 0, 0, 0, loc))
	if f.RecallDates[0] != "2024-01-03" {
		t.Fatalf("recall date[0] = %s, want 2024-01-03", f.RecallDates[0])
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := Generate(model.Action{ReviewCount: 1, NewCount: 1}, newYear)
	b := Generate(model.Action{ReviewCount: 1, NewCount: 1}, newYear)
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Fatalf("forecast differs between calls:\n%s\n%s", ja, jb)
	}
}

func TestForecastJSONShape(t *testing.T) {
	data, err := json.Marshal(Generate(model.Action{ReviewCount: 1}, newYear))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, key := range []string{
		`"schedule":[{"card_id":1,"next_review_date":"2024-01-02","interval_days":1}`,
		`"recall_dates":["2024-01-02"`,
		`"memory_retention":[`,
		`"ideal_retention":[90,85,80,80,80]`,
		`"forgetting_curve":[`,
	} {
		if !strings.Contains(s, key) {
			t.Fatalf("forecast json missing %s: %s", key, s)
		}
	}

	var decoded model.Forecast
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Schedule[4].NextReviewDate.String() != "2024-01-06" {
		t.Fatalf("unexpected decoded date: %s", decoded.Schedule[4].NextReviewDate)
	}
}

func TestRetentionFloor(t *testing.T) {
	if got := Retention(0); got != 90 {
		t.Fatalf("Retention(0) = %f, want 90", got)
	}
	if got := Retention(1e6); got < 0 {
		t.Fatalf("Retention should never be negative, got %f", got)
	}
}

func assertClose(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %.12f, want %.12f", name, got, want)
	}
}
