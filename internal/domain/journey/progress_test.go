package journey

import (
	"testing"
	"time"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestRecalculate_InclusiveSpan(t *testing.T) {
	j := &Journey{
		Status: StatusActive,
		Stages: []Stage{
			{ID: "a", Order: 1, Title: "Arrival", StartDate: date("2024-01-01")},
			{ID: "b", Order: 2, Title: "Surgery", EndDate: date("2024-01-03")},
		},
	}
	j.Recalculate(*date("2024-01-02"))

	if j.TotalDuration != 3 {
		t.Errorf("expected totalDuration 3, got %d", j.TotalDuration)
	}
	if j.CurrentDay != 2 {
		t.Errorf("expected currentDay 2, got %d", j.CurrentDay)
	}
}

func TestRecalculate_CurrentDayCapped(t *testing.T) {
	j := &Journey{
		Status: StatusActive,
		Stages: []Stage{
			{ID: "a", Order: 1, StartDate: date("2024-01-01"), EndDate: date("2024-01-03")},
		},
	}
	j.Recalculate(*date("2024-01-10"))

	if j.CurrentDay != 3 {
		t.Errorf("expected currentDay capped at 3, got %d", j.CurrentDay)
	}
}

func TestRecalculate_BeforeStart(t *testing.T) {
	j := &Journey{
		Status: StatusActive,
		Stages: []Stage{
			{ID: "a", Order: 1, StartDate: date("2024-02-01"), EndDate: date("2024-02-05")},
		},
	}
	j.Recalculate(*date("2024-01-15"))

	if j.TotalDuration != 5 {
		t.Errorf("expected totalDuration 5, got %d", j.TotalDuration)
	}
	if j.CurrentDay != 0 {
		t.Errorf("expected currentDay 0 before start, got %d", j.CurrentDay)
	}
}

func TestRecalculate_NoDates(t *testing.T) {
	j := &Journey{
		Status: StatusActive,
		Stages: []Stage{
			{ID: "a", Order: 1, Title: "Consultation"},
			{ID: "b", Order: 2, Title: "Surgery"},
		},
	}
	j.Recalculate(*date("2024-01-02"))

	if j.TotalDuration != 0 || j.CurrentDay != 0 {
		t.Errorf("expected 0/0 with no dates, got %d/%d", j.TotalDuration, j.CurrentDay)
	}
}

func TestRecalculate_StartsWithoutEnds(t *testing.T) {
	j := &Journey{
		Status: StatusActive,
		Stages: []Stage{
			{ID: "a", Order: 1, StartDate: date("2024-01-01")},
		},
	}
	j.Recalculate(*date("2024-01-05"))

	if j.TotalDuration != 1 {
		t.Errorf("expected totalDuration 1 with no end dates, got %d", j.TotalDuration)
	}
	if j.CurrentDay != 1 {
		t.Errorf("expected currentDay 1, got %d", j.CurrentDay)
	}
}

func TestRecalculate_SingleDayJourney(t *testing.T) {
	j := &Journey{
		Status: StatusActive,
		Stages: []Stage{
			{ID: "a", Order: 1, StartDate: date("2024-03-10"), EndDate: date("2024-03-10")},
		},
	}
	j.Recalculate(*date("2024-03-10"))

	if j.TotalDuration != 1 {
		t.Errorf("expected totalDuration 1 for same-day span, got %d", j.TotalDuration)
	}
	if j.CurrentDay != 1 {
		t.Errorf("expected currentDay 1, got %d", j.CurrentDay)
	}
}

func TestRecalculate_CompletedLocksCurrentDay(t *testing.T) {
	j := &Journey{
		Status: StatusCompleted,
		Stages: []Stage{
			{ID: "a", Order: 1, StartDate: date("2024-01-01"), EndDate: date("2024-01-05")},
		},
	}
	// completed well before the planned end
	j.Recalculate(*date("2024-01-02"))

	if j.CurrentDay != j.TotalDuration {
		t.Errorf("expected currentDay locked at totalDuration %d, got %d", j.TotalDuration, j.CurrentDay)
	}
}

func TestRecalculate_TimestampsTruncateToDays(t *testing.T) {
	start := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 15, 0, 0, time.UTC)
	j := &Journey{
		Status: StatusActive,
		Stages: []Stage{{ID: "a", Order: 1, StartDate: &start, EndDate: &end}},
	}
	j.Recalculate(time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC))

	if j.TotalDuration != 3 {
		t.Errorf("expected totalDuration 3 from truncated dates, got %d", j.TotalDuration)
	}
	if j.CurrentDay != 2 {
		t.Errorf("expected currentDay 2, got %d", j.CurrentDay)
	}
}

func TestProgressPercentage(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     int
	}{
		{"empty", nil, 0},
		{"none completed", []string{StagePending, StageInProgress}, 0},
		{"one of four", []string{StageCompleted, StagePending, StagePending, StagePending}, 25},
		{"two of three rounds", []string{StageCompleted, StageCompleted, StagePending}, 67},
		{"all completed", []string{StageCompleted, StageCompleted}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stages []Stage
			for _, st := range tt.statuses {
				stages = append(stages, Stage{Status: st})
			}
			if got := progressPercentage(stages); got != tt.want {
				t.Errorf("progressPercentage() = %d, want %d", got, tt.want)
			}
		})
	}
}
