package journey

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// midnightUTC truncates t to midnight of its UTC calendar date. All duration
// arithmetic works on these truncated values; differencing raw timestamps
// across local-time boundaries produces off-by-one day counts.
func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Recalculate derives TotalDuration, CurrentDay and ProgressPercentage from
// the journey's stages as of now. It is called before every persist so the
// stored values never drift from the stage data.
//
// TotalDuration is the inclusive day span from the earliest stage startDate
// to the latest endDate (a single-day journey counts as 1). Without any
// startDate both duration and current day are 0; with starts but no ends the
// duration is 1. CurrentDay is capped at TotalDuration and locked there once
// the journey is completed.
func (j *Journey) Recalculate(now time.Time) {
	j.ProgressPercentage = progressPercentage(j.Stages)

	var minStart, maxEnd *time.Time
	for i := range j.Stages {
		if s := j.Stages[i].StartDate; s != nil {
			if minStart == nil || s.Before(*minStart) {
				minStart = s
			}
		}
		if e := j.Stages[i].EndDate; e != nil {
			if maxEnd == nil || e.After(*maxEnd) {
				maxEnd = e
			}
		}
	}

	if minStart == nil {
		j.TotalDuration = 0
		j.CurrentDay = 0
		return
	}

	start := midnightUTC(*minStart)
	today := midnightUTC(now)

	if maxEnd != nil {
		end := midnightUTC(*maxEnd)
		j.TotalDuration = int(end.Sub(start)/day) + 1
	} else {
		j.TotalDuration = 1
	}

	if today.Before(start) {
		j.CurrentDay = 0 // not started yet
	} else {
		elapsed := int(today.Sub(start)/day) + 1
		if elapsed > j.TotalDuration {
			elapsed = j.TotalDuration
		}
		j.CurrentDay = elapsed
	}

	if j.Status == StatusCompleted {
		j.CurrentDay = j.TotalDuration
	}
}

// progressPercentage is the share of stages marked completed, rounded to the
// nearest whole percent. Empty journeys report 0.
func progressPercentage(stages []Stage) int {
	if len(stages) == 0 {
		return 0
	}
	completed := 0
	for i := range stages {
		if stages[i].Status == StageCompleted {
			completed++
		}
	}
	return int(math.Round(float64(completed) / float64(len(stages)) * 100))
}
