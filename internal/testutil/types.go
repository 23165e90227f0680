package testutil

import (
	"sort"
	"time"
)

// ExecutionRecord holds the start and end times for a single step's execution.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// MaxOverlap returns the largest number of records whose executions overlap
// at a single instant.
func MaxOverlap(records []ExecutionRecord) int {
	type event struct {
		at    time.Time
		delta int
	}
	events := make([]event, 0, 2*len(records))
	for _, r := range records {
		events = append(events, event{r.Start, 1}, event{r.End, -1})
	}
	// Ends sort before starts at the same instant.
	sort.Slice(events, func(i, j int) bool {
		if events[i].at.Equal(events[j].at) {
			return events[i].delta < events[j].delta
		}
		return events[i].at.Before(events[j].at)
	})

	running, peak := 0, 0
	for _, e := range events {
		running += e.delta
		if running > peak {
			peak = running
		}
	}
	return peak
}
