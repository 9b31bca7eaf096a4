package roster

import (
	"sort"
	"time"

	"roostercal/internal/model"
)

// PostProcess merges back-to-back on-call periods and drops full-day
// artifacts from days that carry real shifts. It returns a new, sorted
// slice and leaves events untouched. Running it on its own output is a
// no-op.
func PostProcess(events []model.ShiftEvent) []model.ShiftEvent {
	if len(events) == 0 {
		return nil
	}

	sorted := make([]model.ShiftEvent, len(events))
	copy(sorted, events)
	sortEvents(sorted)

	merged := mergeOnCall(sorted)
	out := dropFullDayArtifacts(merged)
	sortEvents(out)
	return out
}

func sortEvents(events []model.ShiftEvent) {
	sort.SliceStable(events, func(i, j int) bool { return model.Less(events[i], events[j]) })
}

// mergeOnCall folds an on-call event into the previous on-call event when
// the previous one ends exactly where it starts.
func mergeOnCall(events []model.ShiftEvent) []model.ShiftEvent {
	out := make([]model.ShiftEvent, 0, len(events))
	last := -1
	for _, ev := range events {
		if ev.Kind != model.OnCall {
			out = append(out, ev)
			continue
		}
		if last >= 0 && out[last].End.Equal(ev.Start) {
			prev := &out[last]
			prev.End = ev.End
			if prev.Tag == "" {
				prev.Tag = ev.Tag
			}
			prev.Description = describePeriod(prev.Kind, prev.Tag, prev.Start, prev.End)
			continue
		}
		out = append(out, ev)
		last = len(out) - 1
	}
	return out
}

// isFullDay reports whether ev is a generic duty covering a whole day
// (00:00 to 23:59, or to midnight of the next day).
func isFullDay(ev model.ShiftEvent) bool {
	if ev.Kind != model.Duty || ev.Tag != "" {
		return false
	}
	if ev.Start.Hour() != 0 || ev.Start.Minute() != 0 {
		return false
	}
	d := ev.End.Sub(ev.Start)
	return d == 24*time.Hour-time.Minute || d == 24*time.Hour
}

type dayKey struct {
	y int
	m time.Month
	d int
}

func dropFullDayArtifacts(events []model.ShiftEvent) []model.ShiftEvent {
	hasSpecific := make(map[dayKey]bool)
	for _, ev := range events {
		if !isFullDay(ev) {
			y, m, d := ev.Start.Date()
			hasSpecific[dayKey{y, m, d}] = true
		}
	}

	out := make([]model.ShiftEvent, 0, len(events))
	for _, ev := range events {
		y, m, d := ev.Start.Date()
		if isFullDay(ev) && hasSpecific[dayKey{y, m, d}] {
			continue
		}
		out = append(out, ev)
	}
	return out
}
