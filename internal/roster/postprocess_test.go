package roster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roostercal/internal/model"
)

func onCall(start, end time.Time) model.ShiftEvent {
	return model.ShiftEvent{Title: "Consignatie", Kind: model.OnCall, Start: start, End: end, Description: "orig"}
}

func duty(title, tag string, start, end time.Time) model.ShiftEvent {
	return model.ShiftEvent{Title: title, Tag: tag, Kind: model.Duty, Start: start, End: end}
}

func TestPostProcessMergesAdjacentOnCall(t *testing.T) {
	events := []model.ShiftEvent{
		onCall(at(2024, time.March, 13, 6, 0), at(2024, time.March, 13, 18, 0)),
		onCall(at(2024, time.March, 12, 18, 0), at(2024, time.March, 13, 6, 0)),
	}
	got := PostProcess(events)

	require.Len(t, got, 1)
	assert.Equal(t, at(2024, time.March, 12, 18, 0), got[0].Start)
	assert.Equal(t, at(2024, time.March, 13, 18, 0), got[0].End)
	assert.Equal(t, "Soort: Consignatie\nPeriode: 12/03/2024 18:00 - 13/03/2024 18:00", got[0].Description)
}

func TestPostProcessMergesChains(t *testing.T) {
	events := []model.ShiftEvent{
		onCall(at(2024, time.March, 12, 18, 0), at(2024, time.March, 13, 6, 0)),
		onCall(at(2024, time.March, 13, 6, 0), at(2024, time.March, 13, 18, 0)),
		onCall(at(2024, time.March, 13, 18, 0), at(2024, time.March, 14, 6, 0)),
	}
	got := PostProcess(events)

	require.Len(t, got, 1)
	assert.Equal(t, at(2024, time.March, 14, 6, 0), got[0].End)
}

func TestPostProcessKeepsGapsAndDuty(t *testing.T) {
	events := []model.ShiftEvent{
		onCall(at(2024, time.March, 12, 18, 0), at(2024, time.March, 13, 6, 0)),
		onCall(at(2024, time.March, 13, 7, 0), at(2024, time.March, 13, 18, 0)),
		duty("Dienst", "", at(2024, time.March, 14, 8, 0), at(2024, time.March, 14, 12, 0)),
		duty("Dienst", "", at(2024, time.March, 14, 12, 0), at(2024, time.March, 14, 16, 0)),
	}
	got := PostProcess(events)

	require.Len(t, got, 4)
	assert.Equal(t, "orig", got[0].Description)
}

func TestPostProcessFullDayArtifacts(t *testing.T) {
	fullDay := duty("Dienst", "", at(2024, time.March, 12, 0, 0), at(2024, time.March, 12, 23, 59))
	toMidnight := duty("Dienst", "", at(2024, time.March, 12, 0, 0), at(2024, time.March, 13, 0, 0))
	real := duty("Dienst", "", at(2024, time.March, 12, 8, 0), at(2024, time.March, 12, 16, 0))

	t.Run("dropped next to a specific event", func(t *testing.T) {
		got := PostProcess([]model.ShiftEvent{fullDay, real})
		require.Len(t, got, 1)
		assert.Equal(t, real, got[0])
	})

	t.Run("midnight end variant dropped", func(t *testing.T) {
		got := PostProcess([]model.ShiftEvent{toMidnight, real})
		require.Len(t, got, 1)
		assert.Equal(t, real, got[0])
	})

	t.Run("kept when alone", func(t *testing.T) {
		got := PostProcess([]model.ShiftEvent{fullDay})
		require.Len(t, got, 1)
		assert.Equal(t, fullDay, got[0])
	})

	t.Run("tagged full day is not an artifact", func(t *testing.T) {
		tagged := duty("Opleiding", "Opleiding", fullDay.Start, fullDay.End)
		got := PostProcess([]model.ShiftEvent{tagged, real})
		assert.Len(t, got, 2)
	})

	t.Run("other days do not count", func(t *testing.T) {
		other := duty("Dienst", "", at(2024, time.March, 13, 8, 0), at(2024, time.March, 13, 16, 0))
		got := PostProcess([]model.ShiftEvent{fullDay, other})
		assert.Len(t, got, 2)
	})
}

func TestPostProcessSortsByStartEndTitle(t *testing.T) {
	s := at(2024, time.March, 12, 8, 0)
	events := []model.ShiftEvent{
		duty("B", "B", s, s.Add(2*time.Hour)),
		duty("A", "A", s, s.Add(2*time.Hour)),
		duty("C", "C", s, s.Add(1*time.Hour)),
		duty("D", "D", s.Add(-time.Hour), s),
	}
	got := PostProcess(events)

	titles := make([]string, 0, len(got))
	for _, ev := range got {
		titles = append(titles, ev.Title)
	}
	assert.Equal(t, []string{"D", "C", "A", "B"}, titles)
}

func TestPostProcessIsIdempotentAndPure(t *testing.T) {
	events := []model.ShiftEvent{
		onCall(at(2024, time.March, 12, 18, 0), at(2024, time.March, 13, 6, 0)),
		onCall(at(2024, time.March, 13, 6, 0), at(2024, time.March, 13, 18, 0)),
		duty("Dienst", "", at(2024, time.March, 14, 0, 0), at(2024, time.March, 14, 23, 59)),
		duty("Dienst", "", at(2024, time.March, 14, 8, 0), at(2024, time.March, 14, 16, 0)),
		duty("Dienst", "", at(2024, time.March, 15, 0, 0), at(2024, time.March, 15, 23, 59)),
	}
	input := make([]model.ShiftEvent, len(events))
	copy(input, events)

	once := PostProcess(events)
	twice := PostProcess(once)

	assert.Equal(t, once, twice)
	assert.Equal(t, input, events)
	assert.Len(t, once, 3)
}

func TestPostProcessEmpty(t *testing.T) {
	assert.Empty(t, PostProcess(nil))
}
