package roster

import (
	"strings"
	"time"

	"roostercal/internal/model"
)

const dateLayout = "02/01/2006"

// Titles are the fixed summaries used when the activity tag does not
// decide the title.
type Titles struct {
	OnCall string
	Duty   string
}

// DefaultTitles matches the kind names used in the roster documents.
var DefaultTitles = Titles{
	OnCall: model.OnCall.String(),
	Duty:   model.Duty.String(),
}

type span struct {
	start, end time.Time
}

// BuildEvents turns the matches of one block into shift events. Off-duty
// matches are dropped, times crossing midnight end on the next day, and a
// (start, end) pair already produced in this block is not produced again.
func BuildEvents(block DateBlock, matches []ServiceMatch, resolver *Resolver, titles Titles) []model.ShiftEvent {
	var out []model.ShiftEvent
	seen := make(map[span]bool, len(matches))

	for _, m := range matches {
		if m.Kind == model.OffDuty {
			continue
		}

		start := atClock(block.Date, m.Start)
		end := atClock(block.Date, m.End)
		if !end.After(start) {
			end = end.Add(24 * time.Hour)
		}

		key := span{start, end}
		if seen[key] {
			continue
		}
		seen[key] = true

		tag := ""
		if resolver != nil {
			tag = resolver.Resolve(block.Text, m.Pos, m.EndPos)
		}

		out = append(out, model.ShiftEvent{
			Title:       titleFor(m.Kind, tag, titles),
			Description: describe(m.Kind, tag, block.Date, m.Start, m.End),
			Tag:         tag,
			Kind:        m.Kind,
			Start:       start,
			End:         end,
		})
	}
	return out
}

func atClock(day time.Time, c Clock) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).
		Add(time.Duration(c) * time.Minute)
}

func titleFor(kind model.ServiceKind, tag string, titles Titles) string {
	switch {
	case kind == model.OnCall:
		return titles.OnCall
	case tag != "":
		return tag
	default:
		return titles.Duty
	}
}

func describe(kind model.ServiceKind, tag string, day time.Time, start, end Clock) string {
	var b strings.Builder
	b.WriteString("Soort: " + kind.String() + "\n")
	if tag != "" {
		b.WriteString("Activiteit: " + tag + "\n")
	}
	b.WriteString("Datum: " + day.Format(dateLayout) + "\n")
	b.WriteString("Tijd: " + start.String() + "-" + end.String())
	return b.String()
}

// describePeriod is the description of a merged on-call span.
func describePeriod(kind model.ServiceKind, tag string, start, end time.Time) string {
	const layout = dateLayout + " 15:04"
	var b strings.Builder
	b.WriteString("Soort: " + kind.String() + "\n")
	if tag != "" {
		b.WriteString("Activiteit: " + tag + "\n")
	}
	b.WriteString("Periode: " + start.Format(layout) + " - " + end.Format(layout))
	return b.String()
}
