package model

import "time"

// ServiceKind classifies a roster entry.
type ServiceKind int

const (
	// Duty is a generic active shift.
	Duty ServiceKind = iota
	// OnCall is availability rather than active work ("consignatie").
	OnCall
	// OffDuty marks rest. It is matched but never becomes an event.
	OffDuty
)

func (k ServiceKind) String() string {
	switch k {
	case OnCall:
		return "Consignatie"
	case OffDuty:
		return "Vrij"
	default:
		return "Dienst"
	}
}

// ShiftEvent is one normalized calendar entry extracted from a roster.
//
// Start and End are naive local wall-clock times (time.UTC is used only
// as a carrier; no zone conversion is ever applied). End is always after
// Start.
type ShiftEvent struct {
	Title       string
	Description string

	// Tag is the resolved activity tag, empty when none was found.
	Tag  string
	Kind ServiceKind

	Start time.Time
	End   time.Time
}

// Less orders events by (start, end, title).
func Less(a, b ShiftEvent) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	if !a.End.Equal(b.End) {
		return a.End.Before(b.End)
	}
	return a.Title < b.Title
}
