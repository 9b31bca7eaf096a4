package ics

import (
	"bytes"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	appLog "roostercal/internal/log"
	"roostercal/internal/model"
)

const (
	// DefaultProductID is the PRODID written when none is configured.
	DefaultProductID = "-//roostercal//Rooster naar ICS//NL"

	// floatingLayout writes DATE-TIME values without a zone: roster times
	// are naive local wall-clock times.
	floatingLayout = "20060102T150405"
	uidDomain      = "@roostercal"
)

var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://roostercal/shift"))

// Options controls calendar generation.
type Options struct {
	// ProductID overrides DefaultProductID.
	ProductID string
	// Now returns the DTSTAMP value. Defaults to time.Now.
	Now func() time.Time
}

// Encode writes events as one VCALENDAR with one VEVENT per event.
func Encode(w io.Writer, events []model.ShiftEvent, opts Options) error {
	if opts.ProductID == "" {
		opts.ProductID = DefaultProductID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	stamp := opts.Now().UTC()

	cal := ical.NewCalendar()
	cal.SetVersion("2.0")
	cal.SetProductId(opts.ProductID)

	for _, ev := range events {
		ve := cal.AddEvent(EventUID(ev))
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		ve.SetProperty(ical.ComponentPropertyDtStart, ev.Start.Format(floatingLayout))
		ve.SetProperty(ical.ComponentPropertyDtEnd, ev.End.Format(floatingLayout))
		ve.SetDtStampTime(stamp)
	}

	if err := cal.SerializeTo(w); err != nil {
		return errors.Wrap(err, "serialize calendar")
	}
	appLog.Debug("ics encode completed", "event_count", len(events))
	return nil
}

// Marshal is Encode into a byte slice.
func Marshal(events []model.ShiftEvent, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, events, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EventUID derives a stable UID from the event's start, end and title so
// that re-importing a converted roster updates events instead of
// duplicating them.
func EventUID(ev model.ShiftEvent) string {
	key := ev.Start.Format(floatingLayout) + "|" + ev.End.Format(floatingLayout) + "|" + ev.Title
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + uidDomain
}
