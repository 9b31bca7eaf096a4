package ics

import (
	"bytes"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/pkg/errors"

	appLog "roostercal/internal/log"
	"roostercal/internal/model"
)

// Decode reads a calendar previously produced by Encode back into shift
// events, in file order. VEVENTs without a readable DTSTART/DTEND are
// logged and skipped.
func Decode(body []byte) ([]model.ShiftEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "parse calendar")
	}

	events := make([]model.ShiftEvent, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "err", perr)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (model.ShiftEvent, error) {
	var out model.ShiftEvent

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = unescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = unescapeText(p.Value)
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	endProp := ve.GetProperty(ical.ComponentPropertyDtEnd)
	if startProp == nil || endProp == nil {
		return out, errors.New("missing DTSTART or DTEND")
	}

	var err error
	if out.Start, err = parseICSTime(startProp.Value); err != nil {
		return out, errors.Wrap(err, "DTSTART")
	}
	if out.End, err = parseICSTime(endProp.Value); err != nil {
		return out, errors.Wrap(err, "DTEND")
	}

	out.Kind, out.Tag = kindAndTag(out.Description)
	return out, nil
}

var textUnescaper = strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)

// unescapeText undoes RFC 5545 TEXT escaping.
func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}

// kindAndTag recovers the service kind and activity tag from the
// "Soort:" and "Activiteit:" description lines.
func kindAndTag(description string) (model.ServiceKind, string) {
	kind := model.Duty
	tag := ""
	for _, line := range strings.Split(description, "\n") {
		switch {
		case strings.HasPrefix(line, "Soort: "):
			if strings.TrimPrefix(line, "Soort: ") == model.OnCall.String() {
				kind = model.OnCall
			}
		case strings.HasPrefix(line, "Activiteit: "):
			tag = strings.TrimPrefix(line, "Activiteit: ")
		}
	}
	return kind, tag
}

// parseICSTime parses DATE-TIME values. Floating and UTC forms both land in
// time.UTC, which only carries the wall-clock value.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}

	// Floating date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.Parse(floatingLayout, v)
	}

	// Date-only, e.g., 20250101
	return time.Parse("20060102", v)
}

// Equal reports whether two event lists carry the same titles,
// descriptions and times in the same order.
func Equal(a, b []model.ShiftEvent) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Title != b[i].Title ||
			a[i].Description != b[i].Description ||
			!a[i].Start.Equal(b[i].Start) ||
			!a[i].End.Equal(b[i].End) {
			return false
		}
	}
	return true
}
