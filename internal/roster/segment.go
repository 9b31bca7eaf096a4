package roster

import (
	"regexp"
	"time"

	appLog "roostercal/internal/log"
)

// DateToken is a recognised date literal and where it sits in the text.
type DateToken struct {
	Date       time.Time
	Start, End int
}

// DateBlock is the text attributed to one calendar date: from the end of
// its date token up to the start of the next one, or the end of the text.
type DateBlock struct {
	Date time.Time
	Text string
	// Offset is the position of Text inside the segmented document.
	Offset int
}

var dateCandidateRe = regexp.MustCompile(`\b\d{2}[/-]\d{2}[/-](?:\d{4}|\d{2})\b`)

// dateLayouts are tried in order; the first successful parse wins.
var dateLayouts = []string{
	"02-01-2006",
	"02/01/2006",
	"02-01-06",
	"02/01/06",
}

var headerRe = regexp.MustCompile(`(?m)^.*Soort.*Start-Eind.*$`)

// skipHeader drops everything before the first "Soort ... Start-Eind"
// column header, when the document has one.
func skipHeader(text string) string {
	loc := headerRe.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[loc[1]:]
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FindDates returns every parseable date token in source order. Candidates
// that match the date shape but fail every layout are skipped.
func FindDates(text string) []DateToken {
	locs := dateCandidateRe.FindAllStringIndex(text, -1)
	tokens := make([]DateToken, 0, len(locs))
	for _, loc := range locs {
		raw := text[loc[0]:loc[1]]
		d, ok := parseDate(raw)
		if !ok {
			appLog.Debug("roster: skipping unparseable date", "raw", raw, "offset", loc[0])
			continue
		}
		tokens = append(tokens, DateToken{Date: d, Start: loc[0], End: loc[1]})
	}
	return tokens
}

// Segment splits normalized text into ordered, non-overlapping date
// blocks. Text before the first date token belongs to no block.
func Segment(text string) []DateBlock {
	tokens := FindDates(text)
	if len(tokens) == 0 {
		return nil
	}

	blocks := make([]DateBlock, 0, len(tokens))
	for i, tok := range tokens {
		end := len(text)
		if i+1 < len(tokens) {
			end = tokens[i+1].Start
		}
		blocks = append(blocks, DateBlock{
			Date:   tok.Date,
			Text:   text[tok.End:end],
			Offset: tok.End,
		})
	}
	return blocks
}
