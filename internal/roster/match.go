package roster

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	appLog "roostercal/internal/log"
	"roostercal/internal/model"
)

// maxLabelGap bounds the non-digit run between a label and its time range,
// and maxGapBreaks the line breaks inside it. Together they let a match
// cross one column jump without reaching into unrelated rows.
const (
	maxLabelGap  = 40
	maxGapBreaks = 1
)

// Rule is one label grammar of the service matcher. Rules are evaluated in
// ascending Priority; a match from an earlier rule claims its text span and
// later overlapping matches are discarded. A time range belongs to the
// closest label before it: a match whose gap holds another label is
// rejected.
type Rule struct {
	Name     string
	Kind     model.ServiceKind
	Priority int
	// Label is a regexp fragment for the label token, matched
	// case-insensitively as whole words. It must not contain capturing
	// groups.
	Label string
}

// DefaultRules is the canonical label table.
var DefaultRules = []Rule{
	{Name: "on-call", Kind: model.OnCall, Priority: 0, Label: `consig\w*|wachtdienst|piket`},
	{Name: "off-duty", Kind: model.OffDuty, Priority: 1, Label: `vrij(?:af)?|rust(?:dag)?|verlof|recup\w*`},
	{Name: "duty", Kind: model.Duty, Priority: 2, Label: `dienst(?:\s+(?:dag|nacht|avond|vroeg|laat|extra|vervanging|reserve))*`},
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Matcher finds service entries inside a date block.
type Matcher struct {
	rules []compiledRule
	// labels matches any rule's label; used to check match gaps.
	labels *regexp.Regexp
}

// NewMatcher compiles rules, ordered by priority.
func NewMatcher(rules []Rule) (*Matcher, error) {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	m := &Matcher{rules: make([]compiledRule, 0, len(sorted))}
	alts := make([]string, 0, len(sorted))
	for _, r := range sorted {
		expr := fmt.Sprintf(`(?i)\b(%s)\b([^\d]{0,%d}?)(\d{2}:\d{2})\s*-\s*(\d{2}:\d{2})`, r.Label, maxLabelGap)
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %q", r.Name)
		}
		m.rules = append(m.rules, compiledRule{Rule: r, re: re})
		alts = append(alts, "(?:"+r.Label+")")
	}
	if len(alts) > 0 {
		labels, err := regexp.Compile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
		if err != nil {
			return nil, errors.Wrap(err, "label set")
		}
		m.labels = labels
	}
	return m, nil
}

// Clock is a time of day in minutes since midnight.
type Clock int

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// parseClock parses "HH:MM". "24:00" is read as 23:59.
func parseClock(s string) (Clock, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	if s == "24:00" {
		return 23*60 + 59, true
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return Clock(h*60 + m), true
}

// ServiceMatch is one located (label, start, end) entry within a block.
type ServiceMatch struct {
	Label string
	Kind  model.ServiceKind
	Rule  string

	Start Clock
	End   Clock

	// Pos and EndPos delimit the whole match inside the block text.
	Pos    int
	EndPos int
}

// Match returns every non-overlapping service entry in text, in source
// order. Off-duty entries are included.
func (m *Matcher) Match(text string) []ServiceMatch {
	var out []ServiceMatch
	for _, r := range m.rules {
		for _, idx := range m.findAll(r.re, text) {
			start, okStart := parseClock(text[idx[6]:idx[7]])
			end, okEnd := parseClock(text[idx[8]:idx[9]])
			if !okStart || !okEnd {
				appLog.Debug("roster: skipping entry with invalid time",
					"rule", r.Name,
					"start", text[idx[6]:idx[7]],
					"end", text[idx[8]:idx[9]],
				)
				continue
			}
			if overlapsAny(out, idx[0], idx[1]) {
				continue
			}
			out = append(out, ServiceMatch{
				Label:  text[idx[2]:idx[3]],
				Kind:   r.Kind,
				Rule:   r.Name,
				Start:  start,
				End:    end,
				Pos:    idx[0],
				EndPos: idx[1],
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pos < out[j].Pos })
	return out
}

// findAll returns the submatch indices of re in text, skipping matches whose
// gap crosses too many lines or holds another label. Scanning resumes right
// after a rejected label so a later label can still claim the time range.
func (m *Matcher) findAll(re *regexp.Regexp, text string) [][]int {
	var out [][]int
	for off := 0; off < len(text); {
		loc := re.FindStringSubmatchIndex(text[off:])
		if loc == nil {
			break
		}
		for i := range loc {
			if loc[i] >= 0 {
				loc[i] += off
			}
		}
		// \b at the start of text[off:] does not see the byte before off.
		if loc[0] > 0 && isWordByte(text[loc[0]-1]) {
			off = loc[0] + 1
			continue
		}
		gap := text[loc[4]:loc[5]]
		if strings.Count(gap, "\n") > maxGapBreaks || (m.labels != nil && m.labels.MatchString(gap)) {
			off = loc[3]
			continue
		}
		out = append(out, loc)
		off = loc[1]
	}
	return out
}

func isWordByte(b byte) bool {
	return b == '_' || '0' <= b && b <= '9' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

func overlapsAny(matches []ServiceMatch, start, end int) bool {
	for _, m := range matches {
		if start < m.EndPos && m.Pos < end {
			return true
		}
	}
	return false
}
