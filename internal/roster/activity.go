package roster

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// defaultContextWindow is how far (in bytes) the resolver looks on each
	// side of a match for an "Activiteit:" annotation. Enough to cross a
	// few table rows.
	defaultContextWindow = 240
	maxTagRunes          = 60
	fallbackTagWords     = 3
	scanLines            = 4
	maxPhraseWords       = 4
)

// DefaultVocabulary holds the canonical activity tags, lowercase.
var DefaultVocabulary = []string{
	"administratie",
	"begeleiding",
	"bewaking",
	"briefing",
	"coördinatie",
	"evenement",
	"fietspatrouille",
	"interventie",
	"monitoring",
	"onthaal",
	"opleiding",
	"overleg",
	"patrouille",
	"permanentie",
	"recherche",
	"toezicht",
	"training",
	"verkeer",
	"verkeerscontrole",
	"voetpatrouille",
	"wijkwerking",
}

var (
	annotationRe = regexp.MustCompile(`(?i)(?:memo\s*:\s*)?activiteit\s*:[ \t]*([^\n]*)`)

	verbPhraseRe = regexp.MustCompile(`(?i)((?:(?:uitvoeren|uitvoering|instaan|verzorgen|doen|houden|geven|volgen)\s+(?:van\s+|voor\s+)?)?\p{L}*(?:patrouill|co[oö]rdin|toezicht|opleid|training|monitor|bewak|supervis)\p{L}*(?:[ \t]+\p{L}+){0,3})`)

	genericVerbRe = regexp.MustCompile(`(?i)^(?:uitvoeren|uitvoering|instaan|verzorgen|doen|houden|geven|volgen)\s+(?:van\s+|voor\s+)?`)
)

type vocabTerm struct {
	term   string
	folded string
}

// Resolver derives a short activity tag from the text around a match.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	vocab  []vocabTerm
	window int
}

// NewResolver builds a resolver over vocabulary. Longer terms are tried
// first so "verkeerscontrole" wins over "verkeer".
func NewResolver(vocabulary []string, window int) *Resolver {
	if window <= 0 {
		window = defaultContextWindow
	}
	seen := make(map[string]bool, len(vocabulary))
	terms := make([]vocabTerm, 0, len(vocabulary))
	for _, v := range vocabulary {
		v = strings.ToLower(collapseSpace(v))
		f := fold(v)
		if v == "" || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, vocabTerm{term: v, folded: f})
	}
	sort.SliceStable(terms, func(i, j int) bool {
		if len(terms[i].folded) != len(terms[j].folded) {
			return len(terms[i].folded) > len(terms[j].folded)
		}
		return terms[i].folded < terms[j].folded
	})
	return &Resolver{vocab: terms, window: window}
}

// Resolve returns the activity tag for the match spanning [pos, end) of
// text, or "" when nothing usable is found. Lookup order: annotation after
// the match, annotation before it, duty-verb phrase on the following lines.
func (r *Resolver) Resolve(text string, pos, end int) string {
	if v, ok := r.annotationAfter(text, end); ok {
		return r.canonical(v)
	}
	if v, ok := r.annotationBefore(text, pos); ok {
		return r.canonical(v)
	}
	return scanVerbPhrase(text, end)
}

func (r *Resolver) annotationAfter(text string, end int) (string, bool) {
	hi := max(end, runeBoundary(text, min(len(text), end+r.window)))
	for _, sm := range annotationRe.FindAllStringSubmatch(text[end:hi], -1) {
		if v := collapseSpace(sm[1]); v != "" {
			return v, true
		}
	}
	return "", false
}

func (r *Resolver) annotationBefore(text string, pos int) (string, bool) {
	lo := min(pos, runeBoundary(text, max(0, pos-r.window)))
	all := annotationRe.FindAllStringSubmatch(text[lo:pos], -1)
	for i := len(all) - 1; i >= 0; i-- {
		if v := collapseSpace(all[i][1]); v != "" {
			return v, true
		}
	}
	return "", false
}

// canonical reduces a free-text annotation to a vocabulary tag, or to its
// first few words when no term occurs in it.
func (r *Resolver) canonical(value string) string {
	value = truncateRunes(value, maxTagRunes)
	folded := fold(value)
	for _, t := range r.vocab {
		if strings.Contains(folded, t.folded) {
			return titleCase(t.term)
		}
	}
	return titleCase(firstWords(value, fallbackTagWords))
}

// scanVerbPhrase looks at the rest of the match line and the next few
// lines for a duty-verb phrase ("Uitvoeren patrouille centrum").
func scanVerbPhrase(text string, end int) string {
	rest := strings.SplitN(text[end:], "\n", scanLines+1)
	if len(rest) > scanLines {
		rest = rest[:scanLines]
	}
	for _, line := range rest {
		m := verbPhraseRe.FindString(line)
		if m == "" {
			continue
		}
		phrase := collapseSpace(genericVerbRe.ReplaceAllString(collapseSpace(m), ""))
		if phrase == "" {
			continue
		}
		return titleCase(firstWords(phrase, maxPhraseWords))
	}
	return ""
}

// runeBoundary moves i back to the start of the rune containing it.
func runeBoundary(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
