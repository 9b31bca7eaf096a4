// Package roster turns the linear text of a work roster into a sorted list
// of shift events.
//
// The pipeline is Normalize -> Segment -> per block {Match -> Resolve ->
// BuildEvents} -> PostProcess. Every step is total over arbitrary input:
// malformed dates and times are skipped, and an empty result simply means
// nothing was found.
package roster

import (
	"github.com/pkg/errors"

	appLog "roostercal/internal/log"
	"roostercal/internal/model"
)

// ErrNoShifts is returned by callers that need to surface an empty
// extraction as a failure.
var ErrNoShifts = errors.New("no shifts found")

// Options configures an Extractor. Zero values fall back to defaults.
type Options struct {
	Rules []Rule
	// Vocabulary replaces DefaultVocabulary when non-empty.
	Vocabulary []string
	// ExtraVocabulary is appended to the vocabulary in use.
	ExtraVocabulary []string
	ContextWindow   int
	Titles          Titles
}

// Extractor runs the extraction pipeline. It is immutable once built and
// safe for concurrent use; each call works on its own data.
type Extractor struct {
	matcher  *Matcher
	resolver *Resolver
	titles   Titles
}

// NewExtractor builds an Extractor from opts.
func NewExtractor(opts Options) (*Extractor, error) {
	rules := opts.Rules
	if len(rules) == 0 {
		rules = DefaultRules
	}
	matcher, err := NewMatcher(rules)
	if err != nil {
		return nil, err
	}

	vocab := opts.Vocabulary
	if len(vocab) == 0 {
		vocab = DefaultVocabulary
	}
	vocab = append(append([]string{}, vocab...), opts.ExtraVocabulary...)

	titles := opts.Titles
	if titles.OnCall == "" {
		titles.OnCall = DefaultTitles.OnCall
	}
	if titles.Duty == "" {
		titles.Duty = DefaultTitles.Duty
	}

	return &Extractor{
		matcher:  matcher,
		resolver: NewResolver(vocab, opts.ContextWindow),
		titles:   titles,
	}, nil
}

var defaultExtractor = mustExtractor(Options{})

func mustExtractor(opts Options) *Extractor {
	e, err := NewExtractor(opts)
	if err != nil {
		panic(err)
	}
	return e
}

// Extract runs the default pipeline over text.
func Extract(text string) []model.ShiftEvent {
	return defaultExtractor.Extract(text)
}

// Extract converts roster text into normalized shift events.
func (e *Extractor) Extract(text string) []model.ShiftEvent {
	normalized := skipHeader(Normalize(text))
	blocks := Segment(normalized)

	var candidates []model.ShiftEvent
	matchCount := 0
	for _, b := range blocks {
		matches := e.matcher.Match(b.Text)
		matchCount += len(matches)
		candidates = append(candidates, BuildEvents(b, matches, e.resolver, e.titles)...)
	}

	events := PostProcess(candidates)
	appLog.Info("roster extraction completed",
		"blocks", len(blocks),
		"matches", matchCount,
		"candidates", len(candidates),
		"events", len(events),
	)
	return events
}
