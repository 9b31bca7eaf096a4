// Package convert wires the roster pipeline end to end: document bytes ->
// text -> shift events -> iCalendar.
package convert

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"roostercal/internal/config"
	"roostercal/internal/ics"
	appLog "roostercal/internal/log"
	"roostercal/internal/model"
	"roostercal/internal/pdftext"
	"roostercal/internal/roster"
)

// Result is the outcome of one conversion.
type Result struct {
	Events   []model.ShiftEvent
	Calendar []byte
}

// Service converts roster documents into calendars. It holds no per-run
// state and may be shared between goroutines.
type Service struct {
	text      pdftext.Converter
	extractor *roster.Extractor
	icsOpts   ics.Options
}

// NewService builds a Service from its parts.
func NewService(text pdftext.Converter, extractor *roster.Extractor, icsOpts ics.Options) *Service {
	return &Service{text: text, extractor: extractor, icsOpts: icsOpts}
}

// FromConfig builds the production Service described by cfg.
func FromConfig(cfg *config.Config) (*Service, error) {
	extractor, err := roster.NewExtractor(roster.Options{
		ExtraVocabulary: cfg.ExtraVocabulary,
		Titles: roster.Titles{
			OnCall: cfg.OnCallTitle,
			Duty:   cfg.DutyTitle,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "build extractor")
	}

	pdf := pdftext.NewPdftotext(cfg.Pdftotext)
	pdf.Layout = cfg.PdfLayout

	return NewService(pdf, extractor, ics.Options{ProductID: cfg.ProductID}), nil
}

// Events extracts shift events from a document. It returns
// roster.ErrNoShifts when the document holds no usable entries.
func (s *Service) Events(ctx context.Context, data []byte, filename string) ([]model.ShiftEvent, error) {
	start := time.Now()

	text, err := s.text.ToText(ctx, data, filename)
	if err != nil {
		return nil, errors.Wrap(err, "document to text")
	}

	events := s.extractor.Extract(text)
	if len(events) == 0 {
		appLog.Info("no shifts found", "file", filename, "text_bytes", len(text))
		return nil, roster.ErrNoShifts
	}

	appLog.Info("roster converted",
		"file", filename,
		"events", len(events),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return events, nil
}

// Convert extracts events and renders them as an iCalendar document.
func (s *Service) Convert(ctx context.Context, data []byte, filename string) (Result, error) {
	events, err := s.Events(ctx, data, filename)
	if err != nil {
		return Result{}, err
	}
	cal, err := ics.Marshal(events, s.icsOpts)
	if err != nil {
		return Result{}, err
	}
	return Result{Events: events, Calendar: cal}, nil
}
