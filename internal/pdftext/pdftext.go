// Package pdftext turns uploaded roster files into linear text.
package pdftext

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	appLog "roostercal/internal/log"
)

// ErrUnsupported is returned for files that are neither PDF nor text.
var ErrUnsupported = errors.New("unsupported file type")

var pdfMagic = []byte("%PDF-")

// Converter turns a document into page-concatenated, line-break separated
// text.
type Converter interface {
	ToText(ctx context.Context, data []byte, filename string) (string, error)
}

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	if err != nil {
		appLog.Error("exec failed", err,
			"cmd", name,
			"duration_ms", time.Since(start).Milliseconds(),
			"stderr", truncate(errb.String(), 8<<10),
		)
	} else {
		appLog.Debug("exec ok",
			"cmd", name,
			"duration_ms", time.Since(start).Milliseconds(),
			"stdout_bytes", out.Len(),
		)
	}
	return out.Bytes(), errb.Bytes(), err
}

// Pdftotext converts PDFs with poppler's pdftotext and passes plain text
// files through.
type Pdftotext struct {
	// Binary is the pdftotext executable. Defaults to "pdftotext".
	Binary string
	// Layout keeps the physical column layout (-layout).
	Layout bool

	runner Runner
}

// NewPdftotext returns a converter using binary, or "pdftotext" from PATH
// when binary is empty.
func NewPdftotext(binary string) *Pdftotext {
	if binary == "" {
		binary = "pdftotext"
	}
	return &Pdftotext{Binary: binary, runner: execRunner{}}
}

// WithRunner replaces the command runner, mainly for tests.
func (p *Pdftotext) WithRunner(r Runner) *Pdftotext {
	p.runner = r
	return p
}

// ToText implements Converter.
func (p *Pdftotext) ToText(ctx context.Context, data []byte, filename string) (string, error) {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return p.pdfToText(ctx, data)
	case isText(data, filename):
		return string(data), nil
	default:
		return "", errors.Wrapf(ErrUnsupported, "file %q", filename)
	}
}

func (p *Pdftotext) pdfToText(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "roostercal-*.pdf")
	if err != nil {
		return "", errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(err, "close temp file")
	}

	// pdftotext [-layout] -enc UTF-8 -eol unix <file> -
	args := []string{"-enc", "UTF-8", "-eol", "unix", tmpName, "-"}
	if p.Layout {
		args = append([]string{"-layout"}, args...)
	}
	out, errb, err := p.runner.Run(ctx, p.Binary, args...)
	if err != nil {
		return "", errors.Wrapf(err, "pdftotext: %s", strings.TrimSpace(truncate(string(errb), 512)))
	}

	// Pages are separated by form feeds; the roster engine wants lines.
	text := strings.ReplaceAll(string(out), "\f", "\n")
	appLog.Info("pdf converted to text", "bytes", len(data), "text_bytes", len(text), "pages", 1+strings.Count(string(out), "\f"))
	return text, nil
}

func isText(data []byte, filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".txt" && ext != ".text" && ext != "" {
		return false
	}
	return utf8.Valid(data) && !bytes.ContainsRune(data, 0)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
