package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roostercal/internal/config"
	"roostercal/internal/convert"
	"roostercal/internal/ics"
	"roostercal/internal/pdftext"
	"roostercal/internal/roster"
)

const rosterText = "12/03/2024\nDIENST 08:00-16:00\nActiviteit: Briefing\n"

func newProcessor(t *testing.T) Processor {
	t.Helper()
	ex, err := roster.NewExtractor(roster.Options{})
	require.NoError(t, err)
	fixed := func() time.Time { return time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC) }
	return convert.NewService(pdftext.NewPdftotext(""), ex, ics.Options{Now: fixed})
}

type failingProcessor struct{ err error }

func (f failingProcessor) Convert(context.Context, []byte, string) (convert.Result, error) {
	return convert.Result{}, f.err
}

func newTestInbox(t *testing.T, proc Processor) (*Inbox, string, string) {
	t.Helper()
	in := t.TempDir()
	out := t.TempDir()
	ib, err := New(config.InboxConfig{Dir: in, Outbox: out, DebounceMS: 10}, proc)
	require.NoError(t, err)
	return ib, in, out
}

func TestNew(t *testing.T) {
	_, err := New(config.InboxConfig{}, nil)
	assert.Error(t, err)

	_, err = New(config.InboxConfig{Dir: "/tmp/x", Rescan: "every now and then"}, nil)
	assert.Error(t, err)

	ib, err := New(config.InboxConfig{Dir: "/tmp/x", Rescan: "*/5 * * * *"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", ib.outbox)
}

func TestProcessFileWritesCalendar(t *testing.T) {
	ib, in, out := newTestInbox(t, newProcessor(t))
	src := filepath.Join(in, "maart.txt")
	require.NoError(t, os.WriteFile(src, []byte(rosterText), 0o644))

	written, err := ib.ProcessFile(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(filepath.Join(out, "maart.ics"))
	require.NoError(t, err)
	events, err := ics.Decode(data)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Briefing", events[0].Title)

	written, err = ib.ProcessFile(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, written, "unchanged calendar must not be rewritten")
}

func TestProcessFileNoShifts(t *testing.T) {
	ib, in, out := newTestInbox(t, newProcessor(t))
	src := filepath.Join(in, "leeg.txt")
	require.NoError(t, os.WriteFile(src, []byte("niets"), 0o644))

	written, err := ib.ProcessFile(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, written)
	assert.NoFileExists(t, filepath.Join(out, "leeg.ics"))
}

func TestProcessFileErrors(t *testing.T) {
	boom := errors.New("boom")
	ib, in, _ := newTestInbox(t, failingProcessor{err: boom})

	_, err := ib.ProcessFile(context.Background(), filepath.Join(in, "missing.txt"))
	assert.Error(t, err)

	src := filepath.Join(in, "x.txt")
	require.NoError(t, os.WriteFile(src, []byte(rosterText), 0o644))
	_, err = ib.ProcessFile(context.Background(), src)
	assert.ErrorIs(t, err, boom)
}

func TestScan(t *testing.T) {
	ib, in, out := newTestInbox(t, newProcessor(t))
	require.NoError(t, os.WriteFile(filepath.Join(in, "a.txt"), []byte(rosterText), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "b.TXT"), []byte(rosterText), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.md"), []byte(rosterText), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(in, "sub.txt"), 0o755))

	n, err := ib.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.FileExists(t, filepath.Join(out, "a.ics"))
	assert.FileExists(t, filepath.Join(out, "b.ics"))
	assert.NoFileExists(t, filepath.Join(out, "notes.ics"))

	n, err = ib.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n, "up-to-date calendars are skipped")
}

func TestRunPicksUpNewFiles(t *testing.T) {
	ib, in, out := newTestInbox(t, newProcessor(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ib.Run(ctx) }()

	// Give the watcher a moment to register before dropping the file.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(in, "nieuw.txt"), []byte(rosterText), 0o644))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(out, "nieuw.ics"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
