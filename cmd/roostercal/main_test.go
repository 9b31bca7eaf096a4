package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCalendarToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "rooster.ics")
	cal := []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")

	require.NoError(t, writeCalendar(out, cal))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, cal, got)
}

func TestWriteCalendarReportsErrors(t *testing.T) {
	dir := t.TempDir()

	err := writeCalendar(filepath.Join(dir, "missing", "rooster.ics"), []byte("x"))
	assert.Error(t, err)

	// A directory cannot be created as a file.
	err = writeCalendar(dir, []byte("x"))
	assert.Error(t, err)
}
