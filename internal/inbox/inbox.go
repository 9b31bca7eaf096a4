// Package inbox converts rosters dropped into a watched directory.
//
// New files are picked up through fsnotify; a cron-scheduled rescan catches
// anything the notifications missed (network shares, files present before
// startup).
package inbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"roostercal/internal/config"
	"roostercal/internal/convert"
	"roostercal/internal/ics"
	appLog "roostercal/internal/log"
	"roostercal/internal/roster"
)

// Allowed extensions for discovery (lowercase, with '.').
var allowedExts = map[string]struct{}{
	".pdf": {},
	".txt": {},
}

// Processor converts one document.
type Processor interface {
	Convert(ctx context.Context, data []byte, filename string) (convert.Result, error)
}

// Inbox watches a directory and writes one .ics per roster into outbox.
type Inbox struct {
	dir      string
	outbox   string
	rescan   string
	debounce time.Duration
	proc     Processor

	// mu serializes conversions between the watcher loop and cron jobs.
	mu sync.Mutex
}

// New validates cfg and returns an Inbox.
func New(cfg config.InboxConfig, proc Processor) (*Inbox, error) {
	if cfg.Dir == "" {
		return nil, errors.New("inbox dir is empty")
	}
	outbox := cfg.Outbox
	if outbox == "" {
		outbox = cfg.Dir
	}
	if cfg.Rescan != "" {
		if _, err := cron.ParseStandard(cfg.Rescan); err != nil {
			return nil, errors.Wrapf(err, "invalid rescan schedule %q", cfg.Rescan)
		}
	}
	return &Inbox{
		dir:      cfg.Dir,
		outbox:   outbox,
		rescan:   cfg.Rescan,
		debounce: time.Duration(cfg.DebounceMS) * time.Millisecond,
		proc:     proc,
	}, nil
}

// Run performs an initial scan, then watches the directory until ctx is
// cancelled.
func (ib *Inbox) Run(ctx context.Context) error {
	if err := os.MkdirAll(ib.outbox, 0o755); err != nil {
		return errors.Wrap(err, "create outbox")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer w.Close()
	if err := w.Add(ib.dir); err != nil {
		return errors.Wrapf(err, "watch %s", ib.dir)
	}

	if ib.rescan != "" {
		c := cron.New()
		if _, err := c.AddFunc(ib.rescan, func() { ib.scanAndLog(ctx, "cron") }); err != nil {
			return errors.Wrap(err, "schedule rescan")
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
	}

	appLog.Info("inbox watching", "dir", ib.dir, "outbox", ib.outbox, "rescan", ib.rescan)
	ib.scanAndLog(ctx, "startup")

	pending := map[string]struct{}{}
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	flush := func() {
		for p := range pending {
			delete(pending, p)
			if _, err := ib.ProcessFile(ctx, p); err != nil {
				appLog.Error("inbox conversion failed", err, "file", p)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			appLog.Info("inbox stopped", "dir", ib.dir)
			return nil
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !allowed(e.Name) || e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			pending[e.Name] = struct{}{}
			if ib.debounce <= 0 {
				flush()
				continue
			}
			timer.Reset(ib.debounce)
		case <-timer.C:
			flush()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			appLog.Error("inbox watcher error", err, "dir", ib.dir)
		}
	}
}

func (ib *Inbox) scanAndLog(ctx context.Context, trigger string) {
	n, err := ib.Scan(ctx)
	if err != nil {
		appLog.Error("inbox scan failed", err, "trigger", trigger)
		return
	}
	appLog.Info("inbox scan completed", "trigger", trigger, "written", n)
}

// Scan converts every roster in the directory whose calendar is missing or
// older than the roster. It returns the number of calendars written.
func (ib *Inbox) Scan(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(ib.dir)
	if err != nil {
		return 0, errors.Wrapf(err, "read %s", ib.dir)
	}

	written := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return written, ctx.Err()
		}
		if e.IsDir() || !allowed(e.Name()) {
			continue
		}
		path := filepath.Join(ib.dir, e.Name())
		if ib.upToDate(path) {
			continue
		}
		ok, err := ib.ProcessFile(ctx, path)
		if err != nil {
			appLog.Error("inbox conversion failed", err, "file", path)
			continue
		}
		if ok {
			written++
		}
	}
	return written, nil
}

// ProcessFile converts one roster. It reports whether a calendar was
// written; rosters without shifts and unchanged calendars write nothing.
func (ib *Inbox) ProcessFile(ctx context.Context, path string) (bool, error) {
	ib.mu.Lock()
	defer ib.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return false, errors.Wrapf(err, "read %s", path)
	}

	res, err := ib.proc.Convert(ctx, data, filepath.Base(path))
	if errors.Is(err, roster.ErrNoShifts) {
		appLog.Warn("inbox: no shifts in roster", "file", path)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	out := ib.outputPath(path)
	if existing, err := os.ReadFile(out); err == nil {
		if prev, err := ics.Decode(existing); err == nil && ics.Equal(prev, res.Events) {
			appLog.Debug("inbox: calendar unchanged", "file", out)
			// Touch so the next scan sees it as current.
			now := time.Now()
			_ = os.Chtimes(out, now, now)
			return false, nil
		}
	}

	if err := writeAtomic(out, res.Calendar); err != nil {
		return false, err
	}
	appLog.Info("inbox: calendar written", "file", out, "events", len(res.Events))
	return true, nil
}

func (ib *Inbox) outputPath(src string) string {
	base := filepath.Base(src)
	return filepath.Join(ib.outbox, strings.TrimSuffix(base, filepath.Ext(base))+".ics")
}

func (ib *Inbox) upToDate(src string) bool {
	si, err := os.Stat(src)
	if err != nil {
		return false
	}
	oi, err := os.Stat(ib.outputPath(src))
	if err != nil {
		return false
	}
	return !oi.ModTime().Before(si.ModTime())
}

func allowed(path string) bool {
	_, ok := allowedExts[strings.ToLower(filepath.Ext(path))]
	return ok
}

// writeAtomic writes via a temp file in the same directory and renames it
// over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".roostercal-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return errors.Wrapf(os.Rename(tmpName, path), "rename to %s", path)
}
