package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"roostercal/internal/config"
	"roostercal/internal/convert"
	"roostercal/internal/inbox"
	appLog "roostercal/internal/log"
	"roostercal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	convert    string
	out        string
	inbox      string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			appLog.Error("failed to load config", err, "config_path", flags.configPath)
			os.Exit(1)
		}
		// Default config could not be persisted; keep going with it.
		appLog.Warn("using default config", "config_path", flags.configPath, "error", err.Error())
	}

	// CLI flags override the config file when set.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.inbox != "" {
		conf.Inbox.Dir = flags.inbox
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	svc, err := convert.FromConfig(conf)
	if err != nil {
		appLog.Error("failed to build converter", err)
		os.Exit(1)
	}

	// One-shot mode: convert a single roster and exit.
	if flags.convert != "" {
		if err := convertFile(svc, flags.convert, flags.out); err != nil {
			appLog.Error("conversion failed", err, "file", flags.convert)
			os.Exit(1)
		}
		return
	}

	appLog.Info("roostercal starting", "version", "0.1.0")
	appLog.Info("effective config",
		"listen", conf.Listen,
		"log_level", conf.LogLevel,
		"max_upload_mb", conf.MaxUploadMB,
		"pdftotext", conf.Pdftotext,
		"extra_vocabulary", len(conf.ExtraVocabulary),
		"inbox", conf.Inbox.Dir,
		"basic_auth", conf.BasicAuth != nil,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	var wg sync.WaitGroup
	if conf.Inbox.Dir != "" {
		ib, err := inbox.New(conf.Inbox, svc)
		if err != nil {
			appLog.Error("failed to set up inbox", err, "dir", conf.Inbox.Dir)
			os.Exit(1)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ib.Run(ctx); err != nil {
				appLog.Error("inbox stopped with error", err)
				cancel()
			}
		}()
	}

	srv := web.NewServer(conf, svc)
	if err := srv.Run(ctx); err != nil {
		appLog.Error("HTTP server failed", err)
		cancel()
		wg.Wait()
		os.Exit(1)
	}

	wg.Wait()
	time.Sleep(100 * time.Millisecond)
	appLog.Info("roostercal exiting")
}

// convertFile runs the pipeline once. out "" or "-" means stdout.
func convertFile(svc *convert.Service, path, out string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := svc.Convert(ctx, data, path)
	if err != nil {
		return err
	}

	if err := writeCalendar(out, res.Calendar); err != nil {
		return err
	}
	appLog.Info("calendar written", "events", len(res.Events), "out", out)
	return nil
}

// writeCalendar writes cal to out; "" or "-" means stdout.
func writeCalendar(out string, cal []byte) error {
	if out == "" || out == "-" {
		_, err := os.Stdout.Write(cal)
		return errors.Wrap(err, "write calendar")
	}

	f, err := os.Create(out)
	if err != nil {
		return errors.Wrapf(err, "create %s", out)
	}
	if _, err := f.Write(cal); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", out)
	}
	return errors.Wrapf(f.Close(), "close %s", out)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/roostercal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.convert, "convert", "", "Convert one roster (PDF or text) and exit")
	flag.StringVar(&cfg.out, "out", "", "Output .ics path for -convert (default stdout)")
	flag.StringVar(&cfg.inbox, "inbox", "", "Watched roster directory (overrides config if set)")

	flag.Parse()

	return cfg
}
