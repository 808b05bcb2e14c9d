package cmd

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/nibzard/notesync/internal/config"
	"github.com/nibzard/notesync/internal/logging"
	"github.com/nibzard/notesync/internal/notify"
	"github.com/nibzard/notesync/internal/ui"
	"github.com/nibzard/notesync/internal/watch"
)

// watchCommand re-parses a document on every change until ctx is done.
// Failures are reported and the watch keeps running.
func watchCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("notesync watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	push := fs.Bool("push", false, "Push after every change")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := documentArg(fs)
	if err != nil {
		return err
	}
	if *push {
		if err := requireJira(cfg); err != nil {
			return err
		}
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return err
	}

	a := newApp(cfg, stderr)
	defer a.Close()
	sess := a.session(a.notices())

	provider := watch.NewProvider()
	provider.OnError = func(err error) {
		a.logger.Warn("watch", "err", err)
	}
	events, err := provider.Watch(ctx, path)
	if err != nil {
		return err
	}

	apply := func() {
		if *push {
			if _, err := sess.Push(ctx); err != nil {
				a.logger.Error("push failed", "document", path, "err", err)
			}
		}
		printTasks(sess.Registry())
	}

	if err := sess.OpenDocument(path); err != nil {
		return err
	}
	apply()
	fmt.Fprintf(stdout, "Watching %s (Ctrl+C to stop)\n", path)

	for ev := range events {
		if ev.Removed {
			sess.CloseDocument()
			a.logger.Warn("document removed", "document", ev.Path)
			continue
		}
		if err := sess.OpenDocument(ev.Path); err != nil {
			a.logger.Error("reading document", "document", ev.Path, "err", err)
			continue
		}
		a.logger.Info("document changed", "document", ev.Path, "tasks", sess.Registry().Len())
		apply()
	}
	return nil
}

// tuiCommand launches the interactive board for a document.
func tuiCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("notesync tui", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := documentArg(fs)
	if err != nil {
		return err
	}
	if err := requireJira(cfg); err != nil {
		return err
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return err
	}

	// The board owns the terminal; console logging would corrupt it.
	a := &app{cfg: cfg, logger: logging.Discard()}
	if cfg.RunLog {
		if runLog, err := logging.NewRunLogger(cfg.LogDir, cfg.ProjectRoot); err == nil {
			a.runLog = runLog
		}
	}
	defer a.Close()

	notices := notify.NewChanSink(16)
	sess := a.session(notices)
	if err := sess.OpenDocument(path); err != nil {
		return err
	}

	events, err := watch.NewProvider().Watch(ctx, path)
	if err != nil {
		return err
	}
	return ui.RunTUI(ctx, sess, ui.Options{
		Events:     events,
		Notices:    notices.C,
		ProjectKey: cfg.Jira.ProjectKey,
	})
}
