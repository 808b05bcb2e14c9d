// Package cmd implements the CLI command structure for notesync.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/notesync/internal/config"
	"github.com/nibzard/notesync/internal/jira"
	"github.com/nibzard/notesync/internal/logging"
	"github.com/nibzard/notesync/internal/notify"
	"github.com/nibzard/notesync/internal/session"
	"github.com/nibzard/notesync/internal/syncer"
	"github.com/nibzard/notesync/internal/watch"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Output streams; tests swap them.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Run executes the notesync CLI.
func Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("notesync", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		printUsage(fs, stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, stdout)
		return nil
	}
	if *showVersion {
		return versionCommand()
	}

	remainingArgs := fs.Args()
	if len(remainingArgs) == 0 {
		printUsage(fs, stdout)
		return nil
	}
	subcommand := remainingArgs[0]
	remainingArgs = remainingArgs[1:]
	cfg := cws.Config

	switch subcommand {
	case "parse":
		return parseCommand(cfg, remainingArgs)
	case "sync":
		return syncCommand(ctx, cfg, remainingArgs)
	case "create":
		return createCommand(ctx, cfg, remainingArgs)
	case "update":
		return updateCommand(ctx, cfg, remainingArgs)
	case "push":
		return pushCommand(ctx, cfg, remainingArgs)
	case "watch":
		return watchCommand(ctx, cfg, remainingArgs)
	case "tui":
		return tuiCommand(ctx, cfg, remainingArgs)
	case "check":
		return checkCommand(ctx, cfg, remainingArgs)
	case "doctor":
		return doctorCommand(ctx, cws, remainingArgs)
	case "config":
		return configCommand(cws, remainingArgs)
	case "init":
		return initCommand(cfg, remainingArgs)
	case "tail":
		return tailCommand(ctx, cfg, remainingArgs)
	case "version":
		return versionCommand()
	case "help":
		printUsage(fs, stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// newTracker builds the remote tracker client; tests replace it.
var newTracker = func(cfg config.JiraConfig) syncer.Tracker {
	return jira.New(jira.Options{
		Domain:    cfg.Domain,
		Email:     cfg.Email,
		Token:     cfg.Token,
		UserAgent: "notesync/" + Version,
	})
}

// app bundles the collaborators one command run needs.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	runLog *logging.RunLogger
}

func newApp(cfg *config.Config, console io.Writer) *app {
	logger := logging.NewConsoleFromConfig(console, cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps, cfg.LogCaller)
	a := &app{cfg: cfg, logger: logger}
	if cfg.RunLog {
		runLog, err := logging.NewRunLogger(cfg.LogDir, cfg.ProjectRoot)
		if err != nil {
			logger.Warn("run log disabled", "err", err)
		} else {
			a.runLog = runLog
			logger.Debug("run log", "path", runLog.LogPath)
		}
	}
	return a
}

func (a *app) session(notifier notify.Sink) *session.Session {
	engine := syncer.New(newTracker(a.cfg.Jira), syncer.Options{
		ProjectKey:     a.cfg.Jira.ProjectKey,
		IssueType:      a.cfg.Jira.IssueType,
		MaxConcurrency: a.cfg.MaxConcurrency,
		Logger:         a.logger,
	})
	return session.New(session.Options{
		Engine:         engine,
		Documents:      watch.NewProvider(),
		Notifier:       notifier,
		Logger:         a.logger,
		RunLog:         a.runLog,
		NoticeDuration: a.cfg.NoticeDuration(),
	})
}

// notices prints notices to stdout and mirrors them to the console log.
func (a *app) notices() notify.Sink {
	return notify.Multi(notify.NewWriterSink(stdout), notify.LogSink{Logger: a.logger})
}

func (a *app) Close() {
	if err := a.runLog.Close(); err != nil {
		a.logger.Warn("closing run log", "err", err)
	}
}

// requireJira fails when settings needed to reach Jira are missing.
func requireJira(cfg *config.Config) error {
	if missing := cfg.Jira.Missing(); len(missing) > 0 {
		return fmt.Errorf("missing settings: %s (see 'notesync doctor')", strings.Join(missing, ", "))
	}
	return nil
}

// documentArg returns the single FILE argument of a command.
func documentArg(fs *flag.FlagSet) (string, error) {
	remaining := fs.Args()
	if len(remaining) == 0 {
		return "", fmt.Errorf("%s: missing FILE argument", fs.Name())
	}
	if len(remaining) > 1 {
		return "", fmt.Errorf("unexpected arguments: %v", remaining[1:])
	}
	return remaining[0], nil
}

// versionCommand prints version information.
func versionCommand() error {
	fmt.Fprintf(stdout, "notesync version %s\n", Version)
	return nil
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "notesync - sync Markdown note tasks with Jira")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  notesync [global options] <command> [options] [file]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  parse FILE    Print the tasks found in FILE as JSON")
	fmt.Fprintln(w, "  sync FILE     Link tasks to existing issues by title")
	fmt.Fprintln(w, "  create FILE   Sync, then create issues for unlinked tasks")
	fmt.Fprintln(w, "  update FILE   Sync, then update linked issues")
	fmt.Fprintln(w, "  push FILE     Sync, create and update")
	fmt.Fprintln(w, "  watch FILE    Re-parse FILE whenever it changes")
	fmt.Fprintln(w, "  tui FILE      Interactive task board")
	fmt.Fprintln(w, "  check         Check the Jira connection")
	fmt.Fprintln(w, "  doctor        Check configuration and connectivity")
	fmt.Fprintln(w, "  config        Show effective configuration and sources")
	fmt.Fprintln(w, "  init          Write an example notesync.toml")
	fmt.Fprintln(w, "  tail          Tail the latest run log")
	fmt.Fprintln(w, "  version       Show version information")
	fmt.Fprintln(w, "  help          Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Watch Options (use with 'watch' command):")
	fmt.Fprintln(w, "  -push")
	fmt.Fprintln(w, "        Push after every change")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Init Options (use with 'init' command):")
	fmt.Fprintln(w, "  -force")
	fmt.Fprintln(w, "        Overwrite an existing notesync.toml")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tail Options (use with 'tail' command):")
	fmt.Fprintln(w, "  -f, -follow")
	fmt.Fprintln(w, "        Follow the log (like tail -f)")
	fmt.Fprintln(w, "  -n int")
	fmt.Fprintln(w, "        Number of lines to show (0 = all)")
}
