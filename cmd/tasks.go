package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"

	"github.com/nibzard/notesync/internal/adf"
	"github.com/nibzard/notesync/internal/config"
	"github.com/nibzard/notesync/internal/notes"
	"github.com/nibzard/notesync/internal/session"
	"github.com/nibzard/notesync/internal/task"
	"github.com/nibzard/notesync/internal/watch"
)

// parsedTask is the JSON shape printed by parse.
type parsedTask struct {
	Title       string       `json:"title"`
	Text        string       `json:"text"`
	Code        string       `json:"code,omitempty"`
	Description adf.Document `json:"description"`
}

// parseCommand prints the tasks of a document without contacting Jira.
func parseCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("notesync parse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	compact := fs.Bool("compact", false, "Print one task per line")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := documentArg(fs)
	if err != nil {
		return err
	}

	text, err := watch.NewProvider().Read(path)
	if err != nil {
		return err
	}
	tasks := notes.Parse(text)

	out := make([]parsedTask, len(tasks))
	for i, t := range tasks {
		out[i] = parsedTask{
			Title:       t.Title,
			Text:        t.Description.Text(),
			Code:        t.Description.Code(),
			Description: t.Description,
		}
	}

	enc := json.NewEncoder(stdout)
	if *compact {
		for _, t := range out {
			if err := enc.Encode(t); err != nil {
				return err
			}
		}
		return nil
	}
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// operation runs against an open session and returns an error to surface.
type operation func(ctx context.Context, sess *session.Session) error

// runOneShot opens path in a fresh session, runs op and prints the
// resulting task table.
func runOneShot(ctx context.Context, cfg *config.Config, name string, args []string, op operation) error {
	fs := flag.NewFlagSet("notesync "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	quiet := fs.Bool("q", false, "Do not print the task table")
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

	a := newApp(cfg, stderr)
	defer a.Close()
	sess := a.session(a.notices())
	if err := sess.OpenDocument(path); err != nil {
		return err
	}

	opErr := op(ctx, sess)
	if !*quiet {
		printTasks(sess.Registry())
	}
	return opErr
}

func syncCommand(ctx context.Context, cfg *config.Config, args []string) error {
	return runOneShot(ctx, cfg, "sync", args, func(ctx context.Context, sess *session.Session) error {
		_, err := sess.Synchronize(ctx)
		return err
	})
}

// createCommand links existing issues before creating the rest.
func createCommand(ctx context.Context, cfg *config.Config, args []string) error {
	return runOneShot(ctx, cfg, "create", args, func(ctx context.Context, sess *session.Session) error {
		if _, err := sess.Synchronize(ctx); err != nil {
			return err
		}
		_, err := sess.Create(ctx)
		return err
	})
}

func updateCommand(ctx context.Context, cfg *config.Config, args []string) error {
	return runOneShot(ctx, cfg, "update", args, func(ctx context.Context, sess *session.Session) error {
		if _, err := sess.Synchronize(ctx); err != nil {
			return err
		}
		_, err := sess.Update(ctx)
		return err
	})
}

func pushCommand(ctx context.Context, cfg *config.Config, args []string) error {
	return runOneShot(ctx, cfg, "push", args, func(ctx context.Context, sess *session.Session) error {
		_, err := sess.Push(ctx)
		return err
	})
}

// checkCommand probes the Jira connection.
func checkCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("notesync check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if err := requireJira(cfg); err != nil {
		return err
	}

	a := newApp(cfg, stderr)
	defer a.Close()
	ok, err := a.session(a.notices()).Health(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("jira account is not active")
	}
	return nil
}

// printTasks prints one line per task with its remote id.
func printTasks(reg *task.Registry) {
	tasks := reg.Tasks()
	if len(tasks) == 0 {
		fmt.Fprintln(stdout, "No tasks found.")
		return
	}
	for _, t := range tasks {
		id := t.ID
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(stdout, "  %-10s %s\n", id, t.Title)
	}
}
