package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nibzard/notesync/internal/config"
	"github.com/nibzard/notesync/internal/jira"
	"github.com/nibzard/notesync/internal/logging"
)

// doctorCommand checks settings, log directory and Jira connectivity.
func doctorCommand(ctx context.Context, cws *config.ConfigWithSources, args []string) error {
	fs := flag.NewFlagSet("notesync doctor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	offline := fs.Bool("offline", false, "Skip the connectivity probe")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintln(stdout, "notesync doctor")
	fmt.Fprintln(stdout, "===============")
	fmt.Fprintln(stdout)

	cfg := cws.Config
	allOK := true

	if path := cws.GetConfigFile(); path != "" {
		fmt.Fprintf(stdout, "Config file: %s\n", path)
	} else {
		fmt.Fprintln(stdout, "Config file: (none, using environment and flags)")
	}
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Jira settings:")
	missing := cfg.Jira.Missing()
	missingSet := make(map[string]bool, len(missing))
	for _, key := range missing {
		missingSet[key] = true
	}
	settings := []struct {
		key   string
		value string
	}{
		{"jira.domain", cfg.Jira.Domain},
		{"jira.email", cfg.Jira.Email},
		{"jira.token", cfg.Jira.MaskedToken()},
		{"jira.project_key", cfg.Jira.ProjectKey},
		{"jira.issue_type", cfg.Jira.IssueType},
	}
	for _, s := range settings {
		if missingSet[s.key] {
			fmt.Fprintf(stdout, "  ❌ %s: not set\n", s.key)
			continue
		}
		fmt.Fprintf(stdout, "  ✅ %s: %s\n", s.key, s.value)
	}
	if len(missing) > 0 {
		allOK = false
	}
	fmt.Fprintln(stdout)

	fmt.Fprintf(stdout, "Log directory: %s\n", cfg.LogDir)
	if !cfg.RunLog {
		fmt.Fprintln(stdout, "  ⚠️  Run log disabled")
	} else if info, err := os.Stat(cfg.LogDir); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(stdout, "  ⚠️  Not found (will be created on first run)")
		} else {
			fmt.Fprintf(stdout, "  ❌ Error: %v\n", err)
			allOK = false
		}
	} else if !info.IsDir() {
		fmt.Fprintln(stdout, "  ❌ Error: path is not a directory")
		allOK = false
	} else {
		fmt.Fprintln(stdout, "  ✅ OK")
	}
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Connectivity:")
	switch {
	case *offline:
		fmt.Fprintln(stdout, "  ⚠️  Skipped (-offline)")
	case len(missing) > 0:
		fmt.Fprintln(stdout, "  ⚠️  Skipped (settings incomplete)")
	default:
		if !probe(ctx, cfg) {
			allOK = false
		}
	}
	fmt.Fprintln(stdout)

	if allOK {
		fmt.Fprintln(stdout, "✅ All checks passed!")
		return nil
	}
	fmt.Fprintln(stdout, "⚠️  Some checks failed. notesync may not function correctly.")
	return fmt.Errorf("doctor checks failed")
}

func probe(ctx context.Context, cfg *config.Config) bool {
	user, err := newTracker(cfg.Jira).Myself(ctx)
	if err != nil {
		var apiErr *jira.APIError
		if errors.As(err, &apiErr) && apiErr.Unauthorized() {
			fmt.Fprintln(stdout, "  ❌ Credentials rejected (check jira.email and jira.token)")
			return false
		}
		fmt.Fprintf(stdout, "  ❌ %v\n", err)
		return false
	}
	if !user.Active {
		fmt.Fprintf(stdout, "  ❌ Account %s is not active\n", user.DisplayName)
		return false
	}
	fmt.Fprintf(stdout, "  ✅ Connected as %s\n", user.DisplayName)
	return true
}

// configCommand prints the effective configuration and where each value
// came from.
func configCommand(cws *config.ConfigWithSources, args []string) error {
	fs := flag.NewFlagSet("notesync config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if len(cws.Files) == 0 {
		fmt.Fprintln(stdout, "Config files: (none)")
	} else {
		fmt.Fprintln(stdout, "Config files:")
		active := cws.GetConfigFile()
		for _, f := range cws.Files {
			if f == active {
				fmt.Fprintf(stdout, "  %s (highest priority)\n", f)
				continue
			}
			fmt.Fprintf(stdout, "  %s\n", f)
		}
	}
	fmt.Fprintln(stdout)
	for _, f := range cws.Fields() {
		value := f.Value
		if value == "" {
			value = `""`
		}
		fmt.Fprintf(stdout, "%-18s %-40s (%s)\n", f.Key, value, f.Source)
	}
	return nil
}

// initCommand writes an example notesync.toml into the project root.
func initCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("notesync init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	force := fs.Bool("force", false, "Overwrite an existing notesync.toml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	root := cfg.ProjectRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		root = wd
	}
	path := filepath.Join(root, "notesync.toml")
	if _, err := os.Stat(path); err == nil && !*force {
		fmt.Fprintf(stdout, "%s already exists (use -force to overwrite)\n", path)
		return nil
	}
	if err := os.WriteFile(path, []byte(config.ExampleConfig()), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(stdout, "Wrote %s\n", path)
	return nil
}

// tailCommand tails the latest run log.
func tailCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("notesync tail", flag.ContinueOnError)
	fs.SetOutput(stderr)
	follow := fs.Bool("f", false, "Follow the log (like tail -f)")
	fs.BoolVar(follow, "follow", false, "Follow the log (like tail -f)")
	n := fs.Int("n", 0, "Number of lines to show (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	workDir := cfg.ProjectRoot
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		workDir = wd
	}
	logDir, err := logging.FindLogDir(cfg.LogDir, workDir)
	if err != nil {
		return fmt.Errorf("finding log directory: %w", err)
	}
	logPath, err := logging.FindLatestLog(logDir)
	if err != nil {
		return fmt.Errorf("finding latest log: %w", err)
	}
	if logPath == "" {
		fmt.Fprintln(stdout, "No log files found.")
		return nil
	}

	fmt.Fprintf(stdout, "Tailing: %s\n", logPath)
	if *follow {
		fmt.Fprintln(stdout, "(Ctrl+C to stop)")
	}
	fmt.Fprintln(stdout)
	return logging.TailLog(ctx, stdout, logPath, *n, *follow)
}
