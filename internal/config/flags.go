package config

import (
	"flag"
)

// parseFlags registers the global flags on fs, parses args and applies the
// flags that were set explicitly.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet("notesync", flag.ContinueOnError)
	}

	// Flags bind to a copy; only flags that were set are applied.
	v := *cfg
	fs.StringVar(&v.Jira.Domain, "domain", cfg.Jira.Domain, "Jira site URL, e.g. https://your-domain.atlassian.net")
	fs.StringVar(&v.Jira.Email, "email", cfg.Jira.Email, "Jira account email")
	fs.StringVar(&v.Jira.Token, "token", "", "Jira API token")
	fs.StringVar(&v.Jira.ProjectKey, "project", cfg.Jira.ProjectKey, "Jira project key")
	fs.StringVar(&v.Jira.IssueType, "issue-type", cfg.Jira.IssueType, "Issue type for created issues")
	fs.IntVar(&v.MaxConcurrency, "max-concurrency", cfg.MaxConcurrency, "Max in-flight create/update calls (0 = unbounded)")
	fs.IntVar(&v.NoticeSeconds, "notice-seconds", cfg.NoticeSeconds, "Default notice display time (seconds)")
	fs.StringVar(&v.LogDir, "log-dir", cfg.LogDir, "Run log directory")
	fs.BoolVar(&v.RunLog, "run-log", cfg.RunLog, "Write a JSONL run log")
	fs.StringVar(&v.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&v.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json, logfmt)")
	fs.BoolVar(&v.LogTimestamps, "log-timestamps", cfg.LogTimestamps, "Show timestamps in logs")
	fs.BoolVar(&v.LogCaller, "log-caller", cfg.LogCaller, "Show caller location in logs")

	if err := fs.Parse(args); err != nil {
		return err
	}

	apply := map[string]func(){
		"domain":          func() { cfg.Jira.Domain = v.Jira.Domain },
		"email":           func() { cfg.Jira.Email = v.Jira.Email },
		"token":           func() { cfg.Jira.Token = v.Jira.Token },
		"project":         func() { cfg.Jira.ProjectKey = v.Jira.ProjectKey },
		"issue-type":      func() { cfg.Jira.IssueType = v.Jira.IssueType },
		"max-concurrency": func() { cfg.MaxConcurrency = v.MaxConcurrency },
		"notice-seconds":  func() { cfg.NoticeSeconds = v.NoticeSeconds },
		"log-dir":         func() { cfg.LogDir = v.LogDir },
		"run-log":         func() { cfg.RunLog = v.RunLog },
		"log-level":       func() { cfg.LogLevel = v.LogLevel },
		"log-format":      func() { cfg.LogFormat = v.LogFormat },
		"log-timestamps":  func() { cfg.LogTimestamps = v.LogTimestamps },
		"log-caller":      func() { cfg.LogCaller = v.LogCaller },
	}
	flagToSource := map[string]string{
		"domain":          "jira.domain",
		"email":           "jira.email",
		"token":           "jira.token",
		"project":         "jira.project_key",
		"issue-type":      "jira.issue_type",
		"max-concurrency": "max_concurrency",
		"notice-seconds":  "notice_seconds",
		"log-dir":         "log_dir",
		"run-log":         "run_log",
		"log-level":       "log_level",
		"log-format":      "log_format",
		"log-timestamps":  "log_timestamps",
		"log-caller":      "log_caller",
	}

	fs.Visit(func(f *flag.Flag) {
		set, ok := apply[f.Name]
		if !ok {
			return
		}
		set()
		sources[flagToSource[f.Name]] = SourceFlag
	})
	return nil
}
