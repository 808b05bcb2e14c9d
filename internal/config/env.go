package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// loadFromEnv overrides config from NOTESYNC_* environment variables.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) error {
	strs := []struct {
		env, field string
		target     *string
	}{
		{"NOTESYNC_JIRA_DOMAIN", "jira.domain", &cfg.Jira.Domain},
		{"NOTESYNC_JIRA_EMAIL", "jira.email", &cfg.Jira.Email},
		{"NOTESYNC_JIRA_TOKEN", "jira.token", &cfg.Jira.Token},
		{"NOTESYNC_JIRA_PROJECT", "jira.project_key", &cfg.Jira.ProjectKey},
		{"NOTESYNC_JIRA_ISSUE_TYPE", "jira.issue_type", &cfg.Jira.IssueType},
		{"NOTESYNC_LOG_DIR", "log_dir", &cfg.LogDir},
		{"NOTESYNC_LOG_LEVEL", "log_level", &cfg.LogLevel},
		{"NOTESYNC_LOG_FORMAT", "log_format", &cfg.LogFormat},
	}
	for _, s := range strs {
		if v := os.Getenv(s.env); v != "" {
			*s.target = v
			sources[s.field] = SourceEnv
		}
	}

	ints := []struct {
		env, field string
		target     *int
	}{
		{"NOTESYNC_MAX_CONCURRENCY", "max_concurrency", &cfg.MaxConcurrency},
		{"NOTESYNC_NOTICE_SECONDS", "notice_seconds", &cfg.NoticeSeconds},
	}
	for _, s := range ints {
		v := os.Getenv(s.env)
		if v == "" {
			continue
		}
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", s.env, err)
		}
		*s.target = i
		sources[s.field] = SourceEnv
	}

	bools := []struct {
		env, field string
		target     *bool
	}{
		{"NOTESYNC_RUN_LOG", "run_log", &cfg.RunLog},
		{"NOTESYNC_LOG_TIMESTAMPS", "log_timestamps", &cfg.LogTimestamps},
		{"NOTESYNC_LOG_CALLER", "log_caller", &cfg.LogCaller},
	}
	for _, s := range bools {
		if v := os.Getenv(s.env); v != "" {
			*s.target = boolFromString(v)
			sources[s.field] = SourceEnv
		}
	}
	return nil
}

// boolFromString parses a boolean from a string.
func boolFromString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
