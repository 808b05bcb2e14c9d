package config

import (
	"time"
)

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with the source of each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
	// Files lists the config files that were read, lowest priority first.
	Files []string
}

// Default values.
const (
	DefaultIssueType     = "Task"
	DefaultLogDir        = "~/.notesync/logs"
	DefaultNoticeSeconds = 4
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

// Config holds the full configuration for notesync.
type Config struct {
	Jira JiraConfig `toml:"jira"`

	// MaxConcurrency bounds in-flight create/update calls. 0 is unbounded.
	MaxConcurrency int `toml:"max_concurrency"`
	// NoticeSeconds is how long notices without their own duration stay up.
	NoticeSeconds int `toml:"notice_seconds"`

	LogDir string `toml:"log_dir"`
	RunLog bool   `toml:"run_log"`

	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`

	// Project root (computed)
	ProjectRoot string `toml:"-"`
}

// JiraConfig holds the remote tracker settings.
type JiraConfig struct {
	Domain     string `toml:"domain"`
	Email      string `toml:"email"`
	Token      string `toml:"token"`
	ProjectKey string `toml:"project_key"`
	IssueType  string `toml:"issue_type"`
}

// Missing returns the keys of required settings that are empty.
func (j JiraConfig) Missing() []string {
	var missing []string
	for _, f := range []struct {
		key, value string
	}{
		{"jira.domain", j.Domain},
		{"jira.email", j.Email},
		{"jira.token", j.Token},
		{"jira.project_key", j.ProjectKey},
	} {
		if f.value == "" {
			missing = append(missing, f.key)
		}
	}
	return missing
}

// MaskedToken returns the token with everything but the last four
// characters hidden.
func (j JiraConfig) MaskedToken() string {
	if j.Token == "" {
		return ""
	}
	if len(j.Token) <= 4 {
		return "****"
	}
	return "****" + j.Token[len(j.Token)-4:]
}

// NoticeDuration returns NoticeSeconds as a duration.
func (c *Config) NoticeDuration() time.Duration {
	if c.NoticeSeconds <= 0 {
		return DefaultNoticeSeconds * time.Second
	}
	return time.Duration(c.NoticeSeconds) * time.Second
}

// configFields returns the configurable field names used for source tracking.
func configFields() []string {
	return []string{
		"jira.domain",
		"jira.email",
		"jira.token",
		"jira.project_key",
		"jira.issue_type",
		"max_concurrency",
		"notice_seconds",
		"log_dir",
		"run_log",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
	}
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	cfg.Jira.IssueType = DefaultIssueType
	cfg.MaxConcurrency = 0
	cfg.NoticeSeconds = DefaultNoticeSeconds
	cfg.LogDir = DefaultLogDir
	cfg.RunLog = true
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
}
