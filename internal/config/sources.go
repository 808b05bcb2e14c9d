package config

import (
	"strconv"
)

// Field is one effective setting for display.
type Field struct {
	Key    string
	Value  string
	Source ConfigSource
}

// Fields returns every setting in display order with its source. The token
// is masked.
func (cws *ConfigWithSources) Fields() []Field {
	cfg := cws.Config
	values := map[string]string{
		"jira.domain":      cfg.Jira.Domain,
		"jira.email":       cfg.Jira.Email,
		"jira.token":       cfg.Jira.MaskedToken(),
		"jira.project_key": cfg.Jira.ProjectKey,
		"jira.issue_type":  cfg.Jira.IssueType,
		"max_concurrency":  strconv.Itoa(cfg.MaxConcurrency),
		"notice_seconds":   strconv.Itoa(cfg.NoticeSeconds),
		"log_dir":          cfg.LogDir,
		"run_log":          strconv.FormatBool(cfg.RunLog),
		"log_level":        cfg.LogLevel,
		"log_format":       cfg.LogFormat,
		"log_timestamps":   strconv.FormatBool(cfg.LogTimestamps),
		"log_caller":       strconv.FormatBool(cfg.LogCaller),
	}

	fields := make([]Field, 0, len(values))
	for _, key := range configFields() {
		source := cws.Sources[key]
		if source == "" {
			source = SourceDefault
		}
		fields = append(fields, Field{Key: key, Value: values[key], Source: source})
	}
	return fields
}
