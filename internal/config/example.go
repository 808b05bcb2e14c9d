package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# notesync configuration file
# Values can be overridden by NOTESYNC_* environment variables or CLI flags

# Max in-flight create/update calls (0 = unbounded)
max_concurrency = 0

# Default notice display time (seconds)
notice_seconds = 4

# Run log directory (supports ~ expansion)
log_dir = "~/.notesync/logs"
run_log = true

# Console logging
log_level = "info"    # debug, info, warn, error
log_format = "text"   # text, json, logfmt
log_timestamps = false
log_caller = false

[jira]
# Site URL
domain = "https://your-domain.atlassian.net"
# Account email and API token used for basic auth.
# Prefer NOTESYNC_JIRA_TOKEN over storing the token here.
email = "you@example.com"
# token = ""
# Project that issues are searched in and created in
project_key = "ENG"
issue_type = "Task"
`
}
