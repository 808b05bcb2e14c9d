package jira

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/nibzard/notesync/internal/adf"
)

// User is the subset of /myself used as a connectivity probe.
type User struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress,omitempty"`
	Active       bool   `json:"active"`
}

// Issue is a search hit.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// IssueFields holds the fields requested from search.
type IssueFields struct {
	Summary string `json:"summary"`
}

// NewIssue is the input for CreateIssue.
type NewIssue struct {
	ProjectKey  string
	Summary     string
	Description adf.Document
	IssueType   string
}

// IssueUpdate is the input for UpdateIssue.
type IssueUpdate struct {
	Summary     string
	Description adf.Document
}

// CreatedIssue is the create response.
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

type searchResponse struct {
	Issues        []Issue `json:"issues"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
	IsLast        bool    `json:"isLast"`
}

type issuePayload struct {
	Fields issueFields `json:"fields"`
}

type issueFields struct {
	Project     *projectRef   `json:"project,omitempty"`
	Summary     string        `json:"summary"`
	Description adf.Document  `json:"description"`
	IssueType   *issueTypeRef `json:"issuetype,omitempty"`
}

type projectRef struct {
	Key string `json:"key"`
}

type issueTypeRef struct {
	Name string `json:"name"`
}

// APIError is a non-2xx response from Jira.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Messages   []string          // errorMessages
	Fields     map[string]string // errors, keyed by field
}

func (e *APIError) Error() string {
	var details []string
	details = append(details, e.Messages...)
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		details = append(details, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}

	msg := fmt.Sprintf("jira %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if len(details) > 0 {
		msg += ": " + strings.Join(details, "; ")
	}
	return msg
}

// Unauthorized reports whether the credentials were rejected.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{Method: method, Path: path, StatusCode: status}
	var payload struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Messages = payload.ErrorMessages
		apiErr.Fields = payload.Errors
	}
	return apiErr
}

func validateDescription(doc adf.Document) error {
	if err := adf.Validate(doc); err != nil {
		return fmt.Errorf("invalid description: %w", err)
	}
	return nil
}

// ProjectJQL returns the search filter selecting every issue of a project.
// The key is quoted so project names with spaces or reserved words parse.
func ProjectJQL(projectKey string) string {
	return "project = " + quoteJQL(projectKey)
}

var jqlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quoteJQL(s string) string {
	return `"` + jqlEscaper.Replace(s) + `"`
}
