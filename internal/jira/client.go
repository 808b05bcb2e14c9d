// Package jira is a minimal Jira Cloud REST v3 client covering the calls
// notesync needs: a connectivity probe, issue search, create and update.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	apiPrefix = "/rest/api/3"

	// DefaultTimeout bounds a single HTTP round trip.
	DefaultTimeout = 30 * time.Second

	// searchPageSize is the page size requested from the search endpoint.
	searchPageSize = 100
)

// Options configures a Client.
type Options struct {
	// Domain is the site base URL, e.g. https://your-domain.atlassian.net.
	Domain string
	Email  string
	Token  string

	// HTTPClient overrides the default client. Optional.
	HTTPClient *http.Client
	// UserAgent is sent on every request. Optional.
	UserAgent string
}

// Client talks to one Jira site using basic auth with an API token.
type Client struct {
	baseURL   string
	email     string
	token     string
	userAgent string
	http      *http.Client
}

// New returns a client for the site in opts. No request is made.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "notesync"
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.Domain, "/") + apiPrefix,
		email:     opts.Email,
		token:     opts.Token,
		userAgent: ua,
		http:      hc,
	}
}

// Myself returns the user the credentials belong to.
func (c *Client) Myself(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/myself", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchIssues returns every issue matching jql, following pagination.
// Only the summary field is requested.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]Issue, error) {
	var (
		issues []Issue
		token  string
	)
	for {
		q := url.Values{}
		q.Set("jql", jql)
		q.Set("fields", "summary")
		q.Set("maxResults", fmt.Sprintf("%d", searchPageSize))
		if token != "" {
			q.Set("nextPageToken", token)
		}

		var page searchResponse
		if err := c.do(ctx, http.MethodGet, "/search/jql", q, nil, &page); err != nil {
			return nil, err
		}
		issues = append(issues, page.Issues...)

		if page.IsLast || page.NextPageToken == "" || len(page.Issues) == 0 {
			return issues, nil
		}
		token = page.NextPageToken
	}
}

// CreateIssue creates an issue and returns its identifiers.
func (c *Client) CreateIssue(ctx context.Context, in NewIssue) (*CreatedIssue, error) {
	if err := validateDescription(in.Description); err != nil {
		return nil, err
	}
	payload := issuePayload{Fields: issueFields{
		Project:     &projectRef{Key: in.ProjectKey},
		Summary:     in.Summary,
		Description: in.Description,
		IssueType:   &issueTypeRef{Name: in.IssueType},
	}}

	var created CreatedIssue
	if err := c.do(ctx, http.MethodPost, "/issue", nil, payload, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, fmt.Errorf("create issue: response has no id")
	}
	return &created, nil
}

// UpdateIssue overwrites the summary and description of issue id.
func (c *Client) UpdateIssue(ctx context.Context, id string, in IssueUpdate) error {
	if id == "" {
		return fmt.Errorf("update issue: empty id")
	}
	if err := validateDescription(in.Description); err != nil {
		return err
	}
	payload := issuePayload{Fields: issueFields{
		Summary:     in.Summary,
		Description: in.Description,
	}}
	return c.do(ctx, http.MethodPut, "/issue/"+url.PathEscape(id), nil, payload, nil)
}

// do sends one request. A nil body sends no payload; a nil out discards the
// response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(method, path, resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
