// Package syncer reconciles a task registry with a remote issue tracker.
//
// Tasks are matched to issues by exact title. Synchronize only links ids;
// Create and Update push tasks to the tracker concurrently.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/notesync/internal/jira"
	"github.com/nibzard/notesync/internal/logging"
	"github.com/nibzard/notesync/internal/parallel"
	"github.com/nibzard/notesync/internal/task"
)

// DefaultIssueType is used when Options.IssueType is empty.
const DefaultIssueType = "Task"

// ErrBatchFailed is matched by every error returned from a Create or Update
// in which at least one remote call failed.
var ErrBatchFailed = errors.New("batch failed")

// Tracker is the remote issue tracker. *jira.Client implements it.
type Tracker interface {
	Myself(ctx context.Context) (*jira.User, error)
	SearchIssues(ctx context.Context, jql string) ([]jira.Issue, error)
	CreateIssue(ctx context.Context, in jira.NewIssue) (*jira.CreatedIssue, error)
	UpdateIssue(ctx context.Context, id string, in jira.IssueUpdate) error
}

// Options configures a Synchronizer.
type Options struct {
	ProjectKey string
	IssueType  string
	// MaxConcurrency bounds in-flight create or update calls; 0 is unbounded.
	MaxConcurrency int
	Logger         *log.Logger
}

// Synchronizer drives a Tracker for one project.
type Synchronizer struct {
	tracker        Tracker
	projectKey     string
	issueType      string
	maxConcurrency int
	logger         *log.Logger
}

// New returns a Synchronizer for opts.ProjectKey.
func New(tracker Tracker, opts Options) *Synchronizer {
	issueType := opts.IssueType
	if issueType == "" {
		issueType = DefaultIssueType
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Synchronizer{
		tracker:        tracker,
		projectKey:     opts.ProjectKey,
		issueType:      issueType,
		maxConcurrency: opts.MaxConcurrency,
		logger:         logger,
	}
}

// Failure is one failed remote call of a batch.
type Failure struct {
	Index int
	Title string
	Err   error
}

// BatchError reports the failed calls of a Create or Update. Ids assigned by
// calls that succeeded are kept.
type BatchError struct {
	Op         string
	Dispatched int
	Failures   []Failure
}

func (e *BatchError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, fmt.Sprintf("%q: %v", f.Title, f.Err))
	}
	return fmt.Sprintf("%s: %d of %d failed: %s", e.Op, len(e.Failures), e.Dispatched, strings.Join(msgs, "; "))
}

// Unwrap exposes ErrBatchFailed and every individual cause.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	errs = append(errs, ErrBatchFailed)
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Synchronize links every task whose title matches a remote issue summary
// in the project, overwriting existing ids, and returns how many matched.
// When several issues share a summary the last one returned wins.
func (s *Synchronizer) Synchronize(ctx context.Context, reg *task.Registry) (int, error) {
	issues, err := s.tracker.SearchIssues(ctx, jira.ProjectJQL(s.projectKey))
	if err != nil {
		return 0, fmt.Errorf("search project %s: %w", s.projectKey, err)
	}

	byTitle := make(map[string]string, len(issues))
	for _, issue := range issues {
		byTitle[issue.Fields.Summary] = issue.ID
	}

	matched := 0
	for i, t := range reg.Tasks() {
		id, ok := byTitle[t.Title]
		if !ok {
			continue
		}
		reg.Link(i, id)
		matched++
	}
	s.logger.Debug("synchronized", "document", reg.Document(), "issues", len(issues), "matched", matched)
	return matched, nil
}

// Create files an issue for every task without an id and links the new id
// as each call returns. It returns the number of dispatched calls.
func (s *Synchronizer) Create(ctx context.Context, reg *task.Registry) (int, error) {
	return s.fanOut(ctx, "create", reg, reg.Pending(), func(ctx context.Context, i int, t task.Task) error {
		created, err := s.tracker.CreateIssue(ctx, jira.NewIssue{
			ProjectKey:  s.projectKey,
			Summary:     t.Title,
			Description: t.Description,
			IssueType:   s.issueType,
		})
		if err != nil {
			return err
		}
		reg.Link(i, created.ID)
		return nil
	})
}

// Update pushes the title and description of every linked task. It returns
// the number of dispatched calls.
func (s *Synchronizer) Update(ctx context.Context, reg *task.Registry) (int, error) {
	return s.fanOut(ctx, "update", reg, reg.LinkedIndexes(), func(ctx context.Context, _ int, t task.Task) error {
		return s.tracker.UpdateIssue(ctx, t.ID, jira.IssueUpdate{
			Summary:     t.Title,
			Description: t.Description,
		})
	})
}

func (s *Synchronizer) fanOut(ctx context.Context, op string, reg *task.Registry, indexes []int, call func(context.Context, int, task.Task) error) (int, error) {
	if len(indexes) == 0 {
		return 0, nil
	}
	tasks := reg.Tasks()

	pool := parallel.NewWorkerPool(ctx, s.maxConcurrency)
	for _, i := range indexes {
		i, t := i, tasks[i]
		pool.Submit(strconv.Itoa(i), func(ctx context.Context) error {
			return call(ctx, i, t)
		})
	}
	_, errs := pool.Wait()

	failures := make([]Failure, 0, len(errs))
	for _, err := range errs {
		var keyErr *parallel.KeyError
		if !errors.As(err, &keyErr) {
			continue
		}
		i, _ := strconv.Atoi(keyErr.Key)
		failures = append(failures, Failure{Index: i, Title: tasks[i].Title, Err: keyErr.Err})
		s.logger.Error(op+" failed", "task", tasks[i].Title, "err", keyErr.Err)
	}
	s.logger.Debug(op+" finished", "document", reg.Document(), "dispatched", len(indexes), "failed", len(failures))

	if len(failures) == 0 {
		return len(indexes), nil
	}
	sort.Slice(failures, func(a, b int) bool { return failures[a].Index < failures[b].Index })
	return len(indexes), &BatchError{Op: op, Dispatched: len(indexes), Failures: failures}
}

// Health reports whether the tracker accepts the configured credentials and
// the account is active.
func (s *Synchronizer) Health(ctx context.Context) (bool, error) {
	user, err := s.tracker.Myself(ctx)
	if err != nil {
		return false, fmt.Errorf("connectivity probe: %w", err)
	}
	return user.Active, nil
}
