// Package session holds the state of one notesync run: the active
// document, its task registry and the collaborators that act on it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/nibzard/notesync/internal/logging"
	"github.com/nibzard/notesync/internal/notes"
	"github.com/nibzard/notesync/internal/notify"
	"github.com/nibzard/notesync/internal/task"
)

// ErrNoActiveDocument is returned by operations that need an open document.
var ErrNoActiveDocument = errors.New("no active document")

// Engine performs remote operations on a registry. *syncer.Synchronizer
// implements it.
type Engine interface {
	Synchronize(ctx context.Context, reg *task.Registry) (int, error)
	Create(ctx context.Context, reg *task.Registry) (int, error)
	Update(ctx context.Context, reg *task.Registry) (int, error)
	Health(ctx context.Context) (bool, error)
}

// Documents reads document text. *watch.Provider implements it.
type Documents interface {
	Read(path string) (string, error)
}

// Options configures a Session.
type Options struct {
	Engine    Engine
	Documents Documents
	Notifier  notify.Sink
	Logger    *log.Logger
	RunLog    *logging.RunLogger
	// NoticeDuration applies to notices that carry no duration of their own.
	NoticeDuration time.Duration
}

// Session is created at startup, points at one document at a time and is
// discarded at shutdown.
type Session struct {
	ID string

	engine         Engine
	documents      Documents
	notifier       notify.Sink
	logger         *log.Logger
	runLog         *logging.RunLogger
	noticeDuration time.Duration

	mu       sync.RWMutex
	active   string
	registry *task.Registry
}

// New returns a session with no active document.
func New(opts Options) *Session {
	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Session{
		ID:             id,
		engine:         opts.Engine,
		documents:      opts.Documents,
		notifier:       notifier,
		logger:         logger.With("session", id[:8]),
		runLog:         opts.RunLog,
		noticeDuration: opts.NoticeDuration,
	}
}

// OpenDocument reads path and replaces the registry with its tasks.
// On a read error the session is left without an active document.
func (s *Session) OpenDocument(path string) error {
	if s.documents == nil {
		return fmt.Errorf("open %s: no document provider", path)
	}
	text, err := s.documents.Read(path)
	if err != nil {
		s.CloseDocument()
		return err
	}
	s.DocumentChanged(path, text)
	return nil
}

// DocumentChanged replaces the registry with the tasks parsed from text.
// Operations still running against the previous registry finish there and
// their ids are discarded with it.
func (s *Session) DocumentChanged(path, text string) {
	reg := task.NewRegistry(path, notes.OnDocumentChanged(text))

	s.mu.Lock()
	s.active = path
	s.registry = reg
	s.mu.Unlock()

	s.logger.Debug("document parsed", "document", path, "tasks", reg.Len())
	s.record(logging.Event{Op: "parse", Document: path, Count: reg.Len()})
}

// CloseDocument leaves the session without an active document.
func (s *Session) CloseDocument() {
	s.mu.Lock()
	s.active = ""
	s.registry = nil
	s.mu.Unlock()
}

// Active returns the active document path, or "".
func (s *Session) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Registry returns the registry of the active document. It is nil when no
// document is active.
func (s *Session) Registry() *task.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry
}

func (s *Session) current() (string, *task.Registry) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, s.registry
}

// Synchronize links the active tasks to existing remote issues and reports
// the number matched.
func (s *Session) Synchronize(ctx context.Context) (int, error) {
	doc, reg := s.current()
	n, err := s.engine.Synchronize(ctx, reg)
	s.record(logging.Event{Op: "synchronize", Document: doc, Count: n, Error: errString(err)})
	if err != nil {
		s.logger.Error("synchronize failed", "document", doc, "err", err)
		s.notify(notify.Text(notify.TextSynchronizeFailed))
		return n, err
	}
	s.logger.Info("synchronized", "document", doc, "matched", n)
	s.notify(notify.Synchronized(n))
	return n, nil
}

// Create files issues for tasks that have no remote id.
func (s *Session) Create(ctx context.Context) (int, error) {
	doc, reg := s.current()
	if doc == "" {
		s.notify(notify.Text(notify.TextNoActiveFile))
		return 0, ErrNoActiveDocument
	}
	n, err := s.engine.Create(ctx, reg)
	s.record(logging.Event{Op: "create", Document: doc, Count: n, Error: errString(err)})
	if err != nil {
		s.logger.Error("create failed", "document", doc, "dispatched", n, "err", err)
		s.notify(notify.Text(notify.TextCreateFailed))
		return n, err
	}
	s.logger.Info("created", "document", doc, "count", n)
	s.notify(notify.Created(n))
	return n, nil
}

// Update pushes every linked task to its remote issue.
func (s *Session) Update(ctx context.Context) (int, error) {
	doc, reg := s.current()
	n, err := s.engine.Update(ctx, reg)
	s.record(logging.Event{Op: "update", Document: doc, Count: n, Error: errString(err)})
	if err != nil {
		s.logger.Error("update failed", "document", doc, "dispatched", n, "err", err)
		s.notify(notify.Text(notify.TextUpdateFailed))
		return n, err
	}
	s.logger.Info("updated", "document", doc, "count", n)
	s.notify(notify.Updated(n))
	return n, nil
}

// Health probes the tracker and notifies the result.
func (s *Session) Health(ctx context.Context) (bool, error) {
	ok, err := s.engine.Health(ctx)
	s.record(logging.Event{Op: "health", Count: boolCount(ok), Error: errString(err)})
	if err != nil {
		s.logger.Warn("connectivity probe failed", "err", err)
	}
	s.notify(notify.Health(ok && err == nil))
	return ok && err == nil, err
}

// PushResult holds the counts of a Push.
type PushResult struct {
	Synchronized int
	Created      int
	Updated      int
}

// Push synchronizes, then creates missing issues, then updates linked
// ones. It stops at the first failing step.
func (s *Session) Push(ctx context.Context) (PushResult, error) {
	var res PushResult
	var err error
	if res.Synchronized, err = s.Synchronize(ctx); err != nil {
		return res, err
	}
	if res.Created, err = s.Create(ctx); err != nil {
		return res, err
	}
	if res.Updated, err = s.Update(ctx); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Session) notify(n notify.Notice) {
	if n.Duration == 0 {
		n.Duration = s.noticeDuration
	}
	s.notifier.Notify(n)
}

func (s *Session) record(ev logging.Event) {
	ev.Session = s.ID
	if err := s.runLog.Record(ev); err != nil {
		s.logger.Warn("run log", "err", err)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func boolCount(ok bool) int {
	if ok {
		return 1
	}
	return 0
}
