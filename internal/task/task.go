// Package task holds parsed note tasks and the per-document registry.
package task

import (
	"sync"

	"github.com/nibzard/notesync/internal/adf"
)

// Task is a unit of work parsed from a note document.
type Task struct {
	// ID is the remote issue id. Empty until the task is known remotely.
	ID          string       `json:"id,omitempty"`
	Title       string       `json:"title"`
	Description adf.Document `json:"description"`
}

// Linked reports whether the task is known to exist remotely.
func (t *Task) Linked() bool {
	return t.ID != ""
}

// Registry is the ordered collection of tasks for one open document.
//
// Registries are never merged: a document change replaces the registry
// wholesale. Link is the only mutation and is safe to call from concurrent
// create calls, each of which touches a different index.
type Registry struct {
	mu       sync.RWMutex
	document string
	tasks    []Task
}

// NewRegistry returns a registry for document holding a copy of tasks.
func NewRegistry(document string, tasks []Task) *Registry {
	copied := make([]Task, len(tasks))
	copy(copied, tasks)
	return &Registry{
		document: document,
		tasks:    copied,
	}
}

// Document returns the handle of the document the registry was parsed from.
func (r *Registry) Document() string {
	if r == nil {
		return ""
	}
	return r.document
}

// Len returns the number of tasks.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Tasks returns a snapshot of the tasks in document order.
func (r *Registry) Tasks() []Task {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

// Get returns the task at index i.
func (r *Registry) Get(i int) (Task, bool) {
	if r == nil {
		return Task{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.tasks) {
		return Task{}, false
	}
	return r.tasks[i], true
}

// Link sets the remote id of the task at index i, overwriting any previous
// id. Out-of-range indexes are ignored.
func (r *Registry) Link(i int, id string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.tasks) {
		return
	}
	r.tasks[i].ID = id
}

// Pending returns the indexes of tasks without a remote id.
func (r *Registry) Pending() []int {
	return r.indexes(func(t *Task) bool { return !t.Linked() })
}

// LinkedIndexes returns the indexes of tasks with a remote id.
func (r *Registry) LinkedIndexes() []int {
	return r.indexes(func(t *Task) bool { return t.Linked() })
}

func (r *Registry) indexes(keep func(*Task) bool) []int {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []int
	for i := range r.tasks {
		if keep(&r.tasks[i]) {
			out = append(out, i)
		}
	}
	return out
}

// Counts returns the number of linked and pending tasks.
func (r *Registry) Counts() (linked, pending int) {
	for _, t := range r.Tasks() {
		if t.Linked() {
			linked++
		} else {
			pending++
		}
	}
	return linked, pending
}
