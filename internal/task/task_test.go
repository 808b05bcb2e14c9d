package task

import (
	"sync"
	"testing"

	"github.com/nibzard/notesync/internal/adf"
)

func sampleTasks() []Task {
	return []Task{
		{Title: "Fix bug", Description: adf.Build("Null pointer", "")},
		{ID: "10", Title: "Ship it", Description: adf.Build("Release", "")},
		{Title: "Write docs", Description: adf.Build("Readme", "")},
	}
}

func TestNewRegistryCopiesInput(t *testing.T) {
	in := sampleTasks()
	reg := NewRegistry("notes.md", in)

	in[0].Title = "mutated"
	got, ok := reg.Get(0)
	if !ok {
		t.Fatal("Get(0) returned false")
	}
	if got.Title != "Fix bug" {
		t.Errorf("registry aliased caller slice: got title %q", got.Title)
	}
	if reg.Document() != "notes.md" {
		t.Errorf("Document: got %q, want notes.md", reg.Document())
	}
}

func TestRegistryPendingAndLinked(t *testing.T) {
	reg := NewRegistry("notes.md", sampleTasks())

	pending := reg.Pending()
	if len(pending) != 2 || pending[0] != 0 || pending[1] != 2 {
		t.Errorf("Pending: got %v, want [0 2]", pending)
	}
	linked := reg.LinkedIndexes()
	if len(linked) != 1 || linked[0] != 1 {
		t.Errorf("LinkedIndexes: got %v, want [1]", linked)
	}

	l, p := reg.Counts()
	if l != 1 || p != 2 {
		t.Errorf("Counts: got (%d, %d), want (1, 2)", l, p)
	}
}

func TestRegistryLink(t *testing.T) {
	reg := NewRegistry("notes.md", sampleTasks())

	reg.Link(0, "42")
	reg.Link(1, "43")
	reg.Link(99, "ignored")
	reg.Link(-1, "ignored")

	tasks := reg.Tasks()
	if tasks[0].ID != "42" {
		t.Errorf("task 0 ID: got %q, want 42", tasks[0].ID)
	}
	if tasks[1].ID != "43" {
		t.Errorf("task 1 ID should be overwritten: got %q, want 43", tasks[1].ID)
	}
	if tasks[2].ID != "" {
		t.Errorf("task 2 ID: got %q, want empty", tasks[2].ID)
	}
}

func TestRegistrySnapshotIsolation(t *testing.T) {
	reg := NewRegistry("notes.md", sampleTasks())
	snap := reg.Tasks()
	snap[0].ID = "local"

	if got, _ := reg.Get(0); got.ID != "" {
		t.Errorf("snapshot mutation leaked into registry: %q", got.ID)
	}
}

func TestRegistryConcurrentLink(t *testing.T) {
	tasks := make([]Task, 50)
	for i := range tasks {
		tasks[i] = Task{Title: "t"}
	}
	reg := NewRegistry("notes.md", tasks)

	var wg sync.WaitGroup
	for i := range tasks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg.Link(i, "id")
			_ = reg.Tasks()
		}(i)
	}
	wg.Wait()

	if got := len(reg.Pending()); got != 0 {
		t.Errorf("expected all tasks linked, %d pending", got)
	}
}

func TestNilRegistry(t *testing.T) {
	var reg *Registry
	if reg.Len() != 0 || reg.Tasks() != nil || reg.Pending() != nil {
		t.Error("nil registry should behave as empty")
	}
	reg.Link(0, "x")
	if _, ok := reg.Get(0); ok {
		t.Error("Get on nil registry should report false")
	}
}
