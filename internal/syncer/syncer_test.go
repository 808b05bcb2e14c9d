package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nibzard/notesync/internal/adf"
	"github.com/nibzard/notesync/internal/jira"
	"github.com/nibzard/notesync/internal/task"
)

type fakeTracker struct {
	mu      sync.Mutex
	issues  []jira.Issue
	user    *jira.User
	err     error
	failOn  map[string]error // keyed by summary
	created []jira.NewIssue
	updated map[string]jira.IssueUpdate
	nextID  int
	delay   time.Duration

	inFlight, peak int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		user:    &jira.User{AccountID: "me", Active: true},
		failOn:  map[string]error{},
		updated: map[string]jira.IssueUpdate{},
		nextID:  100,
	}
}

func (f *fakeTracker) Myself(ctx context.Context) (*jira.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeTracker) SearchIssues(ctx context.Context, jql string) ([]jira.Issue, error) {
	if f.err != nil {
		return nil, f.err
	}
	if jql != `project = "ENG"` {
		return nil, fmt.Errorf("unexpected jql %q", jql)
	}
	return f.issues, nil
}

func (f *fakeTracker) enter() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
}

func (f *fakeTracker) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeTracker) CreateIssue(ctx context.Context, in jira.NewIssue) (*jira.CreatedIssue, error) {
	f.enter()
	defer f.leave()

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[in.Summary]; err != nil {
		return nil, err
	}
	f.created = append(f.created, in)
	f.nextID++
	id := fmt.Sprintf("%d", f.nextID)
	return &jira.CreatedIssue{ID: id, Key: "ENG-" + id}, nil
}

func (f *fakeTracker) UpdateIssue(ctx context.Context, id string, in jira.IssueUpdate) error {
	f.enter()
	defer f.leave()

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[in.Summary]; err != nil {
		return err
	}
	f.updated[id] = in
	return nil
}

func issue(id, summary string) jira.Issue {
	return jira.Issue{ID: id, Fields: jira.IssueFields{Summary: summary}}
}

func newTask(id, title string) task.Task {
	return task.Task{ID: id, Title: title, Description: adf.Build(title+" details", "")}
}

func newSynchronizer(tr Tracker, maxConcurrency int) *Synchronizer {
	return New(tr, Options{ProjectKey: "ENG", MaxConcurrency: maxConcurrency})
}

func TestSynchronizeLinksByTitle(t *testing.T) {
	tr := newFakeTracker()
	tr.issues = []jira.Issue{issue("10", "Fix bug")}
	reg := task.NewRegistry("notes.md", []task.Task{newTask("", "Fix bug")})

	n, err := newSynchronizer(tr, 0).Synchronize(context.Background(), reg)
	if err != nil {
		t.Fatalf("Synchronize: %v", err)
	}
	if n != 1 {
		t.Errorf("count: got %d, want 1", n)
	}
	if got, _ := reg.Get(0); got.ID != "10" {
		t.Errorf("ID: got %q, want 10", got.ID)
	}
}

func TestSynchronize(t *testing.T) {
	tests := []struct {
		name    string
		issues  []jira.Issue
		tasks   []task.Task
		want    int
		wantIDs []string
	}{
		{
			name:    "no remote issues",
			tasks:   []task.Task{newTask("", "A")},
			want:    0,
			wantIDs: []string{""},
		},
		{
			name:    "overwrites existing id",
			issues:  []jira.Issue{issue("20", "A")},
			tasks:   []task.Task{newTask("5", "A")},
			want:    1,
			wantIDs: []string{"20"},
		},
		{
			name:    "last duplicate remote title wins",
			issues:  []jira.Issue{issue("1", "A"), issue("2", "A")},
			tasks:   []task.Task{newTask("", "A")},
			want:    1,
			wantIDs: []string{"2"},
		},
		{
			name:    "duplicate local titles both link",
			issues:  []jira.Issue{issue("7", "A")},
			tasks:   []task.Task{newTask("", "A"), newTask("", "B"), newTask("", "A")},
			want:    2,
			wantIDs: []string{"7", "", "7"},
		},
		{
			name:    "unmatched keeps previous id",
			issues:  []jira.Issue{issue("9", "other")},
			tasks:   []task.Task{newTask("3", "A")},
			want:    0,
			wantIDs: []string{"3"},
		},
		{
			name:    "title match is exact",
			issues:  []jira.Issue{issue("9", "fix bug")},
			tasks:   []task.Task{newTask("", "Fix bug")},
			want:    0,
			wantIDs: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newFakeTracker()
			tr.issues = tt.issues
			reg := task.NewRegistry("doc", tt.tasks)

			n, err := newSynchronizer(tr, 0).Synchronize(context.Background(), reg)
			if err != nil {
				t.Fatalf("Synchronize: %v", err)
			}
			if n != tt.want {
				t.Errorf("count: got %d, want %d", n, tt.want)
			}
			for i, want := range tt.wantIDs {
				if got, _ := reg.Get(i); got.ID != want {
					t.Errorf("task %d ID: got %q, want %q", i, got.ID, want)
				}
			}
			if len(tr.created) != 0 || len(tr.updated) != 0 {
				t.Error("synchronize must not create or update issues")
			}
		})
	}
}

func TestSynchronizeIdempotent(t *testing.T) {
	tr := newFakeTracker()
	tr.issues = []jira.Issue{issue("1", "A"), issue("2", "B")}
	reg := task.NewRegistry("doc", []task.Task{newTask("", "A"), newTask("", "B"), newTask("", "C")})
	s := newSynchronizer(tr, 0)

	first, err := s.Synchronize(context.Background(), reg)
	if err != nil {
		t.Fatal(err)
	}
	snapshot := reg.Tasks()
	second, err := s.Synchronize(context.Background(), reg)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("counts differ: %d vs %d", first, second)
	}
	for i, got := range reg.Tasks() {
		if got.ID != snapshot[i].ID {
			t.Errorf("task %d ID changed: %q -> %q", i, snapshot[i].ID, got.ID)
		}
	}
}

func TestSynchronizeSearchError(t *testing.T) {
	tr := newFakeTracker()
	tr.err = errors.New("network down")
	reg := task.NewRegistry("doc", []task.Task{newTask("", "A")})

	n, err := newSynchronizer(tr, 0).Synchronize(context.Background(), reg)
	if err == nil || !errors.Is(err, tr.err) {
		t.Fatalf("expected wrapped search error, got %v", err)
	}
	if n != 0 {
		t.Errorf("count: got %d, want 0", n)
	}
}

func TestCreateAndUpdateAreDisjoint(t *testing.T) {
	tr := newFakeTracker()
	reg := task.NewRegistry("doc", []task.Task{newTask("10", "Linked"), newTask("", "Pending")})
	s := newSynchronizer(tr, 0)

	n, err := s.Create(context.Background(), reg)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n != 1 {
		t.Errorf("create count: got %d, want 1", n)
	}
	if len(tr.created) != 1 || tr.created[0].Summary != "Pending" {
		t.Fatalf("unexpected create calls: %+v", tr.created)
	}
	if c := tr.created[0]; c.ProjectKey != "ENG" || c.IssueType != DefaultIssueType || c.Description.Text() != "Pending details" {
		t.Errorf("unexpected create payload: %+v", c)
	}
	if got, _ := reg.Get(1); got.ID != "101" {
		t.Errorf("pending task ID: got %q, want 101", got.ID)
	}
	if got, _ := reg.Get(0); got.ID != "10" {
		t.Errorf("linked task ID changed to %q", got.ID)
	}

	reg2 := task.NewRegistry("doc", []task.Task{newTask("10", "Linked"), newTask("", "Pending")})
	n, err = s.Update(context.Background(), reg2)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if n != 1 {
		t.Errorf("update count: got %d, want 1", n)
	}
	if _, ok := tr.updated["10"]; !ok || len(tr.updated) != 1 {
		t.Errorf("unexpected update calls: %+v", tr.updated)
	}
	if got := tr.updated["10"]; got.Summary != "Linked" || got.Description.Text() != "Linked details" {
		t.Errorf("unexpected update payload: %+v", got)
	}
}

func TestCreateNothingPending(t *testing.T) {
	tr := newFakeTracker()
	reg := task.NewRegistry("doc", []task.Task{newTask("1", "A")})

	n, err := newSynchronizer(tr, 0).Create(context.Background(), reg)
	if err != nil || n != 0 {
		t.Errorf("expected (0, nil), got (%d, %v)", n, err)
	}
	n, err = newSynchronizer(tr, 0).Update(context.Background(), task.NewRegistry("doc", nil))
	if err != nil || n != 0 {
		t.Errorf("expected (0, nil), got (%d, %v)", n, err)
	}
}

func TestCreatePartialFailureKeepsIDs(t *testing.T) {
	tr := newFakeTracker()
	boom := errors.New("boom")
	tr.failOn["B"] = boom
	reg := task.NewRegistry("doc", []task.Task{newTask("", "A"), newTask("", "B"), newTask("", "C")})

	n, err := newSynchronizer(tr, 0).Create(context.Background(), reg)
	if n != 3 {
		t.Errorf("dispatched: got %d, want 3", n)
	}
	if !errors.Is(err, ErrBatchFailed) {
		t.Fatalf("expected ErrBatchFailed, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected cause in chain, got %v", err)
	}
	var be *BatchError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BatchError, got %T", err)
	}
	if len(be.Failures) != 1 || be.Failures[0].Index != 1 || be.Failures[0].Title != "B" {
		t.Errorf("unexpected failures: %+v", be.Failures)
	}

	linked, pending := reg.Counts()
	if linked != 2 || pending != 1 {
		t.Errorf("expected 2 linked and 1 pending, got %d and %d", linked, pending)
	}
	if got, _ := reg.Get(1); got.ID != "" {
		t.Errorf("failed task should stay unlinked, got %q", got.ID)
	}
}

func TestUpdateFailure(t *testing.T) {
	tr := newFakeTracker()
	tr.failOn["B"] = errors.New("rejected")
	reg := task.NewRegistry("doc", []task.Task{newTask("1", "A"), newTask("2", "B")})

	n, err := newSynchronizer(tr, 0).Update(context.Background(), reg)
	if n != 2 {
		t.Errorf("dispatched: got %d, want 2", n)
	}
	if !errors.Is(err, ErrBatchFailed) {
		t.Fatalf("expected ErrBatchFailed, got %v", err)
	}
	if _, ok := tr.updated["1"]; !ok {
		t.Error("successful update missing")
	}
}

func TestCreateBoundedConcurrency(t *testing.T) {
	tr := newFakeTracker()
	tr.delay = 20 * time.Millisecond
	tasks := make([]task.Task, 8)
	for i := range tasks {
		tasks[i] = newTask("", fmt.Sprintf("T%d", i))
	}
	reg := task.NewRegistry("doc", tasks)

	n, err := newSynchronizer(tr, 2).Create(context.Background(), reg)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n != 8 {
		t.Errorf("dispatched: got %d, want 8", n)
	}
	if tr.peak > 2 {
		t.Errorf("expected at most 2 in-flight calls, got %d", tr.peak)
	}
	if _, pending := reg.Counts(); pending != 0 {
		t.Errorf("expected every task linked, %d pending", pending)
	}
}

func TestCreateCancelled(t *testing.T) {
	tr := newFakeTracker()
	reg := task.NewRegistry("doc", []task.Task{newTask("", "A"), newTask("", "B")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newSynchronizer(tr, 1).Create(ctx, reg)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
	if len(tr.created) != 0 {
		t.Errorf("no calls expected after cancellation, got %d", len(tr.created))
	}
}

func TestHealth(t *testing.T) {
	t.Run("active", func(t *testing.T) {
		ok, err := newSynchronizer(newFakeTracker(), 0).Health(context.Background())
		if err != nil || !ok {
			t.Errorf("expected (true, nil), got (%v, %v)", ok, err)
		}
	})

	t.Run("inactive", func(t *testing.T) {
		tr := newFakeTracker()
		tr.user = &jira.User{Active: false}
		ok, err := newSynchronizer(tr, 0).Health(context.Background())
		if err != nil || ok {
			t.Errorf("expected (false, nil), got (%v, %v)", ok, err)
		}
	})

	t.Run("error", func(t *testing.T) {
		tr := newFakeTracker()
		tr.err = errors.New("401")
		ok, err := newSynchronizer(tr, 0).Health(context.Background())
		if err == nil || ok {
			t.Errorf("expected (false, error), got (%v, %v)", ok, err)
		}
	})
}
