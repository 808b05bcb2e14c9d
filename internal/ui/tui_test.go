package ui

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/nibzard/notesync/internal/notify"
	"github.com/nibzard/notesync/internal/session"
	"github.com/nibzard/notesync/internal/task"
	"github.com/nibzard/notesync/internal/watch"
)

type fakeEngine struct {
	calls    []string
	err      error
	existing map[string]string // title -> remote id
}

func (f *fakeEngine) Synchronize(ctx context.Context, reg *task.Registry) (int, error) {
	f.calls = append(f.calls, "synchronize")
	matched := 0
	for i, t := range reg.Tasks() {
		if id, ok := f.existing[t.Title]; ok {
			reg.Link(i, id)
			matched++
		}
	}
	return matched, f.err
}

func (f *fakeEngine) Create(ctx context.Context, reg *task.Registry) (int, error) {
	f.calls = append(f.calls, "create")
	for _, i := range reg.Pending() {
		reg.Link(i, "ID-1")
	}
	return len(reg.Pending()), f.err
}

func (f *fakeEngine) Update(ctx context.Context, reg *task.Registry) (int, error) {
	f.calls = append(f.calls, "update")
	return 0, f.err
}

func (f *fakeEngine) Health(ctx context.Context) (bool, error) {
	f.calls = append(f.calls, "health")
	return f.err == nil, f.err
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newModel(engine *fakeEngine) (*Model, *session.Session) {
	sess := session.New(session.Options{Engine: engine, Documents: watch.NewProvider()})
	return NewModel(context.Background(), sess, Options{ProjectKey: "ENG"}), sess
}

func TestModelKeysRunOperations(t *testing.T) {
	tests := []struct {
		key   string
		want  string
		calls string
	}{
		{"s", "synchronize", "synchronize"},
		{"c", "create", "synchronize,create"},
		{"u", "update", "synchronize,update"},
		{"h", "health", "health"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			engine := &fakeEngine{}
			m, sess := newModel(engine)
			sess.DocumentChanged("notes.md", "### A\n")

			_, cmd := m.Update(key(tt.key))
			if cmd == nil {
				t.Fatal("expected a command")
			}
			if m.busy != 1 {
				t.Errorf("busy: got %d, want 1", m.busy)
			}
			msg := cmd()
			done, ok := msg.(opDoneMsg)
			if !ok || done.op != tt.want {
				t.Fatalf("unexpected message %#v", msg)
			}
			m.Update(done)
			if m.busy != 0 || m.lastErr != nil {
				t.Errorf("after done: busy=%d err=%v", m.busy, m.lastErr)
			}
			if got := strings.Join(engine.calls, ","); got != tt.calls {
				t.Errorf("engine calls: got %s, want %s", got, tt.calls)
			}
		})
	}
}

func TestModelPushRunsAllSteps(t *testing.T) {
	engine := &fakeEngine{}
	m, sess := newModel(engine)
	sess.DocumentChanged("notes.md", "### A\n")

	_, cmd := m.Update(key("p"))
	m.Update(cmd())
	if got := strings.Join(engine.calls, ","); got != "synchronize,create,update" {
		t.Errorf("push calls: %s", got)
	}
}

func TestModelCreateAfterReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("### Fix bug\n"), 0644); err != nil {
		t.Fatal(err)
	}
	engine := &fakeEngine{existing: map[string]string{"Fix bug": "10"}}
	m, sess := newModel(engine)
	if err := sess.OpenDocument(path); err != nil {
		t.Fatal(err)
	}
	sess.Registry().Link(0, "10")

	if err := os.WriteFile(path, []byte("### Fix bug\n### New work\n"), 0644); err != nil {
		t.Fatal(err)
	}
	m.Update(docEventMsg{Path: path})
	if sess.Registry().Tasks()[0].Linked() {
		t.Fatal("reload should start from unlinked tasks")
	}

	_, cmd := m.Update(key("c"))
	m.Update(cmd())
	tasks := sess.Registry().Tasks()
	if tasks[0].ID != "10" {
		t.Errorf("existing issue must be linked, not recreated: got id %q", tasks[0].ID)
	}
	if tasks[1].ID != "ID-1" {
		t.Errorf("new task should be created: got id %q", tasks[1].ID)
	}
}

func TestModelOperationError(t *testing.T) {
	m, sess := newModel(&fakeEngine{err: errors.New("offline")})
	sess.DocumentChanged("notes.md", "### A\n")

	_, cmd := m.Update(key("s"))
	m.Update(cmd())
	if m.lastErr == nil || !strings.Contains(m.View(), "offline") {
		t.Errorf("expected error in view, got %q", m.View())
	}
}

func TestModelQuit(t *testing.T) {
	m, _ := newModel(&fakeEngine{})
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModelView(t *testing.T) {
	m, sess := newModel(&fakeEngine{})

	if !strings.Contains(m.View(), "No active document.") {
		t.Errorf("expected empty state, got %q", m.View())
	}

	sess.DocumentChanged("/vault/notes.md", "### Fix bug\n### Write docs\n")
	sess.Registry().Link(0, "10042")

	view := m.View()
	for _, want := range []string{"notes.md", "1 linked, 1 pending", "10042", "Fix bug", "pending", "Write docs", "ENG"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m.Update(key("?"))
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Error("help screen not shown")
	}
}

func TestModelDocumentEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("### From disk\n"), 0644); err != nil {
		t.Fatal(err)
	}
	events := make(chan watch.Event, 1)
	sess := session.New(session.Options{Engine: &fakeEngine{}, Documents: watch.NewProvider()})
	m := NewModel(context.Background(), sess, Options{Events: events})

	_, cmd := m.Update(docEventMsg{Path: path})
	if cmd == nil {
		t.Fatal("expected to keep waiting for events")
	}
	if sess.Active() != path || sess.Registry().Len() != 1 {
		t.Fatalf("document not opened: %q", sess.Active())
	}

	m.Update(docEventMsg{Path: path, Removed: true})
	if sess.Active() != "" {
		t.Error("removed document should close the session document")
	}

	close(events)
	if _, ok := waitForEvent(events)().(eventsClosedMsg); !ok {
		t.Error("expected eventsClosedMsg from a closed channel")
	}
}

func TestModelNotices(t *testing.T) {
	m, _ := newModel(&fakeEngine{})
	now := time.Now()
	m.now = func() time.Time { return now }

	m.Update(noticeMsg(notify.Notice{Text: "Created 2 tasks.", Duration: time.Second}))
	if !strings.Contains(m.View(), "Created 2 tasks.") {
		t.Fatal("notice not shown")
	}

	now = now.Add(2 * time.Second)
	m.Update(tickMsg(now))
	if strings.Contains(m.View(), "Created 2 tasks.") {
		t.Error("notice should expire")
	}
}

func TestFormatTaskTruncates(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		truncated bool
	}{
		{"short", "Fix bug", false},
		{"ascii", strings.Repeat("a", 80), true},
		{"diacritics at the cut", strings.Repeat("a", 56) + "čšžřýáíéůú", true},
		{"wide runes", strings.Repeat("界", 40), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatTask(0, task.Task{Title: tt.title})
			if !utf8.ValidString(got) {
				t.Fatalf("invalid UTF-8: %q", got)
			}
			if strings.HasSuffix(got, "...") != tt.truncated {
				t.Errorf("truncated=%v: %q", !tt.truncated, got)
			}
			if w := ansi.StringWidth(truncate(tt.title, maxTitleWidth)); w > maxTitleWidth {
				t.Errorf("width %d exceeds %d", w, maxTitleWidth)
			}
		})
	}
}

func TestIsTTY(t *testing.T) {
	if IsTTY(&bytes.Buffer{}) {
		t.Error("buffer is not a TTY")
	}
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if IsTTY(f) {
		t.Error("regular file is not a TTY")
	}
}
