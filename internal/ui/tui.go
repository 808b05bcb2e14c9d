// Package ui provides the interactive task board.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/nibzard/notesync/internal/notify"
	"github.com/nibzard/notesync/internal/session"
	"github.com/nibzard/notesync/internal/task"
	"github.com/nibzard/notesync/internal/watch"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
	linkedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	noticeStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1)
)

// Options configures the board.
type Options struct {
	// Events delivers document changes; nil disables live reload.
	Events <-chan watch.Event
	// Notices delivers user notices; nil hides them.
	Notices <-chan notify.Notice
	// ProjectKey is shown in the header.
	ProjectKey string
}

// RunTUI runs the board until the user quits or ctx is cancelled.
func RunTUI(ctx context.Context, sess *session.Session, opts Options) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}
	model := NewModel(ctx, sess, opts)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

// Model is the bubbletea model of the board.
type Model struct {
	ctx        context.Context
	sess       *session.Session
	events     <-chan watch.Event
	notices    <-chan notify.Notice
	projectKey string

	active   []shownNotice
	busy     int
	lastErr  error
	showHelp bool
	watching bool
	now      func() time.Time
}

type shownNotice struct {
	text    string
	expires time.Time
}

type docEventMsg watch.Event

type eventsClosedMsg struct{}

type noticeMsg notify.Notice

type opDoneMsg struct {
	op  string
	err error
}

type tickMsg time.Time

const tickInterval = 250 * time.Millisecond

// NewModel returns a board bound to sess.
func NewModel(ctx context.Context, sess *session.Session, opts Options) *Model {
	return &Model{
		ctx:        ctx,
		sess:       sess,
		events:     opts.Events,
		notices:    opts.Notices,
		projectKey: opts.ProjectKey,
		watching:   opts.Events != nil,
		now:        time.Now,
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd()}
	if m.events != nil {
		cmds = append(cmds, waitForEvent(m.events))
	}
	if m.notices != nil {
		cmds = append(cmds, waitForNotice(m.notices))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case docEventMsg:
		if msg.Removed {
			m.sess.CloseDocument()
		} else if err := m.sess.OpenDocument(msg.Path); err != nil {
			m.lastErr = err
		}
		return m, waitForEvent(m.events)
	case eventsClosedMsg:
		m.watching = false
	case noticeMsg:
		m.show(notify.Notice(msg))
		return m, waitForNotice(m.notices)
	case opDoneMsg:
		m.busy--
		if msg.err != nil {
			m.lastErr = fmt.Errorf("%s: %w", msg.op, msg.err)
		}
	case tickMsg:
		m.expire()
		return m, tickCmd()
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "q":
		return tea.Quit
	case "?":
		m.showHelp = !m.showHelp
		return nil
	case "s":
		return m.run("synchronize", func(ctx context.Context) error {
			_, err := m.sess.Synchronize(ctx)
			return err
		})
	// A reload drops linked ids, so create and update link first.
	case "c":
		return m.run("create", func(ctx context.Context) error {
			if _, err := m.sess.Synchronize(ctx); err != nil {
				return err
			}
			_, err := m.sess.Create(ctx)
			return err
		})
	case "u":
		return m.run("update", func(ctx context.Context) error {
			if _, err := m.sess.Synchronize(ctx); err != nil {
				return err
			}
			_, err := m.sess.Update(ctx)
			return err
		})
	case "p":
		return m.run("push", func(ctx context.Context) error {
			_, err := m.sess.Push(ctx)
			return err
		})
	case "h":
		return m.run("health", func(ctx context.Context) error {
			_, err := m.sess.Health(ctx)
			return err
		})
	case "r":
		if path := m.sess.Active(); path != "" {
			if err := m.sess.OpenDocument(path); err != nil {
				m.lastErr = err
			}
		}
	}
	return nil
}

func (m *Model) run(op string, fn func(context.Context) error) tea.Cmd {
	m.busy++
	m.lastErr = nil
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

func (m *Model) show(n notify.Notice) {
	d := n.Duration
	if d <= 0 {
		d = notify.CountDuration
	}
	m.active = append(m.active, shownNotice{text: n.Text, expires: m.now().Add(d)})
}

func (m *Model) expire() {
	now := m.now()
	kept := m.active[:0]
	for _, n := range m.active {
		if now.Before(n.expires) {
			kept = append(kept, n)
		}
	}
	m.active = kept
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("notesync"))
	if m.projectKey != "" {
		b.WriteString(mutedStyle.Render("  project " + m.projectKey))
	}
	b.WriteString("\n\n")

	if m.showHelp {
		writeHelp(&b)
		return b.String()
	}

	doc := m.sess.Active()
	reg := m.sess.Registry()
	if doc == "" || reg == nil {
		b.WriteString(mutedStyle.Render("No active document.") + "\n\n")
	} else {
		writeDocument(&b, doc, reg)
	}

	for _, n := range m.active {
		b.WriteString(noticeStyle.Render(n.text) + "\n")
	}
	if m.lastErr != nil {
		b.WriteString(errorStyle.Render("Error: "+m.lastErr.Error()) + "\n")
	}
	writeFooter(&b, m.busy, m.watching)
	return b.String()
}

func writeDocument(b *strings.Builder, doc string, reg *task.Registry) {
	linked, pending := reg.Counts()
	b.WriteString(headerStyle.Render(filepath.Base(doc)))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  %d linked, %d pending", linked, pending)))
	b.WriteString("\n\n")

	tasks := reg.Tasks()
	if len(tasks) == 0 {
		b.WriteString(mutedStyle.Render("  No tasks in this document.") + "\n\n")
		return
	}
	for i, t := range tasks {
		b.WriteString(formatTask(i, t) + "\n")
	}
	b.WriteString("\n")
}

func formatTask(i int, t task.Task) string {
	status := pendingStyle.Render(fmt.Sprintf("%-8s", "pending"))
	if t.Linked() {
		status = linkedStyle.Render(fmt.Sprintf("%-8s", t.ID))
	}
	return fmt.Sprintf("  %2d  %s  %s", i+1, status, truncate(t.Title, maxTitleWidth))
}

const maxTitleWidth = 60

// truncate shortens s to at most width terminal cells, ending in "...".
func truncate(s string, width int) string {
	if ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "...")
}

func writeHelp(b *strings.Builder) {
	b.WriteString(headerStyle.Render("Keyboard Shortcuts") + "\n\n")
	b.WriteString("  s          Synchronize with remote issues\n")
	b.WriteString("  c          Synchronize, then create issues for pending tasks\n")
	b.WriteString("  u          Synchronize, then update linked issues\n")
	b.WriteString("  p          Push (synchronize, create, update)\n")
	b.WriteString("  h          Check the Jira connection\n")
	b.WriteString("  r          Re-read the document\n")
	b.WriteString("  ?          Toggle this help screen\n")
	b.WriteString("  q, ctrl+c  Quit\n\n")
}

func writeFooter(b *strings.Builder, busy int, watching bool) {
	var parts []string
	if busy > 0 {
		parts = append(parts, fmt.Sprintf("%d running", busy))
	}
	if watching {
		parts = append(parts, "watching")
	}
	parts = append(parts, "? for help", "q to quit")
	b.WriteString("\n" + mutedStyle.Render(strings.Join(parts, " | ")) + "\n")
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForEvent(ch <-chan watch.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return docEventMsg(ev)
	}
}

func waitForNotice(ch <-chan notify.Notice) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
