// Package notify delivers short user-facing notices.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// CountDuration is how long count notices stay visible.
const CountDuration = 2 * time.Second

// Notice is one user-facing message. A zero Duration leaves the display
// time to the sink.
type Notice struct {
	Text     string
	Duration time.Duration
}

// Notice texts.
const (
	TextCreateFailed      = "Failed to create tasks."
	TextUpdateFailed      = "Failed to update tasks."
	TextSynchronizeFailed = "Failed to synchronize tasks."
	TextNoActiveFile      = "No active file found."
	TextConnected         = "Jira connected ✅"
	TextConnectFailed     = "Failed to connect to Jira ❌"
)

// Created reports n dispatched create calls.
func Created(n int) Notice {
	return Notice{Text: fmt.Sprintf("Created %d tasks.", n), Duration: CountDuration}
}

// Updated reports n dispatched update calls.
func Updated(n int) Notice {
	return Notice{Text: fmt.Sprintf("Updated %d tasks.", n), Duration: CountDuration}
}

// Synchronized reports n tasks linked to remote issues.
func Synchronized(n int) Notice {
	return Notice{Text: fmt.Sprintf("Synchronized %d tasks with Jira", n), Duration: CountDuration}
}

// Health reports the result of a connectivity probe.
func Health(ok bool) Notice {
	if ok {
		return Notice{Text: TextConnected}
	}
	return Notice{Text: TextConnectFailed}
}

// Text returns a notice with the sink's default duration.
func Text(text string) Notice {
	return Notice{Text: text}
}

// Sink receives notices.
type Sink interface {
	Notify(Notice)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Notice)

// Notify calls f(n).
func (f SinkFunc) Notify(n Notice) {
	f(n)
}

// Discard drops every notice.
var Discard Sink = SinkFunc(func(Notice) {})

// WriterSink prints one notice per line. Safe for concurrent use.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink returns a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Notify writes the notice text.
func (s *WriterSink) Notify(n Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, n.Text)
}

// LogSink forwards notices to a structured logger at info level.
type LogSink struct {
	Logger *log.Logger
}

// Notify logs the notice.
func (s LogSink) Notify(n Notice) {
	if s.Logger == nil {
		return
	}
	s.Logger.Info(n.Text, "notice", true)
}

// ChanSink hands notices to a channel without blocking; notices are dropped
// when the buffer is full.
type ChanSink struct {
	C chan Notice
}

// NewChanSink returns a sink with a buffer of size.
func NewChanSink(size int) *ChanSink {
	return &ChanSink{C: make(chan Notice, size)}
}

// Notify enqueues n or drops it.
func (s *ChanSink) Notify(n Notice) {
	select {
	case s.C <- n:
	default:
	}
}

// Multi fans a notice out to every sink in order.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(n Notice) {
		for _, s := range sinks {
			if s != nil {
				s.Notify(n)
			}
		}
	})
}
