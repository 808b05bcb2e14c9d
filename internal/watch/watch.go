// Package watch reads note documents and reports when they change on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 150 * time.Millisecond

// Event reports that a watched document changed. Removed is set when the
// document no longer exists, in which case there is no active document.
type Event struct {
	Path    string
	Removed bool
}

// Provider reads documents from the local filesystem.
type Provider struct {
	Debounce time.Duration
	// OnError receives watcher errors. Optional.
	OnError func(error)
}

// NewProvider returns a Provider with the default debounce.
func NewProvider() *Provider {
	return &Provider{Debounce: DefaultDebounce}
}

// Read returns the text of the document at path.
func (p *Provider) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}

// Watch reports changes to paths until ctx is done, then closes the channel.
// Parent directories are watched rather than the files so that editors that
// save by rename are still seen.
func (p *Provider) Watch(ctx context.Context, paths ...string) (<-chan Event, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("must specify at least one file to watch")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	files := make(map[string]struct{}, len(paths))
	dirs := make(map[string]struct{})
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("%q: %w", path, err)
		}
		st, err := os.Lstat(abs)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("%q: %w", path, err)
		}
		if st.IsDir() {
			w.Close()
			return nil, fmt.Errorf("%q is a directory, not a file", path)
		}
		files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("watch %q: %w", dir, err)
		}
	}

	out := make(chan Event)
	go p.loop(ctx, w, files, out)
	return out, nil
}

func (p *Provider) loop(ctx context.Context, w *fsnotify.Watcher, files map[string]struct{}, out chan<- Event) {
	defer close(out)
	defer w.Close()

	debounce := p.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			if p.OnError != nil {
				p.OnError(err)
			}

		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if _, watched := files[e.Name]; !watched {
				continue
			}
			if e.Op == fsnotify.Chmod {
				continue
			}
			pending[e.Name] = struct{}{}
			timer.Reset(debounce)

		case <-timer.C:
			for path := range pending {
				_, statErr := os.Stat(path)
				ev := Event{Path: path, Removed: os.IsNotExist(statErr)}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
			pending = make(map[string]struct{})
		}
	}
}
