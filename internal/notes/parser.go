package notes

import (
	"strings"

	"github.com/nibzard/notesync/internal/adf"
	"github.com/nibzard/notesync/internal/task"
)

const (
	headingMarker    = "###"
	fenceMarker      = "```"
	descriptionLabel = "**Description**:"
	boldMarker       = "**"

	// NotSpecified is the text segment of a block with no prose at all.
	NotSpecified = "Not specified"
)

// block is one heading and the body tokens that follow it.
type block struct {
	title string
	prose []string // prose chunks, split at fence boundaries
	code  []string // raw fence contents in source order
}

// Parse converts document text into tasks, one per level-3 heading block,
// in order of appearance. Tasks are returned without remote ids.
func Parse(text string) []task.Task {
	blocks := scan(strings.ReplaceAll(text, "\r\n", "\n"))
	tasks := make([]task.Task, 0, len(blocks))
	for _, b := range blocks {
		tasks = append(tasks, task.Task{
			Title:       b.title,
			Description: adf.Build(textSegment(b.prose), codeSegment(b.code)),
		})
	}
	return tasks
}

// OnDocumentChanged is the entry point for hosts reacting to a document
// becoming active. It is pure and equivalent to Parse.
func OnDocumentChanged(text string) []task.Task {
	return Parse(text)
}

// scan walks the lines once and groups them into blocks.
func scan(text string) []block {
	var (
		blocks    []block
		cur       *block
		prose     strings.Builder
		fence     []string
		fenceOpen bool
	)

	closeFence := func() {
		cur.code = append(cur.code, strings.Join(fence, "\n"))
		fence = nil
		fenceOpen = false
	}
	flush := func() {
		if cur == nil {
			return
		}
		if fenceOpen {
			closeFence()
		}
		cur.prose = append(cur.prose, prose.String())
		prose.Reset()
		blocks = append(blocks, *cur)
	}

	for _, line := range strings.Split(text, "\n") {
		if title, ok := headingTitle(line); ok {
			flush()
			cur = &block{title: title}
			continue
		}
		if cur == nil {
			continue
		}
		if fenceOpen {
			if isCloseFence(line) {
				closeFence()
				continue
			}
			fence = append(fence, line)
			continue
		}
		if isOpenFence(line) {
			cur.prose = append(cur.prose, prose.String())
			prose.Reset()
			fenceOpen = true
			continue
		}
		prose.WriteString(line)
		prose.WriteByte('\n')
	}
	flush()

	return blocks
}

// headingTitle reports whether line is a level-3 heading and returns its
// trimmed title.
func headingTitle(line string) (string, bool) {
	if !strings.HasPrefix(line, headingMarker) {
		return "", false
	}
	rest := line[len(headingMarker):]
	if rest == "" {
		return "", true
	}
	if rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// stripIndent removes up to three leading spaces.
func stripIndent(line string) string {
	for i := 0; i < 3 && strings.HasPrefix(line, " "); i++ {
		line = line[1:]
	}
	return line
}

func isOpenFence(line string) bool {
	line = stripIndent(line)
	if !strings.HasPrefix(line, fenceMarker) {
		return false
	}
	info := strings.TrimLeft(line, "`")
	return !strings.Contains(info, "`")
}

func isCloseFence(line string) bool {
	line = stripIndent(line)
	if !strings.HasPrefix(line, fenceMarker) {
		return false
	}
	return strings.Trim(line, "` \t") == ""
}

// textSegment returns the labelled description, or the free prose when the
// label is absent.
func textSegment(prose []string) string {
	for _, chunk := range prose {
		idx := strings.Index(chunk, descriptionLabel)
		if idx < 0 {
			continue
		}
		rest := chunk[idx+len(descriptionLabel):]
		if end := strings.Index(rest, boldMarker); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}

	free := strings.TrimSpace(strings.Join(prose, ""))
	if free == "" {
		return NotSpecified
	}
	return free
}

// codeSegment flattens every fence to one line and joins them in order.
func codeSegment(regions []string) string {
	parts := make([]string, 0, len(regions))
	for _, region := range regions {
		flat := strings.TrimSpace(strings.ReplaceAll(region, "\n", " "))
		if flat != "" {
			parts = append(parts, flat)
		}
	}
	return strings.Join(parts, "\n")
}
