// Package adf builds task descriptions in the Atlassian Document Format.
//
// A description is always a version 1 document holding one paragraph and,
// only when code was extracted from the note, one code block:
//
//	{"type":"doc","version":1,"content":[
//	  {"type":"paragraph","content":[{"type":"text","text":"..."}]},
//	  {"type":"codeBlock","content":[{"type":"text","text":"..."}]}
//	]}
package adf

import "strings"

// Node type discriminators.
const (
	TypeDoc       = "doc"
	TypeParagraph = "paragraph"
	TypeCodeBlock = "codeBlock"
	TypeText      = "text"
)

// Version is the only document version Jira accepts.
const Version = 1

// Document is the root of a rich-text description.
type Document struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
	Content []Node `json:"content"`
}

// Node is a block-level content node holding text leaves.
type Node struct {
	Type    string `json:"type"`
	Content []Text `json:"content"`
}

// Text is a leaf text node.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Build returns the description document for a text segment and a code
// segment. The paragraph is always present; the code block only when code
// is non-blank.
func Build(text, code string) Document {
	doc := Document{
		Type:    TypeDoc,
		Version: Version,
		Content: []Node{block(TypeParagraph, text)},
	}
	if strings.TrimSpace(code) != "" {
		doc.Content = append(doc.Content, block(TypeCodeBlock, code))
	}
	return doc
}

func block(nodeType, text string) Node {
	return Node{
		Type:    nodeType,
		Content: []Text{{Type: TypeText, Text: text}},
	}
}

// Text returns the paragraph text of the document.
func (d Document) Text() string {
	return d.segment(TypeParagraph)
}

// Code returns the code block text, or "" when the document has none.
func (d Document) Code() string {
	return d.segment(TypeCodeBlock)
}

func (d Document) segment(nodeType string) string {
	for _, n := range d.Content {
		if n.Type != nodeType {
			continue
		}
		var b strings.Builder
		for _, t := range n.Content {
			b.WriteString(t.Text)
		}
		return b.String()
	}
	return ""
}
