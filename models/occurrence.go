package models

import "fmt"

// Syntax is the surface syntax of a media link in a document.
type Syntax int

const (
	SyntaxWiki     Syntax = iota // ![[path#t=..|alias]] or [[path#t=..]]
	SyntaxMarkdown               // ![alt](path#t=..) or [text](path#t=..)
	SyntaxHTML                   // <video src="path#t=.."> (always embedded)
)

func (s Syntax) String() string {
	switch s {
	case SyntaxWiki:
		return "wiki"
	case SyntaxMarkdown:
		return "markdown"
	case SyntaxHTML:
		return "html"
	default:
		return fmt.Sprintf("syntax(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Syntax) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Span delimits text in a document. Lines are 0-based, columns are byte
// offsets within the line and End is exclusive.
type Span struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.StartLine+1, s.StartCol+1, s.EndLine+1, s.EndCol+1)
}

// Before reports whether s starts before o in document order.
func (s Span) Before(o Span) bool {
	if s.StartLine != o.StartLine {
		return s.StartLine < o.StartLine
	}
	return s.StartCol < o.StartCol
}

// Occurrence is a located reference to a media resource within a document.
// Occurrences are recomputed on every scan and never mutated.
type Occurrence struct {
	// ID is a stable correlation key for matching the occurrence with a
	// rendered media element.
	ID string `json:"id"`
	// Index is the position of the occurrence in document order.
	Index int `json:"index"`

	Syntax   Syntax `json:"syntax"`
	Embedded bool   `json:"embedded"`

	// LinkPath is the link target as written, without the subpath.
	LinkPath string `json:"link_path"`
	// ResourcePath is the target as resolved by the host.
	ResourcePath string `json:"resource_path"`
	// Subpath is everything after '#' in the link target, without the '#'.
	Subpath string `json:"subpath,omitempty"`
	// Alias is the display text (wiki alias or markdown link text).
	Alias string `json:"alias,omitempty"`

	Fragment *Fragment `json:"fragment,omitempty"`
	Span     Span      `json:"span"`
}
