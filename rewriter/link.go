// Package rewriter writes edited fragments back into document links.
package rewriter

import (
	"errors"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"mediafrag/grammar"
	"mediafrag/models"
)

// ErrOccurrenceMoved is returned when the text at an occurrence's span no
// longer holds the link it was located from.
var ErrOccurrenceMoved = errors.New("occurrence no longer matches document")

var (
	wikiLinkRegex     = regexp.MustCompile(`^(!?\[\[)([^\[\]|#]+)(?:#([^\[\]|]*))?((?:\|[^\[\]]*)?\]\])$`)
	markdownLinkRegex = regexp.MustCompile(`^(!?\[[^\[\]]*\]\()(<[^<>]*>|[^()\s]+)((?:\s+(?:"[^"]*"|'[^']*'))?\s*\))$`)
)

// Rewrite returns text with occ's link rebuilt to carry frag. A nil frag
// removes the "t=" parameter. Everything outside the link's span is left
// byte-identical, and within the link only the time parameter changes.
func Rewrite(text string, occ models.Occurrence, frag *models.Fragment, opts grammar.FormatOptions) (string, error) {
	lines := strings.Split(text, "\n")
	current, err := extract(lines, occ.Span)
	if err != nil {
		return "", err
	}

	replacement, err := RewriteLink(current, occ, frag, opts)
	if err != nil {
		return "", err
	}

	return splice(lines, occ.Span, replacement), nil
}

// RewriteLink rebuilds a single link as written in the document. link must
// be exactly the text covered by occ.Span.
func RewriteLink(link string, occ models.Occurrence, frag *models.Fragment, opts grammar.FormatOptions) (string, error) {
	t := grammar.GenerateFragmentSubpath(frag, opts)

	switch occ.Syntax {
	case models.SyntaxWiki:
		m := wikiLinkRegex.FindStringSubmatch(link)
		if m == nil || strings.TrimSpace(m[2]) != occ.LinkPath {
			return "", fmt.Errorf("%w: %q", ErrOccurrenceMoved, link)
		}
		return m[1] + m[2] + withSubpath(m[3], t) + m[4], nil

	case models.SyntaxMarkdown:
		m := markdownLinkRegex.FindStringSubmatch(link)
		if m == nil {
			return "", fmt.Errorf("%w: %q", ErrOccurrenceMoved, link)
		}
		target, wrapped := m[2], false
		if strings.HasPrefix(target, "<") {
			target, wrapped = target[1:len(target)-1], true
		}
		path, subpath, _ := strings.Cut(target, "#")
		if unescapePath(path) != occ.LinkPath {
			return "", fmt.Errorf("%w: %q", ErrOccurrenceMoved, link)
		}
		target = path + withSubpath(subpath, t)
		if wrapped {
			target = "<" + target + ">"
		}
		return m[1] + target + m[3], nil

	case models.SyntaxHTML:
		return rewriteVideoTag(link, occ, t)
	}
	return "", fmt.Errorf("unsupported link syntax: %v", occ.Syntax)
}

// rewriteVideoTag edits the fragment part of the src attribute and nothing
// else in the tag.
func rewriteVideoTag(tag string, occ models.Occurrence, t string) (string, error) {
	src, ok := videoSrc(tag)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrOccurrenceMoved, tag)
	}
	start, end, ok := attrValueRange(tag, "src")
	if !ok || html.UnescapeString(unquote(tag[start:end])) != src {
		return "", fmt.Errorf("%w: no src in %q", ErrOccurrenceMoved, tag)
	}

	value := tag[start:end]
	quote := ""
	if value[0] == '"' || value[0] == '\'' {
		quote = value[:1]
		value = unquote(value)
	}

	path, subpath, _ := strings.Cut(value, "#")
	if unescapePath(html.UnescapeString(path)) != occ.LinkPath {
		return "", fmt.Errorf("%w: %q", ErrOccurrenceMoved, tag)
	}

	value = path + withSubpath(subpath, t)
	if quote == "" && strings.ContainsAny(value, " \t\n") {
		quote = `"`
	}
	return tag[:start] + quote + value + quote + tag[end:], nil
}

// videoSrc tokenizes tag and returns the value of the first src attribute
// of a leading <video> start tag.
func videoSrc(tag string) (string, bool) {
	z := xhtml.NewTokenizer(strings.NewReader(tag))
	tt := z.Next()
	if tt != xhtml.StartTagToken && tt != xhtml.SelfClosingTagToken {
		return "", false
	}
	name, more := z.TagName()
	if atom.Lookup(name) != atom.Video {
		return "", false
	}
	for more {
		var key, val []byte
		key, val, more = z.TagAttr()
		if string(key) == "src" {
			return string(val), true
		}
	}
	return "", false
}

// attrValueRange returns the byte range of the first value of attribute
// name in a start tag, quotes included. Attribute boundaries follow the
// HTML tokenizer, so quoted text that merely looks like an attribute is
// skipped.
func attrValueRange(tag, name string) (start, end int, ok bool) {
	i := 1
	for i < len(tag) && !isTagSpace(tag[i]) && tag[i] != '/' && tag[i] != '>' {
		i++
	}
	for i < len(tag) {
		for i < len(tag) && (isTagSpace(tag[i]) || tag[i] == '/') {
			i++
		}
		if i >= len(tag) || tag[i] == '>' {
			return 0, 0, false
		}

		keyStart := i
		i++ // a leading '=' belongs to the name
		for i < len(tag) && !isTagSpace(tag[i]) && tag[i] != '/' && tag[i] != '>' && tag[i] != '=' {
			i++
		}
		key := tag[keyStart:i]
		for i < len(tag) && isTagSpace(tag[i]) {
			i++
		}
		if i >= len(tag) || tag[i] != '=' {
			continue
		}
		i++
		for i < len(tag) && isTagSpace(tag[i]) {
			i++
		}

		valStart := i
		if i < len(tag) && (tag[i] == '"' || tag[i] == '\'') {
			closing := strings.IndexByte(tag[i+1:], tag[i])
			if closing < 0 {
				return 0, 0, false
			}
			i += closing + 2
		} else {
			for i < len(tag) && !isTagSpace(tag[i]) && tag[i] != '>' {
				i++
			}
		}
		if strings.EqualFold(key, name) && i > valStart {
			return valStart, i, true
		}
	}
	return 0, 0, false
}

func isTagSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// withSubpath merges t into an existing subpath and renders it with its '#'.
func withSubpath(subpath, t string) string {
	s := grammar.ReplaceTimeParam(subpath, t)
	if s == "" {
		return ""
	}
	return "#" + s
}

func unescapePath(p string) string {
	p = strings.TrimSpace(p)
	if decoded, err := url.PathUnescape(p); err == nil {
		return decoded
	}
	return p
}

func extract(lines []string, span models.Span) (string, error) {
	if span.StartLine < 0 || span.EndLine >= len(lines) || span.StartLine > span.EndLine {
		return "", fmt.Errorf("%w: span %s outside document", ErrOccurrenceMoved, span)
	}
	if span.StartCol > len(lines[span.StartLine]) || span.EndCol > len(lines[span.EndLine]) {
		return "", fmt.Errorf("%w: span %s outside line", ErrOccurrenceMoved, span)
	}
	if span.StartLine == span.EndLine {
		if span.StartCol > span.EndCol {
			return "", fmt.Errorf("%w: empty span %s", ErrOccurrenceMoved, span)
		}
		return lines[span.StartLine][span.StartCol:span.EndCol], nil
	}

	parts := make([]string, 0, span.EndLine-span.StartLine+1)
	parts = append(parts, lines[span.StartLine][span.StartCol:])
	parts = append(parts, lines[span.StartLine+1:span.EndLine]...)
	parts = append(parts, lines[span.EndLine][:span.EndCol])
	return strings.Join(parts, "\n"), nil
}

// splice replaces the spanned text, keeping the prefix of the first line and
// the suffix of the last.
func splice(lines []string, span models.Span, replacement string) string {
	prefix := lines[span.StartLine][:span.StartCol]
	suffix := lines[span.EndLine][span.EndCol:]

	out := make([]string, 0, len(lines))
	out = append(out, lines[:span.StartLine]...)
	out = append(out, prefix+replacement+suffix)
	out = append(out, lines[span.EndLine+1:]...)
	return strings.Join(out, "\n")
}
