// Package locator finds media link occurrences in document text.
package locator

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"mediafrag/grammar"
	"mediafrag/models"
)

// occurrenceNamespace seeds the name-based occurrence IDs.
var occurrenceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("mediafrag:occurrence"))

var (
	// ![[path#subpath|alias]] or [[path#subpath]]
	wikiRegex = regexp.MustCompile(`(!?)\[\[([^\[\]|#]+)(#[^\[\]|]*)?(?:\|([^\[\]]*))?\]\]`)
	// ![alt](path#subpath "title") or [text](path#subpath), path optionally
	// in <...>, title optional
	markdownRegex = regexp.MustCompile(`(!?)\[([^\[\]]*)\]\((<[^<>]*>|[^()\s]+)(?:\s+(?:"[^"]*"|'[^']*'))?\s*\)`)
	fenceRegex    = regexp.MustCompile("^\\s{0,3}(```|~~~)")
)

// Scanner locates media occurrences in a document.
type Scanner struct {
	resolver Resolver
	log      *zap.Logger
}

// NewScanner creates a scanner that resolves link targets with resolver.
// A nil logger disables logging.
func NewScanner(resolver Resolver, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{resolver: resolver, log: log.Named("locator")}
}

// candidate is a syntactic match before resolution.
type candidate struct {
	syntax   models.Syntax
	embedded bool
	target   string // link target as written, including any subpath
	alias    string
	span     models.Span
}

// Scan returns the media occurrences of text in document order (line, then
// column). The n-th occurrence is expected to correspond to the n-th rendered
// media element; the ID field offers a sturdier correlation key.
//
// Links inside fenced code blocks are ignored. Links that do not resolve, or
// resolve to something that is not media, are skipped silently.
func (s *Scanner) Scan(sourcePath, text string) []models.Occurrence {
	lines := strings.Split(text, "\n")
	fenced := fencedLines(lines)

	var candidates []candidate
	for i, line := range lines {
		if fenced[i] {
			continue
		}
		candidates = append(candidates, scanWikiLinks(i, line)...)
		candidates = append(candidates, scanMarkdownLinks(i, line)...)
	}
	for _, c := range scanVideoTags(text) {
		if !fenced[c.span.StartLine] {
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].span.Before(candidates[j].span)
	})

	occurrences := make([]models.Occurrence, 0, len(candidates))
	ordinals := make(map[string]int)
	for _, c := range candidates {
		linkPath, subpath := splitTarget(c.target, c.syntax)
		resourcePath, ok := s.resolve(linkPath, sourcePath)
		if !ok {
			s.log.Debug("Skipping link", zap.String("source", sourcePath), zap.String("target", linkPath), zap.Stringer("span", c.span))
			continue
		}

		ordinal := ordinals[resourcePath]
		ordinals[resourcePath]++

		occurrences = append(occurrences, models.Occurrence{
			ID:           occurrenceID(sourcePath, resourcePath, ordinal),
			Index:        len(occurrences),
			Syntax:       c.syntax,
			Embedded:     c.embedded,
			LinkPath:     linkPath,
			ResourcePath: resourcePath,
			Subpath:      subpath,
			Alias:        c.alias,
			Fragment:     grammar.ParseFragmentSubpath(subpath),
			Span:         c.span,
		})
	}

	s.log.Debug("Scanned document", zap.String("source", sourcePath), zap.Int("candidates", len(candidates)), zap.Int("occurrences", len(occurrences)))
	return occurrences
}

func (s *Scanner) resolve(linkPath, sourcePath string) (string, bool) {
	if s.resolver == nil || linkPath == "" {
		return "", false
	}
	resourcePath, ok := s.resolver.Resolve(linkPath, sourcePath)
	if !ok || !s.resolver.IsMedia(resourcePath) {
		return "", false
	}
	return resourcePath, true
}

// Lookup finds an occurrence by ID.
func Lookup(occurrences []models.Occurrence, id string) (models.Occurrence, bool) {
	for _, o := range occurrences {
		if o.ID == id {
			return o, true
		}
	}
	return models.Occurrence{}, false
}

func occurrenceID(sourcePath, resourcePath string, ordinal int) string {
	name := sourcePath + "\x00" + resourcePath + "\x00" + strconv.Itoa(ordinal)
	return uuid.NewSHA1(occurrenceNamespace, []byte(name)).String()
}

func scanWikiLinks(lineNo int, line string) []candidate {
	var out []candidate
	for _, m := range wikiRegex.FindAllStringSubmatchIndex(line, -1) {
		target := line[m[4]:m[5]]
		if m[6] >= 0 {
			target += line[m[6]:m[7]]
		}
		c := candidate{
			syntax:   models.SyntaxWiki,
			embedded: m[3] > m[2],
			target:   target,
			span:     models.Span{StartLine: lineNo, StartCol: m[0], EndLine: lineNo, EndCol: m[1]},
		}
		if m[8] >= 0 {
			c.alias = line[m[8]:m[9]]
		}
		out = append(out, c)
	}
	return out
}

func scanMarkdownLinks(lineNo int, line string) []candidate {
	var out []candidate
	for _, m := range markdownRegex.FindAllStringSubmatchIndex(line, -1) {
		out = append(out, candidate{
			syntax:   models.SyntaxMarkdown,
			embedded: m[3] > m[2],
			target:   line[m[6]:m[7]],
			alias:    line[m[4]:m[5]],
			span:     models.Span{StartLine: lineNo, StartCol: m[0], EndLine: lineNo, EndCol: m[1]},
		})
	}
	return out
}

// scanVideoTags tokenizes the whole document and returns one candidate per
// <video> start tag carrying a src attribute. The span covers the tag, which
// may run over several lines.
func scanVideoTags(text string) []candidate {
	if !strings.Contains(strings.ToLower(text), "<video") {
		return nil
	}

	index := newLineIndex(text)
	z := html.NewTokenizer(strings.NewReader(text))
	offset := 0
	var out []candidate
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return out
		}
		raw := len(z.Raw())
		start := offset
		offset += raw

		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if atom.Lookup(name) != atom.Video || !hasAttr {
			continue
		}
		for {
			key, val, more := z.TagAttr()
			if string(key) == "src" {
				out = append(out, candidate{
					syntax:   models.SyntaxHTML,
					embedded: true,
					target:   string(val),
					span:     index.span(start, offset),
				})
				break
			}
			if !more {
				break
			}
		}
	}
}

// splitTarget separates the link path from its subpath. Markdown targets
// may be wrapped in <...> and percent-encoded.
func splitTarget(target string, syntax models.Syntax) (linkPath, subpath string) {
	if syntax == models.SyntaxMarkdown {
		target = strings.TrimSuffix(strings.TrimPrefix(target, "<"), ">")
	}
	linkPath, subpath, _ = strings.Cut(target, "#")
	linkPath = strings.TrimSpace(linkPath)
	if syntax != models.SyntaxWiki {
		if decoded, err := url.PathUnescape(linkPath); err == nil {
			linkPath = decoded
		}
	}
	return linkPath, subpath
}

// fencedLines marks lines inside fenced code blocks, fence lines included.
func fencedLines(lines []string) []bool {
	fenced := make([]bool, len(lines))
	var open string
	for i, line := range lines {
		m := fenceRegex.FindStringSubmatch(line)
		switch {
		case open == "" && m != nil:
			open = m[1]
			fenced[i] = true
		case open != "":
			fenced[i] = true
			if m != nil && m[1] == open {
				open = ""
			}
		}
	}
	return fenced
}

// lineIndex converts byte offsets to line/column positions.
type lineIndex []int

func newLineIndex(text string) lineIndex {
	starts := lineIndex{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (li lineIndex) position(offset int) (line, col int) {
	line = sort.Search(len(li), func(i int) bool { return li[i] > offset }) - 1
	return line, offset - li[line]
}

func (li lineIndex) span(start, end int) models.Span {
	sl, sc := li.position(start)
	el, ec := li.position(end)
	return models.Span{StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec}
}
