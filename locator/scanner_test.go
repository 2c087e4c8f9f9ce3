package locator

import (
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mediafrag/models"
)

// fakeResolver resolves every link relative to the vault root and treats
// .mp4/.webm/.mov as media.
type fakeResolver struct {
	missing map[string]bool
}

func (r fakeResolver) Resolve(linkPath, _ string) (string, bool) {
	if r.missing[linkPath] || strings.Contains(linkPath, "://") {
		return "", false
	}
	return "media/" + path.Base(linkPath), true
}

func (r fakeResolver) IsMedia(resourcePath string) bool {
	switch path.Ext(resourcePath) {
	case ".mp4", ".webm", ".mov":
		return true
	}
	return false
}

func newTestScanner(t *testing.T) *Scanner {
	return NewScanner(fakeResolver{missing: map[string]bool{"gone.mp4": true}}, zaptest.NewLogger(t))
}

func TestScanSyntaxes(t *testing.T) {
	text := strings.Join([]string{
		"# Notes",
		"![[clip.mp4#t=10,20|Intro]] and [[clip.mp4]]",
		"![poster](<my clip.webm#t=1:00>) [doc](notes.md)",
		`<video controls src="talk.mov#t=5"></video>`,
	}, "\n")

	occs := newTestScanner(t).Scan("notes/day.md", text)
	require.Len(t, occs, 4)

	assert.Equal(t, models.SyntaxWiki, occs[0].Syntax)
	assert.True(t, occs[0].Embedded)
	assert.Equal(t, "clip.mp4", occs[0].LinkPath)
	assert.Equal(t, "media/clip.mp4", occs[0].ResourcePath)
	assert.Equal(t, "t=10,20", occs[0].Subpath)
	assert.Equal(t, "Intro", occs[0].Alias)
	require.NotNil(t, occs[0].Fragment)
	assert.Equal(t, models.Seconds(10), occs[0].Fragment.Start)
	assert.Equal(t, models.Span{StartLine: 1, StartCol: 0, EndLine: 1, EndCol: 27}, occs[0].Span)

	assert.Equal(t, models.SyntaxWiki, occs[1].Syntax)
	assert.False(t, occs[1].Embedded)
	assert.Nil(t, occs[1].Fragment)

	assert.Equal(t, models.SyntaxMarkdown, occs[2].Syntax)
	assert.Equal(t, "my clip.webm", occs[2].LinkPath)
	assert.Equal(t, "poster", occs[2].Alias)
	require.NotNil(t, occs[2].Fragment)
	assert.Equal(t, models.Seconds(60), occs[2].Fragment.Start)

	assert.Equal(t, models.SyntaxHTML, occs[3].Syntax)
	assert.True(t, occs[3].Embedded)
	assert.Equal(t, "talk.mov", occs[3].LinkPath)
	assert.Equal(t, "t=5", occs[3].Subpath)
	assert.Equal(t, 3, occs[3].Span.StartLine)
	assert.Equal(t, 0, occs[3].Span.StartCol)
	assert.Equal(t, len(`<video controls src="talk.mov#t=5">`), occs[3].Span.EndCol)

	for i, o := range occs {
		assert.Equal(t, i, o.Index)
	}
}

func TestScanMarkdownTitles(t *testing.T) {
	text := `![clip](clip.mp4#t=1,5 "My clip") [b](b.mp4 'B') [c](c.mp4 "unterminated)`
	occs := newTestScanner(t).Scan("x.md", text)

	require.Len(t, occs, 2)
	assert.Equal(t, "clip.mp4", occs[0].LinkPath)
	assert.Equal(t, "t=1,5", occs[0].Subpath)
	assert.Equal(t, "clip", occs[0].Alias)
	assert.Equal(t, len(`![clip](clip.mp4#t=1,5 "My clip")`), occs[0].Span.EndCol)
	assert.Equal(t, "b.mp4", occs[1].LinkPath)
}

func TestScanVideoSrcLookAlike(t *testing.T) {
	text := `<video title="a src=x.mp4" src="clip.mp4#t=1,5" controls>`
	occs := newTestScanner(t).Scan("x.md", text)

	require.Len(t, occs, 1)
	assert.Equal(t, "clip.mp4", occs[0].LinkPath)
	assert.Equal(t, "t=1,5", occs[0].Subpath)
}

func TestScanDocumentOrder(t *testing.T) {
	text := "[b](b.mp4) ![[a.mp4]] <video src=\"c.mp4\">\n![[d.mp4]]"
	occs := newTestScanner(t).Scan("x.md", text)

	var got []string
	for _, o := range occs {
		got = append(got, o.LinkPath)
	}
	assert.Equal(t, []string{"b.mp4", "a.mp4", "c.mp4", "d.mp4"}, got)
}

func TestScanSkipsUnresolvedAndNonMedia(t *testing.T) {
	text := "![[gone.mp4]] ![[image.png]] ![x](https://example.com/v.mp4) ![[ok.mp4]]"
	occs := newTestScanner(t).Scan("x.md", text)

	require.Len(t, occs, 1)
	assert.Equal(t, "ok.mp4", occs[0].LinkPath)
	assert.Equal(t, 0, occs[0].Index)
}

func TestScanMultiLineVideoTag(t *testing.T) {
	text := "intro\n<video\n  controls\n  src='clip.mp4#t=1,2'>\n</video>"
	occs := newTestScanner(t).Scan("x.md", text)

	require.Len(t, occs, 1)
	assert.Equal(t, models.Span{StartLine: 1, StartCol: 0, EndLine: 3, EndCol: len("  src='clip.mp4#t=1,2'>")}, occs[0].Span)
	require.NotNil(t, occs[0].Fragment)
	assert.Equal(t, models.Seconds(2), occs[0].Fragment.End)
}

func TestScanIgnoresFencedCode(t *testing.T) {
	text := "![[a.mp4]]\n```\n![[b.mp4]]\n<video src=\"c.mp4\">\n```\n![[d.mp4]]"
	occs := newTestScanner(t).Scan("x.md", text)

	require.Len(t, occs, 2)
	assert.Equal(t, "a.mp4", occs[0].LinkPath)
	assert.Equal(t, "d.mp4", occs[1].LinkPath)
}

func TestOccurrenceIDs(t *testing.T) {
	s := newTestScanner(t)
	first := s.Scan("x.md", "![[a.mp4]] ![[a.mp4#t=5]] ![[b.mp4]]")
	require.Len(t, first, 3)
	assert.NotEqual(t, first[0].ID, first[1].ID, "repeated resource must get distinct ids")

	// Editing a fragment or inserting text keeps the ids stable.
	second := s.Scan("x.md", "intro\n![[a.mp4#t=1]] ![[a.mp4#t=5]] ![[b.mp4]]")
	require.Len(t, second, 3)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}

	other := s.Scan("y.md", "![[a.mp4]]")
	assert.NotEqual(t, first[0].ID, other[0].ID)

	o, ok := Lookup(second, first[2].ID)
	require.True(t, ok)
	assert.Equal(t, "b.mp4", o.LinkPath)
	_, ok = Lookup(second, "missing")
	assert.False(t, ok)
}

func TestCache(t *testing.T) {
	calls := 0
	resolver := ResolverFunc(func(linkPath, _ string) (string, bool) {
		calls++
		return linkPath, true
	})
	c := NewCache(NewScanner(resolver, nil))

	text := "![[a.mp4]]"
	require.Len(t, c.Scan("view-1", "x.md", text), 1)
	require.Len(t, c.Scan("view-1", "x.md", text), 1)
	assert.Equal(t, 1, calls, "identical content must hit the cache")

	c.Scan("view-1", "x.md", text+" ![[b.mp4]]")
	assert.Equal(t, 3, calls)

	c.Scan("view-2", "x.md", text+" ![[b.mp4]]")
	assert.Equal(t, 5, calls, "another view must miss")

	c.Invalidate()
	c.Scan("view-2", "x.md", text+" ![[b.mp4]]")
	assert.Equal(t, 7, calls)
}
