package rewriter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mediafrag/grammar"
	"mediafrag/locator"
	"mediafrag/models"
)

type mediaResolver struct{}

func (mediaResolver) Resolve(linkPath, _ string) (string, bool) { return linkPath, true }
func (mediaResolver) IsMedia(string) bool { return true }

// locate scans text and returns its n-th occurrence.
func locate(t *testing.T, text string, n int) models.Occurrence {
	t.Helper()
	occs := locator.NewScanner(mediaResolver{}, nil).Scan("doc.md", text)
	require.Greater(t, len(occs), n, "scan of %q", text)
	return occs[n]
}

func TestRewrite(t *testing.T) {
	opts := grammar.DefaultFormatOptions()
	rangeFrag := &models.Fragment{Start: models.Seconds(10), End: models.Seconds(20)}

	tests := []struct {
		name     string
		text     string
		index    int
		frag     *models.Fragment
		expected string
	}{
		{"wiki add fragment", "see ![[clip.mp4]] here", 0, rangeFrag, "see ![[clip.mp4#t=0:10,0:20]] here"},
		{"wiki keep alias", "![[clip.mp4#t=1,2|My clip]]", 0, rangeFrag, "![[clip.mp4#t=0:10,0:20|My clip]]"},
		{"wiki keep other params", "[[clip.mp4#a=1&t=1&b=2]]", 0, rangeFrag, "[[clip.mp4#a=1&t=0:10,0:20&b=2]]"},
		{"wiki clear", "![[clip.mp4#t=1,2]]", 0, nil, "![[clip.mp4]]"},
		{"wiki second occurrence", "![[a.mp4]] ![[a.mp4]]", 1, rangeFrag, "![[a.mp4]] ![[a.mp4#t=0:10,0:20]]"},
		{"markdown", "![alt](clip.mp4#t=5)", 0, rangeFrag, "![alt](clip.mp4#t=0:10,0:20)"},
		{"markdown encoded path kept", "[x](my%20clip.mp4)", 0, rangeFrag, "[x](my%20clip.mp4#t=0:10,0:20)"},
		{"markdown angle brackets", "![a](<my clip.mp4#t=5>)", 0, nil, "![a](<my clip.mp4>)"},
		{"markdown keep title", `![clip](clip.mp4#t=1,5 "My clip")`, 0, rangeFrag, `![clip](clip.mp4#t=0:10,0:20 "My clip")`},
		{"markdown keep single quoted title", `[x](clip.mp4 'a (b)')`, 0, nil, `[x](clip.mp4 'a (b)')`},
		{"raw preserved", "![[clip.mp4]]", 0, &models.Fragment{Start: models.Seconds(90), StartRaw: "1:30", End: models.OpenEnd(), EndRaw: "end"}, "![[clip.mp4#t=1:30,end]]"},
		{
			"html only src changes",
			`<video class="x" src='clip.mp4#t=1' controls></video>`, 0, rangeFrag,
			`<video class="x" src='clip.mp4#t=0:10,0:20' controls></video>`,
		},
		{
			"html unquoted gains quotes for spaces",
			`<video src=clip.mp4>`, 0, &models.Fragment{Start: models.Seconds(60), StartRaw: "1 minute"},
			`<video src="clip.mp4#t=1 minute">`,
		},
		{
			"html src look-alike in another attribute",
			`<video title="a src=x" src="clip.mp4#t=1,5" controls>`, 0, rangeFrag,
			`<video title="a src=x" src="clip.mp4#t=0:10,0:20" controls>`,
		},
		{
			"html upper case",
			`<VIDEO Controls SRC="clip.mp4">`, 0, rangeFrag,
			`<VIDEO Controls SRC="clip.mp4#t=0:10,0:20">`,
		},
		{
			"html multi line",
			"before\n<video\n  controls\n  src=\"clip.mp4#t=1,2\">\n</video>\nafter", 0, rangeFrag,
			"before\n<video\n  controls\n  src=\"clip.mp4#t=0:10,0:20\">\n</video>\nafter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occ := locate(t, tt.text, tt.index)
			got, err := Rewrite(tt.text, occ, tt.frag, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRewriteOccurrenceMoved(t *testing.T) {
	text := "![[clip.mp4]]"
	occ := locate(t, text, 0)

	tests := map[string]string{
		"shifted":    "x![[clip.mp4]]",
		"renamed":    "![[other.mp4]]",
		"truncated":  "![[clip",
		"empty":      "",
		"other line": "\n![[clip.mp4]]",
	}
	for name, changed := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Rewrite(changed, occ, nil, grammar.DefaultFormatOptions())
			assert.ErrorIs(t, err, ErrOccurrenceMoved)
		})
	}
}

func TestAttrValueRange(t *testing.T) {
	tests := []struct {
		tag   string
		value string
		ok    bool
	}{
		{`<video src="a.mp4">`, `"a.mp4"`, true},
		{`<video controls src=a.mp4>`, `a.mp4`, true},
		{`<video src = 'a.mp4' >`, `'a.mp4'`, true},
		{`<video title="x src=y" src="a.mp4">`, `"a.mp4"`, true},
		{`<video data-src="b.mp4" src="a.mp4">`, `"a.mp4"`, true},
		{`<video src="a.mp4" src="b.mp4">`, `"a.mp4"`, true},
		{`<video/src="a.mp4">`, `"a.mp4"`, true},
		{`<video title="src=a.mp4">`, "", false},
		{`<video src>`, "", false},
		{`<video src="a.mp4`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			start, end, ok := attrValueRange(tt.tag, "src")
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.value, tt.tag[start:end])
			}
		})
	}
}

// memStore is an in-memory Store. When gate is set, Read blocks until it is
// closed.
type memStore struct {
	mu      sync.Mutex
	docs    map[string]string
	writes  int
	entered chan struct{}
	gate    chan struct{}
}

func (s *memStore) Read(_ context.Context, path string) (string, error) {
	if s.gate != nil {
		s.entered <- struct{}{}
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[path]
	if !ok {
		return "", errors.New("not found")
	}
	return text, nil
}

func (s *memStore) Write(_ context.Context, path, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = text
	s.writes++
	return nil
}

type spanStore struct {
	*memStore
	replaced []string
}

func (s *spanStore) ReplaceSpan(_ context.Context, _ string, span models.Span, text string) error {
	s.replaced = append(s.replaced, span.String()+" "+text)
	return nil
}

func TestApply(t *testing.T) {
	text := "# Title\n![[clip.mp4#t=1]]\n"
	store := &memStore{docs: map[string]string{"doc.md": text}}
	r := New(store, grammar.DefaultFormatOptions(), zaptest.NewLogger(t))

	occ := locate(t, text, 0)
	err := r.Apply(context.Background(), "doc.md", occ, &models.Fragment{Start: models.Seconds(5), End: models.Seconds(7)})
	require.NoError(t, err)
	assert.Equal(t, "# Title\n![[clip.mp4#t=0:05,0:07]]\n", store.docs["doc.md"])
	assert.Equal(t, 1, store.writes)

	// The stale occurrence no longer matches the rewritten line.
	err = r.Apply(context.Background(), "doc.md", occ, nil)
	require.ErrorIs(t, err, ErrOccurrenceMoved)

	err = r.Apply(context.Background(), "missing.md", occ, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "missing.md"))
}

func TestApplyUnchangedSkipsWrite(t *testing.T) {
	text := "![[clip.mp4#t=5]]"
	store := &memStore{docs: map[string]string{"doc.md": text}}
	r := New(store, grammar.DefaultFormatOptions(), nil)

	occ := locate(t, text, 0)
	require.NoError(t, r.Apply(context.Background(), "doc.md", occ, occ.Fragment))
	assert.Equal(t, 0, store.writes)
}

func TestApplySpanStore(t *testing.T) {
	text := "a\n![x](clip.mp4) b"
	store := &spanStore{memStore: &memStore{docs: map[string]string{"doc.md": text}}}
	r := New(store, grammar.DefaultFormatOptions(), nil)

	occ := locate(t, text, 0)
	require.NoError(t, r.Apply(context.Background(), "doc.md", occ, &models.Fragment{Start: models.Seconds(3)}))

	assert.Equal(t, []string{"2:1-2:15 ![x](clip.mp4#t=0:03)"}, store.replaced)
	assert.Equal(t, 0, store.writes)
	assert.Equal(t, text, store.docs["doc.md"])
}

func TestApplyDropsConcurrentRewrite(t *testing.T) {
	text := "![[clip.mp4]]"
	store := &memStore{
		docs:    map[string]string{"doc.md": text},
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
	r := New(store, grammar.DefaultFormatOptions(), zaptest.NewLogger(t))
	occ := locate(t, text, 0)

	done := make(chan error, 1)
	go func() {
		done <- r.Apply(context.Background(), "doc.md", occ, &models.Fragment{Start: models.Seconds(1)})
	}()
	<-store.entered

	err := r.Apply(context.Background(), "doc.md", occ, &models.Fragment{Start: models.Seconds(2)})
	assert.ErrorIs(t, err, ErrBusy)

	close(store.gate)
	require.NoError(t, <-done)
	assert.Equal(t, "![[clip.mp4#t=0:01]]", store.docs["doc.md"])

	// Once released the document accepts rewrites again.
	store.gate = nil
	occ = locate(t, store.docs["doc.md"], 0)
	require.NoError(t, r.Apply(context.Background(), "doc.md", occ, nil))
	assert.Equal(t, text, store.docs["doc.md"])
}
