package rewriter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"mediafrag/grammar"
	"mediafrag/models"
)

// ErrBusy is returned when a rewrite of the same document is already in
// flight. The request is dropped, not queued.
var ErrBusy = errors.New("document rewrite already in progress")

// Store gives access to document contents.
type Store interface {
	Read(ctx context.Context, path string) (string, error)
	Write(ctx context.Context, path, text string) error
}

// SpanStore is implemented by stores that can replace a span in place.
// When available it is preferred over writing the whole document.
type SpanStore interface {
	ReplaceSpan(ctx context.Context, path string, span models.Span, text string) error
}

// Rewriter applies fragment edits to documents, one rewrite per document at
// a time.
type Rewriter struct {
	store Store
	opts  grammar.FormatOptions
	log   *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New creates a rewriter that formats fragments with opts.
func New(store Store, opts grammar.FormatOptions, log *zap.Logger) *Rewriter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rewriter{
		store:    store,
		opts:     opts,
		log:      log.Named("rewriter"),
		inFlight: make(map[string]struct{}),
	}
}

// Apply rewrites occ in the document at path so that it carries frag.
//
// The document is re-read and the occurrence verified against its current
// text before anything is written. Failures are returned wrapped; live
// playback state is never rolled back by the caller on account of them.
func (r *Rewriter) Apply(ctx context.Context, path string, occ models.Occurrence, frag *models.Fragment) error {
	if !r.acquire(path) {
		r.log.Debug("Dropping rewrite, document busy", zap.String("path", path), zap.Int("index", occ.Index))
		return fmt.Errorf("rewrite %s: %w", path, ErrBusy)
	}
	defer r.release(path)

	text, err := r.store.Read(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if ss, ok := r.store.(SpanStore); ok {
		lines := strings.Split(text, "\n")
		current, err := extract(lines, occ.Span)
		if err != nil {
			return fmt.Errorf("rewrite %s: %w", path, err)
		}
		replacement, err := RewriteLink(current, occ, frag, r.opts)
		if err != nil {
			return fmt.Errorf("rewrite %s: %w", path, err)
		}
		if err := ss.ReplaceSpan(ctx, path, occ.Span, replacement); err != nil {
			return fmt.Errorf("failed to update %s: %w", path, err)
		}
		r.logApplied(path, occ, replacement)
		return nil
	}

	updated, err := Rewrite(text, occ, frag, r.opts)
	if err != nil {
		return fmt.Errorf("rewrite %s: %w", path, err)
	}
	if updated == text {
		return nil
	}
	if err := r.store.Write(ctx, path, updated); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	r.logApplied(path, occ, "")
	return nil
}

func (r *Rewriter) logApplied(path string, occ models.Occurrence, replacement string) {
	if ce := r.log.Check(zap.DebugLevel, "Rewrote occurrence"); ce != nil {
		ce.Write(
			zap.String("path", path),
			zap.Int("index", occ.Index),
			zap.Stringer("syntax", occ.Syntax),
			zap.Stringer("span", occ.Span),
			zap.String("replacement", replacement),
		)
	}
}

func (r *Rewriter) acquire(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inFlight[path]; busy {
		return false
	}
	r.inFlight[path] = struct{}{}
	return true
}

func (r *Rewriter) release(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, path)
}
