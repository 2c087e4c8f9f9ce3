package locator

import (
	"sync"

	"mediafrag/models"
)

// Cache memoizes the last scan of a view. A scan is reused only while both
// the view and the exact document text are unchanged.
type Cache struct {
	scanner *Scanner

	mu          sync.Mutex
	valid       bool
	viewID      string
	sourcePath  string
	text        string
	occurrences []models.Occurrence
}

// NewCache wraps scanner with a single-entry cache.
func NewCache(scanner *Scanner) *Cache {
	return &Cache{scanner: scanner}
}

// Scan returns the occurrences of text, scanning only on a cache miss.
func (c *Cache) Scan(viewID, sourcePath, text string) []models.Occurrence {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid || c.viewID != viewID || c.sourcePath != sourcePath || c.text != text {
		c.occurrences = c.scanner.Scan(sourcePath, text)
		c.viewID, c.sourcePath, c.text = viewID, sourcePath, text
		c.valid = true
	}

	out := make([]models.Occurrence, len(c.occurrences))
	copy(out, c.occurrences)
	return out
}

// Invalidate drops the cached scan. Hosts call it when the active view
// changes or a document is modified behind the cache's back.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.occurrences = nil
	c.text = ""
}
