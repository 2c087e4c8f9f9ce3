// Package vault resolves links and stores documents in a directory tree of
// markdown notes and media files.
package vault

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/h2non/filetype"
	"github.com/maruel/natural"
	"go.uber.org/zap"
)

// sniffLen is the number of header bytes filetype needs to match a type.
const sniffLen = 262

// Vault is a directory of documents and media. Paths handed out and accepted
// by a Vault are slash-separated and relative to its root.
type Vault struct {
	root       string
	extensions map[string]bool
	sniff      bool
	log        *zap.Logger

	mu    sync.Mutex
	index map[string][]string // base name -> paths
}

// New opens the vault rooted at root. extensions lists additional media
// file extensions (with or without the leading dot); when sniff is set,
// files with unknown extensions are recognised by their header.
func New(root string, extensions []string, sniff bool, log *zap.Logger) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s is not a directory", abs)
	}

	if log == nil {
		log = zap.NewNop()
	}
	v := &Vault{
		root:       abs,
		extensions: make(map[string]bool, len(extensions)),
		sniff:      sniff,
		log:        log.Named("vault"),
	}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			v.extensions[ext] = true
		}
	}
	return v, nil
}

// Root returns the absolute vault root.
func (v *Vault) Root() string {
	return v.root
}

// Abs converts a vault path to an absolute file system path.
func (v *Vault) Abs(p string) string {
	return filepath.Join(v.root, filepath.FromSlash(p))
}

// Rel converts a file system path to a vault path. It fails for paths
// outside the vault.
func (v *Vault) Rel(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(v.root, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if !inside(rel) {
		return "", fmt.Errorf("%s is outside the vault", p)
	}
	return rel, nil
}

// Resolve implements locator.Resolver. The link is tried relative to the
// source document, then relative to the vault root, and finally, for a bare
// file name, against every file in the vault with that name. URLs never
// resolve.
func (v *Vault) Resolve(linkPath, sourcePath string) (string, bool) {
	if linkPath == "" || isURL(linkPath) {
		return "", false
	}

	link := strings.ReplaceAll(linkPath, "\\", "/")
	var candidates []string
	if strings.HasPrefix(link, "/") {
		candidates = append(candidates, path.Clean(strings.TrimLeft(link, "/")))
	} else {
		candidates = append(candidates, path.Join(path.Dir(sourcePath), link), path.Clean(link))
	}
	for _, c := range candidates {
		if inside(c) && v.isFile(c) {
			return c, true
		}
	}

	if strings.Contains(link, "/") {
		return "", false
	}
	matches := v.lookupBase(link)
	if len(matches) == 0 {
		return "", false
	}
	if len(matches) > 1 {
		v.log.Debug("Ambiguous link, using first match", zap.String("link", linkPath), zap.Strings("matches", matches))
	}
	return matches[0], true
}

// IsMedia implements locator.Resolver. A resource is media if its extension
// is configured, if filetype maps its extension to a video MIME type, or,
// with sniffing enabled, if its header is recognised as video.
func (v *Vault) IsMedia(resourcePath string) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(resourcePath), "."))
	if ext == "" {
		return v.sniff && v.sniffVideo(resourcePath)
	}
	if v.extensions[ext] {
		return true
	}
	if filetype.GetType(ext).MIME.Type == "video" {
		return true
	}
	return v.sniff && v.sniffVideo(resourcePath)
}

func (v *Vault) sniffVideo(resourcePath string) bool {
	f, err := os.Open(v.Abs(resourcePath))
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false
	}
	return filetype.IsVideo(head[:n])
}

// Documents lists the markdown documents of the vault in natural order.
// Hidden directories are skipped.
func (v *Vault) Documents() ([]string, error) {
	var docs []string
	err := v.walk(func(rel string) {
		if strings.EqualFold(path.Ext(rel), ".md") {
			docs = append(docs, rel)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Sort(natural.StringSlice(docs))
	return docs, nil
}

// Refresh drops the file name index so that new files are found.
func (v *Vault) Refresh() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.index = nil
}

func (v *Vault) lookupBase(name string) []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.index == nil {
		index := make(map[string][]string)
		err := v.walk(func(rel string) {
			base := path.Base(rel)
			index[base] = append(index[base], rel)
		})
		if err != nil {
			v.log.Warn("Failed to index vault", zap.Error(err))
			return nil
		}
		for _, paths := range index {
			sort.Sort(natural.StringSlice(paths))
		}
		v.index = index
	}
	return v.index[name]
}

func (v *Vault) walk(fn func(rel string)) error {
	return filepath.WalkDir(v.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != v.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(v.root, p)
		if err != nil {
			return err
		}
		fn(filepath.ToSlash(rel))
		return nil
	})
}

func (v *Vault) isFile(rel string) bool {
	info, err := os.Stat(v.Abs(rel))
	return err == nil && info.Mode().IsRegular()
}

func inside(rel string) bool {
	return rel != ".." && !strings.HasPrefix(rel, "../") && !path.IsAbs(rel)
}

func isURL(link string) bool {
	u, err := url.Parse(link)
	// single letters are drive names, not schemes
	return err == nil && len(u.Scheme) > 1
}
