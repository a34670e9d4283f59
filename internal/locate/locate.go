// Package locate resolves mapping and reference basenames to on-disk
// paths, per the filesystem layout convention: two roots, overridable
// by CRDS_MAPPATH and CRDS_REFPATH, each holding files under
// "<observatory>/<basename>".
package locate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/stsci-crds/crds-go/internal/mapping"
)

const (
	defaultMapPath = "/grp/crds/cache/mappings"
	defaultRefPath = "/grp/crds/cache/references"
)

// Locator implements cache.FileSource and supplies the disk-side half
// of dev-mode cache invalidation (cache.Watcher's pathToBasename).
type Locator struct {
	MapPath string
	RefPath string
}

// New builds a Locator from CRDS_MAPPATH/CRDS_REFPATH, falling back to
// the conventional cache locations when unset.
func New() *Locator {
	return &Locator{
		MapPath: envOr("CRDS_MAPPATH", defaultMapPath),
		RefPath: envOr("CRDS_REFPATH", defaultRefPath),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// mappingExtensions are the three tier extensions the filesystem layout names;
// anything else is a reference file, rooted at RefPath instead.
var mappingExtensions = map[string]bool{".pmap": true, ".imap": true, ".rmap": true}

func (l *Locator) root(basename string) string {
	if mappingExtensions[filepath.Ext(basename)] {
		return l.MapPath
	}
	return l.RefPath
}

// Path returns the absolute path basename would live at.
func (l *Locator) Path(basename string) string {
	obs, _, _, _ := mapping.ParseBasename(basename)
	return filepath.Join(l.root(basename), obs, basename)
}

// ReadMapping implements cache.FileSource.
func (l *Locator) ReadMapping(basename string) (string, error) {
	b, err := os.ReadFile(l.Path(basename))
	if err != nil {
		return "", fmt.Errorf("locate: %w", err)
	}
	return string(b), nil
}

// Basename reverses Path: given an absolute path under MapPath or
// RefPath, it returns the basename the cache keys that file by. Used by
// cache.Watcher to translate a raw fsnotify event path back to a cache
// key.
func (l *Locator) Basename(path string) (string, bool) {
	for _, root := range []string{l.MapPath, l.RefPath} {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) == 2 {
			return parts[1], true
		}
	}
	return "", false
}

// Glob returns basenames under observatory's mapping root matching
// pattern (e.g. "*.rmap"), for enumerating what actually exists on disk.
func (l *Locator) Glob(observatory, pattern string) ([]string, error) {
	return globRoot(l.MapPath, observatory, pattern)
}

// GlobReferences returns basenames under observatory's reference root
// matching pattern (e.g. "*.fits"). Paired with Pipeline.ReferenceNames,
// this lets a caller find reference files present on disk that no
// mapping in the pipeline declares ("orphaned" references), the
// complement of MissingReferences's declared-but-absent check.
func (l *Locator) GlobReferences(observatory, pattern string) ([]string, error) {
	return globRoot(l.RefPath, observatory, pattern)
}

func globRoot(root, observatory, pattern string) ([]string, error) {
	fsys := os.DirFS(filepath.Join(root, observatory))
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("locate: glob %s: %w", pattern, err)
	}
	return matches, nil
}

// Exists reports whether basename is present on disk, the exists
// predicate mapping.Pipeline/Instrument's MissingMappings/
// MissingReferences expect.
func (l *Locator) Exists(basename string) bool {
	_, err := os.Stat(l.Path(basename))
	return err == nil
}
