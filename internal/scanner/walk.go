package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoInputs is returned when a scan is started without any path or file.
var ErrNoInputs = errors.New("no inputs to scan")

// target is a discovered file on disk.
type target struct {
	path string
	// rel is the slash separated path used for glob matching.
	rel string
}

// filter decides which files are analyzed.
type filter struct {
	extensions map[string]bool
	include    []string
	exclude    []string
	skipDirs   map[string]bool
	decompress bool
}

func newFilter(cfg Config) (*filter, error) {
	for _, pattern := range append(append([]string{}, cfg.Include...), cfg.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}

	f := &filter{
		extensions: make(map[string]bool, len(cfg.Extensions)),
		include:    cfg.Include,
		exclude:    cfg.Exclude,
		skipDirs:   make(map[string]bool, len(cfg.SkipDirs)),
		decompress: cfg.Decompress,
	}
	for _, ext := range cfg.Extensions {
		f.extensions[strings.ToLower(ext)] = true
	}
	for _, dir := range cfg.SkipDirs {
		f.skipDirs[dir] = true
	}
	return f, nil
}

// accept reports whether a file with the slash separated path rel should be analyzed.
func (f *filter) accept(rel string) bool {
	name := rel
	if f.decompress {
		name, _ = splitCompressed(rel)
	}
	if !f.extensions[strings.ToLower(filepath.Ext(name))] {
		return false
	}
	return f.matchGlobs(rel)
}

func (f *filter) matchGlobs(rel string) bool {
	if len(f.include) > 0 {
		included := false
		for _, pattern := range f.include {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}
	for _, pattern := range f.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	return true
}

// skipDir reports whether a directory below the walk root is pruned.
func (f *filter) skipDir(name string) bool {
	return f.skipDirs[name] || (strings.HasPrefix(name, ".") && name != "." && name != "..")
}

// discover expands the inputs into a sorted, de-duplicated list of targets.
// Files named explicitly bypass the extension filter but not the globs.
func (f *filter) discover(paths []string) ([]target, error) {
	if len(paths) == 0 {
		return nil, ErrNoInputs
	}

	seen := make(map[string]bool)
	var targets []target
	add := func(t target) {
		key := filepath.Clean(t.path)
		if seen[key] {
			return
		}
		seen[key] = true
		targets = append(targets, t)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}

		if !info.IsDir() {
			rel := filepath.ToSlash(filepath.Base(root))
			if f.matchGlobs(rel) {
				add(target{path: root, rel: rel})
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && f.skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if f.accept(rel) {
				add(target{path: path, rel: rel})
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].path < targets[j].path })
	return targets, nil
}
