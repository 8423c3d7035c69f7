package source

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
)

// FileSet is a read handle on a materialized tree. Callers must Close it
// once they are done reading so the tree can be synchronized again.
type FileSet struct {
	root    string
	release func()
	once    sync.Once
}

func newFileSet(root string, release func()) *FileSet {
	return &FileSet{root: root, release: release}
}

// Root returns the local directory backing the file set.
func (f *FileSet) Root() string {
	return f.root
}

// Glob returns the names of the regular files at the top level of Root
// that match pattern, in lexical order. Subdirectories and symlinks are
// never matched.
func (f *FileSet) Glob(pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrSourceCorrupt, f.root, err)
	}

	var matches []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if ok, _ := path.Match(pattern, entry.Name()); ok {
			matches = append(matches, entry.Name())
		}
	}
	return matches, nil
}

// ReadFile reads a file by its slash-separated path relative to Root.
// Paths and symlinks resolving outside Root are refused.
func (f *FileSet) ReadFile(rel string) ([]byte, error) {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return nil, fmt.Errorf("read %q: path escapes %s", rel, f.root)
	}

	root, err := os.OpenRoot(f.root)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.root, err)
	}
	defer root.Close()

	return root.ReadFile(local)
}

// Close releases the handle. It is safe to call more than once.
func (f *FileSet) Close() {
	f.once.Do(func() {
		if f.release != nil {
			f.release()
		}
	})
}
