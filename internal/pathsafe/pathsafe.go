// Package pathsafe confines file access to a single configured root directory.
package pathsafe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a path resolves outside the root, lexically or through a symlink.
var ErrOutsideRoot = errors.New("path escapes root directory")

// Root is an absolute directory with symlinks already resolved.
type Root struct {
	dir string
}

// NewRoot resolves dir. The directory must exist.
func NewRoot(dir string) (*Root, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("root directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", resolved)
	}
	return &Root{dir: resolved}, nil
}

// Dir returns the resolved root directory.
func (r *Root) Dir() string { return r.dir }

// Resolve returns the real location of p, which may be relative to the root.
// Symlinks are followed as far as the path exists; a path whose real location
// is not inside the root yields ErrOutsideRoot. A missing file is not an error.
func (r *Root) Resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("%w: empty path", ErrOutsideRoot)
	}
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("%w: invalid path", ErrOutsideRoot)
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.dir, p)
	}
	clean := filepath.Clean(p)

	resolved, err := evalExisting(clean)
	if err != nil {
		return "", err
	}
	if !r.contains(resolved) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}
	return resolved, nil
}

// Contains reports whether p resolves inside the root.
func (r *Root) Contains(p string) bool {
	_, err := r.Resolve(p)
	return err == nil
}

func (r *Root) contains(resolved string) bool {
	rel, err := filepath.Rel(r.dir, resolved)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// evalExisting resolves symlinks in the longest existing prefix of p and
// re-appends the missing tail.
func evalExisting(p string) (string, error) {
	var tail []string
	cur := p
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("resolve %s: %w", p, err)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		tail = append(tail, filepath.Base(cur))
		cur = parent
	}
}
