package pathsafe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoot(t *testing.T) (*Root, string) {
	t.Helper()
	base := t.TempDir()
	rootDir := filepath.Join(base, "root")
	require.NoError(t, os.MkdirAll(filepath.Join(rootDir, "p1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "p1", "a.pdf"), []byte("%PDF-1.4"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(base, "secret.pdf"), []byte("%PDF-1.4"), 0o600))
	root, err := NewRoot(rootDir)
	require.NoError(t, err)
	return root, base
}

func TestResolve(t *testing.T) {
	root, base := newTestRoot(t)

	require.NoError(t, os.Symlink(filepath.Join(base, "secret.pdf"), filepath.Join(root.Dir(), "p1", "link.pdf")))
	require.NoError(t, os.Symlink(base, filepath.Join(root.Dir(), "escape")))
	require.NoError(t, os.Symlink(filepath.Join(root.Dir(), "p1", "a.pdf"), filepath.Join(root.Dir(), "inner.pdf")))

	tests := []struct {
		name    string
		path    string
		inside  bool
		wantRel string
	}{
		{name: "absolute descendant", path: filepath.Join(root.Dir(), "p1", "a.pdf"), inside: true, wantRel: "p1/a.pdf"},
		{name: "relative descendant", path: "p1/a.pdf", inside: true, wantRel: "p1/a.pdf"},
		{name: "missing file inside", path: filepath.Join(root.Dir(), "p1", "gone.pdf"), inside: true, wantRel: "p1/gone.pdf"},
		{name: "missing directory inside", path: filepath.Join(root.Dir(), "p2", "x", "gone.pdf"), inside: true, wantRel: "p2/x/gone.pdf"},
		{name: "symlink staying inside", path: filepath.Join(root.Dir(), "inner.pdf"), inside: true, wantRel: "p1/a.pdf"},
		{name: "dot-dot traversal", path: filepath.Join(root.Dir(), "p1", "..", "..", "secret.pdf"), inside: false},
		{name: "relative traversal", path: "../secret.pdf", inside: false},
		{name: "outside absolute", path: filepath.Join(base, "secret.pdf"), inside: false},
		{name: "file symlink escape", path: filepath.Join(root.Dir(), "p1", "link.pdf"), inside: false},
		{name: "directory symlink escape", path: filepath.Join(root.Dir(), "escape", "secret.pdf"), inside: false},
		{name: "sibling with shared prefix", path: root.Dir() + "-other/a.pdf", inside: false},
		{name: "empty", path: "", inside: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := root.Resolve(tt.path)
			if !tt.inside {
				require.ErrorIs(t, err, ErrOutsideRoot)
				assert.False(t, root.Contains(tt.path))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(root.Dir(), filepath.FromSlash(tt.wantRel)), got)
			assert.True(t, root.Contains(tt.path))
		})
	}
}

func TestNewRoot(t *testing.T) {
	_, err := NewRoot("")
	require.Error(t, err)

	_, err = NewRoot(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	_, err = NewRoot(file)
	require.Error(t, err)
}
