package workspace_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"mplxls/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root string, rel string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("fn main() {}\n"), 0o644))
	return path
}

func rel(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(r))
	}
	return out
}

var defaultOpts = workspace.Options{
	MaxDepth:  3,
	Extension: ".mplx",
	Exclude:   []string{".git", "node_modules", "build", ".vs", ".vscode"},
}

func TestScanDepthAndExtension(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "main.mplx")
	touch(t, root, "notes.txt")
	touch(t, root, "a/one.mplx")
	touch(t, root, "a/b/two.mplx")
	touch(t, root, "a/b/c/too_deep.mplx")

	got := rel(t, root, workspace.Scan([]string{root}, defaultOpts))
	assert.ElementsMatch(t, []string{"main.mplx", "a/one.mplx", "a/b/two.mplx"}, got)
}

func TestScanExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "keep.mplx")
	touch(t, root, ".git/hooks.mplx")
	touch(t, root, "build/out.mplx")
	touch(t, root, "src/build/generated.mplx")
	touch(t, root, "src/.git/x.mplx")
	touch(t, root, "node_modules/pkg/dep.mplx")
	touch(t, root, "src/lib.mplx")

	opts := defaultOpts
	opts.MaxDepth = 10
	got := rel(t, root, workspace.Scan([]string{root}, opts))
	assert.ElementsMatch(t, []string{"keep.mplx", "src/lib.mplx"}, got)
}

func TestScanZeroDepthAndMissingRoot(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "main.mplx")

	opts := defaultOpts
	opts.MaxDepth = 0
	assert.Empty(t, workspace.Scan([]string{root}, opts))
	assert.Empty(t, workspace.Scan([]string{filepath.Join(root, "missing")}, defaultOpts))
}

func TestScanDeduplicatesOverlappingRoots(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "sub/x.mplx")

	got := workspace.Scan([]string{root, filepath.Join(root, "sub")}, defaultOpts)
	assert.Len(t, got, 1)
}

func TestScanSkipsUnreadableDirectories(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := t.TempDir()
	touch(t, root, "ok.mplx")
	locked := filepath.Dir(touch(t, root, "locked/hidden.mplx"))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	got := rel(t, root, workspace.Scan([]string{root}, defaultOpts))
	assert.Equal(t, []string{"ok.mplx"}, got)
}

func TestDepth(t *testing.T) {
	root := filepath.FromSlash("/ws")
	assert.Equal(t, 0, workspace.Depth(root, root))
	assert.Equal(t, 1, workspace.Depth(root, filepath.FromSlash("/ws/a")))
	assert.Equal(t, 3, workspace.Depth(root, filepath.FromSlash("/ws/a/b/c.mplx")))
}
