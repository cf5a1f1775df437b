package workspace_test

import (
	"path/filepath"
	"runtime"
	"testing"

	"mplxls/internal/workspace"

	"github.com/stretchr/testify/assert"
)

func TestURIRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "my notes", "main.mplx")

	uri := workspace.PathToURI(path)
	assert.Contains(t, uri, "my%20notes")
	assert.Equal(t, path, workspace.URIToPath(uri))
}

func TestURIToPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}
	assert.Equal(t, "/ws/a b/x.mplx", workspace.URIToPath("file:///ws/a%20b/x.mplx"))
	assert.Equal(t, "untitled:Untitled-1", workspace.URIToPath("untitled:Untitled-1"))
}

func TestSameFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}
	assert.True(t, workspace.SameFile("file:///ws/a%20b.mplx", "file:///ws/a b.mplx"))
	assert.False(t, workspace.SameFile("file:///ws/a.mplx", "file:///ws/b.mplx"))
}
