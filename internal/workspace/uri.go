package workspace

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// URIToPath converts a file:// URI to a filesystem path. Anything that is
// not a file URI is returned unchanged.
func URIToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	path := u.Path
	if runtime.GOOS == "windows" {
		// file:///C:/dir -> C:/dir
		path = strings.TrimPrefix(path, "/")
	}
	return filepath.FromSlash(path)
}

// PathToURI converts a filesystem path to a file:// URI.
func PathToURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	slashed := filepath.ToSlash(path)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	u := url.URL{Scheme: "file", Path: slashed}
	return u.String()
}

// SameFile reports whether two URIs name the same file, ignoring
// differences in percent-encoding.
func SameFile(a, b string) bool {
	return a == b || filepath.Clean(URIToPath(a)) == filepath.Clean(URIToPath(b))
}
