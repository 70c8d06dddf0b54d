package filters

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/yourusername/filament/pkg/filament/http1"
	"github.com/yourusername/filament/pkg/filament/mime"
	"github.com/yourusername/filament/pkg/filament/router"
)

var indexFiles = []string{"index.html", "index.htm"}

// ServeFile serves one fixed file, or 404 when it cannot be read.
func ServeFile(path string) router.Endpoint {
	return func(*http1.RequestContext) (*http1.Response, error) {
		return fileResponse(path), nil
	}
}

// ServeDir serves a directory tree under the route's pattern. The matched
// pattern's wildcard part of the request path is resolved inside dir, with
// index files honored: a request for a bare directory redirects to the
// slash form, and the slash form serves its index file.
func ServeDir(dir string) router.Endpoint {
	return func(ctx *http1.RequestContext) (*http1.Response, error) {
		prefix := strings.TrimSuffix(ctx.RoutePattern(), "*")
		rel := strings.TrimPrefix(ctx.Head().Path(), strings.TrimSuffix(prefix, "/"))

		located, isDir := findPath(dir, rel)
		switch {
		case isDir:
			return http1.RedirectResponse(ctx.Head().Path() + "/"), nil
		case located != "":
			return fileResponse(located), nil
		default:
			return http1.StatusResponse(http1.StatusNotFound), nil
		}
	}
}

// Redirect answers every request with a 301 to location.
func Redirect(location string) router.Endpoint {
	return func(*http1.RequestContext) (*http1.Response, error) {
		return http1.RedirectResponse(location), nil
	}
}

// findPath resolves a request path inside a directory, refusing traversal.
// Returns (file, false) for a servable file, ("", true) for a directory
// that should redirect, ("", false) when nothing matches.
func findPath(dir, requestPath string) (string, bool) {
	// The path was percent-decoded upstream; a decoded ".." or ":" is a
	// traversal attempt and never resolves.
	if strings.Contains(requestPath, "..") || strings.Contains(requestPath, ":") {
		return "", false
	}

	requestPath = strings.TrimPrefix(requestPath, "/")
	dir = strings.TrimSuffix(dir, "/")

	if requestPath == "" || strings.HasSuffix(requestPath, "/") {
		for _, index := range indexFiles {
			candidate := filepath.Join(dir, requestPath, index)
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				return candidate, false
			}
		}
		return "", false
	}

	candidate := filepath.Join(dir, requestPath)
	info, err := os.Stat(candidate)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		return "", true
	}
	if !info.Mode().IsRegular() {
		return "", false
	}
	return candidate, false
}

func fileResponse(path string) *http1.Response {
	data, err := os.ReadFile(path)
	if err != nil {
		return http1.StatusResponse(http1.StatusNotFound)
	}
	resp := http1.OK(http1.BodyFromBytes(data))
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext != "" {
		resp.WithContentType(mime.FromExtension(ext))
	}
	return resp
}
