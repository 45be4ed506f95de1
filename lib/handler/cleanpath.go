package handler

import (
	"net/http"
	"path"
	"strings"
)

// CleanPath redirects requests with unclean paths (dot segments, doubled
// slashes, missing leading slash) to canonical ones. Trailing slash is
// significant and kept.
type CleanPath struct {
	handler http.Handler
}

func NewCleanPath(handler http.Handler) *CleanPath {
	return &CleanPath{handler: handler}
}

func canonicalPath(p string) string {
	np := path.Clean("/" + p)
	if np != "/" && strings.HasSuffix(p, "/") {
		np += "/"
	}
	return np
}

func (cp *CleanPath) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	np := canonicalPath(r.URL.Path)
	if np == r.URL.Path || r.Method == http.MethodConnect {
		cp.handler.ServeHTTP(w, r)
		return
	}
	u := *r.URL
	u.Path = np
	u.RawPath = ""
	// GET of canonical art URL can be cached, uploads must be redone
	code := http.StatusTemporaryRedirect
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		code = http.StatusMovedPermanently
	}
	http.Redirect(w, r, u.String(), code)
}

var _ http.Handler = (*CleanPath)(nil)
