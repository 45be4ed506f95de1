package handler

import (
	"net/http"
	"strings"
)

type simplePathRoute struct {
	handler http.Handler
	path    string
	strip   bool
}

// SimplePath routes by exact path or, with strip, by path prefix.
type SimplePath struct {
	routes   []simplePathRoute
	fallback http.Handler
}

func NewSimplePath() *SimplePath {
	return new(SimplePath).Initialize()
}

func (p *SimplePath) Initialize() *SimplePath {
	p.fallback = badRequest
	return p
}

// Handle registers handler. With strip, path is prefix which is removed
// from r.URL.Path before passing request on.
func (p *SimplePath) Handle(path string, strip bool, handler http.Handler) *SimplePath {
	p.routes = append(p.routes, simplePathRoute{
		handler: handler,
		path:    path,
		strip:   strip,
	})
	return p
}

func (p *SimplePath) Fallback(handler http.Handler) *SimplePath {
	p.fallback = handler
	return p
}

func (p *SimplePath) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for i := range p.routes {
		rt := &p.routes[i]
		if !rt.strip {
			if r.URL.Path == rt.path {
				rt.handler.ServeHTTP(w, r)
				return
			}
			continue
		}
		l := len(rt.path)
		if len(r.URL.Path) > l && strings.HasPrefix(r.URL.Path, rt.path) &&
			r.URL.Path[l] == '/' {

			// this is destructive
			r.URL.Path = r.URL.Path[l:]
			rt.handler.ServeHTTP(w, r)
			return
		}
	}
	p.fallback.ServeHTTP(w, r)
}

var _ http.Handler = (*SimplePath)(nil)
