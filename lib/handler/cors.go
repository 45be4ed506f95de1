package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

type CORSConfig struct {
	Origins []string // glob patterns, e.g. "https://*.example.org"; "*" allows any
	Methods []string
	Headers []string
	MaxAge  time.Duration
}

// CORS answers preflight requests and tags responses for allowed origins.
// Requests from other origins pass through untagged.
type CORS struct {
	handler http.Handler
	origins []glob.Glob
	anyOrig bool
	methods string
	headers string
	maxAge  string
}

func NewCORS(cfg CORSConfig, handler http.Handler) (*CORS, error) {
	c := &CORS{handler: handler}
	for _, o := range cfg.Origins {
		if o == "*" {
			c.anyOrig = true
			continue
		}
		g, err := glob.Compile(o)
		if err != nil {
			return nil, fmt.Errorf("bad CORS origin pattern %q: %v", o, err)
		}
		c.origins = append(c.origins, g)
	}
	methods := cfg.Methods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost}
	}
	c.methods = strings.Join(methods, ", ")
	c.headers = strings.Join(cfg.Headers, ", ")
	if cfg.MaxAge > 0 {
		c.maxAge = strconv.Itoa(int(cfg.MaxAge / time.Second))
	}
	return c, nil
}

func (c *CORS) allowed(origin string) bool {
	if c.anyOrig {
		return true
	}
	for _, g := range c.origins {
		if g.Match(origin) {
			return true
		}
	}
	return false
}

func (c *CORS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" || !c.allowed(origin) {
		c.handler.ServeHTTP(w, r)
		return
	}

	h := w.Header()
	h.Add("Vary", "Origin")
	if c.anyOrig {
		h.Set("Access-Control-Allow-Origin", "*")
	} else {
		h.Set("Access-Control-Allow-Origin", origin)
	}

	if r.Method == http.MethodOptions &&
		r.Header.Get("Access-Control-Request-Method") != "" {

		// preflight
		h.Set("Access-Control-Allow-Methods", c.methods)
		if c.headers != "" {
			h.Set("Access-Control-Allow-Headers", c.headers)
		}
		if c.maxAge != "" {
			h.Set("Access-Control-Max-Age", c.maxAge)
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	c.handler.ServeHTTP(w, r)
}

var _ http.Handler = (*CORS)(nil)
