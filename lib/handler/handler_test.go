package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func echo(s string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, s+":"+r.URL.Path)
	})
}

func do(h http.Handler, method, path string, hdr ...string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, nil)
	for i := 0; i+1 < len(hdr); i += 2 {
		r.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestSimplePath(t *testing.T) {
	h := NewSimplePath().
		Handle("/", false, echo("root")).
		Handle("/api", true, echo("api"))

	cases := []struct {
		path string
		code int
		body string
	}{
		{"/", 200, "root:/"},
		{"/api/convert", 200, "api:/convert"},
		{"/api", 400, ""},
		{"/apix/y", 400, ""},
	}
	for _, c := range cases {
		w := do(h, "GET", c.path)
		if w.Code != c.code {
			t.Errorf("%s: code %d, expected %d", c.path, w.Code, c.code)
		}
		if c.body != "" && w.Body.String() != c.body {
			t.Errorf("%s: body %q, expected %q", c.path, w.Body.String(), c.body)
		}
	}
}

func TestRegexPath(t *testing.T) {
	h := NewRegexPath().
		Handle("/download/{{id:[0-9a-z]+}}", false, http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, "id="+Var(r, "id"))
			})).
		Handle("/{{x}}", true, echo("sub"))

	if w := do(h, "GET", "/download/abc123"); w.Body.String() != "id=abc123" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
	if w := do(h, "GET", "/nothing"); w.Code != 400 {
		t.Errorf("expected fallback, got %d", w.Code)
	}
	if w := do(h, "GET", "/zz/rest"); w.Body.String() != "sub:/rest" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestMethod(t *testing.T) {
	h := NewMethod().Handle("get", echo("g")).Handle("POST", echo("p"))

	if w := do(h, "HEAD", "/"); w.Code != 200 {
		t.Errorf("HEAD: %d", w.Code)
	}
	if w := do(h, "POST", "/"); w.Body.String() != "p:/" {
		t.Errorf("POST: %q", w.Body.String())
	}
	w := do(h, "DELETE", "/")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE: %d", w.Code)
	}
	if a := w.Header().Get("Allow"); a != "OPTIONS, GET, HEAD, POST" {
		t.Errorf("Allow: %q", a)
	}
	if w := do(h, "OPTIONS", "/"); w.Code != http.StatusNoContent {
		t.Errorf("OPTIONS: %d", w.Code)
	}
}

func TestCleanPath(t *testing.T) {
	h := NewCleanPath(echo("ok"))

	cases := []struct {
		method string
		path   string
		code   int
		loc    string
	}{
		{"GET", "/api/../api//download/", http.StatusMovedPermanently, "/api/download/"},
		{"HEAD", "/api/./info", http.StatusMovedPermanently, "/api/info"},
		{"POST", "//api/compress?x=1", http.StatusTemporaryRedirect, "/api/compress?x=1"},
		{"GET", "/api/x", 200, ""},
		{"GET", "/api/x/", 200, ""},
	}
	for _, c := range cases {
		w := do(h, c.method, c.path)
		if w.Code != c.code {
			t.Errorf("%s %s: code %d, expected %d", c.method, c.path, w.Code, c.code)
			continue
		}
		if loc := w.Header().Get("Location"); loc != c.loc {
			t.Errorf("%s %s: Location %q, expected %q", c.method, c.path, loc, c.loc)
		}
	}

	for p, exp := range map[string]string{
		"":       "/",
		"/":      "/",
		"a/b":    "/a/b",
		"/a/..":  "/",
		"/a/../": "/",
		"/a//b/": "/a/b/",
	} {
		if got := canonicalPath(p); got != exp {
			t.Errorf("canonicalPath(%q) = %q, expected %q", p, got, exp)
		}
	}
}

func TestErrorFunc(t *testing.T) {
	var got []string
	ef := func(w http.ResponseWriter, code int, msg string) {
		got = append(got, msg)
		w.WriteHeader(code)
	}

	m := NewMethod().Handle("POST", echo("p")).Errors(ef)
	w := do(m, "GET", "/")
	if w.Code != http.StatusMethodNotAllowed || w.Header().Get("Allow") != "OPTIONS, POST" {
		t.Errorf("GET: %d allow %q", w.Code, w.Header().Get("Allow"))
	}

	w = do(StatusHandler(ef, http.StatusNotFound), "GET", "/x")
	if w.Code != http.StatusNotFound {
		t.Errorf("StatusHandler: %d", w.Code)
	}
	if len(got) != 2 || got[0] != "method not allowed" || got[1] != "not found" {
		t.Errorf("messages %q", got)
	}

	// default wording stays plain text
	w = do(NewMethod(), "PUT", "/")
	if b := w.Body.String(); b != "405 method not allowed\n" {
		t.Errorf("plain body %q", b)
	}
}

func TestCORS(t *testing.T) {
	h, err := NewCORS(CORSConfig{
		Origins: []string{"https://*.example.org", "http://localhost:*"},
		Headers: []string{"Content-Type"},
		MaxAge:  10 * time.Minute,
	}, echo("ok"))
	if err != nil {
		t.Fatal(err)
	}

	w := do(h, "GET", "/", "Origin", "https://art.example.org")
	if o := w.Header().Get("Access-Control-Allow-Origin"); o != "https://art.example.org" {
		t.Errorf("allowed origin not echoed: %q", o)
	}

	w = do(h, "GET", "/", "Origin", "https://evil.test")
	if o := w.Header().Get("Access-Control-Allow-Origin"); o != "" {
		t.Errorf("foreign origin tagged: %q", o)
	}
	if w.Code != 200 {
		t.Errorf("foreign origin request not passed through: %d", w.Code)
	}

	w = do(h, "OPTIONS", "/", "Origin", "http://localhost:3000",
		"Access-Control-Request-Method", "POST")
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight: %d", w.Code)
	}
	if m := w.Header().Get("Access-Control-Allow-Methods"); m != "GET, POST" {
		t.Errorf("preflight methods %q", m)
	}
	if a := w.Header().Get("Access-Control-Max-Age"); a != "600" {
		t.Errorf("preflight max age %q", a)
	}

	wild, _ := NewCORS(CORSConfig{Origins: []string{"*"}}, echo("ok"))
	w = do(wild, "GET", "/", "Origin", "https://whatever")
	if o := w.Header().Get("Access-Control-Allow-Origin"); o != "*" {
		t.Errorf("wildcard: %q", o)
	}

	if _, err := NewCORS(CORSConfig{Origins: []string{"[a-"}}, nil); err == nil {
		t.Error("bad pattern accepted")
	}
}
