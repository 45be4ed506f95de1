package handler

import (
	"context"
	"net/http"
	re "regexp"
	"strings"
)

/*
 * regex paths are declared with syntax: /whatever/{{varname[:regex]}}/whateverelse
 * varname is not optional
 * by default regex is `[^/]+`
 * whole expression is prepended with ^ and appended with $
 * it can contain regex inside, but it must not contain captures
 * non-capturing group is specified like this: (?:blablabla)
 * {{:whatever}} is escape for literal {{whatever}}
 * captured values are available through Var
 */

type varKey string

// Var returns path variable captured by RegexPath.
func Var(r *http.Request, name string) string {
	s, _ := r.Context().Value(varKey(name)).(string)
	return s
}

type regexPathRoute struct {
	handler  http.Handler
	varnames []string
	pattern  *re.Regexp
	strip    bool
}

type RegexPath struct {
	routes   []regexPathRoute
	fallback http.Handler
}

var capregex = re.MustCompile(`\{\{..*?\}\}`)

func NewRegexPath() *RegexPath {
	return new(RegexPath).Initialize()
}

func (p *RegexPath) Initialize() *RegexPath {
	p.fallback = badRequest
	return p
}

func (p *RegexPath) Handle(pathexp string, strip bool, handler http.Handler) *RegexPath {
	r := regexPathRoute{handler: handler, strip: strip}

	pathexp = capregex.ReplaceAllStringFunc(pathexp, func(capture string) string {
		capture = capture[2 : len(capture)-2]
		var exprcap string
		expression := "[^/]+"
		if i := strings.IndexByte(capture, ':'); i >= 0 {
			exprcap = capture[i+1:]
			expression = exprcap
			capture = capture[:i]
		}
		if len(capture) == 0 {
			return "{{" + exprcap + "}}"
		}
		r.varnames = append(r.varnames, capture)
		expression = strings.TrimPrefix(expression, "^")
		if strings.HasSuffix(expression, "$") && !strings.HasSuffix(expression, `\$`) {
			expression = expression[:len(expression)-1]
		}
		return "(" + expression + ")"
	})
	if !strip {
		pathexp = "^" + pathexp + "$"
	} else {
		pathexp = "^" + pathexp + "(/.*)$"
	}
	r.pattern = re.MustCompile(pathexp)

	p.routes = append(p.routes, r)

	return p
}

func (p *RegexPath) Fallback(handler http.Handler) *RegexPath {
	p.fallback = handler
	return p
}

func (p *RegexPath) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for i := range p.routes {
		rt := &p.routes[i]
		m := rt.pattern.FindStringSubmatch(r.URL.Path)
		if m == nil {
			continue
		}
		numvars := len(rt.varnames)
		expected := numvars + 1
		if rt.strip {
			expected++
		}
		if len(m) != expected {
			// we have no idea which submatch refers to which variable
			panic("regexpath/ServeHTTP: unexpected matched expression count")
		}
		if numvars > 0 {
			ctx := r.Context()
			for j, vn := range rt.varnames {
				ctx = context.WithValue(ctx, varKey(vn), m[j+1])
			}
			r = r.WithContext(ctx)
		}
		if rt.strip {
			// this is destructive
			r.URL.Path = m[numvars+1]
		}
		rt.handler.ServeHTTP(w, r)
		return
	}
	p.fallback.ServeHTTP(w, r)
}

var _ http.Handler = (*RegexPath)(nil)
