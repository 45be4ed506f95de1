package handler

import (
	"net/http"
	"strings"
)

// Method dispatches by request method and answers OPTIONS itself.
type Method struct {
	// methods[0]=OPTIONS,handlers[0]=fallback,methods[1:n]--handlers[1:n]
	methods  []string
	handlers []http.Handler
	errf     ErrorFunc
}

func NewMethod() *Method {
	return new(Method).Initialize()
}

func (m *Method) Initialize() *Method {
	m.methods = append(m.methods[:0], "OPTIONS")
	m.handlers = append(m.handlers[:0], nil)
	return m
}

func (m *Method) has(um string) bool {
	for _, s := range m.methods {
		if um == s {
			return true
		}
	}
	return false
}

func (m *Method) Handle(method string, handler http.Handler) *Method {
	if len(m.methods) < 1 || len(m.handlers) < 1 {
		panic("Method struct is not properly initialized")
	}

	// not going to use non-standard lowercase or mixed-case methods
	um := strings.ToUpper(method)

	if !m.has(um) {
		m.methods = append(m.methods, um)
		m.handlers = append(m.handlers, handler)
		// HEAD is consistent with GET
		if um == http.MethodGet && !m.has(http.MethodHead) {
			m.methods = append(m.methods, http.MethodHead)
			m.handlers = append(m.handlers, handler)
		}
	}

	return m
}

func (m *Method) HandleFunc(method string, f http.HandlerFunc) *Method {
	return m.Handle(method, f)
}

func (m *Method) Fallback(handler http.Handler) *Method {
	if len(m.methods) < 1 || len(m.handlers) < 1 {
		panic("Method struct is not properly initialized")
	}
	m.handlers[0] = handler
	return m
}

// Errors sets how 405 is written when no fallback is set.
func (m *Method) Errors(ef ErrorFunc) *Method {
	m.errf = ef
	return m
}

func (m *Method) Allow() string {
	return strings.Join(m.methods, ", ")
}

func (m *Method) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for i := 1; i < len(m.methods); i++ {
		if r.Method == m.methods[i] {
			m.handlers[i].ServeHTTP(w, r)
			return
		}
	}
	if r.Method == http.MethodOptions {
		w.Header().Set("Allow", m.Allow())
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if m.handlers[0] != nil {
		m.handlers[0].ServeHTTP(w, r)
		return
	}
	w.Header().Set("Allow", m.Allow())
	ef := m.errf
	if ef == nil {
		ef = PlainError
	}
	ef(w, http.StatusMethodNotAllowed, "method not allowed")
}

var _ http.Handler = (*Method)(nil)
