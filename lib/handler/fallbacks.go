package handler

import (
	"net/http"
	"strconv"
	"strings"
)

// ErrorFunc writes error response. Routers use it for requests they
// can't dispatch, so that API can answer in its own format.
type ErrorFunc func(w http.ResponseWriter, code int, msg string)

// PlainError writes "<code> <msg>" as text/plain.
func PlainError(w http.ResponseWriter, code int, msg string) {
	http.Error(w, strconv.Itoa(code)+" "+msg, code)
}

// StatusHandler answers every request with code, worded by ef.
func StatusHandler(ef ErrorFunc, code int) http.Handler {
	if ef == nil {
		ef = PlainError
	}
	msg := strings.ToLower(http.StatusText(code))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ef(w, code, msg)
	})
}

// 400 makes more sense than 404 for unmatched paths of bare routers
var badRequest = StatusHandler(nil, http.StatusBadRequest)
