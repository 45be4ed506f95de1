package jsonrenderer

import (
	"encoding/json"
	"net/http"

	. "asciirle/lib/logx"
)

type Config struct {
	Indent string
}

type JSONRenderer struct {
	indent string
	log    Logger
}

func NewJSONRenderer(cfg Config, lx LoggerX) *JSONRenderer {
	return &JSONRenderer{indent: cfg.Indent, log: NewLogToX(lx, "jsonrenderer")}
}

type jsonErrorMsg struct {
	Code int    `json:"code,omitempty"`
	Msg  string `json:"msg,omitempty"`
}

type jsonError struct {
	Err jsonErrorMsg `json:"error"`
}

func (j *JSONRenderer) prepareEncoder(
	w http.ResponseWriter, code int) *json.Encoder {

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if code != 0 {
		w.WriteHeader(code)
	}
	e := json.NewEncoder(w)
	// glyphs like & and < must stay readable
	e.SetEscapeHTML(false)
	e.SetIndent("", j.indent)
	return e
}

// Render writes v as JSON. code 0 means 200.
func (j *JSONRenderer) Render(w http.ResponseWriter, code int, v interface{}) {
	e := j.prepareEncoder(w, code)
	if err := e.Encode(v); err != nil {
		j.log.LogPrintf(WARN, "encoding response failed: %v", err)
	}
}

// RenderError writes {"error":{"code":..,"msg":..}} with code status.
func (j *JSONRenderer) RenderError(w http.ResponseWriter, code int, msg string) {
	e := j.prepareEncoder(w, code)
	jerr := jsonError{Err: jsonErrorMsg{Code: code, Msg: msg}}
	if err := e.Encode(&jerr); err != nil {
		j.log.LogPrintf(WARN, "encoding error response failed: %v", err)
	}
}
