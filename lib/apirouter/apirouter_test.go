package apirouter

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"asciirle/lib/artstore"
	"asciirle/lib/asciiconv"
	"asciirle/lib/logx"
)

func newTestRouter(t *testing.T, mod func(*Cfg)) http.Handler {
	conv, err := asciiconv.New(asciiconv.DefaultConfig, logx.NopLoggerX{})
	if err != nil {
		t.Fatal(err)
	}
	st, err := artstore.Open(artstore.Config{Path: t.TempDir()}, logx.NopLoggerX{})
	if err != nil {
		t.Fatal(err)
	}
	cfg := Cfg{
		Converter: conv,
		Store:     st,
		Log:       logx.NopLoggerX{},
	}
	if mod != nil {
		mod(&cfg)
	}
	h, err := NewAPIRouter(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func blackPNG(t *testing.T, w, h int) []byte {
	img := image.NewGray(image.Rect(0, 0, w, h))
	var b bytes.Buffer
	if err := png.Encode(&b, img); err != nil {
		t.Fatal(err)
	}
	return b.Bytes()
}

func uploadRequest(t *testing.T, file []byte, fields ...string) *http.Request {
	var b bytes.Buffer
	mw := multipart.NewWriter(&b)
	for i := 0; i+1 < len(fields); i += 2 {
		if err := mw.WriteField(fields[i], fields[i+1]); err != nil {
			t.Fatal(err)
		}
	}
	if file != nil {
		fw, err := mw.CreateFormFile("image", "upload.png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(file)
	}
	mw.Close()
	r := httptest.NewRequest("POST", "/api/convert", &b)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var m map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("bad json %q: %v", w.Body.String(), err)
	}
	return m
}

func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) float64 {
	m := decodeBody(t, w)
	e, _ := m["error"].(map[string]interface{})
	if e == nil {
		t.Fatalf("no error object in %q", w.Body.String())
	}
	t.Logf("error: %v", e["msg"])
	c, _ := e["code"].(float64)
	return c
}

func TestConvertRoundTrip(t *testing.T) {
	h := newTestRouter(t, nil)

	w := serve(h, uploadRequest(t, blackPNG(t, 16, 8),
		"width", "8", "mode", "threshold", "compress", "1"))
	if w.Code != 200 {
		t.Fatalf("convert: %d %s", w.Code, w.Body.String())
	}
	res := decodeBody(t, w)
	t.Logf("convert: %s", spew.Sdump(res))

	const art = "@@@@@@@@\n@@@@@@@@"
	if res["ascii_art"] != art {
		t.Errorf("ascii_art %q", res["ascii_art"])
	}
	if res["width"] != 8.0 || res["height"] != 2.0 || res["mode"] != "threshold" {
		t.Errorf("unexpected dimensions/mode")
	}
	if res["size_bytes"] != float64(len(art)) {
		t.Errorf("size_bytes %v", res["size_bytes"])
	}
	if res["compressed_data"] != "#8@\n#8@" {
		t.Errorf("compressed_data %q", res["compressed_data"])
	}
	ci, _ := res["compression_info"].(map[string]interface{})
	if ci == nil || ci["algorithm"] != "rle-ascii" || ci["original_size"] != 17.0 {
		t.Errorf("compression_info %v", ci)
	}
	for _, k := range []string{"art_id", "source_id", "rle_id"} {
		if s, _ := res[k].(string); s == "" {
			t.Errorf("missing %s", k)
		}
	}

	body, _ := json.Marshal(map[string]interface{}{
		"compressed_data": res["compressed_data"],
	})
	r := httptest.NewRequest("POST", "/api/decompress", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w = serve(h, r)
	if w.Code != 200 {
		t.Fatalf("decompress: %d %s", w.Code, w.Body.String())
	}
	dres := decodeBody(t, w)
	if dres["text"] != art || dres["original_size"] != float64(len(art)) {
		t.Errorf("decompress gave %s", spew.Sdump(dres))
	}

	// download and conditional download
	id := res["art_id"].(string)
	w = serve(h, httptest.NewRequest("GET", "/api/download/"+id, nil))
	if w.Code != 200 || w.Body.String() != art {
		t.Fatalf("download: %d %q", w.Code, w.Body.String())
	}
	tag := w.Header().Get("ETag")
	if len(tag) != 18 {
		t.Errorf("bad etag %q", tag)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") {
		t.Errorf("Content-Disposition %q", cd)
	}
	r = httptest.NewRequest("GET", "/api/download/"+id, nil)
	r.Header.Set("If-None-Match", tag)
	if w = serve(h, r); w.Code != http.StatusNotModified {
		t.Errorf("conditional download: %d", w.Code)
	}
}

func TestConvertDefaults(t *testing.T) {
	h := newTestRouter(t, func(c *Cfg) { c.Store = nil })

	w := serve(h, uploadRequest(t, blackPNG(t, 160, 40)))
	if w.Code != 200 {
		t.Fatalf("convert: %d %s", w.Code, w.Body.String())
	}
	res := decodeBody(t, w)
	if res["width"] != 80.0 || res["height"] != 10.0 {
		t.Errorf("unexpected size %vx%v", res["width"], res["height"])
	}
	for _, k := range []string{"art_id", "compressed_data", "rle_id"} {
		if _, ok := res[k]; ok {
			t.Errorf("unexpected %s", k)
		}
	}
}

func TestConvertErrors(t *testing.T) {
	h := newTestRouter(t, func(c *Cfg) { c.MaxFileSize = 1000 })

	cases := []struct {
		name string
		r    *http.Request
		code int
	}{
		{"no image", uploadRequest(t, nil, "width", "10"), 400},
		{"not image", uploadRequest(t, []byte("hello, world")), 415},
		{"too large", uploadRequest(t, bytes.Repeat([]byte{'x'}, 2000)), 413},
		{"bad width", uploadRequest(t, blackPNG(t, 8, 8), "width", "abc"), 400},
		{"wide", uploadRequest(t, blackPNG(t, 8, 8), "width", "501"), 400},
		{"bad mode", uploadRequest(t, blackPNG(t, 8, 8), "mode", "sepia"), 400},
		{"bad flag", uploadRequest(t, blackPNG(t, 8, 8), "compress", "maybe"), 400},
		{"json", func() *http.Request {
			r := httptest.NewRequest("POST", "/api/convert", strings.NewReader("{}"))
			r.Header.Set("Content-Type", "application/json")
			return r
		}(), 415},
	}
	for _, c := range cases {
		w := serve(h, c.r)
		if w.Code != c.code {
			t.Errorf("%s: code %d, expected %d: %s", c.name, w.Code, c.code, w.Body.String())
			continue
		}
		if ec := errorCodeOf(t, w); ec != float64(c.code) {
			t.Errorf("%s: error code %v", c.name, ec)
		}
	}
}

func TestCompressDecompress(t *testing.T) {
	h := newTestRouter(t, nil)

	r := httptest.NewRequest("POST", "/api/compress", strings.NewReader("----  ..@@@"))
	r.Header.Set("Content-Type", "text/plain; charset=utf-8")
	w := serve(h, r)
	if w.Code != 200 {
		t.Fatalf("compress: %d %s", w.Code, w.Body.String())
	}
	res := decodeBody(t, w)
	if res["compressed_data"] != "#4-#2 $2.$3@" {
		t.Errorf("compressed_data %q", res["compressed_data"])
	}
	if s, _ := res["rle_id"].(string); s == "" {
		t.Error("missing rle_id")
	}

	cases := []struct {
		path string
		ct   string
		body string
		code int
	}{
		{"/api/compress", "text/plain", "a#b", 400},
		{"/api/compress", "application/json", `{"txt":"x"}`, 400},
		{"/api/compress", "application/json", `{"text":`, 400},
		{"/api/compress", "image/png", "x", 415},
		{"/api/decompress", "text/plain", "#12", 422},
		{"/api/decompress", "application/json", `{"compressed_data":"$00a"}`, 422},
		{"/api/decompress", "application/json", `{}`, 400},
	}
	for _, c := range cases {
		r := httptest.NewRequest("POST", c.path, strings.NewReader(c.body))
		r.Header.Set("Content-Type", c.ct)
		w := serve(h, r)
		if w.Code != c.code {
			t.Errorf("%s %q: code %d, expected %d", c.path, c.body, w.Code, c.code)
			continue
		}
		if ec := errorCodeOf(t, w); ec != float64(c.code) {
			t.Errorf("%s %q: error code %v", c.path, c.body, ec)
		}
	}

	// empty text is valid
	r = httptest.NewRequest("POST", "/api/compress", strings.NewReader(`{"text":""}`))
	r.Header.Set("Content-Type", "application/json")
	w = serve(h, r)
	res = decodeBody(t, w)
	ci, _ := res["compression_info"].(map[string]interface{})
	if w.Code != 200 || res["compressed_data"] != "" || ci["ratio"] != 1.0 {
		t.Errorf("empty compress: %d %s", w.Code, w.Body.String())
	}
}

func TestDecompressLimit(t *testing.T) {
	h := newTestRouter(t, func(c *Cfg) {
		cfg := asciiconv.DefaultConfig
		cfg.MaxDecodedSize = 100
		conv, err := asciiconv.New(cfg, logx.NopLoggerX{})
		if err != nil {
			t.Fatal(err)
		}
		c.Converter = conv
	})
	r := httptest.NewRequest("POST", "/api/decompress", strings.NewReader("#9999@"))
	w := serve(h, r)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("code %d: %s", w.Code, w.Body.String())
	}
}

func TestRouting(t *testing.T) {
	h := newTestRouter(t, nil)

	cases := []struct {
		method string
		path   string
		code   int
	}{
		{"GET", "/api/info", 200},
		{"GET", "/api/convert", 405},
		{"DELETE", "/api/compress", 405},
		{"GET", "/api/download/zzzz", 404},
		{"GET", "/api/download/ABC", 404},
		{"GET", "/api/unknown", 404},
		{"GET", "/", 404},
		{"GET", "/api/../api/info", 301},
		{"POST", "/api//compress", 307},
	}
	for _, c := range cases {
		w := serve(h, httptest.NewRequest(c.method, c.path, nil))
		if w.Code != c.code {
			t.Errorf("%s %s: code %d, expected %d", c.method, c.path, w.Code, c.code)
		}
	}

	// unrouted requests get same error envelope as handler failures
	for _, c := range []struct {
		method, path string
		code         float64
	}{
		{"PUT", "/api/convert", 405},
		{"POST", "/api/download/abc", 405},
		{"GET", "/api/nope", 404},
	} {
		w := serve(h, httptest.NewRequest(c.method, c.path, nil))
		if ec := errorCodeOf(t, w); ec != c.code {
			t.Errorf("%s %s: error code %v, expected %v", c.method, c.path, ec, c.code)
		}
	}

	w := serve(h, httptest.NewRequest("GET", "/api/info", nil))
	res := decodeBody(t, w)
	t.Logf("info: %s", spew.Sdump(res))
	if res["default_width"] != 80.0 || res["default_mode"] != "threshold" ||
		res["algorithm"] != "rle-ascii" {

		t.Errorf("unexpected info")
	}
	al, _ := res["alphabets"].(map[string]interface{})
	if al["threshold"] != "-*@" {
		t.Errorf("alphabets %v", al)
	}
}

func TestGzip(t *testing.T) {
	h := newTestRouter(t, func(c *Cfg) { c.Gzip = true })

	text := strings.Repeat("-*", 2000)
	r := httptest.NewRequest("POST", "/api/compress", strings.NewReader(text))
	r.Header.Set("Accept-Encoding", "gzip")
	w := serve(h, r)
	if w.Code != 200 {
		t.Fatalf("code %d", w.Code)
	}
	if ce := w.Header().Get("Content-Encoding"); ce != "gzip" {
		t.Fatalf("Content-Encoding %q", ce)
	}
	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatal(err)
	}
	b, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	var res compressResult
	if err = json.Unmarshal(b, &res); err != nil {
		t.Fatal(err)
	}
	if res.Data != text {
		t.Errorf("unexpected compressed data")
	}
}

func TestBadCfg(t *testing.T) {
	if _, err := NewAPIRouter(Cfg{}); err == nil {
		t.Error("nil converter accepted")
	}
	conv, _ := asciiconv.New(asciiconv.DefaultConfig, logx.NopLoggerX{})
	if _, err := NewAPIRouter(Cfg{Converter: conv, ETagKey: []byte("short")}); err == nil {
		t.Error("short etag key accepted")
	}
	if _, err := NewAPIRouter(Cfg{Converter: conv, AllowedTypes: []string{"image/[a-"}}); err == nil {
		t.Error("bad type pattern accepted")
	}
}
