package apirouter

// json webapi for conversion, compression and stored artifacts

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"

	"github.com/gobwas/glob"
	"github.com/klauspost/compress/gzhttp"

	"asciirle/lib/artstore"
	"asciirle/lib/asciiconv"
	"asciirle/lib/glyph"
	"asciirle/lib/handler"
	"asciirle/lib/jsonrenderer"
	. "asciirle/lib/logx"
	"asciirle/lib/rlecodec"
)

type Cfg struct {
	Converter *asciiconv.Converter // required
	Store     *artstore.Store      // nil disables storing and downloads
	Renderer  *jsonrenderer.JSONRenderer

	MaxFileSize  int64    // upload limit, 0 means 16 MiB
	MaxTextSize  int64    // compress/decompress body limit, 0 means 4 MiB
	AllowedTypes []string // glob patterns for sniffed upload type, nil means image/*

	CORS    *handler.CORSConfig // nil disables CORS headers
	Gzip    bool
	ETagKey []byte // 32 bytes; random if nil

	Log LoggerX
}

const (
	defaultMaxFileSize = 16 << 20
	defaultMaxTextSize = 4 << 20
	// room for form fields around uploaded file
	formSlack = 64 << 10
	// max length of single form value
	maxFieldSize = 256
)

type apiRouter struct {
	conv     *asciiconv.Converter
	store    *artstore.Store
	r        *jsonrenderer.JSONRenderer
	log      Logger
	maxFile  int64
	maxText  int64
	typePats []string
	types    []glob.Glob
	etagKey  []byte
}

// httpError carries status code decided at the point of failure.
type httpError struct {
	code int
	msg  string
}

func (e *httpError) Error() string { return e.msg }

func errorf(code int, f string, v ...interface{}) error {
	return &httpError{code: code, msg: fmt.Sprintf(f, v...)}
}

var errTooLarge = errorf(http.StatusRequestEntityTooLarge, "payload too large")

// errorCode maps err to HTTP status and client visible message.
func errorCode(err error) (int, string) {
	var (
		he  *httpError
		ie  *glyph.InputError
		de  *rlecodec.DomainError
		dce *rlecodec.DecodeError
		mbe *http.MaxBytesError
	)
	switch {
	case errors.As(err, &he):
		return he.code, he.msg
	case errors.As(err, &ie), errors.As(err, &de):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &dce):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &mbe), errors.Is(err, rlecodec.ErrOutputLimit):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, artstore.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, artstore.ErrInvalidID):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (a *apiRouter) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := errorCode(err)
	if code >= 500 {
		a.log.LogPrintf(ERROR, "%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		a.log.LogPrintf(DEBUG, "%s %s: %d %v", r.Method, r.URL.Path, code, err)
	}
	a.r.RenderError(w, code, msg)
}

func NewAPIRouter(cfg Cfg) (http.Handler, error) {
	if cfg.Converter == nil {
		return nil, errors.New("nil converter not allowed")
	}
	lx := cfg.Log
	if lx == nil {
		lx = NopLoggerX{}
	}
	a := &apiRouter{
		conv:    cfg.Converter,
		store:   cfg.Store,
		r:       cfg.Renderer,
		log:     NewLogToX(lx, "apirouter"),
		maxFile: cfg.MaxFileSize,
		maxText: cfg.MaxTextSize,
		etagKey: cfg.ETagKey,
	}
	if a.r == nil {
		a.r = jsonrenderer.NewJSONRenderer(jsonrenderer.Config{}, lx)
	}
	if a.maxFile <= 0 {
		a.maxFile = defaultMaxFileSize
	}
	if a.maxText <= 0 {
		a.maxText = defaultMaxTextSize
	}

	a.typePats = cfg.AllowedTypes
	if len(a.typePats) == 0 {
		a.typePats = []string{"image/*"}
	}
	for _, p := range a.typePats {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("bad allowed type pattern %q: %v", p, err)
		}
		a.types = append(a.types, g)
	}

	if a.etagKey == nil {
		a.etagKey = make([]byte, 32)
		if _, err := rand.Read(a.etagKey); err != nil {
			return nil, fmt.Errorf("failed to generate etag key: %v", err)
		}
	} else if len(a.etagKey) != 32 {
		return nil, fmt.Errorf("etag key must be 32 bytes, got %d", len(a.etagKey))
	}

	method := func() *handler.Method {
		return handler.NewMethod().Errors(a.r.RenderError)
	}

	h_api := handler.NewSimplePath()

	h_api.Handle("/convert", false,
		method().HandleFunc("POST", a.serveConvert))
	h_api.Handle("/compress", false,
		method().HandleFunc("POST", a.serveCompress))
	h_api.Handle("/decompress", false,
		method().HandleFunc("POST", a.serveDecompress))
	h_api.Handle("/info", false,
		method().HandleFunc("GET", a.serveInfo))

	h_apir := handler.NewRegexPath()
	h_api.Fallback(h_apir)

	h_apir.Handle("/download/{{id:[0-9a-z]+}}", false,
		method().Handle("GET", http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				a.serveDownload(w, r, handler.Var(r, "id"))
			})))

	notFound := handler.StatusHandler(a.r.RenderError, http.StatusNotFound)
	h_apir.Fallback(notFound)

	h := handler.NewSimplePath()
	h.Handle("/api", true, h_api)
	h.Fallback(notFound)

	var h_root http.Handler = handler.NewCleanPath(h)

	if cfg.CORS != nil {
		c, err := handler.NewCORS(*cfg.CORS, h_root)
		if err != nil {
			return nil, err
		}
		h_root = c
	}
	if cfg.Gzip {
		h_root = gzhttp.GzipHandler(h_root)
	}

	return h_root, nil
}
