package apirouter

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/minio/highwayhash"
	"golang.org/x/xerrors"

	"asciirle/lib/artstore"
	"asciirle/lib/glyph"
	"asciirle/lib/rlecodec"
)

// etag returns strong entity tag of f content and rewinds f.
func (a *apiRouter) etag(f io.ReadSeeker) (string, error) {
	h, err := highwayhash.New64(a.etagKey)
	if err != nil {
		return "", err
	}
	if _, err = io.Copy(h, f); err != nil {
		return "", xerrors.Errorf("etag read: %w", err)
	}
	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return "", xerrors.Errorf("etag seek: %w", err)
	}
	return fmt.Sprintf(`"%016x"`, h.Sum64()), nil
}

func (a *apiRouter) serveDownload(w http.ResponseWriter, r *http.Request, id string) {
	if a.store == nil {
		a.fail(w, r, artstore.ErrNotFound)
		return
	}
	e, err := a.store.Get(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	defer e.F.Close()

	tag, err := a.etag(e.F)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	hdr := w.Header()
	hdr.Set("ETag", tag)
	// content addressed, never changes
	hdr.Set("Cache-Control", "public, max-age=31536000, immutable")
	hdr.Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": e.Name}))
	if e.Kind != artstore.KindSource {
		hdr.Set("Content-Type", "text/plain; charset=utf-8")
	}
	hdr.Set("X-Content-Type-Options", "nosniff")

	// handles If-None-Match and ranges
	http.ServeContent(w, r, e.Name, e.Mod, e.F)
}

type infoResult struct {
	Modes        []glyph.Mode      `json:"modes"`
	DefaultMode  glyph.Mode        `json:"default_mode"`
	Alphabets    map[string]string `json:"alphabets"`
	DefaultWidth int               `json:"default_width"`
	MaxWidth     int               `json:"max_width"`
	MaxFileSize  int64             `json:"max_file_size"`
	MaxTextSize  int64             `json:"max_text_size"`
	AllowedTypes []string          `json:"allowed_types"`
	Algorithm    string            `json:"algorithm"`
	Downloads    bool              `json:"downloads"`
}

func (a *apiRouter) serveInfo(w http.ResponseWriter, r *http.Request) {
	modes := []glyph.Mode{glyph.ModeLinear, glyph.ModeThreshold}
	res := infoResult{
		Modes:        modes,
		DefaultMode:  a.conv.DefaultMode(),
		Alphabets:    make(map[string]string, len(modes)),
		DefaultWidth: a.conv.DefaultWidth(),
		MaxWidth:     a.conv.MaxWidth(),
		MaxFileSize:  a.maxFile,
		MaxTextSize:  a.maxText,
		AllowedTypes: a.typePats,
		Algorithm:    rlecodec.Algorithm,
		Downloads:    a.store != nil,
	}
	for _, m := range modes {
		res.Alphabets[m.String()] = a.conv.Alphabet(m)
	}
	a.r.Render(w, 0, &res)
}
