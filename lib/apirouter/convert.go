package apirouter

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"asciirle/lib/artstore"
	"asciirle/lib/asciiconv"
	"asciirle/lib/glyph"
	. "asciirle/lib/logx"
)

const (
	fieldImage    = "image"
	fieldWidth    = "width"
	fieldMode     = "mode"
	fieldCompress = "compress"
)

type convertForm struct {
	image    []byte
	width    string
	mode     string
	compress string
}

type convertResult struct {
	ASCIIArt  string     `json:"ascii_art"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Mode      glyph.Mode `json:"mode"`
	ArtID     string     `json:"art_id,omitempty"`
	SourceID  string     `json:"source_id,omitempty"`
	SizeBytes int        `json:"size_bytes"`

	*asciiconv.Compressed
	RLEID string `json:"rle_id,omitempty"`
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > max {
		return nil, errTooLarge
	}
	return b, nil
}

func (a *apiRouter) readConvertForm(
	w http.ResponseWriter, r *http.Request) (f convertForm, err error) {

	ct, param, e := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if e != nil {
		return f, errorf(http.StatusBadRequest,
			"failed to parse content type: %v", e)
	}
	if ct != "multipart/form-data" || param["boundary"] == "" {
		return f, errorf(http.StatusUnsupportedMediaType,
			"expected multipart/form-data, got %q", ct)
	}

	body := http.MaxBytesReader(w, r.Body, a.maxFile+formSlack)
	mr := multipart.NewReader(body, param["boundary"])
	haveImage := false
	for {
		var p *multipart.Part
		p, err = mr.NextPart()
		if err == io.EOF {
			err = nil
			break
		}
		if err != nil {
			return
		}

		var dst *string
		switch p.FormName() {
		case fieldImage:
			if haveImage {
				p.Close()
				return f, errorf(http.StatusBadRequest, "multiple image files")
			}
			f.image, err = readLimited(p, a.maxFile)
			p.Close()
			if err != nil {
				return
			}
			haveImage = true
			continue
		case fieldWidth:
			dst = &f.width
		case fieldMode:
			dst = &f.mode
		case fieldCompress:
			dst = &f.compress
		default:
			// unknown fields are skipped
			p.Close()
			continue
		}

		var b []byte
		b, err = readLimited(p, maxFieldSize)
		p.Close()
		if err == errTooLarge {
			return f, errorf(http.StatusBadRequest,
				"form field %q too long", p.FormName())
		}
		if err != nil {
			return
		}
		*dst = strings.TrimSpace(string(b))
	}
	if !haveImage || len(f.image) == 0 {
		return f, errorf(http.StatusBadRequest, "no image file provided")
	}
	return
}

func (a *apiRouter) checkType(data []byte) error {
	ct := http.DetectContentType(data)
	if mt, _, e := mime.ParseMediaType(ct); e == nil {
		ct = mt
	}
	for _, g := range a.types {
		if g.Match(ct) {
			return nil
		}
	}
	return errorf(http.StatusUnsupportedMediaType,
		"unsupported content type %q", ct)
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "0", "false", "off", "no":
		return false, nil
	case "1", "true", "on", "yes":
		return true, nil
	}
	return false, &glyph.InputError{Reason: "invalid compress flag " + strconv.Quote(s)}
}

// store saves data and returns its id. Store failures are logged and
// reported as missing id since conversion result is still useful.
func (a *apiRouter) storeData(k artstore.Kind, ext string, data []byte) string {
	if a.store == nil {
		return ""
	}
	id, err := a.store.PutExt(k, ext, data)
	if err != nil {
		a.log.LogPrintf(ERROR, "failed to store %v: %v", k, err)
		return ""
	}
	return id
}

func (a *apiRouter) serveConvert(w http.ResponseWriter, r *http.Request) {
	f, err := a.readConvertForm(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err = a.checkType(f.image); err != nil {
		a.fail(w, r, err)
		return
	}

	width := 0
	if f.width != "" {
		width, err = strconv.Atoi(f.width)
		if err != nil || width <= 0 {
			a.fail(w, r, &glyph.InputError{
				Reason: "invalid width " + strconv.Quote(f.width)})
			return
		}
	}
	mode := a.conv.DefaultMode()
	if f.mode != "" {
		if mode, err = glyph.ParseMode(f.mode); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	compress, err := parseFlag(f.compress)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	cv, err := a.conv.ConvertImage(bytes.NewReader(f.image), width, mode)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	res := convertResult{
		ASCIIArt:  cv.Art,
		Width:     cv.Width,
		Height:    cv.Height,
		Mode:      cv.Mode,
		SizeBytes: len(cv.Art),
	}
	res.SourceID = a.storeData(artstore.KindSource, "."+cv.Source.Format, f.image)
	res.ArtID = a.storeData(artstore.KindArt, "", []byte(cv.Art))

	if compress {
		c, err := a.conv.Compress(cv.Art)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		res.Compressed = &c
		res.RLEID = a.storeData(artstore.KindRLE, "", []byte(c.Data))
	}

	a.log.LogPrintf(INFO, "converted %s %dx%d to %dx%d %v art (%d bytes)",
		cv.Source.Format, cv.Source.Width, cv.Source.Height,
		cv.Width, cv.Height, cv.Mode, res.SizeBytes)

	a.r.Render(w, 0, &res)
}
