package apirouter

import (
	"encoding/json"
	"mime"
	"net/http"

	"asciirle/lib/artstore"
	"asciirle/lib/asciiconv"
	. "asciirle/lib/logx"
)

type compressRequest struct {
	Text *string `json:"text"`
}

type compressResult struct {
	asciiconv.Compressed
	RLEID string `json:"rle_id,omitempty"`
}

type decompressRequest struct {
	Data *string `json:"compressed_data"`
}

type decompressResult struct {
	Text         string `json:"text"`
	OriginalSize int    `json:"original_size"`
}

// readText reads text either as raw text/plain body or as field of JSON
// object decoded into jv. field returns pointer to that field after decoding.
func (a *apiRouter) readText(
	w http.ResponseWriter, r *http.Request,
	jv interface{}, field func() *string, fname string) (string, error) {

	ct := "text/plain"
	if h := r.Header.Get("Content-Type"); h != "" {
		mt, _, e := mime.ParseMediaType(h)
		if e != nil {
			return "", errorf(http.StatusBadRequest,
				"failed to parse content type: %v", e)
		}
		ct = mt
	}

	body := http.MaxBytesReader(w, r.Body, a.maxText)
	switch ct {
	case "text/plain":
		b, err := readLimited(body, a.maxText)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case "application/json":
		jd := json.NewDecoder(body)
		if err := jd.Decode(jv); err != nil {
			code, _ := errorCode(err)
			if code == http.StatusRequestEntityTooLarge {
				return "", err
			}
			return "", errorf(http.StatusBadRequest,
				"failed to parse content: %v", err)
		}
		s := field()
		if s == nil {
			return "", errorf(http.StatusBadRequest, "no %s provided", fname)
		}
		return *s, nil
	default:
		return "", errorf(http.StatusUnsupportedMediaType,
			"bad Content-Type %q", ct)
	}
}

func (a *apiRouter) serveCompress(w http.ResponseWriter, r *http.Request) {
	var req compressRequest
	text, err := a.readText(w, r, &req,
		func() *string { return req.Text }, "text")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	c, err := a.conv.Compress(text)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	res := compressResult{Compressed: c}
	if text != "" {
		res.RLEID = a.storeData(artstore.KindRLE, "", []byte(c.Data))
	}

	a.log.LogPrintf(DEBUG, "compressed %v", c.Info)
	a.r.Render(w, 0, &res)
}

func (a *apiRouter) serveDecompress(w http.ResponseWriter, r *http.Request) {
	var req decompressRequest
	data, err := a.readText(w, r, &req,
		func() *string { return req.Data }, "compressed_data")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	text, err := a.conv.Decode(data)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.log.LogPrintf(DEBUG, "decompressed %d bytes into %d", len(data), len(text))
	a.r.Render(w, 0, &decompressResult{Text: text, OriginalSize: len(text)})
}
