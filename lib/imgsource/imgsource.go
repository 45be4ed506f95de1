package imgsource

// decodes uploaded images into grayscale grids sized for glyph output

import (
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"asciirle/lib/glyph"
	"asciirle/lib/imgsource/internal/exifhelper"
	. "asciirle/lib/logx"
)

// glyph cells are roughly twice as tall as wide
const cellAspect = 0.5

type Config struct {
	MaxWidth, MaxHeight int
	MaxPixels           int
	MaxFileSize         int64
	Filter              imaging.ResampleFilter
	Background          color.Color // transparent areas are flattened onto it
}

var DefaultConfig = Config{
	MaxWidth:    8192,
	MaxHeight:   8192,
	MaxPixels:   4096 * 4096,
	MaxFileSize: 16 * 1024 * 1024,
	Filter:      imaging.Lanczos,
	Background:  color.White,
}

// Info describes decoded source image.
type Info struct {
	Format      string // as registered with image package
	Width       int    // upright width
	Height      int    // upright height
	Orientation int    // EXIF orientation, 1 if none
}

type Loader struct {
	cfg Config
	log Logger
}

func (c Config) NewLoader(lx LoggerX) *Loader {
	if c.Filter.Kernel == nil && c.Filter.Support == 0 {
		c.Filter = imaging.Lanczos
	}
	if c.Background == nil {
		c.Background = color.White
	}
	return &Loader{cfg: c, log: NewLogToX(lx, "imgsource")}
}

func invalid(reason string) error {
	return &glyph.InputError{Reason: reason}
}

// GridSize returns rows for cols wide glyph grid of w x h image.
func GridSize(w, h, cols int) (int, int) {
	rows := int(math.Round(float64(cols) * float64(h) / float64(w) * cellAspect))
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

func (l *Loader) checkLimits(w, h int) bool {
	return (l.cfg.MaxWidth <= 0 || w <= l.cfg.MaxWidth) &&
		(l.cfg.MaxHeight <= 0 || h <= l.cfg.MaxHeight) &&
		(l.cfg.MaxPixels <= 0 || w*h <= l.cfg.MaxPixels)
}

// Load decodes image from r and produces cols wide grayscale grid.
func (l *Loader) Load(r io.ReadSeeker, cols int) (
	px *glyph.PixelGrid, info Info, err error) {

	if cols < 1 {
		return nil, info, invalid("output width must be positive")
	}

	if l.cfg.MaxFileSize > 0 {
		var sz int64
		sz, err = r.Seek(0, io.SeekEnd)
		if err != nil {
			return
		}
		if sz > l.cfg.MaxFileSize {
			l.log.LogPrintf(DEBUG, "file size %d over limit", sz)
			return nil, info, invalid("image file too large")
		}
		if sz == 0 {
			return nil, info, invalid("empty image file")
		}
	}

	if _, err = r.Seek(0, io.SeekStart); err != nil {
		return
	}
	imgcfg, cfgfmt, ex := image.DecodeConfig(r)
	if ex != nil {
		l.log.LogPrintf(DEBUG, "DecodeConfig err: %v", ex)
		return nil, info, invalid("unreadable image")
	}
	switch cfgfmt {
	case "jpeg", "png", "gif", "webp", "bmp":
		l.log.LogPrintf(DEBUG, "detected OK format %q", cfgfmt)
	default:
		l.log.LogPrintf(DEBUG, "detected NAK format %q", cfgfmt)
		return nil, info, invalid("unsupported image format " + cfgfmt)
	}
	if imgcfg.Width < 1 || imgcfg.Height < 1 {
		return nil, info, invalid("image has no pixels")
	}
	if !l.checkLimits(imgcfg.Width, imgcfg.Height) {
		l.log.LogPrintf(DEBUG, "%dx%d constrained by limits", imgcfg.Width, imgcfg.Height)
		return nil, info, invalid("image dimensions too large")
	}

	if _, err = r.Seek(0, io.SeekStart); err != nil {
		return
	}
	orient := 1
	if cfgfmt == "jpeg" {
		orient = exifhelper.Orientation(r)
		if _, err = r.Seek(0, io.SeekStart); err != nil {
			return
		}
	}

	oimg, imgfmt, ex := image.Decode(r)
	if ex != nil {
		l.log.LogPrintf(DEBUG, "Decode err: %v", ex)
		return nil, info, invalid("corrupt image data")
	}

	ob := oimg.Bounds()
	info.Format = imgfmt
	info.Orientation = orient
	info.Width, info.Height = exifhelper.RotWH(orient, ob.Dx(), ob.Dy())

	cols, rows := GridSize(info.Width, info.Height, cols)
	// resize before rotating, it's cheaper on smaller image
	rw, rh := exifhelper.RotWH(orient, cols, rows)

	// flatten transparency first
	bg := imaging.New(ob.Dx(), ob.Dy(), l.cfg.Background)
	flat := imaging.Overlay(bg, oimg, image.Pt(0, 0), 1.0)

	timg := imaging.Resize(flat, rw, rh, l.cfg.Filter)
	if orient != 1 {
		timg = exifhelper.Apply(orient, timg)
	}
	timg = imaging.Grayscale(timg)

	l.log.LogPrintf(DEBUG, "%s %dx%d (orient %d) -> %dx%d",
		imgfmt, info.Width, info.Height, orient, cols, rows)

	return grayGrid(timg), info, nil
}

func grayGrid(img *image.NRGBA) *glyph.PixelGrid {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			// R == G == B after grayscale
			pix[y*w+x] = row[x*4]
		}
	}
	return &glyph.PixelGrid{Width: w, Height: h, Pix: pix}
}
