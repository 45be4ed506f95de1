package asciiconv

// image -> ascii art -> run-length text, and back

import (
	"fmt"
	"io"

	"asciirle/lib/glyph"
	"asciirle/lib/imgsource"
	. "asciirle/lib/logx"
	"asciirle/lib/rlecodec"
)

type Config struct {
	DefaultWidth      int
	MaxWidth          int
	Mode              glyph.Mode
	Alphabet          string // for glyph.ModeLinear
	ThresholdAlphabet string // for glyph.ModeThreshold, exactly 3 glyphs
	// MaxDecodedSize limits Decode output, 0 means no limit
	MaxDecodedSize int
	Image          imgsource.Config
}

var DefaultConfig = Config{
	DefaultWidth:      80,
	MaxWidth:          500,
	Mode:              glyph.ModeThreshold,
	Alphabet:          glyph.DefaultAlphabet.String(),
	ThresholdAlphabet: glyph.ThresholdAlphabet.String(),
	MaxDecodedSize:    16 * 1024 * 1024,
	Image:             imgsource.DefaultConfig,
}

// Converter is immutable once built and safe for concurrent use.
type Converter struct {
	defWidth int
	maxWidth int
	defMode  glyph.Mode
	maxDec   int
	alpha    [2]glyph.Alphabet // indexed by mode
	loader   *imgsource.Loader
	log      Logger
}

func New(cfg Config, lx LoggerX) (*Converter, error) {
	if cfg.DefaultWidth < 1 {
		return nil, fmt.Errorf("default width %d must be positive", cfg.DefaultWidth)
	}
	if cfg.MaxWidth < cfg.DefaultWidth {
		return nil, fmt.Errorf(
			"max width %d below default width %d", cfg.MaxWidth, cfg.DefaultWidth)
	}
	c := &Converter{
		defWidth: cfg.DefaultWidth,
		maxWidth: cfg.MaxWidth,
		defMode:  cfg.Mode,
		maxDec:   cfg.MaxDecodedSize,
		loader:   cfg.Image.NewLoader(lx),
		log:      NewLogToX(lx, "asciiconv"),
	}

	var err error
	c.alpha[glyph.ModeLinear], err = glyph.NewAlphabet(cfg.Alphabet)
	if err != nil {
		return nil, fmt.Errorf("linear alphabet: %w", err)
	}
	c.alpha[glyph.ModeThreshold], err = glyph.NewAlphabet(cfg.ThresholdAlphabet)
	if err != nil {
		return nil, fmt.Errorf("threshold alphabet: %w", err)
	}
	if n := len(c.alpha[glyph.ModeThreshold]); n != 3 {
		return nil, fmt.Errorf("threshold alphabet has %d glyphs, needs 3", n)
	}
	if _, err = c.checkMode(cfg.Mode); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Converter) checkMode(m glyph.Mode) (glyph.Alphabet, error) {
	if m < 0 || int(m) >= len(c.alpha) {
		return nil, &glyph.InputError{Reason: fmt.Sprintf("unknown mode %d", int(m))}
	}
	return c.alpha[m], nil
}

func (c *Converter) DefaultWidth() int       { return c.defWidth }
func (c *Converter) MaxWidth() int           { return c.maxWidth }
func (c *Converter) DefaultMode() glyph.Mode { return c.defMode }
func (c *Converter) Alphabet(m glyph.Mode) string {
	if a, err := c.checkMode(m); err == nil {
		return a.String()
	}
	return ""
}

// Convert quantizes already decoded grid with alphabet configured for mode.
func (c *Converter) Convert(px *glyph.PixelGrid, m glyph.Mode) (string, error) {
	a, err := c.checkMode(m)
	if err != nil {
		return "", err
	}
	return glyph.Quantize(px, a, m)
}

// Conversion is result of ConvertImage.
type Conversion struct {
	Art    string
	Width  int
	Height int
	Mode   glyph.Mode
	Source imgsource.Info
}

// ConvertImage decodes image from r and converts it.
// width 0 means configured default.
func (c *Converter) ConvertImage(
	r io.ReadSeeker, width int, m glyph.Mode) (res Conversion, err error) {

	if width == 0 {
		width = c.defWidth
	}
	if width < 0 || width > c.maxWidth {
		return res, &glyph.InputError{Reason: fmt.Sprintf(
			"width %d out of range 1..%d", width, c.maxWidth)}
	}
	if _, err = c.checkMode(m); err != nil {
		return
	}

	px, info, err := c.loader.Load(r, width)
	if err != nil {
		return
	}
	art, err := c.Convert(px, m)
	if err != nil {
		return
	}

	c.log.LogPrintf(DEBUG, "converted %s %dx%d into %dx%d %v art, %.2f KiB",
		info.Format, info.Width, info.Height, px.Width, px.Height, m,
		float64(len(art))/1024)

	return Conversion{
		Art:    art,
		Width:  px.Width,
		Height: px.Height,
		Mode:   m,
		Source: info,
	}, nil
}

// Compressed is compress result as sent to clients.
type Compressed struct {
	Data string                   `json:"compressed_data"`
	Info rlecodec.CompressionInfo `json:"compression_info"`
}

// Compress run-length encodes art. Text containing codec syntax characters
// is rejected since it couldn't be decoded back.
func (c *Converter) Compress(art string) (Compressed, error) {
	if err := rlecodec.CheckText(art); err != nil {
		return Compressed{}, err
	}
	data := rlecodec.Encode(art)
	return Compressed{Data: data, Info: rlecodec.Stats(art, data)}, nil
}

// Decode reverses Compress.
func (c *Converter) Decode(data string) (string, error) {
	return rlecodec.DecodeLimit(data, c.maxDec)
}
