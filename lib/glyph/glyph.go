package glyph

// intensity to glyph quantization

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// InputError is returned for input which can't be quantized at all.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Reason
}

func invalidInput(f string, v ...interface{}) error {
	return &InputError{Reason: fmt.Sprintf(f, v...)}
}

// PixelGrid is row-major grayscale buffer. Don't modify it after creation.
type PixelGrid struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewPixelGrid(w, h int, pix []uint8) (*PixelGrid, error) {
	if w < 1 || h < 1 {
		return nil, invalidInput("grid size %dx%d", w, h)
	}
	if len(pix) != w*h {
		return nil, invalidInput(
			"pixel data length %d doesn't match %dx%d", len(pix), w, h)
	}
	return &PixelGrid{Width: w, Height: h, Pix: pix}, nil
}

func (g *PixelGrid) At(x, y int) uint8 {
	return g.Pix[y*g.Width+x]
}

func (g *PixelGrid) valid() bool {
	return g != nil && g.Width >= 1 && g.Height >= 1 &&
		len(g.Pix) == g.Width*g.Height
}

// Alphabet is ordered from lightest (sparsest) to darkest (densest).
type Alphabet []rune

const reservedGlyphs = "#$0123456789\n\r"

// NewAlphabet normalizes s to NFC and validates resulting glyphs.
// Glyphs must not collide with run-length codec syntax.
func NewAlphabet(s string) (Alphabet, error) {
	if !utf8.ValidString(s) {
		return nil, invalidInput("alphabet is not valid UTF-8")
	}
	s = norm.NFC.String(s)
	if s == "" {
		return nil, invalidInput("empty alphabet")
	}
	a := Alphabet([]rune(s))
	seen := make(map[rune]struct{}, len(a))
	for _, r := range a {
		if strings.ContainsRune(reservedGlyphs, r) {
			return nil, invalidInput("reserved glyph %q in alphabet", r)
		}
		if _, dup := seen[r]; dup {
			return nil, invalidInput("duplicate glyph %q in alphabet", r)
		}
		seen[r] = struct{}{}
	}
	return a, nil
}

func MustAlphabet(s string) Alphabet {
	a, err := NewAlphabet(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Alphabet) String() string {
	return string(a)
}

var (
	// DefaultAlphabet is used with ModeLinear.
	DefaultAlphabet = MustAlphabet(" .:-=+*%&@")
	// ThresholdAlphabet is white, grey, black.
	ThresholdAlphabet = MustAlphabet("-*@")
)

type Mode int

const (
	ModeLinear Mode = iota
	ModeThreshold
)

var modeNames = [...]string{
	ModeLinear:    "linear",
	ModeThreshold: "threshold",
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(s, n) {
			return Mode(i), nil
		}
	}
	return 0, invalidInput("unknown mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) (err error) {
	*m, err = ParseMode(string(b))
	return
}
