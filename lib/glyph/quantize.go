package glyph

import (
	"strings"
	"unicode/utf8"
)

// closed bounds of threshold buckets, inclusive
const (
	thresholdDark = 85
	thresholdGrey = 170
)

// GlyphIndex picks alphabet index for intensity v out of n glyphs.
// For ModeThreshold n must be 3.
func GlyphIndex(v uint8, n int, m Mode) int {
	switch m {
	case ModeThreshold:
		switch {
		case v <= thresholdDark:
			return 2
		case v <= thresholdGrey:
			return 1
		default:
			return 0
		}
	default:
		idx := int(v) * (n - 1) / 255
		if idx < 0 {
			idx = 0
		} else if idx > n-1 {
			idx = n - 1
		}
		return idx
	}
}

func checkQuantize(px *PixelGrid, a Alphabet, m Mode) error {
	if !px.valid() {
		if px == nil {
			return invalidInput("no pixel data")
		}
		return invalidInput("grid size %dx%d with %d samples",
			px.Width, px.Height, len(px.Pix))
	}
	if len(a) == 0 {
		return invalidInput("empty alphabet")
	}
	switch m {
	case ModeLinear:
	case ModeThreshold:
		if len(a) != 3 {
			return invalidInput(
				"threshold mode needs 3 glyphs, alphabet has %d", len(a))
		}
	default:
		return invalidInput("unknown mode %d", int(m))
	}
	return nil
}

// Quantize renders px as Height lines of Width glyphs joined by '\n'.
func Quantize(px *PixelGrid, a Alphabet, m Mode) (string, error) {
	if err := checkQuantize(px, a, m); err != nil {
		return "", err
	}

	// precompute whole lookup table, it's only 256 entries
	var lut [256]rune
	for v := range lut {
		lut[v] = a[GlyphIndex(uint8(v), len(a), m)]
	}

	var sb strings.Builder
	sb.Grow(px.Height * (px.Width*maxRuneLen(a) + 1))
	for y := 0; y < px.Height; y++ {
		if y != 0 {
			sb.WriteByte('\n')
		}
		row := px.Pix[y*px.Width : (y+1)*px.Width]
		for _, v := range row {
			sb.WriteRune(lut[v])
		}
	}
	return sb.String(), nil
}

func maxRuneLen(a Alphabet) (n int) {
	for _, r := range a {
		if l := utf8.RuneLen(r); l > n {
			n = l
		}
	}
	return
}
