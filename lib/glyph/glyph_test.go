package glyph

import (
	"errors"
	"strings"
	"testing"
)

func TestThresholdBoundaries(t *testing.T) {
	cases := []struct {
		v   uint8
		idx int
	}{
		{0, 2},
		{85, 2},
		{86, 1},
		{128, 1},
		{170, 1},
		{171, 0},
		{255, 0},
	}
	for _, c := range cases {
		if got := GlyphIndex(c.v, 3, ModeThreshold); got != c.idx {
			t.Errorf("threshold %d: expected %d got %d", c.v, c.idx, got)
		}
	}
}

func TestLinearIndex(t *testing.T) {
	for _, n := range []int{1, 2, 3, 10, 70} {
		if got := GlyphIndex(0, n, ModeLinear); got != 0 {
			t.Errorf("n=%d v=0: got %d", n, got)
		}
		if got := GlyphIndex(255, n, ModeLinear); got != n-1 {
			t.Errorf("n=%d v=255: expected %d got %d", n, n-1, got)
		}
	}
	// floor(128 * 9 / 255) = 4
	if got := GlyphIndex(128, 10, ModeLinear); got != 4 {
		t.Errorf("n=10 v=128: expected 4 got %d", got)
	}
}

func TestLinearMonotonic(t *testing.T) {
	for _, n := range []int{1, 2, 3, 10, 16, 256} {
		prev := GlyphIndex(0, n, ModeLinear)
		for v := 1; v < 256; v++ {
			idx := GlyphIndex(uint8(v), n, ModeLinear)
			if idx < prev {
				t.Fatalf("n=%d: index dropped from %d to %d at %d", n, prev, idx, v)
			}
			if idx < 0 || idx >= n {
				t.Fatalf("n=%d: index %d out of range at %d", n, idx, v)
			}
			prev = idx
		}
	}
}

func TestThresholdMonotonicInDarkness(t *testing.T) {
	// threshold mode maps brighter to lighter glyph, so index never grows
	prev := GlyphIndex(0, 3, ModeThreshold)
	for v := 1; v < 256; v++ {
		idx := GlyphIndex(uint8(v), 3, ModeThreshold)
		if idx > prev {
			t.Fatalf("index grew from %d to %d at %d", prev, idx, v)
		}
		prev = idx
	}
}

func TestQuantizeScenario(t *testing.T) {
	px, err := NewPixelGrid(4, 2, []uint8{
		0, 128, 255, 64,
		200, 90, 30, 10,
	})
	if err != nil {
		t.Fatal("NewPixelGrid:", err)
	}
	s, err := Quantize(px, ThresholdAlphabet, ModeThreshold)
	if err != nil {
		t.Fatal("Quantize:", err)
	}
	const exp = "@*-@\n-*@@"
	if s != exp {
		t.Errorf("expected %q got %q", exp, s)
	}
}

// modes read the alphabet in opposite directions: linear maps black
// to first glyph, threshold maps black to last (densest) one.
func TestBlackPerMode(t *testing.T) {
	px, err := NewPixelGrid(2, 1, []uint8{0, 255})
	if err != nil {
		t.Fatal("NewPixelGrid:", err)
	}
	s, err := Quantize(px, DefaultAlphabet, ModeLinear)
	if err != nil {
		t.Fatal("Quantize linear:", err)
	}
	if s != " @" {
		t.Errorf("linear: expected %q got %q", " @", s)
	}
	s, err = Quantize(px, ThresholdAlphabet, ModeThreshold)
	if err != nil {
		t.Fatal("Quantize threshold:", err)
	}
	if s != "@-" {
		t.Errorf("threshold: expected %q got %q", "@-", s)
	}
}

func TestQuantizeShape(t *testing.T) {
	a := MustAlphabet("░▒▓█")
	for _, sz := range [][2]int{{1, 1}, {7, 1}, {1, 5}, {13, 9}} {
		w, h := sz[0], sz[1]
		pix := make([]uint8, w*h)
		for i := range pix {
			pix[i] = uint8(i * 37)
		}
		px, err := NewPixelGrid(w, h, pix)
		if err != nil {
			t.Fatal(err)
		}
		s, err := Quantize(px, a, ModeLinear)
		if err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(s, "\n")
		if len(lines) != h {
			t.Fatalf("%dx%d: got %d lines", w, h, len(lines))
		}
		for i, l := range lines {
			if n := len([]rune(l)); n != w {
				t.Errorf("%dx%d: line %d has %d glyphs", w, h, i, n)
			}
		}
		if strings.HasSuffix(s, "\n") {
			t.Errorf("%dx%d: trailing newline", w, h)
		}
	}
}

func TestQuantizeInvalid(t *testing.T) {
	good, _ := NewPixelGrid(1, 1, []uint8{0})
	cases := []struct {
		name string
		px   *PixelGrid
		a    Alphabet
		m    Mode
	}{
		{"nil grid", nil, DefaultAlphabet, ModeLinear},
		{"zero width", &PixelGrid{Width: 0, Height: 1}, DefaultAlphabet, ModeLinear},
		{"short pix", &PixelGrid{Width: 2, Height: 2, Pix: []uint8{1}}, DefaultAlphabet, ModeLinear},
		{"empty alphabet", good, nil, ModeLinear},
		{"threshold with 10 glyphs", good, DefaultAlphabet, ModeThreshold},
		{"unknown mode", good, DefaultAlphabet, Mode(42)},
	}
	for _, c := range cases {
		_, err := Quantize(c.px, c.a, c.m)
		var ie *InputError
		if !errors.As(err, &ie) {
			t.Errorf("%s: expected InputError, got %v", c.name, err)
		}
	}
}

func TestNewPixelGridInvalid(t *testing.T) {
	if _, err := NewPixelGrid(0, 3, nil); err == nil {
		t.Error("zero width accepted")
	}
	if _, err := NewPixelGrid(2, 2, make([]uint8, 3)); err == nil {
		t.Error("short buffer accepted")
	}
}

func TestNewAlphabet(t *testing.T) {
	bad := []string{"", "ab#", "a$b", "a1", "a\nb", "aa", "\xff"}
	for _, s := range bad {
		if _, err := NewAlphabet(s); err == nil {
			t.Errorf("%q: expected error", s)
		}
	}
	// decomposed e + combining acute gets composed into single glyph
	a, err := NewAlphabet(" e\u0301")
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 2 || a[1] != '\u00e9' {
		t.Errorf("expected NFC composed alphabet, got %q", a.String())
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeLinear, ModeThreshold} {
		pm, err := ParseMode(m.String())
		if err != nil || pm != m {
			t.Errorf("%v: got %v, %v", m, pm, err)
		}
	}
	if _, err := ParseMode("THRESHOLD"); err != nil {
		t.Error("case-insensitive parse failed:", err)
	}
	if _, err := ParseMode("perceptual"); err == nil {
		t.Error("unknown mode accepted")
	}
}
