package rlecodec

// run-length codec for glyph text
//
// token forms:
//   #<count><char>  long run: count >= 4, or whitespace run of count >= 2
//   $<count><char>  short run: non-whitespace run of count 2..3
//   <char>          literal
//
// there is no escaping, so '#', '$' and decimal digits must not appear in
// input text; see CheckText.
//
// decoder is strict: count must be 1 to 4 digits and nonzero, anything
// else (#0a, #12345a) is DecodeError even though encoder never emits it.

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// MaxRun is longest run one token can carry.
	MaxRun = 9999
	// maxCountDigits is decimal width of MaxRun.
	maxCountDigits = 4

	longMark  = '#'
	shortMark = '$'
)

// DomainError reports character which codec syntax can't represent.
type DomainError struct {
	Offset int
	Char   rune
}

func (e *DomainError) Error() string {
	return fmt.Sprintf(
		"character %q at offset %d is not encodable", e.Char, e.Offset)
}

func reserved(r rune) bool {
	return r == longMark || r == shortMark || (r >= '0' && r <= '9')
}

// CheckText returns *DomainError for first character of text which would
// break Decode(Encode(text)) == text.
func CheckText(text string) error {
	for i, r := range text {
		if reserved(r) {
			return &DomainError{Offset: i, Char: r}
		}
		if r == utf8.RuneError {
			// only invalid sequence, real U+FFFD is fine
			if _, sz := utf8.DecodeRuneInString(text[i:]); sz == 1 {
				return &DomainError{Offset: i, Char: r}
			}
		}
	}
	return nil
}

func isBlank(ch string) bool {
	return ch == " " || ch == "\n"
}

func writeRun(sb *strings.Builder, ch string, n int) {
	switch {
	case n >= 4 || (isBlank(ch) && n >= 2):
		sb.WriteByte(longMark)
		sb.WriteString(strconv.Itoa(n))
		sb.WriteString(ch)
	case n >= 2:
		sb.WriteByte(shortMark)
		sb.WriteString(strconv.Itoa(n))
		sb.WriteString(ch)
	default:
		for ; n > 0; n-- {
			sb.WriteString(ch)
		}
	}
}

// Encode compresses text. Runs are compared by UTF-8 sequence so output
// stays byte-exact for any input.
func Encode(text string) string {
	if text == "" {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(text) / 2)

	for i := 0; i < len(text); {
		_, sz := utf8.DecodeRuneInString(text[i:])
		ch := text[i : i+sz]
		n := 1
		j := i + sz
		for n < MaxRun && j+sz <= len(text) && text[j:j+sz] == ch {
			n++
			j += sz
		}
		writeRun(&sb, ch, n)
		i = j
	}

	return sb.String()
}
