package rlecodec

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DecodeError describes malformed token stream.
type DecodeError struct {
	Offset int // offset of token start
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed token at offset %d: %s", e.Offset, e.Reason)
}

// ErrOutputLimit is returned by DecodeLimit when output would exceed limit.
var ErrOutputLimit = errors.New("decoded output exceeds size limit")

// Decode reverses Encode.
func Decode(encoded string) (string, error) {
	return DecodeLimit(encoded, 0)
}

// DecodeLimit is Decode which refuses to produce more than limit bytes.
// limit <= 0 means no limit.
func DecodeLimit(encoded string, limit int) (string, error) {
	var sb strings.Builder
	sb.Grow(len(encoded) * 2)

	grow := func(n int) error {
		if limit > 0 && sb.Len()+n > limit {
			return ErrOutputLimit
		}
		return nil
	}

	for i := 0; i < len(encoded); {
		b := encoded[i]
		if b != longMark && b != shortMark {
			if err := grow(1); err != nil {
				return "", err
			}
			sb.WriteByte(b)
			i++
			continue
		}

		tok := i
		i++

		// count
		n := 0
		nd := 0
		for i < len(encoded) && encoded[i] >= '0' && encoded[i] <= '9' {
			nd++
			if nd > maxCountDigits {
				return "", &DecodeError{Offset: tok, Reason: "run count too long"}
			}
			n = n*10 + int(encoded[i]-'0')
			i++
		}
		if nd == 0 {
			if i >= len(encoded) {
				return "", &DecodeError{Offset: tok, Reason: "truncated token"}
			}
			return "", &DecodeError{Offset: tok, Reason: "marker without run count"}
		}
		if n == 0 {
			return "", &DecodeError{Offset: tok, Reason: "zero run count"}
		}

		// run character
		if i >= len(encoded) {
			return "", &DecodeError{Offset: tok, Reason: "run count without character"}
		}
		_, sz := utf8.DecodeRuneInString(encoded[i:])
		ch := encoded[i : i+sz]
		i += sz

		if err := grow(n * sz); err != nil {
			return "", err
		}
		for ; n > 0; n-- {
			sb.WriteString(ch)
		}
	}

	return sb.String(), nil
}
