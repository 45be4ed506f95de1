package filelogger

import (
	"bufio"
	"bytes"
	"io"
)

var _ io.Writer = (*lineWriter)(nil)

// lineWriter puts message header in front of each line of message text,
// so that multiline errors stay greppable per line.
type lineWriter struct {
	w   *bufio.Writer
	hdr bytes.Buffer // header for current message
	mid bool         // inside line, header already written
	err error        // first write error of current message
}

// begin starts new message; header is filled in by caller afterwards.
func (lw *lineWriter) begin() {
	lw.hdr.Reset()
	lw.mid = false
	lw.err = nil
}

func (lw *lineWriter) put(b []byte) {
	if lw.err == nil {
		_, lw.err = lw.w.Write(b)
	}
}

func (lw *lineWriter) Write(b []byte) (int, error) {
	for rest := b; len(rest) != 0; {
		if !lw.mid {
			lw.put(lw.hdr.Bytes())
			lw.mid = true
		}
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			lw.put(rest)
			break
		}
		lw.put(rest[:i+1])
		rest = rest[i+1:]
		lw.mid = false
	}
	if lw.err != nil {
		return 0, lw.err
	}
	return len(b), nil
}

// end terminates last line if message didn't and flushes.
func (lw *lineWriter) end() error {
	if lw.mid {
		lw.put([]byte{'\n'})
		lw.mid = false
	}
	if err := lw.w.Flush(); lw.err == nil {
		lw.err = err
	}
	return lw.err
}
