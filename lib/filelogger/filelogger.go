package filelogger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	colorable "github.com/mattn/go-colorable"
	isatty "github.com/mattn/go-isatty"

	"asciirle/lib/logx"
)

type UseColor int

const (
	ColorAuto UseColor = iota
	ColorOn
	ColorOff
)

func ParseColor(s string) (UseColor, error) {
	switch s {
	case "", "auto":
		return ColorAuto, nil
	case "on", "always", "yes":
		return ColorOn, nil
	case "off", "never", "no":
		return ColorOff, nil
	}
	return 0, fmt.Errorf("unknown color mode %q", s)
}

func (c *UseColor) UnmarshalText(b []byte) (err error) {
	*c, err = ParseColor(string(b))
	return
}

type logLevels [logx.LevelCount][]byte

var levelstrings = [2]logLevels{
	// uncolored
	{
		logx.DEBUG:    []byte("   DEBUG"),
		logx.INFO:     []byte("    INFO"),
		logx.NOTICE:   []byte("  NOTICE"),
		logx.WARN:     []byte(" WARNING"),
		logx.ERROR:    []byte("   ERROR"),
		logx.CRITICAL: []byte("CRITICAL"),
	},
	// colored
	{
		logx.DEBUG:    []byte("\033[37m   DEBUG\033[0m"),
		logx.INFO:     []byte("\033[34m    INFO\033[0m"),
		logx.NOTICE:   []byte("\033[32m  NOTICE\033[0m"),
		logx.WARN:     []byte("\033[33m WARNING\033[0m"),
		logx.ERROR:    []byte("\033[31m   ERROR\033[0m"),
		logx.CRITICAL: []byte("\033[35mCRITICAL\033[0m"),
	},
}

var formatstrings = [2]string{
	// uncolored
	" %s [%s] ",
	// colored
	" %s [\033[36m%s\033[0m] ",
}

type day struct {
	Y int
	M time.Month
	D int
}

var _ logx.LoggerX = (*FileLogger)(nil)

// FileLogger prefixes every line of every message with time, level and
// section. Safe for concurrent use.
type FileLogger struct {
	w lineWriter
	d day
	l sync.Mutex
	t uint // 1 if colored
	m logx.Level
}

var nowTime = time.Now

// NewFileLogger enables color for terminals unless c is ColorOff.
func NewFileLogger(f *os.File, logLevel logx.Level, c UseColor) (*FileLogger, error) {
	if f == nil {
		return nil, fmt.Errorf("nil log file")
	}
	fd := f.Fd()
	if c == ColorOn ||
		(c == ColorAuto && (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))) {

		return NewLogger(colorable.NewColorable(f), logLevel, true), nil
	}
	return NewLogger(f, logLevel, false), nil
}

// NewLogger logs to arbitrary writer, without terminal detection.
func NewLogger(w io.Writer, logLevel logx.Level, color bool) *FileLogger {
	l := &FileLogger{m: logLevel}
	if color {
		l.t = 1
	}
	l.w.w = bufio.NewWriter(w)
	return l
}

func (l *FileLogger) Level() logx.Level {
	return l.m
}

func (l *FileLogger) writeTime(t time.Time) {
	var d day
	d.Y, d.M, d.D = t.Date()
	h, m, s := t.Hour(), t.Minute(), t.Second()
	if l.t != 0 {
		// colored output is for humans, print date only when it changes
		if l.d != d {
			l.d = d
			fmt.Fprintf(l.w.w, "\033[1mdate is %d-%02d-%02d\033[0m\n", d.Y, d.M, d.D)
		}
		fmt.Fprintf(&l.w.hdr, "%02d:%02d:%02d", h, m, s)
	} else {
		fmt.Fprintf(&l.w.hdr, "%d-%02d-%02d %02d:%02d:%02d", d.Y, d.M, d.D, h, m, s)
	}
}

func (l *FileLogger) prepareWrite(section string, lvl logx.Level) {
	l.w.begin()
	l.writeTime(nowTime().UTC())
	fmt.Fprintf(&l.w.hdr, formatstrings[l.t], levelstrings[l.t][lvl], section)
}

func (l *FileLogger) LogPrintX(section string, lvl logx.Level, v ...interface{}) {
	if l.m > lvl {
		return
	}

	l.l.Lock()
	defer l.l.Unlock()

	l.prepareWrite(section, lvl)
	fmt.Fprint(&l.w, v...)
	l.w.end()
}

func (l *FileLogger) LogPrintlnX(section string, lvl logx.Level, v ...interface{}) {
	if l.m > lvl {
		return
	}

	l.l.Lock()
	defer l.l.Unlock()

	l.prepareWrite(section, lvl)
	fmt.Fprintln(&l.w, v...)
	l.w.end()
}

func (l *FileLogger) LogPrintfX(section string, lvl logx.Level, fmts string, v ...interface{}) {
	if l.m > lvl {
		return
	}

	l.l.Lock()
	defer l.l.Unlock()

	l.prepareWrite(section, lvl)
	fmt.Fprintf(&l.w, fmts, v...)
	l.w.end()
}

// LockWriteX keeps logger locked until Close if it returns true.
func (l *FileLogger) LockWriteX(section string, lvl logx.Level) bool {
	if l.m > lvl {
		return false
	}

	l.l.Lock()
	l.prepareWrite(section, lvl)
	return true
}

func (l *FileLogger) Close() error {
	l.w.end()
	l.l.Unlock()
	return nil
}

func (l *FileLogger) Write(b []byte) (int, error) {
	return l.w.Write(b)
}
