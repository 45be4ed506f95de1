package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"asciirle/lib/asciiconv"
	fl "asciirle/lib/filelogger"
	"asciirle/lib/glyph"
	. "asciirle/lib/logx"
	"asciirle/lib/rlecodec"
)

func readInput(fn string) ([]byte, error) {
	if fn == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(fn)
}

// inputText drops single line terminator which editors and our own
// output add at end of file; the codec would treat it as art.
func inputText(b []byte) string {
	if n := len(b); n != 0 && b[n-1] == '\n' {
		b = bytes.TrimSuffix(b[:n-1], []byte{'\r'})
	}
	return string(b)
}

func main() {
	width := flag.Int("width", asciiconv.DefaultConfig.DefaultWidth, "output width in glyphs")
	mode := flag.String("mode", asciiconv.DefaultConfig.Mode.String(), "quantization mode (linear or threshold)")
	alphabet := flag.String("alphabet", "", "glyphs from lightest to densest, overrides default for mode")
	compress := flag.Bool("compress", false, "print run-length encoded art")
	decode := flag.Bool("decode", false, "inputs are run-length encoded text, print decoded art")
	text := flag.Bool("text", false, "inputs are art text, not images")
	stats := flag.Bool("stats", false, "print compression stats to stderr")
	loglevel := flag.String("loglevel", "warn", "log level")

	flag.Parse()

	lvl, err := ParseLevel(*loglevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad -loglevel: %v\n", err)
		os.Exit(2)
	}
	m, err := glyph.ParseMode(*mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad -mode: %v\n", err)
		os.Exit(2)
	}

	lgr, err := fl.NewFileLogger(os.Stderr, lvl, fl.ColorAuto)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fl.NewFileLogger error: %v\n", err)
		os.Exit(1)
	}
	mlg := NewLogToX(lgr, "main")

	cfg := asciiconv.DefaultConfig
	cfg.Mode = m
	if *width > cfg.MaxWidth {
		cfg.MaxWidth = *width
	}
	if *alphabet != "" {
		if m == glyph.ModeThreshold {
			cfg.ThresholdAlphabet = *alphabet
		} else {
			cfg.Alphabet = *alphabet
		}
	}
	conv, err := asciiconv.New(cfg, lgr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad options: %v\n", err)
		os.Exit(2)
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [options] file... (- for stdin)\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	failed := false
	for _, arg := range args {
		b, err := readInput(arg)
		if err != nil {
			mlg.LogPrintf(ERROR, "reading %q: %v", arg, err)
			failed = true
			continue
		}

		if *decode {
			data := inputText(b)
			art, err := conv.Decode(data)
			if err != nil {
				mlg.LogPrintf(ERROR, "decoding %q: %v", arg, err)
				failed = true
				continue
			}
			fmt.Fprintln(out, art)
			if *stats {
				fmt.Fprintf(os.Stderr, "%s: %v\n", arg, rlecodec.Stats(art, data))
			}
			continue
		}

		var art string
		if *text {
			art = inputText(b)
		} else {
			cv, err := conv.ConvertImage(bytes.NewReader(b), *width, m)
			if err != nil {
				mlg.LogPrintf(ERROR, "converting %q: %v", arg, err)
				failed = true
				continue
			}
			mlg.LogPrintf(INFO, "%q: %s %dx%d -> %dx%d",
				arg, cv.Source.Format, cv.Source.Width, cv.Source.Height,
				cv.Width, cv.Height)
			art = cv.Art
		}

		if !*compress && !*stats {
			fmt.Fprintln(out, art)
			continue
		}
		c, err := conv.Compress(art)
		if err != nil {
			mlg.LogPrintf(ERROR, "compressing %q: %v", arg, err)
			failed = true
			continue
		}
		if *compress {
			fmt.Fprintln(out, c.Data)
		} else {
			fmt.Fprintln(out, art)
		}
		if *stats {
			fmt.Fprintf(os.Stderr, "%s: %v\n", arg, c.Info)
		}
	}

	if failed {
		out.Flush()
		os.Exit(1)
	}
}
