package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	"asciirle/lib/apirouter"
	"asciirle/lib/artstore"
	"asciirle/lib/asciiconv"
	"asciirle/lib/config"
	fl "asciirle/lib/filelogger"
	"asciirle/lib/handler"
	rj "asciirle/lib/jsonrenderer"
	. "asciirle/lib/logx"
)

// httpErrorLog routes net/http server errors into our log.
type httpErrorLog struct{ l Logger }

func (h httpErrorLog) Write(b []byte) (int, error) {
	h.l.LogPrint(WARN, strings.TrimSuffix(string(b), "\n"))
	return len(b), nil
}

func pruneLoop(
	ctx context.Context, st *artstore.Store, maxAge, every time.Duration,
	mlg Logger) {

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		n, err := st.Prune(maxAge)
		if err != nil {
			mlg.LogPrintln(ERROR, "store prune error:", err)
		} else if n != 0 {
			mlg.LogPrintf(INFO, "pruned %d stored artifacts", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func main() {
	var err error

	cfgpath := flag.String("config", "", "TOML config file")
	httpbind := flag.String("httpbind", "", "http listen address, overrides config")
	loglevel := flag.String("loglevel", "", "log level, overrides config")

	flag.Parse()

	cfg := config.Default()
	if *cfgpath != "" {
		cfg, err = config.Load(*cfgpath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	if *httpbind != "" {
		cfg.Server.Bind = *httpbind
	}
	if *loglevel != "" {
		cfg.Log.Level, err = ParseLevel(*loglevel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad -loglevel: %v\n", err)
			os.Exit(1)
		}
	}

	lgr, err := fl.NewFileLogger(os.Stderr, cfg.Log.Level, cfg.Log.Color)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fl.NewFileLogger error: %v\n", err)
		os.Exit(1)
	}
	mlg := NewLogToX(lgr, "main")

	conv, err := asciiconv.New(cfg.AsciiConv(), lgr)
	if err != nil {
		mlg.LogPrintln(CRITICAL, "asciiconv.New error:", err)
		os.Exit(1)
	}

	var st *artstore.Store
	if scfg, ok := cfg.ArtStore(); ok {
		st, err = artstore.Open(scfg, lgr)
		if err != nil {
			mlg.LogPrintln(CRITICAL, "artstore.Open error:", err)
			os.Exit(1)
		}
	} else {
		mlg.LogPrint(NOTICE, "artifact store disabled")
	}

	etagKey, err := cfg.ETagKey()
	if err != nil {
		mlg.LogPrintln(CRITICAL, "config error:", err)
		os.Exit(1)
	}

	var cors *handler.CORSConfig
	if len(cfg.Server.CORSOrigins) != 0 {
		cors = &handler.CORSConfig{
			Origins: cfg.Server.CORSOrigins,
			Headers: []string{"Content-Type"},
			MaxAge:  time.Hour,
		}
	}

	rh, err := apirouter.NewAPIRouter(apirouter.Cfg{
		Converter:    conv,
		Store:        st,
		Renderer:     rj.NewJSONRenderer(rj.Config{Indent: cfg.Server.JSONIndent}, lgr),
		MaxFileSize:  cfg.Upload.MaxFileSize,
		MaxTextSize:  cfg.Convert.MaxTextSize,
		AllowedTypes: cfg.Upload.AllowedTypes,
		CORS:         cors,
		Gzip:         cfg.Server.Gzip,
		ETagKey:      etagKey,
		Log:          lgr,
	})
	if err != nil {
		mlg.LogPrintln(CRITICAL, "apirouter.NewAPIRouter error:", err)
		os.Exit(1)
	}

	ln, err := net.Listen("tcp", cfg.Server.Bind)
	if err != nil {
		mlg.LogPrintln(CRITICAL, "listen error:", err)
		os.Exit(1)
	}
	if cfg.Server.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConns)
	}

	server := &http.Server{
		Handler:      rh,
		ReadTimeout:  cfg.Server.ReadTimeout.D(),
		WriteTimeout: cfg.Server.WriteTimeout.D(),
		ErrorLog:     log.New(httpErrorLog{NewLogToX(lgr, "http")}, "", 0),
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	if st != nil && cfg.Store.MaxAge > 0 && cfg.Store.PruneInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pruneLoop(ctx, st,
				cfg.Store.MaxAge.D(), cfg.Store.PruneInterval.D(), mlg)
		}()
	}

	// graceful shutdown by signal
	shutdownDone := make(chan struct{})
	killc := make(chan os.Signal, 2)
	signal.Notify(killc, os.Interrupt, syscall.SIGTERM)
	go func(c chan os.Signal) {
		for {
			s := <-c
			switch s {
			case os.Interrupt, syscall.SIGTERM:
				signal.Reset(os.Interrupt, syscall.SIGTERM)
				mlg.LogPrintf(NOTICE, "got %v, shutting down", s)
				sctx, scancel := context.WithTimeout(
					context.Background(), cfg.Server.ShutdownTimeout.D())
				if e := server.Shutdown(sctx); e != nil {
					mlg.LogPrintln(WARN, "shutdown error:", e)
				}
				scancel()
				close(shutdownDone)
				return
			}
		}
	}(killc)

	mlg.LogPrintf(NOTICE, "listening on %s", ln.Addr())
	err = server.Serve(ln)
	if err == http.ErrServerClosed {
		// wait for in-flight requests
		<-shutdownDone
	} else if err != nil {
		mlg.LogPrintln(ERROR, "error from Serve:", err)
	}

	cancel()
	wg.Wait()
	mlg.LogPrint(INFO, "bye")
}
