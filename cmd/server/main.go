package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"craftkit.ai/internal/catalogs"
	"craftkit.ai/internal/config"
	"craftkit.ai/internal/jobs"
	"craftkit.ai/internal/persistence/indexdb"
	persistlog "craftkit.ai/internal/persistence/log"
	"craftkit.ai/internal/transport/api"
)

func main() {
	var (
		addr        = flag.String("addr", "", "http listen address (default from config, :8080)")
		configPath  = flag.String("config", "", "path to craftkit.yaml (or set CRAFTKIT_CONFIG)")
		indexPath   = flag.String("index", "", "job index sqlite path (overrides index_path; \":memory:\" allowed)")
		reportPath  = flag.String("report", "", "append conversion outcomes to this .jsonl.zst file (one zstd frame per server run)")
		presetsPath = flag.String("presets", "", "command preset catalog (overrides presets_path)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(config.Path(*configPath))
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if strings.TrimSpace(*addr) != "" {
		cfg.Addr = *addr
	}
	if strings.TrimSpace(*indexPath) != "" {
		cfg.IndexPath = *indexPath
	}
	if strings.TrimSpace(*presetsPath) != "" {
		cfg.PresetsPath = *presetsPath
	}

	presets, err := catalogs.Load(cfg.PresetsPath)
	if err != nil {
		logger.Fatalf("load presets: %v", err)
	}
	logger.Printf("presets=%d digest=%s", len(presets.Presets), presets.Digest[:12])

	rec := &jobs.Recorder{}
	if cfg.IndexPath != "" {
		idx, err := indexdb.OpenSQLite(cfg.IndexPath)
		if err != nil {
			logger.Fatalf("open job index: %v", err)
		}
		defer idx.Close()
		rec.Index = idx
		logger.Printf("job index enabled: %s", cfg.IndexPath)
	}
	if strings.TrimSpace(*reportPath) != "" {
		rep := persistlog.NewReportLogger(*reportPath)
		defer rep.Close()
		rec.Report = rep
	}

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	api.New(cfg, presets, rec, logger).Routes(mux)
	if envBool("CRAFTKIT_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatalf("listen: %v", err)
	}
	logger.Printf("listening on %s", ln.Addr())
	if err := serve(ctx, srv, ln); err != nil {
		logger.Fatalf("serve: %v", err)
	}
	logger.Printf("stopped")
}

// serve runs srv until ctx is done and returns only after Shutdown has drained
// in-flight requests, so deferred closes of the job sinks run after the last handler.
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	<-shutdownDone
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
