// Entry point for the recrawl scheduler service — YAML config, chi
// router with optional Basic Auth, one-shot load/dump modes, graceful
// shutdown.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/recrawl/freqsched"
	"github.com/hazyhaar/recrawl/pagedb"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		dump       = flag.Bool("dump", false, "dump the schedule to stdout and exit")
		loadTable  = flag.String("load-table", "", "load a flat frequency table file and exit")
		loadSimple = flag.Bool("load-simple", false, "load the schedule from the page store and exit")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.logLevel(),
	}))
	slog.SetDefault(logger)

	db, err := pagedb.Open(cfg.PageDBPath)
	if err != nil {
		logger.Error("pagedb open", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	opts := []freqsched.Option{
		freqsched.WithPersist(cfg.Persist),
		freqsched.WithLogger(logger),
	}
	if cfg.Margin >= 0 {
		opts = append(opts, freqsched.WithMargin(cfg.Margin))
	}
	if cfg.MaxNCrawls > 0 {
		opts = append(opts, freqsched.WithMaxCrawls(cfg.MaxNCrawls))
	}

	sched, err := freqsched.New(db, cfg.SchedulePath, opts...)
	if err != nil {
		logger.Error("scheduler open", "error", err)
		os.Exit(1)
	}
	defer sched.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *dump:
		if err := sched.Dump(os.Stdout); err != nil {
			logger.Error("dump", "error", err)
			os.Exit(1)
		}
		return
	case *loadTable != "":
		tbl, err := freqsched.LoadFreqTable(*loadTable)
		if err != nil {
			logger.Error("load table", "error", err)
			os.Exit(1)
		}
		if err := sched.LoadTable(ctx, tbl); err != nil {
			logger.Error("load table", "error", err)
			os.Exit(1)
		}
		logger.Info("frequency table loaded", "records", tbl.Len())
		return
	case *loadSimple:
		if err := sched.LoadSimple(ctx, cfg.Load.FreqDefault, cfg.Load.FreqScale); err != nil {
			logger.Error("load simple", "error", err)
			os.Exit(1)
		}
		logger.Info("schedule loaded from page store")
		return
	}

	serve(ctx, cfg, sched, logger)
}

func serve(ctx context.Context, cfg *Config, sched *freqsched.Scheduler, logger *slog.Logger) {
	r := chi.NewRouter()

	if password := os.Getenv("AUTH_PASSWORD"); password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("auth setup", "error", err)
			os.Exit(1)
		}
		r.Use(basicAuth(hash))
	}

	r.Mount("/", sched.Handler())

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("recrawl scheduler listening", "addr", cfg.Listen, "schedule", sched.Path())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server", "error", err)
		os.Exit(1)
	}
}

func basicAuth(hash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, password, ok := r.BasicAuth()
			if !ok || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="recrawl"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
