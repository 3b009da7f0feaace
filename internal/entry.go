// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/sitedesk/internal/api"
	"github.com/starford/sitedesk/internal/content"
	"github.com/starford/sitedesk/internal/contentservice"
	"github.com/starford/sitedesk/internal/index"
	"github.com/starford/sitedesk/internal/mcpserver"
	"github.com/starford/sitedesk/internal/siteconfig"
	"github.com/starford/sitedesk/internal/sse"
	"github.com/starford/sitedesk/internal/storage"
	"github.com/starford/sitedesk/internal/taxonomy"
)

const shutdownTimeout = 10 * time.Second

// runtime holds everything the commands share.
type runtime struct {
	cfg     *Config
	logger  *slog.Logger
	scanner *content.Scanner
	db      *index.DB
	closers []io.Closer
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i].Close()
	}
}

// service wires the content service with the optional index and publisher.
func (rt *runtime) service(pub contentservice.Publisher) (*contentservice.Service, error) {
	cfg := rt.cfg
	i18nStore, err := provider(cfg.I18n.Dir)
	if err != nil {
		return nil, fmt.Errorf("init i18n storage: %w", err)
	}
	catStore, err := provider(filepath.Dir(cfg.Categories.Path))
	if err != nil {
		return nil, fmt.Errorf("init categories storage: %w", err)
	}
	siteStore, err := provider(filepath.Dir(cfg.Site.Path))
	if err != nil {
		return nil, fmt.Errorf("init site storage: %w", err)
	}

	opts := []contentservice.Option{contentservice.WithLogger(rt.logger)}
	if rt.db != nil {
		opts = append(opts, contentservice.WithIndex(rt.db))
	}
	if pub != nil {
		opts = append(opts, contentservice.WithPublisher(pub))
	}
	return contentservice.New(rt.scanner,
		taxonomy.NewTranslations(i18nStore, cfg.I18n.Languages),
		taxonomy.NewCategories(catStore, filepath.Base(cfg.Categories.Path)),
		siteconfig.New(siteStore, filepath.Base(cfg.Site.Path)),
		opts...,
	), nil
}

// provider creates dir if needed and opens a storage provider on it.
func provider(dir string) (storage.Provider, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return storage.NewFS(dir)
}

// setup validates the options, installs the logger and opens the content
// tree and, when withIndex is set and configured, the search index.
func setup(app *application, logOut io.Writer, withIndex bool) (*runtime, error) {
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger, logCloser := newLogger(cfg.App, logOut)
	slog.SetDefault(logger)
	rt := &runtime{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_root", cfg.Content.Root),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := provider(cfg.Content.Root)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	rt.scanner = content.NewScanner(store, cfg.Content.Scanner(), logger)

	if withIndex && cfg.SQLite.Enabled() {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			rt.Close()
			return nil, fmt.Errorf("create index dir: %w", err)
		}
		db, err := index.Open(cfg.SQLite.Path)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("init index: %w", err)
		}
		rt.db = db
		rt.closers = append(rt.closers, db)

		res, err := index.Sync(db, rt.scanner, logger)
		if err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		} else {
			logger.Info("Index synced",
				slog.Int("indexed", res.Indexed),
				slog.Int("removed", res.Removed),
				slog.Int("unchanged", res.Unchanged),
				slog.Int("skipped", res.Skipped))
		}
	}
	return rt, nil
}

// Run starts the HTTP admin server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	rt, err := setup(app, app.stdout, true)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logger := rt.cfg, rt.logger

	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()

	svc, err := rt.service(broker)
	if err != nil {
		return err
	}
	apiRouter := api.NewRouter(svc, api.Options{
		AllowRemote: cfg.App.HTTP.AllowRemote,
		Events:      broker,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := os.Stat(cfg.Content.Root); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"content root unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if !cfg.App.HTTP.AllowRemote {
		logger.Info("Admin API accepts loopback clients only")
	}

	g, gCtx := errgroup.WithContext(ctx)

	// File watcher keeps the index current and feeds the event stream.
	if rt.db != nil {
		g.Go(func() error {
			if err := index.Watch(gCtx, rt.db, rt.scanner, logger, broker.PublishContentEvent); err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		// Close SSE streams first so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunScan prints the content catalog as JSON to stdout.
func RunScan(_ context.Context, opts ...Option) error {
	app := newApplication(opts)
	rt, err := setup(app, app.stderr, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	entries, skipped, err := rt.scanner.Scan()
	if err != nil {
		return err
	}
	for _, s := range skipped {
		rt.logger.Info("skipped", slog.String("path", s.Path), slog.String("reason", s.Reason))
	}

	enc := json.NewEncoder(app.stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they do
// not corrupt the protocol stream.
func RunMCP(_ context.Context, opts ...Option) error {
	app := newApplication(opts)
	rt, err := setup(app, app.stderr, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	svc, err := rt.service(nil)
	if err != nil {
		return err
	}
	rt.logger.Info("Starting MCP server on stdio")
	return mcpserver.New(svc, app.version).ServeStdio()
}
