// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/skillpath/internal/api"
	"github.com/starford/skillpath/internal/courseservice"
	"github.com/starford/skillpath/internal/enricher"
	"github.com/starford/skillpath/internal/gateway"
	"github.com/starford/skillpath/internal/inbox"
	"github.com/starford/skillpath/internal/llm"
	"github.com/starford/skillpath/internal/mcpserver"
	"github.com/starford/skillpath/internal/metrics"
	"github.com/starford/skillpath/internal/pgstore"
	"github.com/starford/skillpath/internal/prompt"
	"github.com/starford/skillpath/internal/sqlstore"
	"github.com/starford/skillpath/internal/sse"
	"github.com/starford/skillpath/internal/storage"
	"github.com/starford/skillpath/internal/youtube"
)

const probeInterval = 30 * time.Second

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// components holds everything the surfaces share.
type components struct {
	svc    *courseservice.Service
	gw     *gateway.Gateway
	broker *sse.Broker
	close  func()
}

// openPrimary opens the configured relational store. A nil Provider means the
// gateway runs on the local store only.
func openPrimary(ctx context.Context, cfg StorageConfig, logger *slog.Logger) (storage.Provider, func()) {
	switch cfg.Driver {
	case DriverSQLite:
		db, err := sqlstore.Open(cfg.SQLite.Path)
		if err != nil {
			logger.Warn("sqlite unavailable, using local storage", slog.String("error", err.Error()))
			return nil, func() {}
		}
		return db, func() { _ = db.Close() }
	case DriverPostgres:
		db, err := pgstore.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			logger.Warn("postgres unavailable, using local storage", slog.String("error", err.Error()))
			return nil, func() {}
		}
		return db, db.Close
	}
	return nil, func() {}
}

// build wires stores, clients and the course service. withLLM is false for
// commands that never generate.
func (a *application) build(ctx context.Context, logger *slog.Logger, withLLM bool) (*components, error) {
	cfg := a.config

	local, err := storage.NewFS(cfg.Storage.FallbackDir)
	if err != nil {
		return nil, fmt.Errorf("init local storage: %w", err)
	}
	primary, closePrimary := openPrimary(ctx, cfg.Storage, logger)

	broker := sse.NewBroker(2 * time.Second)
	gw := gateway.New(primary, local,
		gateway.WithLogger(logger),
		gateway.WithModeChange(broker.PublishModeChange),
	)

	var completer llm.Completer
	if withLLM {
		client, err := llm.NewClient(llm.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, llm.WithLogger(logger))
		if err != nil {
			closePrimary()
			broker.Close()
			return nil, fmt.Errorf("init llm client: %w", err)
		}
		completer = client
	}

	mode, err := prompt.ParseMode(cfg.Generation.Mode)
	if err != nil {
		closePrimary()
		broker.Close()
		return nil, err
	}
	svcOpts := []courseservice.Option{
		courseservice.WithNotifier(broker),
		courseservice.WithDefaultMode(mode),
		courseservice.WithLogger(logger),
	}

	if cfg.YouTube.Enabled() {
		yt, err := youtube.NewClient(ctx, cfg.YouTube.APIKey)
		if err != nil {
			closePrimary()
			broker.Close()
			return nil, fmt.Errorf("init youtube client: %w", err)
		}
		svcOpts = append(svcOpts, courseservice.WithEnricher(enricher.New(yt,
			enricher.WithConcurrency(cfg.Generation.Concurrency),
			enricher.WithResultsPerTerm(cfg.YouTube.ResultsPerTerm),
			enricher.WithSearchTimeout(cfg.YouTube.Timeout),
			enricher.WithLogger(logger),
		)))
	} else {
		logger.Warn("youtube api key not set, courses will have no videos")
	}

	gw.Probe(ctx)

	return &components{
		svc:    courseservice.New(completer, gw, svcOpts...),
		gw:     gw,
		broker: broker,
		close: func() {
			broker.Close()
			closePrimary()
		},
	}, nil
}

func writeStatus(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.newLogger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("fallback_dir", cfg.Storage.FallbackDir),
		slog.String("llm_model", cfg.LLM.Model),
		slog.Bool("video_search", cfg.YouTube.Enabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := app.build(ctx, logger, true)
	if err != nil {
		return err
	}
	defer c.close()

	apiRouter := api.NewRouter(c.svc, c.broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.App.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Entity-Count"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, `{"status":"ok"}`)
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		c.gw.Probe(r.Context())
		writeStatus(w, http.StatusOK, fmt.Sprintf(`{"status":"ok","storage":%q}`, c.gw.Mode()))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Inbox.Enabled {
		g.Go(func() error {
			if err := inbox.Watch(gCtx, cfg.Inbox.Dir, c.svc, logger); err != nil {
				logger.Error("inbox watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Periodic probe lets the gateway return to the relational store.
	g.Go(func() error {
		ticker := time.NewTicker(probeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				c.gw.Probe(gCtx)
			}
		}
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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

// errShutdown cancels the group so the background loops exit after a signal.
var errShutdown = errors.New("shutdown")

// RunMCP serves the course tools over stdio. Logs go to the configured log
// output, which must not be stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.newLogger()

	c, err := app.build(ctx, logger, true)
	if err != nil {
		return err
	}
	defer c.close()

	logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(c.svc, app.version).ServeStdio()
}

// Export formats.
const (
	ExportCourse = "course"
	ExportGraph  = "graph"
)

// RunExport writes the stored course for topic to out as a course payload or
// an entity graph.
func RunExport(ctx context.Context, topic, format, out string, opts ...Option) error {
	if format != ExportCourse && format != ExportGraph {
		return fmt.Errorf("format must be %s or %s", ExportCourse, ExportGraph)
	}
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.newLogger()

	c, err := app.build(ctx, logger, false)
	if err != nil {
		return err
	}
	defer c.close()

	course, err := c.svc.FindCourse(ctx, topic)
	if err != nil {
		return fmt.Errorf("find course %q: %w", topic, err)
	}

	var artifact any = course.Payload()
	if format == ExportGraph {
		graph, err := c.svc.ExportGraph(course)
		if err != nil {
			return fmt.Errorf("export graph: %w", err)
		}
		artifact = graph
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	if out == "" || out == "-" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(out, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info("course exported",
		slog.String("topic", course.Topic),
		slog.String("format", format),
		slog.String("path", out))
	return nil
}
