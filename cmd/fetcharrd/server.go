package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	v1 "github.com/fetcharr/fetcharr/internal/api/v1"
	"github.com/fetcharr/fetcharr/internal/catalog"
	"github.com/fetcharr/fetcharr/internal/config"
	"github.com/fetcharr/fetcharr/internal/migrations"
	"github.com/fetcharr/fetcharr/internal/notify"
	"github.com/fetcharr/fetcharr/internal/provider"
	"github.com/fetcharr/fetcharr/internal/reconcile"
	"github.com/fetcharr/fetcharr/internal/request"
	"github.com/fetcharr/fetcharr/internal/scheduler"
	"github.com/fetcharr/fetcharr/internal/server"
)

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runServer(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return &config.ConfigError{Path: configPath, Errors: errs}
	}

	// Create logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	// Ensure database directory exists
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite", cfg.Database.Path+"?_foreign_keys=on")
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	// Run migrations
	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// === Backends (optional - nil if not configured) ===
	var movies, series provider.Service
	if cfg.Providers.Radarr != nil {
		movies = provider.NewRadarr(
			cfg.Providers.Radarr.URL,
			cfg.Providers.Radarr.APIKey,
			cfg.Providers.Radarr.RootFolder,
			provider.WithRadarrLogger(logger.With("component", "radarr")),
		)
	}
	if cfg.Providers.Sonarr != nil {
		series = provider.NewSonarr(
			cfg.Providers.Sonarr.URL,
			cfg.Providers.Sonarr.APIKey,
			cfg.Providers.Sonarr.RootFolder,
			provider.WithSonarrLogger(logger.With("component", "sonarr")),
		)
	}

	cat := catalog.NewClient(cfg.Catalog.URL, cfg.Catalog.APIKey,
		catalog.WithLogger(logger.With("component", "catalog")))

	// === Services ===
	bus := notify.NewBus(logger.With("component", "bus"))

	store := request.NewStore(db)
	engine := request.NewEngine(store,
		request.Providers{Movies: movies, Series: series},
		cat, bus,
		request.Config{
			DetailAttempts:        cfg.Requests.DetailAttempts,
			DetailAttemptsCreated: cfg.Requests.DetailAttemptsCreated,
			DetailDelay:           cfg.Requests.DetailDelay,
			QualityProfileID:      qualityProfileID(cfg),
		},
		logger.With("component", "engine"))

	reconciler := reconcile.New(store, movies, series, logger)

	// === Scheduler ===
	jobStore := scheduler.NewJobStore(db)
	if err := jobStore.Seed(scheduledJobs(cfg)); err != nil {
		return fmt.Errorf("seed jobs: %w", err)
	}

	lease := scheduler.NewLeaseStore(db, cfg.Scheduler.LeaseTTL)
	sched := scheduler.New(jobStore, lease, cfg.Scheduler.Tick, logger)
	sched.Register("reconcile", func(ctx context.Context) error {
		_, err := reconciler.Run(ctx)
		return err
	})

	// === HTTP API ===
	mux := http.NewServeMux()
	v1.New(engine, store, jobStore).RegisterRoutes(mux)

	httpSrv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           logRequests(logger.With("component", "api"), mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// === Run until signal ===
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("fetcharrd starting",
		"version", version,
		"addr", httpSrv.Addr,
		"db", cfg.Database.Path,
		"radarr", cfg.Providers.Radarr != nil,
		"sonarr", cfg.Providers.Sonarr != nil,
	)

	runner := server.NewRunner(sched, bus, httpSrv, logger.With("component", "runner"))
	return runner.Run(ctx)
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// scheduledJobs builds the job table from config, with a sensible reconcile
// default when the operator configured nothing.
func scheduledJobs(cfg *config.Config) []scheduler.ScheduledJob {
	if len(cfg.Scheduler.Jobs) == 0 {
		return []scheduler.ScheduledJob{{
			Name:             "reconcile",
			Schedule:         "*/5 * * * *",
			IntervalFallback: 5 * time.Minute,
			Enabled:          true,
			RunOnStart:       true,
		}}
	}

	jobs := make([]scheduler.ScheduledJob, 0, len(cfg.Scheduler.Jobs))
	for name, jc := range cfg.Scheduler.Jobs {
		jobs = append(jobs, scheduler.ScheduledJob{
			Name:             name,
			Schedule:         jc.Schedule,
			IntervalFallback: jc.IntervalFallback,
			Enabled:          jc.Enabled,
			RunOnStart:       jc.RunOnStart,
		})
	}
	return jobs
}

func qualityProfileID(cfg *config.Config) int64 {
	if cfg.Providers.Radarr != nil && cfg.Providers.Radarr.QualityProfileID != 0 {
		return cfg.Providers.Radarr.QualityProfileID
	}
	if cfg.Providers.Sonarr != nil && cfg.Providers.Sonarr.QualityProfileID != 0 {
		return cfg.Providers.Sonarr.QualityProfileID
	}
	return 1
}
