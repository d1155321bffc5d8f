// Package server ties the long-running components together under one
// lifecycle: the HTTP API, the job scheduler and the notification bus start
// together and shut down together.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fetcharr/fetcharr/internal/notify"
	"github.com/fetcharr/fetcharr/internal/scheduler"
)

const shutdownGrace = 10 * time.Second

// Runner manages the daemon's long-running components.
type Runner struct {
	scheduler *scheduler.Scheduler
	bus       *notify.Bus
	httpSrv   *http.Server
	logger    *slog.Logger
}

// NewRunner creates a runner over an already-wired scheduler, bus and HTTP
// server. httpSrv may be nil when no API surface is wanted.
func NewRunner(sched *scheduler.Scheduler, bus *notify.Bus, httpSrv *http.Server, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		scheduler: sched,
		bus:       bus,
		httpSrv:   httpSrv,
		logger:    logger,
	}
}

// Run starts all components and blocks until the context is canceled or a
// component fails. Cancellation is a clean shutdown, not an error.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.scheduler.Run(ctx)
	})

	if r.httpSrv != nil {
		g.Go(func() error {
			r.logger.Info("http server listening", "addr", r.httpSrv.Addr)
			if err := r.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := r.httpSrv.Shutdown(shCtx); err != nil {
				r.logger.Warn("http shutdown failed", "error", err)
			}
			return ctx.Err()
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		if err := r.bus.Close(); err != nil {
			r.logger.Warn("bus close failed", "error", err)
		}
		return ctx.Err()
	})

	r.logger.Info("runner started")
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		r.logger.Info("runner stopped")
		return nil
	}
	return err
}
