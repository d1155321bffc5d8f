// Package reconcile converges stored request status with what the
// acquisition backends actually report: queue progress, landed files, and
// records deleted behind our back.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fetcharr/fetcharr/internal/provider"
	"github.com/fetcharr/fetcharr/internal/request"
	"github.com/fetcharr/fetcharr/pkg/match"
)

// Summary counts what one reconciliation pass did.
type Summary struct {
	Processed   int // non-terminal requests examined
	Downloading int // items observed in a healthy queue state
	Available   int // items whose files have landed
	Removed     int // requests whose backend record disappeared
	Errors      int // requests the pass could not evaluate
}

// Reconciler drives periodic convergence. Each pass is independent and
// idempotent for a fixed backend state; only the error debounce below
// carries state across passes.
type Reconciler struct {
	store  *request.Store
	movies provider.Service
	series provider.Service
	log    *slog.Logger
}

// New creates a reconciler over the given store and backends.
func New(store *request.Store, movies, series provider.Service, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{store: store, movies: movies, series: series, log: log.With("component", "reconcile")}
}

// Run executes one reconciliation pass over all non-terminal requests.
// Per-request failures are counted and logged, never fatal; the pass always
// covers everything it can reach.
func (r *Reconciler) Run(ctx context.Context) (*Summary, error) {
	reqs, err := r.store.ListNonTerminal()
	if err != nil {
		return nil, fmt.Errorf("list non-terminal requests: %w", err)
	}

	sum := &Summary{}
	if len(reqs) == 0 {
		return sum, nil
	}

	// One queue snapshot per backend per pass, shared across requests.
	queues := map[string][]provider.QueueRecord{}
	for _, svc := range []provider.Service{r.movies, r.series} {
		if svc == nil {
			continue
		}
		q, err := svc.ListQueue(ctx)
		if err != nil {
			r.log.Warn("queue listing failed, treating as empty", "backend", svc.Name(), "error", err)
			q = nil
		}
		queues[svc.Name()] = q
	}

	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Processed++
		if err := r.reconcileRequest(ctx, req, queues, sum); err != nil {
			sum.Errors++
			r.log.Warn("reconcile failed for request", "request_id", req.ID, "error", err)
		}
	}

	r.log.Info("reconciliation pass complete",
		"processed", sum.Processed, "downloading", sum.Downloading,
		"available", sum.Available, "removed", sum.Removed, "errors", sum.Errors)
	return sum, nil
}

func (r *Reconciler) reconcileRequest(ctx context.Context, req *request.Request, queues map[string][]provider.QueueRecord, sum *Summary) error {
	svc := r.serviceFor(req.Kind)
	if svc == nil {
		return fmt.Errorf("no backend configured for kind %q", req.Kind)
	}

	parentID := backendParentID(req)
	if parentID == 0 {
		// Nothing resolved yet; the approval flow has not run. Leave it be.
		return nil
	}

	detail, err := svc.GetDetail(ctx, parentID)
	if errors.Is(err, provider.ErrNotFound) {
		// The record was deleted out from under us. The request can never
		// progress, so retire it rather than re-adding media nobody asked
		// the backend to keep.
		r.log.Info("backend record gone, marking request removed",
			"request_id", req.ID, "backend", svc.Name(), "item_id", parentID)
		if err := r.store.SetItemsStatus(req.ID, request.ItemRemoved); err != nil {
			return err
		}
		if err := r.store.Transition(req.ID, request.StatusRemoved, nil); err != nil {
			return err
		}
		sum.Removed++
		return nil
	}
	if err != nil {
		return fmt.Errorf("detail for item %d: %w", parentID, err)
	}

	unitsByID := make(map[int64]provider.Unit, len(detail.Units))
	for _, u := range detail.Units {
		unitsByID[u.ID] = u
	}

	for _, it := range req.Items {
		if it.Status == request.ItemRemoved || it.ProviderItemID == nil {
			continue
		}
		if err := r.reconcileItem(req, it, unitsByID, queues[svc.Name()], sum); err != nil {
			return err
		}
	}

	// Recompute the request status from the items just updated.
	fresh, err := r.store.Get(req.ID)
	if err != nil {
		return err
	}
	next := request.Aggregate(fresh.Items)
	if next != fresh.Status && fresh.Status.CanTransitionTo(next) {
		if err := r.store.Transition(req.ID, next, nil); err != nil {
			return err
		}
		r.log.Info("request status converged",
			"request_id", req.ID, "from", fresh.Status, "to", next)
	}
	return nil
}

// reconcileItem converges one item against the backend's view. An errored
// queue record only fails the item on the second consecutive pass that sees
// it errored; transient client hiccups recover on their own.
func (r *Reconciler) reconcileItem(req *request.Request, it *request.Item, units map[int64]provider.Unit, queue []provider.QueueRecord, sum *Summary) error {
	unitID := *it.ProviderItemID
	rec, inQueue := findQueueRecord(queue, unitID, req)

	if inQueue {
		if rec.Errored() {
			if it.QueueErrorSeen {
				r.log.Warn("download errored on consecutive passes, failing item",
					"request_id", req.ID, "item_id", it.ID, "queue_status", rec.Status)
				return r.store.SetItemStatus(it.ID, request.ItemFailed)
			}
			return r.store.SetItemQueueErrorSeen(it.ID, true)
		}
		if it.QueueErrorSeen {
			if err := r.store.SetItemQueueErrorSeen(it.ID, false); err != nil {
				return err
			}
		}
		if it.Status != request.ItemDownloading {
			if err := r.store.SetItemStatus(it.ID, request.ItemDownloading); err != nil {
				return err
			}
		}
		sum.Downloading++
		return nil
	}

	// Not in the queue: either the file landed, or nothing is happening.
	if u, ok := units[unitID]; ok && u.HasFile {
		if it.Status != request.ItemAvailable {
			if err := r.store.SetItemStatus(it.ID, request.ItemAvailable); err != nil {
				return err
			}
		}
		sum.Available++
	}
	if it.QueueErrorSeen {
		return r.store.SetItemQueueErrorSeen(it.ID, false)
	}
	return nil
}

// findQueueRecord locates the queue entry covering a unit. Records that the
// backend has not mapped to units yet fall back to fuzzy title matching
// against the request's resolved title set.
func findQueueRecord(queue []provider.QueueRecord, unitID int64, req *request.Request) (provider.QueueRecord, bool) {
	for _, rec := range queue {
		for _, id := range rec.UnitIDs {
			if id == unitID {
				return rec, true
			}
		}
	}
	if req.Title == "" {
		return provider.QueueRecord{}, false
	}
	for _, rec := range queue {
		if len(rec.UnitIDs) == 0 && rec.Title != "" && match.Similar(rec.Title, req.Title) {
			return rec, true
		}
	}
	return provider.QueueRecord{}, false
}

func backendParentID(req *request.Request) int64 {
	for _, it := range req.Items {
		if it.ProviderParentID != nil {
			return *it.ProviderParentID
		}
		if it.ProviderItemID != nil && req.Kind == request.KindMovie {
			return *it.ProviderItemID
		}
	}
	return 0
}

func (r *Reconciler) serviceFor(kind request.Kind) provider.Service {
	if kind == request.KindMovie {
		return r.movies
	}
	return r.series
}
