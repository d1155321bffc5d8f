package request

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fetcharr/fetcharr/internal/catalog"
	"github.com/fetcharr/fetcharr/internal/keymutex"
	"github.com/fetcharr/fetcharr/internal/notify"
	"github.com/fetcharr/fetcharr/internal/provider"
)

// Providers bundles the two acquisition backends.
type Providers struct {
	Movies provider.Service
	Series provider.Service
}

// Config tunes the engine's provider interaction.
type Config struct {
	// DetailAttempts bounds detail polling for records the backend
	// already had; DetailAttemptsCreated applies when the record was just
	// added, since new records populate asynchronously.
	DetailAttempts        int
	DetailAttemptsCreated int
	DetailDelay           time.Duration

	QualityProfileID int64
}

func (c Config) withDefaults() Config {
	if c.DetailAttempts == 0 {
		c.DetailAttempts = 2
	}
	if c.DetailAttemptsCreated == 0 {
		c.DetailAttemptsCreated = 4
	}
	if c.DetailDelay == 0 {
		c.DetailDelay = 2 * time.Second
	}
	if c.QualityProfileID == 0 {
		c.QualityProfileID = 1
	}
	return c
}

// Engine drives a request's lifecycle: duplicate-safe creation, the provider
// handshake on approval, denial, and deletion with backend cleanup.
type Engine struct {
	store      *Store
	providers  Providers
	catalog    catalog.Service
	notifier   notify.Dispatcher
	locks      *keymutex.KeyedMutex
	classifier provider.ExistsClassifier
	cfg        Config
	log        *slog.Logger
}

// NewEngine creates a lifecycle engine.
func NewEngine(store *Store, providers Providers, cat catalog.Service, notifier notify.Dispatcher, cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if notifier == nil {
		notifier = &notify.LogDispatcher{Log: log}
	}
	return &Engine{
		store:      store,
		providers:  providers,
		catalog:    cat,
		notifier:   notifier,
		locks:      keymutex.New(),
		classifier: provider.DefaultExistsClassifier,
		cfg:        cfg.withDefaults(),
		log:        log,
	}
}

// SetExistsClassifier swaps the "already exists" detector; the default
// sniffs backend message text.
func (e *Engine) SetExistsClassifier(c provider.ExistsClassifier) {
	e.classifier = c
}

// SubmitParams describes one submission.
type SubmitParams struct {
	Kind        Kind
	CatalogID   int64
	Season      int   // episode requests: the one season covered
	Episodes    []int // episode numbers within Season
	RequestedBy string
	Elevated    bool // privileged actors skip the pending stage
}

func (p SubmitParams) validate() error {
	if p.CatalogID <= 0 {
		return &ValidationError{Field: "catalogId", Reason: "must be a positive integer"}
	}
	switch p.Kind {
	case KindMovie:
		if len(p.Episodes) > 0 {
			return &ValidationError{Field: "episodes", Reason: "not allowed for movie requests"}
		}
	case KindEpisodes:
		if p.Season < 0 {
			return &ValidationError{Field: "season", Reason: "must not be negative"}
		}
		if len(p.Episodes) == 0 {
			return &ValidationError{Field: "episodes", Reason: "at least one episode required"}
		}
		for _, ep := range p.Episodes {
			if ep <= 0 {
				return &ValidationError{Field: "episodes", Reason: fmt.Sprintf("invalid episode number %d", ep)}
			}
		}
	default:
		return &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", p.Kind)}
	}
	return nil
}

func (p SubmitParams) keys() []EpisodeKey {
	if p.Kind == KindMovie {
		return []EpisodeKey{{}}
	}
	keys := make([]EpisodeKey, 0, len(p.Episodes))
	for _, ep := range p.Episodes {
		keys = append(keys, EpisodeKey{Season: p.Season, Episode: ep})
	}
	return keys
}

// SubmitResult reports what a submission did. Conflicts lists the keys that
// were already claimed by an active request; they are a normal outcome, not
// an error. A nil Request with conflicts means there was nothing left to do.
type SubmitResult struct {
	Request   *Request
	Conflicts []EpisodeKey
}

// Submit validates, de-duplicates, and creates a request. The duplicate
// check and creation run under the per-catalog-id mutex so two concurrent
// submissions for the same title cannot race past each other. Elevated
// callers get the full approval flow inline, inside the same critical
// section.
func (e *Engine) Submit(ctx context.Context, p SubmitParams) (*SubmitResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	svc := e.serviceFor(p.Kind)
	if svc == nil {
		return nil, fmt.Errorf("%s: %w", p.Kind, ErrNoBackend)
	}

	var res *SubmitResult
	err := e.locks.WithLock(ctx, p.CatalogID, func() error {
		conflicts, err := e.store.FindActiveKeys(p.CatalogID, p.Kind, p.keys())
		if err != nil {
			return err
		}

		toProcess := subtractKeys(p.keys(), conflicts)
		if len(toProcess) == 0 {
			res = &SubmitResult{Conflicts: conflicts}
			return nil
		}

		req := &Request{
			Kind:        p.Kind,
			CatalogID:   p.CatalogID,
			Status:      StatusPending,
			RequestedBy: p.RequestedBy,
		}
		providerName := svc.Name()
		for _, k := range toProcess {
			it := &Item{Provider: providerName, Status: ItemPending}
			if p.Kind == KindEpisodes {
				season, episode := k.Season, k.Episode
				it.Season = &season
				it.Episode = &episode
			}
			req.Items = append(req.Items, it)
		}

		if err := e.store.CreateWithItems(req); err != nil {
			return err
		}
		res = &SubmitResult{Request: req, Conflicts: conflicts}

		if !p.Elevated {
			e.emit(ctx, notify.EventRequestPending, req, nil)
			return nil
		}
		return e.approveLocked(ctx, req)
	})
	if err != nil {
		return res, err
	}
	return res, nil
}

// Approve runs the provider handshake for a pending request. It takes the
// same per-catalog-id mutex as Submit and re-checks the status inside it,
// so two approvers cannot both drive the workflow.
func (e *Engine) Approve(ctx context.Context, id int64) error {
	req, err := e.store.Get(id)
	if err != nil {
		return err
	}

	return e.locks.WithLock(ctx, req.CatalogID, func() error {
		req, err := e.store.Get(id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return fmt.Errorf("approve request %d: %w", id, ErrAlreadyResolved)
		}
		return e.approveLocked(ctx, req)
	})
}

// Deny rejects a pending request. Any other status is already resolved.
func (e *Engine) Deny(ctx context.Context, id int64) error {
	return e.locks.WithLock(ctx, e.lockKeyFor(id), func() error {
		req, err := e.store.Get(id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return fmt.Errorf("deny request %d: %w", id, ErrAlreadyResolved)
		}
		if err := e.store.Transition(id, StatusDenied, nil); err != nil {
			return err
		}
		e.emit(ctx, notify.EventRequestDenied, req, nil)
		return nil
	})
}

// Delete marks a request removed and kicks off best-effort backend cleanup
// in the background. Cleanup failures never block or revert the removal.
func (e *Engine) Delete(ctx context.Context, id int64) error {
	req, err := e.store.Get(id)
	if err != nil {
		return err
	}

	if err := e.store.Transition(id, StatusRemoved, nil); err != nil {
		return err
	}
	if err := e.store.SetItemsStatus(id, ItemRemoved); err != nil {
		return err
	}

	go e.cleanup(context.WithoutCancel(ctx), req)

	e.emit(ctx, notify.EventRequestRemoved, req, nil)
	return nil
}

// approveLocked drives protocol steps 4-8 for a request already created and
// locked. Exactly one lifecycle event is emitted per invocation.
func (e *Engine) approveLocked(ctx context.Context, req *Request) error {
	if err := e.runApproval(ctx, req); err != nil {
		reason := err.Error()
		if terr := e.store.Transition(req.ID, StatusFailed, &reason); terr != nil {
			e.log.Error("failed to mark request failed", "request_id", req.ID, "error", terr)
		}
		if serr := e.store.SetItemsStatus(req.ID, ItemFailed); serr != nil {
			e.log.Error("failed to mark items failed", "request_id", req.ID, "error", serr)
		}
		e.emit(ctx, notify.EventRequestFailed, req, map[string]any{"reason": reason})
		return fmt.Errorf("approve request %d: %w", req.ID, err)
	}
	return nil
}

func (e *Engine) runApproval(ctx context.Context, req *Request) error {
	title, err := e.catalog.GetTitle(ctx, req.CatalogID)
	if err != nil {
		return fmt.Errorf("resolve title: %w", err)
	}
	if req.Title == "" && title.Name != "" {
		if err := e.store.SetTitle(req.ID, title.Name); err != nil {
			return err
		}
		req.Title = title.Name
	}

	svc := e.serviceFor(req.Kind)
	if svc == nil {
		return fmt.Errorf("%s: %w", req.Kind, ErrNoBackend)
	}

	externalID := req.CatalogID
	if req.Kind == KindEpisodes {
		if title.SecondaryID == 0 {
			return fmt.Errorf("catalog title %d has no series id", req.CatalogID)
		}
		externalID = title.SecondaryID
	}

	item, created, err := e.resolveBackendItem(ctx, svc, externalID)
	if err != nil {
		return err
	}

	detail := e.pollDetail(ctx, svc, item.ID, created, req)

	matched, unmatched := e.matchUnits(req, detail)

	parentID := &item.ID
	if req.Kind == KindMovie {
		parentID = nil
	}
	for it, unit := range matched {
		if err := e.store.ResolveItem(it.ID, unit.ID, parentID); err != nil {
			return err
		}
		resolved := unit.ID
		it.ProviderItemID = &resolved
		it.ProviderParentID = parentID
	}

	// Everything requested already has files: nothing to acquire.
	if len(unmatched) == 0 && allHaveFiles(matched) {
		if err := e.store.Transition(req.ID, StatusAlreadyExists, nil); err != nil {
			return err
		}
		if err := e.store.SetItemsStatus(req.ID, ItemAvailable); err != nil {
			return err
		}
		e.emit(ctx, notify.EventRequestAlreadyExists, req, nil)
		return nil
	}

	// The backend has not populated all requested units yet. Land softly
	// as pending instead of failing; reconciliation and a later approval
	// retry pick it up once the backend catches up.
	if len(unmatched) > 0 {
		reason := fmt.Sprintf("%d of %d requested items not yet available in the %s backend",
			len(unmatched), len(req.Items), svc.Name())
		if err := e.store.Transition(req.ID, StatusPending, &reason); err != nil {
			return err
		}
		e.log.Info("request left pending, backend not yet populated",
			"request_id", req.ID, "unmatched", len(unmatched))
		e.emit(ctx, notify.EventRequestPending, req, map[string]any{"reason": reason})
		return nil
	}

	unitIDs := make([]int64, 0, len(matched))
	for _, it := range req.Items {
		if unit, ok := matched[it]; ok {
			unitIDs = append(unitIDs, unit.ID)
		}
	}

	if err := svc.SetUnitsMonitored(ctx, unitIDs, true); err != nil {
		return fmt.Errorf("set units monitored: %w", err)
	}
	if err := e.store.Transition(req.ID, StatusQueued, nil); err != nil {
		return err
	}
	if err := svc.TriggerSearch(ctx, unitIDs); err != nil {
		return fmt.Errorf("trigger search: %w", err)
	}

	if err := e.store.SetItemsStatus(req.ID, ItemSubmitted); err != nil {
		return err
	}
	if err := e.store.Transition(req.ID, StatusSubmitted, nil); err != nil {
		return err
	}

	e.log.Info("request submitted", "request_id", req.ID, "catalog_id", req.CatalogID, "units", len(unitIDs))
	e.emit(ctx, notify.EventRequestSubmitted, req, map[string]any{"units": len(unitIDs)})
	return nil
}

// resolveBackendItem finds or creates the backend record for the external
// id. The returned bool reports whether the record was just created.
func (e *Engine) resolveBackendItem(ctx context.Context, svc provider.Service, externalID int64) (*provider.Item, bool, error) {
	tracked, err := svc.ListTracked(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("list tracked items: %w", err)
	}
	for i := range tracked {
		if tracked[i].ExternalID == externalID {
			return &tracked[i], false, nil
		}
	}

	matches, err := svc.LookupByExternalID(ctx, externalID)
	if err != nil {
		return nil, false, fmt.Errorf("lookup by external id %d: %w", externalID, err)
	}
	if len(matches) == 0 {
		return nil, false, fmt.Errorf("no backend match for external id %d", externalID)
	}

	// Episodes start unmonitored so monitoring can be scoped to exactly
	// the requested units; movies monitor the whole (single-unit) item.
	monitored := svc == e.providers.Movies
	item, err := svc.Add(ctx, matches[0], monitored, e.cfg.QualityProfileID)
	if err == nil {
		return item, true, nil
	}

	// The backend rejects duplicates with message text only. Re-scan and
	// recover the existing record instead of failing the whole operation.
	if e.classifier(err) {
		e.log.Info("backend reports item already exists, recovering",
			"external_id", externalID, "backend", svc.Name())
		tracked, listErr := svc.ListTracked(ctx)
		if listErr == nil {
			for i := range tracked {
				if tracked[i].ExternalID == externalID {
					return &tracked[i], false, nil
				}
			}
		}
	}
	return nil, false, fmt.Errorf("add item for external id %d: %w", externalID, err)
}

// pollDetail fetches item detail with bounded retries, waiting between
// attempts for the backend to populate sub-units. It returns whatever the
// last attempt saw; it never blocks indefinitely.
func (e *Engine) pollDetail(ctx context.Context, svc provider.Service, itemID int64, created bool, req *Request) *provider.Item {
	attempts := e.cfg.DetailAttempts
	if created {
		attempts = e.cfg.DetailAttemptsCreated
	}

	var detail *provider.Item
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(e.cfg.DetailDelay):
			case <-ctx.Done():
				return detail
			}
		}

		d, err := svc.GetDetail(ctx, itemID)
		if err != nil {
			e.log.Warn("detail fetch failed", "item_id", itemID, "attempt", attempt+1, "error", err)
			continue
		}
		detail = d

		if matched, unmatched := e.matchUnits(req, detail); len(unmatched) == 0 && len(matched) == len(req.Items) {
			break
		}
	}
	return detail
}

// matchUnits pairs request items with backend units. Movies match the
// single unit; episodes match on (season, episode).
func (e *Engine) matchUnits(req *Request, detail *provider.Item) (map[*Item]provider.Unit, []*Item) {
	matched := make(map[*Item]provider.Unit)
	var unmatched []*Item

	if detail == nil {
		return matched, req.Items
	}

	if req.Kind == KindMovie {
		for _, it := range req.Items {
			if len(detail.Units) > 0 {
				matched[it] = detail.Units[0]
			} else {
				unmatched = append(unmatched, it)
			}
		}
		return matched, unmatched
	}

	byKey := make(map[EpisodeKey]provider.Unit, len(detail.Units))
	for _, u := range detail.Units {
		byKey[EpisodeKey{Season: u.Season, Episode: u.Episode}] = u
	}
	for _, it := range req.Items {
		if u, ok := byKey[it.Key()]; ok {
			matched[it] = u
		} else {
			unmatched = append(unmatched, it)
		}
	}
	return matched, unmatched
}

// cleanup best-effort deprovisions a removed request's backend state.
// Order matters: unmonitor the exact requested units, then drop matching
// queue entries, then delete the parent item, never the reverse, so
// monitoring state cannot re-trigger a search against a half-removed record.
// Every failure here is logged and swallowed; removal already happened.
func (e *Engine) cleanup(ctx context.Context, req *Request) {
	svc := e.serviceFor(req.Kind)
	if svc == nil {
		e.log.Warn("cleanup: no backend configured", "request_id", req.ID, "kind", req.Kind)
		return
	}

	var unitIDs []int64
	var parentID *int64
	for _, it := range req.Items {
		if it.ProviderItemID != nil {
			unitIDs = append(unitIDs, *it.ProviderItemID)
		}
		if it.ProviderParentID != nil {
			parentID = it.ProviderParentID
		}
	}
	if len(unitIDs) == 0 {
		return
	}
	if parentID == nil {
		// Movies: the unit is the item.
		parentID = &unitIDs[0]
	}

	if req.Kind == KindEpisodes {
		if err := svc.SetUnitsMonitored(ctx, unitIDs, false); err != nil {
			e.log.Warn("cleanup: unmonitor failed", "request_id", req.ID, "error", err)
		}
	}

	if queue, err := svc.ListQueue(ctx); err != nil {
		e.log.Warn("cleanup: queue listing failed", "request_id", req.ID, "error", err)
	} else {
		wanted := make(map[int64]bool, len(unitIDs))
		for _, id := range unitIDs {
			wanted[id] = true
		}
		for _, rec := range queue {
			if !intersects(rec.UnitIDs, wanted) {
				continue
			}
			if err := svc.DeleteQueueRecord(ctx, rec.ID, true); err != nil {
				e.log.Warn("cleanup: queue record removal failed",
					"request_id", req.ID, "queue_id", rec.ID, "error", err)
			}
		}
	}

	if err := svc.DeleteItem(ctx, *parentID, provider.DeleteOptions{}); err != nil {
		e.log.Warn("cleanup: item removal failed",
			"request_id", req.ID, "item_id", *parentID, "error", err)
	}
}

func (e *Engine) serviceFor(kind Kind) provider.Service {
	if kind == KindMovie {
		return e.providers.Movies
	}
	return e.providers.Series
}

// lockKeyFor maps a request id to its catalog id lock key; falls back to a
// request-scoped key when the request cannot be read.
func (e *Engine) lockKeyFor(id int64) any {
	req, err := e.store.Get(id)
	if err != nil {
		return fmt.Sprintf("request-%d", id)
	}
	return req.CatalogID
}

func (e *Engine) emit(ctx context.Context, name string, req *Request, payload map[string]any) {
	e.notifier.Emit(ctx, notify.NewEvent(name, req.ID, req.CatalogID, payload))
}

func subtractKeys(all, remove []EpisodeKey) []EpisodeKey {
	if len(remove) == 0 {
		return all
	}
	drop := make(map[EpisodeKey]bool, len(remove))
	for _, k := range remove {
		drop[k] = true
	}
	var keep []EpisodeKey
	for _, k := range all {
		if !drop[k] {
			keep = append(keep, k)
		}
	}
	return keep
}

func allHaveFiles(matched map[*Item]provider.Unit) bool {
	if len(matched) == 0 {
		return false
	}
	for _, u := range matched {
		if !u.HasFile {
			return false
		}
	}
	return true
}

func intersects(ids []int64, wanted map[int64]bool) bool {
	for _, id := range ids {
		if wanted[id] {
			return true
		}
	}
	return false
}
