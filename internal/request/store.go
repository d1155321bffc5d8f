package request

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Store persists requests and their items.
type Store struct {
	db *sql.DB
}

// NewStore creates a request store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateWithItems inserts a request and its items in one transaction.
// A request with zero items is never visible and never created.
func (s *Store) CreateWithItems(r *Request) error {
	if len(r.Items) == 0 {
		return fmt.Errorf("create request: no items")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	result, err := tx.Exec(`
		INSERT INTO requests (kind, catalog_id, title, status, status_reason, requested_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Kind, r.CatalogID, r.Title, r.Status, r.StatusReason, r.RequestedBy, now,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get request id: %w", err)
	}

	for _, it := range r.Items {
		res, err := tx.Exec(`
			INSERT INTO request_items (request_id, provider, provider_item_id, provider_parent_id, season, episode, status, queue_error_seen)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, it.Provider, it.ProviderItemID, it.ProviderParentID, it.Season, it.Episode, it.Status, it.QueueErrorSeen,
		)
		if err != nil {
			return fmt.Errorf("insert request item: %w", err)
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("get item id: %w", err)
		}
		it.ID = itemID
		it.RequestID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit request: %w", err)
	}

	r.ID = id
	r.CreatedAt = now
	return nil
}

// Get retrieves a request with its items.
// Returns ErrNotFound if the request does not exist.
func (s *Store) Get(id int64) (*Request, error) {
	r := &Request{}
	err := s.db.QueryRow(`
		SELECT id, kind, catalog_id, title, status, status_reason, requested_by, created_at
		FROM requests WHERE id = ?`, id,
	).Scan(&r.ID, &r.Kind, &r.CatalogID, &r.Title, &r.Status, &r.StatusReason, &r.RequestedBy, &r.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get request %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get request %d: %w", id, err)
	}

	items, err := s.itemsFor(id)
	if err != nil {
		return nil, err
	}
	r.Items = items
	return r, nil
}

func (s *Store) itemsFor(requestID int64) ([]*Item, error) {
	rows, err := s.db.Query(`
		SELECT id, request_id, provider, provider_item_id, provider_parent_id, season, episode, status, queue_error_seen
		FROM request_items WHERE request_id = ? ORDER BY id`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list items for request %d: %w", requestID, err)
	}
	defer func() { _ = rows.Close() }()

	var items []*Item
	for rows.Next() {
		it := &Item{}
		if err := rows.Scan(&it.ID, &it.RequestID, &it.Provider, &it.ProviderItemID,
			&it.ProviderParentID, &it.Season, &it.Episode, &it.Status, &it.QueueErrorSeen); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// List returns all requests with their items, newest first.
func (s *Store) List() ([]*Request, error) {
	return s.list("ORDER BY id DESC")
}

// ListNonTerminal returns requests still in flight, for reconciliation.
func (s *Store) ListNonTerminal() ([]*Request, error) {
	statuses := []Status{StatusPending, StatusQueued, StatusSubmitted, StatusDownloading, StatusPartiallyAvailable}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	return s.list("WHERE status IN ("+placeholders+") ORDER BY id",
		StatusPending, StatusQueued, StatusSubmitted, StatusDownloading, StatusPartiallyAvailable)
}

func (s *Store) list(clause string, args ...any) ([]*Request, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, catalog_id, title, status, status_reason, requested_by, created_at
		FROM requests `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Request
	for rows.Next() {
		r := &Request{}
		if err := rows.Scan(&r.ID, &r.Kind, &r.CatalogID, &r.Title, &r.Status, &r.StatusReason, &r.RequestedBy, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}

	for _, r := range results {
		items, err := s.itemsFor(r.ID)
		if err != nil {
			return nil, err
		}
		r.Items = items
	}
	return results, nil
}

// FindActiveKeys returns which of the given (season, episode) keys already
// belong to an active request for the catalog id. For movies pass a single
// zero-value key. This is the duplicate check the per-key mutex protects.
func (s *Store) FindActiveKeys(catalogID int64, kind Kind, keys []EpisodeKey) ([]EpisodeKey, error) {
	active := []Status{StatusPending, StatusQueued, StatusSubmitted, StatusDownloading,
		StatusPartiallyAvailable, StatusAvailable, StatusAlreadyExists}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(active)), ",")

	args := []any{catalogID, kind}
	for _, st := range active {
		args = append(args, st)
	}

	query := `
		SELECT i.season, i.episode FROM request_items i
		JOIN requests r ON r.id = i.request_id
		WHERE r.catalog_id = ? AND r.kind = ? AND r.status IN (` + placeholders + `)
		AND i.status != ?`
	args = append(args, ItemRemoved)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("find active items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	taken := make(map[EpisodeKey]bool)
	for rows.Next() {
		var season, episode sql.NullInt64
		if err := rows.Scan(&season, &episode); err != nil {
			return nil, fmt.Errorf("scan active item: %w", err)
		}
		taken[EpisodeKey{Season: int(season.Int64), Episode: int(episode.Int64)}] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active items: %w", err)
	}

	var conflicts []EpisodeKey
	for _, k := range keys {
		if taken[k] {
			conflicts = append(conflicts, k)
		}
	}
	return conflicts, nil
}

// Transition changes a request's status with validation.
func (s *Store) Transition(id int64, to Status, reason *string) error {
	var current Status
	err := s.db.QueryRow("SELECT status FROM requests WHERE id = ?", id).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("transition request %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("transition request %d: %w", id, err)
	}

	if !current.CanTransitionTo(to) {
		return fmt.Errorf("request %d: %w: %s -> %s", id, ErrInvalidTransition, current, to)
	}

	if _, err := s.db.Exec(`
		UPDATE requests SET status = ?, status_reason = ? WHERE id = ?`,
		to, reason, id,
	); err != nil {
		return fmt.Errorf("update request %d: %w", id, err)
	}
	return nil
}

// SetTitle records the display title once the catalog has resolved it.
func (s *Store) SetTitle(id int64, title string) error {
	if _, err := s.db.Exec(`
		UPDATE requests SET title = ? WHERE id = ?`,
		title, id,
	); err != nil {
		return fmt.Errorf("set title for request %d: %w", id, err)
	}
	return nil
}

// SetItemsStatus sets every item of a request to the given status.
func (s *Store) SetItemsStatus(requestID int64, status ItemStatus) error {
	if _, err := s.db.Exec(`
		UPDATE request_items SET status = ? WHERE request_id = ?`,
		status, requestID,
	); err != nil {
		return fmt.Errorf("set items status for request %d: %w", requestID, err)
	}
	return nil
}

// SetItemStatus sets one item's status.
func (s *Store) SetItemStatus(itemID int64, status ItemStatus) error {
	if _, err := s.db.Exec(`
		UPDATE request_items SET status = ? WHERE id = ?`,
		status, itemID,
	); err != nil {
		return fmt.Errorf("set item %d status: %w", itemID, err)
	}
	return nil
}

// ResolveItem caches the backend's unit id (and parent id, for episodes)
// onto an item once known.
func (s *Store) ResolveItem(itemID, providerItemID int64, providerParentID *int64) error {
	if _, err := s.db.Exec(`
		UPDATE request_items SET provider_item_id = ?, provider_parent_id = ? WHERE id = ?`,
		providerItemID, providerParentID, itemID,
	); err != nil {
		return fmt.Errorf("resolve item %d: %w", itemID, err)
	}
	return nil
}

// SetItemQueueErrorSeen records whether the item's download was observed in
// an error state, for the reconciliation debounce.
func (s *Store) SetItemQueueErrorSeen(itemID int64, seen bool) error {
	if _, err := s.db.Exec(`
		UPDATE request_items SET queue_error_seen = ? WHERE id = ?`,
		seen, itemID,
	); err != nil {
		return fmt.Errorf("set item %d queue error flag: %w", itemID, err)
	}
	return nil
}
