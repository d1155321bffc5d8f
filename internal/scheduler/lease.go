package scheduler

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LeaseStore hands out named advisory leases backed by the shared database.
// TryAcquire never blocks: a caller that loses simply skips its turn. Every
// store instance has its own holder token, so re-acquiring an unexpired
// lease you already hold succeeds (the scheduler renews each tick).
type LeaseStore struct {
	db     *sql.DB
	holder string
	ttl    time.Duration
}

// NewLeaseStore creates a lease store with a fresh holder identity.
func NewLeaseStore(db *sql.DB, ttl time.Duration) *LeaseStore {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &LeaseStore{db: db, holder: uuid.New().String(), ttl: ttl}
}

// Holder returns this store's identity token.
func (l *LeaseStore) Holder() string { return l.holder }

// TryAcquire takes the named lease if it is free, expired, or already ours.
// Returns false without error when someone else holds it.
func (l *LeaseStore) TryAcquire(name string) (bool, error) {
	now := time.Now().UTC()
	res, err := l.db.Exec(`
		INSERT INTO advisory_leases (name, holder, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			holder = excluded.holder,
			expires_at = excluded.expires_at
		WHERE advisory_leases.holder = excluded.holder
		   OR advisory_leases.expires_at < ?`,
		name, l.holder, now.Add(l.ttl), now,
	)
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	return n > 0, nil
}

// Release gives the lease up early. Only the current holder can release;
// anyone else's call is a no-op.
func (l *LeaseStore) Release(name string) error {
	if _, err := l.db.Exec(`
		UPDATE advisory_leases SET expires_at = ? WHERE name = ? AND holder = ?`,
		time.Now().UTC().Add(-time.Second), name, l.holder,
	); err != nil {
		return fmt.Errorf("release lease %s: %w", name, err)
	}
	return nil
}
