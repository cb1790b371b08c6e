package lock

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLockHeld means another holder currently owns the lock. Callers may
	// retry with backoff.
	ErrLockHeld = errors.New("lock held by another owner")

	// ErrNodesUnavailable means not enough lock nodes could be reached to
	// form a quorum. Retrying immediately is unlikely to help.
	ErrNodesUnavailable = errors.New("lock nodes unavailable")
)

// Lease is proof of ownership for one acquired lock. Token is the random
// fencing value stored on every granted node; Granted lists the node indexes
// that accepted the acquisition.
type Lease struct {
	Name       string
	Token      string
	Validity   time.Duration
	AcquiredAt time.Time
	Granted    []int
}

// Deadline is the wall-clock instant after which the lease can no longer be
// trusted. Work holding the lease must finish before it.
func (l *Lease) Deadline() time.Time {
	return l.AcquiredAt.Add(l.Validity)
}

type Locker interface {
	// Acquire takes the named lock for at most ttl. Returns ErrLockHeld when
	// a live holder exists and ErrNodesUnavailable when the backing nodes
	// cannot be reached.
	Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error)

	// Release gives the lock back. Releasing a lease that already expired or
	// was taken over is not an error.
	Release(ctx context.Context, lease *Lease) error

	// Extend pushes the lease expiry to ttl from now. Returns false when the
	// lease is no longer owned.
	Extend(ctx context.Context, lease *Lease, ttl time.Duration) (bool, error)
}
