package lock

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultDriftFactor bounds the clock drift assumed per node, as a
	// fraction of the TTL.
	DefaultDriftFactor = 0.01

	// DefaultDriftFloor is added on top of the proportional drift to absorb
	// small fixed delays such as network round trips after SET returns.
	DefaultDriftFloor = 2 * time.Millisecond
)

// RedLock acquires a lock on a quorum of independent Redis nodes. A lease is
// only valid while a majority of nodes hold the same token and the elapsed
// acquisition time plus drift still leaves validity on the TTL.
type RedLock struct {
	nodes       []redis.UniversalClient
	quorum      int
	nodeTimeout time.Duration
	driftFactor float64
	driftFloor  time.Duration
}

type RedLockOption func(*RedLock)

func WithNodeTimeout(d time.Duration) RedLockOption {
	return func(r *RedLock) { r.nodeTimeout = d }
}

func WithDrift(factor float64, floor time.Duration) RedLockOption {
	return func(r *RedLock) {
		r.driftFactor = factor
		r.driftFloor = floor
	}
}

func NewRedLock(nodes []redis.UniversalClient, opts ...RedLockOption) *RedLock {
	r := &RedLock{
		nodes:       nodes,
		quorum:      len(nodes)/2 + 1,
		nodeTimeout: 50 * time.Millisecond,
		driftFactor: DefaultDriftFactor,
		driftFloor:  DefaultDriftFloor,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Quorum reports the majority size for the configured node set.
func (r *RedLock) Quorum() int { return r.quorum }

func (r *RedLock) drift(ttl time.Duration) time.Duration {
	return time.Duration(math.Ceil(float64(ttl)*r.driftFactor)) + r.driftFloor
}

// Acquire tries SET NX PX on every node with the same token. The lease is
// granted when a majority accepted it and the TTL minus elapsed time minus
// drift is still positive; otherwise every node that accepted is rolled back.
func (r *RedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	token := uuid.NewString()
	start := time.Now()

	type vote struct {
		node    int
		granted bool
		err     error
	}
	votes := make([]vote, len(r.nodes))

	var wg sync.WaitGroup
	for i, node := range r.nodes {
		wg.Add(1)
		go func(i int, node redis.UniversalClient) {
			defer wg.Done()
			nodeCtx, cancel := context.WithTimeout(ctx, r.nodeTimeout)
			defer cancel()
			granted, err := node.SetNX(nodeCtx, name, token, ttl).Result()
			votes[i] = vote{node: i, granted: granted, err: err}
		}(i, node)
	}
	wg.Wait()

	var granted []int
	reachable := 0
	for _, v := range votes {
		if v.err == nil {
			reachable++
		}
		if v.granted {
			granted = append(granted, v.node)
		}
	}

	elapsed := time.Since(start)
	validity := ttl - elapsed - r.drift(ttl)

	if len(granted) >= r.quorum && validity > 0 {
		return &Lease{
			Name:       name,
			Token:      token,
			Validity:   validity,
			AcquiredAt: start,
			Granted:    granted,
		}, nil
	}

	// Failed acquisition leaves partial grants behind; undo them so the next
	// contender does not wait out a phantom TTL.
	r.releaseNodes(ctx, name, token)

	if reachable < r.quorum {
		return nil, ErrNodesUnavailable
	}
	return nil, ErrLockHeld
}

// Release runs the compare-and-delete on every configured node, not only the
// granted ones. A node may have accepted the token while its reply was lost,
// so the caller's grant set can undercount.
func (r *RedLock) Release(ctx context.Context, lease *Lease) error {
	r.releaseNodes(ctx, lease.Name, lease.Token)
	return nil
}

func (r *RedLock) releaseNodes(ctx context.Context, name, token string) {
	var wg sync.WaitGroup
	for _, node := range r.nodes {
		wg.Add(1)
		go func(node redis.UniversalClient) {
			defer wg.Done()
			// Best effort with one retry. An unreachable node expires the key
			// on its own.
			for attempt := 0; attempt < 2; attempt++ {
				nodeCtx, cancel := context.WithTimeout(ctx, r.nodeTimeout)
				_, err := releaseScript.Run(nodeCtx, node, []string{name}, token).Result()
				cancel()
				if err == nil {
					break
				}
			}
		}(node)
	}
	wg.Wait()
}

// Extend refreshes the TTL on every node and keeps the lease only when a
// majority confirmed ownership.
func (r *RedLock) Extend(ctx context.Context, lease *Lease, ttl time.Duration) (bool, error) {
	start := time.Now()

	results := make([]bool, len(r.nodes))
	var wg sync.WaitGroup
	for i, node := range r.nodes {
		wg.Add(1)
		go func(i int, node redis.UniversalClient) {
			defer wg.Done()
			nodeCtx, cancel := context.WithTimeout(ctx, r.nodeTimeout)
			defer cancel()
			res, err := extendScript.Run(nodeCtx, node, []string{lease.Name}, lease.Token, ttl.Milliseconds()).Int64()
			results[i] = err == nil && res == 1
		}(i, node)
	}
	wg.Wait()

	extended := 0
	var granted []int
	for i, ok := range results {
		if ok {
			extended++
			granted = append(granted, i)
		}
	}

	validity := ttl - time.Since(start) - r.drift(ttl)
	if extended < r.quorum || validity <= 0 {
		return false, nil
	}

	lease.Validity = validity
	lease.AcquiredAt = start
	lease.Granted = granted
	return true, nil
}
