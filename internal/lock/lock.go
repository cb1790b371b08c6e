package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when the stored token still matches.
// Deleting blindly would break a holder that took over after our expiry.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript refreshes the TTL only for the current owner.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// SingleLock is a pessimistic lock on one Redis node. It is the right tool
// when the deployment has a single cache node anyway; RedLock covers the
// multi-node case.
type SingleLock struct {
	client redis.UniversalClient
}

func NewSingleLock(client redis.UniversalClient) *SingleLock {
	return &SingleLock{client: client}
}

func (s *SingleLock) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	token := uuid.NewString()
	acquiredAt := time.Now()

	granted, err := s.client.SetNX(ctx, name, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", name, ErrNodesUnavailable)
	}
	if !granted {
		return nil, ErrLockHeld
	}
	return &Lease{
		Name:       name,
		Token:      token,
		Validity:   ttl,
		AcquiredAt: acquiredAt,
		Granted:    []int{0},
	}, nil
}

func (s *SingleLock) Release(ctx context.Context, lease *Lease) error {
	if _, err := releaseScript.Run(ctx, s.client, []string{lease.Name}, lease.Token).Result(); err != nil {
		return fmt.Errorf("release %s: %w", lease.Name, err)
	}
	return nil
}

func (s *SingleLock) Extend(ctx context.Context, lease *Lease, ttl time.Duration) (bool, error) {
	res, err := extendScript.Run(ctx, s.client, []string{lease.Name}, lease.Token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("extend %s: %w", lease.Name, err)
	}
	if res == 0 {
		return false, nil
	}
	lease.Validity = ttl
	lease.AcquiredAt = time.Now()
	return true, nil
}
