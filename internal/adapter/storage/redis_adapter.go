package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ltdat/flashstock/internal/core/domain"
)

const stockKeyPrefix = "stock:"

const (
	decrementMissing      = -2
	decrementInsufficient = -1
)

// decrementScript implements the guarded decrement. It distinguishes a
// missing counter (-2) from an insufficient one (-1) so callers can tell
// "never seeded" apart from "sold out". On success it returns the remaining
// stock after the decrement.
var decrementScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
    return -2
end
current = tonumber(current)
local quantity = tonumber(ARGV[1])
if current < quantity then
    return -1
end
return redis.call('DECRBY', KEYS[1], quantity)
`)

// compensateScript adds stock back only when the counter still exists.
// Recreating a missing counter would make stock admissible for a product
// whose counter was never seeded or has been deleted.
var compensateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
    return -1
end
return redis.call('INCRBY', KEYS[1], ARGV[1])
`)

// RedisAdapter exposes one Redis node as an admission counter store.
type RedisAdapter struct {
	client redis.UniversalClient
}

func NewRedisAdapter(client redis.UniversalClient) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func stockKey(productID int64) string {
	return fmt.Sprintf("%s%d", stockKeyPrefix, productID)
}

func (r *RedisAdapter) TryDecrement(ctx context.Context, productID int64, quantity int64) (domain.DecrementResult, error) {
	res, err := decrementScript.Run(ctx, r.client, []string{stockKey(productID)}, quantity).Int64()
	if err != nil {
		return domain.DecrementResult{}, fmt.Errorf("decrement stock %d: %w", productID, err)
	}

	switch res {
	case decrementMissing:
		return domain.DecrementResult{Outcome: domain.DecrementMissing}, nil
	case decrementInsufficient:
		return domain.DecrementResult{Outcome: domain.DecrementInsufficient}, nil
	default:
		return domain.DecrementResult{Outcome: domain.DecrementOK, Remaining: res}, nil
	}
}

func (r *RedisAdapter) Compensate(ctx context.Context, productID int64, quantity int64) (bool, error) {
	res, err := compensateScript.Run(ctx, r.client, []string{stockKey(productID)}, quantity).Int64()
	if err != nil {
		return false, fmt.Errorf("compensate stock %d: %w", productID, err)
	}
	return res >= 0, nil
}

func (r *RedisAdapter) SeedStock(ctx context.Context, productID int64, quantity int64) (bool, error) {
	created, err := r.client.SetNX(ctx, stockKey(productID), quantity, 0).Result()
	if err != nil {
		return false, fmt.Errorf("seed stock %d: %w", productID, err)
	}
	return created, nil
}

func (r *RedisAdapter) ForceSetStock(ctx context.Context, productID int64, quantity int64) error {
	if err := r.client.Set(ctx, stockKey(productID), quantity, 0).Err(); err != nil {
		return fmt.Errorf("set stock %d: %w", productID, err)
	}
	return nil
}

func (r *RedisAdapter) GetStock(ctx context.Context, productID int64) (int64, bool, error) {
	val, err := r.client.Get(ctx, stockKey(productID)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get stock %d: %w", productID, err)
	}
	return val, true, nil
}
