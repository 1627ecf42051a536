package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// AcquireEventLock takes a short per-event lock so concurrent capacity
// reservations for the same event queue up instead of racing. Returns false
// when another holder has it.
func (c *Cache) AcquireEventLock(ctx context.Context, eventID string, owner string, ttl time.Duration) (bool, error) {
	res := c.client.SetNX(ctx, "capacity:"+eventID, owner, ttl)
	return res.Val(), res.Err()
}

// ReleaseEventLock frees the lock only when owner still holds it.
func (c *Cache) ReleaseEventLock(ctx context.Context, eventID string, owner string) error {
	const script = `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		end
		return 0`
	return c.client.Eval(ctx, script, []string{"capacity:" + eventID}, owner).Err()
}
