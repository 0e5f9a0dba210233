package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still carries our token, so a
// holder whose lease expired cannot free a lock someone else now owns.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ReferenceLock implements ports.ReferenceLocker using Redis SET NX.
type ReferenceLock struct {
	client *goredis.Client
	prefix string
	owner  string
}

// NewReferenceLock creates a lock scoped to this process.
func NewReferenceLock(client *goredis.Client) *ReferenceLock {
	return &ReferenceLock{
		client: client,
		prefix: "wallet:reference:",
		owner:  uuid.NewString(),
	}
}

// Acquire returns true if the reference was free and is now held for ttl.
func (l *ReferenceLock) Acquire(ctx context.Context, reference string, ttl time.Duration) (bool, error) {
	result, err := l.client.SetArgs(ctx, l.prefix+reference, l.owner, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("redis reference lock: %w", err)
	}
	return result == "OK", nil
}

// Release frees the reference if this process still holds it.
func (l *ReferenceLock) Release(ctx context.Context, reference string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.prefix + reference}, l.owner).Err(); err != nil {
		return fmt.Errorf("redis reference unlock: %w", err)
	}
	return nil
}
