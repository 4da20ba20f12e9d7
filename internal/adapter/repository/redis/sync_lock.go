package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds our token, so an
// expired lock taken over by another worker is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SyncLock implements usecase.SyncLock with one Redis key per locked name.
type SyncLock struct {
	client *redis.Client
	prefix string

	mu     sync.Mutex
	tokens map[string]string
}

// NewSyncLock creates the lock guarding per-credential syncs.
func NewSyncLock(client *redis.Client) *SyncLock {
	return newLock(client, "spareledger:sync-lock:")
}

// NewCategorizationLock creates the lock guarding categorization passes.
func NewCategorizationLock(client *redis.Client) *SyncLock {
	return newLock(client, "spareledger:categorize-lock:")
}

func newLock(client *redis.Client, prefix string) *SyncLock {
	return &SyncLock{
		client: client,
		prefix: prefix,
		tokens: make(map[string]string),
	}
}

// Acquire takes the lock for credentialID. It returns false when another
// sync already holds it.
func (l *SyncLock) Acquire(ctx context.Context, credentialID string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.prefix+credentialID, token, ttl).Result()
	if err != nil || !ok {
		return false, err
	}

	l.mu.Lock()
	l.tokens[credentialID] = token
	l.mu.Unlock()

	return true, nil
}

// Release frees a lock taken by this SyncLock. Releasing a lock it does not
// hold is a no-op.
func (l *SyncLock) Release(ctx context.Context, credentialID string) error {
	l.mu.Lock()
	token, ok := l.tokens[credentialID]
	delete(l.tokens, credentialID)
	l.mu.Unlock()

	if !ok {
		return nil
	}

	return releaseScript.Run(ctx, l.client, []string{l.prefix + credentialID}, token).Err()
}
