package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serialises work on one section across goroutines or processes.
// Acquire never blocks: a held lock yields ErrSectionBusy.
type Locker interface {
	Acquire(ctx context.Context, sectionID int64, ttl time.Duration) (release func(), err error)
}

func lockKey(sectionID int64) string {
	return fmt.Sprintf("gallery:section-sync:%d", sectionID)
}

// MemoryLocker is the single-process Locker. A lock older than its ttl is
// treated as free, matching the key expiry of RedisLocker.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[int64]memoryLock
	seq  uint64
	now  func() time.Time
}

type memoryLock struct {
	token   uint64
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: map[int64]memoryLock{}, now: time.Now}
}

func (l *MemoryLocker) Acquire(_ context.Context, sectionID int64, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if cur, ok := l.held[sectionID]; ok && (cur.expires.IsZero() || now.Before(cur.expires)) {
		return nil, ErrSectionBusy
	}
	l.seq++
	lock := memoryLock{token: l.seq}
	if ttl > 0 {
		lock.expires = now.Add(ttl)
	}
	l.held[sectionID] = lock

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			// A lock taken over after expiry belongs to someone else.
			if l.held[sectionID].token == lock.token {
				delete(l.held, sectionID)
			}
			l.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the key only while it still carries our token, so an
// expired lock taken over by another worker is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares section locks between worker and API processes.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, sectionID int64, ttl time.Duration) (func(), error) {
	key := lockKey(sectionID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire section lock: %w", err)
	}
	if !ok {
		return nil, ErrSectionBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled at shutdown.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
		})
	}, nil
}
