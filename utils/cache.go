package utils

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = time.Minute
)

// CacheGetBytes looks a key up in the local tier first, then in Redis.
func CacheGetBytes(key string) ([]byte, bool) {
	local := GetLocalCache()
	if local != nil {
		if b, ok := local.Get(key); ok {
			return b, true
		}
	}
	rc := GetRedis()
	if rc == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		Sugar.Debugf("cache get miss key=%s err=%v", key, err)
		return nil, false
	}
	if local != nil {
		local.Set(key, b, maxLocalTTL)
	}
	return b, true
}

// CacheSetBytes stores bytes in both tiers.
func CacheSetBytes(key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if local := GetLocalCache(); local != nil {
		local.Set(key, b, ttl)
	}
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// CacheSetJSON marshals v and stores JSON bytes.
func CacheSetJSON(key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	CacheSetBytes(key, b, ttl)
}

// InvalidateByPrefix deletes keys that match the given prefix from both tiers.
func InvalidateByPrefix(prefix string) {
	if local := GetLocalCache(); local != nil {
		local.DeletePrefix(prefix)
	}
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // limit rounds to avoid long loops
		keys, cur, err := rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			Sugar.Warnf("cache invalidate scan failed prefix=%s err=%v", prefix, err)
			break
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			break
		}
	}
}

var (
	localGenMu sync.Mutex
	localGens  = map[string]int64{}
)

// CacheGeneration returns the current generation of key, shared through Redis when it is
// configured. ok is false when the generation cannot be read and the caller should not cache.
func CacheGeneration(key string) (int64, bool) {
	rc := GetRedis()
	if rc == nil {
		localGenMu.Lock()
		defer localGenMu.Unlock()
		return localGens[key], true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	gen, err := rc.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		Sugar.Warnf("cache generation read failed key=%s err=%v", key, err)
		return 0, false
	}
	return gen, true
}

// BumpGeneration advances the generation of key so entries written under older generations
// are never read again, even when their writer finishes after the bump.
func BumpGeneration(key string) {
	rc := GetRedis()
	if rc == nil {
		localGenMu.Lock()
		localGens[key]++
		localGenMu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Incr(ctx, key).Err(); err != nil {
		Sugar.Warnf("cache generation bump failed key=%s err=%v", key, err)
	}
}
