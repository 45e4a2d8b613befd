package utils

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cppla/threadbbs/config"
)

// maxLocalTTL bounds how long a process may serve an entry that another instance invalidated.
const maxLocalTTL = 10 * time.Second

type localEntry struct {
	data      []byte
	expiresAt time.Time
}

// LocalCache is a size-bounded in-process cache with per-entry expiry.
type LocalCache struct {
	lru *lru.Cache[string, localEntry]
}

var (
	localCache     *LocalCache
	localCacheOnce sync.Once
)

// NewLocalCache creates a LocalCache holding at most size entries.
func NewLocalCache(size int) (*LocalCache, error) {
	l, err := lru.New[string, localEntry](size)
	if err != nil {
		return nil, err
	}
	return &LocalCache{lru: l}, nil
}

// GetLocalCache returns the process-wide cache sized from configuration.
func GetLocalCache() *LocalCache {
	localCacheOnce.Do(func() {
		c, err := NewLocalCache(config.Get().LocalCacheSize)
		if err != nil {
			Sugar.Warnf("local cache disabled: %v", err)
			return
		}
		localCache = c
	})
	return localCache
}

// Set stores b for ttl, capped at maxLocalTTL.
func (c *LocalCache) Set(key string, b []byte, ttl time.Duration) {
	if ttl <= 0 || ttl > maxLocalTTL {
		ttl = maxLocalTTL
	}
	c.lru.Add(key, localEntry{data: b, expiresAt: time.Now().Add(ttl)})
}

// Get returns the cached bytes unless missing or expired.
func (c *LocalCache) Get(key string) ([]byte, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(v.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}
	return v.data, true
}

// DeletePrefix removes every key starting with prefix.
func (c *LocalCache) DeletePrefix(prefix string) {
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
		}
	}
}
