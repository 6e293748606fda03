// Package cache реализует клиентский memoization-кеш с TTL и single-flight
// семантикой: параллельные запросы одного ключа разделяют один сетевой вызов.
//
// Ключи по соглашению имеют вид "<resource>-<userId>", например
// "usage-stats-42". Это позволяет при logout сбросить все записи пользователя
// одним вызовом InvalidateUser.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TTL-конвенции, принятые для пользовательских ресурсов
const (
	// DefaultTTL используется для usage-stats и content-history
	DefaultTTL = 30 * time.Minute
)

// Cache memoizes results of asynchronous loads by key for a bounded TTL.
// Concurrent Get calls for the same key share a single in-flight load:
// exactly one loader invocation happens regardless of caller count, and all
// callers observe the same value or the same error.
type Cache struct {
	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]entry

	// now подменяется в тестах
	now func() time.Time
}

type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

// stale проверяет протухание по wall-clock
func (e entry) stale(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// New creates an empty cache
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached value for key if present and not stale. Otherwise it
// joins the in-flight load for the key, or starts a new one via loader.
// On success the value is stored with the given ttl; on failure nothing is
// cached and the error is propagated to every caller of this flight.
//
// A cancelled ctx releases the caller, but the loader already underway runs
// to completion and still populates the cache.
func (c *Cache) Get(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && !e.stale(c.now()) {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	// Загрузку выполняет ровно один caller, остальные ждут его результат.
	// Loader получает context.WithoutCancel: отмена одного из ожидающих
	// не должна срывать общий для всех запрос.
	ch := c.group.DoChan(key, func() (any, error) {
		value, err := loader(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = entry{
			value:    value,
			storedAt: c.now(),
			ttl:      ttl,
		}
		c.mu.Unlock()

		return value, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetCached returns the cached value without ever triggering a load.
// The second result is false if the key is absent or stale.
func (c *Cache) GetCached(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.stale(c.now()) {
		return nil, false
	}
	return e.value, true
}

// Invalidate removes the cached entry for key. An in-flight load for the key
// is not cancelled: it completes and populates the cache anew.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateUser removes all entries keyed by the given user id
// (convention "<resource>-<userId>")
func (c *Cache) InvalidateUser(userID string) {
	if userID == "" {
		return
	}

	suffix := "-" + userID

	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasSuffix(key, suffix) {
			delete(c.entries, key)
		}
	}
}

// Key собирает ключ кеша по конвенции "<resource>-<userId>"
func Key(resource, userID string) string {
	return resource + "-" + userID
}

// Get is the typed wrapper over Cache.Get
func Get[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, loader func(ctx context.Context) (T, error)) (T, error) {
	value, err := c.Get(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return loader(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return value.(T), nil
}

// GetCached is the typed wrapper over Cache.GetCached
func GetCached[T any](c *Cache, key string) (T, bool) {
	value, ok := c.GetCached(key)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := value.(T)
	return typed, ok
}
