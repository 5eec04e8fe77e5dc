package utils

import (
	"sync"
	"time"
)

// TTLCache 带过期时间的并发安全缓存
// 进程内、可重建，生命周期由调用方持有
type TTLCache[V any] struct {
	mu    sync.Mutex
	items map[string]cacheItem[V]
	ttl   time.Duration
	now   func() time.Time
}

// cacheItem 内部结构，包含值和过期时间
type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

// NewTTLCache 创建缓存
// ttl: 默认过期时间
func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		items: make(map[string]cacheItem[V]),
		ttl:   ttl,
		now:   time.Now,
	}
}

// WithClock 替换时钟（测试用）
func (c *TTLCache[V]) WithClock(now func() time.Time) *TTLCache[V] {
	c.now = now
	return c
}

// Set 使用默认 TTL 写入
func (c *TTLCache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL 指定 TTL 写入
func (c *TTLCache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheItem[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// Get 获取缓存并验证是否过期
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}

	if !c.now().Before(item.expiresAt) {
		delete(c.items, key) // 懒删除
		var zero V
		return zero, false
	}

	return item.value, true
}

// Delete 删除缓存
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Sweep 清理所有已过期条目，返回清理数量
func (c *TTLCache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, item := range c.items {
		if !now.Before(item.expiresAt) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// Len 当前条目数（含未清理的过期条目）
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
