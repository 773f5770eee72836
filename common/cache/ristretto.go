package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// TTLCache 基于 ristretto 的本地缓存，每个条目成本为 1，maxEntries 即容量
// 写入是异步的，需要立即可见时调用 Wait
type TTLCache[V any] struct {
	store *ristretto.Cache
	ttl   time.Duration
}

func NewTTLCache[V any](maxEntries int64, ttl time.Duration) (*TTLCache[V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("缓存容量必须大于 0: %d", maxEntries)
	}
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 ristretto 缓存失败: %w", err)
	}
	return &TTLCache[V]{store: store, ttl: ttl}, nil
}

// Set 使用默认 TTL，返回 false 表示被准入策略丢弃
func (c *TTLCache[V]) Set(key string, value V) bool {
	return c.store.SetWithTTL(key, value, 1, c.ttl)
}

func (c *TTLCache[V]) SetWithTTL(key string, value V, ttl time.Duration) bool {
	return c.store.SetWithTTL(key, value, 1, ttl)
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	raw, ok := c.store.Get(key)
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

func (c *TTLCache[V]) Delete(key string) {
	c.store.Del(key)
}

func (c *TTLCache[V]) Wait() {
	c.store.Wait()
}

func (c *TTLCache[V]) Close() {
	c.store.Close()
}
