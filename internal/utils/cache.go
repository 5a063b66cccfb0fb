package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem 包装实际的数据，增加过期时间
type CacheItem[T any] struct {
	Value     T
	ExpiredAt time.Time
}

// TTLCache 带空闲过期的 LRU 缓存，读取命中会顺延过期时间
type TTLCache[T any] struct {
	storage *lru.Cache[string, CacheItem[T]]
	ttl     time.Duration
	now     func() time.Time
}

// NewTTLCache 初始化，size 是最大缓存条数，ttl 是空闲有效期（0 表示不过期）
func NewTTLCache[T any](size int, ttl time.Duration) (*TTLCache[T], error) {
	// lru.New 是线程安全的
	c, err := lru.New[string, CacheItem[T]](size)
	if err != nil {
		return nil, err
	}
	return &TTLCache[T]{
		storage: c,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// Set 写入或覆盖
func (c *TTLCache[T]) Set(key string, value T) {
	c.storage.Add(key, CacheItem[T]{
		Value:     value,
		ExpiredAt: c.expiry(),
	})
}

// Get 读取（带过期检查）
func (c *TTLCache[T]) Get(key string) (T, bool) {
	var zero T
	item, ok := c.storage.Get(key)
	if !ok {
		return zero, false
	}

	if c.ttl > 0 && c.now().After(item.ExpiredAt) {
		c.storage.Remove(key)
		return zero, false
	}

	if c.ttl > 0 {
		item.ExpiredAt = c.expiry()
		c.storage.Add(key, item)
	}
	return item.Value, true
}

// Purge 移除所有已过期的条目，返回移除数量；使用 Peek 不影响 LRU 顺序
func (c *TTLCache[T]) Purge() int {
	if c.ttl <= 0 {
		return 0
	}
	now := c.now()
	removed := 0
	for _, key := range c.storage.Keys() {
		item, ok := c.storage.Peek(key)
		if ok && now.After(item.ExpiredAt) {
			c.storage.Remove(key)
			removed++
		}
	}
	return removed
}

// Len 当前长度
func (c *TTLCache[T]) Len() int {
	return c.storage.Len()
}

func (c *TTLCache[T]) expiry() time.Time {
	return c.now().Add(c.ttl)
}
