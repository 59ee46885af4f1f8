package objectcache

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/focus-cache/focus-cache/internal/cache"
	"github.com/focus-cache/focus-cache/internal/codec"
	"github.com/focus-cache/focus-cache/internal/layout"
	"github.com/focus-cache/focus-cache/internal/logging"
	"github.com/focus-cache/focus-cache/internal/memory"
)

// Get 先查内存层，未命中时读取磁盘条目。过期或损坏的文件会被顺手删除并记为 miss。
// 返回值是深拷贝，调用方修改不会影响缓存。
func (c *Cache) Get(ctx context.Context, key, group string) (any, bool) {
	group = layout.NormalizeGroup(group)

	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.get(ctx, key, group)
	if !ok {
		return nil, false
	}
	return codec.Clone(v), true
}

// Add 仅在条目不存在（内存和磁盘都没有未过期副本）时写入。
func (c *Cache) Add(ctx context.Context, key, group string, value any, ttl time.Duration) bool {
	group = layout.NormalizeGroup(group)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.suspended {
		return false
	}
	if !c.validName(key, group, opAdd) {
		return false
	}
	if _, ok := c.get(ctx, key, group); ok {
		return false
	}
	c.stats.record(group, opAdd)
	return c.setValue(ctx, key, group, value, ttl)
}

// Set 无条件写入内存与磁盘。ttl 为 0 时使用默认 TTL。磁盘写入失败时返回 false，
// 但内存副本仍然更新。
func (c *Cache) Set(ctx context.Context, key, group string, value any, ttl time.Duration) bool {
	group = layout.NormalizeGroup(group)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.validName(key, group, opSet) {
		return false
	}
	return c.setValue(ctx, key, group, value, ttl)
}

// Replace 仅在内存层已有该条目时写入。
func (c *Cache) Replace(ctx context.Context, key, group string, value any, ttl time.Duration) bool {
	group = layout.NormalizeGroup(group)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.validName(key, group, opReplace) {
		return false
	}
	if _, ok := c.memGet(group, key); !ok {
		return false
	}
	c.stats.record(group, opReplace)
	return c.setValue(ctx, key, group, value, ttl)
}

// Delete 删除内存副本与磁盘文件，两者都不存在时返回 false。
func (c *Cache) Delete(ctx context.Context, key, group string) bool {
	group = layout.NormalizeGroup(group)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.validName(key, group, opDelete) {
		return false
	}
	c.stats.record(group, opDelete)
	return c.remove(ctx, key, group)
}

// Incr 把条目转换为整数后加上 offset，并沿用条目原有的过期时间重新持久化。
func (c *Cache) Incr(ctx context.Context, key, group string, offset int64) (int64, bool) {
	return c.adjust(ctx, key, group, offset, opIncr)
}

// Decr 把条目转换为整数后减去 offset，结果不会小于 0。
// Incr/Decr 的运算在 int64 边界处饱和，不会回绕。
func (c *Cache) Decr(ctx context.Context, key, group string, offset int64) (int64, bool) {
	return c.adjust(ctx, key, group, offset, opDecr)
}

// Flush 删除整个缓存目录并清空内存层。并发写入者可能在 flush 之后重新创建文件。
func (c *Cache) Flush(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	root := c.resolver.Root()
	if err := c.store.PurgeAll(root); err != nil {
		c.log.WithFields(logrus.Fields{
			"action": "flush",
			"root":   root,
		}).WithError(err).Warn("清理缓存目录失败")
	}
	c.mem.Reset()
	c.stats.record("", opFlush)
	c.log.WithFields(logrus.Fields{"action": "flush", "root": root}).Debug("cache flushed")
	return true
}

func (c *Cache) adjust(ctx context.Context, key, group string, offset int64, op string) (int64, bool) {
	group = layout.NormalizeGroup(group)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.validName(key, group, op) {
		return 0, false
	}
	current, ok := c.memGet(group, key)
	if !ok {
		return 0, false
	}

	var next int64
	if op == opDecr {
		next = max(subClamped(toInt64(current.Value), offset), 0)
	} else {
		next = addClamped(toInt64(current.Value), offset)
	}

	c.stats.record(group, op)
	c.setNormalized(ctx, key, group, next, current.ExpiresAt)
	return next, true
}

// get 是不加锁、不拷贝的查找，调用方必须持有 c.mu。
func (c *Cache) get(ctx context.Context, key, group string) (any, bool) {
	if e, ok := c.memGet(group, key); ok {
		c.hit(group, key, opHitMemory)
		return e.Value, true
	}
	if !c.persistent(group) {
		c.miss(group, key, opMissEmpty)
		return nil, false
	}

	path, err := c.entryPath(group, key)
	if err != nil {
		c.warn(err, "resolve", group, key, "无法解析条目路径")
		c.miss(group, key, opMissEmpty)
		return nil, false
	}
	if !c.store.Exists(path) {
		c.miss(group, key, opMissEmpty)
		return nil, false
	}
	if c.expirySource == ExpiryFromMtime && c.store.TimeToExpiry(path) < 0 {
		c.remove(ctx, key, group)
		c.miss(group, key, opMissExpired)
		return nil, false
	}

	data, err := c.store.Read(ctx, path)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			c.warn(err, "read", group, key, "读取条目失败")
		}
		c.miss(group, key, opMissEmpty)
		return nil, false
	}
	payload, err := c.codec.Decode(data)
	if err != nil {
		c.warn(err, "decode", group, key, "条目内容损坏，已删除")
		c.remove(ctx, key, group)
		c.miss(group, key, opMissCorrupt)
		return nil, false
	}
	expiresAt := c.diskExpiry(payload, path)
	if c.expiry.Remaining(expiresAt) < 0 {
		c.remove(ctx, key, group)
		c.miss(group, key, opMissExpired)
		return nil, false
	}

	c.mem.Set(c.memGroup(group), key, payload.Value, expiresAt)
	c.hit(group, key, opHitDisk)
	return payload.Value, true
}

// memGet 返回内存副本；已过期的副本视为不存在并从内存层移除。
func (c *Cache) memGet(group, key string) (memory.Entry, bool) {
	mg := c.memGroup(group)
	e, ok := c.mem.Get(mg, key)
	if !ok {
		return memory.Entry{}, false
	}
	if e.Expired(c.expiry.Now()) {
		c.mem.Delete(mg, key)
		return memory.Entry{}, false
	}
	return e, true
}

// diskExpiry 返回磁盘条目的过期时间。payload 模式下内嵌的过期时间优先，缺失时回退到 mtime。
func (c *Cache) diskExpiry(payload codec.Payload, path string) time.Time {
	if c.expirySource == ExpiryFromPayload && !payload.ExpiresAt.IsZero() {
		return payload.ExpiresAt
	}
	return c.expiry.Now().Add(c.store.TimeToExpiry(path))
}

func (c *Cache) setValue(ctx context.Context, key, group string, value any, ttl time.Duration) bool {
	normalized, err := codec.Normalize(value)
	if err != nil {
		c.warn(err, "set", group, key, "不支持的缓存值")
		return false
	}
	c.stats.record(group, opSet)
	return c.setNormalized(ctx, key, group, normalized, c.expiry.ExpiresAt(ttl))
}

// setNormalized 写入内存层后再持久化；磁盘失败只影响返回值。
func (c *Cache) setNormalized(ctx context.Context, key, group string, value any, expiresAt time.Time) bool {
	ttl := c.expiry.Remaining(expiresAt)
	c.mem.Set(c.memGroup(group), key, value, expiresAt)

	fields := logging.CacheFields(opSet, group, key, "memory")
	fields["ttl"] = ttl.String()
	if !c.persistent(group) {
		c.log.WithFields(fields).Debug("cache set")
		return true
	}

	path, err := c.entryPath(group, key)
	if err != nil {
		c.warn(err, "set", group, key, "无法解析条目路径")
		return false
	}
	data, err := c.codec.Encode(value, expiresAt)
	if err != nil {
		c.warn(err, "encode", group, key, "条目编码失败")
		return false
	}
	if err := c.store.Write(ctx, path, data, ttl); err != nil {
		c.warn(err, "write", group, key, "条目持久化失败，仅保留内存副本")
		return false
	}
	fields["tier"] = "disk"
	c.log.WithFields(fields).Debug("cache set")
	return true
}

// remove 删除内存与磁盘副本，返回删除前二者是否有其一存在。
func (c *Cache) remove(ctx context.Context, key, group string) bool {
	existed := c.mem.Delete(c.memGroup(group), key)
	if !c.persistent(group) {
		return existed
	}
	path, err := c.entryPath(group, key)
	if err != nil {
		return existed
	}
	if c.store.Exists(path) {
		existed = true
		if err := c.store.Remove(ctx, path); err != nil {
			c.warn(err, "delete", group, key, "删除条目文件失败")
		}
	}
	return existed
}

func (c *Cache) validName(key, group, op string) bool {
	err := layout.ValidateKey(key)
	if err == nil {
		err = layout.ValidateGroup(group)
	}
	if err != nil {
		c.warn(err, op, group, key, "非法的 key 或 group")
		return false
	}
	return true
}

func (c *Cache) hit(group, key, op string) {
	c.stats.hit(group, op)
	c.log.WithFields(logging.CacheFields(op, group, key, tierOf(op))).Debug("cache hit")
}

func (c *Cache) miss(group, key, op string) {
	c.stats.miss(group, op)
	c.log.WithFields(logging.CacheFields(op, group, key, "")).Debug("cache miss")
}

func (c *Cache) warn(err error, action, group, key, msg string) {
	fields := logging.CacheFields(action, group, key, "")
	fields["tenant_id"] = c.tenantID
	c.log.WithFields(fields).WithError(err).Warn(msg)
}

func tierOf(op string) string {
	if op == opHitMemory {
		return "memory"
	}
	return "disk"
}
