package objectcache

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/focus-cache/focus-cache/internal/cache"
	"github.com/focus-cache/focus-cache/internal/codec"
	"github.com/focus-cache/focus-cache/internal/layout"
	"github.com/focus-cache/focus-cache/internal/memory"
)

// ExpirySource 决定磁盘条目的过期时间以哪里为准。
type ExpirySource string

const (
	// ExpiryFromMtime 以文件 mtime 为准，兼容既有缓存目录。
	ExpiryFromMtime ExpirySource = "mtime"
	// ExpiryFromPayload 以条目内嵌的过期时间为准，mtime 仅作兜底。
	ExpiryFromPayload ExpirySource = "payload"

	// DefaultTTL 对应“一年”，ttl=0 的条目使用该值。
	DefaultTTL = 365 * 24 * time.Hour
)

// Options 是构造 Cache 所需的全部依赖，由组合根显式传入。
type Options struct {
	Store    cache.Store
	Resolver *layout.Resolver
	Codec    codec.Codec
	Hasher   layout.Hasher
	Logger   logrus.FieldLogger

	DefaultTTL          time.Duration
	TenantID            int64
	HashTenantPrefix    bool
	GlobalGroups        []string
	NonPersistentGroups []string
	SuspendAdditions    bool
	ExpirySource        ExpirySource
	Now                 func() time.Time
}

// Cache 组合内存层与磁盘层。方法可并发调用，但设计上按单请求同步使用。
type Cache struct {
	mu sync.Mutex

	store    cache.Store
	resolver *layout.Resolver
	codec    codec.Codec
	hasher   layout.Hasher
	log      logrus.FieldLogger
	expiry   cache.ExpiryPolicy

	hashTenant    bool
	tenantID      int64
	tenantPrefix  string
	nonPersistent layout.GroupSet
	suspended     bool
	expirySource  ExpirySource

	mem   *memory.Layer
	stats stats
}

// New 校验依赖并构造 Cache。未配置 secret 时会记录一条降级告警。
func New(opts Options) (*Cache, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if opts.TenantID < 1 {
		opts.TenantID = 1
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	source := ExpirySource(strings.ToLower(string(opts.ExpirySource)))
	switch source {
	case "":
		source = ExpiryFromMtime
	case ExpiryFromMtime, ExpiryFromPayload:
	default:
		return nil, fmt.Errorf("unknown expiry source %q", opts.ExpirySource)
	}

	logger := opts.Logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	c := &Cache{
		store:         opts.Store,
		resolver:      opts.Resolver,
		codec:         opts.Codec,
		hasher:        opts.Hasher,
		log:           logger,
		expiry:        cache.NewExpiryPolicy(opts.DefaultTTL, opts.Now),
		hashTenant:    opts.HashTenantPrefix,
		nonPersistent: layout.NewGroupSet(opts.NonPersistentGroups...),
		suspended:     opts.SuspendAdditions,
		expirySource:  source,
		mem:           memory.New(),
		stats:         newStats(),
	}
	c.resolver.AddGlobalGroups(opts.GlobalGroups...)
	c.setTenant(opts.TenantID)

	if c.hashTenant && c.hasher.Degraded() {
		c.log.WithFields(logrus.Fields{
			"action": "tenant_hash",
		}).Warn("未配置 Secret，租户目录前缀可被推算")
	}
	return c, nil
}

// SwitchTenant 切换当前租户，id < 1 时不做任何修改并返回 false。
// 内存层按作用域区分条目，切换租户不会让其它租户的内存副本泄漏过来；顺带清理已过期的内存副本。
func (c *Cache) SwitchTenant(id int64) bool {
	if id < 1 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setTenant(id)
	if n := c.mem.Purge(c.expiry.Now()); n > 0 {
		c.log.WithFields(logrus.Fields{
			"action":    "switch_tenant",
			"tenant_id": id,
			"purged":    n,
		}).Debug("purged expired memory entries")
	}
	return true
}

// TenantID 返回当前租户 ID。
func (c *Cache) TenantID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tenantID
}

func (c *Cache) setTenant(id int64) {
	c.tenantID = id
	raw := strconv.FormatInt(id, 10)
	if c.hashTenant {
		c.tenantPrefix = c.hasher.Hash(raw)
		return
	}
	c.tenantPrefix = raw
}

// AddGlobalGroups 把分组标记为全局（不按租户隔离），重复项会去重。
func (c *Cache) AddGlobalGroups(groups ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolver.AddGlobalGroups(groups...)
}

// AddNonPersistentGroups 把分组标记为仅内存，不读写磁盘。
func (c *Cache) AddNonPersistentGroups(groups ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonPersistent.Add(groups...)
}

// SuspendAdditions 暂停或恢复 Add，返回设置后的状态。
func (c *Cache) SuspendAdditions(suspend bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspended = suspend
	return c.suspended
}

// AdditionsSuspended 返回 Add 是否被暂停。
func (c *Cache) AdditionsSuspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspended
}

// Close 保留与宿主缓存接口的一致性，始终返回 true。
func (c *Cache) Close() bool {
	return true
}

func (c *Cache) persistent(group string) bool {
	return !c.nonPersistent.Has(group)
}

// memGroup 把分组与作用域目录组合成内存层的分组键，使内存层与磁盘布局一致地按租户隔离。
func (c *Cache) memGroup(group string) string {
	return c.resolver.ScopeDir(c.tenantPrefix, group) + "|" + group
}

func (c *Cache) entryPath(group, key string) (string, error) {
	return c.resolver.Resolve(c.tenantPrefix, group, key)
}
