package objectcache

import (
	"github.com/focus-cache/focus-cache/internal/cache"
)

const (
	opHitMemory   = "hit_memory"
	opHitDisk     = "hit_disk"
	opMissEmpty   = "miss_empty"
	opMissExpired = "miss_expired"
	opMissCorrupt = "miss_corrupt"
	opSet         = "set"
	opAdd         = "add"
	opReplace     = "replace"
	opDelete      = "delete"
	opIncr        = "incr"
	opDecr        = "decr"
	opFlush       = "flush"
)

// Stats 是某一时刻的命中统计快照，Groups 记录每个分组各类操作的次数。
type Stats struct {
	Hits          int64                       `json:"hits"`
	Misses        int64                       `json:"misses"`
	Flushes       int64                       `json:"flushes"`
	MemoryEntries int                         `json:"memory_entries"`
	MemoryGroups  int                         `json:"memory_groups"`
	Groups        map[string]map[string]int64 `json:"groups"`
}

type stats struct {
	hits    int64
	misses  int64
	flushes int64
	groups  map[string]map[string]int64
}

func newStats() stats {
	return stats{groups: make(map[string]map[string]int64)}
}

func (s *stats) record(group, op string) {
	if op == opFlush {
		s.flushes++
		return
	}
	ops := s.groups[group]
	if ops == nil {
		ops = make(map[string]int64)
		s.groups[group] = ops
	}
	ops[op]++
}

func (s *stats) hit(group, op string) {
	s.hits++
	s.record(group, op)
}

func (s *stats) miss(group, op string) {
	s.misses++
	s.record(group, op)
}

// Stats 返回当前进程内的统计快照。
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	groups := make(map[string]map[string]int64, len(c.stats.groups))
	for g, ops := range c.stats.groups {
		copied := make(map[string]int64, len(ops))
		for op, n := range ops {
			copied[op] = n
		}
		groups[g] = copied
	}
	return Stats{
		Hits:          c.stats.hits,
		Misses:        c.stats.misses,
		Flushes:       c.stats.flushes,
		MemoryEntries: c.mem.Len(),
		MemoryGroups:  len(c.mem.Groups()),
		Groups:        groups,
	}
}

// Scope 描述当前的租户作用域与分组策略，供诊断端输出。
type Scope struct {
	Root                string   `json:"root"`
	TenantID            int64    `json:"tenant_id"`
	TenantDir           string   `json:"tenant_dir"`
	HashedPrefix        bool     `json:"hashed_prefix"`
	DegradedSecret      bool     `json:"degraded_secret"`
	GlobalGroups        []string `json:"global_groups"`
	NonPersistentGroups []string `json:"non_persistent_groups"`
	AdditionsSuspended  bool     `json:"additions_suspended"`
	Serializer          string   `json:"serializer"`
	ExpirySource        string   `json:"expiry_source"`
}

// Describe 返回当前作用域信息。
func (c *Cache) Describe() Scope {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Scope{
		Root:                c.resolver.Root(),
		TenantID:            c.tenantID,
		TenantDir:           c.resolver.ScopeDir(c.tenantPrefix, ""),
		HashedPrefix:        c.hashTenant,
		DegradedSecret:      c.hashTenant && c.hasher.Degraded(),
		GlobalGroups:        c.resolver.GlobalGroups(),
		NonPersistentGroups: c.nonPersistent.List(),
		AdditionsSuspended:  c.suspended,
		Serializer:          c.codec.SerializerName(),
		ExpirySource:        string(c.expirySource),
	}
}

// Inventory 扫描缓存目录，统计各作用域的条目占用。
func (c *Cache) Inventory() (*cache.Inventory, error) {
	return c.store.Inventory(c.resolver.Root())
}
