// Package memory holds the process-local tier of the object cache: decoded
// values keyed by group then key, each with the absolute time it expires.
package memory

import (
	"sort"
	"time"
)

// Entry 是内存层保存的解码值与其过期时间。引擎写入的条目总带有过期时间；零值视为不过期。
type Entry struct {
	Value     any
	ExpiresAt time.Time
}

// Expired 判断条目在 now 时刻是否已过期。
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Layer 是 group → key → Entry 的两级映射。Layer 不加锁，由调用方（objectcache.Cache）串行访问。
type Layer struct {
	groups map[string]map[string]Entry
}

// New 返回空的 Layer。
func New() *Layer {
	return &Layer{groups: make(map[string]map[string]Entry)}
}

// Exists 判断分组存在且 key 存在，与值是否为 nil/false 无关，也不判断过期。
func (l *Layer) Exists(group, key string) bool {
	_, ok := l.Get(group, key)
	return ok
}

// Get 返回存储的条目本身，调用方负责判断过期并在对外返回前做深拷贝。
func (l *Layer) Get(group, key string) (Entry, bool) {
	items, ok := l.groups[group]
	if !ok {
		return Entry{}, false
	}
	e, ok := items[key]
	return e, ok
}

// Set 写入或覆盖一个值。
func (l *Layer) Set(group, key string, value any, expiresAt time.Time) {
	items, ok := l.groups[group]
	if !ok {
		items = make(map[string]Entry)
		l.groups[group] = items
	}
	items[key] = Entry{Value: value, ExpiresAt: expiresAt}
}

// Delete 删除条目并返回删除前是否存在；分组清空后一并移除。
func (l *Layer) Delete(group, key string) bool {
	items, ok := l.groups[group]
	if !ok {
		return false
	}
	if _, ok := items[key]; !ok {
		return false
	}
	delete(items, key)
	if len(items) == 0 {
		delete(l.groups, group)
	}
	return true
}

// Purge 删除所有在 now 时刻已过期的条目，返回删除数量。
func (l *Layer) Purge(now time.Time) int {
	n := 0
	for group, items := range l.groups {
		for key, e := range items {
			if e.Expired(now) {
				delete(items, key)
				n++
			}
		}
		if len(items) == 0 {
			delete(l.groups, group)
		}
	}
	return n
}

// Reset 清空所有分组。
func (l *Layer) Reset() {
	l.groups = make(map[string]map[string]Entry)
}

// Len 返回条目总数。
func (l *Layer) Len() int {
	n := 0
	for _, items := range l.groups {
		n += len(items)
	}
	return n
}

// Groups 返回当前持有条目的分组，按名称排序。
func (l *Layer) Groups() []string {
	if len(l.groups) == 0 {
		return nil
	}
	out := make([]string, 0, len(l.groups))
	for g := range l.groups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
