package cache

import "time"

// ExpiryPolicy 把调用方传入的 TTL 转换为绝对过期时间。ttl 为 0 时使用 DefaultTTL，
// 永远不会产生“永不过期”的条目。
type ExpiryPolicy struct {
	DefaultTTL time.Duration
	now        func() time.Time
}

// NewExpiryPolicy 构造过期策略，now 为空时使用 time.Now。
func NewExpiryPolicy(defaultTTL time.Duration, now func() time.Time) ExpiryPolicy {
	if now == nil {
		now = time.Now
	}
	return ExpiryPolicy{DefaultTTL: defaultTTL, now: now}
}

// Effective 返回实际生效的 TTL。
func (p ExpiryPolicy) Effective(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return p.DefaultTTL
	}
	return ttl
}

// ExpiresAt 返回 now + Effective(ttl)。
func (p ExpiryPolicy) ExpiresAt(ttl time.Duration) time.Time {
	return p.now().Add(p.Effective(ttl))
}

// Remaining 返回距离 expiresAt 的剩余时间，负数表示已过期。
func (p ExpiryPolicy) Remaining(expiresAt time.Time) time.Duration {
	return expiresAt.Sub(p.now())
}

// Now 返回策略使用的当前时间。
func (p ExpiryPolicy) Now() time.Time {
	return p.now()
}
