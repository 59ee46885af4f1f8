package layout

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

const tenantPrefixLen = 32

// Hasher 使用启动时注入的 secret 对租户 ID 做 HMAC，生成稳定的目录前缀。
type Hasher struct {
	secret []byte
}

// NewHasher 构造 Hasher；secret 为空时仍可工作，但 Degraded 会返回 true。
func NewHasher(secret string) Hasher {
	return Hasher{secret: []byte(secret)}
}

// Hash 返回 hex(HMAC-SHA256(secret, tenantID)) 的前 32 位。
func (h Hasher) Hash(tenantID string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(tenantID))
	return hex.EncodeToString(mac.Sum(nil))[:tenantPrefixLen]
}

// Degraded 表示未配置 secret，租户目录名可被任何知道租户 ID 的人推算出来。
func (h Hasher) Degraded() bool {
	return len(h.secret) == 0
}
