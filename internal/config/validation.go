package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/focus-cache/focus-cache/internal/layout"
)

var (
	supportedSerializers   = []string{"msgpack", "cbor"}
	supportedExpirySources = []string{"mtime", "payload"}
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.DiagnosticsPort < 0 || g.DiagnosticsPort > 65535 {
		return newFieldError("Global.DiagnosticsPort", "必须在 0-65535")
	}
	if g.LogMaxSize < 0 || g.LogMaxBackups < 0 || g.LogMaxAgeDays < 0 {
		return newFieldError("Global.LogMaxSize/LogMaxBackups/LogMaxAgeDays", "不能为负数")
	}

	cc := c.Cache
	if cc.CacheDir == "" {
		return newFieldError("Cache.CacheDir", "不能为空")
	}
	if cc.DefaultTTL.DurationValue() <= 0 {
		return newFieldError("Cache.DefaultTTL", "必须大于 0")
	}
	if cc.TenantID < 1 {
		return newFieldError("Cache.TenantID", "必须 >= 1")
	}
	if !oneOf(cc.Serializer, supportedSerializers) {
		return newFieldError("Cache.Serializer", "仅支持 msgpack|cbor")
	}
	if !oneOf(cc.ExpirySource, supportedExpirySources) {
		return newFieldError("Cache.ExpirySource", "仅支持 mtime|payload")
	}
	if perm := cc.DirMode.Perm(); perm != os.FileMode(cc.DirMode) || perm&0o700 != 0o700 {
		return newFieldError("Cache.DirMode", fmt.Sprintf("非法权限 %#o，属主需要 rwx", uint32(cc.DirMode)))
	}
	if cc.MaxPayloadBytes < 0 {
		return newFieldError("Cache.MaxPayloadBytes", "不能为负数")
	}

	for i, group := range cc.GlobalGroups {
		if err := layout.ValidateGroup(group); err != nil {
			return newFieldError(listField("Cache.GlobalGroups", i), err.Error())
		}
	}
	for i, group := range cc.NonPersistentGroups {
		if err := layout.ValidateGroup(group); err != nil {
			return newFieldError(listField("Cache.NonPersistentGroups", i), err.Error())
		}
	}

	return nil
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
