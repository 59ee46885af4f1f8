package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"8760h" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// FileMode 接受 "0755" 形式的八进制字符串或 TOML 八进制整数（0o755）。
type FileMode os.FileMode

// UnmarshalText 解析八进制权限字符串。
func (m *FileMode) UnmarshalText(text []byte) error {
	raw := strings.TrimPrefix(strings.TrimSpace(string(text)), "0o")
	if raw == "" {
		*m = 0
		return nil
	}
	v, err := strconv.ParseUint(raw, 8, 32)
	if err != nil {
		return fmt.Errorf("invalid file mode: %s", string(text))
	}
	*m = FileMode(v)
	return nil
}

// Perm 返回 os.FileMode 的权限位。
func (m FileMode) Perm() os.FileMode {
	return os.FileMode(m).Perm()
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述进程级行为：日志与诊断端口。
type GlobalConfig struct {
	LogLevel        string `mapstructure:"LogLevel"`
	LogFilePath     string `mapstructure:"LogFilePath"`
	LogMaxSize      int    `mapstructure:"LogMaxSize"`
	LogMaxBackups   int    `mapstructure:"LogMaxBackups"`
	LogMaxAgeDays   int    `mapstructure:"LogMaxAgeDays"`
	LogCompress     bool   `mapstructure:"LogCompress"`
	DiagnosticsPort int    `mapstructure:"DiagnosticsPort"`
}

// CacheConfig 是缓存引擎消费的宿主配置，引擎本身不计算这些值。
type CacheConfig struct {
	CacheDir            string   `mapstructure:"CacheDir"`
	Secret              string   `mapstructure:"Secret"`
	DefaultTTL          Duration `mapstructure:"DefaultTTL"`
	TenantID            int64    `mapstructure:"TenantID"`
	Multisite           bool     `mapstructure:"Multisite"`
	HashTenantPrefix    bool     `mapstructure:"HashTenantPrefix"`
	GlobalGroups        []string `mapstructure:"GlobalGroups"`
	NonPersistentGroups []string `mapstructure:"NonPersistentGroups"`
	SuspendAdditions    bool     `mapstructure:"SuspendAdditions"`
	Serializer          string   `mapstructure:"Serializer"`
	ExpirySource        string   `mapstructure:"ExpirySource"`
	DirMode             FileMode `mapstructure:"DirMode"`
	MaxPayloadBytes     int      `mapstructure:"MaxPayloadBytes"`
}

// Config 是 TOML 文件映射的整体结构，所有键位于顶层。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	Cache  CacheConfig  `mapstructure:",squash"`
}

// SecretMode 输出 salted、unsalted 或 raw，供启动日志提示租户前缀的派生方式。
func (c CacheConfig) SecretMode() string {
	if !c.HashTenantPrefix {
		return "raw"
	}
	if c.Secret == "" {
		return "unsalted"
	}
	return "salted"
}
