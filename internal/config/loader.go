package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	// EnvSecret 允许通过环境变量注入租户哈希 secret，避免写入配置文件。
	EnvSecret = "FOCUS_CACHE_SECRET"
	// EnvTenantID 允许按进程覆盖当前租户。
	EnvTenantID = "FOCUS_CACHE_TENANT_ID"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "focus-cache.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	if err := v.BindEnv("Secret", EnvSecret); err != nil {
		return nil, err
	}
	if err := v.BindEnv("TenantID", EnvTenantID); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	hooks := mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		fileModeDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hooks)); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyCacheDefaults(&cfg.Cache)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absDir, err := filepath.Abs(cfg.Cache.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("无法解析缓存目录: %w", err)
	}
	cfg.Cache.CacheDir = absDir

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogMaxAgeDays", 0)
	v.SetDefault("LogCompress", true)
	v.SetDefault("DiagnosticsPort", 0)
	v.SetDefault("CacheDir", "./object-cache")
	v.SetDefault("DefaultTTL", "8760h")
	v.SetDefault("TenantID", 1)
	v.SetDefault("Multisite", true)
	v.SetDefault("HashTenantPrefix", true)
	v.SetDefault("NonPersistentGroups", []string{"comment"})
	v.SetDefault("Serializer", "msgpack")
	v.SetDefault("ExpirySource", "mtime")
	v.SetDefault("DirMode", "0755")
	v.SetDefault("MaxPayloadBytes", 16<<20)
}

func applyCacheDefaults(c *CacheConfig) {
	if c.DefaultTTL.DurationValue() == 0 {
		c.DefaultTTL = Duration(365 * 24 * time.Hour)
	}
	if c.DirMode == 0 {
		c.DirMode = FileMode(0o755)
	}
	c.Serializer = strings.ToLower(strings.TrimSpace(c.Serializer))
	c.ExpirySource = strings.ToLower(strings.TrimSpace(c.ExpirySource))
	c.GlobalGroups = dedupe(c.GlobalGroups)
	c.NonPersistentGroups = dedupe(c.NonPersistentGroups)
}

func dedupe(groups []string) []string {
	if len(groups) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(groups))
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}

// fileModeDecodeHook 把 "0755" 按八进制解析；整数（TOML 0o755）按原值使用。
func fileModeDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(FileMode(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			var m FileMode
			if err := m.UnmarshalText([]byte(v)); err != nil {
				return nil, err
			}
			return m, nil
		case int:
			return FileMode(os.FileMode(v)), nil
		case int64:
			return FileMode(os.FileMode(v)), nil
		case FileMode:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 DirMode 类型: %T", v)
		}
	}
}
