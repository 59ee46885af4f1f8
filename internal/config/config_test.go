package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfgPath := testConfigPath(t, "valid.toml")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Cache.DefaultTTL.DurationValue() != 24*time.Hour {
		t.Fatalf("DefaultTTL 解析错误: %v", cfg.Cache.DefaultTTL.DurationValue())
	}
	if !filepath.IsAbs(cfg.Cache.CacheDir) {
		t.Fatalf("CacheDir 应转换为绝对路径: %s", cfg.Cache.CacheDir)
	}
	if cfg.Cache.TenantID != 3 || cfg.Cache.Serializer != "cbor" {
		t.Fatalf("TenantID/Serializer 未按文件解析: %+v", cfg.Cache)
	}
	if cfg.Cache.DirMode.Perm() != 0o750 {
		t.Fatalf("DirMode 应按八进制解析, got %#o", uint32(cfg.Cache.DirMode))
	}
	if len(cfg.Cache.GlobalGroups) != 3 || len(cfg.Cache.NonPersistentGroups) != 2 {
		t.Fatalf("分组列表解析错误: %+v", cfg.Cache)
	}
	if !cfg.Cache.Multisite || !cfg.Cache.HashTenantPrefix {
		t.Fatalf("Multisite/HashTenantPrefix 默认应开启")
	}
	if cfg.Cache.ExpirySource != "mtime" {
		t.Fatalf("ExpirySource 默认应为 mtime")
	}
	if cfg.Cache.MaxPayloadBytes != 16<<20 {
		t.Fatalf("MaxPayloadBytes 默认值错误: %d", cfg.Cache.MaxPayloadBytes)
	}
	if cfg.Global.DiagnosticsPort != 9090 {
		t.Fatalf("DiagnosticsPort 应当被解析")
	}
}

func TestValidateRejectsInvalidFile(t *testing.T) {
	if _, err := Load(testConfigPath(t, "invalid.toml")); err == nil {
		t.Fatalf("不合法的配置应返回错误")
	}
}

func TestSecretFromEnv(t *testing.T) {
	t.Setenv(EnvSecret, "from-env")
	cfg, err := Load(testConfigPath(t, "valid.toml"))
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Cache.Secret != "from-env" {
		t.Fatalf("Secret 应来自环境变量, got %q", cfg.Cache.Secret)
	}
	if cfg.Cache.SecretMode() != "salted" {
		t.Fatalf("设置 secret 后应为 salted")
	}
}

func TestSecretModeUnsalted(t *testing.T) {
	c := CacheConfig{HashTenantPrefix: true}
	if c.SecretMode() != "unsalted" {
		t.Fatalf("空 secret 应为 unsalted")
	}
	c.HashTenantPrefix = false
	if c.SecretMode() != "raw" {
		t.Fatalf("关闭哈希时应为 raw")
	}
}

func TestValidateEnforcesDiagnosticsPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Global.DiagnosticsPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("DiagnosticsPort 超出范围应当报错")
	}
}

func TestSerializerValidation(t *testing.T) {
	testCases := []struct {
		name       string
		serializer string
		shouldErr  bool
	}{
		{"msgpack ok", "msgpack", false},
		{"cbor ok", "cbor", false},
		{"missing", "", true},
		{"unsupported", "gob", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Cache.Serializer = tc.serializer
			err := cfg.Validate()
			if tc.shouldErr && err == nil {
				t.Fatalf("expected error for serializer %q", tc.serializer)
			}
			if !tc.shouldErr && err != nil {
				t.Fatalf("unexpected error for serializer %q: %v", tc.serializer, err)
			}
		})
	}
}

func TestValidateRejectsUnsafeGroups(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.GlobalGroups = []string{"users", "../etc"}
	err := cfg.Validate()
	var fieldErr FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("expected FieldError, got %v", err)
	}
	if fieldErr.Field != "Cache.GlobalGroups[1]" {
		t.Fatalf("字段路径错误: %s", fieldErr.Field)
	}
}

func TestValidateRejectsDirModeWithoutOwnerAccess(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.DirMode = FileMode(0o055)
	if err := cfg.Validate(); err == nil {
		t.Fatalf("属主无 rwx 的 DirMode 应报错")
	}
}

func TestValidateRequiresPositiveTenant(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.TenantID = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("TenantID=0 应报错")
	}
}

func TestFileModeUnmarshalText(t *testing.T) {
	var m FileMode
	if err := m.UnmarshalText([]byte("0o700")); err != nil || m.Perm() != 0o700 {
		t.Fatalf("0o700 解析失败: %v %#o", err, uint32(m))
	}
	if err := m.UnmarshalText([]byte("9")); err == nil {
		t.Fatalf("非八进制应报错")
	}
}

func validConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			CacheDir:         filepath.Join(os.TempDir(), "focus-cache"),
			DefaultTTL:       Duration(time.Hour),
			TenantID:         1,
			Multisite:        true,
			HashTenantPrefix: true,
			Serializer:       "msgpack",
			ExpirySource:     "mtime",
			DirMode:          FileMode(0o755),
		},
	}
}
