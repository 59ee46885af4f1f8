package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/focus-cache/focus-cache/internal/config"
)

func TestConfigureDefaultsToStdout(t *testing.T) {
	logger, err := InitLogger(config.GlobalConfig{LogLevel: "info"})
	if err != nil {
		t.Fatalf("配置失败: %v", err)
	}
	if logger.Out != os.Stdout {
		t.Fatalf("未指定文件时应输出到 stdout")
	}
}

func TestInitLoggerFallbackOnPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root 忽略目录权限")
	}
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	if err := os.Mkdir(blocked, 0o755); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}
	if err := os.Chmod(blocked, 0o000); err != nil {
		t.Fatalf("设置目录权限失败: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(blocked, 0o755) })

	cfg := config.GlobalConfig{
		LogLevel:    "info",
		LogFilePath: filepath.Join(blocked, "sub", "focus-cache.log"),
	}
	logger, err := InitLogger(cfg)
	if err != nil {
		t.Fatalf("初始化不应失败: %v", err)
	}
	if logger.Out != os.Stdout {
		t.Fatalf("fallback 时应退回 stdout")
	}
}

func TestConfigureCreatesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "focus-cache.log")
	cfg := config.GlobalConfig{LogLevel: "debug", LogFilePath: path}
	logger, err := InitLogger(cfg)
	if err != nil {
		t.Fatalf("配置失败: %v", err)
	}
	logger.Info("test")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("预期创建日志文件: %v", err)
	}
}

func TestCacheFieldsOmitsEmptyTier(t *testing.T) {
	fields := CacheFields("get", "posts", "1", "")
	if _, ok := fields["tier"]; ok {
		t.Fatalf("tier 为空时不应输出")
	}
	fields = CacheFields("hit_disk", "posts", "1", "disk")
	if fields["tier"] != "disk" || fields["group"] != "posts" || fields["action"] != "hit_disk" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestComponentAddsField(t *testing.T) {
	entry := Component(nil, "objectcache")
	if entry.Data["component"] != "objectcache" {
		t.Fatalf("component 字段缺失: %v", entry.Data)
	}
}
