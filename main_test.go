package main

import (
	"strings"
	"testing"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv(envConfigPath, "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" {
		t.Fatalf("flag 应高于环境变量，得到 %s", opts.configPath)
	}
}

func TestParseCLIFlagsCommandArgs(t *testing.T) {
	opts, err := parseCLIFlags([]string{"-tenant", "3", "get", "posts", "1"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.tenantID != 3 {
		t.Fatalf("tenant 应为 3，得到 %d", opts.tenantID)
	}
	if strings.Join(opts.args, " ") != "get posts 1" {
		t.Fatalf("命令参数解析错误: %v", opts.args)
	}

	if _, err := parseCLIFlags([]string{"-tenant", "-1"}); err == nil {
		t.Fatalf("负数租户应报错")
	}
	if _, err := parseCLIFlags([]string{"-unknown"}); err == nil {
		t.Fatalf("未知 flag 应报错")
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "valid.toml"), checkOnly: true})
	if code != exitOK {
		t.Fatalf("期望退出码 0，得到 %d", code)
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "invalid.toml"), checkOnly: true})
	if code == exitOK {
		t.Fatalf("无效配置应返回非零退出码")
	}
}

func TestRunVersionOutput(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{showVersion: true})
	if code != exitOK {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(stdOutBuffer().String(), "focus-cache") {
		t.Fatalf("version 输出应包含 focus-cache 标识")
	}
}

func TestRunWithoutCommandIsUsageError(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: cacheConfig(t, t.TempDir())})
	if code != exitUsage {
		t.Fatalf("缺少命令应返回 2，得到 %d", code)
	}
	if !strings.Contains(stdErrBuffer().String(), "usage") {
		t.Fatalf("应输出用法提示: %s", stdErrBuffer().String())
	}
}

func TestRunServeRequiresPort(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: cacheConfig(t, t.TempDir()), serve: true})
	if code != exitFail {
		t.Fatalf("未配置 DiagnosticsPort 时应失败，得到 %d", code)
	}
}
