package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/focus-cache/focus-cache/internal/cache"
	"github.com/focus-cache/focus-cache/internal/codec"
	"github.com/focus-cache/focus-cache/internal/config"
	"github.com/focus-cache/focus-cache/internal/layout"
	"github.com/focus-cache/focus-cache/internal/logging"
	"github.com/focus-cache/focus-cache/internal/objectcache"
	"github.com/focus-cache/focus-cache/internal/server"
	"github.com/focus-cache/focus-cache/internal/server/routes"
	"github.com/focus-cache/focus-cache/internal/version"
)

// envConfigPath 允许通过环境变量指定配置文件，-config 优先。
const envConfigPath = "FOCUS_CACHE_CONFIG"

// 退出码：0 成功，1 失败或未命中，2 用法错误。
const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	serve       bool
	tenantID    int64
	args        []string
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

var errUsage = errors.New("usage: focus-cache [-config path] [-check-config] [-version] [-serve] [-tenant N] <get|set|add|replace|delete|incr|decr|flush|stats> [args]")

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(exitUsage)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return exitOK
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return exitFail
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return exitFail
	}
	// 命令模式下 stdout 留给命令结果，日志改走 stderr。
	if cfg.Global.LogFilePath == "" && !opts.serve {
		logger.SetOutput(stdErr)
	}

	if opts.tenantID > 0 {
		cfg.Cache.TenantID = opts.tenantID
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["cache_dir"] = cfg.Cache.CacheDir
		fields["tenant_id"] = cfg.Cache.TenantID
		fields["serializer"] = cfg.Cache.Serializer
		fields["secret"] = cfg.Cache.SecretMode()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return exitOK
	}

	if !opts.serve && len(opts.args) == 0 {
		fmt.Fprintln(stdErr, errUsage.Error())
		return exitUsage
	}

	// 启动顺序：配置 → 磁盘 Store → 路径解析 → 编解码 → 引擎，
	// 命令与诊断服务共享同一个引擎实例。
	engine, err := newEngine(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存引擎失败: %v\n", err)
		return exitFail
	}
	defer engine.Close()

	fields := logging.BaseFields("startup", opts.configPath)
	fields["cache_dir"] = cfg.Cache.CacheDir
	fields["tenant_id"] = cfg.Cache.TenantID
	fields["secret"] = cfg.Cache.SecretMode()
	fields["version"] = version.Full()
	logger.WithFields(fields).Debug("配置加载完成")

	if opts.serve {
		if err := startDiagnosticsServer(cfg, engine, logger); err != nil {
			fmt.Fprintf(stdErr, "诊断服务启动失败: %v\n", err)
			return exitFail
		}
		return exitOK
	}

	return runCommand(context.Background(), engine, opts.args)
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("focus-cache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
		serve      bool
		tenantID   int64
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./focus-cache.toml，可被 FOCUS_CACHE_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.BoolVar(&serve, "serve", false, "启动只读诊断服务")
	fs.Int64Var(&tenantID, "tenant", 0, "执行命令前切换到指定租户")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if tenantID < 0 {
		return cliOptions{}, errors.New("解析参数失败: -tenant 必须 >= 1")
	}

	path := os.Getenv(envConfigPath)
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "focus-cache.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		serve:       serve,
		tenantID:    tenantID,
		args:        fs.Args(),
	}, nil
}

// newEngine 按配置组装 Store、Resolver、Codec 与 Hasher，返回可直接使用的引擎。
func newEngine(cfg *config.Config, logger *logrus.Logger) (*objectcache.Cache, error) {
	cc := cfg.Cache

	store, err := cache.NewStore(cc.CacheDir, cache.Options{DirMode: cc.DirMode.Perm()})
	if err != nil {
		return nil, err
	}
	resolver, err := layout.NewResolver(cc.CacheDir, cc.Multisite)
	if err != nil {
		return nil, err
	}
	serializer, err := codec.NewSerializer(cc.Serializer)
	if err != nil {
		return nil, err
	}

	return objectcache.New(objectcache.Options{
		Store:               store,
		Resolver:            resolver,
		Codec:               codec.New(serializer, cc.MaxPayloadBytes),
		Hasher:              layout.NewHasher(cc.Secret),
		Logger:              logging.Component(logger, "engine"),
		DefaultTTL:          cc.DefaultTTL.DurationValue(),
		TenantID:            cc.TenantID,
		HashTenantPrefix:    cc.HashTenantPrefix,
		GlobalGroups:        cc.GlobalGroups,
		NonPersistentGroups: cc.NonPersistentGroups,
		SuspendAdditions:    cc.SuspendAdditions,
		ExpirySource:        objectcache.ExpirySource(cc.ExpirySource),
	})
}

func startDiagnosticsServer(cfg *config.Config, engine *objectcache.Cache, logger *logrus.Logger) error {
	port := cfg.Global.DiagnosticsPort
	if port == 0 {
		return errors.New("DiagnosticsPort 未配置")
	}
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterDiagnosticsRoutes(app, engine, logging.Component(logger, "diagnostics"))

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("诊断服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
