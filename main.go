package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/zig-index/zigdex/internal/catalog"
	"github.com/zig-index/zigdex/internal/config"
	"github.com/zig-index/zigdex/internal/fetch"
	"github.com/zig-index/zigdex/internal/ghapi"
	"github.com/zig-index/zigdex/internal/logging"
	"github.com/zig-index/zigdex/internal/ratelimit"
	"github.com/zig-index/zigdex/internal/server"
	"github.com/zig-index/zigdex/internal/server/routes"
	"github.com/zig-index/zigdex/internal/store"
	"github.com/zig-index/zigdex/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		fmt.Fprintf(stdErr, "加载目录清单失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["packages"] = cat.Len()
		fields["auth"] = cfg.GitHub.AuthMode(os.Getenv)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// CLI 启动遵循“配置 → 磁盘缓存 → 编排器 → Fiber server”顺序，
	// 保证所有请求共享同一份缓存、闸门与上游客户端。
	disk, err := store.Open(cfg.Global.StoragePath)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	client := ghapi.NewClient(cfg, logger)
	gate := ratelimit.NewGate()
	orch := fetch.New(disk, client, gate, logger, fetch.Options{
		TTL:         cfg.Global.CacheTTL.DurationValue(),
		Concurrency: cfg.Global.FetchConcurrency,
	})

	fields := logging.BaseFields("startup", opts.configPath)
	fields["packages"] = cat.Len()
	fields["listen_port"] = cfg.Global.ListenPort
	fields["auth"] = cfg.GitHub.AuthMode(os.Getenv)
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if cfg.Global.WarmOnStart && cat.Len() > 0 {
		go warmCatalog(orch, cat, logger)
	}

	if err := startHTTPServer(cfg, orch, cat, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("zigdex", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 ZIGDEX_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("ZIGDEX_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

// warmCatalog 在后台预热目录里的仓库概要，失败只记日志不影响启动。
func warmCatalog(orch *fetch.Orchestrator, cat *catalog.Catalog, logger *logrus.Logger) {
	results, err := orch.RepoMany(context.Background(), cat.Keys(), false)
	if err != nil {
		logger.WithField("action", "warm_start").Warn(err.Error())
		return
	}
	logger.WithFields(logrus.Fields{
		"action":   "warm_start",
		"total":    cat.Len(),
		"resolved": len(results),
	}).Info("目录预热完成")
}

func startHTTPServer(cfg *config.Config, orch *fetch.Orchestrator, cat *catalog.Catalog, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterAPIRoutes(app, routes.APIDeps{Orchestrator: orch, Catalog: cat, Logger: logger})
	routes.RegisterDiagnosticsRoutes(app, orch, logger)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
