package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/offline-hub/offline-hub/internal/cache"
	"github.com/offline-hub/offline-hub/internal/config"
	"github.com/offline-hub/offline-hub/internal/deploy"
	"github.com/offline-hub/offline-hub/internal/gateway"
	"github.com/offline-hub/offline-hub/internal/logging"
	"github.com/offline-hub/offline-hub/internal/origin"
	"github.com/offline-hub/offline-hub/internal/server"
	"github.com/offline-hub/offline-hub/internal/server/routes"
	"github.com/offline-hub/offline-hub/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	installOnly bool
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

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["app"] = cfg.App.Name
		fields["store"] = cfg.App.StoreName()
		fields["manifest_entries"] = len(cfg.App.Manifest)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// CLI 启动遵循“配置 → 磁盘缓存 → 部署管理器 → install/activate → Fiber server”
	// 顺序：先完成离线资源填充与版本切换，再对外提供 cache-first 服务。
	store, err := cache.NewStore(cfg.Global.StoragePath)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	m, err := cfg.App.BuildManifest()
	if err != nil {
		fmt.Fprintf(stdErr, "解析资源清单失败: %v\n", err)
		return 1
	}

	client := origin.NewClient(cfg.Global.OriginTimeout.DurationValue())
	fetcher, err := origin.NewFetcher(cfg.App.Origin, client)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化源站客户端失败: %v\n", err)
		return 1
	}

	manager, err := deploy.NewManager(deploy.Options{
		Store:    store,
		Fetcher:  fetcher,
		Logger:   logger,
		AppName:  cfg.App.Name,
		Version:  cfg.App.Version,
		Manifest: m,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "构建部署管理器失败: %v\n", err)
		return 1
	}

	ctx := context.Background()
	if err := manager.Install(ctx); err != nil {
		fmt.Fprintf(stdErr, "离线资源填充失败: %v\n", err)
		return 1
	}
	if _, err := manager.Activate(ctx); err != nil {
		fmt.Fprintf(stdErr, "版本激活失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["app"] = cfg.App.Name
	fields["store"] = cfg.App.StoreName()
	fields["manifest_entries"] = m.Len()
	fields["listen_port"] = cfg.Global.ListenPort
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("离线缓存就绪")

	if opts.installOnly {
		return 0
	}

	if err := startHTTPServer(cfg, manager, store, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("offline-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag  string
		checkOnly   bool
		installOnly bool
		showVer     bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 OFFLINE_HUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&installOnly, "install-only", false, "仅执行 install/activate 后退出，不启动 HTTP 服务")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("OFFLINE_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		installOnly: installOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(cfg *config.Config, manager *deploy.Manager, store cache.Store, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	handler := gateway.NewHandler(manager, logger)
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Resolver:   handler,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterStatusRoutes(app, manager, store)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
