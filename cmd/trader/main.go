package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"coinbase-trader/internal/app"
	"coinbase-trader/internal/config"
	"coinbase-trader/internal/diagnostics"
	"coinbase-trader/internal/exchange"
	"coinbase-trader/internal/execution"
	"coinbase-trader/internal/journal"
	"coinbase-trader/internal/log"
	"coinbase-trader/internal/store"
)

const usageExamples = `
示例:
  trader                     交互菜单
  trader --diagnose          运行自检
  trader --price             查看当前价格
  trader --buy 10            买入 $10
  trader --dry-run --buy 10  强制模拟模式下单
`

func main() {
	os.Exit(run())
}

func run() int {
	flags := pflag.NewFlagSet("trader", pflag.ContinueOnError)
	var (
		configPath = flags.String("config", "", "配置文件路径，默认使用 configs/config.yaml")
		diagnose   = flags.BoolP("diagnose", "d", false, "运行自检后退出")
		price      = flags.BoolP("price", "p", false, "查看当前价格后退出")
		orderBook  = flags.BoolP("orderbook", "o", false, "查看盘口后退出")
		balances   = flags.Bool("balances", false, "查看账户余额后退出")
		buy        = flags.Float64P("buy", "b", 0, "按美元金额下市价买单")
		dryRun     = flags.Bool("dry-run", false, "强制模拟模式（覆盖 .env 设置）")
		live       = flags.Bool("live", false, "强制真实模式（覆盖 .env 设置），请谨慎使用！")
		assumeYes  = flags.Bool("yes", false, "跳过下单确认")
		history    = flags.Int("history", 0, "查看最近 N 条审计记录（需启用 journal）")
	)
	flags.String("pair", "", "交易对，覆盖 TRADING_PAIR，例如 ETH-USD")
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Coinbase Advanced Trade 命令行工具\n\n用法:")
		flags.PrintDefaults()
		fmt.Fprint(os.Stderr, usageExamples)
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}

	app.PrintBanner(os.Stdout)

	cfg, err := config.LoadWithFlags(*configPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		return 1
	}
	override := cfg.ApplyModeOverride(*dryRun, *live)

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		return 1
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}
	if override != "" {
		logger.Info("命令行覆盖交易模式", zap.String("mode", override))
	}

	client, err := exchange.NewClient(cfg.Exchange, logger)
	if err != nil {
		logger.Error("初始化 Coinbase 客户端失败", zap.Error(err))
		return 1
	}
	gateway := exchange.NewGateway(client, logger)

	opts := []app.Option{}
	pipelineOpts := []execution.Option{}
	if cfg.Journal.Enabled {
		sqliteStore, err := store.NewSQLite(cfg.Journal)
		if err != nil {
			logger.Error("初始化审计数据库失败", zap.Error(err))
			return 1
		}
		defer func() {
			if closeErr := sqliteStore.Close(); closeErr != nil {
				logger.Warn("关闭审计数据库失败", zap.Error(closeErr))
			}
		}()

		journalSvc, err := journal.NewService(sqliteStore, logger)
		if err != nil {
			logger.Error("初始化审计日志失败", zap.Error(err))
			return 1
		}
		opts = append(opts, app.WithJournal(journalSvc))
		pipelineOpts = append(pipelineOpts, execution.WithRecorder(journalSvc))
		logger.Info("审计日志已启用", zap.String("path", sqliteStore.Path()))
	}

	pipeline := execution.NewPipeline(cfg.Trading, gateway, logger, pipelineOpts...)
	runner := diagnostics.NewRunner(gateway, cfg.Trading.Pair, logger)
	tradingApp := app.New(cfg, logger, gateway, pipeline, runner, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := app.Command{
		Diagnose:  *diagnose,
		Price:     *price,
		OrderBook: *orderBook,
		Balances:  *balances,
		History:   *history,
		Buy:       flags.Changed("buy"),
		BuyAmount: *buy,
		AssumeYes: *assumeYes,
		Override:  override,
	}

	if err := tradingApp.Run(ctx, cmd); err != nil {
		logger.Debug("命令执行失败", zap.Error(err))
		return 1
	}
	return 0
}
