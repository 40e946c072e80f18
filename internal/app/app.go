package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"coinbase-trader/internal/config"
	"coinbase-trader/internal/diagnostics"
	"coinbase-trader/internal/exchange"
	"coinbase-trader/internal/execution"
	"coinbase-trader/internal/journal"
)

const (
	// TestOrderUSD 为菜单中固定测试单的金额。
	TestOrderUSD = 10.0

	defaultHistoryLimit = 20
)

var (
	// ErrDataUnavailable 表示行情或账户数据暂时不可用。
	ErrDataUnavailable = errors.New("app: 数据不可用")
	// ErrJournalDisabled 表示未启用审计日志。
	ErrJournalDisabled = errors.New("app: 审计日志未启用，请在配置中设置 journal.enabled=true")
	// ErrDiagnosticsFailed 表示自检未全部通过。
	ErrDiagnosticsFailed = errors.New("app: 自检未通过")
)

// Market 是 App 展示行情与余额所需的读取能力。
type Market interface {
	CurrentPrice(ctx context.Context, pair string) (float64, bool)
	OrderBook(ctx context.Context, pair string, depth int) (exchange.OrderBook, bool)
	Balance(ctx context.Context, currency string) (float64, bool)
}

// Diagnoser 执行自检。
type Diagnoser interface {
	Run(ctx context.Context) diagnostics.Report
}

// Journal 为可选的审计日志。
type Journal interface {
	RecordDiagnostics(ctx context.Context, report diagnostics.Report)
	ListEvents(ctx context.Context, eventType journal.EventType, limit int) ([]journal.Event, error)
}

var (
	_ Market    = (*exchange.Gateway)(nil)
	_ Diagnoser = (*diagnostics.Runner)(nil)
	_ Journal   = (*journal.Service)(nil)
)

// Command 描述命令行请求的单次操作，全部为空时进入交互菜单。
type Command struct {
	Diagnose  bool
	Price     bool
	OrderBook bool
	Balances  bool
	History   int
	Buy       bool
	BuyAmount float64
	AssumeYes bool
	// Override 为命令行强制设置的交易模式，仅用于展示。
	Override string
}

// App 聚合核心依赖并驱动命令行交互。
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	market  Market
	trader  execution.Trader
	diag    Diagnoser
	journal Journal

	in   *bufio.Reader
	view *renderer
}

// Option 调整 App 的可选依赖。
type Option func(*App)

// WithJournal 启用审计日志。
func WithJournal(j Journal) Option {
	return func(a *App) {
		a.journal = j
	}
}

// WithIO 替换标准输入输出。
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		if in != nil {
			a.in = bufio.NewReader(in)
		}
		if out != nil {
			a.view = &renderer{out: out}
		}
	}
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, market Market, trader execution.Trader, diag Diagnoser, opts ...Option) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:    cfg,
		logger: logger,
		market: market,
		trader: trader,
		diag:   diag,
		in:     bufio.NewReader(os.Stdin),
		view:   &renderer{out: os.Stdout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run 展示配置摘要后执行命令，未指定命令时进入交互菜单。
func (a *App) Run(ctx context.Context, cmd Command) error {
	a.view.override(cmd.Override)
	a.view.summary(a.cfg.Summary())

	switch {
	case cmd.Diagnose:
		return a.Diagnose(ctx)
	case cmd.Price:
		return a.ShowPrice(ctx)
	case cmd.OrderBook:
		return a.ShowOrderBook(ctx, a.cfg.Trading.OrderBookDepth)
	case cmd.Balances:
		return a.ShowBalances(ctx)
	case cmd.History > 0:
		return a.History(ctx, cmd.History)
	case cmd.Buy:
		return a.Buy(ctx, cmd.BuyAmount, cmd.AssumeYes)
	default:
		return a.Interactive(ctx)
	}
}

// Diagnose 运行自检并展示结果。
func (a *App) Diagnose(ctx context.Context) error {
	report := a.diag.Run(ctx)
	if a.journal != nil {
		a.journal.RecordDiagnostics(ctx, report)
	}
	a.view.diagnostics(report)
	if !report.Passed {
		return fmt.Errorf("%w: %w", ErrDiagnosticsFailed, report.Err())
	}
	return nil
}

// ShowPrice 展示当前价格。
func (a *App) ShowPrice(ctx context.Context) error {
	price, ok := a.market.CurrentPrice(ctx, a.cfg.Trading.Pair)
	if !ok {
		a.view.println(errorStyle.Render("无法获取价格"))
		return fmt.Errorf("%w: %s 价格", ErrDataUnavailable, a.cfg.Trading.Pair)
	}
	a.view.price(a.cfg.Trading.Pair, price)
	return nil
}

// ShowOrderBook 展示盘口。
func (a *App) ShowOrderBook(ctx context.Context, depth int) error {
	book, ok := a.market.OrderBook(ctx, a.cfg.Trading.Pair, depth)
	if !ok {
		a.view.println(errorStyle.Render("无法获取盘口"))
		return fmt.Errorf("%w: %s 盘口", ErrDataUnavailable, a.cfg.Trading.Pair)
	}
	a.view.orderBook(book, a.cfg.Trading.BaseCurrency())
	return nil
}

// ShowBalances 展示计价币与基础币余额，两者都不可用时返回错误。
func (a *App) ShowBalances(ctx context.Context) error {
	quote := a.cfg.Trading.QuoteCurrency()
	base := a.cfg.Trading.BaseCurrency()

	quoteBalance, quoteOK := a.market.Balance(ctx, quote)
	baseBalance, baseOK := a.market.Balance(ctx, base)

	a.view.println(titleStyle.Render("账户余额"))
	a.view.balance(quote, quoteBalance, quoteOK, true)
	a.view.balance(base, baseBalance, baseOK, false)

	if !quoteOK && !baseOK {
		return fmt.Errorf("%w: 余额", ErrDataUnavailable)
	}
	return nil
}

// History 展示最近的审计记录。
func (a *App) History(ctx context.Context, limit int) error {
	if a.journal == nil {
		a.view.println(warningStyle.Render(ErrJournalDisabled.Error()))
		return ErrJournalDisabled
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	events, err := a.journal.ListEvents(ctx, "", limit)
	if err != nil {
		return err
	}
	a.view.history(events)
	return nil
}

// Buy 在操作者输入 yes 确认后下市价买单。取消不视为错误。
func (a *App) Buy(ctx context.Context, amount float64, assumeYes bool) error {
	dryRun := a.cfg.Trading.IsDryRun()
	a.view.line("即将下单 %s 市价买单 (%s)", formatUSD(amount), modeName(dryRun))
	if !dryRun {
		a.view.println(liveStyle.Render("警告：这是使用真实资金的 LIVE 订单！"))
	}

	if !assumeYes {
		confirmed, err := a.confirm()
		if err != nil {
			return err
		}
		if !confirmed {
			a.view.println(mutedStyle.Render("订单已取消"))
			a.logger.Info("操作者取消下单", zap.Float64("usd_amount", amount))
			return nil
		}
	}

	return a.placeOrder(ctx, amount)
}

func (a *App) placeOrder(ctx context.Context, amount float64) error {
	result, err := a.trader.PlaceMarketBuy(ctx, execution.OrderRequest{USDAmount: amount})
	if err != nil {
		a.view.orderError(err)
		return err
	}
	a.view.result(result)
	return nil
}

func (a *App) confirm() (bool, error) {
	answer, err := a.prompt("输入 yes 确认: ")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "yes"), nil
}

// prompt 读取一行输入，输入结束但有内容时仍返回该内容。
func (a *App) prompt(label string) (string, error) {
	fmt.Fprint(a.view.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *App) printMenu() {
	a.view.box("主菜单", []string{
		"1. 运行自检",
		fmt.Sprintf("2. 查看 %s 当前价格", a.cfg.Trading.Pair),
		"3. 查看盘口",
		"4. 查看账户余额",
		fmt.Sprintf("5. 测试买单 (%s)", formatUSD(TestOrderUSD)),
		"6. 自定义金额买单",
		"0. 退出",
	})
}

// Interactive 运行交互菜单，直到选择 0、输入结束或 ctx 被取消。
// 菜单中的单次操作失败只展示，不会退出菜单。
func (a *App) Interactive(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		a.printMenu()
		choice, err := a.prompt("请选择: ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				a.view.println("再见！")
				return nil
			}
			return err
		}

		switch choice {
		case "0":
			a.view.println("再见！")
			return nil
		case "1":
			a.logAction(a.Diagnose(ctx))
		case "2":
			a.logAction(a.ShowPrice(ctx))
		case "3":
			a.logAction(a.ShowOrderBook(ctx, a.cfg.Trading.OrderBookDepth))
		case "4":
			a.logAction(a.ShowBalances(ctx))
		case "5":
			a.logAction(a.Buy(ctx, TestOrderUSD, false))
		case "6":
			if err := a.customBuy(ctx); err != nil && errors.Is(err, io.EOF) {
				return nil
			}
		default:
			a.view.println(warningStyle.Render("无效选项，请重试"))
		}
	}
}

// customBuy 在确认前先检查金额上限，超限时直接返回菜单。
func (a *App) customBuy(ctx context.Context) error {
	raw, err := a.prompt("请输入美元金额: $")
	if err != nil {
		return err
	}

	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		a.view.println(warningStyle.Render("金额无效，请输入数字"))
		return nil
	}

	if limit := a.cfg.Trading.MaxOrderUSD; amount > limit {
		a.view.line("金额超过上限 (%s)", formatUSD(limit))
		a.view.println(mutedStyle.Render("如需调高，请修改 .env 中的 MAX_ORDER_USD"))
		return nil
	}

	err = a.Buy(ctx, amount, false)
	a.logAction(err)
	return err
}

func (a *App) logAction(err error) {
	if err != nil {
		a.logger.Debug("菜单操作未成功", zap.Error(err))
	}
}
