package diagnostics

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"coinbase-trader/internal/exchange"
)

const (
	// OrderBookDepth 为自检时请求的盘口档位数。
	OrderBookDepth = 5
	// BalanceCurrency 为自检时查询的余额币种。
	BalanceCurrency = "USD"

	maxLoggedCurrencies = 5
)

// Severity 决定检查失败是否影响整体结果。
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// CheckResult 为单项检查结果。
type CheckResult struct {
	Name     string   `json:"name"`
	Passed   bool     `json:"passed"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail"`
}

// Report 汇总所有检查结果。Passed 只受 SeverityError 级别检查影响。
type Report struct {
	Checks []CheckResult `json:"checks"`
	Passed bool          `json:"passed"`
}

// Err 合并所有失败的关键检查，全部通过时返回 nil。
func (r Report) Err() error {
	var err error
	for _, check := range r.Checks {
		if check.Passed || check.Severity != SeverityError {
			continue
		}
		err = multierr.Append(err, fmt.Errorf("diagnostics: %s: %s", check.Name, check.Detail))
	}
	return err
}

// Warnings 返回失败但不影响结果的检查。
func (r Report) Warnings() []CheckResult {
	var out []CheckResult
	for _, check := range r.Checks {
		if !check.Passed && check.Severity == SeverityWarning {
			out = append(out, check)
		}
	}
	return out
}

// Prober 是自检依赖的交易所读取能力。
type Prober interface {
	Accounts(ctx context.Context) ([]exchange.Account, error)
	CurrentPrice(ctx context.Context, pair string) (float64, bool)
	OrderBook(ctx context.Context, pair string, depth int) (exchange.OrderBook, bool)
	Balance(ctx context.Context, currency string) (float64, bool)
}

var _ Prober = (*exchange.Gateway)(nil)

// Runner 依次执行凭证、价格、盘口、余额四项检查。
type Runner struct {
	prober Prober
	pair   string
	logger *zap.Logger
}

// NewRunner 创建自检执行器。
func NewRunner(prober Prober, pair string, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		prober: prober,
		pair:   pair,
		logger: logger,
	}
}

// Run 执行全部检查，单项失败不会中断后续检查。
func (r *Runner) Run(ctx context.Context) Report {
	r.logger.Info("开始运行自检", zap.String("pair", r.pair))

	checks := []func(context.Context) CheckResult{
		r.checkCredentials,
		r.checkPrice,
		r.checkOrderBook,
		r.checkBalance,
	}

	report := Report{Passed: true}
	for i, check := range checks {
		result := check(ctx)
		report.Checks = append(report.Checks, result)

		fields := []zap.Field{
			zap.String("check", result.Name),
			zap.String("progress", fmt.Sprintf("%d/%d", i+1, len(checks))),
			zap.String("detail", result.Detail),
		}
		switch {
		case result.Passed:
			r.logger.Info("检查通过", fields...)
		case result.Severity == SeverityWarning:
			r.logger.Warn("检查未通过（仅提示）", fields...)
		default:
			report.Passed = false
			r.logger.Error("检查失败", fields...)
		}
	}

	if report.Passed {
		r.logger.Info("全部自检通过，可以开始交易")
	} else {
		r.logger.Error("部分自检失败，请先修复上述问题再交易")
	}
	return report
}

func (r *Runner) checkCredentials(ctx context.Context) CheckResult {
	result := CheckResult{Name: "credentials", Severity: SeverityError}

	accounts, err := r.prober.Accounts(ctx)
	if err != nil {
		result.Detail = fmt.Sprintf("凭证校验失败: %v", err)
		if errors.Is(err, exchange.ErrAuth) {
			result.Detail += "（请检查 API Key 与 Secret 是否正确）"
		}
		return result
	}

	result.Passed = true
	result.Detail = fmt.Sprintf("凭证有效，共 %d 个账户", len(accounts))

	for i, account := range accounts {
		if i >= maxLoggedCurrencies {
			break
		}
		r.logger.Debug("账户", zap.String("currency", account.Currency), zap.Float64("available", account.Available))
	}
	return result
}

func (r *Runner) checkPrice(ctx context.Context) CheckResult {
	result := CheckResult{Name: "price", Severity: SeverityError}

	price, ok := r.prober.CurrentPrice(ctx, r.pair)
	if !ok {
		result.Detail = fmt.Sprintf("无法获取 %s 价格", r.pair)
		return result
	}

	result.Passed = true
	result.Detail = fmt.Sprintf("当前价格 $%.2f", price)
	return result
}

func (r *Runner) checkOrderBook(ctx context.Context) CheckResult {
	result := CheckResult{Name: "order_book", Severity: SeverityError}

	book, ok := r.prober.OrderBook(ctx, r.pair, OrderBookDepth)
	if !ok {
		result.Detail = fmt.Sprintf("无法获取 %s 盘口", r.pair)
		return result
	}

	result.Passed = true
	result.Detail = fmt.Sprintf("盘口获取成功，买 %d 档 / 卖 %d 档", len(book.Bids), len(book.Asks))
	return result
}

func (r *Runner) checkBalance(ctx context.Context) CheckResult {
	result := CheckResult{Name: "balance", Severity: SeverityWarning}

	balance, ok := r.prober.Balance(ctx, BalanceCurrency)
	if !ok {
		result.Detail = fmt.Sprintf("无法获取 %s 余额（可能没有该币种账户）", BalanceCurrency)
		return result
	}

	result.Passed = true
	result.Detail = fmt.Sprintf("%s 余额 $%.2f", BalanceCurrency, balance)
	return result
}
