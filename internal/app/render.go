package app

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"coinbase-trader/internal/config"
	"coinbase-trader/internal/diagnostics"
	"coinbase-trader/internal/exchange"
	"coinbase-trader/internal/execution"
	"coinbase-trader/internal/journal"
	"coinbase-trader/internal/risk"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 4).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	dryRunStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	liveStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	bidStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	askStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	usdPrinter = message.NewPrinter(language.English)
)

// PrintBanner 输出启动横幅。
func PrintBanner(w io.Writer) {
	text := lipgloss.JoinVertical(lipgloss.Left,
		"COINBASE ADVANCED TRADE BOT",
		mutedStyle.Render("学习 Coinbase API 的简易交易工具"),
	)
	fmt.Fprintln(w, bannerStyle.Render(text))
}

type renderer struct {
	out io.Writer
}

func (r *renderer) line(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *renderer) println(s string) {
	fmt.Fprintln(r.out, s)
}

func (r *renderer) box(title string, body []string) {
	content := lipgloss.JoinVertical(lipgloss.Left, append([]string{titleStyle.Render(title)}, body...)...)
	fmt.Fprintln(r.out, borderStyle.Render(content))
}

func modeLabel(dryRun bool) string {
	if dryRun {
		return dryRunStyle.Render("[DRY RUN MODE]")
	}
	return liveStyle.Render("[LIVE MODE]")
}

func modeName(dryRun bool) string {
	if dryRun {
		return "DRY RUN"
	}
	return "LIVE"
}

func (r *renderer) override(mode string) {
	switch mode {
	case config.ModeDryRun:
		r.println(dryRunStyle.Render("[OVERRIDE] 强制使用 DRY RUN 模式"))
	case config.ModeLive:
		r.println(liveStyle.Render("[OVERRIDE] 强制使用 LIVE 模式，将提交真实订单！"))
	}
}

func (r *renderer) summary(s config.Summary) {
	r.box("配置摘要", []string{
		fmt.Sprintf("API Key:   %s", s.MaskedAPIKey),
		fmt.Sprintf("交易模式:  %s %s", s.Mode, modeLabel(s.DryRun)),
		fmt.Sprintf("交易对:    %s", s.Pair),
		fmt.Sprintf("单笔上限:  %s", formatUSD(s.MaxOrderUSD)),
		fmt.Sprintf("单笔下限:  %s", formatUSD(s.MinOrderUSD)),
	})
}

func (r *renderer) price(pair string, price float64) {
	r.line("当前 %s 价格: %s", pair, successStyle.Render(formatUSD(price)))
}

func (r *renderer) orderBook(book exchange.OrderBook, base string) {
	body := []string{bidStyle.Render(fmt.Sprintf("--- 买盘 前 %d 档 ---", len(book.Bids)))}
	for i, level := range book.Bids {
		body = append(body, fmt.Sprintf("  %2d. %s - %.8f %s", i+1, formatUSD(level.Price), level.Size, base))
	}
	body = append(body, askStyle.Render(fmt.Sprintf("--- 卖盘 前 %d 档 ---", len(book.Asks))))
	for i, level := range book.Asks {
		body = append(body, fmt.Sprintf("  %2d. %s - %.8f %s", i+1, formatUSD(level.Price), level.Size, base))
	}
	if spread, percent, ok := book.Spread(); ok {
		body = append(body, mutedStyle.Render(fmt.Sprintf("价差: %s (%.4f%%)", formatUSD(spread), percent)))
	}
	r.box(fmt.Sprintf("%s 盘口", book.ProductID), body)
}

func (r *renderer) balance(currency string, amount float64, ok bool, quote bool) {
	switch {
	case !ok:
		r.line("  %s: %s", currency, mutedStyle.Render("不可用"))
	case quote:
		r.line("  %s: %s", currency, formatUSD(amount))
	default:
		r.line("  %s: %.8f", currency, amount)
	}
}

func (r *renderer) result(result execution.Result) {
	switch order := result.(type) {
	case *execution.Simulated:
		r.box("[DRY RUN] 模拟订单", []string{
			fmt.Sprintf("订单号:     %s", order.OrderID),
			fmt.Sprintf("交易对:     %s", order.ProductID),
			fmt.Sprintf("方向:       %s", order.Side),
			fmt.Sprintf("金额:       $%s", order.QuoteSize),
			fmt.Sprintf("预估价格:   $%s", order.EstimatedFillPrice),
			fmt.Sprintf("预估数量:   %s", order.EstimatedQuantity),
			mutedStyle.Render("未提交任何真实订单"),
		})
	case *execution.Placed:
		r.box("订单已提交", []string{
			fmt.Sprintf("订单号:       %s", order.OrderID),
			fmt.Sprintf("客户端订单号: %s", order.ClientOrderID),
			fmt.Sprintf("交易对:       %s", order.ProductID),
			fmt.Sprintf("方向:         %s", order.Side),
			fmt.Sprintf("金额:         $%s", order.QuoteSize),
		})
	}
	r.println(successStyle.Render("订单完成"))
}

func (r *renderer) orderError(err error) {
	var rejection *risk.Rejection
	var subErr *execution.SubmissionError
	switch {
	case errors.As(err, &rejection):
		r.println(errorStyle.Render("订单被拒绝: " + strings.TrimPrefix(rejection.Error(), "risk: ")))
		if rejection.Hint != "" {
			r.println(mutedStyle.Render(rejection.Hint))
		}
	case errors.As(err, &subErr):
		r.println(errorStyle.Render("下单失败，订单状态未知: " + subErr.Err.Error()))
		switch {
		case errors.Is(err, exchange.ErrAuth):
			r.println(mutedStyle.Render("请检查 API Key 是否具有交易权限"))
		case exchange.IsTransient(err):
			r.println(mutedStyle.Render("交易所暂时不可用，请先核对订单状态再决定是否重新下单"))
		}
		r.println(warningStyle.Render(subErr.Caveat()))
	case errors.Is(err, execution.ErrNotSubmitted):
		r.println(warningStyle.Render("操作已取消，订单未提交，无需对账"))
	default:
		r.println(errorStyle.Render("下单失败: " + err.Error()))
	}
}

func (r *renderer) diagnostics(report diagnostics.Report) {
	body := make([]string, 0, len(report.Checks)+1)
	for i, check := range report.Checks {
		var status string
		switch {
		case check.Passed:
			status = successStyle.Render("PASSED")
		case check.Severity == diagnostics.SeverityWarning:
			status = warningStyle.Render("WARNING")
		default:
			status = errorStyle.Render("FAILED")
		}
		body = append(body, fmt.Sprintf("[%d/%d] %-10s %s  %s", i+1, len(report.Checks), check.Name, status, check.Detail))
	}
	if report.Passed {
		body = append(body, successStyle.Render("全部自检通过，可以开始交易"))
	} else {
		body = append(body, errorStyle.Render("部分自检失败，请先修复上述问题再交易"))
	}
	r.box("自检结果", body)
}

func (r *renderer) history(events []journal.Event) {
	if len(events) == 0 {
		r.println(mutedStyle.Render("暂无审计记录"))
		return
	}
	body := make([]string, 0, len(events))
	for _, event := range events {
		body = append(body, fmt.Sprintf("%s  %-16s %s",
			event.Timestamp.Local().Format("2006-01-02 15:04:05"),
			event.Type,
			mutedStyle.Render(string(event.RawPayload())),
		))
	}
	r.box(fmt.Sprintf("最近 %d 条审计记录", len(events)), body)
}

// formatUSD 输出带千分位的美元金额，例如 $50,000.00。
func formatUSD(v float64) string {
	if v < 0 {
		return "-$" + usdPrinter.Sprintf("%.2f", -v)
	}
	return "$" + usdPrinter.Sprintf("%.2f", v)
}
