package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const (
	// ModeLive 表示真实下单。
	ModeLive = "live"
	// ModeDryRun 表示模拟下单，只读取行情不提交订单。
	ModeDryRun = "dry_run"

	placeholderAPIKey    = "your_api_key_here"
	placeholderAPISecret = "your_api_secret_here"

	// HighOrderLimitUSD 为单笔上限的提示阈值，超过时仅告警。
	HighOrderLimitUSD = 100.0
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ExchangeConfig 描述 Coinbase 连接信息。
type ExchangeConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// TradingConfig 控制下单模式与安全限制。
type TradingConfig struct {
	Mode           string  `mapstructure:"mode"`
	MaxOrderUSD    float64 `mapstructure:"max_order_usd"`
	MinOrderUSD    float64 `mapstructure:"min_order_usd"`
	Pair           string  `mapstructure:"pair"`
	OrderBookDepth int     `mapstructure:"order_book_depth"`
}

// IsDryRun 只有显式配置 live 时才会真实下单。
func (t TradingConfig) IsDryRun() bool {
	return !strings.EqualFold(strings.TrimSpace(t.Mode), ModeLive)
}

// BaseCurrency 返回交易对的基础币种，例如 BTC-USD 中的 BTC。
func (t TradingConfig) BaseCurrency() string {
	base, _, _ := strings.Cut(t.Pair, "-")
	return strings.ToUpper(base)
}

// QuoteCurrency 返回交易对的计价币种，例如 BTC-USD 中的 USD。
func (t TradingConfig) QuoteCurrency() string {
	_, quote, _ := strings.Cut(t.Pair, "-")
	return strings.ToUpper(quote)
}

// JournalConfig 管理可选的下单审计日志库。
type JournalConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string        `mapstructure:"level"`
	Encoding         string        `mapstructure:"encoding"`
	Development      bool          `mapstructure:"development"`
	OutputPaths      []string      `mapstructure:"output_paths"`
	ErrorOutputPaths []string      `mapstructure:"error_output_paths"`
	File             LogFileConfig `mapstructure:"file"`
}

// LogFileConfig 控制每次运行生成的日志文件。
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	if err := c.validateCredentials(); err != nil {
		return &Error{
			Err:  err,
			Hint: "请将 .env.example 复制为 .env 并填写 API 凭证",
		}
	}

	var err error

	mode := strings.ToLower(strings.TrimSpace(c.Trading.Mode))
	if mode != ModeLive && mode != ModeDryRun {
		err = multierr.Append(err, fmt.Errorf("trading.mode 只能是 %s 或 %s，当前为 %q", ModeLive, ModeDryRun, c.Trading.Mode))
	}
	if c.Trading.MaxOrderUSD <= 0 {
		err = multierr.Append(err, errors.New("trading.max_order_usd 必须大于0"))
	}
	if c.Trading.MinOrderUSD <= 0 {
		err = multierr.Append(err, errors.New("trading.min_order_usd 必须大于0"))
	}
	if c.Trading.MinOrderUSD > 0 && c.Trading.MaxOrderUSD > 0 && c.Trading.MinOrderUSD > c.Trading.MaxOrderUSD {
		err = multierr.Append(err, fmt.Errorf("trading.min_order_usd (%.2f) 不能大于 trading.max_order_usd (%.2f)", c.Trading.MinOrderUSD, c.Trading.MaxOrderUSD))
	}
	if c.Trading.OrderBookDepth <= 0 {
		err = multierr.Append(err, errors.New("trading.order_book_depth 必须大于0"))
	}
	if base, quote, ok := strings.Cut(c.Trading.Pair, "-"); !ok || base == "" || quote == "" {
		err = multierr.Append(err, fmt.Errorf("trading.pair 格式应为 BASE-QUOTE，当前为 %q", c.Trading.Pair))
	}
	if c.Exchange.Timeout < 0 {
		err = multierr.Append(err, errors.New("exchange.timeout 不能为负"))
	}
	if c.Journal.Enabled {
		if c.Journal.Path == "" && !c.Journal.InMemory {
			err = multierr.Append(err, errors.New("journal.path 不能为空"))
		}
		if c.Journal.MaxOpenConns <= 0 {
			err = multierr.Append(err, errors.New("journal.max_open_conns 必须大于0"))
		}
		if c.Journal.MaxIdleConns < 0 {
			err = multierr.Append(err, errors.New("journal.max_idle_conns 不能为负"))
		}
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if c.Logging.File.Enabled && c.Logging.File.Dir == "" {
		err = multierr.Append(err, errors.New("logging.file.dir 不能为空"))
	}

	if err != nil {
		return &Error{Err: fmt.Errorf("配置校验失败: %w", err)}
	}

	return nil
}

func (c *Config) validateCredentials() error {
	var err error
	key := strings.TrimSpace(c.Exchange.APIKey)
	if key == "" || key == placeholderAPIKey {
		err = multierr.Append(err, errors.New("COINBASE_API_KEY 未设置或仍为占位值"))
	}
	secret := strings.TrimSpace(c.Exchange.APISecret)
	if secret == "" || secret == placeholderAPISecret {
		err = multierr.Append(err, errors.New("COINBASE_API_SECRET 未设置或仍为占位值"))
	}
	return err
}

// Warnings 返回不阻断运行的配置提醒。
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Trading.MaxOrderUSD > HighOrderLimitUSD {
		warnings = append(warnings,
			fmt.Sprintf("MAX_ORDER_USD 设置为 $%.2f，高于测试建议值 $%.2f，请确认", c.Trading.MaxOrderUSD, HighOrderLimitUSD),
		)
	}
	return warnings
}

// ApplyModeOverride 按命令行参数覆盖交易模式，两者同时给出时模拟模式优先。
// 返回被强制设置的模式，未覆盖时返回空字符串。
func (c *Config) ApplyModeOverride(forceDryRun, forceLive bool) string {
	switch {
	case forceDryRun:
		c.Trading.Mode = ModeDryRun
	case forceLive:
		c.Trading.Mode = ModeLive
	default:
		return ""
	}
	return c.Trading.Mode
}
