package config

import "strings"

// Summary 是用于展示的只读配置视图，不包含任何完整凭证。
type Summary struct {
	MaskedAPIKey string
	Mode         string
	Pair         string
	MaxOrderUSD  float64
	MinOrderUSD  float64
	DryRun       bool
}

// Summary 生成脱敏后的配置摘要。
func (c *Config) Summary() Summary {
	return Summary{
		MaskedAPIKey: MaskCredential(c.Exchange.APIKey),
		Mode:         strings.ToUpper(c.Trading.Mode),
		Pair:         c.Trading.Pair,
		MaxOrderUSD:  c.Trading.MaxOrderUSD,
		MinOrderUSD:  c.Trading.MinOrderUSD,
		DryRun:       c.Trading.IsDryRun(),
	}
}

// MaskCredential 只保留前后各 4 个字符，长度不超过 8 时全部隐藏。
func MaskCredential(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
