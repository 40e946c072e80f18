package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultEnvFile    = ".env"
	envPrefix         = "trader"
)

// envBindings 保持与 .env.example 一致的变量名，不带前缀。
var envBindings = map[string]string{
	"exchange.api_key":      "COINBASE_API_KEY",
	"exchange.api_secret":   "COINBASE_API_SECRET",
	"trading.mode":          "TRADING_MODE",
	"trading.max_order_usd": "MAX_ORDER_USD",
	"trading.pair":          "TRADING_PAIR",
}

// flagBindings 为可由命令行覆盖的配置项，命令行优先于环境变量与配置文件。
var flagBindings = map[string]string{
	"trading.pair": "pair",
}

// Load 读取 .env、可选的配置文件以及环境变量并返回校验后的 Config。
// 显式传入的配置文件不存在时报错，默认路径不存在时忽略。
func Load(path string) (*Config, error) {
	return LoadWithFlags(path, nil)
}

// LoadWithFlags 与 Load 相同，另外绑定 flags 中已定义的覆盖参数。
func LoadWithFlags(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := loadDotEnv(defaultEnvFile); err != nil {
		return nil, &Error{Err: err}
	}

	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, &Error{Err: fmt.Errorf("绑定环境变量 %s 失败: %w", env, err)}
		}
	}

	if flags != nil {
		for key, name := range flagBindings {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, &Error{Err: fmt.Errorf("绑定命令行参数 --%s 失败: %w", name, err)}
			}
		}
	}

	setDefaults(v)

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	if err := readConfigFile(v, path, explicit); err != nil {
		return nil, &Error{Err: err}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, &Error{
			Err:  fmt.Errorf("解析配置失败: %w", err),
			Hint: "请检查 MAX_ORDER_USD 等数值项是否为合法数字",
		}
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv 不会覆盖已经存在的环境变量。
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	return nil
}

func readConfigFile(v *viper.Viper, path string, explicit bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("未找到配置文件 %q: %w", path, err)
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("exchange.api_key", "")
	v.SetDefault("exchange.api_secret", "")
	v.SetDefault("exchange.timeout", "10s")

	v.SetDefault("trading.mode", ModeDryRun)
	v.SetDefault("trading.max_order_usd", 50.0)
	v.SetDefault("trading.min_order_usd", 1.0)
	v.SetDefault("trading.pair", "BTC-USD")
	v.SetDefault("trading.order_book_depth", 10)

	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.path", "data/orders.db")
	v.SetDefault("journal.max_open_conns", 1)
	v.SetDefault("journal.max_idle_conns", 1)
	v.SetDefault("journal.conn_max_lifetime", "1h")
	v.SetDefault("journal.in_memory", false)

	v.SetDefault("logging.level", "debug")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
	v.SetDefault("logging.file.enabled", true)
	v.SetDefault("logging.file.dir", "logs")
	v.SetDefault("logging.file.max_size_mb", 20)
	v.SetDefault("logging.file.max_backups", 0)
	v.SetDefault("logging.file.compress", false)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

func (c *Config) normalize() {
	c.Exchange.APIKey = strings.TrimSpace(c.Exchange.APIKey)
	c.Exchange.APISecret = strings.TrimSpace(c.Exchange.APISecret)
	c.Trading.Mode = strings.ToLower(strings.TrimSpace(c.Trading.Mode))
	c.Trading.Pair = strings.ToUpper(strings.TrimSpace(c.Trading.Pair))
}
