package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"price-swing-alerts/internal/logging"
	"price-swing-alerts/internal/monitor"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Market   MarketConfig   `mapstructure:"market"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	API      APIConfig      `mapstructure:"api"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Environment     string        `mapstructure:"environment"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MonitorConfig governs the detection pipeline.
type MonitorConfig struct {
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	Lookback             time.Duration `mapstructure:"lookback"`
	ThresholdPct         float64       `mapstructure:"threshold_pct"`
	Cooldown             time.Duration `mapstructure:"cooldown"`
	Symbols              []string      `mapstructure:"symbols"`
	FetchTimeout         time.Duration `mapstructure:"fetch_timeout"`
	CycleTimeout         time.Duration `mapstructure:"cycle_timeout"`
	MaxConcurrentFetches int           `mapstructure:"max_concurrent_fetches"`
}

// MarketConfig selects and tunes the price source.
type MarketConfig struct {
	Provider  string          `mapstructure:"provider"`
	Binance   BinanceConfig   `mapstructure:"binance"`
	Chainlink ChainlinkConfig `mapstructure:"chainlink"`
}

// BinanceConfig covers REST access to Binance.
type BinanceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// ChainlinkConfig covers on-chain price feed access.
type ChainlinkConfig struct {
	RPCURL         string            `mapstructure:"rpc_url"`
	RequestTimeout time.Duration     `mapstructure:"request_timeout"`
	Feeds          map[string]string `mapstructure:"feeds"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Channels []string `mapstructure:"channels"`
}

// TelegramConfig 描述 Telegram 连接参数, 同时服务告警通道与指令机器人。
type TelegramConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BotToken    string `mapstructure:"bot_token"`
	ChatID      string `mapstructure:"chat_id"`
	PageSize    int    `mapstructure:"page_size"`
	APIEndpoint string `mapstructure:"api_endpoint"`
}

// APIConfig sets the HTTP surface.
type APIConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Listen       string        `mapstructure:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SWINGWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Monitor.Symbols = normalizeSymbols(cfg.Monitor.Symbols)
	cfg.Market.Chainlink.Feeds = normalizeFeeds(cfg.Market.Chainlink.Feeds)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "swingwatcher")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.time_format", time.RFC3339)
	v.SetDefault("logging.caller", false)

	v.SetDefault("monitor.poll_interval", "30s")
	v.SetDefault("monitor.lookback", "5m")
	v.SetDefault("monitor.threshold_pct", 3.0)
	v.SetDefault("monitor.cooldown", "15m")
	v.SetDefault("monitor.symbols", []string{"BTCUSDT", "ETHUSDT"})
	v.SetDefault("monitor.fetch_timeout", "10s")
	v.SetDefault("monitor.cycle_timeout", "0s")
	v.SetDefault("monitor.max_concurrent_fetches", 4)

	v.SetDefault("market.provider", "binance")
	v.SetDefault("market.binance.base_url", "https://api.binance.com")
	v.SetDefault("market.binance.request_timeout", "10s")
	v.SetDefault("market.binance.user_agent", "swingwatcher/1.0")
	// Empty defaults register the keys so environment-only values survive
	// viper's Unmarshal.
	v.SetDefault("market.chainlink.rpc_url", "")
	v.SetDefault("market.chainlink.request_timeout", "10s")

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.channels", []string{"log"})

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.page_size", 20)
	v.SetDefault("telegram.api_endpoint", "")

	v.SetDefault("api.enabled", false)
	v.SetDefault("api.listen", ":8080")
	v.SetDefault("api.read_timeout", "5s")
	v.SetDefault("api.write_timeout", "10s")
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

func normalizeSymbols(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	normalized := make([]string, 0, len(raw))
	for _, entry := range raw {
		symbol := monitor.NormalizeSymbol(entry)
		if symbol == "" {
			continue
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		normalized = append(normalized, symbol)
	}
	return normalized
}

func normalizeFeeds(raw map[string]string) map[string]string {
	if len(raw) == 0 {
		return raw
	}
	normalized := make(map[string]string, len(raw))
	for symbol, address := range raw {
		normalized[monitor.NormalizeSymbol(symbol)] = strings.TrimSpace(address)
	}
	return normalized
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Monitor.PollInterval <= 0 {
		return fmt.Errorf("monitor.poll_interval must be greater than zero")
	}
	if c.Monitor.Lookback <= 0 {
		return fmt.Errorf("monitor.lookback must be greater than zero")
	}
	if c.Monitor.ThresholdPct <= 0 {
		return fmt.Errorf("monitor.threshold_pct must be greater than zero")
	}
	if c.Monitor.Cooldown < 0 {
		return fmt.Errorf("monitor.cooldown cannot be negative")
	}
	if c.Monitor.FetchTimeout <= 0 {
		return fmt.Errorf("monitor.fetch_timeout must be greater than zero")
	}
	if c.Monitor.MaxConcurrentFetches <= 0 {
		return fmt.Errorf("monitor.max_concurrent_fetches must be greater than zero")
	}

	switch c.Market.Provider {
	case "binance":
	case "chainlink":
		if c.Market.Chainlink.RPCURL == "" {
			return fmt.Errorf("market.chainlink.rpc_url 必须配置")
		}
	default:
		return fmt.Errorf("market.provider 仅支持 binance 或 chainlink, 当前为 %q", c.Market.Provider)
	}

	for _, channel := range c.Alerting.Channels {
		switch channel {
		case "log":
		case "telegram":
			if !c.Telegram.Enabled {
				return fmt.Errorf("alerting.channels 包含 telegram 时必须开启 telegram.enabled")
			}
		default:
			return fmt.Errorf("alerting.channels 不支持 %q", channel)
		}
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token 必须配置")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id 必须配置")
		}
	}

	if c.API.Enabled && c.API.Listen == "" {
		return fmt.Errorf("api.listen 必须配置")
	}

	return nil
}

// CycleDeadline resolves the per-cycle budget, defaulting to the poll
// interval when unset.
func (c *Config) CycleDeadline() time.Duration {
	if c.Monitor.CycleTimeout > 0 {
		return c.Monitor.CycleTimeout
	}
	return c.Monitor.PollInterval
}
