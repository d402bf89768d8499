package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}

	if cfg.App.Name != "swingwatcher" {
		t.Fatalf("app.name 默认值不匹配: %s", cfg.App.Name)
	}
	if cfg.Monitor.PollInterval != 30*time.Second {
		t.Fatalf("poll_interval 默认值不匹配: %v", cfg.Monitor.PollInterval)
	}
	if cfg.Monitor.Lookback != 5*time.Minute {
		t.Fatalf("lookback 默认值不匹配: %v", cfg.Monitor.Lookback)
	}
	if cfg.Monitor.ThresholdPct != 3.0 {
		t.Fatalf("threshold_pct 默认值不匹配: %v", cfg.Monitor.ThresholdPct)
	}
	if cfg.Monitor.Cooldown != 15*time.Minute {
		t.Fatalf("cooldown 默认值不匹配: %v", cfg.Monitor.Cooldown)
	}
	if len(cfg.Monitor.Symbols) != 2 || cfg.Monitor.Symbols[0] != "BTCUSDT" || cfg.Monitor.Symbols[1] != "ETHUSDT" {
		t.Fatalf("symbols 默认值不匹配: %v", cfg.Monitor.Symbols)
	}
	if cfg.Market.Provider != "binance" {
		t.Fatalf("provider 默认值不匹配: %s", cfg.Market.Provider)
	}
	if !cfg.Alerting.Enabled || len(cfg.Alerting.Channels) != 1 || cfg.Alerting.Channels[0] != "log" {
		t.Fatalf("alerting 默认值不匹配: %+v", cfg.Alerting)
	}
	if cfg.API.Enabled || cfg.API.Listen != ":8080" {
		t.Fatalf("api 默认值不匹配: %+v", cfg.API)
	}
	if cfg.CycleDeadline() != cfg.Monitor.PollInterval {
		t.Fatalf("cycle_timeout 为零时应回落到 poll_interval, 实际 %v", cfg.CycleDeadline())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SWINGWATCHER_MONITOR_POLL_INTERVAL", "45s")
	t.Setenv("SWINGWATCHER_MONITOR_SYMBOLS", "solusdt, btcusdt,btcusdt")
	t.Setenv("SWINGWATCHER_MARKET_PROVIDER", "chainlink")
	t.Setenv("SWINGWATCHER_MARKET_CHAINLINK_RPC_URL", "https://rpc.example.org")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("加载环境变量配置失败: %v", err)
	}

	if cfg.Monitor.PollInterval != 45*time.Second {
		t.Fatalf("poll_interval 覆盖失败: %v", cfg.Monitor.PollInterval)
	}
	if len(cfg.Monitor.Symbols) != 2 || cfg.Monitor.Symbols[0] != "SOLUSDT" || cfg.Monitor.Symbols[1] != "BTCUSDT" {
		t.Fatalf("symbols 应归一化并去重: %v", cfg.Monitor.Symbols)
	}
	if cfg.Market.Provider != "chainlink" || cfg.Market.Chainlink.RPCURL != "https://rpc.example.org" {
		t.Fatalf("market 覆盖失败: %+v", cfg.Market)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
monitor:
  poll_interval: 1m
  symbols:
    - dogeusdt
market:
  provider: chainlink
  chainlink:
    rpc_url: https://rpc.example.org
    feeds:
      ethusd: "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"
telegram:
  enabled: true
  bot_token: test-token
  chat_id: "42"
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置文件失败: %v", err)
	}

	if cfg.Monitor.PollInterval != time.Minute {
		t.Fatalf("poll_interval 覆盖失败: %v", cfg.Monitor.PollInterval)
	}
	if len(cfg.Monitor.Symbols) != 1 || cfg.Monitor.Symbols[0] != "DOGEUSDT" {
		t.Fatalf("symbols 覆盖失败: %v", cfg.Monitor.Symbols)
	}
	if got := cfg.Market.Chainlink.Feeds["ETHUSD"]; got != "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419" {
		t.Fatalf("feeds 键应归一化为大写: %v", cfg.Market.Chainlink.Feeds)
	}
	if cfg.Telegram.ChatID != "42" {
		t.Fatalf("telegram.chat_id 覆盖失败: %s", cfg.Telegram.ChatID)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		return &Config{
			Monitor: MonitorConfig{
				PollInterval:         30 * time.Second,
				Lookback:             5 * time.Minute,
				ThresholdPct:         3.0,
				Cooldown:             15 * time.Minute,
				FetchTimeout:         10 * time.Second,
				MaxConcurrentFetches: 4,
			},
			Market:   MarketConfig{Provider: "binance"},
			Alerting: AlertingConfig{Channels: []string{"log"}},
			API:      APIConfig{Listen: ":8080"},
		}
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"零轮询间隔", func(c *Config) { c.Monitor.PollInterval = 0 }},
		{"零回看窗口", func(c *Config) { c.Monitor.Lookback = 0 }},
		{"零阈值", func(c *Config) { c.Monitor.ThresholdPct = 0 }},
		{"负冷却", func(c *Config) { c.Monitor.Cooldown = -time.Second }},
		{"零抓取超时", func(c *Config) { c.Monitor.FetchTimeout = 0 }},
		{"零并发", func(c *Config) { c.Monitor.MaxConcurrentFetches = 0 }},
		{"未知价格源", func(c *Config) { c.Market.Provider = "kraken" }},
		{"chainlink 缺 RPC", func(c *Config) { c.Market.Provider = "chainlink" }},
		{"未知告警通道", func(c *Config) { c.Alerting.Channels = []string{"pager"} }},
		{"telegram 通道未启用 telegram", func(c *Config) { c.Alerting.Channels = []string{"telegram"} }},
		{"telegram 缺 token", func(c *Config) { c.Telegram.Enabled = true; c.Telegram.ChatID = "42" }},
		{"telegram 缺 chat_id", func(c *Config) { c.Telegram.Enabled = true; c.Telegram.BotToken = "tok" }},
		{"api 缺监听地址", func(c *Config) { c.API.Enabled = true; c.API.Listen = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("期望校验失败, 实际通过")
			}
		})
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("基准配置应通过校验: %v", err)
	}
}
