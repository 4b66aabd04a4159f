package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"indexbt/internal/domain/date"
)

const defaultRiskFreeRate = 0.02

type Config struct {
	App struct {
		LogLevel string `toml:"log_level"`
		Color    bool   `toml:"color"`
	} `toml:"app"`

	Backtest struct {
		Start        date.Date `toml:"start"`
		End          date.Date `toml:"end"`
		InitialCash  string    `toml:"initial_cash"`
		FeeRate      string    `toml:"fee_rate"`
		CadenceDays  int       `toml:"cadence_days"`
		TopN         int       `toml:"top_n"`
		Rerank       bool      `toml:"rerank"`
		Quote        string    `toml:"quote"`
		Bridge       string    `toml:"bridge"`
		Exclude      []string  `toml:"exclude"`
		Symbols      []string  `toml:"symbols"`
		// Benchmark 单一资产买入持有基准，默认为 bridge（BTC）；"none" 关闭
		Benchmark    string    `toml:"benchmark_symbol"`
		RiskFreeRate *float64  `toml:"risk_free_rate"` // nil 使用默认 2%
	} `toml:"backtest"`

	Storage struct {
		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`

		Redis struct {
			Enabled    bool   `toml:"enabled"`
			Addr       string `toml:"addr"`
			Password   string `toml:"password"`
			DB         int    `toml:"db"`
			Prefix     string `toml:"prefix"`
			TTLSeconds int    `toml:"ttl_seconds"`
			RunStream  string `toml:"run_stream"`
			RunChannel string `toml:"run_channel"`
			CachePrice bool   `toml:"cache_prices"`
		} `toml:"redis"`
	} `toml:"storage"`

	Metrics struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
		// PushURL Pushgateway 地址，非空时回测结束后推送计数器
		PushURL string `toml:"push_url"`
		PushJob string `toml:"push_job"`
	} `toml:"metrics"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse 从字符串加载配置（测试用）
func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	b := &cfg.Backtest
	if b.InitialCash == "" {
		b.InitialCash = "1000"
	}
	if b.TopN <= 0 && len(b.Symbols) == 0 {
		b.TopN = 5
	}
	if b.Quote == "" {
		b.Quote = "USDT"
	}
	if b.RiskFreeRate == nil {
		rf := defaultRiskFreeRate
		b.RiskFreeRate = &rf
	}
	if b.Benchmark == "" {
		b.Benchmark = b.Bridge
	}
	if b.Benchmark == "" {
		b.Benchmark = "BTC"
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/indexbt.db"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "indexbt"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9102"
	}
	if cfg.Metrics.PushJob == "" {
		cfg.Metrics.PushJob = "indexbt"
	}
}

func validate(cfg *Config) error {
	b := &cfg.Backtest
	b.Quote = strings.ToUpper(strings.TrimSpace(b.Quote))
	b.Bridge = strings.ToUpper(strings.TrimSpace(b.Bridge))
	b.Symbols = normalizeSymbols(b.Symbols)
	b.Exclude = normalizeSymbols(b.Exclude)
	b.Benchmark = strings.ToUpper(strings.TrimSpace(b.Benchmark))
	if b.Benchmark == "NONE" {
		b.Benchmark = ""
	}

	if !b.Start.IsZero() && !b.End.IsZero() && b.End.Before(b.Start) {
		return fmt.Errorf("backtest.end %s before backtest.start %s", b.End, b.Start)
	}
	cash, err := decimal.NewFromString(b.InitialCash)
	if err != nil || !cash.IsPositive() {
		return fmt.Errorf("backtest.initial_cash %q must be a positive number", b.InitialCash)
	}
	if b.FeeRate != "" {
		fee, err := decimal.NewFromString(b.FeeRate)
		if err != nil || fee.IsNegative() || fee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("backtest.fee_rate %q must be within [0,1)", b.FeeRate)
		}
	}
	if b.CadenceDays < 0 {
		return errors.New("backtest.cadence_days must not be negative")
	}
	if *b.RiskFreeRate < 0 || *b.RiskFreeRate >= 1 {
		return fmt.Errorf("backtest.risk_free_rate %v must be within [0,1)", *b.RiskFreeRate)
	}

	if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn empty but enabled")
	}
	if cfg.Storage.Redis.Enabled && strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
		return errors.New("storage.redis.addr empty but enabled")
	}
	return nil
}

// RiskFreeRate 年化无风险利率（已应用默认值）
func (c *Config) RiskFreeRate() float64 {
	if c.Backtest.RiskFreeRate == nil {
		return defaultRiskFreeRate
	}
	return *c.Backtest.RiskFreeRate
}

// InitialCash is validated by Load.
func (c *Config) InitialCash() decimal.Decimal {
	return decimal.RequireFromString(c.Backtest.InitialCash)
}

// FeeRate is invalid (unset) when the config leaves the default.
func (c *Config) FeeRate() decimal.NullDecimal {
	if c.Backtest.FeeRate == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(c.Backtest.FeeRate), Valid: true}
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
