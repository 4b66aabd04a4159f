package backtest

import (
	"github.com/shopspring/decimal"

	"indexbt/internal/domain/date"
	"indexbt/internal/domain/model"
)

// Params 回测参数（来自配置）
type Params struct {
	Start        date.Date
	End          date.Date
	InitialCash  decimal.Decimal
	FeeRate      decimal.NullDecimal
	CadenceDays  int
	TopN         int
	Symbols      []string // fixed equal-weight basket; empty selects the top N
	Exclude      []string
	Rerank       bool   // re-select the top N at each rebalance instead of keeping the initial basket
	Benchmark    string // single asset held from the start, e.g. BTC; empty disables
	RiskFreeRate float64
}

// Report 策略与基准的结果
type Report struct {
	Strategy         *model.RunResult
	Benchmark        *model.RunResult
	StrategySummary  model.Summary
	BenchmarkSummary model.Summary
	Excess           decimal.Decimal

	// Asset 单一资产（BTC）买入持有基准，未配置或无价格时为 nil
	Asset        *model.RunResult
	AssetSummary model.Summary
	AssetExcess  decimal.Decimal
}
