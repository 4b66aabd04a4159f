package service

import (
	"math"

	"github.com/shopspring/decimal"

	"indexbt/internal/domain/model"
)

// DefaultRiskFreeRate 年化无风险利率
const DefaultRiskFreeRate = 0.02

// periodsPerYear crypto markets trade every day.
const periodsPerYear = 365

// Summarize 计算回测统计
func Summarize(run *model.RunResult, riskFreeRate float64) model.Summary {
	s := model.Summary{
		RunID:        run.ID,
		Name:         run.Name,
		InitialValue: run.InitialCash,
		FinalValue:   run.Final(),
		TotalFees:    run.TotalFees,
		Trades:       len(run.Trades),
		Rebalances:   len(run.Rebalances),
		Clamps:       run.Clamps,
	}
	if run.InitialCash.IsPositive() && len(run.Equity) > 0 {
		s.TotalReturn = s.FinalValue.Sub(s.InitialValue).Div(s.InitialValue)
	}

	// 最大回撤
	peak := decimal.Zero
	for _, p := range run.Equity {
		if p.Value.GreaterThan(peak) {
			peak = p.Value
			continue
		}
		if !peak.IsPositive() {
			continue
		}
		if dd := peak.Sub(p.Value).Div(peak); dd.GreaterThan(s.MaxDrawdown) {
			s.MaxDrawdown = dd
			s.MaxDrawdownDate = p.Date
		}
	}

	returns := dailyReturns(run.Equity)
	s.Sharpe = sharpe(returns, riskFreeRate)
	s.Sortino = sortino(returns, riskFreeRate)
	return s
}

// Compare returns the strategy's total return minus the benchmark's.
func Compare(strategy, benchmark model.Summary) decimal.Decimal {
	return strategy.TotalReturn.Sub(benchmark.TotalReturn)
}

func dailyReturns(equity []model.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Value
		if !prev.IsPositive() {
			continue
		}
		out = append(out, equity[i].Value.Div(prev).Sub(decimal.NewFromInt(1)).InexactFloat64())
	}
	return out
}

func sharpe(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	rf := riskFreeRate / periodsPerYear
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / float64(len(returns)-1))
	if std == 0 {
		return 0
	}
	return (mean - rf) / std * math.Sqrt(periodsPerYear)
}

// sortino only penalizes returns below the daily risk-free rate.
func sortino(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	rf := riskFreeRate / periodsPerYear
	mean, downside := 0.0, 0.0
	for _, r := range returns {
		mean += r
		if r < rf {
			downside += (r - rf) * (r - rf)
		}
	}
	mean /= float64(len(returns))
	dd := math.Sqrt(downside / float64(len(returns)))
	if dd == 0 {
		return 0
	}
	return (mean - rf) / dd * math.Sqrt(periodsPerYear)
}
