package model

import (
	"github.com/shopspring/decimal"

	"indexbt/internal/domain/date"
)

// ========== Backtest Models ==========

// Candle 日线 OHLCV
type Candle struct {
	Exchange  string          `json:"exchange"`
	Symbol    string          `json:"symbol"` // e.g. ETH/BTC
	Base      string          `json:"base"`
	Quote     string          `json:"quote"`
	Timestamp int64           `json:"ts_ms"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// Day returns the candle's UTC day.
func (c Candle) Day() date.Date { return date.FromUnixMilli(c.Timestamp) }

// EquityPoint 权益曲线上的一点
type EquityPoint struct {
	Date  date.Date       `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// RunResult 一次回测的完整输出
type RunResult struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Start       date.Date       `json:"start"`
	End         date.Date       `json:"end"`
	InitialCash decimal.Decimal `json:"initial_cash"`
	FinalCash   decimal.Decimal `json:"final_cash"`
	Equity      []EquityPoint   `json:"equity"`
	Trades      []Trade         `json:"trades"`
	Rebalances  []date.Date     `json:"rebalances"`
	TotalFees   decimal.Decimal `json:"total_fees"`
	Clamps      int             `json:"clamps"`
}

// Final returns the last equity value, or zero for an empty curve.
func (r *RunResult) Final() decimal.Decimal {
	if len(r.Equity) == 0 {
		return decimal.Zero
	}
	return r.Equity[len(r.Equity)-1].Value
}

// Summary 回测统计
type Summary struct {
	RunID           string          `json:"run_id"`
	Name            string          `json:"name"`
	InitialValue    decimal.Decimal `json:"initial_value"`
	FinalValue      decimal.Decimal `json:"final_value"`
	TotalReturn     decimal.Decimal `json:"total_return"` // fraction, 0.1 = +10%
	MaxDrawdown     decimal.Decimal `json:"max_drawdown"` // fraction, positive
	MaxDrawdownDate date.Date       `json:"max_drawdown_date"`
	TotalFees       decimal.Decimal `json:"total_fees"`
	Trades          int             `json:"trades"`
	Rebalances      int             `json:"rebalances"`
	Clamps          int             `json:"clamps"`
	Sharpe          float64         `json:"sharpe"`
	Sortino         float64         `json:"sortino"`
}
