package model

import (
	"github.com/shopspring/decimal"

	"indexbt/internal/domain/date"
)

// ========== Ledger Models ==========

// Side 成交方向
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Trade 一次模拟成交，创建后不可修改
type Trade struct {
	Side        Side            `json:"side"`
	Symbol      string          `json:"symbol"`
	Date        date.Date       `json:"date"`
	Price       decimal.Decimal `json:"price"`        // quote per base
	BaseAmount  decimal.Decimal `json:"base_amount"`  // quantity transacted
	QuoteAmount decimal.Decimal `json:"quote_amount"` // gross, before fees
	Fee         decimal.Decimal `json:"fee_in_quote"`
	Requested   decimal.Decimal `json:"requested"` // amount asked for before clamping
	Clamped     bool            `json:"clamped"`
}

// QuoteNet is the quote amount after fees: what a buy actually converted into
// base, or what a sell credited to cash.
func (t Trade) QuoteNet() decimal.Decimal { return t.QuoteAmount.Sub(t.Fee) }

// Position 单一资产持仓
type Position struct {
	Symbol     string          `json:"symbol"`
	BaseAmount decimal.Decimal `json:"base_amount"`
	Trades     []Trade         `json:"trades"` // execution order
}

// Closed reports whether nothing is held anymore.
func (p Position) Closed() bool { return !p.BaseAmount.IsPositive() }

// Holding 估值表中的一行
type Holding struct {
	Symbol     string          `json:"symbol"`
	BaseAmount decimal.Decimal `json:"base_amount"`
	Price      decimal.Decimal `json:"price"`
	QuoteValue decimal.Decimal `json:"quote_value"` // BaseAmount * Price
}

// Valuation 组合在某日的估值
type Valuation struct {
	Date     date.Date       `json:"date"`
	Cash     decimal.Decimal `json:"cash"`
	Total    decimal.Decimal `json:"total"` // Cash + sum of holdings
	Holdings []Holding       `json:"holdings"`
}

// Holding returns the row for symbol, or a zero row if it is not held.
func (v Valuation) Holding(symbol string) Holding {
	for _, h := range v.Holdings {
		if h.Symbol == symbol {
			return h
		}
	}
	return Holding{Symbol: symbol}
}

// Weights returns each holding's share of the total value.
func (v Valuation) Weights() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(v.Holdings))
	if !v.Total.IsPositive() {
		return out
	}
	for _, h := range v.Holdings {
		out[h.Symbol] = h.QuoteValue.Div(v.Total)
	}
	return out
}

// Composition maps symbol to target weight (fraction of total value).
// Weights may sum to less than one; the rest stays in cash.
type Composition map[string]decimal.Decimal

// Sum returns the total of all weights.
func (c Composition) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, w := range c {
		sum = sum.Add(w)
	}
	return sum
}

// RebalanceReport 一次再平衡的结果
type RebalanceReport struct {
	Date    date.Date `json:"date"`
	Before  Valuation `json:"before"`
	After   Valuation `json:"after"`
	Divests []Trade   `json:"divests"`
	Sells   []Trade   `json:"sells"`
	Buys    []Trade   `json:"buys"`
}

// Trades returns all trades of the rebalance in execution order.
func (r RebalanceReport) Trades() []Trade {
	out := make([]Trade, 0, len(r.Divests)+len(r.Sells)+len(r.Buys))
	out = append(out, r.Divests...)
	out = append(out, r.Sells...)
	return append(out, r.Buys...)
}

// Turnover is the gross quote amount traded.
func (r RebalanceReport) Turnover() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range r.Trades() {
		sum = sum.Add(t.QuoteAmount)
	}
	return sum
}
