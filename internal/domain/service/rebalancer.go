package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"indexbt/internal/domain/date"
	"indexbt/internal/domain/model"
)

// dustQuote 小于该金额的调整视为零
var dustQuote = decimal.New(1, -9)

// dustRatio scales the dust threshold with the portfolio: deltas below
// total * dustRatio are noise from weights rounded to the division precision.
var dustRatio = decimal.New(1, -12)

// QuoteScale 买入金额的小数位数，保持现金精度有界
const QuoteScale = 12

// weightTolerance absorbs rounding when weights are derived from a valuation.
var weightTolerance = decimal.New(1, -9)

// Rebalancer 把账本调整到目标权重
type Rebalancer struct {
	ledger *Ledger
}

// NewRebalancer 创建再平衡器
func NewRebalancer(l *Ledger) *Rebalancer {
	return &Rebalancer{ledger: l}
}

type adjustment struct {
	symbol string
	delta  decimal.Decimal // target - current, in quote
	held   model.Holding
}

// RebalanceTo 调整持仓到目标组合
//
// Positions missing from target are sold first. The remaining holdings are
// then compared to weight * total value: surpluses are sold at the day's
// price, and the cash on hand afterwards is spread over the deficits in
// proportion to their size. Only up to the sum of the deficits is spent, so
// weights summing below one leave the rest in cash. Buy amounts are rounded
// down to QuoteScale decimals.
func (r *Rebalancer) RebalanceTo(ctx context.Context, on date.Date, target model.Composition) (model.RebalanceReport, error) {
	report := model.RebalanceReport{Date: on}
	if err := ValidateComposition(target); err != nil {
		return report, err
	}
	l := r.ledger

	before, err := l.ValueAt(ctx, on)
	if err != nil {
		return report, err
	}
	report.Before = before

	// 1. 清仓不在目标中的资产
	for _, h := range before.Holdings {
		if _, ok := target[h.Symbol]; ok {
			continue
		}
		t, _, err := l.Sell(ctx, on, h.Symbol, h.BaseAmount)
		if err != nil {
			return report, fmt.Errorf("divest %s: %w", h.Symbol, err)
		}
		report.Divests = append(report.Divests, t)
	}

	// 2. 重新估值
	current, err := l.ValueAt(ctx, on)
	if err != nil {
		return report, err
	}

	// 3. 计算每个资产的目标差额
	dust := decimal.Max(dustQuote, current.Total.Mul(dustRatio))
	var decrease, increase []adjustment
	increaseTotal := decimal.Zero
	for _, symbol := range unionSymbols(current.Holdings, target) {
		held := current.Holding(symbol)
		delta := target[symbol].Mul(current.Total).Sub(held.QuoteValue)
		switch {
		case delta.Abs().LessThan(dust):
		case delta.IsNegative():
			decrease = append(decrease, adjustment{symbol: symbol, delta: delta, held: held})
		default:
			increase = append(increase, adjustment{symbol: symbol, delta: delta, held: held})
			increaseTotal = increaseTotal.Add(delta)
		}
	}

	// 4. 卖出超配部分
	for _, a := range decrease {
		base := a.delta.Abs().Div(a.held.Price)
		if target[a.symbol].IsZero() || base.GreaterThan(a.held.BaseAmount) {
			base = a.held.BaseAmount
		}
		t, _, err := l.Sell(ctx, on, a.symbol, base)
		if err != nil {
			return report, fmt.Errorf("reduce %s: %w", a.symbol, err)
		}
		report.Sells = append(report.Sells, t)
	}

	// 5. 按差额比例分配现金买入低配部分
	distributable := decimal.Min(l.Cash(), increaseTotal)
	if increaseTotal.IsPositive() && distributable.IsPositive() {
		for _, a := range increase {
			amount := a.delta.Div(increaseTotal).Mul(distributable).RoundDown(QuoteScale)
			if amount.GreaterThan(l.Cash()) {
				amount = l.Cash().RoundDown(QuoteScale) // rounding residue only
			}
			if amount.LessThan(dust) {
				continue
			}
			t, _, err := l.Buy(ctx, on, a.symbol, amount)
			if err != nil {
				return report, fmt.Errorf("increase %s: %w", a.symbol, err)
			}
			report.Buys = append(report.Buys, t)
		}
	}

	after, err := l.ValueAt(ctx, on)
	if err != nil {
		return report, err
	}
	report.After = after
	l.observer.OnRebalance(report)
	return report, nil
}

// ValidateComposition 检查目标权重
func ValidateComposition(c model.Composition) error {
	one := decimal.NewFromInt(1)
	for symbol, w := range c {
		if symbol == "" {
			return ErrInvalidSymbol
		}
		if w.IsNegative() || w.GreaterThan(one) {
			return fmt.Errorf("%s weight %s: %w", symbol, w, ErrInvalidWeight)
		}
	}
	if sum := c.Sum(); sum.GreaterThan(one.Add(weightTolerance)) {
		return fmt.Errorf("sum %s: %w", sum, ErrOverweight)
	}
	return nil
}

// EqualWeights 等权组合
func EqualWeights(symbols []string) model.Composition {
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if s != "" {
			seen[s] = struct{}{}
		}
	}
	c := make(model.Composition, len(seen))
	if len(seen) == 0 {
		return c
	}
	w := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(seen))))
	for s := range seen {
		c[s] = w
	}
	return c
}

func unionSymbols(holdings []model.Holding, target model.Composition) []string {
	set := make(map[string]struct{}, len(holdings)+len(target))
	for _, h := range holdings {
		set[h.Symbol] = struct{}{}
	}
	for s := range target {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
