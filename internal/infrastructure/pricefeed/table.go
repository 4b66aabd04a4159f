package pricefeed

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"indexbt/internal/application/port"
	"indexbt/internal/domain/date"
)

// Table 内存日线价格表 symbol -> date -> price
type Table struct {
	mu     sync.RWMutex
	series map[string]map[date.Date]decimal.Decimal
}

func NewTable() *Table {
	return &Table{series: make(map[string]map[date.Date]decimal.Decimal)}
}

func (t *Table) Set(symbol string, on date.Date, price decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.series[symbol]
	if !ok {
		s = make(map[date.Date]decimal.Decimal)
		t.series[symbol] = s
	}
	s[on] = price
}

// Price returns the price of symbol on exactly that day.
func (t *Table) Price(_ context.Context, symbol string, on date.Date) (decimal.Decimal, error) {
	t.mu.RLock()
	p, ok := t.series[symbol][on]
	t.mu.RUnlock()
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s on %s", port.ErrPriceUnavailable, symbol, on)
	}
	return p, nil
}

// Dates returns the sorted union of every series' days.
func (t *Table) Dates() []date.Date {
	t.mu.RLock()
	set := make(map[date.Date]struct{})
	for _, s := range t.series {
		for on := range s {
			set[on] = struct{}{}
		}
	}
	t.mu.RUnlock()

	out := make([]date.Date, 0, len(set))
	for on := range set {
		out = append(out, on)
	}
	date.Sort(out)
	return out
}

func (t *Table) Symbols() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.series))
	for s := range t.series {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// RankAt orders the symbols priced on the day by descending price, ties by
// symbol. Symbols without a price that day are left out.
func (t *Table) RankAt(_ context.Context, on date.Date) ([]string, error) {
	t.mu.RLock()
	type ranked struct {
		symbol string
		price  decimal.Decimal
	}
	rs := make([]ranked, 0, len(t.series))
	for symbol, s := range t.series {
		if p, ok := s[on]; ok {
			rs = append(rs, ranked{symbol, p})
		}
	}
	t.mu.RUnlock()

	sort.Slice(rs, func(i, j int) bool {
		if c := rs[i].price.Cmp(rs[j].price); c != 0 {
			return c > 0
		}
		return rs[i].symbol < rs[j].symbol
	})
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.symbol
	}
	return out, nil
}

var _ port.PriceTable = (*Table)(nil)
