package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"indexbt/internal/domain/date"
	"indexbt/internal/domain/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	day1 = date.MustParse("2017-01-01")
	day2 = date.MustParse("2017-01-02")
)

// mockOracle serves prices from a symbol -> day -> price table.
type mockOracle struct {
	prices map[string]map[date.Date]decimal.Decimal
	calls  int
}

func newMockOracle() *mockOracle {
	return &mockOracle{prices: make(map[string]map[date.Date]decimal.Decimal)}
}

func (m *mockOracle) set(symbol string, on date.Date, price string) *mockOracle {
	if m.prices[symbol] == nil {
		m.prices[symbol] = make(map[date.Date]decimal.Decimal)
	}
	m.prices[symbol][on] = d(price)
	return m
}

func (m *mockOracle) Price(ctx context.Context, symbol string, on date.Date) (decimal.Decimal, error) {
	m.calls++
	p, ok := m.prices[symbol][on]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s %s: %w", symbol, on, ErrPriceUnavailable)
	}
	return p, nil
}

type recordingObserver struct {
	trades     []model.Trade
	clamps     []ClampKind
	rebalances int
}

func (r *recordingObserver) OnTrade(t model.Trade)               { r.trades = append(r.trades, t) }
func (r *recordingObserver) OnClamp(k ClampKind, _ model.Trade)  { r.clamps = append(r.clamps, k) }
func (r *recordingObserver) OnRebalance(_ model.RebalanceReport) { r.rebalances++ }

func newTestLedger(t *testing.T, oracle PriceOracle, cash string, opts ...LedgerOption) *Ledger {
	t.Helper()
	l, err := NewLedger(oracle, d(cash), opts...)
	if err != nil {
		t.Fatalf("NewLedger failed: %v", err)
	}
	return l
}

func assertDecimal(t *testing.T, name string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

// assertInvariants checks non-negativity and the cash reconciliation.
func assertInvariants(t *testing.T, l *Ledger) {
	t.Helper()
	if l.Cash().IsNegative() {
		t.Fatalf("cash went negative: %s", l.Cash())
	}
	expected := l.InitialCash()
	fees := decimal.Zero
	for _, tr := range l.Trades() {
		switch tr.Side {
		case model.SideBuy:
			expected = expected.Sub(tr.QuoteAmount)
		case model.SideSell:
			expected = expected.Add(tr.QuoteNet())
		}
		fees = fees.Add(tr.Fee)
	}
	if !expected.Equal(l.Cash()) {
		t.Fatalf("cash %s does not reconcile with trades %s", l.Cash(), expected)
	}
	if !fees.Equal(l.TotalFees()) {
		t.Fatalf("TotalFees %s != sum of trade fees %s", l.TotalFees(), fees)
	}
	for _, p := range l.Positions() {
		if p.BaseAmount.IsNegative() {
			t.Fatalf("position %s went negative: %s", p.Symbol, p.BaseAmount)
		}
	}
}
