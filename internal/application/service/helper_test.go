package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"indexbt/internal/domain/date"
	"indexbt/internal/domain/model"
	domainservice "indexbt/internal/domain/service"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) date.Date { return date.MustParse(s) }

type mapOracle map[string]decimal.Decimal

func (m mapOracle) set(symbol, on, price string) mapOracle {
	m[symbol+"@"+on] = d(price)
	return m
}

func (m mapOracle) Price(_ context.Context, symbol string, on date.Date) (decimal.Decimal, error) {
	p, ok := m[symbol+"@"+on.String()]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s on %s: %w", symbol, on, domainservice.ErrPriceUnavailable)
	}
	return p, nil
}

type countingObserver struct {
	trades, rebalances int
}

func (o *countingObserver) OnTrade(model.Trade)                          { o.trades++ }
func (o *countingObserver) OnClamp(domainservice.ClampKind, model.Trade) {}
func (o *countingObserver) OnRebalance(model.RebalanceReport)            { o.rebalances++ }

func assertDecimal(t *testing.T, name string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s: got %s, want %s", name, got, want)
	}
}

func mustStatic(t *testing.T, c model.Composition) Strategy {
	t.Helper()
	s, err := NewStaticStrategy("static", c)
	if err != nil {
		t.Fatalf("NewStaticStrategy failed: %v", err)
	}
	return s
}
