package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"indexbt/internal/domain/model"
)

func TestRebalanceInitialBuyIn(t *testing.T) {
	oracle := newMockOracle().set("A", day1, "10").set("B", day1, "20")
	obs := &recordingObserver{}
	l := newTestLedger(t, oracle, "1000", WithObserver(obs))

	report, err := NewRebalancer(l).RebalanceTo(context.Background(), day1, model.Composition{
		"A": d("0.5"),
		"B": d("0.5"),
	})
	if err != nil {
		t.Fatalf("RebalanceTo failed: %v", err)
	}

	if len(report.Divests) != 0 || len(report.Sells) != 0 || len(report.Buys) != 2 {
		t.Fatalf("expected only 2 buys, got %d/%d/%d", len(report.Divests), len(report.Sells), len(report.Buys))
	}
	assertDecimal(t, "A spend", report.Buys[0].QuoteAmount, d("500"))
	assertDecimal(t, "B spend", report.Buys[1].QuoteAmount, d("500"))
	assertDecimal(t, "cash", l.Cash(), d("0"))
	assertDecimal(t, "value after fees", report.After.Total, d("997.5"))
	if obs.rebalances != 1 {
		t.Errorf("expected 1 rebalance event, got %d", obs.rebalances)
	}
	assertInvariants(t, l)
}

func TestRebalanceSplitPosition(t *testing.T) {
	oracle := newMockOracle().
		set("A", day1, "10").
		set("A", day2, "10").set("B", day2, "10")
	l := newTestLedger(t, oracle, "1000")
	r := NewRebalancer(l)
	ctx := context.Background()

	if _, err := r.RebalanceTo(ctx, day1, model.Composition{"A": d("1")}); err != nil {
		t.Fatalf("initial RebalanceTo failed: %v", err)
	}
	held, _ := l.Position("A")
	assertDecimal(t, "A held", held.BaseAmount, d("99.75"))

	report, err := r.RebalanceTo(ctx, day2, model.Composition{"A": d("0.5"), "B": d("0.5")})
	if err != nil {
		t.Fatalf("RebalanceTo failed: %v", err)
	}

	if len(report.Sells) != 1 || report.Sells[0].Symbol != "A" {
		t.Fatalf("expected one sell of A, got %+v", report.Sells)
	}
	assertDecimal(t, "sold", report.Sells[0].BaseAmount, d("49.875"))
	if len(report.Buys) != 1 || report.Buys[0].Symbol != "B" {
		t.Fatalf("expected one buy of B, got %+v", report.Buys)
	}
	// the whole freed cash (net of the sell fee) funds B
	assertDecimal(t, "B spend", report.Buys[0].QuoteAmount, d("497.503125"))
	assertDecimal(t, "cash", l.Cash(), d("0"))

	tolerance := d("0.005")
	for symbol, w := range report.After.Weights() {
		if w.Sub(d("0.5")).Abs().GreaterThan(tolerance) {
			t.Errorf("%s weight %s not within %s of 0.5", symbol, w, tolerance)
		}
	}
	assertInvariants(t, l)
}

func TestRebalanceNoOp(t *testing.T) {
	oracle := newMockOracle().
		set("A", day1, "10").set("B", day1, "20").set("C", day1, "7").
		set("A", day2, "13").set("B", day2, "17").set("C", day2, "9")
	l := newTestLedger(t, oracle, "1000")
	r := NewRebalancer(l)
	ctx := context.Background()

	if _, err := r.RebalanceTo(ctx, day1, EqualWeights([]string{"A", "B", "C"})); err != nil {
		t.Fatalf("RebalanceTo failed: %v", err)
	}
	v, err := l.ValueAt(ctx, day2)
	if err != nil {
		t.Fatalf("ValueAt failed: %v", err)
	}

	trades := len(l.Trades())
	report, err := r.RebalanceTo(ctx, day2, model.Composition(v.Weights()))
	if err != nil {
		t.Fatalf("RebalanceTo failed: %v", err)
	}
	if n := len(report.Trades()); n != 0 {
		t.Errorf("expected no trades, got %d: %+v", n, report.Trades())
	}
	if len(l.Trades()) != trades {
		t.Errorf("ledger recorded trades during a no-op rebalance")
	}
}

func TestRebalanceNoOpLargeNotional(t *testing.T) {
	oracle := newMockOracle().
		set("A", day1, "10").set("B", day1, "20").set("C", day1, "7").
		set("A", day2, "13").set("B", day2, "17").set("C", day2, "9")
	l := newTestLedger(t, oracle, "300000000")
	r := NewRebalancer(l)
	ctx := context.Background()

	if _, err := r.RebalanceTo(ctx, day1, EqualWeights([]string{"A", "B", "C"})); err != nil {
		t.Fatalf("RebalanceTo failed: %v", err)
	}
	v, err := l.ValueAt(ctx, day2)
	if err != nil {
		t.Fatalf("ValueAt failed: %v", err)
	}
	report, err := r.RebalanceTo(ctx, day2, model.Composition(v.Weights()))
	if err != nil {
		t.Fatalf("RebalanceTo failed: %v", err)
	}
	if n := len(report.Trades()); n != 0 {
		t.Errorf("expected no trades at %s notional, got %d: %+v", v.Total.StringFixed(0), n, report.Trades())
	}
}

func TestRebalanceKeepsPrecisionBounded(t *testing.T) {
	symbols := []string{"A", "B", "C"}
	oracle := newMockOracle()
	rng := rand.New(rand.NewSource(11))
	const days = 730
	for i := 0; i < days; i++ {
		for _, s := range symbols {
			oracle.set(s, day1.Add(i), decimal.NewFromFloat(5+rng.Float64()*50).StringFixed(4))
		}
	}
	l := newTestLedger(t, oracle, "1000")
	r := NewRebalancer(l)
	ctx := context.Background()

	target := EqualWeights(symbols)
	for i := 0; i < days; i++ {
		if _, err := r.RebalanceTo(ctx, day1.Add(i), target); err != nil {
			t.Fatalf("day %d: RebalanceTo failed: %v", i, err)
		}
	}

	if exp := l.Cash().Exponent(); exp < -32 {
		t.Errorf("cash carries %d decimals after %d rebalances", -exp, days)
	}
	for _, pos := range l.Positions() {
		if exp := pos.BaseAmount.Exponent(); exp < -32 {
			t.Errorf("%s carries %d decimals after %d rebalances", pos.Symbol, -exp, days)
		}
	}
	for _, tr := range l.Trades() {
		if tr.Side == model.SideBuy && tr.QuoteAmount.Exponent() < -QuoteScale {
			t.Fatalf("buy of %s not rounded to %d decimals", tr.QuoteAmount, QuoteScale)
		}
	}
	assertInvariants(t, l)
}

func TestRebalanceDivestsDroppedSymbols(t *testing.T) {
	oracle := newMockOracle().
		set("A", day1, "10").set("B", day1, "10").
		set("A", day2, "20").set("B", day2, "10")
	l := newTestLedger(t, oracle, "1000", WithFeeRate(decimal.Zero))
	r := NewRebalancer(l)
	ctx := context.Background()

	if _, err := r.RebalanceTo(ctx, day1, EqualWeights([]string{"A", "B"})); err != nil {
		t.Fatalf("RebalanceTo failed: %v", err)
	}
	report, err := r.RebalanceTo(ctx, day2, model.Composition{"B": d("1")})
	if err != nil {
		t.Fatalf("RebalanceTo failed: %v", err)
	}

	if len(report.Divests) != 1 || report.Divests[0].Symbol != "A" {
		t.Fatalf("expected A divested, got %+v", report.Divests)
	}
	assertDecimal(t, "A proceeds", report.Divests[0].QuoteAmount, d("1000"))
	if pos, _ := l.Position("A"); !pos.Closed() {
		t.Errorf("A must be closed, holds %s", pos.BaseAmount)
	}
	// 1500 total all in B at 10
	b, _ := l.Position("B")
	assertDecimal(t, "B held", b.BaseAmount, d("150"))
	assertDecimal(t, "cash", l.Cash(), d("0"))
}

func TestRebalanceLeavesResidualCash(t *testing.T) {
	oracle := newMockOracle().set("A", day1, "10")
	l := newTestLedger(t, oracle, "1000")

	report, err := NewRebalancer(l).RebalanceTo(context.Background(), day1, model.Composition{"A": d("0.4")})
	if err != nil {
		t.Fatalf("RebalanceTo failed: %v", err)
	}
	if len(report.Buys) != 1 {
		t.Fatalf("expected 1 buy, got %d", len(report.Buys))
	}
	assertDecimal(t, "spend", report.Buys[0].QuoteAmount, d("400"))
	assertDecimal(t, "idle cash", l.Cash(), d("600"))
}

func TestRebalanceToEmptyComposition(t *testing.T) {
	oracle := newMockOracle().set("A", day1, "10").set("B", day1, "5")
	l := newTestLedger(t, oracle, "1000")
	r := NewRebalancer(l)
	ctx := context.Background()

	if _, err := r.RebalanceTo(ctx, day1, EqualWeights([]string{"A", "B"})); err != nil {
		t.Fatalf("RebalanceTo failed: %v", err)
	}
	report, err := r.RebalanceTo(ctx, day1, model.Composition{})
	if err != nil {
		t.Fatalf("RebalanceTo failed: %v", err)
	}
	if len(report.Divests) != 2 || len(report.Buys) != 0 {
		t.Errorf("expected 2 divests and no buys, got %d/%d", len(report.Divests), len(report.Buys))
	}
	if len(report.After.Holdings) != 0 {
		t.Errorf("expected all cash, got %+v", report.After.Holdings)
	}
	assertInvariants(t, l)
}

func TestRebalanceZeroWeightSellsEverything(t *testing.T) {
	oracle := newMockOracle().set("A", day1, "3").set("B", day1, "7")
	l := newTestLedger(t, oracle, "1000")
	r := NewRebalancer(l)
	ctx := context.Background()

	if _, err := r.RebalanceTo(ctx, day1, EqualWeights([]string{"A", "B"})); err != nil {
		t.Fatalf("RebalanceTo failed: %v", err)
	}
	report, err := r.RebalanceTo(ctx, day1, model.Composition{"A": decimal.Zero, "B": d("1")})
	if err != nil {
		t.Fatalf("RebalanceTo failed: %v", err)
	}
	if len(report.Sells) != 1 || report.Sells[0].Clamped {
		t.Fatalf("expected one unclamped sell, got %+v", report.Sells)
	}
	if pos, _ := l.Position("A"); !pos.Closed() {
		t.Errorf("A must be fully sold, holds %s", pos.BaseAmount)
	}
}

func TestRebalanceMissingPrice(t *testing.T) {
	oracle := newMockOracle().set("A", day1, "10")
	l := newTestLedger(t, oracle, "1000")

	_, err := NewRebalancer(l).RebalanceTo(context.Background(), day1, model.Composition{"A": d("0.5"), "B": d("0.5")})
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("expected ErrPriceUnavailable, got %v", err)
	}
	assertInvariants(t, l)
}

func TestValidateComposition(t *testing.T) {
	tests := []struct {
		name string
		c    model.Composition
		want error
	}{
		{"empty", model.Composition{}, nil},
		{"partial", model.Composition{"A": d("0.3")}, nil},
		{"full", model.Composition{"A": d("0.5"), "B": d("0.5")}, nil},
		{"negative", model.Composition{"A": d("-0.1")}, ErrInvalidWeight},
		{"above one", model.Composition{"A": d("1.1")}, ErrInvalidWeight},
		{"overweight", model.Composition{"A": d("0.7"), "B": d("0.7")}, ErrOverweight},
		{"empty symbol", model.Composition{"": d("0.1")}, ErrInvalidSymbol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateComposition(tt.c)
			if tt.want == nil && err != nil {
				t.Errorf("unexpected error %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestEqualWeights(t *testing.T) {
	c := EqualWeights([]string{"A", "B", "A", "", "C", "D"})
	if len(c) != 4 {
		t.Fatalf("expected 4 symbols, got %v", c)
	}
	assertDecimal(t, "weight", c["C"], d("0.25"))
	if len(EqualWeights(nil)) != 0 {
		t.Errorf("expected empty composition")
	}
}
