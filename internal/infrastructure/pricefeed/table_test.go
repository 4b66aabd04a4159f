package pricefeed

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"indexbt/internal/application/port"
	"indexbt/internal/domain/date"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) date.Date { return date.MustParse(s) }

func TestTablePrice(t *testing.T) {
	tb := NewTable()
	tb.Set("ETH", day("2017-01-01"), d("8.2"))

	p, err := tb.Price(context.Background(), "ETH", day("2017-01-01"))
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if !p.Equal(d("8.2")) {
		t.Errorf("got %s, want 8.2", p)
	}

	// no interpolation
	_, err = tb.Price(context.Background(), "ETH", day("2017-01-02"))
	if !errors.Is(err, port.ErrPriceUnavailable) {
		t.Errorf("expected ErrPriceUnavailable, got %v", err)
	}
	_, err = tb.Price(context.Background(), "XRP", day("2017-01-01"))
	if !errors.Is(err, port.ErrPriceUnavailable) {
		t.Errorf("expected ErrPriceUnavailable for unknown symbol, got %v", err)
	}
}

func TestTableDatesAndSymbols(t *testing.T) {
	tb := NewTable()
	tb.Set("B", day("2017-01-03"), d("1"))
	tb.Set("A", day("2017-01-01"), d("1"))
	tb.Set("A", day("2017-01-03"), d("1"))
	tb.Set("B", day("2017-01-02"), d("1"))

	dates := tb.Dates()
	want := []date.Date{day("2017-01-01"), day("2017-01-02"), day("2017-01-03")}
	if len(dates) != len(want) {
		t.Fatalf("got %v, want %v", dates, want)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("date %d: got %s, want %s", i, dates[i], want[i])
		}
	}
	if s := tb.Symbols(); len(s) != 2 || s[0] != "A" || s[1] != "B" {
		t.Errorf("unexpected symbols %v", s)
	}
}

func TestTableRankAt(t *testing.T) {
	on := day("2017-01-01")
	tb := NewTable()
	tb.Set("LTC", on, d("4.5"))
	tb.Set("ETH", on, d("8.2"))
	tb.Set("DASH", on, d("11"))
	tb.Set("XMR", on, d("8.2"))
	tb.Set("ZEC", day("2017-01-02"), d("50"))

	got, err := tb.RankAt(context.Background(), on)
	if err != nil {
		t.Fatalf("RankAt failed: %v", err)
	}
	want := []string{"DASH", "ETH", "XMR", "LTC"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rank %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

type countingOracle struct {
	inner *Table
	calls int
	err   error
}

func (c *countingOracle) Price(ctx context.Context, symbol string, on date.Date) (decimal.Decimal, error) {
	c.calls++
	if c.err != nil {
		return decimal.Zero, c.err
	}
	return c.inner.Price(ctx, symbol, on)
}

func TestMemo(t *testing.T) {
	tb := NewTable()
	tb.Set("ETH", day("2017-01-01"), d("8"))
	inner := &countingOracle{inner: tb}
	m := NewMemo(inner)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := m.Price(ctx, "ETH", day("2017-01-01")); err != nil {
			t.Fatalf("Price failed: %v", err)
		}
		if _, err := m.Price(ctx, "ETH", day("2017-01-02")); !errors.Is(err, port.ErrPriceUnavailable) {
			t.Fatalf("expected ErrPriceUnavailable, got %v", err)
		}
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 upstream calls, got %d", inner.calls)
	}
	if hits, misses := m.Stats(); hits != 4 || misses != 2 {
		t.Errorf("hits=%d misses=%d", hits, misses)
	}
}

func TestMemoSkipsTransientErrors(t *testing.T) {
	inner := &countingOracle{inner: NewTable(), err: errors.New("connection reset")}
	m := NewMemo(inner)
	for i := 0; i < 2; i++ {
		_, _ = m.Price(context.Background(), "ETH", day("2017-01-01"))
	}
	if inner.calls != 2 {
		t.Errorf("transient errors must not be cached, got %d calls", inner.calls)
	}
}
