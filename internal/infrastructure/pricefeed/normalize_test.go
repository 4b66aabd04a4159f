package pricefeed

import (
	"context"
	"testing"
)

func TestToQuote(t *testing.T) {
	m := NewTable()
	m.Set("BTC/USDT", day("2017-01-02"), d("1000"))
	m.Set("BTC/USDT", day("2017-01-03"), d("1100"))
	m.Set("ETH/BTC", day("2017-01-01"), d("0.009"))
	m.Set("ETH/BTC", day("2017-01-02"), d("0.01"))
	m.Set("ETH/BTC", day("2017-01-03"), d("0.02"))
	m.Set("LTC/BTC", day("2017-01-02"), d("0.004"))
	m.Set("LTC/USDT", day("2017-01-02"), d("4.5"))
	m.Set("XRP/EUR", day("2017-01-02"), d("1"))

	out, err := ToQuote(m, "usdt", "btc")
	if err != nil {
		t.Fatalf("ToQuote failed: %v", err)
	}
	ctx := context.Background()

	if s := out.Symbols(); len(s) != 3 || s[0] != "BTC" || s[1] != "ETH" || s[2] != "LTC" {
		t.Fatalf("unexpected symbols %v", s)
	}
	p, _ := out.Price(ctx, "ETH", day("2017-01-02"))
	if !p.Equal(d("10")) {
		t.Errorf("ETH on 01-02 = %s, want 10", p)
	}
	p, _ = out.Price(ctx, "ETH", day("2017-01-03"))
	if !p.Equal(d("22")) {
		t.Errorf("ETH on 01-03 = %s, want 22", p)
	}
	// direct quote wins
	p, _ = out.Price(ctx, "LTC", day("2017-01-02"))
	if !p.Equal(d("4.5")) {
		t.Errorf("LTC = %s, want 4.5", p)
	}
	// no bridge rate on 01-01
	if _, err := out.Price(ctx, "ETH", day("2017-01-01")); err == nil {
		t.Errorf("ETH on 01-01 must be dropped")
	}
	if dates := out.Dates(); len(dates) != 2 {
		t.Errorf("expected dates truncated to the bridge, got %v", dates)
	}
}

func TestToQuoteMissingBridge(t *testing.T) {
	m := NewTable()
	m.Set("ETH/BTC", day("2017-01-01"), d("0.01"))
	if _, err := ToQuote(m, "USDT", "BTC"); err == nil {
		t.Errorf("expected error without a BTC/USDT series")
	}

	out, err := ToQuote(m, "BTC", "")
	if err != nil {
		t.Fatalf("ToQuote without bridge failed: %v", err)
	}
	if _, err := out.Price(context.Background(), "ETH", day("2017-01-01")); err != nil {
		t.Errorf("expected ETH priced in BTC, got %v", err)
	}
}
