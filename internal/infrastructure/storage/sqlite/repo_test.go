package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"indexbt/internal/domain/date"
	"indexbt/internal/domain/model"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func candle(exchange, base, quote string, day string, close string) model.Candle {
	return model.Candle{
		Exchange:  exchange,
		Symbol:    base + "/" + quote,
		Base:      base,
		Quote:     quote,
		Timestamp: date.MustParse(day).UnixMilli(),
		Open:      decimal.RequireFromString(close),
		High:      decimal.RequireFromString(close),
		Low:       decimal.RequireFromString(close),
		Close:     decimal.RequireFromString(close),
		Volume:    decimal.NewFromInt(1),
	}
}

func TestSQLiteRepoCandles(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	err := repo.SaveCandles(ctx, []model.Candle{
		candle("poloniex", "ETH", "BTC", "2017-01-02", "0.0105"),
		candle("poloniex", "ETH", "BTC", "2017-01-01", "0.0083"),
		candle("poloniex", "BTC", "USDT", "2017-01-01", "998.3"),
	})
	if err != nil {
		t.Fatalf("SaveCandles failed: %v", err)
	}
	// overwrite one day
	if err := repo.SaveCandles(ctx, []model.Candle{candle("poloniex", "ETH", "BTC", "2017-01-02", "0.011")}); err != nil {
		t.Fatalf("SaveCandles failed: %v", err)
	}

	got, err := repo.Candles(ctx, "eth/btc")
	if err != nil {
		t.Fatalf("Candles failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(got))
	}
	if got[0].Day() != date.MustParse("2017-01-01") {
		t.Errorf("candles not ordered by time: %v", got[0].Day())
	}
	if !got[1].Close.Equal(decimal.RequireFromString("0.011")) {
		t.Errorf("expected overwritten close 0.011, got %s", got[1].Close)
	}

	symbols, err := repo.Symbols(ctx, "BTC")
	if err != nil {
		t.Fatalf("Symbols failed: %v", err)
	}
	if len(symbols) != 1 || symbols[0] != "ETH/BTC" {
		t.Errorf("unexpected symbols %v", symbols)
	}
}

func TestSQLiteRepoSaveRun(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	d1, d2 := date.MustParse("2017-01-01"), date.MustParse("2017-01-02")
	run := &model.RunResult{
		ID:          "run-1",
		Name:        "top5-held",
		Start:       d1,
		End:         d2,
		InitialCash: decimal.NewFromInt(1000),
		FinalCash:   decimal.Zero,
		Equity: []model.EquityPoint{
			{Date: d1, Value: decimal.RequireFromString("997.5")},
			{Date: d2, Value: decimal.RequireFromString("1001.123456789")},
		},
		Trades: []model.Trade{{
			Side: model.SideBuy, Symbol: "ETH", Date: d1,
			Price: decimal.NewFromInt(10), BaseAmount: decimal.RequireFromString("99.75"),
			QuoteAmount: decimal.NewFromInt(1000), Fee: decimal.RequireFromString("2.5"),
		}},
		Rebalances: []date.Date{d1},
		TotalFees:  decimal.RequireFromString("2.5"),
	}
	summary := model.Summary{
		RunID:           run.ID,
		Name:            run.Name,
		InitialValue:    run.InitialCash,
		FinalValue:      run.Final(),
		TotalReturn:     decimal.RequireFromString("0.001123456789"),
		MaxDrawdown:     decimal.RequireFromString("0.0025"),
		MaxDrawdownDate: d1,
		TotalFees:       run.TotalFees,
		Trades:          1,
		Rebalances:      1,
		Sharpe:          1.5,
	}

	if err := repo.SaveRun(ctx, run, summary); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := repo.SaveRun(ctx, run, summary); err == nil {
		t.Errorf("expected duplicate run id to fail")
	}

	runs, err := repo.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.RunID != "run-1" || got.Trades != 1 || got.Sharpe != 1.5 || got.MaxDrawdownDate != d1 {
		t.Errorf("unexpected summary %+v", got)
	}
	if !got.FinalValue.Equal(decimal.RequireFromString("1001.123456789")) {
		t.Errorf("final value lost precision: %s", got.FinalValue)
	}

	eq, err := repo.Equity(ctx, "run-1")
	if err != nil {
		t.Fatalf("Equity failed: %v", err)
	}
	if len(eq) != 2 || eq[1].Date != d2 {
		t.Errorf("unexpected equity %+v", eq)
	}
}
