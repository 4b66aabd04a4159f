package port

import (
	"context"

	"indexbt/internal/domain/model"
)

// CandleRepository stores daily candles.
type CandleRepository interface {
	SaveCandles(ctx context.Context, candles []model.Candle) error
	// Candles returns all candles of a market symbol ("ETH/BTC") ordered by time.
	Candles(ctx context.Context, symbol string) ([]model.Candle, error)
	// Symbols lists the distinct market symbols quoted in quote.
	Symbols(ctx context.Context, quote string) ([]string, error)
}

// RunRepository persists finished backtest runs.
type RunRepository interface {
	SaveRun(ctx context.Context, run *model.RunResult, summary model.Summary) error
	Close() error
}
