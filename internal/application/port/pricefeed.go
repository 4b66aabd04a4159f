package port

import (
	"context"

	"indexbt/internal/domain/date"
	"indexbt/internal/domain/service"
)

// PriceOracle 价格源（按日期查询计价货币价格）
type PriceOracle = service.PriceOracle

// ErrPriceUnavailable is returned by oracles with no data point for a day.
var ErrPriceUnavailable = service.ErrPriceUnavailable

// Ranker orders symbols by price on a day, most expensive first.
type Ranker interface {
	RankAt(ctx context.Context, on date.Date) ([]string, error)
}

// PriceTable 加载完成的日线价格表
type PriceTable interface {
	PriceOracle
	Ranker
	// Dates is the sorted union of all series dates.
	Dates() []date.Date
	Symbols() []string
}

// PriceSource loads the price table a backtest replays.
type PriceSource interface {
	Load(ctx context.Context) (PriceTable, error)
}
