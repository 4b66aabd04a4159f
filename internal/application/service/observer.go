package service

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"indexbt/internal/domain/model"
	domainservice "indexbt/internal/domain/service"
)

// LogObserver 把账本事件写入日志
type LogObserver struct {
	run string
}

func NewLogObserver(run string) *LogObserver { return &LogObserver{run: run} }

func (o *LogObserver) OnTrade(t model.Trade) {
	log.Debug().
		Str("run", o.run).
		Str("date", t.Date.String()).
		Str("side", string(t.Side)).
		Str("symbol", t.Symbol).
		Str("price", t.Price.String()).
		Str("base", t.BaseAmount.String()).
		Str("quote", t.QuoteAmount.StringFixed(8)).
		Str("fee", t.Fee.StringFixed(8)).
		Msg("trade")
}

// OnClamp 请求超出可用余额时告警
func (o *LogObserver) OnClamp(kind domainservice.ClampKind, t model.Trade) {
	log.Warn().
		Err(kind.Err()).
		Str("run", o.run).
		Str("date", t.Date.String()).
		Str("kind", string(kind)).
		Str("side", string(t.Side)).
		Str("symbol", t.Symbol).
		Str("requested", t.Requested.String()).
		Str("executed", executed(t).String()).
		Msg("trade clamped")
}

func (o *LogObserver) OnRebalance(r model.RebalanceReport) {
	log.Info().
		Str("run", o.run).
		Str("date", r.Date.String()).
		Int("divests", len(r.Divests)).
		Int("sells", len(r.Sells)).
		Int("buys", len(r.Buys)).
		Str("value", r.After.Total.StringFixed(2)).
		Str("turnover", r.Turnover().StringFixed(2)).
		Msg("rebalanced")
}

func executed(t model.Trade) decimal.Decimal {
	if t.Side == model.SideBuy {
		return t.QuoteAmount
	}
	return t.BaseAmount
}
