package pricefeed

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"indexbt/internal/application/port"
)

// LoadMarkets 从仓储读取所有以 quotes 计价的市场收盘价，按市场符号存入 Table
func LoadMarkets(ctx context.Context, repo port.CandleRepository, quotes ...string) (*Table, error) {
	t := NewTable()
	seen := make(map[string]struct{})
	for _, q := range quotes {
		q = strings.ToUpper(q)
		if _, dup := seen[q]; q == "" || dup {
			continue
		}
		seen[q] = struct{}{}

		symbols, err := repo.Symbols(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("list %s markets: %w", q, err)
		}
		for _, symbol := range symbols {
			candles, err := repo.Candles(ctx, symbol)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", symbol, err)
			}
			for _, c := range candles {
				t.Set(symbol, c.Day(), c.Close)
			}
			log.Debug().Str("market", symbol).Int("candles", len(candles)).Msg("market loaded")
		}
	}
	return t, nil
}

// CandleSource 读取 K 线并换算成 quote 计价
type CandleSource struct {
	repo   port.CandleRepository
	quote  string
	bridge string
}

func NewCandleSource(repo port.CandleRepository, quote, bridge string) *CandleSource {
	return &CandleSource{repo: repo, quote: quote, bridge: bridge}
}

func (s *CandleSource) Load(ctx context.Context) (port.PriceTable, error) {
	markets, err := LoadMarkets(ctx, s.repo, s.quote, s.bridge)
	if err != nil {
		return nil, err
	}
	t, err := ToQuote(markets, s.quote, s.bridge)
	if err != nil {
		return nil, err
	}
	if len(t.Symbols()) == 0 {
		return nil, fmt.Errorf("no %s prices in candle store", s.quote)
	}
	return t, nil
}
