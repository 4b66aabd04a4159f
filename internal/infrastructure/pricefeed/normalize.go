package pricefeed

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"indexbt/internal/domain/date"
)

// Market joins base and quote into a market symbol, e.g. ETH/BTC.
func Market(base, quote string) string { return base + "/" + quote }

// ToQuote 把市场行情（"ETH/BTC"、"BTC/USDT"）换算成以 quote 计价的资产价格表
//
// Assets quoted in quote are taken as is. Assets quoted in bridge are
// multiplied by the bridge/quote price of the same day, and the bridge asset
// itself is added. The result only holds days on which bridge/quote is
// priced. A direct quote wins over a bridged one. An empty bridge (or one
// equal to quote) skips the conversion.
func ToQuote(markets *Table, quote, bridge string) (*Table, error) {
	quote, bridge = strings.ToUpper(quote), strings.ToUpper(bridge)
	if quote == "" {
		return nil, fmt.Errorf("empty quote currency")
	}
	useBridge := bridge != "" && bridge != quote
	bridgeMarket := Market(bridge, quote)

	markets.mu.RLock()
	defer markets.mu.RUnlock()

	var bridgeSeries map[date.Date]decimal.Decimal
	if useBridge {
		bridgeSeries = markets.series[bridgeMarket]
	}
	inRange := func(on date.Date) bool {
		if !useBridge {
			return true
		}
		_, ok := bridgeSeries[on]
		return ok
	}

	out := NewTable()
	direct := make(map[string]struct{})
	for market, s := range markets.series {
		base, q, ok := strings.Cut(market, "/")
		if !ok || q != quote {
			continue
		}
		direct[base] = struct{}{}
		for on, p := range s {
			if inRange(on) {
				out.Set(base, on, p)
			}
		}
	}
	if !useBridge {
		return out, nil
	}

	for market, s := range markets.series {
		base, q, ok := strings.Cut(market, "/")
		if !ok || q != bridge {
			continue
		}
		if bridgeSeries == nil {
			return nil, fmt.Errorf("%s needs %s to convert into %s", market, bridgeMarket, quote)
		}
		if _, ok := direct[base]; ok {
			continue
		}
		for on, p := range s {
			if rate, ok := bridgeSeries[on]; ok {
				out.Set(base, on, p.Mul(rate))
			}
		}
	}
	return out, nil
}
