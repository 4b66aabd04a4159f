package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"indexbt/internal/application/port"
	"indexbt/internal/domain/date"
)

// PriceCache 价格读穿缓存：hash <prefix>:px:<namespace>:<symbol>，field 为 ISO 日期
//
// The namespace names the currency prices are denominated in, so tables
// converted to different quotes never share entries. Redis failures degrade
// to the wrapped oracle. Missing prices are never cached.
type PriceCache struct {
	rdb       *redis.Client
	next      port.PriceOracle
	prefix    string
	namespace string
	ttl       time.Duration
}

func NewPriceCache(rdb *redis.Client, next port.PriceOracle, prefix, namespace string, ttl time.Duration) *PriceCache {
	return &PriceCache{rdb: rdb, next: next, prefix: prefix, namespace: namespace, ttl: ttl}
}

// PriceNamespace 计价货币命名空间，例如 USDT 或 USDT~BTC（经 BTC 换算）
func PriceNamespace(quote, bridge string) string {
	quote, bridge = strings.ToUpper(quote), strings.ToUpper(bridge)
	if bridge == "" || bridge == quote {
		return quote
	}
	return quote + "~" + bridge
}

func (c *PriceCache) key(symbol string) string {
	return pricePattern(c.prefix) + c.namespace + ":" + symbol
}

func pricePattern(prefix string) string { return prefix + ":px:" }

// ClearPrices 删除 prefix 下所有缓存价格（重新导入 K 线后调用）
func ClearPrices(ctx context.Context, rdb *redis.Client, prefix string) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := rdb.Scan(ctx, cursor, pricePattern(prefix)+"*", 256).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := rdb.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

func (c *PriceCache) Price(ctx context.Context, symbol string, on date.Date) (decimal.Decimal, error) {
	field := on.String()
	s, err := c.rdb.HGet(ctx, c.key(symbol), field).Result()
	switch {
	case err == nil:
		if p, perr := decimal.NewFromString(s); perr == nil {
			return p, nil
		}
		log.Warn().Str("symbol", symbol).Str("date", field).Str("value", s).Msg("bad cached price, refetching")
	case errors.Is(err, redis.Nil):
	default:
		if ctx.Err() != nil {
			return decimal.Zero, ctx.Err()
		}
		log.Warn().Err(err).Str("symbol", symbol).Msg("price cache read failed")
	}

	p, err := c.next.Price(ctx, symbol, on)
	if err != nil {
		return p, err
	}

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, c.key(symbol), field, p.String())
	if c.ttl > 0 {
		pipe.Expire(ctx, c.key(symbol), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("price cache write failed")
	}
	return p, nil
}
