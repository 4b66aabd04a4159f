package pricefeed

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"indexbt/internal/application/port"
	"indexbt/internal/domain/date"
)

type memoKey struct {
	symbol string
	on     date.Date
}

type memoEntry struct {
	price decimal.Decimal
	err   error
}

// Memo 缓存 (symbol, date) 查询结果；只缓存成功值和“无数据”结果
type Memo struct {
	next port.PriceOracle

	mu     sync.Mutex
	cache  map[memoKey]memoEntry
	hits   int
	misses int
}

func NewMemo(next port.PriceOracle) *Memo {
	return &Memo{next: next, cache: make(map[memoKey]memoEntry)}
}

func (m *Memo) Price(ctx context.Context, symbol string, on date.Date) (decimal.Decimal, error) {
	k := memoKey{symbol, on}
	m.mu.Lock()
	if e, ok := m.cache[k]; ok {
		m.hits++
		m.mu.Unlock()
		return e.price, e.err
	}
	m.misses++
	m.mu.Unlock()

	p, err := m.next.Price(ctx, symbol, on)
	if err == nil || errors.Is(err, port.ErrPriceUnavailable) {
		m.mu.Lock()
		m.cache[k] = memoEntry{p, err}
		m.mu.Unlock()
	}
	return p, err
}

// Stats returns cache hits and misses.
func (m *Memo) Stats() (hits, misses int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}
