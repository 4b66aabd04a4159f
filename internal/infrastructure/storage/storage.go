package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"indexbt/internal/application/port"
	"indexbt/internal/domain/model"
)

type candleKey struct {
	exchange string
	symbol   string
	ts       int64
}

// InMemoryCandleRepository is a simple in-memory implementation
type InMemoryCandleRepository struct {
	mu      sync.RWMutex
	candles map[candleKey]model.Candle
}

// NewInMemoryCandleRepository creates a new in-memory repository
func NewInMemoryCandleRepository() *InMemoryCandleRepository {
	return &InMemoryCandleRepository{candles: make(map[candleKey]model.Candle)}
}

func (r *InMemoryCandleRepository) SaveCandles(ctx context.Context, candles []model.Candle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range candles {
		r.candles[candleKey{c.Exchange, c.Symbol, c.Timestamp}] = c
	}
	return nil
}

func (r *InMemoryCandleRepository) Candles(ctx context.Context, symbol string) ([]model.Candle, error) {
	symbol = strings.ToUpper(symbol)
	r.mu.RLock()
	var result []model.Candle
	for _, c := range r.candles {
		if c.Symbol == symbol {
			result = append(result, c)
		}
	}
	r.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].Exchange < result[j].Exchange
	})
	return result, nil
}

func (r *InMemoryCandleRepository) Symbols(ctx context.Context, quote string) ([]string, error) {
	quote = strings.ToUpper(quote)
	r.mu.RLock()
	set := make(map[string]struct{})
	for _, c := range r.candles {
		if c.Quote == quote {
			set[c.Symbol] = struct{}{}
		}
	}
	r.mu.RUnlock()
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

// InMemoryRunRepository keeps finished runs, used when storage is disabled.
type InMemoryRunRepository struct {
	mu        sync.RWMutex
	runs      map[string]*model.RunResult
	summaries []model.Summary
}

// NewInMemoryRunRepository creates a new in-memory repository
func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{runs: make(map[string]*model.RunResult)}
}

func (r *InMemoryRunRepository) SaveRun(ctx context.Context, run *model.RunResult, s model.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; ok {
		return fmt.Errorf("run %s already saved", run.ID)
	}
	r.runs[run.ID] = run
	r.summaries = append(r.summaries, s)
	return nil
}

func (r *InMemoryRunRepository) Run(id string) (*model.RunResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	return run, ok
}

func (r *InMemoryRunRepository) Summaries() []model.Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Summary(nil), r.summaries...)
}

func (r *InMemoryRunRepository) Close() error {
	return nil
}

var (
	_ port.CandleRepository = (*InMemoryCandleRepository)(nil)
	_ port.RunRepository    = (*InMemoryRunRepository)(nil)
)
