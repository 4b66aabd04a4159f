package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/shopspring/decimal"

	"indexbt/internal/domain/date"
	"indexbt/internal/domain/model"
)

// DefaultFeeRate 默认手续费率 0.25%，买卖相同
var DefaultFeeRate = decimal.RequireFromString("0.0025")

// PriceOracle 价格源：返回某资产在某日以计价货币表示的价格
// 没有该日数据时必须返回包装了 ErrPriceUnavailable 的错误
type PriceOracle interface {
	Price(ctx context.Context, symbol string, on date.Date) (decimal.Decimal, error)
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithFeeRate overrides DefaultFeeRate.
func WithFeeRate(rate decimal.Decimal) LedgerOption {
	return func(l *Ledger) { l.feeRate = rate }
}

// WithObserver registers an observer for trades and clamp events.
func WithObserver(o Observer) LedgerOption {
	return func(l *Ledger) {
		if o != nil {
			l.observer = o
		}
	}
}

// Ledger 模拟账本：现金 + 各资产持仓
//
// A Ledger belongs to a single backtest run and is not safe for concurrent
// use. After every operation cash and every position amount are >= 0, and
// initialCash - sum(buy.QuoteAmount) + sum(sell.QuoteNet) equals cash.
type Ledger struct {
	oracle   PriceOracle
	feeRate  decimal.Decimal
	observer Observer

	initialCash decimal.Decimal
	cash        decimal.Decimal
	positions   map[string]*model.Position
	journal     []model.Trade // all trades, execution order
}

// NewLedger 创建账本
func NewLedger(oracle PriceOracle, initialCash decimal.Decimal, opts ...LedgerOption) (*Ledger, error) {
	if oracle == nil {
		return nil, ErrNilOracle
	}
	if initialCash.IsNegative() {
		return nil, fmt.Errorf("initial cash %s: %w", initialCash, ErrInvalidAmount)
	}
	l := &Ledger{
		oracle:      oracle,
		feeRate:     DefaultFeeRate,
		observer:    noopObserver{},
		initialCash: initialCash,
		cash:        initialCash,
		positions:   make(map[string]*model.Position),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.feeRate.IsNegative() || l.feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("fee rate %s must be within [0,1)", l.feeRate)
	}
	return l, nil
}

func (l *Ledger) Cash() decimal.Decimal        { return l.cash }
func (l *Ledger) InitialCash() decimal.Decimal { return l.initialCash }
func (l *Ledger) FeeRate() decimal.Decimal     { return l.feeRate }

// Reset 恢复初始现金并清空持仓
func (l *Ledger) Reset() {
	l.cash = l.initialCash
	l.positions = make(map[string]*model.Position)
	l.journal = nil
}

// Buy 用 quote 数量的现金买入 symbol
//
// The request is clamped to the available cash (the returned trade is marked
// Clamped). The fee is taken from the spent amount, so cash decreases by the
// gross amount while the position grows by (quote - fee) / price.
func (l *Ledger) Buy(ctx context.Context, on date.Date, symbol string, quote decimal.Decimal) (model.Trade, decimal.Decimal, error) {
	if symbol == "" {
		return model.Trade{}, l.cash, ErrInvalidSymbol
	}
	if !quote.IsPositive() {
		return model.Trade{}, l.cash, fmt.Errorf("buy %s for %s: %w", symbol, quote, ErrInvalidAmount)
	}
	if !l.cash.IsPositive() {
		return model.Trade{}, l.cash, fmt.Errorf("buy %s for %s with no cash left: %w", symbol, quote, ErrInsufficientFunds)
	}

	requested := quote
	clamped := quote.GreaterThan(l.cash)
	if clamped {
		quote = l.cash
	}

	price, err := l.price(ctx, symbol, on)
	if err != nil {
		return model.Trade{}, l.cash, err
	}

	fee := quote.Mul(l.feeRate)
	trade := model.Trade{
		Side:        model.SideBuy,
		Symbol:      symbol,
		Date:        on,
		Price:       price,
		BaseAmount:  quote.Sub(fee).Div(price),
		QuoteAmount: quote,
		Fee:         fee,
		Requested:   requested,
		Clamped:     clamped,
	}

	pos, ok := l.positions[symbol]
	if !ok {
		pos = &model.Position{Symbol: symbol}
		l.positions[symbol] = pos
	}
	pos.BaseAmount = pos.BaseAmount.Add(trade.BaseAmount)
	l.record(pos, trade)
	l.cash = l.cash.Sub(quote)

	if clamped {
		l.observer.OnClamp(ClampFunds, trade)
	}
	return trade, l.cash, nil
}

// Sell 卖出 base 数量的 symbol
//
// Selling a symbol that is not held fails with ErrNoSuchPosition. A request
// above the held amount is clamped to it.
func (l *Ledger) Sell(ctx context.Context, on date.Date, symbol string, base decimal.Decimal) (model.Trade, decimal.Decimal, error) {
	pos, ok := l.positions[symbol]
	if !ok || pos.Closed() {
		return model.Trade{}, l.cash, fmt.Errorf("sell %s %s: %w", base, symbol, ErrNoSuchPosition)
	}
	if !base.IsPositive() {
		return model.Trade{}, l.cash, fmt.Errorf("sell %s %s: %w", base, symbol, ErrInvalidAmount)
	}

	requested := base
	clamped := base.GreaterThan(pos.BaseAmount)
	if clamped {
		base = pos.BaseAmount
	}

	price, err := l.price(ctx, symbol, on)
	if err != nil {
		return model.Trade{}, l.cash, err
	}

	gross := base.Mul(price)
	trade := model.Trade{
		Side:        model.SideSell,
		Symbol:      symbol,
		Date:        on,
		Price:       price,
		BaseAmount:  base,
		QuoteAmount: gross,
		Fee:         gross.Mul(l.feeRate),
		Requested:   requested,
		Clamped:     clamped,
	}

	pos.BaseAmount = pos.BaseAmount.Sub(base)
	l.record(pos, trade)
	l.cash = l.cash.Add(trade.QuoteNet())

	if clamped {
		l.observer.OnClamp(ClampHoldings, trade)
	}
	return trade, l.cash, nil
}

// ValueAt 计算组合在 on 日的总价值（含现金）
//
// Every open position must have a price on that day, otherwise the whole
// valuation fails.
func (l *Ledger) ValueAt(ctx context.Context, on date.Date) (model.Valuation, error) {
	v := model.Valuation{
		Date:     on,
		Cash:     l.cash,
		Total:    l.cash,
		Holdings: make([]model.Holding, 0, len(l.positions)),
	}
	for _, symbol := range l.symbols() {
		pos := l.positions[symbol]
		if pos.Closed() {
			continue
		}
		price, err := l.price(ctx, symbol, on)
		if err != nil {
			return model.Valuation{}, err
		}
		h := model.Holding{
			Symbol:     symbol,
			BaseAmount: pos.BaseAmount,
			Price:      price,
			QuoteValue: pos.BaseAmount.Mul(price),
		}
		v.Holdings = append(v.Holdings, h)
		v.Total = v.Total.Add(h.QuoteValue)
	}
	return v, nil
}

// TotalFees 所有成交手续费之和
func (l *Ledger) TotalFees() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range l.journal {
		sum = sum.Add(t.Fee)
	}
	return sum
}

// Position returns a copy of the position for symbol.
func (l *Ledger) Position(symbol string) (model.Position, bool) {
	pos, ok := l.positions[symbol]
	if !ok {
		return model.Position{}, false
	}
	return clonePosition(pos), true
}

// Positions returns copies of all positions sorted by symbol, closed ones
// included.
func (l *Ledger) Positions() []model.Position {
	out := make([]model.Position, 0, len(l.positions))
	for _, symbol := range l.symbols() {
		out = append(out, clonePosition(l.positions[symbol]))
	}
	return out
}

// Trades returns every trade in execution order.
func (l *Ledger) Trades() []model.Trade { return slices.Clone(l.journal) }

func (l *Ledger) record(pos *model.Position, t model.Trade) {
	pos.Trades = append(pos.Trades, t)
	l.journal = append(l.journal, t)
	l.observer.OnTrade(t)
}

func (l *Ledger) price(ctx context.Context, symbol string, on date.Date) (decimal.Decimal, error) {
	p, err := l.oracle.Price(ctx, symbol, on)
	if err != nil {
		if !errors.Is(err, ErrPriceUnavailable) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", ErrPriceUnavailable, err)
		}
		return decimal.Zero, &PriceError{Symbol: symbol, Date: on, Err: err}
	}
	if !p.IsPositive() {
		return decimal.Zero, &PriceError{
			Symbol: symbol,
			Date:   on,
			Err:    fmt.Errorf("%w: non-positive price %s", ErrPriceUnavailable, p),
		}
	}
	return p, nil
}

func (l *Ledger) symbols() []string {
	out := make([]string, 0, len(l.positions))
	for s := range l.positions {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func clonePosition(p *model.Position) model.Position {
	return model.Position{
		Symbol:     p.Symbol,
		BaseAmount: p.BaseAmount,
		Trades:     slices.Clone(p.Trades),
	}
}
