package service

import (
	"errors"
	"fmt"

	"indexbt/internal/domain/date"
)

var (
	// ErrPriceUnavailable 没有该日期的价格（或价格为零），回测无法继续
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrNoSuchPosition 卖出未持有的资产
	ErrNoSuchPosition = errors.New("no such position")
	// ErrInsufficientFunds 现金不足；买入会被截断到可用现金
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientHoldings 持仓不足；卖出会被截断到持仓数量
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidWeight = errors.New("weight must be within [0,1]")
	ErrOverweight    = errors.New("composition weights sum above 1")
	ErrInvalidSymbol = errors.New("empty symbol")
	ErrNilOracle     = errors.New("nil price oracle")
)

// PriceError attaches the symbol and day to a price failure.
type PriceError struct {
	Symbol string
	Date   date.Date
	Err    error
}

func (e *PriceError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Symbol, e.Date, e.Err)
}

func (e *PriceError) Unwrap() error { return e.Err }
