package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"indexbt/internal/application/port"
	"indexbt/internal/domain/date"
	"indexbt/internal/domain/model"
	domainservice "indexbt/internal/domain/service"
)

var (
	ErrUnsortedDates = errors.New("dates must be strictly ascending")
	ErrEmptyRange    = errors.New("no dates in range")
	ErrNilStrategy   = errors.New("nil strategy")
)

// StepError attaches the simulated day to a failure.
type StepError struct {
	Date date.Date
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("step %s: %v", e.Date, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// RunParams 一次回测的输入
type RunParams struct {
	Name        string
	Oracle      port.PriceOracle
	Dates       []date.Date // strictly ascending
	Start       date.Date   // zero: first date
	End         date.Date   // zero: last date
	Strategy    Strategy
	CadenceDays int // 0: buy and hold
	InitialCash decimal.Decimal
	FeeRate     decimal.NullDecimal // invalid: domain default
	Observer    domainservice.Observer
}

// Driver 回测驱动：按日期顺序推进，按周期再平衡，记录权益曲线
type Driver struct{}

func NewDriver() *Driver { return &Driver{} }

// Run replays the date sequence on a fresh ledger. The first date in range
// always rebalances (the initial buy-in from cash); later dates rebalance
// once CadenceDays have passed since the previous rebalance. Every date in
// range adds one equity point.
func (d *Driver) Run(ctx context.Context, p RunParams) (*model.RunResult, error) {
	if p.Strategy == nil {
		return nil, ErrNilStrategy
	}
	if !date.Ascending(p.Dates) {
		return nil, ErrUnsortedDates
	}
	if p.CadenceDays < 0 {
		return nil, fmt.Errorf("cadence %d days must not be negative", p.CadenceDays)
	}
	window := make([]date.Date, 0, len(p.Dates))
	span := date.Range{From: p.Start, To: p.End}
	for _, on := range p.Dates {
		if span.Contains(on) {
			window = append(window, on)
		}
	}
	if len(window) == 0 {
		return nil, fmt.Errorf("%s..%s: %w", p.Start, p.End, ErrEmptyRange)
	}

	name := p.Name
	if name == "" {
		name = p.Strategy.Name()
	}
	clamps := &clampCounter{}
	opts := []domainservice.LedgerOption{
		domainservice.WithObserver(domainservice.Observers(NewLogObserver(name), clamps, p.Observer)),
	}
	if p.FeeRate.Valid {
		opts = append(opts, domainservice.WithFeeRate(p.FeeRate.Decimal))
	}
	ledger, err := domainservice.NewLedger(p.Oracle, p.InitialCash, opts...)
	if err != nil {
		return nil, err
	}
	rebalancer := domainservice.NewRebalancer(ledger)

	result := &model.RunResult{
		ID:          uuid.NewString(),
		Name:        name,
		Start:       window[0],
		End:         window[len(window)-1],
		InitialCash: p.InitialCash,
		Equity:      make([]model.EquityPoint, 0, len(window)),
	}

	var last date.Date
	for i, on := range window {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i == 0 || (p.CadenceDays > 0 && on.DaysSince(last) >= p.CadenceDays) {
			if err := rebalance(ctx, ledger, rebalancer, p.Strategy, on); err != nil {
				return nil, &StepError{Date: on, Err: err}
			}
			last = on
			result.Rebalances = append(result.Rebalances, on)
		}
		v, err := ledger.ValueAt(ctx, on)
		if err != nil {
			return nil, &StepError{Date: on, Err: err}
		}
		result.Equity = append(result.Equity, model.EquityPoint{Date: on, Value: v.Total})
	}

	result.Trades = ledger.Trades()
	result.TotalFees = ledger.TotalFees()
	result.FinalCash = ledger.Cash()
	result.Clamps = clamps.n

	log.Info().
		Str("run", name).
		Str("start", result.Start.String()).
		Str("end", result.End.String()).
		Int("days", len(result.Equity)).
		Int("rebalances", len(result.Rebalances)).
		Int("trades", len(result.Trades)).
		Str("fee_rate", ledger.FeeRate().String()).
		Str("fees", result.TotalFees.StringFixed(2)).
		Str("final", result.Final().StringFixed(2)).
		Msg("backtest finished")
	return result, nil
}

func rebalance(ctx context.Context, l *domainservice.Ledger, r *domainservice.Rebalancer, s Strategy, on date.Date) error {
	current, err := l.ValueAt(ctx, on)
	if err != nil {
		return err
	}
	target, err := s.Composition(ctx, on, current)
	if err != nil {
		return fmt.Errorf("strategy %s: %w", s.Name(), err)
	}
	_, err = r.RebalanceTo(ctx, on, target)
	return err
}

type clampCounter struct{ n int }

func (c *clampCounter) OnTrade(model.Trade)                          {}
func (c *clampCounter) OnClamp(domainservice.ClampKind, model.Trade) { c.n++ }
func (c *clampCounter) OnRebalance(model.RebalanceReport)            {}
