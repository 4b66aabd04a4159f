package service

import (
	"indexbt/internal/domain/model"
)

// ClampKind names which side of the ledger limited a trade.
type ClampKind string

const (
	ClampFunds    ClampKind = "insufficient_funds"
	ClampHoldings ClampKind = "insufficient_holdings"
)

// Err returns the sentinel matching the clamp, ErrInsufficientFunds or
// ErrInsufficientHoldings.
func (k ClampKind) Err() error {
	switch k {
	case ClampFunds:
		return ErrInsufficientFunds
	case ClampHoldings:
		return ErrInsufficientHoldings
	}
	return nil
}

// Observer receives ledger events for reporting. Implementations must not
// call back into the ledger.
type Observer interface {
	OnTrade(t model.Trade)
	OnClamp(kind ClampKind, t model.Trade)
	OnRebalance(r model.RebalanceReport)
}

type noopObserver struct{}

func (noopObserver) OnTrade(model.Trade)               {}
func (noopObserver) OnClamp(ClampKind, model.Trade)    {}
func (noopObserver) OnRebalance(model.RebalanceReport) {}

// Observers fans events out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	out := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

type multiObserver []Observer

func (m multiObserver) OnTrade(t model.Trade) {
	for _, o := range m {
		o.OnTrade(t)
	}
}

func (m multiObserver) OnClamp(kind ClampKind, t model.Trade) {
	for _, o := range m {
		o.OnClamp(kind, t)
	}
}

func (m multiObserver) OnRebalance(r model.RebalanceReport) {
	for _, o := range m {
		o.OnRebalance(r)
	}
}
