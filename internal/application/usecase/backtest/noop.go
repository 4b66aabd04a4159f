package backtest

import (
	"context"

	"indexbt/internal/application/port"
	"indexbt/internal/domain/model"
)

type noopRepo struct{}

// NewNoopRepo discards runs when no storage is configured.
func NewNoopRepo() port.RunRepository { return &noopRepo{} }

func (n *noopRepo) SaveRun(ctx context.Context, run *model.RunResult, summary model.Summary) error {
	return nil
}
func (n *noopRepo) Close() error { return nil }
