package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"indexbt/internal/domain/date"
	"indexbt/internal/domain/model"
)

// SaveRun 在一个事务中保存回测统计、权益曲线和成交
func (r *Repo) SaveRun(ctx context.Context, run *model.RunResult, s model.Summary) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs(
			id, name, start_day, end_day, initial_value, final_value, final_cash,
			total_return, max_drawdown, max_drawdown_day, total_fees,
			trades, rebalances, clamps, sharpe, sortino, created_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Name, run.Start.String(), run.End.String(),
		s.InitialValue.String(), s.FinalValue.String(), run.FinalCash.String(),
		s.TotalReturn.String(), s.MaxDrawdown.String(), s.MaxDrawdownDate.String(), s.TotalFees.String(),
		s.Trades, s.Rebalances, s.Clamps, s.Sharpe, s.Sortino, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	eq, err := tx.PrepareContext(ctx, `INSERT INTO run_equity(run_id, day, value) VALUES(?, ?, ?)`)
	if err != nil {
		return err
	}
	defer eq.Close()
	for _, p := range run.Equity {
		if _, err := eq.ExecContext(ctx, run.ID, p.Date.String(), p.Value.String()); err != nil {
			return fmt.Errorf("insert equity %s: %w", p.Date, err)
		}
	}

	tr, err := tx.PrepareContext(ctx, `
		INSERT INTO run_trades(run_id, seq, day, side, symbol, price, base_amount, quote_amount, fee, clamped)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer tr.Close()
	for i, t := range run.Trades {
		if _, err := tr.ExecContext(ctx, run.ID, i, t.Date.String(), string(t.Side), t.Symbol,
			t.Price.String(), t.BaseAmount.String(), t.QuoteAmount.String(), t.Fee.String(), t.Clamped); err != nil {
			return fmt.Errorf("insert trade %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// ListRuns 按保存时间倒序返回回测统计
func (r *Repo) ListRuns(ctx context.Context) ([]model.Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, initial_value, final_value, total_return, max_drawdown, max_drawdown_day,
		       total_fees, trades, rebalances, clamps, sharpe, sortino
		FROM runs
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Summary
	for rows.Next() {
		var s model.Summary
		var ddDay string
		if err := rows.Scan(&s.RunID, &s.Name, &s.InitialValue, &s.FinalValue, &s.TotalReturn,
			&s.MaxDrawdown, &ddDay, &s.TotalFees, &s.Trades, &s.Rebalances, &s.Clamps,
			&s.Sharpe, &s.Sortino); err != nil {
			return nil, err
		}
		if ddDay != "" {
			if s.MaxDrawdownDate, err = date.Parse(ddDay); err != nil {
				return nil, err
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Equity 读取某次回测的权益曲线
func (r *Repo) Equity(ctx context.Context, runID string) ([]model.EquityPoint, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT day, value FROM run_equity WHERE run_id = ? ORDER BY day`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EquityPoint
	for rows.Next() {
		var day string
		var v decimal.Decimal
		if err := rows.Scan(&day, &v); err != nil {
			return nil, err
		}
		on, err := date.Parse(day)
		if err != nil {
			return nil, err
		}
		out = append(out, model.EquityPoint{Date: on, Value: v})
	}
	return out, rows.Err()
}
