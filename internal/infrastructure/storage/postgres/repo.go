package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"indexbt/internal/application/port"
	"indexbt/internal/domain/model"
)

// Repo 把回测统计和权益曲线写入 Postgres，便于多次回测之间对比
type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  start_day DATE NOT NULL,
  end_day DATE NOT NULL,
  initial_value NUMERIC NOT NULL,
  final_value NUMERIC NOT NULL,
  total_return NUMERIC NOT NULL,
  max_drawdown NUMERIC NOT NULL,
  total_fees NUMERIC NOT NULL,
  trades INTEGER NOT NULL,
  rebalances INTEGER NOT NULL,
  clamps INTEGER NOT NULL,
  sharpe DOUBLE PRECISION NOT NULL,
  sortino DOUBLE PRECISION NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS run_equity (
  run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  day DATE NOT NULL,
  value NUMERIC NOT NULL,
  PRIMARY KEY(run_id, day)
);
`)
	return err
}

func (r *Repo) SaveRun(ctx context.Context, run *model.RunResult, s model.Summary) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs(id, name, start_day, end_day, initial_value, final_value, total_return,
		                 max_drawdown, total_fees, trades, rebalances, clamps, sharpe, sortino)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, run.ID, run.Name, run.Start.Time(), run.End.Time(),
		s.InitialValue.String(), s.FinalValue.String(), s.TotalReturn.String(),
		s.MaxDrawdown.String(), s.TotalFees.String(), s.Trades, s.Rebalances, s.Clamps, s.Sharpe, s.Sortino)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, p := range run.Equity {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_equity(run_id, day, value) VALUES($1, $2, $3)`,
			run.ID, p.Date.Time(), p.Value.String(),
		); err != nil {
			return fmt.Errorf("insert equity %s: %w", p.Date, err)
		}
	}
	return tx.Commit()
}

// FinalValue 读取已保存回测的最终价值
func (r *Repo) FinalValue(ctx context.Context, runID string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT final_value::text FROM runs WHERE id = $1`, runID).Scan(&v)
	return v, err
}

var _ port.RunRepository = (*Repo)(nil)
