package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"indexbt/internal/application/port"
)

// Repo stores candles and finished runs in one sqlite file. Prices and
// amounts are kept as decimal TEXT so nothing is lost to float rounding.
type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) GetDB() *sql.DB {
	return r.db
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS candles (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  exchange TEXT NOT NULL,
  symbol TEXT NOT NULL,
  base TEXT NOT NULL,
  quote TEXT NOT NULL,
  ts_ms INTEGER NOT NULL,
  open TEXT NOT NULL,
  high TEXT NOT NULL,
  low TEXT NOT NULL,
  close TEXT NOT NULL,
  volume TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  UNIQUE(exchange, symbol, ts_ms)
);
CREATE INDEX IF NOT EXISTS idx_candles_symbol ON candles(symbol, ts_ms);
CREATE INDEX IF NOT EXISTS idx_candles_quote ON candles(quote);

CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  start_day TEXT NOT NULL,
  end_day TEXT NOT NULL,
  initial_value TEXT NOT NULL,
  final_value TEXT NOT NULL,
  final_cash TEXT NOT NULL,
  total_return TEXT NOT NULL,
  max_drawdown TEXT NOT NULL,
  max_drawdown_day TEXT NOT NULL,
  total_fees TEXT NOT NULL,
  trades INTEGER NOT NULL,
  rebalances INTEGER NOT NULL,
  clamps INTEGER NOT NULL,
  sharpe REAL NOT NULL,
  sortino REAL NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

CREATE TABLE IF NOT EXISTS run_equity (
  run_id TEXT NOT NULL,
  day TEXT NOT NULL,
  value TEXT NOT NULL,
  PRIMARY KEY(run_id, day)
);

CREATE TABLE IF NOT EXISTS run_trades (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  seq INTEGER NOT NULL,
  day TEXT NOT NULL,
  side TEXT NOT NULL,
  symbol TEXT NOT NULL,
  price TEXT NOT NULL,
  base_amount TEXT NOT NULL,
  quote_amount TEXT NOT NULL,
  fee TEXT NOT NULL,
  clamped INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_trades_run ON run_trades(run_id, seq);
`)
	return err
}

var (
	_ port.CandleRepository = (*Repo)(nil)
	_ port.RunRepository    = (*Repo)(nil)
)
