package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"indexbt/internal/domain/model"
)

// SaveCandles 批量写入 K 线，(exchange, symbol, ts_ms) 重复时覆盖
func (r *Repo) SaveCandles(ctx context.Context, candles []model.Candle) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles(exchange, symbol, base, quote, ts_ms, open, high, low, close, volume, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(exchange, symbol, ts_ms) DO UPDATE SET
		open=excluded.open, high=excluded.high, low=excluded.low, close=excluded.close, volume=excluded.volume
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx,
			c.Exchange, c.Symbol, c.Base, c.Quote, c.Timestamp,
			c.Open.String(), c.High.String(), c.Low.String(), c.Close.String(), c.Volume.String(), now,
		); err != nil {
			return fmt.Errorf("insert %s %s@%d: %w", c.Exchange, c.Symbol, c.Timestamp, err)
		}
	}
	return tx.Commit()
}

// Candles 按时间顺序返回某市场的 K 线
func (r *Repo) Candles(ctx context.Context, symbol string) ([]model.Candle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT exchange, symbol, base, quote, ts_ms, open, high, low, close, volume
		FROM candles
		WHERE symbol = ?
		ORDER BY ts_ms, exchange
	`, strings.ToUpper(symbol))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Candle
	for rows.Next() {
		var c model.Candle
		if err := rows.Scan(&c.Exchange, &c.Symbol, &c.Base, &c.Quote, &c.Timestamp,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) Symbols(ctx context.Context, quote string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM candles WHERE quote = ? ORDER BY symbol`, strings.ToUpper(quote))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
