package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"indexbt/internal/application/port"
	"indexbt/internal/domain/model"
)

// csvColumns 导入文件的表头
var csvColumns = []string{"symbol", "timestamp", "open", "high", "low", "close", "volume"}

type CandleService struct {
	repo port.CandleRepository
}

func NewCandleService(repo port.CandleRepository) *CandleService {
	return &CandleService{repo: repo}
}

// SaveCandles 校验后写入
func (s *CandleService) SaveCandles(ctx context.Context, candles []model.Candle) error {
	for i := range candles {
		if err := normalizeCandle(&candles[i]); err != nil {
			return fmt.Errorf("candle %d: %w", i, err)
		}
	}
	return s.repo.SaveCandles(ctx, candles)
}

// ImportCSV reads candles with the header
// symbol,timestamp,open,high,low,close,volume (timestamp in unix
// milliseconds) and stores them under exchange. It returns the number of
// candles written.
func (s *CandleService) ImportCSV(ctx context.Context, r io.Reader, exchange string) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvColumns)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	for i, col := range csvColumns {
		if strings.ToLower(strings.TrimSpace(header[i])) != col {
			return 0, fmt.Errorf("csv column %d is %q, want %q", i, header[i], col)
		}
	}

	var candles []model.Candle
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("csv line %d: %w", line, err)
		}
		c, err := parseCandle(exchange, rec)
		if err != nil {
			return 0, fmt.Errorf("csv line %d: %w", line, err)
		}
		candles = append(candles, c)
	}
	if err := s.SaveCandles(ctx, candles); err != nil {
		return 0, err
	}
	log.Info().Str("exchange", exchange).Int("candles", len(candles)).Msg("candles imported")
	return len(candles), nil
}

func parseCandle(exchange string, rec []string) (model.Candle, error) {
	ts, err := strconv.ParseInt(rec[1], 10, 64)
	if err != nil {
		return model.Candle{}, fmt.Errorf("timestamp %q: %w", rec[1], err)
	}
	c := model.Candle{Exchange: exchange, Symbol: rec[0], Timestamp: ts}
	for i, dst := range []*decimal.Decimal{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume} {
		v, err := decimal.NewFromString(rec[2+i])
		if err != nil {
			return model.Candle{}, fmt.Errorf("%s %q: %w", csvColumns[2+i], rec[2+i], err)
		}
		*dst = v
	}
	return c, nil
}

// normalizeCandle 补全 base/quote 并校验收盘价
func normalizeCandle(c *model.Candle) error {
	base, quote, ok := strings.Cut(strings.ToUpper(c.Symbol), "/")
	if !ok || base == "" || quote == "" {
		return fmt.Errorf("symbol %q must be BASE/QUOTE", c.Symbol)
	}
	c.Symbol = base + "/" + quote
	c.Base, c.Quote = base, quote
	if c.Exchange == "" {
		return fmt.Errorf("%s: empty exchange", c.Symbol)
	}
	if c.Timestamp <= 0 {
		return fmt.Errorf("%s: timestamp %d", c.Symbol, c.Timestamp)
	}
	if !c.Close.IsPositive() {
		return fmt.Errorf("%s at %d: close %s must be positive", c.Symbol, c.Timestamp, c.Close)
	}
	return nil
}
