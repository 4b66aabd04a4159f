package backtest

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"indexbt/internal/domain/model"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

type Dir int

const (
	DirSame Dir = 0
	DirUp   Dir = +1
	DirDown Dir = -1
)

func direction(prev, cur decimal.Decimal) Dir {
	switch cur.Cmp(prev) {
	case 1:
		return DirUp
	case -1:
		return DirDown
	default:
		return DirSame
	}
}

func dirColor(d Dir) string {
	switch d {
	case DirUp:
		return ansiGreen
	case DirDown:
		return ansiRed
	default:
		return ansiYellow
	}
}

func signColor(v decimal.Decimal) string { return dirColor(direction(decimal.Zero, v)) }

type Formatter struct {
	Color bool
}

func NewFormatter(color bool) *Formatter {
	return &Formatter{Color: color}
}

func (f *Formatter) paint(s, c string) string {
	if !f.Color {
		return s
	}
	return colorize(s, c)
}

// Progress 渲染再平衡进度行（原地刷新）
func (f *Formatter) Progress(run string, r model.RebalanceReport, dir Dir) string {
	var sb strings.Builder
	sb.WriteString("\r")
	sb.WriteString(f.paint("[INDEXBT] ", ansiDim))
	sb.WriteString(run)
	sb.WriteString(" ")
	sb.WriteString(r.Date.String())
	sb.WriteString(" ")
	sb.WriteString(f.paint("value="+r.After.Total.StringFixed(2), dirColor(dir)))
	sb.WriteString(f.paint(fmt.Sprintf("  trades=%d turnover=%s", len(r.Trades()), r.Turnover().StringFixed(2)), ansiDim))
	if f.Color {
		sb.WriteString(ansiClearEOL)
	}
	return sb.String()
}

// Summary 渲染单个回测的统计
func (f *Formatter) Summary(s model.Summary) string {
	var sb strings.Builder
	sb.WriteString(f.paint("[INDEXBT] ", ansiDim))
	fmt.Fprintf(&sb, "%-14s", s.Name)
	fmt.Fprintf(&sb, " final=%s", s.FinalValue.StringFixed(2))
	sb.WriteString(" return=")
	sb.WriteString(f.paint(percent(s.TotalReturn), signColor(s.TotalReturn)))
	sb.WriteString(" maxDD=")
	sb.WriteString(f.paint(percent(s.MaxDrawdown.Neg()), ansiRed))
	if !s.MaxDrawdownDate.IsZero() {
		sb.WriteString(f.paint("@"+s.MaxDrawdownDate.String(), ansiDim))
	}
	fmt.Fprintf(&sb, " sharpe=%.2f sortino=%.2f", s.Sharpe, s.Sortino)
	fmt.Fprintf(&sb, " fees=%s trades=%d rebalances=%d", s.TotalFees.StringFixed(2), s.Trades, s.Rebalances)
	if s.Clamps > 0 {
		sb.WriteString(f.paint(fmt.Sprintf(" clamps=%d", s.Clamps), ansiYellow))
	}
	return sb.String()
}

// Comparison 渲染策略相对基准的超额收益
func (f *Formatter) Comparison(strategy, benchmark model.Summary, excess decimal.Decimal) string {
	return fmt.Sprintf("%s%s vs %s: excess=%s",
		f.paint("[INDEXBT] ", ansiDim),
		strategy.Name,
		benchmark.Name,
		f.paint(percent(excess), signColor(excess)),
	)
}

func percent(v decimal.Decimal) string {
	return v.Shift(2).StringFixed(2) + "%"
}
