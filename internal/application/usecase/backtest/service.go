package backtest

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"indexbt/internal/application/port"
	"indexbt/internal/application/service"
	"indexbt/internal/domain/model"
	domainservice "indexbt/internal/domain/service"
)

const benchmarkName = "buy-and-hold"

// assetBenchmarkPrefix names the single asset run, e.g. hold-BTC.
const assetBenchmarkPrefix = "hold-"

type ServiceDeps struct {
	Source port.PriceSource
	// Wrap decorates the loaded table before replay (memo, redis cache).
	Wrap     func(port.PriceOracle) port.PriceOracle
	Driver   *service.Driver
	Runs     *service.RunService
	Sink     port.Sink
	Observer domainservice.Observer
	Params   Params
}

type Service struct {
	deps ServiceDeps
	fmt  *Formatter
}

func NewService(deps ServiceDeps, color bool) *Service {
	if deps.Driver == nil {
		deps.Driver = service.NewDriver()
	}
	if deps.Runs == nil {
		deps.Runs = service.NewRunService(NewNoopRepo())
	}
	return &Service{deps: deps, fmt: NewFormatter(color)}
}

// Run 加载价格，运行策略和买入持有基准，保存并输出结果
func (s *Service) Run(ctx context.Context) (*Report, error) {
	if s.deps.Source == nil {
		return nil, errors.New("no price source")
	}
	p := s.deps.Params

	table, err := s.deps.Source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	dates := table.Dates()
	log.Info().
		Int("symbols", len(table.Symbols())).
		Int("dates", len(dates)).
		Msg("prices loaded")

	var oracle port.PriceOracle = table
	if s.deps.Wrap != nil {
		oracle = s.deps.Wrap(table)
	}

	initial, err := s.initialStrategy(table)
	if err != nil {
		return nil, err
	}
	strategy := service.Strategy(service.NewHeldEqualStrategy(initial))
	if p.Rerank {
		strategy = initial
	}

	run := func(name string, st service.Strategy, cadence int) (*model.RunResult, error) {
		res, err := s.deps.Driver.Run(ctx, service.RunParams{
			Name:        name,
			Oracle:      oracle,
			Dates:       dates,
			Start:       p.Start,
			End:         p.End,
			Strategy:    st,
			CadenceDays: cadence,
			InitialCash: p.InitialCash,
			FeeRate:     p.FeeRate,
			Observer:    domainservice.Observers(s.deps.Observer, s.progress(name)),
		})
		if s.deps.Sink != nil {
			_ = s.deps.Sink.NewLine()
		}
		return res, err
	}

	rep := &Report{}
	if rep.Strategy, err = run(strategy.Name(), strategy, p.CadenceDays); err != nil {
		return nil, err
	}
	if rep.Benchmark, err = run(benchmarkName, initial, 0); err != nil {
		return nil, err
	}

	if p.Benchmark != "" {
		if !slices.Contains(table.Symbols(), p.Benchmark) {
			log.Warn().Str("symbol", p.Benchmark).Msg("benchmark asset has no prices, skipped")
		} else {
			hold, err := service.NewStaticStrategy(assetBenchmarkPrefix+p.Benchmark,
				model.Composition{p.Benchmark: decimal.NewFromInt(1)})
			if err != nil {
				return nil, err
			}
			if rep.Asset, err = run(hold.Name(), hold, 0); err != nil {
				return nil, err
			}
		}
	}

	rep.StrategySummary = service.Summarize(rep.Strategy, p.RiskFreeRate)
	rep.BenchmarkSummary = service.Summarize(rep.Benchmark, p.RiskFreeRate)
	rep.Excess = service.Compare(rep.StrategySummary, rep.BenchmarkSummary)
	if rep.Asset != nil {
		rep.AssetSummary = service.Summarize(rep.Asset, p.RiskFreeRate)
		rep.AssetExcess = service.Compare(rep.StrategySummary, rep.AssetSummary)
	}

	if err := s.deps.Runs.SaveRun(ctx, rep.Strategy, rep.StrategySummary); err != nil {
		return rep, err
	}
	if err := s.deps.Runs.SaveRun(ctx, rep.Benchmark, rep.BenchmarkSummary); err != nil {
		return rep, err
	}
	if rep.Asset != nil {
		if err := s.deps.Runs.SaveRun(ctx, rep.Asset, rep.AssetSummary); err != nil {
			return rep, err
		}
	}

	if s.deps.Sink != nil {
		_ = s.deps.Sink.WriteReport(s.fmt.Summary(rep.StrategySummary))
		_ = s.deps.Sink.WriteReport(s.fmt.Summary(rep.BenchmarkSummary))
		_ = s.deps.Sink.WriteReport(s.fmt.Comparison(rep.StrategySummary, rep.BenchmarkSummary, rep.Excess))
		if rep.Asset != nil {
			_ = s.deps.Sink.WriteReport(s.fmt.Summary(rep.AssetSummary))
			_ = s.deps.Sink.WriteReport(s.fmt.Comparison(rep.StrategySummary, rep.AssetSummary, rep.AssetExcess))
		}
	}

	log.Info().
		Str("strategy", rep.Strategy.Name).
		Str("return", rep.StrategySummary.TotalReturn.StringFixed(4)).
		Str("benchmark_return", rep.BenchmarkSummary.TotalReturn.StringFixed(4)).
		Str("excess", rep.Excess.StringFixed(4)).
		Msg("backtest complete")
	return rep, nil
}

// initialStrategy 固定篮子优先，否则按价格取前 N
func (s *Service) initialStrategy(table port.PriceTable) (service.Strategy, error) {
	p := s.deps.Params
	if len(p.Symbols) > 0 {
		c := domainservice.EqualWeights(p.Symbols)
		st, err := service.NewStaticStrategy(fmt.Sprintf("equal%d", len(c)), c)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	st, err := service.NewTopNStrategy(table, p.TopN, p.Exclude)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) progress(run string) domainservice.Observer {
	if s.deps.Sink == nil {
		return nil
	}
	return &progressObserver{run: run, sink: s.deps.Sink, fmt: s.fmt}
}

// progressObserver 每次再平衡刷新一行进度
type progressObserver struct {
	run  string
	sink port.Sink
	fmt  *Formatter
	last decimal.Decimal
}

func (o *progressObserver) OnTrade(model.Trade)                          {}
func (o *progressObserver) OnClamp(domainservice.ClampKind, model.Trade) {}

func (o *progressObserver) OnRebalance(r model.RebalanceReport) {
	dir := DirSame
	if !o.last.IsZero() {
		dir = direction(o.last, r.After.Total)
	}
	o.last = r.After.Total
	_ = o.sink.WriteLive(o.fmt.Progress(o.run, r, dir))
}
