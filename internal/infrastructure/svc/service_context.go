package svc

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	appcontainer "indexbt/internal/application/container"
	"indexbt/internal/application/port"
	"indexbt/internal/application/usecase/backtest"
	domainservice "indexbt/internal/domain/service"
	"indexbt/internal/infrastructure/config"
	infracontainer "indexbt/internal/infrastructure/container"
	"indexbt/internal/infrastructure/metrics"
	"indexbt/internal/interfaces/console"
)

type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	// 基础设施层（第一层初始化）
	infra *infracontainer.Container

	// 应用层服务
	app *appcontainer.Container

	// 输出端口
	Sink port.Sink

	observer domainservice.Observer
}

// New 创建并初始化 ServiceContext
// 这是应用启动的唯一入口点，所有依赖初始化都在这里完成
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	infra, err := infracontainer.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageInitFailed, err)
	}

	sc := &ServiceContext{
		Ctx:    ctx,
		Config: cfg,
		infra:  infra,
		app:    appcontainer.New(infra.CandleRepository(), infra.RunRepository()),
		Sink:   console.NewSink(),
	}
	if cfg.Metrics.Enabled {
		sc.observer = metrics.NewObserver()
	}

	log.Info().
		Bool("sqlite", cfg.Storage.SQLite.Enabled).
		Bool("postgres", cfg.Storage.Postgres.Enabled).
		Bool("redis", cfg.Storage.Redis.Enabled).
		Bool("metrics", cfg.Metrics.Enabled).
		Msg("service context initialized")
	return sc, nil
}

// App 应用层容器
func (sc *ServiceContext) App() *appcontainer.Container {
	return sc.app
}

// BuildBacktestServiceDeps 构建回测用例所需的所有依赖
func (sc *ServiceContext) BuildBacktestServiceDeps() backtest.ServiceDeps {
	b := sc.Config.Backtest
	return backtest.ServiceDeps{
		Source:   sc.infra.PriceSource(),
		Wrap:     sc.infra.WrapOracle,
		Driver:   sc.app.Driver(),
		Runs:     sc.app.RunService(),
		Sink:     sc.Sink,
		Observer: sc.observer,
		Params: backtest.Params{
			Start:        b.Start,
			End:          b.End,
			InitialCash:  sc.Config.InitialCash(),
			FeeRate:      sc.Config.FeeRate(),
			CadenceDays:  b.CadenceDays,
			TopN:         b.TopN,
			Symbols:      b.Symbols,
			Exclude:      b.Exclude,
			Rerank:       b.Rerank,
			Benchmark:    b.Benchmark,
			RiskFreeRate: sc.Config.RiskFreeRate(),
		},
	}
}

// ImportCandles 导入 CSV K 线并使价格缓存失效
func (sc *ServiceContext) ImportCandles(ctx context.Context, r io.Reader, exchange string) (int, error) {
	n, err := sc.app.CandleService().ImportCSV(ctx, r, exchange)
	if err != nil {
		return n, err
	}
	if n > 0 {
		if err := sc.infra.InvalidatePrices(ctx); err != nil {
			return n, err
		}
	}
	return n, nil
}

// CheckCandles 确认仓储中有可用的计价市场
func (sc *ServiceContext) CheckCandles(ctx context.Context) error {
	symbols, err := sc.infra.CandleRepository().Symbols(ctx, sc.Config.Backtest.Quote)
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		return ErrNoCandles
	}
	return nil
}

// Close 关闭 ServiceContext 中的所有资源
// 应该在应用退出时调用
func (sc *ServiceContext) Close() error {
	return sc.infra.Close()
}
