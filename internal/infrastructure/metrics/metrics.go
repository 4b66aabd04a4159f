// Package metrics provides Prometheus instrumentation for backtest runs.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"

	"indexbt/internal/domain/model"
	domainservice "indexbt/internal/domain/service"
)

var (
	// TradesTotal counts simulated trades, partitioned by side.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexbt_trades_total",
		Help: "Total number of simulated trades",
	}, []string{"side"})

	// FeesTotal accumulates fees in quote currency.
	FeesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "indexbt_fees_total",
		Help: "Cumulative trading fees in quote currency",
	})

	// ClampsTotal counts trades reduced to the available balance.
	ClampsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexbt_clamps_total",
		Help: "Trades clamped to available cash or holdings",
	}, []string{"kind"})

	RebalancesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "indexbt_rebalances_total",
		Help: "Total number of rebalances",
	})

	// RebalanceTurnover is the gross quote amount traded per rebalance.
	RebalanceTurnover = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "indexbt_rebalance_turnover",
		Help:    "Gross quote amount traded per rebalance",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})
)

// Observer records ledger events.
type Observer struct{}

func NewObserver() *Observer { return &Observer{} }

func (o *Observer) OnTrade(t model.Trade) {
	TradesTotal.WithLabelValues(string(t.Side)).Inc()
	FeesTotal.Add(t.Fee.InexactFloat64())
}

func (o *Observer) OnClamp(kind domainservice.ClampKind, _ model.Trade) {
	ClampsTotal.WithLabelValues(string(kind)).Inc()
}

func (o *Observer) OnRebalance(r model.RebalanceReport) {
	RebalancesTotal.Inc()
	RebalanceTurnover.Observe(r.Turnover().InexactFloat64())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Router serves /metrics and /healthz.
func Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Push 把当前计数器推送到 Pushgateway（批处理结束时调用）
func Push(ctx context.Context, url, job string, gatherer prometheus.Gatherer) error {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if err := push.New(url, job).Gatherer(gatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	log.Info().Str("url", url).Str("job", job).Msg("metrics pushed")
	return nil
}

// Serve 在 addr 上提供指标，直到 ctx 结束
func Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
