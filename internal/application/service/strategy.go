package service

import (
	"context"
	"fmt"
	"strings"

	"indexbt/internal/application/port"
	"indexbt/internal/domain/date"
	"indexbt/internal/domain/model"
	domainservice "indexbt/internal/domain/service"
)

// Strategy 决定每次再平衡时的目标组合
type Strategy interface {
	Name() string
	Composition(ctx context.Context, on date.Date, current model.Valuation) (model.Composition, error)
}

// StaticStrategy always targets the same composition.
type StaticStrategy struct {
	name   string
	target model.Composition
}

func NewStaticStrategy(name string, target model.Composition) (*StaticStrategy, error) {
	if err := domainservice.ValidateComposition(target); err != nil {
		return nil, err
	}
	return &StaticStrategy{name: name, target: target}, nil
}

func (s *StaticStrategy) Name() string { return s.name }

func (s *StaticStrategy) Composition(context.Context, date.Date, model.Valuation) (model.Composition, error) {
	out := make(model.Composition, len(s.target))
	for k, v := range s.target {
		out[k] = v
	}
	return out, nil
}

// TopNStrategy 按排名取前 N 个资产等权持有
type TopNStrategy struct {
	ranker  port.Ranker
	n       int
	exclude map[string]struct{}
}

func NewTopNStrategy(ranker port.Ranker, n int, exclude []string) (*TopNStrategy, error) {
	if ranker == nil {
		return nil, fmt.Errorf("top-n strategy: nil ranker")
	}
	if n <= 0 {
		return nil, fmt.Errorf("top-n strategy: n=%d must be positive", n)
	}
	ex := make(map[string]struct{}, len(exclude))
	for _, s := range exclude {
		ex[strings.ToUpper(s)] = struct{}{}
	}
	return &TopNStrategy{ranker: ranker, n: n, exclude: ex}, nil
}

func (s *TopNStrategy) Name() string { return fmt.Sprintf("top%d", s.n) }

// Composition equally weights the n best ranked symbols on the day. Fewer
// ranked symbols than n is not an error.
func (s *TopNStrategy) Composition(ctx context.Context, on date.Date, _ model.Valuation) (model.Composition, error) {
	ranked, err := s.ranker.RankAt(ctx, on)
	if err != nil {
		return nil, err
	}
	picked := make([]string, 0, s.n)
	for _, symbol := range ranked {
		if len(picked) == s.n {
			break
		}
		if _, skip := s.exclude[strings.ToUpper(symbol)]; skip {
			continue
		}
		picked = append(picked, symbol)
	}
	return domainservice.EqualWeights(picked), nil
}

// HeldEqualStrategy 首次使用 initial 建仓，之后在当前持仓之间等权再平衡
type HeldEqualStrategy struct {
	initial Strategy
}

func NewHeldEqualStrategy(initial Strategy) *HeldEqualStrategy {
	return &HeldEqualStrategy{initial: initial}
}

func (s *HeldEqualStrategy) Name() string { return s.initial.Name() + "-held" }

func (s *HeldEqualStrategy) Composition(ctx context.Context, on date.Date, current model.Valuation) (model.Composition, error) {
	if len(current.Holdings) == 0 {
		return s.initial.Composition(ctx, on, current)
	}
	symbols := make([]string, 0, len(current.Holdings))
	for _, h := range current.Holdings {
		symbols = append(symbols, h.Symbol)
	}
	return domainservice.EqualWeights(symbols), nil
}
