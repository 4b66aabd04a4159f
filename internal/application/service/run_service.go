package service

import (
	"context"
	"fmt"

	"indexbt/internal/application/port"
	"indexbt/internal/domain/model"
)

type RunService struct {
	repo port.RunRepository
}

func NewRunService(repo port.RunRepository) *RunService {
	return &RunService{repo: repo}
}

// SaveRun 保存回测结果及其统计
func (s *RunService) SaveRun(ctx context.Context, run *model.RunResult, summary model.Summary) error {
	if run.ID == "" {
		return fmt.Errorf("save run %q: empty id", run.Name)
	}
	if err := s.repo.SaveRun(ctx, run, summary); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}
