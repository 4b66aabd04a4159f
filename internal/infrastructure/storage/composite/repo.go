package composite

import (
	"context"

	"indexbt/internal/application/port"
	"indexbt/internal/domain/model"
)

// Repo fans a run out to every configured store.
type Repo struct {
	repos []port.RunRepository
}

func New(repos ...port.RunRepository) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.RunRepository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

// SaveRun writes to every store and returns the first error.
func (r *Repo) SaveRun(ctx context.Context, run *model.RunResult, s model.Summary) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveRun(ctx, run, s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close is a no-op: members are closed by whoever opened them.
func (r *Repo) Close() error { return nil }

func (r *Repo) Len() int { return len(r.repos) }

var _ port.RunRepository = (*Repo)(nil)
