package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"indexbt/internal/domain/date"
	"indexbt/internal/domain/model"
)

func TestPostgresRepoSaveRun(t *testing.T) {
	dsn := os.Getenv("INDEXBT_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("INDEXBT_POSTGRES_DSN not set")
	}
	repo, err := New(dsn)
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	defer repo.Close()

	d1 := date.MustParse("2017-01-01")
	run := &model.RunResult{
		ID:          uuid.NewString(),
		Name:        "test",
		Start:       d1,
		End:         d1,
		InitialCash: decimal.NewFromInt(1000),
		Equity:      []model.EquityPoint{{Date: d1, Value: decimal.RequireFromString("997.5")}},
	}
	summary := model.Summary{RunID: run.ID, Name: run.Name, InitialValue: run.InitialCash, FinalValue: run.Final()}

	ctx := context.Background()
	if err := repo.SaveRun(ctx, run, summary); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	v, err := repo.FinalValue(ctx, run.ID)
	if err != nil {
		t.Fatalf("FinalValue failed: %v", err)
	}
	if !decimal.RequireFromString(v).Equal(decimal.RequireFromString("997.5")) {
		t.Errorf("final value %s, want 997.5", v)
	}
}
