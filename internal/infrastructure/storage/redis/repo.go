package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"indexbt/internal/application/port"
	"indexbt/internal/domain/model"
)

// Repo 把回测结果写入 Redis：统计进 stream，同时在频道上广播
type Repo struct {
	rdb        *redis.Client
	prefix     string
	ttl        time.Duration
	runStream  string
	runChannel string
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, runStream, runChannel string) *Repo {
	if strings.TrimSpace(runStream) == "" {
		runStream = prefix + ":runs"
	}
	if strings.TrimSpace(runChannel) == "" {
		runChannel = prefix + ":runs:pub"
	}
	return &Repo{
		rdb:        rdb,
		prefix:     prefix,
		ttl:        ttl,
		runStream:  runStream,
		runChannel: runChannel,
	}
}

func (r *Repo) equityKey(runID string) string { return r.prefix + ":equity:" + runID }

func (r *Repo) SaveRun(ctx context.Context, run *model.RunResult, s model.Summary) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}

	// 1) Hash: equity:<run> field = day -> value
	pipe := r.rdb.Pipeline()
	if len(run.Equity) > 0 {
		values := make(map[string]any, len(run.Equity))
		for _, p := range run.Equity {
			values[p.Date.String()] = p.Value.String()
		}
		pipe.HSet(ctx, r.equityKey(run.ID), values)
		if r.ttl > 0 {
			pipe.Expire(ctx, r.equityKey(run.ID), r.ttl)
		}
	}

	// 2) Stream: XADD <stream> * run name return payload
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: r.runStream,
		Values: map[string]any{
			"run_id":       s.RunID,
			"name":         s.Name,
			"final_value":  s.FinalValue.String(),
			"total_return": s.TotalReturn.String(),
			"payload":      string(payload),
		},
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	// 3) PubSub: PUBLISH <channel> json
	return r.rdb.Publish(ctx, r.runChannel, payload).Err()
}

// Equity 读取缓存的权益曲线 day -> value
func (r *Repo) Equity(ctx context.Context, runID string) (map[string]string, error) {
	return r.rdb.HGetAll(ctx, r.equityKey(runID)).Result()
}

// Close is a no-op: the client belongs to the container.
func (r *Repo) Close() error { return nil }

var _ port.RunRepository = (*Repo)(nil)
