package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"indexbt/internal/application/port"
	"indexbt/internal/infrastructure/config"
	"indexbt/internal/infrastructure/pricefeed"
	"indexbt/internal/infrastructure/storage"
	"indexbt/internal/infrastructure/storage/composite"
	pgrepo "indexbt/internal/infrastructure/storage/postgres"
	redisrepo "indexbt/internal/infrastructure/storage/redis"
	sqliterepo "indexbt/internal/infrastructure/storage/sqlite"
)

// Container 包含所有基础设施依赖
type Container struct {
	cfg          *config.Config
	redisClient  *redis.Client
	sqliteRepo   *sqliterepo.Repo
	postgresRepo *pgrepo.Repo
	redisRepo    *redisrepo.Repo
	memCandles   *storage.InMemoryCandleRepository
	memRuns      *storage.InMemoryRunRepository
	closeOnce    sync.Once
	closerChain  []func() error
}

// New 创建新的容器实例
func New(cfg *config.Config) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		closerChain: make([]func() error, 0),
	}

	if err := c.initStorage(); err != nil {
		// 清理已初始化的资源
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// initStorage 初始化存储层（Redis、SQLite、Postgres）
func (c *Container) initStorage() error {
	// Redis
	if c.cfg.Storage.Redis.Enabled {
		if err := c.initRedis(); err != nil {
			return fmt.Errorf("redis init failed: %w", err)
		}
	}

	// SQLite
	if c.cfg.Storage.SQLite.Enabled {
		if err := c.initSQLite(); err != nil {
			return fmt.Errorf("sqlite init failed: %w", err)
		}
	}

	// Postgres
	if c.cfg.Storage.Postgres.Enabled {
		if err := c.initPostgres(); err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
	}

	return nil
}

// initRedis 初始化 Redis 连接
func (c *Container) initRedis() error {
	rc := c.cfg.Storage.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.redisClient = rdb
	c.redisRepo = redisrepo.New(rdb, rc.Prefix, c.ttl(), rc.RunStream, rc.RunChannel)

	// 注册关闭回调
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", rc.Addr).
		Int("db", rc.DB).
		Msg("redis initialized")

	return nil
}

// initSQLite 初始化 SQLite 数据库
func (c *Container) initSQLite() error {
	repo, err := sqliterepo.New(c.cfg.Storage.SQLite.Path)
	if err != nil {
		return err
	}

	c.sqliteRepo = repo

	// 注册关闭回调
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().
		Str("path", c.cfg.Storage.SQLite.Path).
		Msg("sqlite initialized")

	return nil
}

// initPostgres 初始化 Postgres 连接
func (c *Container) initPostgres() error {
	repo, err := pgrepo.New(c.cfg.Storage.Postgres.DSN)
	if err != nil {
		return err
	}

	c.postgresRepo = repo
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})

	log.Info().Msg("postgres initialized")
	return nil
}

func (c *Container) ttl() time.Duration {
	return time.Duration(c.cfg.Storage.Redis.TTLSeconds) * time.Second
}

// Config 获取配置
func (c *Container) Config() *config.Config {
	return c.cfg
}

// RedisClient 获取 Redis 客户端
func (c *Container) RedisClient() *redis.Client {
	return c.redisClient
}

// SQLiteRepo 获取 SQLite 仓储
func (c *Container) SQLiteRepo() *sqliterepo.Repo {
	return c.sqliteRepo
}

// CandleRepository 返回 K 线仓储：SQLite 启用时使用 SQLite，否则使用内存
func (c *Container) CandleRepository() port.CandleRepository {
	if c.sqliteRepo != nil {
		return c.sqliteRepo
	}
	if c.memCandles == nil {
		c.memCandles = storage.NewInMemoryCandleRepository()
	}
	return c.memCandles
}

// RunRepository 返回所有已启用的回测结果存储；都未启用时使用内存
func (c *Container) RunRepository() port.RunRepository {
	var repos []port.RunRepository
	if c.sqliteRepo != nil {
		repos = append(repos, c.sqliteRepo)
	}
	if c.postgresRepo != nil {
		repos = append(repos, c.postgresRepo)
	}
	if c.redisRepo != nil {
		repos = append(repos, c.redisRepo)
	}
	if len(repos) == 0 {
		if c.memRuns == nil {
			c.memRuns = storage.NewInMemoryRunRepository()
		}
		return c.memRuns
	}
	return composite.New(repos...)
}

// PriceSource 从 K 线仓储加载并换算到 quote 的价格源
func (c *Container) PriceSource() port.PriceSource {
	b := c.cfg.Backtest
	return pricefeed.NewCandleSource(c.CandleRepository(), b.Quote, b.Bridge)
}

// WrapOracle 价格查询装饰：可选 Redis 缓存，外层内存缓存
func (c *Container) WrapOracle(next port.PriceOracle) port.PriceOracle {
	if c.redisClient != nil && c.cfg.Storage.Redis.CachePrice {
		b := c.cfg.Backtest
		ns := redisrepo.PriceNamespace(b.Quote, b.Bridge)
		next = redisrepo.NewPriceCache(c.redisClient, next, c.cfg.Storage.Redis.Prefix, ns, c.ttl())
	}
	return pricefeed.NewMemo(next)
}

// InvalidatePrices 清空 Redis 价格缓存（K 线变更后）
func (c *Container) InvalidatePrices(ctx context.Context) error {
	if c.redisClient == nil || !c.cfg.Storage.Redis.CachePrice {
		return nil
	}
	n, err := redisrepo.ClearPrices(ctx, c.redisClient, c.cfg.Storage.Redis.Prefix)
	if err != nil {
		return fmt.Errorf("clear price cache: %w", err)
	}
	log.Info().Int("keys", n).Msg("price cache cleared")
	return nil
}

// Close 关闭所有资源（按后进先出顺序）
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}
