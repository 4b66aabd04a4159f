package container

import (
	"indexbt/internal/application/port"
	"indexbt/internal/application/service"
)

type Container struct {
	candles port.CandleRepository
	runs    port.RunRepository

	candleService *service.CandleService
	runService    *service.RunService
	driver        *service.Driver
}

func New(candles port.CandleRepository, runs port.RunRepository) *Container {
	return &Container{
		candles: candles,
		runs:    runs,
	}
}

func (c *Container) Candles() port.CandleRepository {
	return c.candles
}

func (c *Container) Runs() port.RunRepository {
	return c.runs
}

func (c *Container) CandleService() *service.CandleService {
	if c.candleService == nil {
		c.candleService = service.NewCandleService(c.candles)
	}
	return c.candleService
}

func (c *Container) RunService() *service.RunService {
	if c.runService == nil {
		c.runService = service.NewRunService(c.runs)
	}
	return c.runService
}

func (c *Container) Driver() *service.Driver {
	if c.driver == nil {
		c.driver = service.NewDriver()
	}
	return c.driver
}

func (c *Container) Close() error {
	return c.runs.Close()
}
