package main

import (
	"errors"
	"strings"
	"sync"

	"spyglass/internal/config"
	"spyglass/internal/logging"
	"spyglass/internal/pool"
	"spyglass/internal/scrape"
	"spyglass/internal/store"
)

// errPartialFailure marks a run where some items failed but others
// succeeded. main maps it to exit code 2.
var errPartialFailure = errors.New("completed with partial failures")

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	storeOnce sync.Once
	store     *store.Store
	storeErr  error

	clientOnce sync.Once
	client     *scrape.Client
	clientErr  error

	poolOnce sync.Once
	pool     *pool.Pool
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureStore() (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.storeOnce.Do(func() {
		c.store, c.storeErr = store.Open(cfg, logging.NewNop())
	})
	return c.store, c.storeErr
}

func (c *commandContext) ensureClient() (*scrape.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.clientOnce.Do(func() {
		c.client, c.clientErr = scrape.New(cfg, logging.NewNop())
	})
	return c.client, c.clientErr
}

func (c *commandContext) ensurePool() *pool.Pool {
	c.poolOnce.Do(func() {
		cfg := c.config
		size, depth := 4, 8
		if cfg != nil {
			size, depth = cfg.Workers.PoolSize, cfg.Workers.QueueDepth
		}
		c.pool = pool.New(size, depth)
	})
	return c.pool
}

func (c *commandContext) close() {
	if c.store != nil {
		c.store.Close() //nolint:errcheck
	}
}
