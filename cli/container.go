package cli

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"monsterlab/cache"
	"monsterlab/config"
	"monsterlab/dataset"
	"monsterlab/db"
	apphttp "monsterlab/http"
	"monsterlab/logging"
	"monsterlab/ml"
	"monsterlab/monitoring"
	"monsterlab/monster"
	"monsterlab/pipeline"
	"monsterlab/store"
)

// connectTimeout 连接数据源的总超时
const connectTimeout = 30 * time.Second

// buildContainer 注册所有组件；组件在第一次Invoke时才创建
func buildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.Load(configPath)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(cfg *config.Config) (*zap.Logger, error) {
		if verbose {
			return logging.Console(true), nil
		}
		return logging.New(cfg.Log)
	}); err != nil {
		return nil, err
	}

	// Register closers
	if err := container.Provide(func() *closers { return &closers{} }); err != nil {
		return nil, err
	}

	// Register monster store
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger, cl *closers) (store.Store, error) {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		s, err := store.New(ctx, cfg.Store, logger)
		if err != nil {
			return nil, err
		}
		cl.add(s)
		return s, nil
	}); err != nil {
		return nil, err
	}

	// Register prediction cache
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger, cl *closers) (ml.PredictionCache, error) {
		c, err := cache.New(cfg.Cache, logger)
		if err != nil {
			return nil, err
		}
		if closer, ok := c.(io.Closer); ok {
			cl.add(closer)
		}
		return c, nil
	}); err != nil {
		return nil, err
	}

	// Register history database
	if err := container.Provide(func(cfg *config.Config, cl *closers) (*db.History, error) {
		h, err := db.NewHistory(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		cl.add(h)
		return h, nil
	}); err != nil {
		return nil, err
	}

	// Register monitoring
	if err := container.Provide(monitoring.NewMetrics); err != nil {
		return nil, err
	}
	if err := container.Provide(monitoring.NewHub); err != nil {
		return nil, err
	}

	// Register model provider
	if err := container.Provide(func(cfg *config.Config, c ml.PredictionCache, metrics *monitoring.Metrics, logger *zap.Logger) *ml.Provider {
		return ml.NewProvider(ml.ProviderConfig{
			Path:     cfg.Model.Path,
			Options:  trainOptions(cfg.Model),
			Cache:    c,
			Recorder: metrics,
			Logger:   logger,
		})
	}); err != nil {
		return nil, err
	}

	// Register training data source; the store is only connected when a fetch happens
	if err := container.Provide(func() ml.FetchFunc {
		return func(ctx context.Context) (*dataset.Table, error) {
			var table *dataset.Table
			err := container.Invoke(func(s store.Store) (err error) {
				table, err = store.Labeled(ctx, s)
				return err
			})
			return table, err
		}
	}); err != nil {
		return nil, err
	}

	// Register trainer
	if err := container.Provide(func(cfg *config.Config, fetch ml.FetchFunc, p *ml.Provider, h *db.History, logger *zap.Logger) *pipeline.Trainer {
		return &pipeline.Trainer{
			Fetch:     fetch,
			Provider:  p,
			History:   h,
			Options:   trainOptions(cfg.Model),
			TestRatio: 0.2,
			Seed:      cfg.Model.Seed,
			Logger:    logger,
		}
	}); err != nil {
		return nil, err
	}

	// Register retrain scheduler
	if err := container.Provide(func(cfg *config.Config, t *pipeline.Trainer, logger *zap.Logger) *pipeline.Scheduler {
		return pipeline.NewScheduler(cfg.Model.RetrainInterval, t, logger)
	}); err != nil {
		return nil, err
	}

	// Register web application
	if err := container.Provide(func(s store.Store, p *ml.Provider, t *pipeline.Trainer, sched *pipeline.Scheduler,
		h *db.History, hub *monitoring.Hub, metrics *monitoring.Metrics, logger *zap.Logger) *apphttp.App {
		return &apphttp.App{
			Store:     s,
			Provider:  p,
			Trainer:   t,
			Scheduler: sched,
			History:   h,
			Hub:       hub,
			Metrics:   metrics,
			Generator: monster.NewGenerator(0),
			Logger:    logger,
		}
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// trainOptions 配置为零值时使用模型默认值
func trainOptions(cfg config.ModelConfig) []ml.TrainOption {
	var opts []ml.TrainOption
	if cfg.Trees > 0 {
		opts = append(opts, ml.WithTrees(cfg.Trees))
	}
	if cfg.MaxDepth > 0 {
		opts = append(opts, ml.WithMaxDepth(cfg.MaxDepth))
	}
	if cfg.Seed != 0 {
		opts = append(opts, ml.WithSeed(cfg.Seed))
	}
	return opts
}

// closers 已创建的需要关闭的组件，按创建的逆序关闭
type closers struct {
	mu  sync.Mutex
	all []io.Closer
}

func (c *closers) add(closer io.Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.all = append(c.all, closer)
}

func (c *closers) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for i := len(c.all) - 1; i >= 0; i-- {
		if err := c.all[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.all = nil
	return errors.Join(errs...)
}

// invoke 构建容器、执行fn，并关闭执行过程中打开的组件
func invoke(fn interface{}) error {
	container, err := buildContainer()
	if err != nil {
		return err
	}
	runErr := container.Invoke(fn)
	closeErr := container.Invoke(func(cl *closers) error { return cl.close() })
	return errors.Join(runErr, closeErr)
}
