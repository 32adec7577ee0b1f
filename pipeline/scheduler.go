package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Runner 一次训练
type Runner interface {
	Run(ctx context.Context) (TrainingReport, error)
}

// Scheduler 定时重训调度器
type Scheduler struct {
	mu             sync.RWMutex
	interval       time.Duration
	runTimeout     time.Duration
	running        bool
	lastExecution  time.Time
	executionCount int64
	failures       int64
	lastError      string
	lastReport     *TrainingReport

	runner Runner
	logger *zap.Logger
}

// SchedulerStats 调度器统计
type SchedulerStats struct {
	Running        bool            `json:"running"`
	Interval       string          `json:"interval"`
	LastExecution  time.Time       `json:"last_execution,omitempty"`
	ExecutionCount int64           `json:"execution_count"`
	Failures       int64           `json:"failures"`
	LastError      string          `json:"last_error,omitempty"`
	LastReport     *TrainingReport `json:"last_report,omitempty"`
}

// NewScheduler 创建调度器；每次训练最长运行interval
func NewScheduler(interval time.Duration, runner Runner, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		interval:   interval,
		runTimeout: interval,
		runner:     runner,
		logger:     logger,
	}
}

// Run 按间隔执行训练直到ctx取消。interval<=0时立即返回。
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return nil
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info("Retrain scheduler started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Retrain scheduler stopped")
			return nil
		case <-ticker.C:
			s.executeCycle(ctx)
		}
	}
}

// executeCycle 执行一个调度周期
func (s *Scheduler) executeCycle(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	s.executionCount++
	s.lastExecution = start
	cycle := s.executionCount
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	report, err := s.runner.Run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.failures++
		s.lastError = err.Error()
		s.logger.Warn("Scheduled retrain failed", zap.Int64("cycle", cycle), zap.Error(err))
		return
	}
	s.lastError = ""
	s.lastReport = &report
	s.logger.Info("Scheduled retrain completed",
		zap.Int64("cycle", cycle),
		zap.Int("rows", report.Rows),
		zap.Float64("accuracy", report.Accuracy),
		zap.Duration("duration", time.Since(start)))
}

// Stats 获取调度器统计信息
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := SchedulerStats{
		Running:        s.running,
		Interval:       s.interval.String(),
		LastExecution:  s.lastExecution,
		ExecutionCount: s.executionCount,
		Failures:       s.failures,
		LastError:      s.lastError,
	}
	if s.lastReport != nil {
		report := *s.lastReport
		stats.LastReport = &report
	}
	return stats
}
