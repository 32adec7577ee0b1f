package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"monsterlab/monster"
)

// Inserter 数据写入接口
type Inserter interface {
	Insert(ctx context.Context, monsters []monster.Monster) (int, error)
}

// IngestionConfig 数据摄取配置
type IngestionConfig struct {
	BatchSize int
}

// IngestionStats 摄取统计
type IngestionStats struct {
	Received  int            `json:"received"`
	Inserted  int            `json:"inserted"`
	Rejected  int            `json:"rejected"`
	Batches   int            `json:"batches"`
	Issues    []QualityIssue `json:"issues,omitempty"`
	Completed time.Time      `json:"completed"`
}

// DataIngester 清洗后分批写入
type DataIngester struct {
	config  IngestionConfig
	cleaner *DataCleaner
	store   Inserter
	logger  *zap.Logger
}

func NewDataIngester(config IngestionConfig, store Inserter, logger *zap.Logger) *DataIngester {
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataIngester{
		config:  config,
		cleaner: NewDataCleaner(),
		store:   store,
		logger:  logger,
	}
}

// Ingest 写入失败时返回已写入的统计和错误
func (di *DataIngester) Ingest(ctx context.Context, monsters []monster.Monster) (IngestionStats, error) {
	stats := IngestionStats{Received: len(monsters)}

	cleaned, issues := di.cleaner.Clean(monsters)
	stats.Rejected = len(monsters) - len(cleaned)
	stats.Issues = issues
	for _, issue := range issues {
		di.logger.Warn("Rejected monster",
			zap.String("monster", issue.Monster),
			zap.String("rule", issue.Type),
			zap.String("reason", issue.Message))
	}

	for start := 0; start < len(cleaned); start += di.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		end := start + di.config.BatchSize
		if end > len(cleaned) {
			end = len(cleaned)
		}
		n, err := di.store.Insert(ctx, cleaned[start:end])
		stats.Inserted += n
		if err != nil {
			return stats, fmt.Errorf("insert batch %d: %w", stats.Batches+1, err)
		}
		stats.Batches++
	}

	stats.Completed = time.Now()
	di.logger.Info("Ingestion finished",
		zap.Int("received", stats.Received),
		zap.Int("inserted", stats.Inserted),
		zap.Int("rejected", stats.Rejected),
		zap.Int("batches", stats.Batches))
	return stats, nil
}
