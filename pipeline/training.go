package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"monsterlab/dataset"
	"monsterlab/db"
	"monsterlab/ml"
)

// TrainingLogger 训练记录
type TrainingLogger interface {
	LogTraining(ctx context.Context, entry db.TrainingLog) (string, error)
}

// TrainingReport 一次训练的结果
type TrainingReport struct {
	RunID         string  `json:"run_id,omitempty"`
	Description   string  `json:"description"`
	Model         string  `json:"model"`
	InitializedAt string  `json:"initialized_at"`
	Rows          int     `json:"rows"`
	Accuracy      float64 `json:"accuracy"`
	Evaluated     bool    `json:"evaluated"`
	Elapsed       string  `json:"elapsed"`
}

// Trainer 取数、评估、重训并记录
type Trainer struct {
	Fetch     ml.FetchFunc
	Provider  *ml.Provider
	History   TrainingLogger
	Options   []ml.TrainOption
	TestRatio float64
	Seed      int64
	Logger    *zap.Logger
}

// minHoldoutRows 少于此行数时跳过留出评估
const minHoldoutRows = 10

// Run 留出集准确率只用于报告；最终模型在全部数据上训练
func (t *Trainer) Run(ctx context.Context) (TrainingReport, error) {
	logger := t.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	table, err := t.Fetch(ctx)
	if err != nil {
		return TrainingReport{}, fmt.Errorf("fetch training data: %w", err)
	}

	report := TrainingReport{Rows: table.Len()}
	if table.Len() >= minHoldoutRows {
		acc, err := ml.Holdout(table, t.TestRatio, t.seed(), t.Options...)
		if err != nil {
			logger.Warn("Holdout evaluation failed", zap.Error(err))
		} else {
			report.Accuracy = acc
			report.Evaluated = true
		}
	}

	start := time.Now()
	m, err := t.Provider.Retrain(ctx, table)
	if err != nil {
		return TrainingReport{}, err
	}
	elapsed := time.Since(start)

	report.Description = m.Describe()
	report.Model = m.Name()
	report.InitializedAt = m.InitializedAt()
	report.Elapsed = elapsed.String()

	if t.History != nil {
		runID, err := t.History.LogTraining(ctx, db.TrainingLog{
			ModelName:     m.Name(),
			InitializedAt: m.InitializedAt(),
			Accuracy:      report.Accuracy,
			DataPoints:    table.Len(),
			ElapsedMS:     elapsed.Milliseconds(),
		})
		if err != nil {
			logger.Warn("Failed to record training run", zap.Error(err))
		}
		report.RunID = runID
	}
	return report, nil
}

func (t *Trainer) seed() int64 {
	if t.Seed != 0 {
		return t.Seed
	}
	return time.Now().UnixNano()
}

// StaticTable 固定数据表的FetchFunc
func StaticTable(table *dataset.Table) ml.FetchFunc {
	return func(context.Context) (*dataset.Table, error) {
		return table, nil
	}
}
