package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"monsterlab/chart"
	"monsterlab/dataset"
	"monsterlab/db"
	"monsterlab/ml"
	"monsterlab/monitoring"
	"monsterlab/monster"
	"monsterlab/pipeline"
	"monsterlab/store"
)

// Trainer 重训入口
type Trainer interface {
	Run(ctx context.Context) (pipeline.TrainingReport, error)
}

// HistoryStore 训练与预测历史
type HistoryStore interface {
	LoadTrainingLog(ctx context.Context, limit int) ([]db.TrainingLog, error)
	SavePrediction(ctx context.Context, rec db.PredictionRecord) error
	RecentPredictions(ctx context.Context, limit int) ([]db.PredictionRecord, error)
}

// App 处理器共享的依赖；History、Hub、Metrics、Trainer可以为空
type App struct {
	Store     store.Reader
	Provider  *ml.Provider
	Trainer   Trainer
	Scheduler *pipeline.Scheduler
	History   HistoryStore
	Hub       *monitoring.Hub
	Metrics   *monitoring.Metrics
	Generator *monster.Generator
	Logger    *zap.Logger
}

func (a *App) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

var defaultGenerator = monster.NewGenerator(0)

func (a *App) generator() *monster.Generator {
	if a.Generator == nil {
		return defaultGenerator
	}
	return a.Generator
}

// fetch 模型不存在时的训练数据
func (a *App) fetch(ctx context.Context) (*dataset.Table, error) {
	return store.Labeled(ctx, a.Store)
}

var printer = message.NewPrinter(language.English)

func formatCount(n int) string {
	return printer.Sprintf("%d", n)
}

func formatPercent(confidence float64) string {
	return printer.Sprintf("%.2f%%", confidence*100)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// statusFor 错误到HTTP状态码的映射
func statusFor(err error) int {
	switch {
	case errors.Is(err, dataset.ErrSchemaMismatch),
		errors.Is(err, dataset.ErrUnknownColumn),
		errors.Is(err, chart.ErrUnknownColumn),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ml.ErrNotTrained),
		errors.Is(err, ml.ErrMissingLabel),
		errors.Is(err, ml.ErrNoFeatures),
		errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var (
	errBadRequest  = errors.New("bad request")
	errUnavailable = errors.New("not configured")
)
