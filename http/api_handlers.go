// Package http 提供API处理器
package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"monsterlab/chart"
	"monsterlab/dataset"
	"monsterlab/db"
	"monsterlab/ml"
	"monsterlab/monster"
)

// RegisterAPIHandlers 注册所有API处理器
func RegisterAPIHandlers(mux *http.ServeMux, app *App) {
	mux.HandleFunc("GET /api/health", app.handleHealth)

	// 数据API
	mux.HandleFunc("GET /api/monsters/count", app.handleMonsterCount)
	mux.HandleFunc("GET /api/monsters", app.handleMonsters)
	mux.HandleFunc("GET /api/chart", app.handleChart)

	// 模型API
	mux.HandleFunc("POST /api/predict", app.handlePredict)
	mux.HandleFunc("GET /api/model", app.handleModelInfo)
	mux.HandleFunc("POST /api/model/train", app.handleTrain)

	// 历史API
	mux.HandleFunc("GET /api/training/log", app.handleTrainingLog)
	mux.HandleFunc("GET /api/predictions", app.handlePredictions)

	// 实时推送与指标
	if app.Hub != nil {
		mux.HandleFunc("GET /api/ws/model", app.Hub.HandleWebSocket)
	}
	if app.Metrics != nil {
		mux.Handle("GET /metrics", app.Metrics.Handler())
	}
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{"status": "ok", "model": "untrained"}
	if m, err := a.Provider.Machine(); err == nil {
		status["model"] = m.Describe()
	}
	if a.Scheduler != nil {
		status["retrain"] = a.Scheduler.Stats()
	}
	respondJSON(w, http.StatusOK, status)
}

// ============ 数据处理器 ============

func (a *App) handleMonsterCount(w http.ResponseWriter, r *http.Request) {
	count, err := a.Store.Count(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if a.Metrics != nil {
		a.Metrics.SetDatasetRows(count)
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (a *App) handleMonsters(w http.ResponseWriter, r *http.Request) {
	table, err := a.Store.Table(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	rows := table.Rows
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"columns": table.Columns,
		"rows":    rows,
		"total":   table.Len(),
	})
}

func (a *App) handleChart(w http.ResponseWriter, r *http.Request) {
	x, y, target := chartAxes(r, "x", "y", "target")
	table, err := a.Store.Table(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	spec, err := chart.Build(table, x, y, target)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, spec)
}

// ============ 模型处理器 ============

// PredictRequest 预测请求
type PredictRequest struct {
	Level  int     `json:"level"`
	Health float64 `json:"health"`
	Energy float64 `json:"energy"`
	Sanity float64 `json:"sanity"`
}

// PredictResponse 预测结果
type PredictResponse struct {
	Label         string  `json:"label"`
	Confidence    float64 `json:"confidence"`
	Display       string  `json:"display"`
	Model         string  `json:"model"`
	InitializedAt string  `json:"initialized_at"`
	RequestID     string  `json:"request_id,omitempty"`
}

func (a *App) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if req.Level < monster.MinLevel || req.Level > monster.MaxLevel {
		respondError(w, fmt.Errorf("%w: level must be between %d and %d", errBadRequest, monster.MinLevel, monster.MaxLevel))
		return
	}

	// 只使用已有模型，不在请求中训练
	m, err := a.Provider.Machine()
	if err != nil {
		respondError(w, err)
		return
	}
	row := dataset.Row{
		"Level":  req.Level,
		"Health": req.Health,
		"Energy": req.Energy,
		"Sanity": req.Sanity,
	}
	prediction, err := a.Provider.Predict(r.Context(), row)
	if err != nil {
		respondError(w, err)
		return
	}
	a.recordPrediction(r, m.InitializedAt(), row, prediction)

	respondJSON(w, http.StatusOK, PredictResponse{
		Label:         prediction.Label,
		Confidence:    prediction.Confidence,
		Display:       formatPercent(prediction.Confidence),
		Model:         m.Name(),
		InitializedAt: m.InitializedAt(),
		RequestID:     GetRequestID(r.Context()),
	})
}

func (a *App) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	m, err := a.Provider.Machine()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"description":    m.Describe(),
		"model":          m.Name(),
		"initialized_at": m.InitializedAt(),
		"features":       m.Schema().Names(),
		"classes":        m.Classes(),
		"path":           a.Provider.Path(),
	})
}

func (a *App) handleTrain(w http.ResponseWriter, r *http.Request) {
	if a.Trainer == nil {
		respondError(w, fmt.Errorf("%w: trainer", errUnavailable))
		return
	}
	report, err := a.Trainer.Run(r.Context())
	if err != nil {
		a.logger().Error("Training failed", zap.Error(err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// ============ 历史处理器 ============

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}

func (a *App) handleTrainingLog(w http.ResponseWriter, r *http.Request) {
	if a.History == nil {
		respondError(w, fmt.Errorf("%w: history", errUnavailable))
		return
	}
	logs, err := a.History.LoadTrainingLog(r.Context(), queryLimit(r))
	if err != nil {
		respondError(w, err)
		return
	}
	if logs == nil {
		logs = []db.TrainingLog{}
	}
	respondJSON(w, http.StatusOK, logs)
}

func (a *App) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if a.History == nil {
		respondError(w, fmt.Errorf("%w: history", errUnavailable))
		return
	}
	records, err := a.History.RecentPredictions(r.Context(), queryLimit(r))
	if err != nil {
		respondError(w, err)
		return
	}
	if records == nil {
		records = []db.PredictionRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

// recordPrediction 写入预测历史；失败只记录日志
func (a *App) recordPrediction(r *http.Request, initializedAt string, row dataset.Row, p ml.Prediction) {
	if a.History == nil {
		return
	}
	rec := db.PredictionRecord{
		RequestID:          GetRequestID(r.Context()),
		ModelInitializedAt: initializedAt,
		Label:              p.Label,
		Confidence:         p.Confidence,
		Timestamp:          time.Now(),
	}
	rec.Level, _ = dataset.ToFloat(row["Level"])
	rec.Health, _ = dataset.ToFloat(row["Health"])
	rec.Energy, _ = dataset.ToFloat(row["Energy"])
	rec.Sanity, _ = dataset.ToFloat(row["Sanity"])
	if err := a.History.SavePrediction(r.Context(), rec); err != nil {
		a.logger().Warn("Failed to save prediction", zap.Error(err))
	}
}
