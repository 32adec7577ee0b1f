package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
)

// Open opens a database/sql handle. SQLite parent directories are created on
// demand.
func Open(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case "sqlite3":
		if dir := filepath.Dir(dsn); dir != "." && dsn != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	case "mysql":
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
	database, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return database, nil
}

const historySchema = `
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY,
        run_id VARCHAR(20) NOT NULL UNIQUE,
        model_name VARCHAR(50),
        initialized_at VARCHAR(19),
        accuracy REAL,
        data_points INTEGER,
        elapsed_ms INTEGER,
        trained_at DATETIME
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY,
        request_id VARCHAR(64),
        model_initialized_at VARCHAR(19),
        level REAL,
        health REAL,
        energy REAL,
        sanity REAL,
        predicted_label VARCHAR(20),
        confidence REAL,
        timestamp DATETIME
    );
    `

// History records training runs and served predictions in SQLite.
type History struct {
	database *sql.DB
}

func NewHistory(path string) (*History, error) {
	database, err := Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := database.Exec(historySchema); err != nil {
		database.Close()
		return nil, fmt.Errorf("create history tables: %w", err)
	}
	return &History{database: database}, nil
}

func (h *History) Close() error {
	return h.database.Close()
}

type TrainingLog struct {
	RunID         string    `json:"run_id"`
	ModelName     string    `json:"model_name"`
	InitializedAt string    `json:"initialized_at"`
	Accuracy      float64   `json:"accuracy"`
	DataPoints    int       `json:"data_points"`
	ElapsedMS     int64     `json:"elapsed_ms"`
	TrainedAt     time.Time `json:"trained_at"`
}

// LogTraining stores one run and returns its generated run id.
func (h *History) LogTraining(ctx context.Context, entry TrainingLog) (string, error) {
	if h == nil || h.database == nil {
		return "", errors.New("database not initialized")
	}
	if entry.RunID == "" {
		entry.RunID = xid.New().String()
	}
	if entry.TrainedAt.IsZero() {
		entry.TrainedAt = time.Now().UTC()
	}
	_, err := h.database.ExecContext(ctx, `
        INSERT INTO training_log (
            run_id, model_name, initialized_at, accuracy, data_points, elapsed_ms, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID, entry.ModelName, entry.InitializedAt, entry.Accuracy,
		entry.DataPoints, entry.ElapsedMS, entry.TrainedAt)
	if err != nil {
		return "", err
	}
	return entry.RunID, nil
}

// LoadTrainingLog returns the newest runs first.
func (h *History) LoadTrainingLog(ctx context.Context, limit int) ([]TrainingLog, error) {
	if h == nil || h.database == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := h.database.QueryContext(ctx, `
        SELECT run_id, model_name, initialized_at, accuracy, data_points, elapsed_ms, trained_at
        FROM training_log
        ORDER BY trained_at DESC, id DESC
        LIMIT ?`, limitOrDefault(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.RunID, &log.ModelName, &log.InitializedAt, &log.Accuracy,
			&log.DataPoints, &log.ElapsedMS, &log.TrainedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

type PredictionRecord struct {
	RequestID          string    `json:"request_id,omitempty"`
	ModelInitializedAt string    `json:"model_initialized_at"`
	Level              float64   `json:"level"`
	Health             float64   `json:"health"`
	Energy             float64   `json:"energy"`
	Sanity             float64   `json:"sanity"`
	Label              string    `json:"label"`
	Confidence         float64   `json:"confidence"`
	Timestamp          time.Time `json:"timestamp"`
}

func (h *History) SavePrediction(ctx context.Context, rec PredictionRecord) error {
	if h == nil || h.database == nil {
		return errors.New("database not initialized")
	}
	if rec.Label == "" {
		return errors.New("label required")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	_, err := h.database.ExecContext(ctx, `
        INSERT INTO predictions (
            request_id, model_initialized_at, level, health, energy, sanity,
            predicted_label, confidence, timestamp
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.ModelInitializedAt, rec.Level, rec.Health, rec.Energy, rec.Sanity,
		rec.Label, rec.Confidence, rec.Timestamp)
	return err
}

func (h *History) RecentPredictions(ctx context.Context, limit int) ([]PredictionRecord, error) {
	if h == nil || h.database == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := h.database.QueryContext(ctx, `
        SELECT request_id, model_initialized_at, level, health, energy, sanity,
               predicted_label, confidence, timestamp
        FROM predictions
        ORDER BY timestamp DESC, id DESC
        LIMIT ?`, limitOrDefault(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var rec PredictionRecord
		if err := rows.Scan(&rec.RequestID, &rec.ModelInitializedAt, &rec.Level, &rec.Health,
			&rec.Energy, &rec.Sanity, &rec.Label, &rec.Confidence, &rec.Timestamp); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
