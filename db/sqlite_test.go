package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"monsterlab/monster"
)

func TestHistoryTrainingLog(t *testing.T) {
	h, err := NewHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer h.Close()
	ctx := context.Background()

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := h.LogTraining(ctx, TrainingLog{ModelName: "Random Forest Classifier", InitializedAt: "2024-01-01 00:00:00", Accuracy: 0.8, DataPoints: 100, TrainedAt: older}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	runID, err := h.LogTraining(ctx, TrainingLog{ModelName: "Random Forest Classifier", InitializedAt: "2024-02-01 00:00:00", Accuracy: 0.9, DataPoints: 120, TrainedAt: older.AddDate(0, 1, 0)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runID == "" {
		t.Fatal("expected generated run id")
	}

	logs, err := h.LoadTrainingLog(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(logs))
	}
	if logs[0].RunID != runID || logs[0].DataPoints != 120 {
		t.Fatalf("expected newest run first, got %+v", logs[0])
	}
}

func TestHistoryPredictions(t *testing.T) {
	h, err := NewHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer h.Close()
	ctx := context.Background()

	if err := h.SavePrediction(ctx, PredictionRecord{Level: 5, Health: 80}); err == nil {
		t.Fatal("expected error for record without label")
	}
	rec := PredictionRecord{RequestID: "req-1", Level: 5, Health: 80, Energy: 40, Sanity: 60, Label: "Rank 0", Confidence: 0.72}
	if err := h.SavePrediction(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := h.RecentPredictions(ctx, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Label != "Rank 0" || records[0].RequestID != "req-1" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestMonsterStoreSQLite(t *testing.T) {
	s, err := NewMonsterStore("sqlite3", filepath.Join(t.TempDir(), "nested", "monsters.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	n, err := s.Count(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected empty store, got %d (%v)", n, err)
	}

	monsters := monster.NewGenerator(5).Batch(12)
	inserted, err := s.Insert(ctx, monsters)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted != 12 {
		t.Fatalf("expected 12 inserted, got %d", inserted)
	}

	table, err := s.Table(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != 12 {
		t.Fatalf("expected 12 rows, got %d", table.Len())
	}
	if table.Rows[0]["_id"] != "1" {
		t.Fatalf("expected string id, got %v", table.Rows[0]["_id"])
	}
	if table.Rows[3]["Rarity"] != monsters[3].Rarity || table.Rows[3]["Level"] != monsters[3].Level {
		t.Fatalf("row 3 differs from inserted monster: %v", table.Rows[3])
	}
}

func TestMonsterStoreUnsupportedDriver(t *testing.T) {
	if _, err := NewMonsterStore("postgres", "x"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
