package ml

import (
	"testing"

	"monsterlab/dataset"
)

func TestSplitTable(t *testing.T) {
	table := scenarioTable(10)
	train, test := SplitTable(table, 0.2, 3)
	if train.Len()+test.Len() != table.Len() {
		t.Fatalf("split lost rows: %d + %d != %d", train.Len(), test.Len(), table.Len())
	}
	if test.Len() != table.Len()/5 {
		t.Fatalf("expected %d test rows, got %d", table.Len()/5, test.Len())
	}

	again, _ := SplitTable(table, 0.2, 3)
	for i := range train.Rows {
		if train.Rows[i]["Level"] != again.Rows[i]["Level"] || train.Rows[i]["Rarity"] != again.Rows[i]["Rarity"] {
			t.Fatal("expected identical splits for the same seed")
		}
	}
}

func TestAccuracy(t *testing.T) {
	table := scenarioTable(8)
	m, err := Train(table, WithTrees(15), WithSeed(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	acc, err := Accuracy(m, table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acc < 0.9 {
		t.Fatalf("expected near-perfect training accuracy on separable data, got %f", acc)
	}

	if _, err := Accuracy(m, &dataset.Table{Columns: table.Columns}); err == nil {
		t.Fatal("expected error for empty table")
	}
}

func TestHoldout(t *testing.T) {
	acc, err := Holdout(scenarioTable(10), 0.2, 4, WithTrees(10), WithSeed(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acc < 0.8 {
		t.Fatalf("expected high holdout accuracy on separable data, got %f", acc)
	}

	if _, err := Holdout(scenarioTable(1).Drop("Level"), 0.2, 4); err != nil {
		t.Fatalf("three rows should still split, got %v", err)
	}
}
