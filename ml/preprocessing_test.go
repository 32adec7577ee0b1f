package ml

import (
	"errors"
	"testing"

	"monsterlab/dataset"
)

func TestFeatureEncoderEncode(t *testing.T) {
	table := dataset.NewTable([]string{"Level", "Type"}, []dataset.Row{
		{"Level": 3, "Type": "Ghost"},
		{"Level": 9, "Type": "Dragon"},
		{"Level": 4, "Type": "Ghost"},
	})
	schema := dataset.InferSchema(table)
	encoder := NewFeatureEncoder(schema, table)

	vector, err := encoder.Encode(dataset.Row{"Level": "7", "Type": "Ghost"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vector[0] != 7 {
		t.Fatalf("expected level 7, got %v", vector[0])
	}
	// vocabulary is sorted: Dragon=0, Ghost=1
	if vector[1] != 1 {
		t.Fatalf("expected Ghost to encode as 1, got %v", vector[1])
	}

	vector, err = encoder.Encode(dataset.Row{"Level": 1, "Type": "Slime"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vector[1] != -1 {
		t.Fatalf("expected unseen category to encode as -1, got %v", vector[1])
	}

	if _, err := encoder.Encode(dataset.Row{"Level": 1}); !errors.Is(err, dataset.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestEncodeLabels(t *testing.T) {
	labels, classes, err := encodeLabels([]any{"Rank 2", "Rank 0", "Rank 2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(classes) != 2 || classes[0] != "Rank 0" || classes[1] != "Rank 2" {
		t.Fatalf("unexpected classes: %v", classes)
	}
	if labels[0] != 1 || labels[1] != 0 || labels[2] != 1 {
		t.Fatalf("unexpected labels: %v", labels)
	}

	if _, _, err := encodeLabels([]any{"Rank 1", nil}); !errors.Is(err, ErrMissingLabel) {
		t.Fatalf("expected ErrMissingLabel, got %v", err)
	}
}
