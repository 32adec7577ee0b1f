package ml

import (
	"errors"
	"testing"
)

// mostLikely returns the argmax class of c for x and its probability.
func mostLikely(t *testing.T, c Classifier, x []float64) (int, float64) {
	t.Helper()
	proba, err := c.PredictProba(x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	label := argmax(proba)
	return label, proba[label]
}

func TestDecisionTreeTrainPredict(t *testing.T) {
	features := [][]float64{
		{0.1, 0.2},
		{0.2, 0.1},
		{0.9, 0.8},
		{0.8, 0.9},
	}
	labels := []int{0, 0, 2, 2}

	model := NewDecisionTree(2, 0, 1)
	if err := model.Train(features, labels, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	label, confidence := mostLikely(t, model, []float64{0.15, 0.15})
	if label != 0 {
		t.Fatalf("expected label 0, got %d", label)
	}
	if confidence != 1 {
		t.Fatalf("expected confidence 1 on a pure leaf, got %f", confidence)
	}

	if label, _ = mostLikely(t, model, []float64{0.85, 0.85}); label != 2 {
		t.Fatalf("expected label 2, got %d", label)
	}
}

func TestDecisionTreeDistributionSumsToOne(t *testing.T) {
	features := [][]float64{{1}, {1}, {1}, {2}}
	labels := []int{0, 1, 1, 0}

	model := NewDecisionTree(1, 0, 1)
	if err := model.Train(features, labels, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	proba, err := model.PredictProba([]float64{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sum := proba[0] + proba[1]
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("expected probabilities to sum to 1, got %v", proba)
	}
	if proba[1] <= proba[0] {
		t.Fatalf("expected class 1 to dominate the left leaf, got %v", proba)
	}
}

func TestDecisionTreeErrors(t *testing.T) {
	model := NewDecisionTree(0, 0, 1)
	if _, err := model.PredictProba([]float64{1}); !errors.Is(err, ErrNotTrained) {
		t.Fatalf("expected ErrNotTrained, got %v", err)
	}
	if err := model.Train([][]float64{{1}}, []int{0, 1}, 2); err == nil {
		t.Fatal("expected size mismatch error")
	}
	if err := model.Train([][]float64{{}}, []int{0}, 1); !errors.Is(err, ErrNoFeatures) {
		t.Fatalf("expected ErrNoFeatures, got %v", err)
	}
	if err := model.Train([][]float64{{1}, {2}}, []int{0, 1}, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := model.PredictProba([]float64{1, 2}); err == nil {
		t.Fatal("expected vector length error")
	}
}
