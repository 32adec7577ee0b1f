package ml

import "testing"

func TestRandomForestSeparableClasses(t *testing.T) {
	var features [][]float64
	var labels []int
	for i := 0; i < 30; i++ {
		v := float64(i)
		features = append(features, []float64{v, 100 - v})
		if i < 15 {
			labels = append(labels, 0)
		} else {
			labels = append(labels, 1)
		}
	}

	forest := NewRandomForest(25, 0, 7)
	if err := forest.Train(features, labels, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(forest.Trees) != 25 {
		t.Fatalf("expected 25 trees, got %d", len(forest.Trees))
	}

	label, confidence := mostLikely(t, forest, []float64{2, 98})
	if label != 0 || confidence < 0.5 {
		t.Fatalf("expected class 0 with majority vote, got %d (%f)", label, confidence)
	}
	if label, _ = mostLikely(t, forest, []float64{28, 72}); label != 1 {
		t.Fatalf("expected class 1, got %d", label)
	}
}

func TestRandomForestSameSeedSameModel(t *testing.T) {
	features := [][]float64{{1, 5}, {2, 4}, {3, 3}, {4, 2}, {5, 1}, {6, 0}}
	labels := []int{0, 0, 1, 1, 2, 2}

	a := NewRandomForest(10, 0, 42)
	b := NewRandomForest(10, 0, 42)
	if err := a.Train(features, labels, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Train(features, labels, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, x := range [][]float64{{1, 5}, {3.5, 2.5}, {6, 0}} {
		pa, _ := a.PredictProba(x)
		pb, _ := b.PredictProba(x)
		for i := range pa {
			if pa[i] != pb[i] {
				t.Fatalf("probabilities differ for %v: %v vs %v", x, pa, pb)
			}
		}
	}
}

func TestRandomForestDefaults(t *testing.T) {
	forest := NewRandomForest(0, 0, 1)
	if forest.NumTrees != DefaultTrees {
		t.Fatalf("expected %d trees by default, got %d", DefaultTrees, forest.NumTrees)
	}
	if _, err := forest.PredictProba([]float64{1}); err != ErrNotTrained {
		t.Fatalf("expected ErrNotTrained, got %v", err)
	}
}
