package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"monsterlab/dataset"
)

// SplitTable shuffles rows with the given seed and holds out testRatio of
// them. Ratios outside (0, 1) fall back to 0.2.
func SplitTable(table *dataset.Table, testRatio float64, seed int64) (train, test *dataset.Table) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(table.Len())

	split := int(math.Round(float64(table.Len()) * (1 - testRatio)))
	train = &dataset.Table{Columns: table.Columns}
	test = &dataset.Table{Columns: table.Columns}
	for i, idx := range indices {
		if i < split {
			train.Rows = append(train.Rows, table.Rows[idx])
		} else {
			test.Rows = append(test.Rows, table.Rows[idx])
		}
	}
	return train, test
}

// Holdout fits a throwaway machine on a seeded split and scores it on the
// held-out rows.
func Holdout(table *dataset.Table, testRatio float64, seed int64, opts ...TrainOption) (float64, error) {
	train, test := SplitTable(table, testRatio, seed)
	if train.Len() == 0 || test.Len() == 0 {
		return 0, fmt.Errorf("holdout needs rows on both sides of the split, got %d/%d", train.Len(), test.Len())
	}
	m, err := Train(train, opts...)
	if err != nil {
		return 0, err
	}
	return Accuracy(m, test)
}

// Accuracy is the share of labeled rows the machine predicts correctly.
func Accuracy(m *Machine, table *dataset.Table) (float64, error) {
	if table.Len() == 0 {
		return 0, errors.New("table is empty")
	}
	if !table.HasColumn(LabelColumn) {
		return 0, ErrMissingLabel
	}
	features := table.Drop(LabelColumn)

	correct := 0
	for i, row := range features.Rows {
		prediction, err := m.Predict(row)
		if err != nil {
			return 0, err
		}
		if prediction.Label == dataset.ToString(table.Rows[i][LabelColumn]) {
			correct++
		}
	}
	return float64(correct) / float64(table.Len()), nil
}
