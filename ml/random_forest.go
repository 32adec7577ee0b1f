package ml

import (
	"errors"
	"math"
	"math/rand"
)

const DefaultTrees = 100

// RandomForest is a bagged ensemble of DecisionTrees. Class probabilities are
// the mean of the per-tree leaf distributions.
type RandomForest struct {
	Trees       []*DecisionTree
	NumTrees    int
	MaxDepth    int
	Seed        int64
	NumClasses  int
	NumFeatures int
}

func NewRandomForest(numTrees, maxDepth int, seed int64) *RandomForest {
	if numTrees <= 0 {
		numTrees = DefaultTrees
	}
	return &RandomForest{NumTrees: numTrees, MaxDepth: maxDepth, Seed: seed}
}

func (rf *RandomForest) Train(features [][]float64, labels []int, numClasses int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	numFeatures := len(features[0])
	if numFeatures == 0 {
		return ErrNoFeatures
	}

	maxFeatures := int(math.Sqrt(float64(numFeatures)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	rnd := rand.New(rand.NewSource(rf.Seed))
	trees := make([]*DecisionTree, rf.NumTrees)
	sampleX := make([][]float64, len(features))
	sampleY := make([]int, len(labels))
	for t := range trees {
		for i := range sampleX {
			idx := rnd.Intn(len(features))
			sampleX[i] = features[idx]
			sampleY[i] = labels[idx]
		}
		tree := NewDecisionTree(rf.MaxDepth, maxFeatures, rnd.Int63())
		if err := tree.Train(sampleX, sampleY, numClasses); err != nil {
			return err
		}
		trees[t] = tree
	}

	rf.Trees = trees
	rf.NumClasses = numClasses
	rf.NumFeatures = numFeatures
	return nil
}

func (rf *RandomForest) PredictProba(features []float64) ([]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, ErrNotTrained
	}
	proba := make([]float64, rf.NumClasses)
	for _, tree := range rf.Trees {
		dist, err := tree.PredictProba(features)
		if err != nil {
			return nil, err
		}
		for i, p := range dist {
			proba[i] += p
		}
	}
	for i := range proba {
		proba[i] /= float64(len(rf.Trees))
	}
	return proba, nil
}

func (rf *RandomForest) Classes() int {
	return rf.NumClasses
}
