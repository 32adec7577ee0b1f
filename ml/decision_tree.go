package ml

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

const minSamplesSplit = 2

type DecisionTree struct {
	Nodes       []TreeNode
	NumClasses  int
	NumFeatures int
	MaxDepth    int
	MaxFeatures int
	Seed        int64
}

type TreeNode struct {
	FeatureIdx   int
	Threshold    float64
	LeftChild    int
	RightChild   int
	Distribution []float64
	IsLeaf       bool
}

// NewDecisionTree returns an untrained CART tree. maxDepth <= 0 grows until
// leaves are pure; maxFeatures <= 0 considers every feature at each split.
func NewDecisionTree(maxDepth, maxFeatures int, seed int64) *DecisionTree {
	return &DecisionTree{MaxDepth: maxDepth, MaxFeatures: maxFeatures, Seed: seed}
}

func (dt *DecisionTree) Train(features [][]float64, labels []int, numClasses int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if len(features[0]) == 0 {
		return ErrNoFeatures
	}
	if numClasses <= 0 {
		return errors.New("numClasses must be positive")
	}
	for _, label := range labels {
		if label < 0 || label >= numClasses {
			return errors.New("label out of range")
		}
	}

	dt.Nodes = nil
	dt.NumClasses = numClasses
	dt.NumFeatures = len(features[0])

	var rnd *rand.Rand
	if dt.MaxFeatures > 0 && dt.MaxFeatures < dt.NumFeatures {
		rnd = rand.New(rand.NewSource(dt.Seed))
	}
	dt.grow(features, labels, 0, rnd)
	return nil
}

func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	node, err := dt.leaf(features)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), node.Distribution...), nil
}

func (dt *DecisionTree) Classes() int {
	return dt.NumClasses
}

func (dt *DecisionTree) leaf(features []float64) (*TreeNode, error) {
	if len(dt.Nodes) == 0 {
		return nil, ErrNotTrained
	}
	if len(features) != dt.NumFeatures {
		return nil, errors.New("feature vector length mismatch")
	}
	idx := 0
	for {
		node := &dt.Nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return nil, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.Nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
}

// grow appends the subtree for the given samples and returns its root index.
func (dt *DecisionTree) grow(features [][]float64, labels []int, depth int, rnd *rand.Rand) int {
	idx := len(dt.Nodes)
	counts := classCounts(labels, dt.NumClasses)

	if (dt.MaxDepth > 0 && depth >= dt.MaxDepth) || len(labels) < minSamplesSplit || isPure(labels) {
		dt.Nodes = append(dt.Nodes, leafNode(counts, len(labels)))
		return idx
	}

	bestFeature, threshold, ok := dt.findBestSplit(features, labels, rnd)
	if !ok {
		dt.Nodes = append(dt.Nodes, leafNode(counts, len(labels)))
		return idx
	}

	leftFeatures, leftLabels, rightFeatures, rightLabels := splitData(features, labels, bestFeature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		dt.Nodes = append(dt.Nodes, leafNode(counts, len(labels)))
		return idx
	}

	dt.Nodes = append(dt.Nodes, TreeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
	})
	left := dt.grow(leftFeatures, leftLabels, depth+1, rnd)
	right := dt.grow(rightFeatures, rightLabels, depth+1, rnd)
	dt.Nodes[idx].LeftChild = left
	dt.Nodes[idx].RightChild = right
	return idx
}

func leafNode(counts []int, total int) TreeNode {
	dist := make([]float64, len(counts))
	for i, c := range counts {
		dist[i] = float64(c) / float64(total)
	}
	return TreeNode{
		FeatureIdx:   -1,
		LeftChild:    -1,
		RightChild:   -1,
		Distribution: dist,
		IsLeaf:       true,
	}
}

// findBestSplit scans candidate features in random order. At least
// MaxFeatures features are examined; the scan continues past that only while
// no valid split has been found.
func (dt *DecisionTree) findBestSplit(features [][]float64, labels []int, rnd *rand.Rand) (int, float64, bool) {
	order := make([]int, dt.NumFeatures)
	for i := range order {
		order[i] = i
	}
	limit := dt.NumFeatures
	if rnd != nil {
		rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		limit = dt.MaxFeatures
	}

	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for n, featureIdx := range order {
		if n >= limit && bestFeature != -1 {
			break
		}
		threshold, impurity, ok := bestThresholdFor(features, labels, featureIdx, dt.NumClasses)
		if !ok {
			continue
		}
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = featureIdx
			bestThreshold = threshold
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

// bestThresholdFor sweeps the sorted values of one feature and returns the
// midpoint threshold with the lowest weighted Gini impurity.
func bestThresholdFor(features [][]float64, labels []int, featureIdx, numClasses int) (float64, float64, bool) {
	order := make([]int, len(features))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return features[order[a]][featureIdx] < features[order[b]][featureIdx]
	})

	total := len(labels)
	left := make([]int, numClasses)
	right := classCounts(labels, numClasses)

	bestImpurity := math.MaxFloat64
	bestThreshold := 0.0
	found := false
	for i := 0; i < total-1; i++ {
		sample := order[i]
		left[labels[sample]]++
		right[labels[sample]]--

		current := features[sample][featureIdx]
		next := features[order[i+1]][featureIdx]
		if current == next {
			continue
		}
		nLeft := i + 1
		nRight := total - nLeft
		impurity := (float64(nLeft)*gini(left, nLeft) + float64(nRight)*gini(right, nRight)) / float64(total)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestThreshold = current + (next-current)/2
			found = true
		}
	}
	return bestThreshold, bestImpurity, found
}

func splitData(features [][]float64, labels []int, featureIdx int, threshold float64) ([][]float64, []int, [][]float64, []int) {
	leftFeatures := make([][]float64, 0)
	leftLabels := make([]int, 0)
	rightFeatures := make([][]float64, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, feature)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightFeatures = append(rightFeatures, feature)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftFeatures, leftLabels, rightFeatures, rightLabels
}

func gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(total)
		impurity -= prob * prob
	}
	return impurity
}

func classCounts(labels []int, numClasses int) []int {
	counts := make([]int, numClasses)
	for _, label := range labels {
		counts[label]++
	}
	return counts
}

// argmax picks the lowest index on ties.
func argmax[T int | float64](values []T) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func isPure(labels []int) bool {
	if len(labels) == 0 {
		return true
	}
	first := labels[0]
	for _, label := range labels[1:] {
		if label != first {
			return false
		}
	}
	return true
}
