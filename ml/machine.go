package ml

import (
	"errors"
	"fmt"
	"time"

	"monsterlab/dataset"
)

const (
	LabelColumn     = "Rarity"
	ModelName       = "Random Forest Classifier"
	TimestampLayout = "2006-01-02 15:04:05"
)

// Machine is a fitted classifier plus its display name and creation time.
// It is immutable once constructed and safe for concurrent Predict calls.
type Machine struct {
	model         Classifier
	encoder       *FeatureEncoder
	classes       []string
	name          string
	initializedAt string

	// sha256 of the blob this machine was saved to or loaded from
	digest string
}

type trainOptions struct {
	trees    int
	maxDepth int
	seed     int64
	clock    func() time.Time
}

type TrainOption func(*trainOptions)

func WithTrees(n int) TrainOption {
	return func(o *trainOptions) { o.trees = n }
}

func WithMaxDepth(depth int) TrainOption {
	return func(o *trainOptions) { o.maxDepth = depth }
}

func WithSeed(seed int64) TrainOption {
	return func(o *trainOptions) { o.seed = seed }
}

func WithClock(clock func() time.Time) TrainOption {
	return func(o *trainOptions) { o.clock = clock }
}

// Train fits a random forest on every column of table except LabelColumn.
func Train(table *dataset.Table, opts ...TrainOption) (*Machine, error) {
	o := trainOptions{trees: DefaultTrees, clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.seed == 0 {
		o.seed = time.Now().UnixNano()
	}

	if table == nil || !table.HasColumn(LabelColumn) {
		return nil, fmt.Errorf("%w: no %q column", ErrMissingLabel, LabelColumn)
	}
	if table.Len() == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrMissingLabel)
	}
	labelValues, err := table.Column(LabelColumn)
	if err != nil {
		return nil, err
	}
	features := table.Drop(LabelColumn)
	if len(features.Columns) == 0 {
		return nil, ErrNoFeatures
	}

	schema := dataset.InferSchema(features)
	encoder := NewFeatureEncoder(schema, features)
	vectors, err := encoder.EncodeTable(features)
	if err != nil {
		return nil, err
	}
	labels, classes, err := encodeLabels(labelValues)
	if err != nil {
		return nil, err
	}

	forest := NewRandomForest(o.trees, o.maxDepth, o.seed)
	if err := forest.Train(vectors, labels, len(classes)); err != nil {
		return nil, fmt.Errorf("fit random forest: %w", err)
	}

	return Reconstruct(forest, encoder, classes, ModelName, o.clock().Format(TimestampLayout))
}

// Reconstruct assembles a Machine from already-fitted parts. It rejects any
// combination that would leave the machine unable to predict.
func Reconstruct(model Classifier, encoder *FeatureEncoder, classes []string, name, initializedAt string) (*Machine, error) {
	switch {
	case model == nil:
		return nil, errors.New("reconstruct: model is nil")
	case encoder == nil || encoder.Schema.Len() == 0:
		return nil, fmt.Errorf("reconstruct: %w", ErrNoFeatures)
	case len(classes) == 0:
		return nil, errors.New("reconstruct: no classes")
	case model.Classes() != len(classes):
		return nil, fmt.Errorf("reconstruct: model has %d classes, got %d names", model.Classes(), len(classes))
	case name == "":
		return nil, errors.New("reconstruct: empty model name")
	}
	if _, err := time.Parse(TimestampLayout, initializedAt); err != nil {
		return nil, fmt.Errorf("reconstruct: bad timestamp %q: %w", initializedAt, err)
	}
	return &Machine{
		model:         model,
		encoder:       encoder,
		classes:       append([]string(nil), classes...),
		name:          name,
		initializedAt: initializedAt,
	}, nil
}

// Predict returns the most probable label for one feature row and its
// probability.
func (m *Machine) Predict(row dataset.Row) (Prediction, error) {
	vector, err := m.encoder.Encode(row)
	if err != nil {
		return Prediction{}, err
	}
	proba, err := m.model.PredictProba(vector)
	if err != nil {
		return Prediction{}, err
	}
	best := argmax(proba)
	return Prediction{Label: m.classes[best], Confidence: proba[best]}, nil
}

func (m *Machine) Describe() string {
	return fmt.Sprintf("Best Model: %s, Initialized at: %s", m.name, m.initializedAt)
}

func (m *Machine) Name() string {
	return m.name
}

func (m *Machine) InitializedAt() string {
	return m.initializedAt
}

func (m *Machine) Schema() dataset.Schema {
	return m.encoder.Schema
}

func (m *Machine) Classes() []string {
	return append([]string(nil), m.classes...)
}
