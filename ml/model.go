package ml

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotTrained   = errors.New("model not trained")
	ErrNoFeatures   = errors.New("dataset has no feature columns")
	ErrMissingLabel = errors.New("label column missing or empty")
)

// Classifier is a fitted multi-class model over dense feature vectors.
type Classifier interface {
	Train(features [][]float64, labels []int, numClasses int) error
	PredictProba(features []float64) ([]float64, error)
	Classes() int
}

type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type PredictionCache interface {
	Get(ctx context.Context, key string) (Prediction, bool)
	Set(ctx context.Context, key string, p Prediction)
	Purge(ctx context.Context)
}

type Recorder interface {
	ObservePrediction(label string, elapsed time.Duration, cached bool)
	ObserveTraining(elapsed time.Duration, rows int)
}
