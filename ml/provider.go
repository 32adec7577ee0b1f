package ml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"monsterlab/dataset"
)

type EventType string

const (
	EventTrained  EventType = "model_trained"
	EventLoaded   EventType = "model_loaded"
	EventReloaded EventType = "model_reloaded"
)

type Event struct {
	Type          EventType `json:"type"`
	Model         string    `json:"model"`
	InitializedAt string    `json:"initialized_at"`
	Rows          int       `json:"rows,omitempty"`
	Elapsed       string    `json:"elapsed,omitempty"`
}

type Listener func(Event)

// FetchFunc supplies the labeled training table when no saved model exists.
type FetchFunc func(ctx context.Context) (*dataset.Table, error)

type ProviderConfig struct {
	Path     string
	Options  []TrainOption
	Cache    PredictionCache
	Recorder Recorder
	Logger   *zap.Logger
}

// Provider owns the current Machine for a model path. Predictions read the
// current machine without locking; training and reloading are serialised.
type Provider struct {
	path     string
	options  []TrainOption
	cache    PredictionCache
	recorder Recorder
	logger   *zap.Logger

	current atomic.Pointer[Machine]
	trainMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []Listener
}

func NewProvider(cfg ProviderConfig) *Provider {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		path:     cfg.Path,
		options:  cfg.Options,
		cache:    cfg.Cache,
		recorder: cfg.Recorder,
		logger:   logger,
	}
}

func (p *Provider) Path() string {
	return p.path
}

// Machine returns the current machine or ErrNotTrained.
func (p *Provider) Machine() (*Machine, error) {
	if m := p.current.Load(); m != nil {
		return m, nil
	}
	return nil, ErrNotTrained
}

func (p *Provider) Subscribe(l Listener) {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	p.listeners = append(p.listeners, l)
}

// LoadOrTrain returns the current machine, loading it from disk when a blob
// exists, or training on fetched data and saving it otherwise.
func (p *Provider) LoadOrTrain(ctx context.Context, fetch FetchFunc) (*Machine, error) {
	if m := p.current.Load(); m != nil {
		return m, nil
	}

	p.trainMu.Lock()
	defer p.trainMu.Unlock()
	if m := p.current.Load(); m != nil {
		return m, nil
	}

	_, err := os.Stat(p.path)
	switch {
	case err == nil:
		m, err := Load(p.path)
		if err != nil {
			return nil, err
		}
		p.swap(m, Event{Type: EventLoaded})
		return m, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("stat model: %w", err)
	}

	table, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch training data: %w", err)
	}
	return p.trainLocked(table)
}

// Retrain fits a new machine, saves it over the current blob and swaps it in.
func (p *Provider) Retrain(ctx context.Context, table *dataset.Table) (*Machine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.trainMu.Lock()
	defer p.trainMu.Unlock()
	return p.trainLocked(table)
}

func (p *Provider) trainLocked(table *dataset.Table) (*Machine, error) {
	start := time.Now()
	m, err := Train(table, p.options...)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}
	sum, err := m.save(p.path)
	if err != nil {
		return nil, err
	}
	m.digest = sum
	if p.recorder != nil {
		p.recorder.ObserveTraining(elapsed, table.Len())
	}
	p.logger.Info("Model trained",
		zap.String("model", m.Name()),
		zap.String("initialized_at", m.InitializedAt()),
		zap.Int("rows", table.Len()),
		zap.Duration("elapsed", elapsed),
		zap.String("path", p.path))
	p.swap(m, Event{Type: EventTrained, Rows: table.Len(), Elapsed: elapsed.String()})
	return m, nil
}

// Reload re-reads the blob from disk. It is a no-op when the blob's digest
// matches the machine already in use.
func (p *Provider) Reload() (*Machine, error) {
	p.trainMu.Lock()
	defer p.trainMu.Unlock()

	m, err := Load(p.path)
	if err != nil {
		return nil, err
	}
	if cur := p.current.Load(); cur != nil && cur.digest == m.digest {
		return cur, nil
	}
	p.swap(m, Event{Type: EventReloaded})
	return m, nil
}

func (p *Provider) swap(m *Machine, ev Event) {
	p.current.Store(m)
	if p.cache != nil {
		p.cache.Purge(context.Background())
	}
	ev.Model = m.Name()
	ev.InitializedAt = m.InitializedAt()

	p.listenersMu.RLock()
	listeners := append([]Listener(nil), p.listeners...)
	p.listenersMu.RUnlock()
	for _, l := range listeners {
		l(ev)
	}
}

// Predict answers one feature row with the current machine.
func (p *Provider) Predict(ctx context.Context, row dataset.Row) (Prediction, error) {
	m, err := p.Machine()
	if err != nil {
		return Prediction{}, err
	}
	if err := m.Schema().Check(row); err != nil {
		return Prediction{}, err
	}

	start := time.Now()
	key := cacheKey(m, row)
	if p.cache != nil {
		if cached, ok := p.cache.Get(ctx, key); ok {
			p.observe(cached.Label, time.Since(start), true)
			return cached, nil
		}
	}

	prediction, err := m.Predict(row)
	if err != nil {
		return Prediction{}, err
	}
	if p.cache != nil {
		p.cache.Set(ctx, key, prediction)
	}
	p.observe(prediction.Label, time.Since(start), false)
	p.logger.Debug("Prediction",
		zap.Any("row", row),
		zap.String("label", prediction.Label),
		zap.Float64("confidence", prediction.Confidence))
	return prediction, nil
}

func (p *Provider) observe(label string, elapsed time.Duration, cached bool) {
	if p.recorder != nil {
		p.recorder.ObservePrediction(label, elapsed, cached)
	}
}

// cacheKey is the machine's blob digest followed by the row's fields sorted
// by name. Machines that were never saved fall back to their timestamp.
func cacheKey(m *Machine, row dataset.Row) string {
	names := m.Schema().Names()
	sort.Strings(names)
	var b strings.Builder
	if m.digest != "" {
		b.WriteString(m.digest)
	} else {
		b.WriteString(m.InitializedAt())
	}
	for _, name := range names {
		b.WriteByte('|')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(dataset.ToString(row[name]))
	}
	return b.String()
}
