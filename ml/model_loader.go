package ml

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

func init() {
	gob.Register(&RandomForest{})
	gob.Register(&DecisionTree{})
}

// artifact is the persisted layout: one keyed record per file.
type artifact struct {
	Model         Classifier
	Encoder       *FeatureEncoder
	Classes       []string
	Name          string
	InitializedAt string
}

// Save writes the machine to path, replacing any existing file. The blob is
// written to a sibling temp file first and renamed into place.
func (m *Machine) Save(path string) error {
	_, err := m.save(path)
	return err
}

// save is Save returning the digest of the written blob.
func (m *Machine) save(path string) (string, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(artifact{
		Model:         m.model,
		Encoder:       m.encoder,
		Classes:       m.classes,
		Name:          m.name,
		InitializedAt: m.initializedAt,
	})
	if err != nil {
		return "", fmt.Errorf("encode model: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("save model: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return "", fmt.Errorf("save model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("save model: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("save model: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("save model: %w", err)
	}
	return digest(buf.Bytes()), nil
}

// Load reads a blob written by Save.
func Load(path string) (*Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	var a artifact
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	m, err := Reconstruct(a.Model, a.Encoder, a.Classes, a.Name, a.InitializedAt)
	if err != nil {
		return nil, err
	}
	m.digest = digest(data)
	return m, nil
}

func digest(blob []byte) string {
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}
