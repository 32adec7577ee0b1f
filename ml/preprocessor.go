package ml

import (
	"fmt"
	"sort"

	"monsterlab/dataset"
)

// FeatureEncoder turns schema-checked rows into dense vectors. Categorical
// vocabularies are learned once at fit time; unseen categories encode as -1.
type FeatureEncoder struct {
	Schema dataset.Schema
	Vocab  map[string]map[string]int
}

func NewFeatureEncoder(schema dataset.Schema, table *dataset.Table) *FeatureEncoder {
	enc := &FeatureEncoder{
		Schema: schema,
		Vocab:  make(map[string]map[string]int),
	}
	for _, field := range schema.Fields {
		if field.Kind != dataset.Categorical {
			continue
		}
		values := make([]string, 0)
		seen := make(map[string]bool)
		for _, row := range table.Rows {
			value := dataset.ToString(row[field.Name])
			if !seen[value] {
				seen[value] = true
				values = append(values, value)
			}
		}
		sort.Strings(values)
		codes := make(map[string]int, len(values))
		for i, value := range values {
			codes[value] = i
		}
		enc.Vocab[field.Name] = codes
	}
	return enc
}

func (e *FeatureEncoder) Encode(row dataset.Row) ([]float64, error) {
	if err := e.Schema.Check(row); err != nil {
		return nil, err
	}
	vector := make([]float64, len(e.Schema.Fields))
	for i, field := range e.Schema.Fields {
		value := row[field.Name]
		if field.Kind == dataset.Categorical {
			code, ok := e.Vocab[field.Name][dataset.ToString(value)]
			if !ok {
				code = -1
			}
			vector[i] = float64(code)
			continue
		}
		f, err := dataset.ToFloat(value)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", dataset.ErrSchemaMismatch, field.Name, err)
		}
		vector[i] = f
	}
	return vector, nil
}

func (e *FeatureEncoder) EncodeTable(table *dataset.Table) ([][]float64, error) {
	vectors := make([][]float64, len(table.Rows))
	for i, row := range table.Rows {
		vector, err := e.Encode(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		vectors[i] = vector
	}
	return vectors, nil
}

// encodeLabels maps label values to class indices. Classes are sorted so the
// same label set always yields the same indices.
func encodeLabels(values []any) ([]int, []string, error) {
	names := make([]string, len(values))
	seen := make(map[string]bool)
	classes := make([]string, 0)
	for i, value := range values {
		name := dataset.ToString(value)
		if name == "" {
			return nil, nil, fmt.Errorf("%w: row %d has no label", ErrMissingLabel, i)
		}
		names[i] = name
		if !seen[name] {
			seen[name] = true
			classes = append(classes, name)
		}
	}
	sort.Strings(classes)
	index := make(map[string]int, len(classes))
	for i, class := range classes {
		index[class] = i
	}
	labels := make([]int, len(names))
	for i, name := range names {
		labels[i] = index[name]
	}
	return labels, classes, nil
}
