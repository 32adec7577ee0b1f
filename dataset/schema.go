package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var ErrSchemaMismatch = errors.New("row does not match schema")

type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

type Field struct {
	Name string
	Kind Kind
}

// Schema 有序的类型化字段列表
type Schema struct {
	Fields []Field
}

func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func (s Schema) Len() int {
	return len(s.Fields)
}

// Check requires the row's key set to equal the schema's field names exactly
// and numeric fields to hold numeric values.
func (s Schema) Check(row Row) error {
	var missing, extra, invalid []string
	known := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		known[f.Name] = true
		value, ok := row[f.Name]
		if !ok {
			missing = append(missing, f.Name)
			continue
		}
		if f.Kind == Numeric {
			if _, err := ToFloat(value); err != nil {
				invalid = append(invalid, f.Name)
			}
		}
	}
	for key := range row {
		if !known[key] {
			extra = append(extra, key)
		}
	}
	if len(missing) == 0 && len(extra) == 0 && len(invalid) == 0 {
		return nil
	}
	sort.Strings(extra)
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ","))
	}
	if len(extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(extra, ","))
	}
	if len(invalid) > 0 {
		parts = append(parts, "non-numeric "+strings.Join(invalid, ","))
	}
	return fmt.Errorf("%w: %s", ErrSchemaMismatch, strings.Join(parts, "; "))
}

// InferSchema derives a schema from the table's columns (minus exclude).
// A column is numeric when every non-nil value coerces to float64.
func InferSchema(t *Table, exclude ...string) Schema {
	skip := make(map[string]bool, len(exclude))
	for _, col := range exclude {
		skip[col] = true
	}
	var schema Schema
	for _, col := range t.Columns {
		if skip[col] {
			continue
		}
		kind := Numeric
		for _, row := range t.Rows {
			value := row[col]
			if value == nil {
				continue
			}
			if _, err := ToFloat(value); err != nil {
				kind = Categorical
				break
			}
		}
		schema.Fields = append(schema.Fields, Field{Name: col, Kind: kind})
	}
	return schema
}

// ToFloat coerces a scalar to float64.
func ToFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case nil:
		return 0, errors.New("nil value")
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", value)
	}
}

// ToString renders a scalar as a label or category string.
func ToString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
