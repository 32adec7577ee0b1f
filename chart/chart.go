// Package chart 构建Vega-Lite散点图规范
package chart

import (
	"encoding/json"
	"errors"
	"fmt"

	"monsterlab/dataset"
)

const (
	SchemaURL  = "https://vega.github.io/schema/vega-lite/v5.json"
	MarkSize   = 100
	ViewWidth  = 300
	ViewHeight = 300
)

var ErrUnknownColumn = errors.New("chart: unknown column")

// Spec Vega-Lite顶层规范
type Spec struct {
	Schema   string         `json:"$schema"`
	Title    string         `json:"title"`
	Data     Data           `json:"data"`
	Mark     Mark           `json:"mark"`
	Encoding Encoding       `json:"encoding"`
	Params   []Param        `json:"params"`
	Config   map[string]any `json:"config"`
}

type Data struct {
	Values []dataset.Row `json:"values"`
}

type Mark struct {
	Type string `json:"type"`
	Size int    `json:"size"`
}

type Field struct {
	Field string `json:"field"`
	Type  string `json:"type"`
}

type Encoding struct {
	X       Field   `json:"x"`
	Y       Field   `json:"y"`
	Color   Field   `json:"color"`
	Tooltip []Field `json:"tooltip"`
}

// Param 交互参数；区间选择绑定到坐标轴实现缩放与平移
type Param struct {
	Name   string    `json:"name"`
	Select Selection `json:"select"`
	Bind   string    `json:"bind"`
}

type Selection struct {
	Type      string   `json:"type"`
	Encodings []string `json:"encodings"`
}

// Build 以x、y为坐标、color为着色列构建散点图。每一列都出现在提示框中。
func Build(table *dataset.Table, x, y, color string) (*Spec, error) {
	for _, col := range []string{x, y, color} {
		if !table.HasColumn(col) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, col)
		}
	}

	kinds := make(map[string]string, len(table.Columns))
	for _, f := range dataset.InferSchema(table).Fields {
		kinds[f.Name] = fieldType(f.Kind)
	}

	tooltip := make([]Field, len(table.Columns))
	for i, col := range table.Columns {
		tooltip[i] = Field{Field: col, Type: kinds[col]}
	}

	values := make([]dataset.Row, len(table.Rows))
	for i, row := range table.Rows {
		values[i] = row
	}

	return &Spec{
		Schema: SchemaURL,
		Title:  fmt.Sprintf("%s by %s for %s", y, x, color),
		Data:   Data{Values: values},
		Mark:   Mark{Type: "circle", Size: MarkSize},
		Encoding: Encoding{
			X:       Field{Field: x, Type: kinds[x]},
			Y:       Field{Field: y, Type: kinds[y]},
			Color:   Field{Field: color, Type: kinds[color]},
			Tooltip: tooltip,
		},
		Params: []Param{{
			Name:   "param_1",
			Select: Selection{Type: "interval", Encodings: []string{"x", "y"}},
			Bind:   "scales",
		}},
		Config: map[string]any{
			"view": map[string]int{"continuousWidth": ViewWidth, "continuousHeight": ViewHeight},
		},
	}, nil
}

func fieldType(k dataset.Kind) string {
	if k == dataset.Numeric {
		return "quantitative"
	}
	return "nominal"
}

// JSON 序列化规范，供模板中的vegaEmbed使用
func (s *Spec) JSON() ([]byte, error) {
	return json.Marshal(s)
}
