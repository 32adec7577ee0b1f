package dataset

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func monsterTable() *Table {
	return NewTable([]string{"Level", "Health", "Type", "Rarity"}, []Row{
		{"Level": 5, "Health": 80.0, "Type": "Dragon", "Rarity": "Rank 1"},
		{"Level": 7, "Health": "91.5", "Type": "Ghost", "Rarity": "Rank 2"},
	})
}

func TestInferSchema(t *testing.T) {
	schema := InferSchema(monsterTable(), "Rarity")
	if got := strings.Join(schema.Names(), ","); got != "Level,Health,Type" {
		t.Fatalf("unexpected fields: %s", got)
	}
	if schema.Fields[0].Kind != Numeric || schema.Fields[1].Kind != Numeric {
		t.Fatalf("expected numeric Level and Health, got %v", schema.Fields)
	}
	if schema.Fields[2].Kind != Categorical {
		t.Fatalf("expected categorical Type, got %v", schema.Fields[2].Kind)
	}
}

func TestSchemaCheck(t *testing.T) {
	schema := Schema{Fields: []Field{{Name: "Level", Kind: Numeric}, {Name: "Health", Kind: Numeric}}}

	tests := []struct {
		name    string
		row     Row
		wantErr bool
	}{
		{name: "exact match", row: Row{"Level": 5, "Health": 80.0}},
		{name: "json number", row: Row{"Level": json.Number("5"), "Health": 80.0}},
		{name: "missing field", row: Row{"Level": 5}, wantErr: true},
		{name: "extra field", row: Row{"Level": 5, "Health": 80.0, "Sanity": 1.0}, wantErr: true},
		{name: "non-numeric", row: Row{"Level": "five", "Health": 80.0}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.Check(tt.row)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrSchemaMismatch) {
				t.Fatalf("expected ErrSchemaMismatch, got %v", err)
			}
		})
	}
}

func TestTableProjectAndDrop(t *testing.T) {
	table := monsterTable()

	projected, err := table.Project("Rarity", "Level")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(projected.Rows[0]) != 2 || projected.Columns[0] != "Rarity" {
		t.Fatalf("unexpected projection: %+v", projected)
	}

	if _, err := table.Project("Damage"); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}

	dropped := table.Drop("Rarity")
	if dropped.HasColumn("Rarity") || dropped.Len() != 2 {
		t.Fatalf("unexpected drop result: %+v", dropped)
	}
}

func TestNewTableInfersColumns(t *testing.T) {
	table := NewTable(nil, []Row{{"b": 1}, {"a": 2}})
	if strings.Join(table.Columns, ",") != "a,b" {
		t.Fatalf("unexpected columns: %v", table.Columns)
	}
}
