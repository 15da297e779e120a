package core

import (
	"errors"
	"math"
	"testing"
)

var testMapping = Mapping{FieldItemID: 0, FieldName: 1, FieldQuantity: 2, FieldUnit: 3}

func TestApplyMapping(t *testing.T) {
	row := []Cell{TextCell("A001"), TextCell("Product A"), TextCell("100"), TextCell("kg")}

	rec, err := ApplyMapping(row, testMapping, 7)
	if err != nil {
		t.Fatalf("ApplyMapping: %v", err)
	}

	if rec.ItemID != "A001" {
		t.Errorf("ItemID = %q, want %q", rec.ItemID, "A001")
	}
	if rec.Name != "Product A" {
		t.Errorf("Name = %q, want %q", rec.Name, "Product A")
	}
	if rec.Quantity != 100 {
		t.Errorf("Quantity = %v, want 100", rec.Quantity)
	}
	if rec.Unit != "kg" {
		t.Errorf("Unit = %q, want %q", rec.Unit, "kg")
	}
	if rec.OriginalRowIndex != 7 {
		t.Errorf("OriginalRowIndex = %d, want 7", rec.OriginalRowIndex)
	}
}

func TestApplyMappingQuantityFormats(t *testing.T) {
	tests := []struct {
		name    string
		cell    Cell
		want    float64
		wantErr bool
	}{
		{name: "integer text", cell: TextCell("100"), want: 100},
		{name: "dot decimal", cell: TextCell("12.5"), want: 12.5},
		{name: "comma decimal", cell: TextCell("12,5"), want: 12.5},
		{name: "native number", cell: NumberCell(3.25), want: 3.25},
		{name: "space thousands separator", cell: TextCell("1 250,75"), want: 1250.75},
		{name: "non-breaking space separator", cell: TextCell("1 000"), want: 1000},
		{name: "negative", cell: TextCell("-4,5"), want: -4.5},
		{name: "not a number", cell: TextCell("dużo"), wantErr: true},
		{name: "empty", cell: EmptyCell(), wantErr: true},
		{name: "two commas", cell: TextCell("1,2,3"), wantErr: true},
		{name: "infinity", cell: NumberCell(math.Inf(1)), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := []Cell{TextCell("A001"), TextCell("Product A"), tt.cell, TextCell("kg")}
			rec, err := ApplyMapping(row, testMapping, 0)
			if tt.wantErr {
				var me *MappingError
				if !errors.As(err, &me) {
					t.Fatalf("err = %v, want MappingError", err)
				}
				if me.Message != ReasonInvalidQuantity {
					t.Errorf("message = %q, want %q", me.Message, ReasonInvalidQuantity)
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyMapping: %v", err)
			}
			if rec.Quantity != tt.want {
				t.Errorf("Quantity = %v, want %v", rec.Quantity, tt.want)
			}
			if math.IsNaN(rec.Quantity) || math.IsInf(rec.Quantity, 0) {
				t.Errorf("Quantity = %v, want finite", rec.Quantity)
			}
		})
	}
}

func TestApplyMappingOutOfBoundsIndex(t *testing.T) {
	m := Mapping{FieldName: 0, FieldQuantity: 1, FieldUnit: 5}
	row := []Cell{TextCell("Product A"), TextCell("10"), TextCell("x"), TextCell("y")}

	_, err := ApplyMapping(row, m, 3)

	var me *MappingError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want MappingError", err)
	}
	if me.Message != ReasonIndexOutOfBounds {
		t.Errorf("message = %q, want %q", me.Message, ReasonIndexOutOfBounds)
	}
	if me.Field != FieldUnit {
		t.Errorf("field = %q, want %q", me.Field, FieldUnit)
	}
	if me.Row != 3 {
		t.Errorf("row = %d, want 3", me.Row)
	}
}

func TestApplyMappingMissingName(t *testing.T) {
	row := []Cell{TextCell("A001"), TextCell("   "), TextCell("100"), TextCell("kg")}

	_, err := ApplyMapping(row, testMapping, 0)

	var me *MappingError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want MappingError", err)
	}
	if me.Message != ReasonMissingName {
		t.Errorf("message = %q, want %q", me.Message, ReasonMissingName)
	}
}

func TestApplyMappingNormalizesUnit(t *testing.T) {
	row := []Cell{TextCell("A001"), TextCell("Product A"), TextCell("100"), TextCell("Kilogram")}

	rec, err := ApplyMapping(row, testMapping, 0)
	if err != nil {
		t.Fatalf("ApplyMapping: %v", err)
	}
	if rec.Unit != "kg" {
		t.Errorf("Unit = %q, want %q", rec.Unit, "kg")
	}
}

func TestApplyMappingOrdinal(t *testing.T) {
	m := Mapping{FieldOrdinal: 0, FieldName: 1, FieldQuantity: 2, FieldUnit: 3}

	t.Run("numeric ordinal kept", func(t *testing.T) {
		row := []Cell{TextCell("3"), TextCell("Product A"), TextCell("1"), TextCell("kg")}
		rec, err := ApplyMapping(row, m, 0)
		if err != nil {
			t.Fatalf("ApplyMapping: %v", err)
		}
		if rec.Ordinal == nil || *rec.Ordinal != 3 {
			t.Errorf("Ordinal = %v, want 3", rec.Ordinal)
		}
	})

	t.Run("unparseable ordinal dropped", func(t *testing.T) {
		row := []Cell{TextCell("III"), TextCell("Product A"), TextCell("1"), TextCell("kg")}
		rec, err := ApplyMapping(row, m, 0)
		if err != nil {
			t.Fatalf("ApplyMapping: %v", err)
		}
		if rec.Ordinal != nil {
			t.Errorf("Ordinal = %v, want nil", rec.Ordinal)
		}
	})
}

func TestMappingValidate(t *testing.T) {
	tests := []struct {
		name    string
		mapping Mapping
		columns int
		wantErr bool
	}{
		{
			name:    "valid full mapping",
			mapping: Mapping{FieldItemID: 0, FieldName: 1, FieldQuantity: 2, FieldUnit: 3},
			columns: 4,
		},
		{
			name:    "valid required only",
			mapping: Mapping{FieldName: 0, FieldQuantity: 1, FieldUnit: 2},
			columns: 3,
		},
		{
			name:    "missing quantity",
			mapping: Mapping{FieldName: 0, FieldUnit: 1},
			columns: 2,
			wantErr: true,
		},
		{
			name:    "index beyond columns",
			mapping: Mapping{FieldName: 0, FieldQuantity: 1, FieldUnit: 4},
			columns: 4,
			wantErr: true,
		},
		{
			name:    "duplicate index",
			mapping: Mapping{FieldName: 0, FieldQuantity: 1, FieldUnit: 1},
			columns: 3,
			wantErr: true,
		},
		{
			name:    "negative index",
			mapping: Mapping{FieldName: -1, FieldQuantity: 1, FieldUnit: 2},
			columns: 3,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mapping.Validate(tt.columns)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidMapping) {
				t.Errorf("Validate() error = %v, want ErrInvalidMapping", err)
			}
		})
	}
}
