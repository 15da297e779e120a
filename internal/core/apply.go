package core

import (
	"math"
	"strconv"
	"strings"
)

// ApplyMapping reads one raw row through a resolved mapping and produces
// a canonical record, or fails with a *MappingError. Deterministic and
// side-effect free; rowIndex is the row's zero-based position in the
// sheet body and is preserved on the record.
func ApplyMapping(row []Cell, m Mapping, rowIndex int) (Record, error) {
	rec := Record{OriginalRowIndex: rowIndex}

	cell := func(f Field) (Cell, bool, *MappingError) {
		idx, mapped := m[f]
		if !mapped {
			return Cell{}, false, nil
		}
		if idx < 0 || idx >= len(row) {
			return Cell{}, false, &MappingError{Row: rowIndex, Field: f, Message: ReasonIndexOutOfBounds}
		}
		return row[idx], true, nil
	}

	nameCell, _, merr := cell(FieldName)
	if merr != nil {
		return Record{}, merr
	}
	rec.Name = nameCell.String()
	if rec.Name == "" {
		return Record{}, &MappingError{Row: rowIndex, Field: FieldName, Message: ReasonMissingName}
	}

	qtyCell, _, merr := cell(FieldQuantity)
	if merr != nil {
		return Record{}, merr
	}
	qty, err := parseQuantity(qtyCell)
	if err != nil {
		return Record{}, &MappingError{Row: rowIndex, Field: FieldQuantity, Message: ReasonInvalidQuantity}
	}
	rec.Quantity = qty

	unitCell, _, merr := cell(FieldUnit)
	if merr != nil {
		return Record{}, merr
	}
	rec.Unit = NormalizeUnit(unitCell.String())
	if rec.Unit == "" {
		return Record{}, &MappingError{Row: rowIndex, Field: FieldUnit, Message: ReasonMissingUnit}
	}

	idCell, mapped, merr := cell(FieldItemID)
	if merr != nil {
		return Record{}, merr
	}
	if mapped {
		rec.ItemID = idCell.String()
	}

	// The ordinal column is display-only: a value that does not parse is
	// dropped rather than failing the row.
	ordCell, mapped, merr := cell(FieldOrdinal)
	if merr != nil {
		return Record{}, merr
	}
	if mapped && !ordCell.IsEmpty() {
		if ord, err := parseQuantity(ordCell); err == nil {
			rec.Ordinal = &ord
		}
	}

	return rec, nil
}

// parseQuantity coerces a cell to a finite float64. Text values accept
// either a comma or a dot decimal separator; regular and non-breaking
// spaces (common Excel thousands separators) are ignored.
func parseQuantity(c Cell) (float64, error) {
	if c.Kind == CellNumber {
		return c.Number, checkFinite(c.Number)
	}
	s := strings.TrimSpace(c.Text)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return f, checkFinite(f)
}

func checkFinite(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.ErrRange
	}
	return nil
}
