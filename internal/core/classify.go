package core

// DataRow is a raw data row queued for mapping application, tagged with
// its zero-based position in the original sheet body. The index is the
// durable join key back to the source file and stays stable even though
// category header rows are filtered out before further processing.
type DataRow struct {
	Row              []Cell
	OriginalRowIndex int
}

// Classification is the result of one forward pass over a sheet body:
// the ordered structure descriptor plus the data rows awaiting
// field-level validation.
type Classification struct {
	Structure []StructureEntry
	DataRows  []DataRow
}

// Classify walks the sheet body and splits category header rows from
// data rows. A row is a category header iff it has exactly one
// non-empty cell and that cell, trimmed, is non-numeric. Completely
// blank rows are skipped. Total over any input: malformed rows route to
// whichever bucket fits, deferring field validation to ApplyMapping.
func Classify(body [][]Cell, m Mapping) Classification {
	cls := Classification{
		Structure: make([]StructureEntry, 0, len(body)),
		DataRows:  make([]DataRow, 0, len(body)),
	}

	for i, row := range body {
		label, kind := classifyRow(row)
		switch kind {
		case rowBlank:
			continue
		case rowCategoryHeader:
			cls.Structure = append(cls.Structure, StructureEntry{Type: EntryHeader, Label: label})
		case rowData:
			cls.Structure = append(cls.Structure, StructureEntry{Type: EntryItem, Item: itemRef(row, m)})
			cls.DataRows = append(cls.DataRows, DataRow{Row: row, OriginalRowIndex: i})
		}
	}
	return cls
}

type rowKind int

const (
	rowBlank rowKind = iota
	rowCategoryHeader
	rowData
)

// classifyRow inspects a single row. For category headers the returned
// label is the trimmed content of the sole non-empty cell.
func classifyRow(row []Cell) (string, rowKind) {
	nonEmpty := 0
	var sole Cell
	for _, c := range row {
		if !c.IsEmpty() {
			nonEmpty++
			sole = c
		}
	}
	switch {
	case nonEmpty == 0:
		return "", rowBlank
	case nonEmpty == 1:
		// A single numeric cell is still a data row; only non-numeric
		// labels count as category headers. Note a data row that happens
		// to carry one non-empty textual cell is indistinguishable from a
		// label and classifies as a header.
		if _, err := parseQuantity(sole); err != nil {
			return sole.String(), rowCategoryHeader
		}
		return "", rowData
	default:
		return "", rowData
	}
}

// itemRef extracts the display marker for a data row, tolerating
// missing or out-of-range mapping indices: the marker is for layout
// reconstruction only and must never fail.
func itemRef(row []Cell, m Mapping) ItemRef {
	ref := ItemRef{}
	if idx, ok := m[FieldItemID]; ok && idx >= 0 && idx < len(row) {
		ref.ItemID = row[idx].String()
	}
	if idx, ok := m[FieldName]; ok && idx >= 0 && idx < len(row) {
		ref.Name = row[idx].String()
	}
	if idx, ok := m[FieldUnit]; ok && idx >= 0 && idx < len(row) {
		ref.Unit = NormalizeUnit(row[idx].String())
	}
	return ref
}
