package core

// ExportColumns is the canonical column layout for exported sheets.
var ExportColumns = []string{"Nr indeksu", "Nazwa towaru", "Ilość", "JMZ"}

// RecordCells renders a canonical record as one export row in
// ExportColumns order.
func RecordCells(rec Record) []Cell {
	return []Cell{
		TextCell(rec.ItemID),
		TextCell(rec.Name),
		NumberCell(rec.Quantity),
		TextCell(rec.Unit),
	}
}

// AggregateCells renders an aggregate entry as one export row in
// ExportColumns order.
func AggregateCells(e AggregateEntry) []Cell {
	return []Cell{
		TextCell(e.ItemID),
		TextCell(e.Name),
		NumberCell(e.Quantity),
		TextCell(e.Unit),
	}
}

// Reinterleave rebuilds a file's original visual layout: category
// header entries become single-cell label rows and item entries consume
// data rows in order. The structure descriptor is authoritative; data
// must contain exactly one row per item entry or ErrStructureMismatch
// is returned.
func Reinterleave(structure []StructureEntry, data [][]Cell) ([][]Cell, error) {
	out := make([][]Cell, 0, len(structure))
	next := 0
	for _, e := range structure {
		switch e.Type {
		case EntryHeader:
			out = append(out, []Cell{TextCell(e.Label)})
		case EntryItem:
			if next >= len(data) {
				return nil, ErrStructureMismatch
			}
			out = append(out, data[next])
			next++
		default:
			return nil, ErrStructureMismatch
		}
	}
	if next != len(data) {
		return nil, ErrStructureMismatch
	}
	return out, nil
}
