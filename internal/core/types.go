// Package core implements the column mapping and aggregation engine for
// spreadsheet-based inventory files. It has no storage or HTTP
// dependencies: persistence is delegated to a collaborator interface and
// all functions here are deterministic over their inputs.
package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CellKind discriminates the closed set of cell value variants produced
// by the spreadsheet codec.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell is a single spreadsheet cell value. Arbitrary cell content is
// narrowed to this variant at the codec boundary so that all coercion
// inside the engine is explicit.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// TextCell returns a text cell. Empty or whitespace-only input yields an
// empty cell.
func TextCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell returns a numeric cell.
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Number: f}
}

// EmptyCell returns an empty cell.
func EmptyCell() Cell {
	return Cell{Kind: CellEmpty}
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// String renders the cell as trimmed text. Numeric cells use the
// shortest representation that round-trips.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return strings.TrimSpace(c.Text)
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// Field is one of the fixed semantic roles a spreadsheet column can be
// mapped onto.
type Field string

const (
	FieldItemID   Field = "itemId"
	FieldName     Field = "name"
	FieldQuantity Field = "quantity"
	FieldUnit     Field = "unit"
	FieldOrdinal  Field = "lp"
)

// RequiredFields lists the fields every valid mapping must assign.
var RequiredFields = []Field{FieldName, FieldQuantity, FieldUnit}

// Fields lists all recognized fields in canonical order.
var Fields = []Field{FieldItemID, FieldName, FieldQuantity, FieldUnit, FieldOrdinal}

// Mapping assigns a zero-based column index to each mapped canonical
// field. It is specific to one file's header layout.
type Mapping map[Field]int

// Validate checks that all required fields are mapped and that the
// assigned indices are unique and within the header's column count.
func (m Mapping) Validate(columnCount int) error {
	for _, f := range RequiredFields {
		if _, ok := m[f]; !ok {
			return fmt.Errorf("%w: missing required field %q", ErrInvalidMapping, f)
		}
	}
	seen := make(map[int]Field, len(m))
	for f, idx := range m {
		if idx < 0 || idx >= columnCount {
			return fmt.Errorf("%w: field %q index %d out of range (columns: %d)", ErrInvalidMapping, f, idx, columnCount)
		}
		if prev, dup := seen[idx]; dup {
			return fmt.Errorf("%w: fields %q and %q share column %d", ErrInvalidMapping, prev, f, idx)
		}
		seen[idx] = f
	}
	return nil
}

// Record is one parsed data row in canonical shape. It is produced per
// row by ApplyMapping and consumed immediately by persistence and by
// the aggregation fold.
type Record struct {
	ItemID           string   `json:"itemId,omitempty"`
	Name             string   `json:"name"`
	Quantity         float64  `json:"quantity"`
	Unit             string   `json:"unit"`
	Ordinal          *float64 `json:"lp,omitempty"`
	OriginalRowIndex int      `json:"originalRowIndex"`
}

// EntryType tags a StructureEntry as either a category header row or a
// data row marker.
type EntryType string

const (
	EntryHeader EntryType = "header"
	EntryItem   EntryType = "item"
)

// ItemRef is the lightweight positional marker stored for a data row.
// It carries just enough to render the row's place in the original
// document on export.
type ItemRef struct {
	ItemID string `json:"itemId,omitempty"`
	Name   string `json:"name"`
	Unit   string `json:"unit"`
}

// StructureEntry is one ordered marker in a file's structure
// descriptor. The sequence is write-once: it is persisted verbatim at
// ingestion and re-read unmodified by the export path.
type StructureEntry struct {
	Type  EntryType
	Label string  // category label when Type == EntryHeader
	Item  ItemRef // row marker when Type == EntryItem
}

// structureEntryJSON is the persisted wire shape: content is a string
// for header entries and an object for item entries.
type structureEntryJSON struct {
	Type    EntryType       `json:"type"`
	Content json.RawMessage `json:"content"`
}

// MarshalJSON encodes the entry in its tagged-union wire shape.
func (e StructureEntry) MarshalJSON() ([]byte, error) {
	var content any
	switch e.Type {
	case EntryHeader:
		content = e.Label
	case EntryItem:
		content = e.Item
	default:
		return nil, fmt.Errorf("structure entry: unknown type %q", e.Type)
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(structureEntryJSON{Type: e.Type, Content: raw})
}

// UnmarshalJSON decodes the tagged-union wire shape.
func (e *StructureEntry) UnmarshalJSON(data []byte) error {
	var wire structureEntryJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	e.Type = wire.Type
	switch wire.Type {
	case EntryHeader:
		return json.Unmarshal(wire.Content, &e.Label)
	case EntryItem:
		return json.Unmarshal(wire.Content, &e.Item)
	default:
		return fmt.Errorf("structure entry: unknown type %q", wire.Type)
	}
}

// AggregateKey identifies one running total. Name comparison is
// case-sensitive; Unit is the normalized unit token. An empty ItemID
// stands for a row without an index column.
type AggregateKey struct {
	ItemID string
	Name   string
	Unit   string
}

// KeyOf computes the aggregation key for a canonical record.
func KeyOf(rec Record) AggregateKey {
	return AggregateKey{
		ItemID: rec.ItemID,
		Name:   rec.Name,
		Unit:   NormalizeUnit(rec.Unit),
	}
}

// AggregateEntry is one running total, keyed by (itemId, name, unit).
// Quantity is the arithmetic sum of all folded records; Count is the
// number of folded records; SourceFiles grows monotonically as new
// files contribute to the key.
type AggregateEntry struct {
	ID          string   `json:"id"`
	ItemID      string   `json:"itemId,omitempty"`
	Name        string   `json:"name"`
	Unit        string   `json:"unit"`
	Quantity    float64  `json:"quantity"`
	Count       int      `json:"count"`
	SourceFiles []string `json:"sourceFiles"`
}

// FileRecord is the persisted metadata for one ingested file, including
// its write-once structure descriptor.
type FileRecord struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Structure []StructureEntry `json:"structure"`
	RowCount  int              `json:"rowCount"`
	SizeBytes int64            `json:"sizeBytes"`
}
