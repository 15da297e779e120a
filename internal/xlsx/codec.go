// Package xlsx converts between xlsx workbooks and the engine's cell
// grid. All spreadsheet library usage is confined here so the engine
// stays independent of the file format.
package xlsx

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Barczakson/inwentura-op-sub002/internal/core"
	"github.com/xuri/excelize/v2"
)

// Workbook is the decoded content of one uploaded spreadsheet: the
// first non-blank row of the first sheet as headers, everything after
// it as the body. Blank body rows are kept so that row indices match
// the source document.
type Workbook struct {
	SheetName string
	Headers   []string
	Rows      [][]core.Cell
}

// ErrNoData is returned when the workbook has no sheet with content.
var ErrNoData = fmt.Errorf("xlsx: no data rows found")

// ReadWorkbook decodes the first sheet of an xlsx document.
func ReadWorkbook(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoData
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	headerAt := -1
	for i, row := range rows {
		if !rowBlank(row) {
			headerAt = i
			break
		}
	}
	if headerAt == -1 {
		return nil, ErrNoData
	}

	headers := make([]string, len(rows[headerAt]))
	for i, v := range rows[headerAt] {
		headers[i] = strings.TrimSpace(v)
	}

	body := make([][]core.Cell, 0, len(rows)-headerAt-1)
	for _, row := range rows[headerAt+1:] {
		cells := make([]core.Cell, len(row))
		for i, v := range row {
			cells[i] = decodeCell(v)
		}
		body = append(body, cells)
	}

	return &Workbook{SheetName: sheet, Headers: headers, Rows: body}, nil
}

// Write encodes a header row plus body rows as a single-sheet xlsx
// document. The header row and single-cell body rows (category labels)
// are rendered bold.
func Write(w io.Writer, sheetName string, headers []string, rows [][]core.Cell) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	headerRow := make([]any, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := styleRow(f, sheetName, 1, len(headers), bold); err != nil {
		return err
	}

	for i, cells := range rows {
		rowNum := i + 2
		values := make([]any, len(cells))
		for j, c := range cells {
			values[j] = encodeCell(c)
		}
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return fmt.Errorf("row %d: %w", rowNum, err)
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", rowNum, err)
		}
		if len(cells) == 1 {
			if err := styleRow(f, sheetName, rowNum, len(headers), bold); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	return nil
}

func styleRow(f *excelize.File, sheet string, row, width, style int) error {
	if width < 1 {
		width = 1
	}
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(width, row)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, start, end, style); err != nil {
		return fmt.Errorf("style row %d: %w", row, err)
	}
	return nil
}

// decodeCell narrows a raw string value to the engine's cell variant.
// Plain dot-decimal numbers become numeric cells; everything else stays
// text so the engine's own quantity parsing decides.
func decodeCell(v string) core.Cell {
	v = strings.TrimSpace(v)
	if v == "" {
		return core.EmptyCell()
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return core.NumberCell(n)
	}
	return core.TextCell(v)
}

func encodeCell(c core.Cell) any {
	switch c.Kind {
	case core.CellNumber:
		return c.Number
	case core.CellText:
		return c.Text
	default:
		return nil
	}
}

func rowBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
