package engine

import (
	"bytes"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"

	"relab/internal/errs"
)

// DefaultMissing is the null token used by the catalogue sheets.
var DefaultMissing = []string{"   "}

// SheetOptions controls how a worksheet becomes a Table.
type SheetOptions struct {
	// Key is the header of the column used as row key.
	Key string
	// Missing lists raw cell values read as null. Empty cells are always null.
	Missing []string
}

// --- 1. WORKBOOK READERS ---

// Grid is the cell text of a worksheet, row 0 being the header. Text marks
// the cells the workbook stores as strings; it is nil when the reader cannot
// tell, and the cell text alone decides the column kind.
type Grid struct {
	Rows [][]string
	Text [][]bool
}

func (g Grid) isText(r, c int) bool {
	return r < len(g.Text) && c < len(g.Text[r]) && g.Text[r][c]
}

// ReadGrid returns the cells of the first worksheet of a workbook.
// name selects the format by extension: .xls or .xlsx.
func ReadGrid(data []byte, name string) (Grid, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".xls":
		return readXLS(data)
	case ".xlsx", ".xlsm":
		return readXLSX(data)
	default:
		return Grid{}, errors.Wrapf(errs.ErrParse, "unsupported workbook %s", name)
	}
}

// readXLS reads a BIFF workbook. The reader does not expose cell record
// types, so Text stays nil.
func readXLS(data []byte) (g Grid, err error) {
	// The BIFF reader panics on some truncated streams.
	defer func() {
		if r := recover(); r != nil {
			g, err = Grid{}, errors.Wrapf(errs.ErrParse, "malformed xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return Grid{}, errors.Wrapf(errs.ErrParse, "open xls: %v", err)
	}
	if wb.NumSheets() == 0 {
		return Grid{}, errors.Wrap(errs.ErrParse, "xls has no worksheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return Grid{}, errors.Wrap(errs.ErrParse, "xls first worksheet unreadable")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			g.Rows = append(g.Rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells[c] = row.Col(c)
		}
		g.Rows = append(g.Rows, cells)
	}
	return g, nil
}

// xlsRow returns row i, or nil when the sheet stores no record for it.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	// WorkSheet.Row dereferences the missing row.
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func readXLSX(data []byte) (Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Grid{}, errors.Wrapf(errs.ErrParse, "open xlsx: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Grid{}, errors.Wrap(errs.ErrParse, "xlsx has no worksheets")
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Grid{}, errors.Wrapf(errs.ErrParse, "read worksheet %s: %v", sheet, err)
	}

	g := Grid{Rows: rows, Text: make([][]bool, len(rows))}
	for r, row := range rows {
		g.Text[r] = make([]bool, len(row))
		for c, v := range row {
			if v == "" {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return Grid{}, errors.Wrapf(errs.ErrParse, "worksheet %s: %v", sheet, err)
			}
			typ, err := f.GetCellType(sheet, ref)
			if err != nil {
				return Grid{}, errors.Wrapf(errs.ErrParse, "worksheet %s cell %s: %v", sheet, ref, err)
			}
			switch typ {
			case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
				g.Text[r][c] = true
			case excelize.CellTypeUnset, excelize.CellTypeNumber:
				// Number formats change the displayed text; keep the stored value.
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					continue
				}
				raw, err := f.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
				if err != nil {
					continue
				}
				if n, err := strconv.ParseFloat(raw, 64); err == nil {
					rows[r][c] = formatNumber(n)
				}
			}
		}
	}
	return g, nil
}

// --- 2. TABLE BUILDER ---

// LoadSheet parses workbook bytes into a Table keyed by opts.Key.
func LoadSheet(data []byte, name string, opts SheetOptions) (*Table, error) {
	g, err := ReadGrid(data, name)
	if err != nil {
		return nil, err
	}
	t, err := BuildGrid(g, opts)
	if err != nil {
		return nil, errors.WithMessage(err, name)
	}
	return t, nil
}

// BuildTable turns untyped cell text into a Table. See BuildGrid.
func BuildTable(rows [][]string, opts SheetOptions) (*Table, error) {
	return BuildGrid(Grid{Rows: rows}, opts)
}

// BuildGrid turns a cell grid into a Table. Row 0 is the header.
// Rows with a null key are dropped. A column becomes KindNumber when none
// of its non-null cells is stored as text and each one reads back as the
// number it spells, so "007" or "1e3" keep a column textual.
func BuildGrid(g Grid, opts SheetOptions) (*Table, error) {
	grid := g.Rows
	if len(grid) == 0 || isBlankRow(grid[0]) {
		return nil, errors.Wrap(errs.ErrParse, "missing header row")
	}
	header := headerNames(grid[0])

	keyIdx := -1
	for i, h := range header {
		if h == opts.Key {
			keyIdx = i
			break
		}
	}
	if keyIdx < 0 {
		return nil, errors.Wrapf(errs.ErrParse, "missing key column %q", opts.Key)
	}

	missing := make(map[string]bool, len(opts.Missing))
	for _, m := range opts.Missing {
		missing[m] = true
	}
	cell := func(row []string, i int) (string, bool) {
		if i >= len(row) || missing[row[i]] {
			return "", false
		}
		s := norm.NFC.String(strings.TrimSpace(row[i]))
		if s == "" || missing[s] {
			return "", false
		}
		return s, true
	}

	t := &Table{IndexName: opts.Key}
	raw := make([][]string, len(header))
	nulls := make([][]bool, len(header))
	text := make([]bool, len(header))

	for r, row := range grid[1:] {
		key, ok := cell(row, keyIdx)
		if !ok {
			continue
		}
		t.Keys = append(t.Keys, key)
		for c := range header {
			if c == keyIdx {
				continue
			}
			v, ok := cell(row, c)
			raw[c] = append(raw[c], v)
			nulls[c] = append(nulls[c], !ok)
			if ok && g.isText(r+1, c) {
				text[c] = true
			}
		}
	}

	for c, name := range header {
		if c == keyIdx {
			continue
		}
		t.Columns = append(t.Columns, typedColumn(name, raw[c], nulls[c], len(t.Keys), text[c]))
	}
	return t, nil
}

func typedColumn(name string, vals []string, null []bool, n int, text bool) Column {
	textual := Column{Name: name, Kind: KindString, Strings: vals, Null: null}
	if n == 0 {
		return Column{Name: name, Kind: KindString}
	}
	if text {
		return textual
	}

	numbers := make([]float64, n)
	seen := false
	for i, v := range vals {
		if null[i] {
			continue
		}
		f, ok := parseNumber(v)
		if !ok {
			return textual
		}
		numbers[i] = f
		seen = true
	}
	if !seen {
		return textual
	}
	return Column{Name: name, Kind: KindNumber, Numbers: numbers, Null: null}
}

// parseNumber accepts only the text formatNumber would write for the value.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || formatNumber(f) != s {
		return 0, false
	}
	return f, true
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// headerNames trims header cells, names blank ones "Unnamed: i" and
// suffixes repeated names with ".1", ".2", ...
func headerNames(row []string) []string {
	out := make([]string, len(row))
	seen := make(map[string]int, len(row))
	for i, h := range row {
		h = norm.NFC.String(strings.TrimSpace(h))
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if n := seen[h]; n > 0 {
			seen[h] = n + 1
			h = fmt.Sprintf("%s.%d", h, n)
		} else {
			seen[h] = 1
		}
		out[i] = h
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
