package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

// Table is an in-memory table with named columns. Rows are positionally
// aligned with Columns; New pads or truncates rows that disagree.
type Table struct {
	Columns []string
	Rows    [][]string
}

func New(columns []string, rows [][]string) Table {
	t := Table{Columns: columns}
	for _, row := range rows {
		t.Rows = append(t.Rows, fitRow(row, len(columns)))
	}
	return t
}

func fitRow(row []string, width int) []string {
	fitted := make([]string, width)
	copy(fitted, row)
	return fitted
}

func (t Table) NumRows() int {
	return len(t.Rows)
}

func (t Table) IsEmpty() bool {
	return len(t.Rows) == 0
}

// Slice returns the row range [lo, hi) as a new table sharing the backing rows.
func (t Table) Slice(lo, hi int) Table {
	if lo < 0 {
		lo = 0
	}
	if hi > len(t.Rows) {
		hi = len(t.Rows)
	}
	return Table{Columns: t.Columns, Rows: t.Rows[lo:hi]}
}

// Head returns the first n rows, or the whole table if it is shorter.
func (t Table) Head(n int) Table {
	return t.Slice(0, n)
}

// ColumnsEqual reports whether the table's columns match target exactly,
// including order.
func (t Table) ColumnsEqual(target []string) bool {
	if len(t.Columns) != len(target) {
		return false
	}
	for i, c := range t.Columns {
		if c != target[i] {
			return false
		}
	}
	return true
}

// Reindex returns a table with exactly the target columns in order. Values
// for columns present in the source carry over; columns the source lacks are
// empty, extra source columns are dropped.
func (t Table) Reindex(target []string) Table {
	srcIdx := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, ok := srcIdx[c]; !ok {
			srcIdx[c] = i
		}
	}

	out := Table{Columns: append([]string(nil), target...)}
	for _, row := range t.Rows {
		newRow := make([]string, len(target))
		for j, c := range target {
			if i, ok := srcIdx[c]; ok && i < len(row) {
				newRow[j] = row[i]
			}
		}
		out.Rows = append(out.Rows, newRow)
	}
	return out
}

// DropEmptyRows removes rows where any field is blank.
func (t Table) DropEmptyRows() Table {
	out := Table{Columns: t.Columns}
	for _, row := range t.Rows {
		keep := true
		for _, v := range row {
			if strings.TrimSpace(v) == "" {
				keep = false
				break
			}
		}
		if keep {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// CSV serializes the table with a header row, the way the chunks are sent to
// the model.
func (t Table) CSV() string {
	var buf strings.Builder
	w := csv.NewWriter(&buf)
	w.Write(t.Columns)
	for _, row := range t.Rows {
		w.Write(row)
	}
	w.Flush()
	return buf.String()
}

// Concat appends the rows of every table in order under the given columns.
// Tables are assumed to already carry exactly those columns.
func Concat(columns []string, tables []Table) Table {
	out := Table{Columns: append([]string(nil), columns...)}
	for _, t := range tables {
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out
}

// Range is a half-open row range [Start, End).
type Range struct {
	Start int
	End   int
}

// ChunkRanges splits n rows into consecutive ranges of at most size rows.
func ChunkRanges(n, size int) []Range {
	if size <= 0 {
		size = 200
	}
	var ranges []Range
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		ranges = append(ranges, Range{Start: lo, End: hi})
	}
	return ranges
}

// ParseCSV parses delimited text with a header row. Records shorter or longer
// than the header are fitted to it, since model output is not always square.
func ParseCSV(text string) (Table, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimSpace(text)))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return Table{}, fmt.Errorf("no header row in csv text")
	}

	header := make([]string, len(records[0]))
	for i, c := range records[0] {
		header[i] = strings.TrimSpace(c)
	}
	return New(header, records[1:]), nil
}

// ReadFile loads a table from disk, dispatching on the file extension.
func ReadFile(path string) (Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv", ".txt":
		return readDelimited(path, ',')
	case ".tsv":
		return readDelimited(path, '\t')
	case ".xlsx":
		return readXLSX(path)
	case ".ods":
		return readODS(path)
	default:
		return Table{}, fmt.Errorf("unsupported table format: %s", ext)
	}
}

func readDelimited(path string, comma rune) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return Table{}, err
	}
	if len(records) == 0 {
		return Table{}, fmt.Errorf("empty table file: %s", path)
	}
	return New(records[0], records[1:]), nil
}

// readXLSX takes the first sheet; the first row is the header.
func readXLSX(path string) (Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return Table{}, err
	}
	if len(f.Sheets) == 0 {
		return Table{}, fmt.Errorf("no sheets in workbook: %s", path)
	}

	var records [][]string
	for _, row := range f.Sheets[0].Rows {
		var rec []string
		for _, cell := range row.Cells {
			rec = append(rec, cell.String())
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return Table{}, fmt.Errorf("empty sheet in workbook: %s", path)
	}
	return New(records[0], records[1:]), nil
}

func readODS(path string) (Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, fmt.Errorf("no sheets in workbook: %s", path)
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, err
	}
	if len(records) == 0 {
		return Table{}, fmt.Errorf("empty sheet in workbook: %s", path)
	}
	return New(records[0], records[1:]), nil
}

// WriteCSV persists the table with a header row.
func WriteCSV(t Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
