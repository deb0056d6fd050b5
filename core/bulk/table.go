package bulk

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/officialmikal/elimusmart/core"
)

// file formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var (
	// errors
	ErrEmptyFile     = errors.New("the file has no header row")
	ErrUnknownFormat = errors.New("unsupported file format, upload a .csv or .xlsx file")
)

// DetectFormat guesses the file format from its name, defaulting to CSV.
func DetectFormat(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case "", ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", ErrUnknownFormat
}

// table is a parsed file: the header row then the records.
type table struct {
	header []string
	rows   [][]string
}

func readTable(r io.Reader, format string) (*table, error) {
	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatCSV:
		rdr := csv.NewReader(r)
		rdr.FieldsPerRecord = -1
		rdr.TrimLeadingSpace = true
		records, err = rdr.ReadAll()
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, invalidFile("invalid CSV", err)
			}
			return nil, errors.Wrap(err, "reading CSV")
		}
	case FormatXLSX:
		records, err = readSheet(r)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnknownFormat
	}

	// skip leading blank lines
	for len(records) > 0 && isBlank(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff") // Excel's UTF-8 BOM
	}
	return &table{header: header, rows: records[1:]}, nil
}

// readSheet reads the rows of the first sheet of an XLSX workbook.
func readSheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, invalidFile("invalid XLSX", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, invalidFile("invalid XLSX sheet "+sheet, err)
	}
	return rows, nil
}

// invalidFile reports a file that could not be parsed as a "file" field error.
func invalidFile(msg string, err error) error {
	return core.NewValidationError(err, core.FieldError{Field: "file", Error: msg + ": " + err.Error()})
}

// columns maps the fields of an entity to their column index, -1 if absent.
type columns map[string]int

// resolve matches the header cells against the aliases of each field,
// ignoring case, spaces, dashes, dots & underscores.
func resolve(header []string, aliases map[string][]string) columns {
	norm := make(map[string]int, len(header))
	for i, h := range header {
		if key := normalize(h); key != "" {
			if _, dup := norm[key]; !dup {
				norm[key] = i
			}
		}
	}
	cols := make(columns, len(aliases))
	for field, names := range aliases {
		cols[field] = -1
		for _, name := range names {
			if idx, ok := norm[normalize(name)]; ok {
				cols[field] = idx
				break
			}
		}
	}
	return cols
}

func (c columns) has(field string) bool {
	return c[field] >= 0
}

// get returns the trimmed cell of field in row, "" if the column or cell is missing.
func (c columns) get(row []string, field string) string {
	idx, ok := c[field]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func normalize(s string) string {
	return strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "", ".", "", "\ufeff", "").Replace(strings.TrimSpace(s)))
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// writeTable writes header & rows in the given format.
func writeTable(w io.Writer, format, sheet string, header []string, rows [][]string) error {
	switch format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return errors.Wrap(err, "writing CSV header")
		}
		if err := cw.WriteAll(rows); err != nil {
			return errors.Wrap(err, "writing CSV")
		}
		return nil
	case FormatXLSX:
		return writeSheet(w, sheet, header, rows)
	}
	return ErrUnknownFormat
}

func writeSheet(w io.Writer, sheet string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	write := func(i int, cells []string) error {
		vals := make([]interface{}, len(cells))
		for j, c := range cells {
			vals[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &vals)
	}
	if err := write(0, header); err != nil {
		return errors.Wrap(err, "writing XLSX header")
	}
	for i, row := range rows {
		if err := write(i+1, row); err != nil {
			return errors.Wrapf(err, "writing XLSX row %d", i+2)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing XLSX")
	}
	return nil
}
