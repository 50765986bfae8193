package spreadsheet

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"catalograg/internal/domain"
)

// RequiredColumns lists the header cells every catalog sheet must carry.
var RequiredColumns = []string{
	domain.FieldLabel,
	domain.FieldBrand,
	domain.FieldName,
	domain.FieldPrice,
	domain.FieldRank,
	domain.FieldIngredients,
	domain.FieldCombination,
	domain.FieldDry,
	domain.FieldNormal,
	domain.FieldOily,
	domain.FieldSensitive,
}

// ValidateColumns returns the required columns absent from columns.
func ValidateColumns(columns []string) []string {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[strings.TrimSpace(c)] = struct{}{}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// Table is a parsed sheet: its header and one record per non-empty row.
type Table struct {
	Sheet   string
	Columns []string
	Records []domain.ProductRecord
}

// Reader loads product rows from XLSX workbooks.
type Reader struct {
	sheet string
}

// NewReader returns a reader for the named sheet; empty selects the first sheet.
func NewReader(sheet string) *Reader {
	return &Reader{sheet: sheet}
}

func (r *Reader) ReadRecords(path string) ([]domain.ProductRecord, error) {
	table, err := r.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return table.Records, nil
}

// ReadFile parses the workbook at path and validates its header.
func (r *Reader) ReadFile(path string) (*Table, error) {
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return nil, fmt.Errorf("%w: only .xlsx workbooks are supported: %s", domain.ErrValidation, path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook %s: %v", domain.ErrValidation, path, err)
	}
	defer f.Close()

	return r.read(f)
}

// Read parses a workbook from a stream, such as an HTTP upload.
func (r *Reader) Read(src io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read workbook: %v", domain.ErrValidation, err)
	}
	defer f.Close()

	return r.read(f)
}

func (r *Reader) read(f *excelize.File) (*Table, error) {
	sheet := r.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", domain.ErrValidation)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %q: %v", domain.ErrValidation, sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", domain.ErrValidation, sheet)
	}

	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = strings.TrimSpace(cell)
	}
	if missing := ValidateColumns(header); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns: %s", domain.ErrValidation, strings.Join(missing, ", "))
	}

	table := &Table{Sheet: sheet, Columns: header}
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		record := make(domain.ProductRecord, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			// GetRows trims trailing empty cells, so short rows are normal.
			if i < len(row) {
				record[col] = row[i]
			} else {
				record[col] = ""
			}
		}
		table.Records = append(table.Records, record)
	}
	return table, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
