package sheetimport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook is an opened source workbook
type Workbook struct {
	file   *excelize.File
	source string
	sheets map[string]string // lower-cased name -> actual name
}

// OpenWorkbook opens a workbook from disk. A missing file returns
// ErrSourceNotFound before anything else is read.
func OpenWorkbook(path string) (*Workbook, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat workbook: %w", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	return newWorkbook(f, path), nil
}

// OpenWorkbookReader opens a workbook from a stream
func OpenWorkbookReader(r io.Reader, source string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", source, err)
	}
	return newWorkbook(f, source), nil
}

func newWorkbook(f *excelize.File, source string) *Workbook {
	w := &Workbook{file: f, source: source, sheets: make(map[string]string)}
	for _, name := range f.GetSheetList() {
		w.sheets[strings.ToLower(strings.TrimSpace(name))] = name
	}
	return w
}

// Source returns the path or name the workbook was opened from
func (w *Workbook) Source() string {
	return w.source
}

// Close releases the workbook
func (w *Workbook) Close() error {
	return w.file.Close()
}

// HasSheet checks if a sheet exists, ignoring case
func (w *Workbook) HasSheet(name string) bool {
	_, ok := w.sheets[strings.ToLower(name)]
	return ok
}

// ValidateContracts checks every contract up front so a malformed workbook
// fails before any phase starts
func (w *Workbook) ValidateContracts(contracts []SheetContract) error {
	cerr := &ContractError{MissingColumns: make(map[string][]string)}
	for _, c := range contracts {
		if !w.HasSheet(c.Name) {
			if !c.OptionalSheet {
				cerr.MissingSheets = append(cerr.MissingSheets, c.Name)
			}
			continue
		}
		reader, err := w.Open(c)
		if err != nil {
			if errors.Is(err, ErrMissingColumns) || errors.Is(err, ErrMissingHeader) {
				cerr.MissingColumns[c.Name] = c.Required
				if reader != nil {
					cerr.MissingColumns[c.Name] = reader.ValidateHeaders(c.Required)
				}
				continue
			}
			return err
		}
		_ = reader.Close()
	}
	if len(cerr.MissingSheets) == 0 && len(cerr.MissingColumns) == 0 {
		return nil
	}
	return cerr
}

// Open returns a streaming reader for a sheet with its header parsed and
// checked against the contract
func (w *Workbook) Open(contract SheetContract) (*SheetReader, error) {
	name, ok := w.sheets[strings.ToLower(contract.Name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetMissing, contract.Name)
	}
	rows, err := w.file.Rows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}
	reader := &SheetReader{
		name:      contract.Name,
		rows:      rows,
		headerMap: make(map[string]int),
	}
	if err := reader.ParseHeader(); err != nil {
		_ = reader.Close()
		return nil, err
	}
	if missing := reader.ValidateHeaders(contract.Required); len(missing) > 0 {
		_ = reader.Close()
		return reader, fmt.Errorf("%w: %s: %s", ErrMissingColumns, contract.Name, strings.Join(missing, ", "))
	}
	return reader, nil
}

// ReadSheet reads every non-empty row of a sheet
func (w *Workbook) ReadSheet(contract SheetContract) ([]*Row, error) {
	reader, err := w.Open(contract)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return reader.ReadAllRows()
}

// SheetReader streams the rows of one sheet
type SheetReader struct {
	name       string
	rows       *excelize.Rows
	headerMap  map[string]int
	currentRow int
}

// ParseHeader reads and parses the header row
func (r *SheetReader) ParseHeader() error {
	if !r.rows.Next() {
		if err := r.rows.Error(); err != nil {
			return fmt.Errorf("failed to read header of %s: %w", r.name, err)
		}
		return fmt.Errorf("%w: %s", ErrMissingHeader, r.name)
	}
	record, err := r.rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", r.name, err)
	}
	r.currentRow = 1

	for i, h := range record {
		if header := strings.TrimSpace(h); header != "" {
			r.headerMap[strings.ToLower(header)] = i
		}
	}
	if len(r.headerMap) == 0 {
		return fmt.Errorf("%w: %s", ErrMissingHeader, r.name)
	}
	return nil
}

// HasHeader checks if a header exists, ignoring case
func (r *SheetReader) HasHeader(name string) bool {
	_, ok := r.headerMap[strings.ToLower(name)]
	return ok
}

// ValidateHeaders returns the required headers that are missing
func (r *SheetReader) ValidateHeaders(required []string) []string {
	var missing []string
	for _, h := range required {
		if !r.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// ReadRow reads the next row. It returns io.EOF after the last row.
func (r *SheetReader) ReadRow() (*Row, error) {
	if !r.rows.Next() {
		if err := r.rows.Error(); err != nil {
			return nil, fmt.Errorf("error reading %s row %d: %w", r.name, r.currentRow+1, err)
		}
		return nil, io.EOF
	}
	r.currentRow++
	record, err := r.rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("error reading %s row %d: %w", r.name, r.currentRow, err)
	}

	row := &Row{
		Sheet:      r.name,
		LineNumber: r.currentRow,
		Data:       make(map[string]string, len(r.headerMap)),
	}
	for key, i := range r.headerMap {
		if i < len(record) {
			row.Data[key] = strings.TrimSpace(record[i])
		} else {
			row.Data[key] = ""
		}
	}
	return row, nil
}

// ReadAllRows reads all remaining rows, skipping empty ones
func (r *SheetReader) ReadAllRows() ([]*Row, error) {
	var rows []*Row
	for {
		row, err := r.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, err
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Close releases the row iterator
func (r *SheetReader) Close() error {
	return r.rows.Close()
}

// Row represents one sheet row. Data is keyed by lower-cased header.
type Row struct {
	Sheet      string
	LineNumber int
	Data       map[string]string
}

// Get returns the value for a column by header name, ignoring case
func (r *Row) Get(header string) string {
	return r.Data[strings.ToLower(header)]
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}
