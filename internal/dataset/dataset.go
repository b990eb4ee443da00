package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Dataset is one tabular input file held in memory, read-only after Load.
type Dataset struct {
	Name    string // file name, e.g. prices.csv
	Path    string
	Columns []string
	Rows    [][]string

	schema []ColumnInfo
}

// Options controls loading.
type Options struct {
	// MaxRows limits rows kept; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, sniffed from the extension and header line.
	Delimiter rune
	// Sheet selects an XLSX worksheet by name; empty means the first sheet.
	Sheet string
}

var (
	// ErrEmptyDataset is returned for files without a header row.
	ErrEmptyDataset = errors.New("dataset has no header row")
	// ErrUnsupportedDataset is returned for extensions Load cannot read.
	ErrUnsupportedDataset = errors.New("unsupported dataset format")
)

// Extensions lists the file extensions treated as datasets.
var Extensions = []string{".csv", ".tsv", ".xlsx"}

// IsDataset reports whether the file name has a dataset extension.
func IsDataset(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Discover returns the dataset files directly inside dir, sorted by name.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dataset dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || strings.HasPrefix(e.Name(), "~$") {
			continue
		}
		if IsDataset(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Load reads a CSV, TSV or XLSX file.
func Load(path string, opt Options) (*Dataset, error) {
	var (
		header []string
		rows   [][]string
		err    error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		header, rows, err = readCSV(path, opt)
	case ".xlsx":
		header, rows, err = readXLSX(path, opt)
	default:
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedDataset)
	}
	if err != nil {
		return nil, err
	}
	return newDataset(path, header, rows), nil
}

// New builds an in-memory dataset, mostly for tests and uploads.
func New(name string, header []string, rows [][]string) *Dataset {
	return newDataset(name, header, rows)
}

func newDataset(path string, header []string, rows [][]string) *Dataset {
	ncol := len(header)
	cols := make([]string, ncol)
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}
	norm := make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, ncol)
		copy(row, r)
		norm[i] = row
	}
	d := &Dataset{Name: filepath.Base(path), Path: path, Columns: cols, Rows: norm}
	d.schema = inferSchema(cols, norm)
	return d
}

func readCSV(path string, opt Options) ([]string, [][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path, data)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyDataset)
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyDataset)
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		if opt.MaxRows > 0 && len(rows) >= opt.MaxRows {
			break
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

// sniffDelimiter picks tab for .tsv, otherwise the most frequent of
// ',', ';', '\t' in the header line (comma on ties).
func sniffDelimiter(path string, data []byte) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	line, _ := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	best, bestN := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(line, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

func readXLSX(path string, opt Options) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyDataset)
	}
	sheet := sheets[0]
	if opt.Sheet != "" {
		sheet = ""
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return nil, nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				opt.Sheet, filepath.Base(path), strings.Join(sheets, ", "))
		}
	}
	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	// skip leading blank rows
	for len(all) > 0 && isBlankRow(all[0]) {
		all = all[1:]
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyDataset)
	}
	rows := all[1:]
	if opt.MaxRows > 0 && len(rows) > opt.MaxRows {
		rows = rows[:opt.MaxRows]
	}
	return all[0], rows, nil
}

func isBlankRow(r []string) bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Stem returns the file name without extension.
func (d *Dataset) Stem() string {
	return strings.TrimSuffix(d.Name, filepath.Ext(d.Name))
}

// SafeBaseName is the stem with characters illegal in file names replaced by '_'.
func (d *Dataset) SafeBaseName() string { return SafeBaseName(d.Stem()) }

// SafeBaseName replaces \ / * ? : " < > | with '_'.
func SafeBaseName(s string) string {
	return unsafeChars.Replace(s)
}

var unsafeChars = strings.NewReplacer(`\`, "_", "/", "_", "*", "_", "?", "_", ":", "_", `"`, "_", "<", "_", ">", "_", "|", "_")

// WriteCSV exports the dataset as comma-separated UTF-8 with a header row.
func (d *Dataset) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(d.Columns); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(d.Rows); err != nil {
		f.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	return f.Close()
}
