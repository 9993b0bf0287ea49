package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
)

// placeholderPrefix names columns whose header cell is blank. The sheet
// keeps its shape without inventing field names; normalization drops
// placeholder columns later.
const placeholderPrefix = "__EMPTY"

type fileFormat int

const (
	formatUnknown fileFormat = iota
	formatWorkbook
	formatCSV
	formatJSON
	formatText
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse reads an upload into raw rows. Workbooks and CSV files use their
// first row as the header row. Plain-text and PDF uploads carry no
// tabular structure this service extracts; their content is wrapped in
// placeholder columns so the pipeline rejects them with a clear message
// instead of guessing.
func (p *Parser) Parse(ctx context.Context, filename, mimeType string, data io.Reader) ([]domain.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	switch detectFormat(filename, mimeType) {
	case formatWorkbook:
		return parseWorkbook(raw)
	case formatCSV:
		return parseCSV(raw)
	case formatJSON:
		return parseJSON(raw)
	case formatText:
		return parseLines(raw), nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "detect file format",
			fmt.Errorf("unsupported file type %q (%s)", filepath.Ext(filename), mimeType))
	}
}

func detectFormat(filename, mimeType string) fileFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xls":
		return formatWorkbook
	case ".csv":
		return formatCSV
	case ".json":
		return formatJSON
	case ".txt", ".pdf":
		return formatText
	}

	mime := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mime, "spreadsheetml"), strings.Contains(mime, "ms-excel"):
		return formatWorkbook
	case strings.Contains(mime, "csv"):
		return formatCSV
	case strings.Contains(mime, "json"):
		return formatJSON
	case strings.Contains(mime, "text/plain"), strings.Contains(mime, "pdf"):
		return formatText
	}
	return formatUnknown
}

func parseWorkbook(raw []byte) ([]domain.RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open workbook", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open workbook", errors.New("workbook has no sheets"))
	}

	table, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return tableToRows(table), nil
}

func parseCSV(raw []byte) ([]domain.RawRow, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = detectDelimiter(raw)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var table [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read csv", err)
		}
		table = append(table, record)
	}
	return tableToRows(table), nil
}

// detectDelimiter prefers semicolons when the header line carries more
// of them than commas. Supplier exports from German ERP systems are
// semicolon-separated almost exclusively.
func detectDelimiter(raw []byte) rune {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func parseJSON(raw []byte) ([]domain.RawRow, error) {
	var rows []domain.RawRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode json rows", err)
	}
	return rows, nil
}

func parseLines(raw []byte) []domain.RawRow {
	var rows []domain.RawRow
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rows = append(rows, domain.RawRow{Cells: []domain.Pair{{Name: placeholderPrefix, Value: line}}})
	}
	return rows
}

// tableToRows pairs every data line with the header names from the first
// row. Lines with nothing but blank cells are dropped; blank cells under
// a named column are kept so empty fields still reach the classifier.
func tableToRows(table [][]string) []domain.RawRow {
	if len(table) == 0 {
		return nil
	}
	headers := headerNames(table[0])

	rows := make([]domain.RawRow, 0, len(table)-1)
	for _, line := range table[1:] {
		if lineEmpty(line) {
			continue
		}
		cells := make([]domain.Pair, 0, len(headers))
		for i, name := range headers {
			value := ""
			if i < len(line) {
				value = strings.TrimSpace(line[i])
			}
			cells = append(cells, domain.Pair{Name: name, Value: value})
		}
		rows = append(rows, domain.RawRow{Cells: cells})
	}
	return rows
}

func headerNames(header []string) []string {
	names := make([]string, len(header))
	blanks := 0
	for i, cell := range header {
		name := strings.TrimSpace(cell)
		if name == "" {
			if blanks == 0 {
				name = placeholderPrefix
			} else {
				name = fmt.Sprintf("%s_%d", placeholderPrefix, blanks)
			}
			blanks++
		}
		names[i] = name
	}
	return names
}

func lineEmpty(line []string) bool {
	for _, v := range line {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
