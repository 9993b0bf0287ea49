package usecase

import (
	"regexp"
	"strings"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
)

// minLayoutRows is the cutoff below which layout detection is skipped
// entirely and the sheet is read as a flat table.
const minLayoutRows = 3

type NormalizeUseCase struct {
	vocab domain.Vocabulary
}

func NewNormalizeUseCase(vocab domain.Vocabulary) *NormalizeUseCase {
	return &NormalizeUseCase{vocab: vocab}
}

// Normalize collapses raw parsed rows into source records, detecting the
// layout in fixed precedence: transposed key-value list, label/value
// template, flat table. Ambiguous sheets degrade to the flat reading
// rather than failing.
func (uc *NormalizeUseCase) Normalize(rows []domain.RawRow) domain.NormalizedSheet {
	if len(rows) >= minLayoutRows {
		if sheet, ok := uc.normalizeTransposed(rows); ok {
			return sheet
		}
		if sheet, ok := uc.normalizeTemplate(rows); ok {
			return sheet
		}
	}
	return uc.normalizeFlat(rows)
}

// normalizeTransposed reads sheets whose fields run down a single column,
// values alternating with field names. A description marker token ends
// the pairing; everything after it is description text, assigned to the
// collected fields in order.
//
// The alternation heuristic takes any recognized token for a field name,
// so a value that itself contains a field keyword starts a new field
// instead of completing the previous one. Known limitation, kept as is.
func (uc *NormalizeUseCase) normalizeTransposed(rows []domain.RawRow) (domain.NormalizedSheet, bool) {
	tokens, ok := singleColumnTokens(rows)
	if !ok {
		return domain.NormalizedSheet{}, false
	}

	recognized := 0
	for _, tok := range tokens {
		if uc.vocab.IsDescriptionMarker(tok) {
			break
		}
		if uc.vocab.IsFieldName(tok) {
			recognized++
		}
	}
	if recognized == 0 {
		return domain.NormalizedSheet{}, false
	}

	var fields []domain.Pair
	var fieldOrder []string
	descriptions := make(map[string]string)
	descIndex := 0
	inDescriptions := false

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if inDescriptions {
			if descIndex < len(fieldOrder) {
				descriptions[fieldOrder[descIndex]] = tok
				descIndex++
			}
			continue
		}
		if uc.vocab.IsDescriptionMarker(tok) {
			inDescriptions = true
			continue
		}
		if !uc.vocab.IsFieldName(tok) {
			// Stray value without a preceding field name.
			continue
		}
		value := ""
		if i+1 < len(tokens) {
			next := tokens[i+1]
			if !uc.vocab.IsDescriptionMarker(next) && !uc.vocab.IsFieldName(next) {
				value = next
				i++
			}
		}
		fields = append(fields, domain.Pair{Name: tok, Value: value})
		fieldOrder = append(fieldOrder, tok)
	}

	if len(fields) == 0 {
		return domain.NormalizedSheet{}, false
	}
	sheet := domain.NormalizedSheet{
		Records: []domain.SourceRecord{{Fields: fields}},
		Layout:  domain.LayoutTransposed,
	}
	if len(descriptions) > 0 {
		sheet.FieldDescriptions = descriptions
	}
	return sheet, true
}

// normalizeTemplate reads the supplier template: field names in the
// second row, one value per name in the third, and optionally a
// description section headed by a marker in the fifth row with two rows
// of wrapped description text below it, joined per column.
func (uc *NormalizeUseCase) normalizeTemplate(rows []domain.RawRow) (domain.NormalizedSheet, bool) {
	nameRow := rows[1]

	recognized := 0
	for _, cell := range nameRow.Cells {
		if uc.vocab.IsFieldName(cell.Value) {
			recognized++
		}
	}
	if recognized < 2 {
		return domain.NormalizedSheet{}, false
	}

	valueByColumn := make(map[string]string, len(rows[2].Cells))
	for _, cell := range rows[2].Cells {
		valueByColumn[cell.Name] = cell.Value
	}

	var fields []domain.Pair
	fieldByColumn := make(map[string]string, len(nameRow.Cells))
	for _, cell := range nameRow.Cells {
		name := strings.TrimSpace(cell.Value)
		if name == "" {
			continue
		}
		fields = append(fields, domain.Pair{Name: name, Value: valueByColumn[cell.Name]})
		fieldByColumn[cell.Name] = name
	}
	if len(fields) == 0 {
		return domain.NormalizedSheet{}, false
	}

	sheet := domain.NormalizedSheet{
		Records: []domain.SourceRecord{{Fields: fields}},
		Layout:  domain.LayoutTemplate,
	}

	if len(rows) >= 6 && uc.rowHasDescriptionMarker(rows[4]) {
		end := 7
		if len(rows) < end {
			end = len(rows)
		}
		descriptions := make(map[string]string)
		for column, field := range fieldByColumn {
			var segments []string
			for _, descRow := range rows[5:end] {
				if v, ok := rowValue(descRow, column); ok && strings.TrimSpace(v) != "" {
					segments = append(segments, strings.TrimSpace(v))
				}
			}
			if len(segments) > 0 {
				descriptions[field] = strings.Join(segments, " ")
			}
		}
		if len(descriptions) > 0 {
			sheet.FieldDescriptions = descriptions
		}
	}
	return sheet, true
}

// normalizeFlat treats every row as one record. Placeholder column keys
// are dropped, empty values are kept so blank fields still reach the
// classifier.
func (uc *NormalizeUseCase) normalizeFlat(rows []domain.RawRow) domain.NormalizedSheet {
	records := make([]domain.SourceRecord, 0, len(rows))
	for _, row := range rows {
		fields := make([]domain.Pair, 0, len(row.Cells))
		for _, cell := range row.Cells {
			if isPlaceholderColumn(cell.Name) {
				continue
			}
			fields = append(fields, domain.Pair{Name: cell.Name, Value: cell.Value})
		}
		if len(fields) == 0 {
			continue
		}
		records = append(records, domain.SourceRecord{Fields: fields})
	}
	return domain.NormalizedSheet{Records: records, Layout: domain.LayoutFlat}
}

func (uc *NormalizeUseCase) rowHasDescriptionMarker(row domain.RawRow) bool {
	for _, cell := range row.Cells {
		if uc.vocab.IsDescriptionMarker(cell.Value) {
			return true
		}
	}
	return false
}

// singleColumnTokens returns the non-empty values of a sheet that uses
// one consistently named column, in row order.
func singleColumnTokens(rows []domain.RawRow) ([]string, bool) {
	column := ""
	tokens := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row.Cells) != 1 {
			return nil, false
		}
		cell := row.Cells[0]
		if column == "" {
			column = cell.Name
		} else if cell.Name != column {
			return nil, false
		}
		value := strings.TrimSpace(cell.Value)
		if value == "" {
			continue
		}
		tokens = append(tokens, value)
	}
	return tokens, len(tokens) > 0
}

var placeholderColumn = regexp.MustCompile(`^__EMPTY(_\d+)?$`)

func isPlaceholderColumn(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed == "" || placeholderColumn.MatchString(trimmed)
}

func rowValue(row domain.RawRow, column string) (string, bool) {
	for _, cell := range row.Cells {
		if cell.Name == column {
			return cell.Value, true
		}
	}
	return "", false
}
