package usecase

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
)

// mappingPayload is the wire shape the inference service is instructed to
// return. Key names follow the prompt contract, not the host API.
type mappingPayload struct {
	Mappings []rawMappingEntry `json:"mappings"`
}

// rawMappingEntry keeps numeric and boolean fields as pointers so the
// validator can tell an absent key from a zero value.
type rawMappingEntry struct {
	SourceField string   `json:"sourceField"`
	TargetField string   `json:"targetField"`
	Confidence  *float64 `json:"confidence"`
	Reason      string   `json:"reason"`
	IsRequired  *bool    `json:"isRequired"`
	IsOptional  *bool    `json:"isOptional"`
}

// repairMappingPayload recovers a mappings payload from raw inference
// output. The service occasionally wraps its JSON in prose or markdown
// fences, or truncates it mid-entry; the strategies below run in order
// and keep every fully-formed entry they can. Already valid input passes
// through unchanged. The second return names the stage that produced the
// payload, for the repair outcome counter.
func repairMappingPayload(raw string) (mappingPayload, string, error) {
	const operation = "repair inference response"

	text := strings.TrimSpace(raw)
	if text == "" {
		return mappingPayload{}, domain.RepairStageFailed, domain.WrapError(domain.ErrResponseUnparsable, operation, errors.New("empty response"))
	}

	text = stripCodeFence(text)
	text = sliceToBraces(text)

	if payload, ok := parseMappingPayload(text); ok {
		return payload, domain.RepairStageDirect, nil
	}
	if payload, ok := parseMappingPayload(repairStructure(text)); ok {
		return payload, domain.RepairStageRepaired, nil
	}
	if payload, ok := extractMappingsArray(text); ok {
		return payload, domain.RepairStageExtracted, nil
	}
	return mappingPayload{}, domain.RepairStageFailed, domain.WrapError(domain.ErrResponseUnparsable, operation, errors.New("no recoverable mappings structure"))
}

// stripCodeFence extracts the body of a ```json fence. A missing closing
// fence means the response was cut off, so everything after the opening
// fence is kept.
func stripCodeFence(text string) string {
	const openFence = "```json"
	start := strings.Index(text, openFence)
	if start < 0 {
		return text
	}
	body := text[start+len(openFence):]
	if end := strings.Index(body, "```"); end >= 0 {
		return strings.TrimSpace(body[:end])
	}
	return strings.TrimSpace(body)
}

// sliceToBraces cuts surrounding prose off a response that carries the
// object somewhere inside.
func sliceToBraces(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") {
		return text
	}
	first := strings.IndexByte(text, '{')
	if first < 0 {
		return text
	}
	last := strings.LastIndexByte(text, '}')
	if last > first {
		return text[first : last+1]
	}
	return text[first:]
}

func parseMappingPayload(text string) (mappingPayload, bool) {
	var payload mappingPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return mappingPayload{}, false
	}
	return payload, true
}

// repairStructure applies exactly one structural fix: the cheap
// truncated-tail repairs first, the balanced-entry scan second, an empty
// mappings object when the key is missing entirely.
func repairStructure(text string) string {
	if fixed, ok := fixTruncatedTail(text); ok {
		return fixed
	}
	if entries := completeMappingEntries(text); len(entries) > 0 {
		return `{"mappings":[` + strings.Join(entries, ",") + `]}`
	}
	if !strings.Contains(text, `"mappings"`) {
		return `{"mappings":[]}`
	}
	return text
}

// fixTruncatedTail repairs responses cut off right around the closing
// tokens: a dangling comma before them, a forgotten array close, or a
// cut directly after a complete entry's comma.
func fixTruncatedTail(text string) (string, bool) {
	trimmed := strings.TrimRight(text, " \t\r\n")
	switch {
	case strings.HasSuffix(trimmed, ",]}"):
		return strings.TrimSuffix(trimmed, ",]}") + "]}", true
	case strings.HasSuffix(trimmed, ",}"):
		return strings.TrimSuffix(trimmed, ",}") + "]}", true
	case strings.HasSuffix(trimmed, "},"):
		return strings.TrimSuffix(trimmed, ",") + "]}", true
	}
	return "", false
}

// completeMappingEntries collects every balanced {...} span that carries
// a sourceField key, skipping the truncated remainder. Braces inside
// string values are ignored.
func completeMappingEntries(text string) []string {
	arrStart := strings.Index(text, "[")
	if arrStart < 0 {
		return nil
	}

	var entries []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := arrStart; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				span := text[start : i+1]
				if strings.Contains(span, `"sourceField"`) {
					entries = append(entries, span)
				}
				start = -1
			}
		}
	}
	return entries
}

var mappingsArrayRe = regexp.MustCompile(`"mappings"\s*:\s*\[([\s\S]*?)\]`)

// extractMappingsArray is the last resort: pull whatever sits between
// "mappings":[ and the next ] and wrap it in a minimal object.
func extractMappingsArray(text string) (mappingPayload, bool) {
	m := mappingsArrayRe.FindStringSubmatch(text)
	if m == nil {
		return mappingPayload{}, false
	}
	return parseMappingPayload(`{"mappings":[` + m[1] + `]}`)
}
