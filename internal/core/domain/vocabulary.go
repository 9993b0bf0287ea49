package domain

import "strings"

type PatternKind string

const (
	PatternSubstring PatternKind = "substring"
	PatternExact     PatternKind = "exact"
)

// FieldNamePattern is one entry of the heuristic vocabulary used to decide
// whether a free-standing token names a product field.
type FieldNamePattern struct {
	Kind  PatternKind `yaml:"kind" json:"kind"`
	Value string      `yaml:"value" json:"value"`
}

func (p FieldNamePattern) Matches(token string) bool {
	lower := strings.ToLower(strings.TrimSpace(token))
	switch p.Kind {
	case PatternExact:
		return lower == p.Value
	default:
		return strings.Contains(lower, p.Value)
	}
}

// SynonymRule maps lowercase substring patterns to one canonical target
// field name. Rule order is significant: the first match wins.
type SynonymRule struct {
	Target   string   `yaml:"target" json:"target"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

// Vocabulary bundles every heuristic table the normalizer and the
// similarity fallback consult. It is loaded from configuration so the
// tables can be extended without touching the detection logic.
type Vocabulary struct {
	FieldNamePatterns  []FieldNamePattern `yaml:"field_name_patterns" json:"field_name_patterns"`
	DescriptionMarkers []string           `yaml:"description_markers" json:"description_markers"`
	SynonymRules       []SynonymRule      `yaml:"synonym_rules" json:"synonym_rules"`
	DefaultCatalog     []TargetField      `yaml:"default_catalog" json:"default_catalog"`
}

// IsFieldName reports whether the token looks like a product field name.
func (v Vocabulary) IsFieldName(token string) bool {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return false
	}
	for _, p := range v.FieldNamePatterns {
		if p.Matches(trimmed) {
			return true
		}
	}
	return false
}

// IsDescriptionMarker reports whether the token opens a description
// section. Markers take precedence over field-name recognition.
func (v Vocabulary) IsDescriptionMarker(token string) bool {
	lower := strings.ToLower(strings.TrimSpace(token))
	if lower == "" {
		return false
	}
	for _, marker := range v.DescriptionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// DefaultVocabulary is the built-in bilingual table set, used when no
// vocabulary file is configured.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		FieldNamePatterns: []FieldNamePattern{
			{Kind: PatternSubstring, Value: "artikel"},
			{Kind: PatternSubstring, Value: "article"},
			{Kind: PatternSubstring, Value: "sku"},
			{Kind: PatternSubstring, Value: "ean"},
			{Kind: PatternSubstring, Value: "gtin"},
			{Kind: PatternSubstring, Value: "barcode"},
			{Kind: PatternSubstring, Value: "nummer"},
			{Kind: PatternSubstring, Value: "number"},
			{Kind: PatternSubstring, Value: "name"},
			{Kind: PatternSubstring, Value: "bezeichnung"},
			{Kind: PatternSubstring, Value: "beschreibung"},
			{Kind: PatternSubstring, Value: "description"},
			{Kind: PatternSubstring, Value: "titel"},
			{Kind: PatternSubstring, Value: "title"},
			{Kind: PatternSubstring, Value: "preis"},
			{Kind: PatternSubstring, Value: "price"},
			{Kind: PatternSubstring, Value: "srp"},
			{Kind: PatternSubstring, Value: "uvp"},
			{Kind: PatternSubstring, Value: "hersteller"},
			{Kind: PatternSubstring, Value: "manufacturer"},
			{Kind: PatternSubstring, Value: "marke"},
			{Kind: PatternSubstring, Value: "brand"},
			{Kind: PatternSubstring, Value: "gewicht"},
			{Kind: PatternSubstring, Value: "weight"},
			{Kind: PatternSubstring, Value: "farbe"},
			{Kind: PatternSubstring, Value: "colour"},
			{Kind: PatternSubstring, Value: "color"},
			{Kind: PatternSubstring, Value: "material"},
			{Kind: PatternSubstring, Value: "menge"},
			{Kind: PatternSubstring, Value: "quantity"},
			{Kind: PatternSubstring, Value: "einheit"},
			{Kind: PatternSubstring, Value: "unit"},
			{Kind: PatternSubstring, Value: "kategorie"},
			{Kind: PatternSubstring, Value: "category"},
			{Kind: PatternSubstring, Value: "lieferant"},
			{Kind: PatternSubstring, Value: "supplier"},
			{Kind: PatternExact, Value: "id"},
			{Kind: PatternExact, Value: "nr"},
			{Kind: PatternExact, Value: "no"},
			{Kind: PatternExact, Value: "pos"},
		},
		DescriptionMarkers: []string{
			"beschreibung",
			"description",
		},
		SynonymRules: []SynonymRule{
			{Target: "Article Number/SKU", Patterns: []string{"sku", "artikelnummer", "article number", "artikel-nr", "item number"}},
			{Target: "EAN/GTIN", Patterns: []string{"ean", "gtin", "barcode"}},
			{Target: "Product Name", Patterns: []string{"product name", "produktname", "artikelname", "bezeichnung", "titel", "title"}},
			{Target: "Description", Patterns: []string{"beschreibung", "description", "langtext", "long text"}},
			{Target: "Initial Suggested Retail Price (SRP) EU", Patterns: []string{"price", "preis", "srp", "uvp"}},
			{Target: "Purchase Price EU", Patterns: []string{"einkauf", "purchase", "cost"}},
			{Target: "Manufacturer/Brand", Patterns: []string{"hersteller", "manufacturer", "marke", "brand"}},
			{Target: "Weight (kg)", Patterns: []string{"gewicht", "weight", "kg"}},
			{Target: "Color", Patterns: []string{"farbe", "colour", "color"}},
			{Target: "Material", Patterns: []string{"material"}},
			{Target: "Quantity/Unit", Patterns: []string{"menge", "quantity", "einheit", "unit", "vpe"}},
			{Target: "Category", Patterns: []string{"kategorie", "category", "warengruppe"}},
			{Target: "Supplier", Patterns: []string{"lieferant", "supplier", "vendor"}},
		},
		DefaultCatalog: []TargetField{
			{Name: "Article Number/SKU", Description: "Unique article identifier used by the supplier."},
			{Name: "EAN/GTIN", Description: "European article number or global trade item number."},
			{Name: "Product Name", Description: "Short product title."},
			{Name: "Description", Description: "Free-text product description."},
			{Name: "Initial Suggested Retail Price (SRP) EU", Description: "Suggested retail price for the EU market."},
			{Name: "Purchase Price EU", Description: "Net purchase price for the EU market."},
			{Name: "Manufacturer/Brand", Description: "Producing manufacturer or brand name."},
			{Name: "Weight (kg)", Description: "Gross weight in kilograms."},
			{Name: "Color", Description: "Primary product color."},
			{Name: "Material", Description: "Primary product material."},
			{Name: "Quantity/Unit", Description: "Packaging quantity and unit."},
			{Name: "Category", Description: "Product category or group."},
			{Name: "Supplier", Description: "Supplying vendor."},
		},
	}
}
