package domain

// TargetField is one entry of the externally supplied target catalog.
type TargetField struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// MappingResult is the decision for one source field. Exactly one of
// IsRequired/IsOptional is true after post-processing.
type MappingResult struct {
	SourceField string  `json:"source_field"`
	TargetField string  `json:"target_field"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
	IsRequired  bool    `json:"is_required"`
	IsOptional  bool    `json:"is_optional"`
}

type MappingRequest struct {
	SourceFields      []string          `json:"source_fields"`
	TargetFields      []TargetField     `json:"target_fields,omitempty"`
	FieldDescriptions map[string]string `json:"field_descriptions,omitempty"`
}

type MappingStrategy string

const (
	StrategyInference  MappingStrategy = "inference"
	StrategySimilarity MappingStrategy = "similarity"
)

// MappingOutcome carries the result set plus a short diagnostic for the UI
// when the similarity fallback had to stand in for inference.
type MappingOutcome struct {
	Results    []MappingResult `json:"results"`
	Strategy   MappingStrategy `json:"strategy"`
	Diagnostic string          `json:"diagnostic,omitempty"`

	// RepairStage records how the response parser obtained the payload.
	// Empty when inference never produced a response to parse.
	RepairStage string `json:"-"`
}

// Repair stages the response parser reports, in the order they are tried.
const (
	RepairStageDirect    = "direct"
	RepairStageRepaired  = "repaired"
	RepairStageExtracted = "extracted"
	RepairStageFailed    = "failed"
)

// FallbackMatch is one similarity-engine decision. Rule is true when the
// synonym rule table produced the target rather than edit distance.
type FallbackMatch struct {
	Target     string
	Confidence float64
	Rule       bool
}

// MissingFieldMarker prefixes the synthetic source-field label of catalog
// entries no real source field was mapped to.
const MissingFieldMarker = "[missing] "

// OverrideReason is the fixed reason recorded on manually overridden results.
const OverrideReason = "Manual override"
