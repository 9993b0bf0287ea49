package domain

import "time"

type ProjectStatus string

const (
	ProjectStatusUploaded   ProjectStatus = "uploaded"
	ProjectStatusProcessing ProjectStatus = "processing"
	ProjectStatusNormalized ProjectStatus = "normalized"
	ProjectStatusMapped     ProjectStatus = "mapped"
	ProjectStatusAccepted   ProjectStatus = "accepted"
	ProjectStatusFailed     ProjectStatus = "failed"
)

type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Filename    string        `json:"filename"`
	MimeType    string        `json:"mime_type"`
	StoragePath string        `json:"storage_path"`
	Status      ProjectStatus `json:"status"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ProjectState is the full per-project view served to the UI.
type ProjectState struct {
	Project           Project           `json:"project"`
	Records           []SourceRecord    `json:"records,omitempty"`
	FieldDescriptions map[string]string `json:"field_descriptions,omitempty"`
	Mappings          []MappingResult   `json:"mappings,omitempty"`
	MappingStrategy   MappingStrategy   `json:"mapping_strategy,omitempty"`
	MappingDiagnostic string            `json:"mapping_diagnostic,omitempty"`
}
