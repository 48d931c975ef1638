package domain

import "time"

// Severity classifies a validation issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue represents a single finding produced by the validator
type Issue struct {
	Rule     string   `json:"rule"`
	Path     string   `json:"path"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ValidationResult represents the outcome of validating one proto file.
// Schema is nil whenever errors were found; the compatibility checker
// relies on that to decide whether a comparison is possible at all.
type ValidationResult struct {
	IsValid          bool            `json:"is_valid"`
	FilePath         string          `json:"file_path"`
	SyntaxVersion    string          `json:"syntax_version"`
	Schema           *SchemaDocument `json:"parsed_schema"`
	Errors           []Issue         `json:"errors"`
	Warnings         []Issue         `json:"warnings"`
	Infos            []Issue         `json:"info_messages"`
	ValidatedAt      time.Time       `json:"validated_at"`
	ValidationTimeMS float64         `json:"validation_time_ms"`
}

// ErrorCount returns the number of errors
func (r *ValidationResult) ErrorCount() int { return len(r.Errors) }

// WarningCount returns the number of warnings
func (r *ValidationResult) WarningCount() int { return len(r.Warnings) }

// BreakingChangeType classifies a structural schema change
type BreakingChangeType string

const (
	RemovedField           BreakingChangeType = "removed_field"
	RemovedMessage         BreakingChangeType = "removed_message"
	RemovedEnum            BreakingChangeType = "removed_enum"
	RemovedEnumValue       BreakingChangeType = "removed_enum_value"
	RemovedService         BreakingChangeType = "removed_service"
	RemovedRPC             BreakingChangeType = "removed_rpc"
	ChangedFieldType       BreakingChangeType = "changed_field_type"
	ChangedFieldNumber     BreakingChangeType = "changed_field_number"
	ChangedFieldLabel      BreakingChangeType = "changed_field_label"
	ChangedEnumValueNumber BreakingChangeType = "changed_enum_value_number"
	ReservedFieldReused    BreakingChangeType = "reserved_field_reused"
	ReservedNumberReused   BreakingChangeType = "reserved_number_reused"
)

// BreakingChange represents a single structural delta between two schemas
type BreakingChange struct {
	Type       BreakingChangeType `json:"change_type"`
	Path       string             `json:"path"`
	Message    string             `json:"message"`
	OldValue   string             `json:"old_value,omitempty"`
	NewValue   string             `json:"new_value,omitempty"`
	Severity   Severity           `json:"severity"`
	Mitigation string             `json:"mitigation,omitempty"`
}

// CompatibilityLevel classifies how safe a schema change is to deploy
type CompatibilityLevel string

const (
	CompatibilityFull     CompatibilityLevel = "full"
	CompatibilityBackward CompatibilityLevel = "backward"
	CompatibilityNone     CompatibilityLevel = "none"
)

// VersionBump suggests the semantic version increment a change warrants
type VersionBump string

const (
	BumpMajor VersionBump = "major"
	BumpMinor VersionBump = "minor"
	BumpPatch VersionBump = "patch"
	BumpNone  VersionBump = "none"
)

// CompatibilityResult represents the outcome of comparing two schema versions
type CompatibilityResult struct {
	IsCompatible     bool               `json:"is_compatible"`
	Level            CompatibilityLevel `json:"compatibility_level"`
	SourceFile       string             `json:"source_file"`
	TargetFile       string             `json:"target_file"`
	BreakingChanges  []BreakingChange   `json:"breaking_changes"`
	Warnings         []BreakingChange   `json:"warnings"`
	AddedMessages    []string           `json:"added_messages"`
	RemovedMessages  []string           `json:"removed_messages"`
	ModifiedMessages []string           `json:"modified_messages"`
	SuggestedBump    VersionBump        `json:"suggested_version_bump"`
	CheckTimeMS      float64            `json:"check_time_ms"`
}

// BreakingChangeCount returns the number of breaking changes
func (r *CompatibilityResult) BreakingChangeCount() int { return len(r.BreakingChanges) }
