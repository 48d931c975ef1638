package domain

import (
	"encoding/json"
	"time"
)

// MaxFieldNumber is the largest field number protobuf allows (2^29 - 1).
const MaxFieldNumber = 536870911

// Reserved field number range used internally by the protobuf wire format.
const (
	ImplReservedRangeStart = 19000
	ImplReservedRangeEnd   = 19999
)

// Supported syntax versions.
const (
	SyntaxProto2 = "proto2"
	SyntaxProto3 = "proto3"
)

// FieldLabel represents the cardinality label of a field
type FieldLabel int

const (
	LabelUnspecified FieldLabel = iota
	LabelOptional
	LabelRequired
	LabelRepeated
)

var labelNames = []string{"", "optional", "required", "repeated"}

func (l FieldLabel) String() string {
	if l < 0 || int(l) >= len(labelNames) {
		return ""
	}
	return labelNames[l]
}

// ParseFieldLabel maps a label keyword to its FieldLabel, defaulting to unspecified
func ParseFieldLabel(s string) FieldLabel {
	switch s {
	case "optional":
		return LabelOptional
	case "required":
		return LabelRequired
	case "repeated":
		return LabelRepeated
	default:
		return LabelUnspecified
	}
}

func (l FieldLabel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// Field represents a single field declaration inside a message
type Field struct {
	Name         string            `json:"name"`
	Number       int               `json:"number"`
	Type         string            `json:"type"`
	Label        FieldLabel        `json:"label"`
	DefaultValue string            `json:"default_value,omitempty"`
	Options      map[string]string `json:"options,omitempty"`
	OneofGroup   string            `json:"oneof_group,omitempty"`
	MapKeyType   string            `json:"map_key_type,omitempty"`
	MapValueType string            `json:"map_value_type,omitempty"`
}

// EnumValue represents a single name = number entry of an enum
type EnumValue struct {
	Name   string `json:"name"`
	Number int    `json:"number"`
}

// Enum represents an enum definition
type Enum struct {
	Name            string      `json:"name"`
	Values          []EnumValue `json:"values"`
	AllowAlias      bool        `json:"allow_alias"`
	ReservedNames   []string    `json:"reserved_names,omitempty"`
	ReservedNumbers []int       `json:"reserved_numbers,omitempty"`
}

// ReservedRange represents an inclusive reserved field number range
type ReservedRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether n falls inside the range
func (r ReservedRange) Contains(n int) bool {
	return n >= r.Start && n <= r.End
}

// Message represents a message definition, owning its nested messages and enums
type Message struct {
	Name            string              `json:"name"`
	Fields          []Field             `json:"fields"`
	NestedMessages  []Message           `json:"nested_messages,omitempty"`
	NestedEnums     []Enum              `json:"nested_enums,omitempty"`
	Oneofs          map[string][]string `json:"oneofs,omitempty"`
	ReservedNames   []string            `json:"reserved_names,omitempty"`
	ReservedNumbers []int               `json:"reserved_numbers,omitempty"`
	ReservedRanges  []ReservedRange     `json:"reserved_ranges,omitempty"`
	Options         map[string]string   `json:"options,omitempty"`
}

// RPC represents a single rpc method of a service
type RPC struct {
	Name            string `json:"name"`
	InputType       string `json:"input_type"`
	OutputType      string `json:"output_type"`
	ClientStreaming bool   `json:"client_streaming"`
	ServerStreaming bool   `json:"server_streaming"`
}

// Service represents a service definition
type Service struct {
	Name string `json:"name"`
	RPCs []RPC  `json:"rpcs"`
}

// SchemaDocument represents a fully parsed proto file
type SchemaDocument struct {
	Syntax        string            `json:"syntax"`
	Package       string            `json:"package,omitempty"`
	Imports       []string          `json:"imports,omitempty"`
	PublicImports []string          `json:"public_imports,omitempty"`
	Messages      []Message         `json:"messages"`
	Enums         []Enum            `json:"enums"`
	Services      []Service         `json:"services"`
	Options       map[string]string `json:"options,omitempty"`
	FilePath      string            `json:"file_path,omitempty"`
}

// MessageCount returns the number of top-level messages
func (d *SchemaDocument) MessageCount() int { return len(d.Messages) }

// EnumCount returns the number of top-level enums
func (d *SchemaDocument) EnumCount() int { return len(d.Enums) }

// ServiceCount returns the number of services
func (d *SchemaDocument) ServiceCount() int { return len(d.Services) }

// ProtoFile represents a proto file on disk
type ProtoFile struct {
	Name         string
	Path         string
	Size         int64
	ModifiedTime time.Time
}

// ValidatorConfig represents the toggles controlling validation behavior
type ValidatorConfig struct {
	StrictMode             bool
	CheckNamingConventions bool
	CheckFieldNumbers      bool
	CheckReservedFields    bool
	AllowProto2            bool
	RequirePackage         bool
	MaxErrors              int
	IncludeWarnings        bool
}

// DefaultValidatorConfig returns the validation defaults
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		StrictMode:             false,
		CheckNamingConventions: true,
		CheckFieldNumbers:      true,
		CheckReservedFields:    true,
		AllowProto2:            true,
		RequirePackage:         true,
		MaxErrors:              100,
		IncludeWarnings:        true,
	}
}

// WatchConfig represents the settings for watch mode
type WatchConfig struct {
	DebounceInterval time.Duration
	Extensions       []string
	SkipHidden       bool
}

// HistoryConfig represents the settings for the check history store
type HistoryConfig struct {
	Path string
}

// OutputConfig represents the report output settings
type OutputConfig struct {
	Format string
}

// Config represents the full tool configuration
type Config struct {
	Validator ValidatorConfig
	Watch     WatchConfig
	History   HistoryConfig
	Output    OutputConfig
}

// DefaultConfig returns the configuration used when no config file is present
func DefaultConfig() Config {
	return Config{
		Validator: DefaultValidatorConfig(),
		Watch: WatchConfig{
			DebounceInterval: 500 * time.Millisecond,
			Extensions:       []string{".proto"},
			SkipHidden:       true,
		},
		History: HistoryConfig{},
		Output:  OutputConfig{Format: "text"},
	}
}

// Kinds of recorded checks.
const (
	CheckKindValidate = "validate"
	CheckKindCompat   = "compat"
)

// CheckRecord represents one validation or compatibility run in the history store
type CheckRecord struct {
	ID            string
	Kind          string
	FilePath      string
	TargetPath    string
	Success       bool
	ErrorCount    int
	WarningCount  int
	BreakingCount int
	Level         string
	CreatedAt     time.Time
}
