package domain

import "context"

// Logger defines the logging interface
type Logger interface {
	Info(msg string, args ...interface{})
	Success(msg string, args ...interface{})
	Warning(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// FileRepository handles file system operations
type FileRepository interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	CreateDir(path string) error
	FileExists(path string) bool
	ListFiles(path string, pattern string) ([]ProtoFile, error)
}

// SchemaParser turns proto source text into a schema document.
// Parsing never fails; malformed blocks are dropped.
type SchemaParser interface {
	Parse(content string, sourcePath string) *SchemaDocument
}

// SchemaValidator validates proto files against syntax-version rules
type SchemaValidator interface {
	ValidateFile(ctx context.Context, path string, cfg *ValidatorConfig) ValidationResult
	ValidateContent(ctx context.Context, content, sourcePath string, cfg *ValidatorConfig) ValidationResult
}

// CompatibilityChecker compares two schema versions for wire compatibility
type CompatibilityChecker interface {
	Check(ctx context.Context, oldPath, newPath string, cfg *ValidatorConfig) CompatibilityResult
	CheckSchemas(oldSchema, newSchema *SchemaDocument) CompatibilityResult
}

// ReportRenderer renders results in text, json or markdown form
type ReportRenderer interface {
	RenderValidation(result *ValidationResult, format string) (string, error)
	RenderCompatibility(result *CompatibilityResult, format string) (string, error)
}

// ConfigRepository loads the tool configuration
type ConfigRepository interface {
	Load(path string) (*Config, error)
}

// SchemaWatcher watches a directory tree of proto files for changes
type SchemaWatcher interface {
	Watch(ctx context.Context, dir string, cfg WatchConfig, onChange func(path string) error) error
}

// HistoryRepository persists check records
type HistoryRepository interface {
	Save(ctx context.Context, record *CheckRecord) error
	List(ctx context.Context, limit int) ([]CheckRecord, error)
	Close() error
}

// HistoryOpener opens a history repository at the given database path
type HistoryOpener func(path string) (HistoryRepository, error)
