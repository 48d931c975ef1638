package app

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/Francouer/proto-guard/internal/domain"
)

var scalarTypes = map[string]bool{
	"double": true, "float": true,
	"int32": true, "int64": true, "uint32": true, "uint64": true,
	"sint32": true, "sint64": true,
	"fixed32": true, "fixed64": true, "sfixed32": true, "sfixed64": true,
	"bool": true, "string": true, "bytes": true,
}

var (
	pascalCasePattern     = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)
	snakeCasePattern      = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	screamingSnakePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

type SchemaValidatorImpl struct {
	logger   domain.Logger
	fileRepo domain.FileRepository
	parser   domain.SchemaParser
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator(logger domain.Logger, fileRepo domain.FileRepository, parser domain.SchemaParser) domain.SchemaValidator {
	return &SchemaValidatorImpl{
		logger:   logger,
		fileRepo: fileRepo,
		parser:   parser,
	}
}

// issueCollector accumulates findings in discovery order. In strict mode
// warnings are recorded as errors at collection time, so validity, schema
// attachment and the error cap all see the promoted set.
type issueCollector struct {
	strict   bool
	errors   []domain.Issue
	warnings []domain.Issue
	infos    []domain.Issue
}

func (c *issueCollector) addError(rule, path, format string, args ...interface{}) {
	c.errors = append(c.errors, domain.Issue{
		Rule:     rule,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Severity: domain.SeverityError,
	})
}

func (c *issueCollector) addWarning(rule, path, format string, args ...interface{}) {
	if c.strict {
		c.addError(rule, path, format, args...)
		return
	}
	c.warnings = append(c.warnings, domain.Issue{
		Rule:     rule,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Severity: domain.SeverityWarning,
	})
}

func (c *issueCollector) addInfo(rule, path, format string, args ...interface{}) {
	c.infos = append(c.infos, domain.Issue{
		Rule:     rule,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Severity: domain.SeverityInfo,
	})
}

func (v *SchemaValidatorImpl) ValidateFile(ctx context.Context, path string, cfg *domain.ValidatorConfig) domain.ValidationResult {
	start := time.Now()

	if !v.fileRepo.FileExists(path) {
		return domain.ValidationResult{
			IsValid:  false,
			FilePath: path,
			Errors: []domain.Issue{{
				Rule:     "file-exists",
				Path:     "",
				Message:  fmt.Sprintf("Proto file not found: %s", path),
				Severity: domain.SeverityError,
			}},
			ValidatedAt:      time.Now().UTC(),
			ValidationTimeMS: float64(time.Since(start).Microseconds()) / 1000.0,
		}
	}

	content, err := v.fileRepo.ReadFile(path)
	if err != nil {
		return domain.ValidationResult{
			IsValid:  false,
			FilePath: path,
			Errors: []domain.Issue{{
				Rule:     "readable-file",
				Path:     "",
				Message:  fmt.Sprintf("Failed to read proto file: %s", err),
				Severity: domain.SeverityError,
			}},
			ValidatedAt:      time.Now().UTC(),
			ValidationTimeMS: float64(time.Since(start).Microseconds()) / 1000.0,
		}
	}

	return v.ValidateContent(ctx, string(content), path, cfg)
}

func (v *SchemaValidatorImpl) ValidateContent(ctx context.Context, content, sourcePath string, cfg *domain.ValidatorConfig) domain.ValidationResult {
	start := time.Now()

	if cfg == nil {
		def := domain.DefaultValidatorConfig()
		cfg = &def
	}

	schema := v.parser.Parse(content, sourcePath)
	col := &issueCollector{strict: cfg.StrictMode}

	// File-level checks come first so their issues lead the report.
	syntax := schema.Syntax
	if syntax == "" {
		col.addWarning("syntax-declaration", "/", "No syntax declaration found, defaulting to proto3")
		syntax = domain.SyntaxProto3
	}
	if syntax == domain.SyntaxProto2 && !cfg.AllowProto2 {
		col.addError("proto2-allowed", "/syntax", "proto2 syntax is not allowed by configuration")
	}
	if cfg.RequirePackage && schema.Package == "" {
		col.addError("package-required", "/", "Package declaration is required")
	}

	for i := range schema.Messages {
		v.validateMessage(col, &schema.Messages[i], "message "+schema.Messages[i].Name, syntax, cfg)
	}
	for i := range schema.Enums {
		v.validateEnum(col, &schema.Enums[i], "enum "+schema.Enums[i].Name, syntax)
	}
	if len(schema.Services) > 0 {
		known := knownTypeNames(schema)
		for i := range schema.Services {
			v.validateService(col, &schema.Services[i], known)
		}
	}

	// Naming checks run last so style warnings trail the structural ones.
	if cfg.CheckNamingConventions {
		v.checkNaming(col, schema)
	}

	errors := col.errors
	if cfg.MaxErrors > 0 && len(errors) > cfg.MaxErrors {
		errors = errors[:cfg.MaxErrors]
	}
	warnings := col.warnings
	if !cfg.IncludeWarnings {
		warnings = nil
	}

	result := domain.ValidationResult{
		IsValid:          len(errors) == 0,
		FilePath:         sourcePath,
		SyntaxVersion:    syntax,
		Errors:           errors,
		Warnings:         warnings,
		Infos:            col.infos,
		ValidatedAt:      time.Now().UTC(),
		ValidationTimeMS: float64(time.Since(start).Microseconds()) / 1000.0,
	}
	if result.IsValid {
		result.Schema = schema
	}

	v.logger.Debug("validated %s: %d error(s), %d warning(s)",
		sourcePath, len(result.Errors), len(result.Warnings))

	return result
}

func (v *SchemaValidatorImpl) validateMessage(col *issueCollector, msg *domain.Message, basePath, syntax string, cfg *domain.ValidatorConfig) {
	seenNumbers := map[int]string{}

	for _, field := range msg.Fields {
		fieldPath := basePath + "." + field.Name

		if holder, ok := seenNumbers[field.Number]; ok {
			col.addError("unique-field-numbers", fieldPath,
				"Duplicate field number %d (also used by '%s')", field.Number, holder)
		} else {
			seenNumbers[field.Number] = field.Name
		}

		if cfg.CheckFieldNumbers {
			switch {
			case field.Number <= 0:
				col.addError("valid-field-number", fieldPath,
					"Field number must be positive, got %d", field.Number)
			case field.Number >= domain.ImplReservedRangeStart && field.Number <= domain.ImplReservedRangeEnd:
				col.addError("reserved-range", fieldPath,
					"Field number %d is in reserved range 19000-19999", field.Number)
			case field.Number > domain.MaxFieldNumber:
				col.addError("max-field-number", fieldPath,
					"Field number %d exceeds maximum (536870911)", field.Number)
			case field.Number > 15 && field.Number <= 2047:
				col.addInfo("efficient-field-number", fieldPath,
					"Consider using field numbers 1-15 for frequently used fields (better encoding)")
			}
		}

		if cfg.CheckReservedFields {
			for _, name := range msg.ReservedNames {
				if field.Name == name {
					col.addError("reserved-name", fieldPath,
						"Field name '%s' is reserved", field.Name)
					break
				}
			}
			for _, number := range msg.ReservedNumbers {
				if field.Number == number {
					col.addError("reserved-number", fieldPath,
						"Field number %d is reserved", field.Number)
					break
				}
			}
			// Overlapping ranges each get their own error.
			for _, r := range msg.ReservedRanges {
				if r.Contains(field.Number) {
					col.addError("reserved-range", fieldPath,
						"Field number %d is in reserved range %d-%d", field.Number, r.Start, r.End)
				}
			}
		}

		if syntax == domain.SyntaxProto3 && field.Label == domain.LabelRequired {
			col.addError("proto3-no-required", fieldPath,
				"'required' label is not allowed in proto3")
		}
	}

	for i := range msg.NestedMessages {
		v.validateMessage(col, &msg.NestedMessages[i], basePath+"."+msg.NestedMessages[i].Name, syntax, cfg)
	}
	for i := range msg.NestedEnums {
		v.validateEnum(col, &msg.NestedEnums[i], basePath+"."+msg.NestedEnums[i].Name, syntax)
	}
}

func (v *SchemaValidatorImpl) validateEnum(col *issueCollector, enum *domain.Enum, basePath, syntax string) {
	if !enum.AllowAlias {
		seen := map[int]string{}
		for _, value := range enum.Values {
			if holder, ok := seen[value.Number]; ok {
				col.addError("unique-enum-values", basePath+"."+value.Name,
					"Duplicate enum value %d (also used by '%s'). Use allow_alias = true to allow aliases.",
					value.Number, holder)
			} else {
				seen[value.Number] = value.Name
			}
		}
	}

	if syntax == domain.SyntaxProto3 && len(enum.Values) > 0 {
		lowest := enum.Values[0].Number
		for _, value := range enum.Values[1:] {
			if value.Number < lowest {
				lowest = value.Number
			}
		}
		if lowest != 0 {
			col.addError("proto3-enum-zero", basePath, "First enum value must be 0 in proto3")
		}
	}

	// Collisions with the enum's own reservations are always an error,
	// independent of the CheckReservedFields setting for message fields.
	for _, value := range enum.Values {
		valuePath := basePath + "." + value.Name
		for _, name := range enum.ReservedNames {
			if value.Name == name {
				col.addError("reserved-enum-name", valuePath,
					"Enum value name '%s' is reserved", value.Name)
				break
			}
		}
		for _, number := range enum.ReservedNumbers {
			if value.Number == number {
				col.addError("reserved-enum-number", valuePath,
					"Enum value number %d is reserved", value.Number)
				break
			}
		}
	}
}

// validateService only hints at unknown RPC types. Imports are not
// resolved, so a name that is neither declared here nor scalar may still
// exist in an imported file.
func (v *SchemaValidatorImpl) validateService(col *issueCollector, svc *domain.Service, known map[string]bool) {
	for _, rpc := range svc.RPCs {
		rpcPath := "service " + svc.Name + "." + rpc.Name
		if !known[rpc.InputType] && !scalarTypes[rpc.InputType] {
			col.addInfo("rpc-type-exists", rpcPath,
				"RPC input type '%s' may not be defined (could be an import)", rpc.InputType)
		}
		if !known[rpc.OutputType] && !scalarTypes[rpc.OutputType] {
			col.addInfo("rpc-type-exists", rpcPath,
				"RPC output type '%s' may not be defined (could be an import)", rpc.OutputType)
		}
	}
}

// knownTypeNames collects the names an RPC can legally reference without
// imports: top-level messages plus their direct nested messages in
// dotted form. Enum names do not count, so an enum-typed RPC draws the
// same hint as an imported type.
func knownTypeNames(schema *domain.SchemaDocument) map[string]bool {
	known := map[string]bool{}
	for _, msg := range schema.Messages {
		known[msg.Name] = true
		for _, nested := range msg.NestedMessages {
			known[msg.Name+"."+nested.Name] = true
		}
	}
	return known
}

// checkNaming flags top-level declarations that stray from the style
// guide. Nested declarations are deliberately left alone.
func (v *SchemaValidatorImpl) checkNaming(col *issueCollector, schema *domain.SchemaDocument) {
	for _, msg := range schema.Messages {
		if !pascalCasePattern.MatchString(msg.Name) {
			col.addWarning("naming-convention", "message "+msg.Name,
				"Message name '%s' should be PascalCase", msg.Name)
		}
		for _, field := range msg.Fields {
			if !snakeCasePattern.MatchString(field.Name) {
				col.addWarning("naming-convention", "message "+msg.Name+"."+field.Name,
					"Field name '%s' should be snake_case", field.Name)
			}
		}
	}
	for _, enum := range schema.Enums {
		if !pascalCasePattern.MatchString(enum.Name) {
			col.addWarning("naming-convention", "enum "+enum.Name,
				"Enum name '%s' should be PascalCase", enum.Name)
		}
		for _, value := range enum.Values {
			if !screamingSnakePattern.MatchString(value.Name) {
				col.addWarning("naming-convention", "enum "+enum.Name+"."+value.Name,
					"Enum value '%s' should be SCREAMING_SNAKE_CASE", value.Name)
			}
		}
	}
	for _, svc := range schema.Services {
		if !pascalCasePattern.MatchString(svc.Name) {
			col.addWarning("naming-convention", "service "+svc.Name,
				"Service name '%s' should be PascalCase", svc.Name)
		}
	}
}
