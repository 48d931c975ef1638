package interfaces

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Francouer/proto-guard/internal/domain"
)

type ReportRendererImpl struct{}

// NewReportRenderer creates a new report renderer
func NewReportRenderer() domain.ReportRenderer {
	return &ReportRendererImpl{}
}

// RenderValidation renders a validation result. Unknown formats fall back
// to text.
func (r *ReportRendererImpl) RenderValidation(result *domain.ValidationResult, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to render validation report: %w", err)
		}
		return string(data), nil
	case "markdown":
		return validationMarkdown(result), nil
	default:
		return validationText(result), nil
	}
}

// RenderCompatibility renders a compatibility result. Unknown formats fall
// back to text.
func (r *ReportRendererImpl) RenderCompatibility(result *domain.CompatibilityResult, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to render compatibility report: %w", err)
		}
		return string(data), nil
	case "markdown":
		return compatibilityMarkdown(result), nil
	default:
		return compatibilityText(result), nil
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func validationText(result *domain.ValidationResult) string {
	var lines []string

	lines = append(lines, strings.Repeat("=", 60))
	lines = append(lines, "Protobuf Validation Report")
	lines = append(lines, strings.Repeat("=", 60))
	lines = append(lines, fmt.Sprintf("File: %s", orDefault(result.FilePath, "N/A")))
	lines = append(lines, fmt.Sprintf("Syntax: %s", orDefault(result.SyntaxVersion, "Unknown")))
	lines = append(lines, fmt.Sprintf("Valid: %s", yesNo(result.IsValid)))
	lines = append(lines, fmt.Sprintf("Errors: %d", result.ErrorCount()))
	lines = append(lines, fmt.Sprintf("Warnings: %d", result.WarningCount()))
	lines = append(lines, fmt.Sprintf("Time: %.2fms", result.ValidationTimeMS))
	lines = append(lines, strings.Repeat("-", 60))

	if result.Schema != nil {
		lines = append(lines, fmt.Sprintf("Package: %s", orDefault(result.Schema.Package, "N/A")))
		lines = append(lines, fmt.Sprintf("Messages: %d", result.Schema.MessageCount()))
		lines = append(lines, fmt.Sprintf("Enums: %d", result.Schema.EnumCount()))
		lines = append(lines, fmt.Sprintf("Services: %d", result.Schema.ServiceCount()))
		lines = append(lines, strings.Repeat("-", 60))
	}

	if len(result.Errors) > 0 {
		lines = append(lines, "\nErrors:")
		for _, issue := range result.Errors {
			lines = append(lines, fmt.Sprintf("  [%s] %s: %s", orDefault(issue.Rule, "error"), issue.Path, issue.Message))
		}
	}
	if len(result.Warnings) > 0 {
		lines = append(lines, "\nWarnings:")
		for _, issue := range result.Warnings {
			lines = append(lines, fmt.Sprintf("  [%s] %s: %s", orDefault(issue.Rule, "warning"), issue.Path, issue.Message))
		}
	}

	lines = append(lines, strings.Repeat("=", 60))
	return strings.Join(lines, "\n")
}

func validationMarkdown(result *domain.ValidationResult) string {
	var lines []string

	lines = append(lines, "# Protobuf Validation Report\n")
	lines = append(lines, fmt.Sprintf("- **File**: %s", orDefault(result.FilePath, "N/A")))
	lines = append(lines, fmt.Sprintf("- **Syntax**: %s", orDefault(result.SyntaxVersion, "Unknown")))
	lines = append(lines, fmt.Sprintf("- **Valid**: %s", yesNo(result.IsValid)))
	lines = append(lines, fmt.Sprintf("- **Errors**: %d", result.ErrorCount()))
	lines = append(lines, fmt.Sprintf("- **Warnings**: %d", result.WarningCount()))
	lines = append(lines, fmt.Sprintf("- **Time**: %.2fms\n", result.ValidationTimeMS))

	if result.Schema != nil {
		lines = append(lines, "## Schema Summary\n")
		lines = append(lines, fmt.Sprintf("- **Package**: %s", orDefault(result.Schema.Package, "N/A")))
		lines = append(lines, fmt.Sprintf("- **Messages**: %d", result.Schema.MessageCount()))
		lines = append(lines, fmt.Sprintf("- **Enums**: %d", result.Schema.EnumCount()))
		lines = append(lines, fmt.Sprintf("- **Services**: %d\n", result.Schema.ServiceCount()))
	}

	if len(result.Errors) > 0 {
		lines = append(lines, "## Errors\n")
		lines = append(lines, "| Path | Rule | Message |")
		lines = append(lines, "|------|------|---------|")
		for _, issue := range result.Errors {
			lines = append(lines, fmt.Sprintf("| `%s` | %s | %s |", issue.Path, orDefault(issue.Rule, "error"), issue.Message))
		}
	}
	if len(result.Warnings) > 0 {
		lines = append(lines, "\n## Warnings\n")
		lines = append(lines, "| Path | Rule | Message |")
		lines = append(lines, "|------|------|---------|")
		for _, issue := range result.Warnings {
			lines = append(lines, fmt.Sprintf("| `%s` | %s | %s |", issue.Path, orDefault(issue.Rule, "warning"), issue.Message))
		}
	}

	return strings.Join(lines, "\n")
}

func compatibilityText(result *domain.CompatibilityResult) string {
	var lines []string

	lines = append(lines, strings.Repeat("=", 60))
	lines = append(lines, "Protobuf Compatibility Report")
	lines = append(lines, strings.Repeat("=", 60))
	lines = append(lines, fmt.Sprintf("Old Schema: %s", orDefault(result.SourceFile, "N/A")))
	lines = append(lines, fmt.Sprintf("New Schema: %s", orDefault(result.TargetFile, "N/A")))
	lines = append(lines, fmt.Sprintf("Compatible: %s", yesNo(result.IsCompatible)))
	lines = append(lines, fmt.Sprintf("Compatibility Level: %s", result.Level))
	lines = append(lines, fmt.Sprintf("Breaking Changes: %d", result.BreakingChangeCount()))
	lines = append(lines, fmt.Sprintf("Suggested Version Bump: %s", result.SuggestedBump))
	lines = append(lines, fmt.Sprintf("Time: %.2fms", result.CheckTimeMS))
	lines = append(lines, strings.Repeat("-", 60))

	if len(result.AddedMessages) > 0 {
		lines = append(lines, fmt.Sprintf("\nAdded Messages: %s", strings.Join(result.AddedMessages, ", ")))
	}
	if len(result.RemovedMessages) > 0 {
		lines = append(lines, fmt.Sprintf("Removed Messages: %s", strings.Join(result.RemovedMessages, ", ")))
	}
	if len(result.ModifiedMessages) > 0 {
		lines = append(lines, fmt.Sprintf("Modified Messages: %s", strings.Join(result.ModifiedMessages, ", ")))
	}

	if len(result.BreakingChanges) > 0 {
		lines = append(lines, "\nBreaking Changes:")
		for _, change := range result.BreakingChanges {
			lines = append(lines, fmt.Sprintf("  [%s] %s", change.Type, change.Path))
			lines = append(lines, fmt.Sprintf("    %s", change.Message))
			if change.Mitigation != "" {
				lines = append(lines, fmt.Sprintf("    Mitigation: %s", change.Mitigation))
			}
		}
	}
	if len(result.Warnings) > 0 {
		lines = append(lines, "\nWarnings:")
		for _, warning := range result.Warnings {
			lines = append(lines, fmt.Sprintf("  [%s] %s", warning.Type, warning.Message))
		}
	}

	lines = append(lines, strings.Repeat("=", 60))
	return strings.Join(lines, "\n")
}

func compatibilityMarkdown(result *domain.CompatibilityResult) string {
	var lines []string

	lines = append(lines, "# Protobuf Compatibility Report\n")
	lines = append(lines, fmt.Sprintf("- **Old Schema**: %s", orDefault(result.SourceFile, "N/A")))
	lines = append(lines, fmt.Sprintf("- **New Schema**: %s", orDefault(result.TargetFile, "N/A")))
	lines = append(lines, fmt.Sprintf("- **Compatible**: %s", yesNo(result.IsCompatible)))
	lines = append(lines, fmt.Sprintf("- **Compatibility Level**: %s", result.Level))
	lines = append(lines, fmt.Sprintf("- **Suggested Version Bump**: %s", result.SuggestedBump))
	lines = append(lines, fmt.Sprintf("- **Breaking Changes**: %d\n", result.BreakingChangeCount()))

	if len(result.BreakingChanges) > 0 {
		lines = append(lines, "## Breaking Changes\n")
		lines = append(lines, "| Type | Path | Message | Mitigation |")
		lines = append(lines, "|------|------|---------|------------|")
		for _, change := range result.BreakingChanges {
			lines = append(lines, fmt.Sprintf("| %s | `%s` | %s | %s |",
				change.Type, change.Path, change.Message, orDefault(change.Mitigation, "-")))
		}
	}

	if len(result.AddedMessages) > 0 {
		lines = append(lines, "\n## Added Messages\n")
		for _, name := range result.AddedMessages {
			lines = append(lines, fmt.Sprintf("- `%s`", name))
		}
	}
	if len(result.RemovedMessages) > 0 {
		lines = append(lines, "\n## Removed Messages\n")
		for _, name := range result.RemovedMessages {
			lines = append(lines, fmt.Sprintf("- `%s`", name))
		}
	}
	if len(result.ModifiedMessages) > 0 {
		lines = append(lines, "\n## Modified Messages\n")
		for _, name := range result.ModifiedMessages {
			lines = append(lines, fmt.Sprintf("- `%s`", name))
		}
	}

	if len(result.Warnings) > 0 {
		lines = append(lines, "\n## Warnings\n")
		for _, warning := range result.Warnings {
			lines = append(lines, fmt.Sprintf("- [%s] %s", warning.Type, warning.Message))
		}
	}

	return strings.Join(lines, "\n")
}
