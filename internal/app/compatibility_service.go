package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Francouer/proto-guard/internal/domain"
)

type CompatibilityCheckerImpl struct {
	logger    domain.Logger
	validator domain.SchemaValidator
}

// NewCompatibilityChecker creates a new compatibility checker
func NewCompatibilityChecker(logger domain.Logger, validator domain.SchemaValidator) domain.CompatibilityChecker {
	return &CompatibilityCheckerImpl{
		logger:    logger,
		validator: validator,
	}
}

// Check validates both files and compares the parsed schemas. A file that
// fails validation cannot be compared; the result then carries a single
// synthetic change explaining which side failed.
func (c *CompatibilityCheckerImpl) Check(ctx context.Context, oldPath, newPath string, cfg *domain.ValidatorConfig) domain.CompatibilityResult {
	start := time.Now()

	oldResult := c.validator.ValidateFile(ctx, oldPath, cfg)
	newResult := c.validator.ValidateFile(ctx, newPath, cfg)

	if oldResult.Schema == nil {
		return unparsableResult(oldPath, newPath, "old", &oldResult, start)
	}
	if newResult.Schema == nil {
		return unparsableResult(oldPath, newPath, "new", &newResult, start)
	}

	result := c.CheckSchemas(oldResult.Schema, newResult.Schema)
	result.SourceFile = oldPath
	result.TargetFile = newPath
	result.CheckTimeMS = float64(time.Since(start).Microseconds()) / 1000.0

	c.logger.Debug("compared %s against %s: %d breaking change(s), level %s",
		oldPath, newPath, len(result.BreakingChanges), result.Level)

	return result
}

func unparsableResult(oldPath, newPath, side string, vr *domain.ValidationResult, start time.Time) domain.CompatibilityResult {
	reason := "Unknown error"
	if len(vr.Errors) > 0 {
		reason = vr.Errors[0].Message
	}
	return domain.CompatibilityResult{
		IsCompatible: false,
		Level:        domain.CompatibilityNone,
		SourceFile:   oldPath,
		TargetFile:   newPath,
		BreakingChanges: []domain.BreakingChange{{
			Type:     domain.RemovedMessage,
			Path:     "/",
			Message:  fmt.Sprintf("Failed to parse %s schema: %s", side, reason),
			Severity: domain.SeverityError,
		}},
		SuggestedBump: domain.BumpMajor,
		CheckTimeMS:   float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

// CheckSchemas compares two parsed schemas directly. Messages, enums and
// services all take part regardless of which entry point was used.
func (c *CompatibilityCheckerImpl) CheckSchemas(oldSchema, newSchema *domain.SchemaDocument) domain.CompatibilityResult {
	start := time.Now()

	var breaking, warnings []domain.BreakingChange
	var added, removed, modified []string

	collect := func(changes []domain.BreakingChange) {
		for _, ch := range changes {
			if ch.Severity == domain.SeverityError {
				breaking = append(breaking, ch)
			} else {
				warnings = append(warnings, ch)
			}
		}
	}

	oldByName := messagesByName(oldSchema.Messages)
	newByName := messagesByName(newSchema.Messages)

	// Declaration order of the old schema drives removal reporting, and
	// of the new schema addition reporting, so output stays stable. A
	// name declared twice takes part once, with its last declaration.
	seenNames := map[string]bool{}
	for i := range oldSchema.Messages {
		name := oldSchema.Messages[i].Name
		if seenNames[name] {
			continue
		}
		seenNames[name] = true
		if _, ok := newByName[name]; !ok {
			removed = append(removed, name)
			breaking = append(breaking, domain.BreakingChange{
				Type:       domain.RemovedMessage,
				Path:       "message " + name,
				Message:    fmt.Sprintf("Message '%s' was removed", name),
				OldValue:   name,
				Severity:   domain.SeverityError,
				Mitigation: "Keep the message or mark it as deprecated first",
			})
		}
	}
	seenNames = map[string]bool{}
	for i := range newSchema.Messages {
		name := newSchema.Messages[i].Name
		if seenNames[name] {
			continue
		}
		seenNames[name] = true
		if _, ok := oldByName[name]; !ok {
			added = append(added, name)
		}
	}
	seenNames = map[string]bool{}
	for i := range oldSchema.Messages {
		name := oldSchema.Messages[i].Name
		if seenNames[name] {
			continue
		}
		seenNames[name] = true
		newMsg, ok := newByName[name]
		if !ok {
			continue
		}
		msgChanges := compareMessage(oldByName[name], newMsg)
		if len(msgChanges) > 0 {
			modified = append(modified, name)
			collect(msgChanges)
		}
	}

	collect(compareEnums(oldSchema.Enums, newSchema.Enums))
	collect(compareServices(oldSchema.Services, newSchema.Services))

	level := domain.CompatibilityFull
	if len(breaking) > 0 {
		if len(removed) == 0 {
			level = domain.CompatibilityBackward
		} else {
			level = domain.CompatibilityNone
		}
	}

	return domain.CompatibilityResult{
		IsCompatible:     len(breaking) == 0,
		Level:            level,
		SourceFile:       oldSchema.FilePath,
		TargetFile:       newSchema.FilePath,
		BreakingChanges:  breaking,
		Warnings:         warnings,
		AddedMessages:    added,
		RemovedMessages:  removed,
		ModifiedMessages: modified,
		SuggestedBump:    suggestBump(breaking, warnings, added, modified),
		CheckTimeMS:      float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

// suggestBump maps the comparison outcome to a semantic version increment.
func suggestBump(breaking, warnings []domain.BreakingChange, added, modified []string) domain.VersionBump {
	switch {
	case len(breaking) > 0:
		return domain.BumpMajor
	case len(added) > 0:
		return domain.BumpMinor
	case len(modified) > 0 || len(warnings) > 0:
		return domain.BumpPatch
	default:
		return domain.BumpNone
	}
}

func messagesByName(msgs []domain.Message) map[string]*domain.Message {
	m := make(map[string]*domain.Message, len(msgs))
	for i := range msgs {
		m[msgs[i].Name] = &msgs[i]
	}
	return m
}

func fieldsByNumber(fields []domain.Field) map[int]*domain.Field {
	m := make(map[int]*domain.Field, len(fields))
	for i := range fields {
		m[fields[i].Number] = &fields[i]
	}
	return m
}

func fieldsByName(fields []domain.Field) map[string]*domain.Field {
	m := make(map[string]*domain.Field, len(fields))
	for i := range fields {
		m[fields[i].Name] = &fields[i]
	}
	return m
}

// displayLabel renders an unspecified label as "singular" in messages.
func displayLabel(l domain.FieldLabel) string {
	if l == domain.LabelUnspecified {
		return "singular"
	}
	return l.String()
}

// compareMessage walks one message pair. Fields are joined by number
// first (the wire identity), then by name to catch renumbering, then the
// new side is held against the old side's reservations. Nested messages
// and enums follow.
func compareMessage(oldMsg, newMsg *domain.Message) []domain.BreakingChange {
	var changes []domain.BreakingChange
	basePath := "message " + oldMsg.Name

	oldByNumber := fieldsByNumber(oldMsg.Fields)
	newByNumber := fieldsByNumber(newMsg.Fields)
	oldByName := fieldsByName(oldMsg.Fields)
	newByName := fieldsByName(newMsg.Fields)

	// Removed fields. A removal is tolerable when the new side reserved
	// the number, so stale writers cannot collide with a future reuse.
	seenNumbers := map[int]bool{}
	for i := range oldMsg.Fields {
		number := oldMsg.Fields[i].Number
		if seenNumbers[number] {
			continue
		}
		seenNumbers[number] = true
		oldField := oldByNumber[number]

		if _, ok := newByNumber[number]; ok {
			continue
		}
		reserved := false
		for _, n := range newMsg.ReservedNumbers {
			if n == number {
				reserved = true
				break
			}
		}
		if !reserved {
			for _, r := range newMsg.ReservedRanges {
				if r.Contains(number) {
					reserved = true
					break
				}
			}
		}
		if reserved {
			changes = append(changes, domain.BreakingChange{
				Type:     domain.RemovedField,
				Path:     basePath + "." + oldField.Name,
				Message:  fmt.Sprintf("Field '%s' (number %d) was removed (properly reserved)", oldField.Name, number),
				OldValue: fmt.Sprintf("%s = %d", oldField.Name, number),
				Severity: domain.SeverityWarning,
			})
		} else {
			changes = append(changes, domain.BreakingChange{
				Type:       domain.RemovedField,
				Path:       basePath + "." + oldField.Name,
				Message:    fmt.Sprintf("Field '%s' (number %d) was removed without being reserved", oldField.Name, number),
				OldValue:   fmt.Sprintf("%s = %d", oldField.Name, number),
				Severity:   domain.SeverityError,
				Mitigation: "Add field number to reserved list to prevent reuse",
			})
		}
	}

	// Type and label changes on fields present on both sides.
	seenNumbers = map[int]bool{}
	for i := range oldMsg.Fields {
		number := oldMsg.Fields[i].Number
		if seenNumbers[number] {
			continue
		}
		seenNumbers[number] = true
		oldField := oldByNumber[number]
		newField, ok := newByNumber[number]
		if !ok {
			continue
		}

		if oldField.Type != newField.Type {
			changes = append(changes, domain.BreakingChange{
				Type:       domain.ChangedFieldType,
				Path:       basePath + "." + oldField.Name,
				Message:    fmt.Sprintf("Field type changed from '%s' to '%s'", oldField.Type, newField.Type),
				OldValue:   oldField.Type,
				NewValue:   newField.Type,
				Severity:   domain.SeverityError,
				Mitigation: "Create a new field with the new type instead",
			})
		}

		if oldField.Label != newField.Label {
			// Moving into or out of repeated changes the wire shape.
			severity := domain.SeverityWarning
			if oldField.Label == domain.LabelRepeated || newField.Label == domain.LabelRepeated {
				severity = domain.SeverityError
			}
			changes = append(changes, domain.BreakingChange{
				Type:     domain.ChangedFieldLabel,
				Path:     basePath + "." + oldField.Name,
				Message:  fmt.Sprintf("Field label changed from '%s' to '%s'", displayLabel(oldField.Label), displayLabel(newField.Label)),
				OldValue: displayLabel(oldField.Label),
				NewValue: displayLabel(newField.Label),
				Severity: severity,
			})
		}
	}

	// Renumbered fields, joined by name.
	seenNames := map[string]bool{}
	for i := range oldMsg.Fields {
		name := oldMsg.Fields[i].Name
		if seenNames[name] {
			continue
		}
		seenNames[name] = true
		oldField := oldByName[name]
		newField, ok := newByName[name]
		if !ok {
			continue
		}
		if oldField.Number != newField.Number {
			changes = append(changes, domain.BreakingChange{
				Type:       domain.ChangedFieldNumber,
				Path:       basePath + "." + name,
				Message:    fmt.Sprintf("Field number changed from %d to %d", oldField.Number, newField.Number),
				OldValue:   fmt.Sprintf("%d", oldField.Number),
				NewValue:   fmt.Sprintf("%d", newField.Number),
				Severity:   domain.SeverityError,
				Mitigation: "Field numbers must remain stable",
			})
		}
	}

	// New fields squatting on the old side's reservations.
	seenNumbers = map[int]bool{}
	for i := range newMsg.Fields {
		number := newMsg.Fields[i].Number
		if seenNumbers[number] {
			continue
		}
		seenNumbers[number] = true

		for _, n := range oldMsg.ReservedNumbers {
			if n == number {
				changes = append(changes, domain.BreakingChange{
					Type:       domain.ReservedNumberReused,
					Path:       basePath,
					Message:    fmt.Sprintf("Reserved field number %d is now being used", number),
					NewValue:   fmt.Sprintf("%d", number),
					Severity:   domain.SeverityError,
					Mitigation: "Reserved field numbers must never be reused",
				})
				break
			}
		}
		for _, r := range oldMsg.ReservedRanges {
			if r.Contains(number) {
				if _, existed := oldByNumber[number]; !existed {
					changes = append(changes, domain.BreakingChange{
						Type:     domain.ReservedNumberReused,
						Path:     basePath,
						Message:  fmt.Sprintf("Field number %d from reserved range %d-%d is now being used", number, r.Start, r.End),
						NewValue: fmt.Sprintf("%d", number),
						Severity: domain.SeverityError,
					})
				}
			}
		}
	}
	for i := range newMsg.Fields {
		name := newMsg.Fields[i].Name
		for _, reserved := range oldMsg.ReservedNames {
			if name == reserved {
				changes = append(changes, domain.BreakingChange{
					Type:       domain.ReservedFieldReused,
					Path:       basePath + "." + name,
					Message:    fmt.Sprintf("Reserved field name '%s' is now being used", name),
					NewValue:   name,
					Severity:   domain.SeverityError,
					Mitigation: "Reserved field names must never be reused",
				})
				break
			}
		}
	}

	// Nested messages.
	oldNested := messagesByName(oldMsg.NestedMessages)
	newNested := messagesByName(newMsg.NestedMessages)
	seenNames = map[string]bool{}
	for i := range oldMsg.NestedMessages {
		name := oldMsg.NestedMessages[i].Name
		if seenNames[name] {
			continue
		}
		seenNames[name] = true
		counterpart, ok := newNested[name]
		if !ok {
			changes = append(changes, domain.BreakingChange{
				Type:     domain.RemovedMessage,
				Path:     basePath + "." + name,
				Message:  fmt.Sprintf("Nested message '%s' was removed", name),
				OldValue: name,
				Severity: domain.SeverityError,
			})
			continue
		}
		changes = append(changes, compareMessage(oldNested[name], counterpart)...)
	}

	// Nested enums.
	oldNestedEnums := enumsByName(oldMsg.NestedEnums)
	newNestedEnums := enumsByName(newMsg.NestedEnums)
	seenNames = map[string]bool{}
	for i := range oldMsg.NestedEnums {
		name := oldMsg.NestedEnums[i].Name
		if seenNames[name] {
			continue
		}
		seenNames[name] = true
		counterpart, ok := newNestedEnums[name]
		if !ok {
			changes = append(changes, domain.BreakingChange{
				Type:     domain.RemovedEnum,
				Path:     basePath + "." + name,
				Message:  fmt.Sprintf("Nested enum '%s' was removed", name),
				OldValue: name,
				Severity: domain.SeverityError,
			})
			continue
		}
		changes = append(changes, compareEnum(oldNestedEnums[name], counterpart, basePath+"."+name)...)
	}

	return changes
}

func enumsByName(enums []domain.Enum) map[string]*domain.Enum {
	m := make(map[string]*domain.Enum, len(enums))
	for i := range enums {
		m[enums[i].Name] = &enums[i]
	}
	return m
}

func enumValuesByName(values []domain.EnumValue) map[string]int {
	m := make(map[string]int, len(values))
	for _, v := range values {
		m[v.Name] = v.Number
	}
	return m
}

func compareEnums(oldEnums, newEnums []domain.Enum) []domain.BreakingChange {
	var changes []domain.BreakingChange

	oldByName := enumsByName(oldEnums)
	newByName := enumsByName(newEnums)
	seenNames := map[string]bool{}
	for i := range oldEnums {
		name := oldEnums[i].Name
		if seenNames[name] {
			continue
		}
		seenNames[name] = true
		counterpart, ok := newByName[name]
		if !ok {
			changes = append(changes, domain.BreakingChange{
				Type:       domain.RemovedEnum,
				Path:       "enum " + name,
				Message:    fmt.Sprintf("Enum '%s' was removed", name),
				OldValue:   name,
				Severity:   domain.SeverityError,
				Mitigation: "Keep the enum or deprecate it first",
			})
			continue
		}
		changes = append(changes, compareEnum(oldByName[name], counterpart, "enum "+name)...)
	}

	return changes
}

// compareEnum joins values by name, last declaration winning on either
// side. A removed value passes as a warning only when the new side
// reserved its name or its number.
func compareEnum(oldEnum, newEnum *domain.Enum, basePath string) []domain.BreakingChange {
	var changes []domain.BreakingChange

	oldByName := enumValuesByName(oldEnum.Values)
	newByName := enumValuesByName(newEnum.Values)

	seenNames := map[string]bool{}
	for _, value := range oldEnum.Values {
		if seenNames[value.Name] {
			continue
		}
		seenNames[value.Name] = true
		oldNumber := oldByName[value.Name]

		newNumber, ok := newByName[value.Name]
		if !ok {
			reserved := false
			for _, name := range newEnum.ReservedNames {
				if name == value.Name {
					reserved = true
					break
				}
			}
			if !reserved {
				for _, number := range newEnum.ReservedNumbers {
					if number == oldNumber {
						reserved = true
						break
					}
				}
			}
			if reserved {
				changes = append(changes, domain.BreakingChange{
					Type:     domain.RemovedEnumValue,
					Path:     basePath + "." + value.Name,
					Message:  fmt.Sprintf("Enum value '%s' was removed (properly reserved)", value.Name),
					OldValue: fmt.Sprintf("%s = %d", value.Name, oldNumber),
					Severity: domain.SeverityWarning,
				})
			} else {
				changes = append(changes, domain.BreakingChange{
					Type:       domain.RemovedEnumValue,
					Path:       basePath + "." + value.Name,
					Message:    fmt.Sprintf("Enum value '%s' (= %d) was removed without being reserved", value.Name, oldNumber),
					OldValue:   fmt.Sprintf("%s = %d", value.Name, oldNumber),
					Severity:   domain.SeverityError,
					Mitigation: "Add value name/number to reserved list",
				})
			}
			continue
		}

		if oldNumber != newNumber {
			changes = append(changes, domain.BreakingChange{
				Type:       domain.ChangedEnumValueNumber,
				Path:       basePath + "." + value.Name,
				Message:    fmt.Sprintf("Enum value number changed from %d to %d", oldNumber, newNumber),
				OldValue:   fmt.Sprintf("%d", oldNumber),
				NewValue:   fmt.Sprintf("%d", newNumber),
				Severity:   domain.SeverityError,
				Mitigation: "Enum value numbers must remain stable",
			})
		}
	}

	return changes
}

func servicesByName(services []domain.Service) map[string]*domain.Service {
	m := make(map[string]*domain.Service, len(services))
	for i := range services {
		m[services[i].Name] = &services[i]
	}
	return m
}

func rpcsByName(rpcs []domain.RPC) map[string]*domain.RPC {
	m := make(map[string]*domain.RPC, len(rpcs))
	for i := range rpcs {
		m[rpcs[i].Name] = &rpcs[i]
	}
	return m
}

func compareServices(oldServices, newServices []domain.Service) []domain.BreakingChange {
	var changes []domain.BreakingChange

	oldByName := servicesByName(oldServices)
	newByName := servicesByName(newServices)

	seenNames := map[string]bool{}
	for i := range oldServices {
		name := oldServices[i].Name
		if seenNames[name] {
			continue
		}
		seenNames[name] = true
		oldSvc := oldByName[name]

		newSvc, ok := newByName[name]
		if !ok {
			changes = append(changes, domain.BreakingChange{
				Type:       domain.RemovedService,
				Path:       "service " + name,
				Message:    fmt.Sprintf("Service '%s' was removed", name),
				OldValue:   name,
				Severity:   domain.SeverityError,
				Mitigation: "Keep the service or deprecate it first",
			})
			continue
		}

		oldRPCs := rpcsByName(oldSvc.RPCs)
		newRPCs := rpcsByName(newSvc.RPCs)
		seenRPCs := map[string]bool{}
		for _, rpc := range oldSvc.RPCs {
			if seenRPCs[rpc.Name] {
				continue
			}
			seenRPCs[rpc.Name] = true
			oldRPC := oldRPCs[rpc.Name]

			rpcPath := "service " + name + "." + rpc.Name
			newRPC, ok := newRPCs[rpc.Name]
			if !ok {
				changes = append(changes, domain.BreakingChange{
					Type:     domain.RemovedRPC,
					Path:     rpcPath,
					Message:  fmt.Sprintf("RPC '%s' was removed from service '%s'", rpc.Name, name),
					OldValue: rpc.Name,
					Severity: domain.SeverityError,
				})
				continue
			}

			if oldRPC.InputType != newRPC.InputType {
				changes = append(changes, domain.BreakingChange{
					Type:     domain.ChangedFieldType,
					Path:     rpcPath,
					Message:  fmt.Sprintf("RPC input type changed from '%s' to '%s'", oldRPC.InputType, newRPC.InputType),
					OldValue: oldRPC.InputType,
					NewValue: newRPC.InputType,
					Severity: domain.SeverityError,
				})
			}
			if oldRPC.OutputType != newRPC.OutputType {
				changes = append(changes, domain.BreakingChange{
					Type:     domain.ChangedFieldType,
					Path:     rpcPath,
					Message:  fmt.Sprintf("RPC output type changed from '%s' to '%s'", oldRPC.OutputType, newRPC.OutputType),
					OldValue: oldRPC.OutputType,
					NewValue: newRPC.OutputType,
					Severity: domain.SeverityError,
				})
			}
		}
	}

	return changes
}
