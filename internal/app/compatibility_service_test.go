package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Francouer/proto-guard/internal/domain"
)

func newTestChecker(repo domain.FileRepository) domain.CompatibilityChecker {
	validator := NewSchemaValidator(nopLogger{}, repo, NewSchemaParser(nopLogger{}))
	return NewCompatibilityChecker(nopLogger{}, validator)
}

func parseSchema(path, content string) *domain.SchemaDocument {
	return NewSchemaParser(nopLogger{}).Parse(content, path)
}

func compareContents(t *testing.T, oldContent, newContent string) domain.CompatibilityResult {
	t.Helper()
	checker := newTestChecker(&fakeFileRepo{})
	return checker.CheckSchemas(parseSchema("old.proto", oldContent), parseSchema("new.proto", newContent))
}

func changesOfType(changes []domain.BreakingChange, typ domain.BreakingChangeType) []domain.BreakingChange {
	var out []domain.BreakingChange
	for _, ch := range changes {
		if ch.Type == typ {
			out = append(out, ch)
		}
	}
	return out
}

const baseUserProto = `
syntax = "proto3";
package example.v1;

message User {
  string name = 1;
  string email = 2;
}
`

func TestCheckSchemasIdentical(t *testing.T) {
	result := compareContents(t, baseUserProto, baseUserProto)

	assert.True(t, result.IsCompatible)
	assert.Equal(t, domain.CompatibilityFull, result.Level)
	assert.Empty(t, result.BreakingChanges)
	assert.Empty(t, result.Warnings)
	assert.Empty(t, result.AddedMessages)
	assert.Empty(t, result.RemovedMessages)
	assert.Empty(t, result.ModifiedMessages)
	assert.Equal(t, domain.BumpNone, result.SuggestedBump)
}

func TestCheckSchemasRemovedMessage(t *testing.T) {
	newContent := `
syntax = "proto3";
package example.v1;
message Login { string token = 1; }
`
	oldContent := baseUserProto + "\nmessage Login { string token = 1; }\n"

	result := compareContents(t, oldContent, newContent)

	assert.False(t, result.IsCompatible)
	assert.Equal(t, domain.CompatibilityNone, result.Level)
	assert.Equal(t, []string{"User"}, result.RemovedMessages)
	assert.Equal(t, domain.BumpMajor, result.SuggestedBump)

	changes := changesOfType(result.BreakingChanges, domain.RemovedMessage)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "message User", changes[0].Path)
		assert.Equal(t, "Message 'User' was removed", changes[0].Message)
		assert.Equal(t, "Keep the message or mark it as deprecated first", changes[0].Mitigation)
	}
}

func TestCheckSchemasAddedMessage(t *testing.T) {
	newContent := baseUserProto + "\nmessage Session { string id = 1; }\n"

	result := compareContents(t, baseUserProto, newContent)

	assert.True(t, result.IsCompatible)
	assert.Equal(t, domain.CompatibilityFull, result.Level)
	assert.Equal(t, []string{"Session"}, result.AddedMessages)
	assert.Equal(t, domain.BumpMinor, result.SuggestedBump)
}

func TestAddedFieldIsCompatible(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
message User {
  string name = 1;
}
`
	result := compareContents(t, oldContent, baseUserProto)

	assert.True(t, result.IsCompatible)
	assert.Equal(t, domain.CompatibilityFull, result.Level)
	assert.Empty(t, result.BreakingChanges)
	assert.Empty(t, result.Warnings)
	assert.Empty(t, result.ModifiedMessages)
}

func TestRemovedFieldWithoutReservation(t *testing.T) {
	newContent := `
syntax = "proto3";
package example.v1;
message User {
  string name = 1;
}
`
	result := compareContents(t, baseUserProto, newContent)

	assert.False(t, result.IsCompatible)
	assert.Equal(t, domain.CompatibilityBackward, result.Level)
	assert.Equal(t, []string{"User"}, result.ModifiedMessages)
	assert.Equal(t, domain.BumpMajor, result.SuggestedBump)

	changes := changesOfType(result.BreakingChanges, domain.RemovedField)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "message User.email", changes[0].Path)
		assert.Equal(t, "Field 'email' (number 2) was removed without being reserved", changes[0].Message)
		assert.Equal(t, "email = 2", changes[0].OldValue)
		assert.Equal(t, "Add field number to reserved list to prevent reuse", changes[0].Mitigation)
	}
}

func TestRemovedFieldProperlyReserved(t *testing.T) {
	newContent := `
syntax = "proto3";
package example.v1;
message User {
  reserved 2;
  string name = 1;
}
`
	result := compareContents(t, baseUserProto, newContent)

	assert.True(t, result.IsCompatible)
	assert.Equal(t, domain.CompatibilityFull, result.Level)
	assert.Empty(t, result.BreakingChanges)
	assert.Equal(t, []string{"User"}, result.ModifiedMessages)
	assert.Equal(t, domain.BumpPatch, result.SuggestedBump)

	warnings := changesOfType(result.Warnings, domain.RemovedField)
	if assert.Len(t, warnings, 1) {
		assert.Equal(t, "Field 'email' (number 2) was removed (properly reserved)", warnings[0].Message)
		assert.Equal(t, domain.SeverityWarning, warnings[0].Severity)
	}
}

func TestChangedFieldType(t *testing.T) {
	newContent := `
syntax = "proto3";
package example.v1;
message User {
  string name = 1;
  int64 email = 2;
}
`
	result := compareContents(t, baseUserProto, newContent)

	assert.False(t, result.IsCompatible)
	assert.Equal(t, domain.CompatibilityBackward, result.Level)

	changes := changesOfType(result.BreakingChanges, domain.ChangedFieldType)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "message User.email", changes[0].Path)
		assert.Equal(t, "Field type changed from 'string' to 'int64'", changes[0].Message)
		assert.Equal(t, "string", changes[0].OldValue)
		assert.Equal(t, "int64", changes[0].NewValue)
		assert.Equal(t, "Create a new field with the new type instead", changes[0].Mitigation)
	}
}

func TestChangedFieldLabelToRepeated(t *testing.T) {
	newContent := `
syntax = "proto3";
package example.v1;
message User {
  string name = 1;
  repeated string email = 2;
}
`
	result := compareContents(t, baseUserProto, newContent)

	assert.False(t, result.IsCompatible)
	changes := changesOfType(result.BreakingChanges, domain.ChangedFieldLabel)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "Field label changed from 'singular' to 'repeated'", changes[0].Message)
		assert.Equal(t, domain.SeverityError, changes[0].Severity)
	}
}

func TestChangedFieldLabelSingularToOptional(t *testing.T) {
	newContent := `
syntax = "proto3";
package example.v1;
message User {
  string name = 1;
  optional string email = 2;
}
`
	result := compareContents(t, baseUserProto, newContent)

	assert.True(t, result.IsCompatible)
	assert.Equal(t, domain.CompatibilityFull, result.Level)
	assert.Equal(t, domain.BumpPatch, result.SuggestedBump)

	warnings := changesOfType(result.Warnings, domain.ChangedFieldLabel)
	if assert.Len(t, warnings, 1) {
		assert.Equal(t, "Field label changed from 'singular' to 'optional'", warnings[0].Message)
		assert.Equal(t, "singular", warnings[0].OldValue)
		assert.Equal(t, "optional", warnings[0].NewValue)
	}
}

func TestChangedFieldNumber(t *testing.T) {
	newContent := `
syntax = "proto3";
package example.v1;
message User {
  string name = 1;
  string email = 5;
}
`
	result := compareContents(t, baseUserProto, newContent)

	assert.False(t, result.IsCompatible)

	// Renumbering surfaces both as a removal of the old number and as
	// the number change itself.
	removals := changesOfType(result.BreakingChanges, domain.RemovedField)
	assert.Len(t, removals, 1)

	changes := changesOfType(result.BreakingChanges, domain.ChangedFieldNumber)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "message User.email", changes[0].Path)
		assert.Equal(t, "Field number changed from 2 to 5", changes[0].Message)
		assert.Equal(t, "Field numbers must remain stable", changes[0].Mitigation)
	}
}

func TestReservedNumberReused(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
message User {
  reserved 5;
  string name = 1;
}
`
	newContent := `
syntax = "proto3";
package example.v1;
message User {
  string name = 1;
  string extra = 5;
}
`
	result := compareContents(t, oldContent, newContent)

	assert.False(t, result.IsCompatible)
	changes := changesOfType(result.BreakingChanges, domain.ReservedNumberReused)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "message User", changes[0].Path)
		assert.Equal(t, "Reserved field number 5 is now being used", changes[0].Message)
		assert.Equal(t, "Reserved field numbers must never be reused", changes[0].Mitigation)
	}
}

func TestReservedRangeReused(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
message User {
  reserved 10 to 20;
  string name = 1;
}
`
	newContent := `
syntax = "proto3";
package example.v1;
message User {
  string name = 1;
  string mid = 15;
}
`
	result := compareContents(t, oldContent, newContent)

	assert.False(t, result.IsCompatible)
	changes := changesOfType(result.BreakingChanges, domain.ReservedNumberReused)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "message User", changes[0].Path)
		assert.Equal(t, "Field number 15 from reserved range 10-20 is now being used", changes[0].Message)
		assert.Empty(t, changes[0].Mitigation)
	}
}

func TestReservedRangeIgnoresFieldAlreadyPresent(t *testing.T) {
	// A field sitting inside its own schema's reserved range is a
	// validation problem, not a compatibility change, as long as both
	// sides carry it.
	content := `
syntax = "proto3";
package example.v1;
message User {
  reserved 10 to 20;
  string name = 1;
  string legacy = 12;
}
`
	result := compareContents(t, content, content)

	assert.True(t, result.IsCompatible)
	assert.Empty(t, result.BreakingChanges)
}

func TestReservedNameReused(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
message User {
  reserved "email";
  string name = 1;
}
`
	newContent := `
syntax = "proto3";
package example.v1;
message User {
  string name = 1;
  string email = 7;
}
`
	result := compareContents(t, oldContent, newContent)

	assert.False(t, result.IsCompatible)
	changes := changesOfType(result.BreakingChanges, domain.ReservedFieldReused)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "message User.email", changes[0].Path)
		assert.Equal(t, "Reserved field name 'email' is now being used", changes[0].Message)
		assert.Equal(t, "Reserved field names must never be reused", changes[0].Mitigation)
	}
}

func TestNestedMessageRemoved(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
message Outer {
  string id = 1;
  message Inner { string a = 1; }
}
`
	newContent := `
syntax = "proto3";
package example.v1;
message Outer {
  string id = 1;
}
`
	result := compareContents(t, oldContent, newContent)

	assert.False(t, result.IsCompatible)
	// Only top-level removals drop compatibility to none.
	assert.Equal(t, domain.CompatibilityBackward, result.Level)
	assert.Empty(t, result.RemovedMessages)

	changes := changesOfType(result.BreakingChanges, domain.RemovedMessage)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "message Outer.Inner", changes[0].Path)
		assert.Equal(t, "Nested message 'Inner' was removed", changes[0].Message)
	}
}

func TestNestedMessagePathsUseOwnName(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
message Outer {
  message Inner { string a = 1; }
}
`
	newContent := `
syntax = "proto3";
package example.v1;
message Outer {
  message Inner { int32 a = 1; }
}
`
	result := compareContents(t, oldContent, newContent)

	changes := changesOfType(result.BreakingChanges, domain.ChangedFieldType)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "message Inner.a", changes[0].Path)
	}
}

func TestNestedEnumRemoved(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
message Outer {
  string id = 1;
  enum Kind { KIND_UNSPECIFIED = 0; }
}
`
	newContent := `
syntax = "proto3";
package example.v1;
message Outer {
  string id = 1;
}
`
	result := compareContents(t, oldContent, newContent)

	changes := changesOfType(result.BreakingChanges, domain.RemovedEnum)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "message Outer.Kind", changes[0].Path)
		assert.Equal(t, "Nested enum 'Kind' was removed", changes[0].Message)
	}
}

func TestNestedEnumValuePathsKeepParent(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
message Outer {
  enum Kind {
    KIND_UNSPECIFIED = 0;
    KIND_LEGACY = 1;
  }
}
`
	newContent := `
syntax = "proto3";
package example.v1;
message Outer {
  enum Kind {
    KIND_UNSPECIFIED = 0;
  }
}
`
	result := compareContents(t, oldContent, newContent)

	changes := changesOfType(result.BreakingChanges, domain.RemovedEnumValue)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "message Outer.Kind.KIND_LEGACY", changes[0].Path)
	}
}

func TestEnumRemoved(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
enum Status {
  STATUS_UNSPECIFIED = 0;
}
`
	newContent := `
syntax = "proto3";
package example.v1;
`
	result := compareContents(t, oldContent, newContent)

	assert.False(t, result.IsCompatible)
	assert.Equal(t, domain.CompatibilityBackward, result.Level)

	changes := changesOfType(result.BreakingChanges, domain.RemovedEnum)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "enum Status", changes[0].Path)
		assert.Equal(t, "Enum 'Status' was removed", changes[0].Message)
		assert.Equal(t, "Keep the enum or deprecate it first", changes[0].Mitigation)
	}
}

func TestEnumValueRemovedWithoutReservation(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
enum Status {
  STATUS_UNSPECIFIED = 0;
  STATUS_OLD = 2;
}
`
	newContent := `
syntax = "proto3";
package example.v1;
enum Status {
  STATUS_UNSPECIFIED = 0;
}
`
	result := compareContents(t, oldContent, newContent)

	changes := changesOfType(result.BreakingChanges, domain.RemovedEnumValue)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "enum Status.STATUS_OLD", changes[0].Path)
		assert.Equal(t, "Enum value 'STATUS_OLD' (= 2) was removed without being reserved", changes[0].Message)
		assert.Equal(t, "STATUS_OLD = 2", changes[0].OldValue)
		assert.Equal(t, "Add value name/number to reserved list", changes[0].Mitigation)
	}
}

func TestEnumValueRemovedProperlyReserved(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
enum Status {
  STATUS_UNSPECIFIED = 0;
  STATUS_OLD = 2;
}
`
	newContent := `
syntax = "proto3";
package example.v1;
enum Status {
  reserved "STATUS_OLD";
  STATUS_UNSPECIFIED = 0;
}
`
	result := compareContents(t, oldContent, newContent)

	assert.True(t, result.IsCompatible)
	warnings := changesOfType(result.Warnings, domain.RemovedEnumValue)
	if assert.Len(t, warnings, 1) {
		assert.Equal(t, "Enum value 'STATUS_OLD' was removed (properly reserved)", warnings[0].Message)
	}

	// Reserving the number instead of the name works the same way.
	newByNumber := `
syntax = "proto3";
package example.v1;
enum Status {
  reserved 2;
  STATUS_UNSPECIFIED = 0;
}
`
	result = compareContents(t, oldContent, newByNumber)
	assert.True(t, result.IsCompatible)
	assert.Len(t, changesOfType(result.Warnings, domain.RemovedEnumValue), 1)
}

func TestEnumValueNumberChanged(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
enum Status {
  STATUS_UNSPECIFIED = 0;
  STATUS_ACTIVE = 2;
}
`
	newContent := `
syntax = "proto3";
package example.v1;
enum Status {
  STATUS_UNSPECIFIED = 0;
  STATUS_ACTIVE = 3;
}
`
	result := compareContents(t, oldContent, newContent)

	changes := changesOfType(result.BreakingChanges, domain.ChangedEnumValueNumber)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "enum Status.STATUS_ACTIVE", changes[0].Path)
		assert.Equal(t, "Enum value number changed from 2 to 3", changes[0].Message)
		assert.Equal(t, "Enum value numbers must remain stable", changes[0].Mitigation)
	}
}

func TestServiceRemoved(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
message Ping { string x = 1; }
service UserService {
  rpc Get(Ping) returns (Ping);
}
`
	newContent := `
syntax = "proto3";
package example.v1;
message Ping { string x = 1; }
`
	result := compareContents(t, oldContent, newContent)

	assert.False(t, result.IsCompatible)
	changes := changesOfType(result.BreakingChanges, domain.RemovedService)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "service UserService", changes[0].Path)
		assert.Equal(t, "Service 'UserService' was removed", changes[0].Message)
		assert.Equal(t, "Keep the service or deprecate it first", changes[0].Mitigation)
	}
}

func TestRPCRemoved(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
message Ping { string x = 1; }
service UserService {
  rpc Get(Ping) returns (Ping);
  rpc List(Ping) returns (Ping);
}
`
	newContent := `
syntax = "proto3";
package example.v1;
message Ping { string x = 1; }
service UserService {
  rpc Get(Ping) returns (Ping);
}
`
	result := compareContents(t, oldContent, newContent)

	changes := changesOfType(result.BreakingChanges, domain.RemovedRPC)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "service UserService.List", changes[0].Path)
		assert.Equal(t, "RPC 'List' was removed from service 'UserService'", changes[0].Message)
	}
}

func TestRPCTypesChanged(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
message GetRequest { string id = 1; }
message GetResponse { string name = 1; }
service UserService {
  rpc Get(GetRequest) returns (GetResponse);
}
`
	newContent := `
syntax = "proto3";
package example.v1;
message FetchRequest { string id = 1; }
message FetchResponse { string name = 1; }
service UserService {
  rpc Get(FetchRequest) returns (FetchResponse);
}
`
	result := compareContents(t, oldContent, newContent)

	assert.False(t, result.IsCompatible)

	changes := changesOfType(result.BreakingChanges, domain.ChangedFieldType)
	if assert.Len(t, changes, 2) {
		assert.Equal(t, "RPC input type changed from 'GetRequest' to 'FetchRequest'", changes[0].Message)
		assert.Equal(t, "RPC output type changed from 'GetResponse' to 'FetchResponse'", changes[1].Message)
		assert.Equal(t, "service UserService.Get", changes[0].Path)
	}
}

func TestFieldsJoinedByNumberLastDeclarationWins(t *testing.T) {
	// Duplicate numbers are a validation error, but the differ still has
	// to hold a stable position: the last declaration owns the number.
	oldContent := `
syntax = "proto3";
package example.v1;
message User {
  string a = 1;
  int32 b = 1;
}
`
	newContent := `
syntax = "proto3";
package example.v1;
message User {
  int32 c = 1;
}
`
	result := compareContents(t, oldContent, newContent)

	assert.Empty(t, changesOfType(result.BreakingChanges, domain.ChangedFieldType))
}

func TestCheckSchemasIdenticalWithDuplicateNames(t *testing.T) {
	// Names declared twice collapse to their last declaration on both
	// sides, so a schema compared against itself stays clean.
	content := `
syntax = "proto3";
package example.v1;

message Account {
  message Meta { string a = 1; }
  message Meta { int32 b = 1; }
  enum Kind {
    KIND_A = 0;
    KIND_B = 1;
  }
  enum Kind {
    KIND_A = 0;
    KIND_A = 1;
  }
  string id = 1;
}

message User {
  string name = 1;
}

message User {
  string name = 1;
  int32 age = 2;
}

enum Status {
  STATUS_A = 0;
  STATUS_A = 1;
}

enum Level {
  LEVEL_A = 0;
}

enum Level {
  LEVEL_A = 0;
  LEVEL_B = 1;
}

service AccountService {
  rpc Get(Account) returns (User);
  rpc Get(User) returns (Account);
}

service SyncService {
  rpc Run(Account) returns (Account);
}

service SyncService {
  rpc Run(User) returns (User);
}
`
	result := compareContents(t, content, content)

	assert.True(t, result.IsCompatible)
	assert.Equal(t, domain.CompatibilityFull, result.Level)
	assert.Empty(t, result.BreakingChanges)
	assert.Empty(t, result.Warnings)
	assert.Empty(t, result.AddedMessages)
	assert.Empty(t, result.RemovedMessages)
	assert.Empty(t, result.ModifiedMessages)
	assert.Equal(t, domain.BumpNone, result.SuggestedBump)
}

func TestEnumValuesJoinedByNameLastDeclarationWins(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
enum Status {
  STATUS_A = 0;
  STATUS_A = 1;
}
`
	result := compareContents(t, oldContent, `
syntax = "proto3";
package example.v1;
enum Status {
  STATUS_A = 1;
}
`)
	assert.True(t, result.IsCompatible)
	assert.Empty(t, result.BreakingChanges)

	// Against the first declaration's number the change is real.
	result = compareContents(t, oldContent, `
syntax = "proto3";
package example.v1;
enum Status {
  STATUS_A = 0;
}
`)
	changes := changesOfType(result.BreakingChanges, domain.ChangedEnumValueNumber)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "enum Status.STATUS_A", changes[0].Path)
		assert.Equal(t, "Enum value number changed from 1 to 0", changes[0].Message)
	}
}

func TestRPCsJoinedByNameLastDeclarationWins(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
message Ping { string a = 1; }
message Pong { string b = 1; }
service Health {
  rpc Do(Ping) returns (Pong);
  rpc Do(Pong) returns (Ping);
}
`
	result := compareContents(t, oldContent, `
syntax = "proto3";
package example.v1;
message Ping { string a = 1; }
message Pong { string b = 1; }
service Health {
  rpc Do(Pong) returns (Ping);
}
`)
	assert.True(t, result.IsCompatible)
	assert.Empty(t, result.BreakingChanges)

	result = compareContents(t, oldContent, `
syntax = "proto3";
package example.v1;
message Ping { string a = 1; }
message Pong { string b = 1; }
service Health {
  rpc Do(Ping) returns (Pong);
}
`)
	changes := changesOfType(result.BreakingChanges, domain.ChangedFieldType)
	if assert.Len(t, changes, 2) {
		assert.Equal(t, "service Health.Do", changes[0].Path)
		assert.Equal(t, "RPC input type changed from 'Pong' to 'Ping'", changes[0].Message)
		assert.Equal(t, "RPC output type changed from 'Ping' to 'Pong'", changes[1].Message)
	}
}

func TestMessagesJoinedByNameLastDeclarationWins(t *testing.T) {
	oldContent := `
syntax = "proto3";
package example.v1;
message User { string a = 1; }
message User { int32 a = 1; }
`
	result := compareContents(t, oldContent, `
syntax = "proto3";
package example.v1;
message User { int32 a = 1; }
`)
	assert.True(t, result.IsCompatible)
	assert.Empty(t, result.BreakingChanges)
	assert.Empty(t, result.ModifiedMessages)

	result = compareContents(t, oldContent, `
syntax = "proto3";
package example.v1;
message User { string a = 1; }
`)
	changes := changesOfType(result.BreakingChanges, domain.ChangedFieldType)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "message User.a", changes[0].Path)
		assert.Equal(t, "Field type changed from 'int32' to 'string'", changes[0].Message)
	}
	assert.Equal(t, []string{"User"}, result.ModifiedMessages)

	// A name declared twice on the new side only is added once.
	result = compareContents(t, `
syntax = "proto3";
package example.v1;
message Keep { string k = 1; }
`, `
syntax = "proto3";
package example.v1;
message Keep { string k = 1; }
message User { string a = 1; }
message User { int32 a = 1; }
`)
	assert.Equal(t, []string{"User"}, result.AddedMessages)
}

func TestCheckValidFiles(t *testing.T) {
	repo := &fakeFileRepo{files: map[string]string{
		"old.proto": baseUserProto,
		"new.proto": baseUserProto,
	}}
	checker := newTestChecker(repo)

	result := checker.Check(context.Background(), "old.proto", "new.proto", nil)

	assert.True(t, result.IsCompatible)
	assert.Equal(t, "old.proto", result.SourceFile)
	assert.Equal(t, "new.proto", result.TargetFile)
	assert.Equal(t, domain.CompatibilityFull, result.Level)
}

func TestCheckUnparsableOldFile(t *testing.T) {
	repo := &fakeFileRepo{files: map[string]string{
		"old.proto": `syntax = "proto3"; message M { string x = 1; }`,
		"new.proto": baseUserProto,
	}}
	checker := newTestChecker(repo)

	result := checker.Check(context.Background(), "old.proto", "new.proto", nil)

	assert.False(t, result.IsCompatible)
	assert.Equal(t, domain.CompatibilityNone, result.Level)
	assert.Equal(t, domain.BumpMajor, result.SuggestedBump)
	if assert.Len(t, result.BreakingChanges, 1) {
		assert.Equal(t, domain.RemovedMessage, result.BreakingChanges[0].Type)
		assert.Equal(t, "/", result.BreakingChanges[0].Path)
		assert.Equal(t, "Failed to parse old schema: Package declaration is required", result.BreakingChanges[0].Message)
	}
}

func TestCheckUnparsableNewFile(t *testing.T) {
	repo := &fakeFileRepo{files: map[string]string{
		"old.proto": baseUserProto,
		"new.proto": `syntax = "proto3"; message M { string x = 1; }`,
	}}
	checker := newTestChecker(repo)

	result := checker.Check(context.Background(), "old.proto", "new.proto", nil)

	assert.False(t, result.IsCompatible)
	if assert.Len(t, result.BreakingChanges, 1) {
		assert.Equal(t, "Failed to parse new schema: Package declaration is required", result.BreakingChanges[0].Message)
	}
}

func TestCheckBothUnparsableReportsOldFirst(t *testing.T) {
	repo := &fakeFileRepo{files: map[string]string{
		"old.proto": `syntax = "proto3"; message M { string x = 1; }`,
		"new.proto": `syntax = "proto3"; message M { string x = 1; }`,
	}}
	checker := newTestChecker(repo)

	result := checker.Check(context.Background(), "old.proto", "new.proto", nil)

	if assert.Len(t, result.BreakingChanges, 1) {
		assert.Contains(t, result.BreakingChanges[0].Message, "old schema")
	}
}
