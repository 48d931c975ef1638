package app

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Francouer/proto-guard/internal/domain"
)

// Nested blocks deeper than this are dropped, same as unbalanced ones.
const maxNestingDepth = 100

var (
	syntaxPattern     = regexp.MustCompile(`^\s*syntax\s*=\s*["']([^"']+)["']\s*;`)
	packagePattern    = regexp.MustCompile(`^\s*package\s+([\w.]+)\s*;`)
	importPattern     = regexp.MustCompile(`^\s*import\s+(public\s+)?["']([^"']+)["']\s*;`)
	fileOptionPattern = regexp.MustCompile(`^\s*option\s+([\w.]+)\s*=\s*(.+?)\s*;`)

	topLevelHeader = regexp.MustCompile(`^(message|enum|service)\s+(\w+)\s*\{`)
	nestedHeader   = regexp.MustCompile(`^(message|enum)\s+(\w+)\s*\{`)
	oneofHeader    = regexp.MustCompile(`^(oneof)\s+(\w+)\s*\{`)

	fieldStmtPattern = regexp.MustCompile(
		`^(?:(optional|required|repeated) )?([\w.]+) (\w+) ?= ?(\d+)(?: ?\[(.*)\])?$`)
	mapFieldStmtPattern = regexp.MustCompile(
		`^map ?< ?([\w.]+) ?, ?([\w.]+) ?> ?(\w+) ?= ?(\d+)$`)
	optionStmtPattern    = regexp.MustCompile(`^option ([\w.]+) ?= ?(.+)$`)
	reservedStmtPattern  = regexp.MustCompile(`^reserved (.+)$`)
	enumValueStmtPattern = regexp.MustCompile(`^(\w+) ?= ?(-?\d+)(?: ?\[.*\])?$`)
	rpcPattern           = regexp.MustCompile(
		`rpc\s+(\w+)\s*\(\s*(stream\s+)?([\w.]+)\s*\)\s*returns\s*\(\s*(stream\s+)?([\w.]+)\s*\)`)
	reservedRangePattern = regexp.MustCompile(`^(\d+) to (\d+|max)$`)
)

type SchemaParserImpl struct {
	logger domain.Logger
}

// NewSchemaParser creates a new schema parser
func NewSchemaParser(logger domain.Logger) domain.SchemaParser {
	return &SchemaParserImpl{
		logger: logger,
	}
}

// Parse builds a schema document from proto source text. Malformed
// constructs are dropped rather than reported; the validator decides
// what the resulting document is worth.
func (s *SchemaParserImpl) Parse(content string, sourcePath string) *domain.SchemaDocument {
	clean := stripComments(content)

	doc := &domain.SchemaDocument{
		FilePath: sourcePath,
		Options:  map[string]string{},
	}

	s.parseFileLevel(clean, doc)

	_, blocks := extractBlocks(clean, topLevelHeader)
	for _, b := range blocks {
		switch b.kind {
		case "message":
			doc.Messages = append(doc.Messages, s.parseMessage(b.name, b.body, 0))
		case "enum":
			doc.Enums = append(doc.Enums, s.parseEnum(b.name, b.body))
		case "service":
			doc.Services = append(doc.Services, s.parseService(b.name, b.body))
		}
	}

	s.logger.Debug("parsed %s: %d message(s), %d enum(s), %d service(s)",
		sourcePath, len(doc.Messages), len(doc.Enums), len(doc.Services))

	return doc
}

// parseFileLevel picks up syntax, package, imports and file options.
// Declarations are recognized line by line and only at brace depth zero;
// option statements also appear inside messages and must not be mistaken
// for file options. The first syntax declaration wins, and a version
// other than proto2 or proto3 counts as undeclared.
func (s *SchemaParserImpl) parseFileLevel(content string, doc *domain.SchemaDocument) {
	depth := 0
	syntaxSeen := false
	for _, line := range strings.Split(content, "\n") {
		if depth == 0 {
			if m := syntaxPattern.FindStringSubmatch(line); m != nil {
				if !syntaxSeen {
					syntaxSeen = true
					if m[1] == domain.SyntaxProto2 || m[1] == domain.SyntaxProto3 {
						doc.Syntax = m[1]
					}
				}
			} else if m := packagePattern.FindStringSubmatch(line); m != nil {
				if doc.Package == "" {
					doc.Package = m[1]
				}
			} else if m := importPattern.FindStringSubmatch(line); m != nil {
				if strings.TrimSpace(m[1]) == "public" {
					doc.PublicImports = append(doc.PublicImports, m[2])
				} else {
					doc.Imports = append(doc.Imports, m[2])
				}
			} else if m := fileOptionPattern.FindStringSubmatch(line); m != nil {
				doc.Options[m[1]] = parseOptionValue(m[2])
			}
		}
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth < 0 {
			depth = 0
		}
	}
}

// parseMessage handles one message body. Nested messages and enums are
// extracted and removed first so their fields are never attributed to the
// parent; oneof blocks follow, and only then is the remainder scanned for
// plain statements.
func (s *SchemaParserImpl) parseMessage(name, body string, depth int) domain.Message {
	msg := domain.Message{
		Name:    name,
		Oneofs:  map[string][]string{},
		Options: map[string]string{},
	}

	remaining, nested := extractBlocks(body, nestedHeader)
	for _, b := range nested {
		switch b.kind {
		case "message":
			if depth+1 <= maxNestingDepth {
				msg.NestedMessages = append(msg.NestedMessages, s.parseMessage(b.name, b.body, depth+1))
			} else {
				s.logger.Debug("nesting depth limit reached, dropping message %s", b.name)
			}
		case "enum":
			msg.NestedEnums = append(msg.NestedEnums, s.parseEnum(b.name, b.body))
		}
	}

	remaining, oneofs := extractBlocks(remaining, oneofHeader)

	for _, stmt := range splitStatements(remaining) {
		s.parseMessageStatement(&msg, stmt)
	}

	// Oneof members are ordinary fields tagged with their group name.
	for _, ob := range oneofs {
		var members []string
		for _, stmt := range splitStatements(ob.body) {
			if m := fieldStmtPattern.FindStringSubmatch(stmt); m != nil {
				if f, ok := fieldFromMatch(m, ob.name); ok {
					msg.Fields = append(msg.Fields, f)
					members = append(members, f.Name)
				}
			}
		}
		msg.Oneofs[ob.name] = members
	}

	return msg
}

func (s *SchemaParserImpl) parseMessageStatement(msg *domain.Message, stmt string) {
	if m := reservedStmtPattern.FindStringSubmatch(stmt); m != nil {
		names, numbers, ranges := parseReservedParts(m[1])
		msg.ReservedNames = append(msg.ReservedNames, names...)
		msg.ReservedNumbers = append(msg.ReservedNumbers, numbers...)
		msg.ReservedRanges = append(msg.ReservedRanges, ranges...)
		return
	}
	if m := optionStmtPattern.FindStringSubmatch(stmt); m != nil {
		msg.Options[m[1]] = parseOptionValue(m[2])
		return
	}
	if m := mapFieldStmtPattern.FindStringSubmatch(stmt); m != nil {
		if number, err := strconv.Atoi(m[4]); err == nil {
			msg.Fields = append(msg.Fields, domain.Field{
				Name:         m[3],
				Number:       number,
				Type:         "map",
				Label:        domain.LabelRepeated,
				MapKeyType:   m[1],
				MapValueType: m[2],
			})
		}
		return
	}
	if m := fieldStmtPattern.FindStringSubmatch(stmt); m != nil {
		if f, ok := fieldFromMatch(m, ""); ok {
			msg.Fields = append(msg.Fields, f)
		}
	}
}

func (s *SchemaParserImpl) parseEnum(name, body string) domain.Enum {
	enum := domain.Enum{Name: name}

	for _, stmt := range splitStatements(body) {
		if m := optionStmtPattern.FindStringSubmatch(stmt); m != nil {
			if m[1] == "allow_alias" && parseOptionValue(m[2]) == "true" {
				enum.AllowAlias = true
			}
			continue
		}
		if m := reservedStmtPattern.FindStringSubmatch(stmt); m != nil {
			// Enums keep only reserved names and plain numbers.
			names, numbers, _ := parseReservedParts(m[1])
			enum.ReservedNames = append(enum.ReservedNames, names...)
			enum.ReservedNumbers = append(enum.ReservedNumbers, numbers...)
			continue
		}
		if m := enumValueStmtPattern.FindStringSubmatch(stmt); m != nil {
			if number, err := strconv.Atoi(m[2]); err == nil {
				enum.Values = append(enum.Values, domain.EnumValue{Name: m[1], Number: number})
			}
		}
	}

	return enum
}

func (s *SchemaParserImpl) parseService(name, body string) domain.Service {
	svc := domain.Service{Name: name}

	for _, m := range rpcPattern.FindAllStringSubmatch(body, -1) {
		svc.RPCs = append(svc.RPCs, domain.RPC{
			Name:            m[1],
			InputType:       m[3],
			OutputType:      m[5],
			ClientStreaming: strings.TrimSpace(m[2]) == "stream",
			ServerStreaming: strings.TrimSpace(m[4]) == "stream",
		})
	}

	return svc
}

type block struct {
	kind string
	name string
	body string
}

// extractBlocks pulls every balanced header block out of text at brace
// depth zero and returns the text with those blocks removed. Headers whose
// body never closes are left in place; the depth tracking in
// splitStatements then shields the statement scan from their contents.
func extractBlocks(text string, header *regexp.Regexp) (string, []block) {
	var blocks []block
	var rest strings.Builder
	depth := 0
	last := 0
	i := 0
	for i < len(text) {
		c := text[i]
		if c == '{' {
			depth++
			i++
			continue
		}
		if c == '}' {
			if depth > 0 {
				depth--
			}
			i++
			continue
		}
		if depth == 0 && isWordStart(text, i) {
			if m := header.FindStringSubmatch(text[i:]); m != nil {
				openIdx := i + len(m[0]) - 1
				if body, end, ok := scanBraceBlock(text, openIdx); ok {
					rest.WriteString(text[last:i])
					blocks = append(blocks, block{kind: m[1], name: m[2], body: body})
					i = end
					last = end
					continue
				}
			}
		}
		i++
	}
	rest.WriteString(text[last:])
	return rest.String(), blocks
}

// scanBraceBlock walks forward from the opening brace, incrementing on '{'
// and decrementing on '}'. The body ends when the counter returns to zero;
// unbalanced input reports no block instead of scanning past the end.
func scanBraceBlock(text string, openIdx int) (string, int, bool) {
	depth := 0
	for i := openIdx; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[openIdx+1 : i], i + 1, true
			}
		}
	}
	return "", 0, false
}

// splitStatements cuts text into semicolon-terminated statements at brace
// depth zero, with all whitespace runs collapsed to single spaces.
// Statements buried inside unbalanced leftovers never reach depth zero
// and are dropped.
func splitStatements(text string) []string {
	var stmts []string
	depth := 0
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				if stmt := strings.Join(strings.Fields(text[start:i]), " "); stmt != "" {
					stmts = append(stmts, stmt)
				}
				start = i + 1
			}
		}
	}
	return stmts
}

func isWordStart(text string, i int) bool {
	if !isWordChar(text[i]) {
		return false
	}
	return i == 0 || !isWordChar(text[i-1])
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// stripComments removes // and /* */ comments before any structural scan,
// so comment text never influences brace counting or statement matching.
// String literals are left untouched.
func stripComments(content string) string {
	const (
		stateCode = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	var b strings.Builder
	b.Grow(len(content))
	state := stateCode

	for i := 0; i < len(content); i++ {
		c := content[i]
		switch state {
		case stateCode:
			if c == '"' {
				state = stateString
				b.WriteByte(c)
				continue
			}
			if c == '/' && i+1 < len(content) {
				if content[i+1] == '/' {
					state = stateLineComment
					i++
					continue
				}
				if content[i+1] == '*' {
					state = stateBlockComment
					i++
					continue
				}
			}
			b.WriteByte(c)
		case stateString:
			if c == '\\' && i+1 < len(content) {
				b.WriteByte(c)
				i++
				b.WriteByte(content[i])
				continue
			}
			if c == '"' {
				state = stateCode
			}
			b.WriteByte(c)
		case stateLineComment:
			if c == '\n' {
				state = stateCode
				b.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && i+1 < len(content) && content[i+1] == '/' {
				state = stateCode
				i++
				b.WriteByte(' ')
			}
		}
	}

	return b.String()
}

// parseReservedParts handles one comma-separated reserved statement mixing
// quoted names, plain numbers and "A to B" ranges ("max" = 536870911).
func parseReservedParts(stmt string) ([]string, []int, []domain.ReservedRange) {
	var names []string
	var numbers []int
	var ranges []domain.ReservedRange

	for _, part := range strings.Split(stmt, ",") {
		part = strings.TrimSpace(part)
		switch {
		case len(part) >= 2 && part[0] == '"' && part[len(part)-1] == '"':
			names = append(names, part[1:len(part)-1])
		case len(part) >= 2 && part[0] == '\'' && part[len(part)-1] == '\'':
			names = append(names, part[1:len(part)-1])
		default:
			if m := reservedRangePattern.FindStringSubmatch(part); m != nil {
				start, err := strconv.Atoi(m[1])
				if err != nil {
					continue
				}
				end := domain.MaxFieldNumber
				if m[2] != "max" {
					if end, err = strconv.Atoi(m[2]); err != nil {
						continue
					}
				}
				ranges = append(ranges, domain.ReservedRange{Start: start, End: end})
			} else if n, err := strconv.Atoi(part); err == nil {
				numbers = append(numbers, n)
			}
		}
	}

	return names, numbers, ranges
}

func parseOptionValue(raw string) string {
	v := strings.TrimSpace(raw)
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// parseFieldOptions splits a [a = b, c = d] bracket body. A default option
// is surfaced separately instead of landing in the option map.
var fieldOptionPattern = regexp.MustCompile(`(\w+)\s*=\s*([^,\]]+)`)

func parseFieldOptions(raw string) (map[string]string, string) {
	var defaultValue string
	options := map[string]string{}
	for _, m := range fieldOptionPattern.FindAllStringSubmatch(raw, -1) {
		value := strings.TrimSpace(m[2])
		if m[1] == "default" {
			defaultValue = value
		} else {
			options[m[1]] = value
		}
	}
	if len(options) == 0 {
		options = nil
	}
	return options, defaultValue
}

func fieldFromMatch(m []string, oneofGroup string) (domain.Field, bool) {
	number, err := strconv.Atoi(m[4])
	if err != nil {
		return domain.Field{}, false
	}
	f := domain.Field{
		Name:       m[3],
		Number:     number,
		Type:       m[2],
		Label:      domain.ParseFieldLabel(m[1]),
		OneofGroup: oneofGroup,
	}
	if m[5] != "" {
		f.Options, f.DefaultValue = parseFieldOptions(m[5])
	}
	return f, true
}
