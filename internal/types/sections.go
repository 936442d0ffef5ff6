// internal/types/sections.go
package types

/*
 * Domain types for filter compilation.
 *
 * Provides Document, FilterSpec, Section, Clause and Token used by
 * internal/document (parsing) and internal/query (compilation and splitting).
 * These types are format agnostic - YAML/JSON decoding happens in
 * internal/document.
 *
 * Key types:
 *   - Section: tagged variant, either a bare joiner literal or an ordered clause list
 *   - Clause: one EncodedKey with either leaf values or nested Sections
 *   - Token: one element of the compiled token stream
 *
 * The Section variant is decided once at parse time from the document shape;
 * the compiler dispatches on Kind rather than inspecting values at runtime.
 */

// ClauseKind tags the value shape of a Clause.
type ClauseKind int

const (
	// ClauseLeaf holds a value list for one field (or free text).
	ClauseLeaf ClauseKind = iota
	// ClauseGroup holds nested Sections rendered inside parentheses.
	ClauseGroup
)

// Clause is one EncodedKey/value pairing of a Section.
type Clause struct {
	Key    string     // raw EncodedKey, decoded by the compiler
	Kind   ClauseKind // leaf or group
	Values []string   // leaf values; a scalar is normalized to one element
	Groups []Section  // nested sections for ClauseGroup
	Line   int        // source line for diagnostics (0 if unknown)
}

// Section is one element of a `data` sequence or of a nested group.
// Exactly one of Joiner or Clauses is set.
type Section struct {
	Joiner  string   // bare joiner literal ("and", "or")
	Clauses []Clause // ordered clauses of a mapping
}

// IsJoiner reports whether the section is a bare joiner literal.
func (s Section) IsJoiner() bool {
	return s.Joiner != ""
}

// FilterSpec is the specification of one label: its criteria tree and actions.
type FilterSpec struct {
	Label   string    // label name, also the document key
	Data    []Section // criteria tree, left-to-right composition order
	Actions []string  // declared action names
}

// Document is an ordered set of filter specifications.
type Document struct {
	Filters []FilterSpec
}

// TokenKind tags the structural role of a Token.
type TokenKind int

const (
	TokenCriterion TokenKind = iota
	TokenJoiner
	TokenGroupOpen
	TokenGroupClose
)

// String returns a short name for diagnostics.
func (k TokenKind) String() string {
	switch k {
	case TokenCriterion:
		return "criterion"
	case TokenJoiner:
		return "joiner"
	case TokenGroupOpen:
		return "group-open"
	case TokenGroupClose:
		return "group-close"
	default:
		return "unknown"
	}
}

// Token is one element of a compiled token stream.
type Token struct {
	Kind TokenKind
	Text string // rendered text
	Join Join   // set for TokenJoiner
	Soft bool   // group markers around the chunks of one split clause
}

// Render concatenates the rendered text of tokens.
func Render(tokens []Token) string {
	n := 0
	for _, t := range tokens {
		n += len(t.Text)
	}
	buf := make([]byte, 0, n)
	for _, t := range tokens {
		buf = append(buf, t.Text...)
	}
	return string(buf)
}
