// Package types provides domain models shared across gfb components.
//
// Zero-dependency design: types.go, sections.go and errors.go use only the standard
// library so the document loader, the query compiler and the servers can share
// them without pulling in each other's dependencies. ID utilities in ids.go
// import uuid but are isolated.
package types

import "strings"

// FilterID identifies one persisted compiled query (UUIDv7).
type FilterID string

// APIKeyID identifies a stored API key (UUIDv7).
type APIKeyID string

// AccountID names the mailbox account a filter set belongs to.
type AccountID string

// Join is the boolean joiner of a clause. Only AND and OR exist.
type Join string

const (
	JoinAnd Join = "AND"
	JoinOr  Join = "OR"
)

// ParseJoin normalizes a joiner word ("and", "OR", ...) to a Join.
func ParseJoin(s string) (Join, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AND":
		return JoinAnd, true
	case "OR":
		return JoinOr, true
	default:
		return "", false
	}
}

// Text returns the rendered joiner as it appears between two query clauses.
func (j Join) Text() string {
	return " " + string(j) + " "
}

// Flip returns the dual joiner (AND <-> OR).
func (j Join) Flip() Join {
	if j == JoinAnd {
		return JoinOr
	}
	return JoinAnd
}

// Key is a decoded EncodedKey: {join}-{field}[-not] or a bare {join}.
type Key struct {
	Join   Join
	Field  string // empty for a field-less clause (free text or joiner literal)
	Negate bool
}

// HasField reports whether the key names a field.
func (k Key) HasField() bool {
	return k.Field != ""
}

// Resource limits for compiled queries.
const (
	// DefaultCharBudget is Gmail's documented ceiling for a filter query.
	// Every compiled query is strictly shorter than the budget.
	DefaultCharBudget = 600

	// MinCharBudget rejects budgets too small to hold a quoted value.
	MinCharBudget = 16
)

// DefaultFields maps the recognized field names of an EncodedKey to the Gmail
// operator they render as. from and to are kept alongside sender and recipient
// for documents written with the address header names.
func DefaultFields() map[string]string {
	return map[string]string{
		"sender":    "sender",
		"recipient": "recipient",
		"from":      "from",
		"to":        "to",
		"cc":        "cc",
		"bcc":       "bcc",
		"list":      "list",
		"replyto":   "replyto",
		"subject":   "subject",
	}
}
