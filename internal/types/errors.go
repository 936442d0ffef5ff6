package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for gfb operations.
var (
	// ErrMalformedKey indicates an EncodedKey that is not {join}-{field}[-not] or {join}.
	ErrMalformedKey = errors.New("malformed filter key")

	// ErrSectionTooLarge indicates an indivisible section exceeds the character budget.
	ErrSectionTooLarge = errors.New("section exceeds character budget")

	// ErrUnknownAction indicates an action name outside the recognized set.
	ErrUnknownAction = errors.New("unknown filter action")

	// ErrInvalidDocument indicates a filter document with an unsupported shape.
	ErrInvalidDocument = errors.New("invalid filter document")

	// ErrEmptyFilter indicates a filter that produced no criteria at all.
	ErrEmptyFilter = errors.New("filter has no criteria")
)

// MalformedKeyError reports the offending EncodedKey.
type MalformedKeyError struct {
	Key    string
	Reason string
}

func (e *MalformedKeyError) Error() string {
	return fmt.Sprintf("malformed filter key %q: %s", e.Key, e.Reason)
}

func (e *MalformedKeyError) Unwrap() error { return ErrMalformedKey }

// SectionTooLargeError echoes the indivisible section that cannot fit the budget.
type SectionTooLargeError struct {
	Section string
	Length  int
	Budget  int
}

func (e *SectionTooLargeError) Error() string {
	return fmt.Sprintf("section of %d chars exceeds the %d char budget and cannot be split "+
		"without changing its meaning; reduce it: %s", e.Length, e.Budget, e.Section)
}

func (e *SectionTooLargeError) Unwrap() error { return ErrSectionTooLarge }

// UnknownActionError reports an action name outside the recognized set.
type UnknownActionError struct {
	Name string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown filter action %q", e.Name)
}

func (e *UnknownActionError) Unwrap() error { return ErrUnknownAction }

// DocumentError reports a shape problem in the input document.
type DocumentError struct {
	Line   int
	Reason string
}

func (e *DocumentError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid filter document (line %d): %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("invalid filter document: %s", e.Reason)
}

func (e *DocumentError) Unwrap() error { return ErrInvalidDocument }
