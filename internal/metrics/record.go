package metrics

import (
	"errors"
	"time"

	"github.com/solatis/gfb/internal/types"
)

// ObserveCompile records one successful compile call.
func ObserveCompile(transport string, labels, queries, split int, elapsed time.Duration) {
	CompileRequestsTotal.WithLabelValues(transport, "success").Inc()
	CompileDuration.WithLabelValues(transport).Observe(elapsed.Seconds())
	FiltersCompiledTotal.Add(float64(labels))
	QueriesEmittedTotal.Add(float64(queries))
	SplitFiltersTotal.Add(float64(split))
}

// ObserveCompileError records one failed compile call.
func ObserveCompileError(transport string, err error, elapsed time.Duration) {
	CompileRequestsTotal.WithLabelValues(transport, "failure").Inc()
	CompileDuration.WithLabelValues(transport).Observe(elapsed.Seconds())
	CompileErrorsTotal.WithLabelValues(ErrorKind(err)).Inc()
}

// ErrorKind classifies a compile error for the kind label.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, types.ErrMalformedKey):
		return "malformed_key"
	case errors.Is(err, types.ErrSectionTooLarge):
		return "section_too_large"
	case errors.Is(err, types.ErrUnknownAction):
		return "unknown_action"
	case errors.Is(err, types.ErrInvalidDocument):
		return "invalid_document"
	case errors.Is(err, types.ErrEmptyFilter):
		return "empty_filter"
	default:
		return "internal"
	}
}
