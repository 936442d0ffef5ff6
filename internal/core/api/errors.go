package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/solatis/gfb/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Service errors. Compile errors come from the types package.
var (
	ErrRegistryDisabled    = errors.New("filter registry not configured (set db.url)")
	ErrRegistryUnavailable = errors.New("filter registry unavailable")
	ErrMissingAccount      = errors.New("request has no account")
)

// Code maps a service error to its gRPC status code.
// Document and compile errors are the caller's fault; registry failures are
// retryable.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, types.ErrInvalidDocument),
		errors.Is(err, types.ErrMalformedKey),
		errors.Is(err, types.ErrSectionTooLarge),
		errors.Is(err, types.ErrUnknownAction),
		errors.Is(err, types.ErrEmptyFilter):
		return codes.InvalidArgument
	case errors.Is(err, ErrRegistryDisabled):
		return codes.FailedPrecondition
	case errors.Is(err, ErrMissingAccount):
		return codes.Unauthenticated
	case errors.Is(err, ErrRegistryUnavailable):
		return codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

// StatusError wraps err in a gRPC status carrying Code(err).
func StatusError(err error) error {
	if err == nil {
		return nil
	}
	return status.Error(Code(err), err.Error())
}

// HTTPStatus maps a service error to its HTTP status.
func HTTPStatus(err error) int {
	switch Code(err) {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.FailedPrecondition:
		return http.StatusNotImplemented
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.Unavailable, codes.Canceled:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
