package auth

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Authentication errors. Missing, malformed and unknown keys all map to
// Unauthenticated so a caller cannot probe which keys exist; only a revoked
// key confirms existence.
var (
	ErrMissingKey       = errors.New("API key required in x-api-key header")
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	ErrUnknownKey       = errors.New("unknown secret ID")
	ErrInvalidKey       = errors.New("invalid API key")
	ErrKeyRevoked       = errors.New("API key has been revoked")
	ErrNoSecrets        = errors.New("no HMAC secret configured (set GFB_HMAC_SECRET)")
	ErrUnavailable      = errors.New("key store unavailable")
)

// Code maps an authentication error to its gRPC status code.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrKeyRevoked):
		return codes.PermissionDenied
	case errors.Is(err, ErrUnavailable):
		return codes.Unavailable
	default:
		return codes.Unauthenticated
	}
}

// HTTPStatus maps an authentication error to its HTTP status.
func HTTPStatus(err error) int {
	switch Code(err) {
	case codes.OK:
		return http.StatusOK
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnauthorized
	}
}

// result is the metrics label of an authentication outcome.
func result(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrKeyRevoked):
		return "revoked"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrMissingKey):
		return "missing"
	default:
		return "invalid"
	}
}
