// Package auth provides HMAC-based API key authentication for the gRPC and
// HTTP compile services.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/solatis/gfb/internal/metrics"
	"github.com/solatis/gfb/internal/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

// accountIDKey is the context key for storing the authenticated account.
const accountIDKey = contextKey("account_id")

// HeaderAPIKey carries the key on HTTP requests; gRPC uses the lower-cased
// metadata key.
const HeaderAPIKey = "X-API-Key"

const metadataAPIKey = "x-api-key"

// Queries interface defines database operations needed for authentication.
// Implemented by *db.Queries.
type Queries interface {
	Get(ctx context.Context, name string, dest interface{}, args ...interface{}) error
	Exec(ctx context.Context, name string, args ...interface{}) (sql.Result, error)
}

// Authenticator validates API keys using HMAC-SHA256 signatures.
// Holds in-memory secret map for O(1) lookup and queries for key verification.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
	now     func() time.Time
}

// NewAuthenticator creates an authenticator with HMAC secrets and query interface.
func NewAuthenticator(secrets map[string][]byte, queries Queries) *Authenticator {
	return &Authenticator{
		secrets: secrets,
		queries: queries,
		now:     time.Now,
	}
}

// Issue generates a new key signed with the newest secret and returns the key
// with the hash to store. The key itself is never persisted.
func (a *Authenticator) Issue() (key string, keyHash []byte, err error) {
	if len(a.secrets) == 0 {
		return "", nil, ErrNoSecrets
	}

	// UUIDv7 secret ids sort by creation time
	ids := make([]string, 0, len(a.secrets))
	for id := range a.secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	secretID := ids[len(ids)-1]

	key, err = GenerateAPIKey(secretID)
	if err != nil {
		return "", nil, err
	}
	return key, ComputeHMAC(a.secrets[secretID], key), nil
}

// Authenticate validates API key and returns the owning account on success.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (types.AccountID, error) {
	if apiKey == "" {
		return "", ErrMissingKey
	}

	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	computedHash := ComputeHMAC(secret, apiKey)

	// key_hash is unique, so at most one row matches
	var result struct {
		AccountID  types.AccountID `db:"account_id"`
		RevokedAt  sql.NullTime    `db:"revoked_at"`
		APIKeyID   types.APIKeyID  `db:"api_key_id"`
		LastUsedAt sql.NullTime    `db:"last_used_at"`
	}

	err = a.queries.Get(ctx, "get-api-key-by-hash", &result, computedHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if result.RevokedAt.Valid {
		return "", ErrKeyRevoked
	}

	if a.shouldUpdateLastUsed(result.LastUsedAt) {
		_, _ = a.queries.Exec(ctx, "update-last-used", a.now().UTC(), result.APIKeyID)
	}

	return result.AccountID, nil
}

// shouldUpdateLastUsed throttles last_used_at writes to one per minute.
func (a *Authenticator) shouldUpdateLastUsed(lastUsed sql.NullTime) bool {
	if !lastUsed.Valid {
		return true
	}
	return a.now().Sub(lastUsed.Time) > time.Minute
}

// UnaryInterceptor returns gRPC interceptor that authenticates requests.
// Methods listed in skip (full method names) pass through unauthenticated.
func (a *Authenticator) UnaryInterceptor(skip ...string) grpc.UnaryServerInterceptor {
	open := make(map[string]bool, len(skip))
	for _, m := range skip {
		open[m] = true
	}

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if open[info.FullMethod] {
			return handler(ctx, req)
		}

		var apiKey string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if keys := md.Get(metadataAPIKey); len(keys) > 0 {
				apiKey = keys[0]
			}
		}

		account, err := a.Authenticate(ctx, apiKey)
		metrics.AuthenticationAttempts.WithLabelValues("grpc", result(err)).Inc()
		if err != nil {
			return nil, status.Error(Code(err), err.Error())
		}

		return handler(WithAccountID(ctx, account), req)
	}
}

// Middleware authenticates HTTP requests by their X-API-Key header.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, err := a.Authenticate(r.Context(), r.Header.Get(HeaderAPIKey))
		metrics.AuthenticationAttempts.WithLabelValues("http", result(err)).Inc()
		if err != nil {
			http.Error(w, err.Error(), HTTPStatus(err))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), account)))
	})
}

// WithAccountID returns a context carrying account.
func WithAccountID(ctx context.Context, account types.AccountID) context.Context {
	return context.WithValue(ctx, accountIDKey, account)
}

// AccountIDFromContext extracts the account from context.
// Returns empty string if not found.
func AccountIDFromContext(ctx context.Context) types.AccountID {
	if account, ok := ctx.Value(accountIDKey).(types.AccountID); ok {
		return account
	}
	return ""
}
