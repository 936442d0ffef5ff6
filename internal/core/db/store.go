package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/gfb/internal/query"
	"github.com/solatis/gfb/internal/types"
)

// FilterRecord is one persisted compiled query.
type FilterRecord struct {
	FilterID  types.FilterID  `db:"filter_id"`
	AccountID types.AccountID `db:"account_id"`
	Label     string          `db:"label"`
	Position  int             `db:"position"`
	Query     string          `db:"query"`
	Actions   string          `db:"actions"` // comma separated action names
	CreatedAt time.Time       `db:"created_at"`
}

// ActionNames splits the stored action list.
func (r FilterRecord) ActionNames() []string {
	if r.Actions == "" {
		return nil
	}
	return strings.Split(r.Actions, ",")
}

// Store persists compiled filter sets per account.
type Store struct {
	queries *Queries
	now     func() time.Time
}

// NewStore loads the named queries for database.
func NewStore(database *sqlx.DB) (*Store, error) {
	queries, err := LoadQueries(database)
	if err != nil {
		return nil, err
	}
	return &Store{queries: queries, now: time.Now}, nil
}

// Queries exposes the named queries, e.g. for the authenticator.
func (s *Store) Queries() *Queries {
	return s.queries
}

// ReplaceFilters swaps the account's filter set for filters in one transaction:
// every existing row is deleted, then one row per compiled query is inserted in
// document order.
func (s *Store) ReplaceFilters(ctx context.Context, account types.AccountID, filters []*query.CompiledFilter) ([]FilterRecord, error) {
	createdAt := s.now().UTC().Truncate(time.Microsecond)

	var records []FilterRecord
	for _, f := range filters {
		actions := strings.Join(f.ActionNames(), ",")
		for _, q := range f.Queries {
			records = append(records, FilterRecord{
				FilterID:  types.NewFilterID(),
				AccountID: account,
				Label:     f.Label,
				Position:  len(records),
				Query:     q,
				Actions:   actions,
				CreatedAt: createdAt,
			})
		}
	}

	err := s.queries.InTx(ctx, func(tx *Tx) error {
		if _, err := tx.Exec(ctx, "delete-account-filters", account); err != nil {
			return fmt.Errorf("failed to delete filters: %w", err)
		}
		for _, r := range records {
			if _, err := tx.Exec(ctx, "insert-filter",
				r.FilterID, r.AccountID, r.Label, r.Position, r.Query, r.Actions, r.CreatedAt); err != nil {
				return fmt.Errorf("failed to insert filter %s: %w", r.FilterID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListFilters returns the account's filters in document order.
func (s *Store) ListFilters(ctx context.Context, account types.AccountID) ([]FilterRecord, error) {
	var records []FilterRecord
	if err := s.queries.Select(ctx, "list-account-filters", &records, account); err != nil {
		return nil, fmt.Errorf("failed to list filters: %w", err)
	}
	return records, nil
}

// APIKeyRecord is a stored API key without its hash.
type APIKeyRecord struct {
	APIKeyID   types.APIKeyID  `db:"api_key_id"`
	AccountID  types.AccountID `db:"account_id"`
	CreatedAt  time.Time       `db:"created_at"`
	RevokedAt  *time.Time      `db:"revoked_at"`
	LastUsedAt *time.Time      `db:"last_used_at"`
}

// CreateAPIKey stores the HMAC of a new key for account.
func (s *Store) CreateAPIKey(ctx context.Context, account types.AccountID, keyHash []byte) (types.APIKeyID, error) {
	id := types.NewAPIKeyID()
	if _, err := s.queries.Exec(ctx, "insert-api-key", id, account, keyHash, s.now().UTC()); err != nil {
		return "", fmt.Errorf("failed to store api key: %w", err)
	}
	return id, nil
}

// RevokeAPIKey marks a key revoked. Revoking twice is an error.
func (s *Store) RevokeAPIKey(ctx context.Context, id types.APIKeyID) error {
	res, err := s.queries.Exec(ctx, "revoke-api-key", s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("api key %s not found or already revoked", id)
	}
	return nil
}

// ListAPIKeys returns the keys of account, oldest first.
func (s *Store) ListAPIKeys(ctx context.Context, account types.AccountID) ([]APIKeyRecord, error) {
	var keys []APIKeyRecord
	if err := s.queries.Select(ctx, "list-api-keys", &keys, account); err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}

// ETag fingerprints a filter set: SHA-256 over the sorted
// "filter_id:created_at" lines. An empty set has a stable tag too.
func ETag(records []FilterRecord) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, string(r.FilterID)+":"+r.CreatedAt.UTC().Format(time.RFC3339Nano))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
