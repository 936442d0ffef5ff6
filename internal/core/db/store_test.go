package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/gfb/internal/query"
	"github.com/solatis/gfb/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB opens a migrated sqlite registry in a temp dir.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := Open("sqlite://" + filepath.Join(t.TempDir(), "gfb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	_, err = MigrateUp(database)
	require.NoError(t, err)
	return database
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(openTestDB(t))
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return store
}

func compiledFilters() []*query.CompiledFilter {
	return []*query.CompiledFilter{
		{
			Label:   "Receipts",
			Queries: []string{`from:("a@x.com")`, `from:("b@y.com")`},
			Actions: []query.Action{query.ActionArchive, query.ActionMarkRead},
		},
		{
			Label:   "Alerts",
			Queries: []string{`subject:("down")`},
		},
	}
}

func TestStore_ReplaceAndList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	account := types.AccountID("me@example.com")

	written, err := store.ReplaceFilters(ctx, account, compiledFilters())
	require.NoError(t, err)
	require.Len(t, written, 3)

	listed, err := store.ListFilters(ctx, account)
	require.NoError(t, err)
	require.Len(t, listed, 3)

	for i, r := range listed {
		assert.Equal(t, i, r.Position)
		assert.Equal(t, written[i].FilterID, r.FilterID)
		assert.True(t, written[i].CreatedAt.Equal(r.CreatedAt), "created_at round trip")
	}
	assert.Equal(t, "Receipts", listed[0].Label)
	assert.Equal(t, []string{"archive", "mark-read"}, listed[1].ActionNames())
	assert.Equal(t, `subject:("down")`, listed[2].Query)
	assert.Nil(t, listed[2].ActionNames())

	assert.Equal(t, ETag(written), ETag(listed))
}

func TestStore_ReplaceDeletesPreviousSet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	account := types.AccountID("me@example.com")
	other := types.AccountID("other@example.com")

	_, err := store.ReplaceFilters(ctx, account, compiledFilters())
	require.NoError(t, err)
	_, err = store.ReplaceFilters(ctx, other, compiledFilters()[1:])
	require.NoError(t, err)
	first, err := store.ListFilters(ctx, account)
	require.NoError(t, err)

	_, err = store.ReplaceFilters(ctx, account, compiledFilters()[1:])
	require.NoError(t, err)

	listed, err := store.ListFilters(ctx, account)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Alerts", listed[0].Label)
	assert.NotEqual(t, ETag(first), ETag(listed))

	untouched, err := store.ListFilters(ctx, other)
	require.NoError(t, err)
	assert.Len(t, untouched, 1)
}

func TestStore_ListUnknownAccount(t *testing.T) {
	store := newTestStore(t)

	listed, err := store.ListFilters(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, listed)
	assert.Equal(t, ETag(nil), ETag(listed))
}

func TestStore_APIKeys(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	account := types.AccountID("me@example.com")

	id, err := store.CreateAPIKey(ctx, account, []byte("hash-1"))
	require.NoError(t, err)

	keys, err := store.ListAPIKeys(ctx, account)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, id, keys[0].APIKeyID)
	assert.Nil(t, keys[0].RevokedAt)

	require.NoError(t, store.RevokeAPIKey(ctx, id))
	assert.Error(t, store.RevokeAPIKey(ctx, id), "second revoke")

	keys, err = store.ListAPIKeys(ctx, account)
	require.NoError(t, err)
	require.NotNil(t, keys[0].RevokedAt)
}

func TestETag_OrderIndependent(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := FilterRecord{FilterID: "a", CreatedAt: ts}
	b := FilterRecord{FilterID: "b", CreatedAt: ts}

	assert.Equal(t, ETag([]FilterRecord{a, b}), ETag([]FilterRecord{b, a}))
	assert.NotEqual(t, ETag([]FilterRecord{a}), ETag([]FilterRecord{a, b}))
	assert.Len(t, ETag(nil), 64)
}
