package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/solatis/gfb/internal/core/api"
	"github.com/solatis/gfb/internal/core/auth"
	"github.com/solatis/gfb/internal/core/db"
	"github.com/solatis/gfb/internal/query"
	"github.com/stretchr/testify/require"
)

const testDocument = `
newsletters:
  data:
    - or-from: [news@shop.example, digest@mail.example]
  actions: [archive]
alerts:
  data:
    - or-subject: outage
`

const testSecretID = "0190a1b2c3d4e5f60718293a4b5c6d7e"

type testEnv struct {
	service *api.Service
	auth    *auth.Authenticator
	key     string
}

// newTestEnv wires a service to a fresh sqlite registry and issues one key
// for account "me".
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	_, err = db.MigrateUp(database)
	require.NoError(t, err)
	store, err := db.NewStore(database)
	require.NoError(t, err)

	compiler, err := query.NewCompiler(query.Options{})
	require.NoError(t, err)
	service, err := api.NewService(compiler, store, nil, 64*1024)
	require.NoError(t, err)

	authenticator := auth.NewAuthenticator(map[string][]byte{testSecretID: []byte("test-secret")}, store.Queries())
	key, hash, err := authenticator.Issue()
	require.NoError(t, err)
	_, err = store.CreateAPIKey(context.Background(), "me", hash)
	require.NoError(t, err)

	return &testEnv{service: service, auth: authenticator, key: key}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
