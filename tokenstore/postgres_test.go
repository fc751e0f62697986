package tokenstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvremote/go-tvremote/tokenstore"
)

// These tests need a reachable PostgreSQL, e.g.
// TVREMOTE_TEST_DSN="postgres://postgres@localhost/postgres?sslmode=disable".
func openTestPostgres(t *testing.T) *tokenstore.Postgres {
	t.Helper()
	dsn := os.Getenv("TVREMOTE_TEST_DSN")
	if dsn == "" {
		t.Skip("TVREMOTE_TEST_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := tokenstore.OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func TestPostgres_SaveAndLoad(t *testing.T) {
	store := openTestPostgres(t)
	ctx := context.Background()
	host := "test-" + time.Now().Format("150405.000000")

	_, err := store.Load(ctx, host)
	require.ErrorIs(t, err, tokenstore.ErrNotFound)

	require.NoError(t, store.Save(ctx, tokenstore.Credentials{Host: host, Name: "r", Port: 8001}))
	require.NoError(t, store.Save(ctx, tokenstore.Credentials{Host: host, Name: "r", Port: 8002, Token: "tok", Paired: true}))

	creds, err := store.Load(ctx, host)
	require.NoError(t, err)
	assert.Equal(t, 8002, creds.Port)
	assert.Equal(t, "tok", creds.Token)
	assert.True(t, creds.Paired)
	assert.False(t, creds.UpdatedAt.IsZero())
}

func TestPostgres_EnsureSchemaIsIdempotent(t *testing.T) {
	store := openTestPostgres(t)
	require.NoError(t, store.EnsureSchema(context.Background()))
}
