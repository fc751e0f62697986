package tokenstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvremote/go-tvremote/tokenstore"
)

func TestFile_LoadMissing(t *testing.T) {
	store := tokenstore.NewFile(filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := store.Load(context.Background(), "tv.lan")
	require.ErrorIs(t, err, tokenstore.ErrNotFound)
}

func TestFile_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "credentials.yaml")
	store := tokenstore.NewFile(path)
	ctx := context.Background()

	updated := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, store.Save(ctx, tokenstore.Credentials{
		Host: "tv.lan", Name: "remote", Port: 8002, Token: "1234", Paired: true, UpdatedAt: updated,
	}))
	require.NoError(t, store.Save(ctx, tokenstore.Credentials{Host: "bedroom.lan", Port: 8001}))

	creds, err := store.Load(ctx, "tv.lan")
	require.NoError(t, err)
	assert.Equal(t, "tv.lan", creds.Host)
	assert.Equal(t, "remote", creds.Name)
	assert.Equal(t, 8002, creds.Port)
	assert.Equal(t, "1234", creds.Token)
	assert.True(t, creds.Paired)
	assert.True(t, updated.Equal(creds.UpdatedAt))

	other, err := store.Load(ctx, "bedroom.lan")
	require.NoError(t, err)
	assert.False(t, other.Paired)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file should be renamed away")
}

func TestFile_SaveReplacesEntry(t *testing.T) {
	store := tokenstore.NewFile(filepath.Join(t.TempDir(), "credentials.yaml"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, tokenstore.Credentials{Host: "tv.lan", Token: "old"}))
	require.NoError(t, store.Save(ctx, tokenstore.Credentials{Host: "tv.lan", Token: "new", Paired: true}))

	creds, err := store.Load(ctx, "tv.lan")
	require.NoError(t, err)
	assert.Equal(t, "new", creds.Token)
	assert.True(t, creds.Paired)
}

func TestFile_SaveRequiresHost(t *testing.T) {
	store := tokenstore.NewFile(filepath.Join(t.TempDir(), "credentials.yaml"))
	assert.Error(t, store.Save(context.Background(), tokenstore.Credentials{Token: "x"}))
}

func TestFile_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte("devices: [unclosed"), 0o600))

	_, err := tokenstore.NewFile(path).Load(context.Background(), "tv.lan")
	require.Error(t, err)
	assert.NotErrorIs(t, err, tokenstore.ErrNotFound)
}
