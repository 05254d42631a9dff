package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() Record {
	return Record{
		AccessToken:  "ya29.test",
		RefreshToken: "1//refresh",
		ExpiresAt:    time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Email:        "a@lioncrest.vc",
	}
}

// stores under test share one behavioral contract.
func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "paneld", "token.json"))
	require.NoError(t, err)
	return map[string]Store{
		"file":   fileStore,
		"memory": NewMemStore(),
	}
}

func TestStoreContract(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("load on empty store returns nil", func(t *testing.T) {
				rec, err := store.Load(ctx)
				require.NoError(t, err)
				assert.Nil(t, rec)
			})

			t.Run("save then load round-trips", func(t *testing.T) {
				want := sampleRecord()
				require.NoError(t, store.Save(ctx, want))

				got, err := store.Load(ctx)
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, want.AccessToken, got.AccessToken)
				assert.Equal(t, want.Email, got.Email)
				assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))
			})

			t.Run("save overwrites wholesale", func(t *testing.T) {
				next := sampleRecord()
				next.AccessToken = "ya29.renewed"
				next.RefreshToken = ""
				require.NoError(t, store.Save(ctx, next))

				got, err := store.Load(ctx)
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, "ya29.renewed", got.AccessToken)
				assert.Empty(t, got.RefreshToken)
			})

			t.Run("clear is idempotent", func(t *testing.T) {
				require.NoError(t, store.Clear(ctx))
				require.NoError(t, store.Clear(ctx))

				rec, err := store.Load(ctx)
				require.NoError(t, err)
				assert.Nil(t, rec)
			})
		})
	}
}

func TestFileStorePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), sampleRecord()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}

func TestRecordExpired(t *testing.T) {
	now := time.Now()

	t.Run("1ms in the future is still valid", func(t *testing.T) {
		rec := Record{ExpiresAt: now.Add(time.Millisecond)}
		assert.False(t, rec.Expired(now))
	})

	t.Run("expiry in the past is stale", func(t *testing.T) {
		rec := Record{ExpiresAt: now.Add(-time.Millisecond)}
		assert.True(t, rec.Expired(now))
	})

	t.Run("exact expiry instant is stale", func(t *testing.T) {
		rec := Record{ExpiresAt: now}
		assert.True(t, rec.Expired(now))
	})
}
