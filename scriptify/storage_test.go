package scriptify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageCommon(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		store Storage
	}{
		{
			name:  "mem",
			store: NewMemStorage(),
		},
		{
			name:  "prefix",
			store: KeyPrefixStorage(NewMemStorage(), "env"),
		},
	}

	if !testing.Short() {
		badgerStorage, err := NewBadgerStorage(filepath.Join(t.TempDir(), "badger"), 64)
		require.NoError(t, err)
		t.Cleanup(badgerStorage.Close)

		tests = append(tests, struct {
			name  string
			store Storage
		}{
			name:  "badger",
			store: badgerStorage,
		})
	}

	for _, tc := range tests {
		t.Run(tc.name+"_save_clear", func(t *testing.T) {
			require.NoError(t, tc.store.Save("t1", []byte{1, 2, 3}))
			require.NoError(t, tc.store.Clear())

			keys, err := tc.store.ListKeys()
			require.NoError(t, err)
			assert.Empty(t, keys)
		})

		t.Run(tc.name+"_save_load_delete", func(t *testing.T) {
			require.NoError(t, tc.store.Clear()) // ensure storage is reset
			data := []byte{1, 2, 0, 4}

			require.NoError(t, tc.store.Save("t1", data))
			got, ok, err := tc.store.Load("t1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, data, got)

			require.NoError(t, tc.store.Delete("t1"))
			_, ok, err = tc.store.Load("t1")
			require.NoError(t, err)
			assert.False(t, ok)
		})

		t.Run(tc.name+"_load_is_copy", func(t *testing.T) {
			require.NoError(t, tc.store.Clear()) // ensure storage is reset

			require.NoError(t, tc.store.Save("k", []byte{7, 8}))
			got, _, err := tc.store.Load("k")
			require.NoError(t, err)
			got[0] = 0

			again, _, err := tc.store.Load("k")
			require.NoError(t, err)
			assert.Equal(t, []byte{7, 8}, again)
		})

		t.Run(tc.name+"_list_keys", func(t *testing.T) {
			require.NoError(t, tc.store.Clear()) // ensure storage is reset

			require.NoError(t, tc.store.Save("b1", []byte{3}))
			require.NoError(t, tc.store.Save("a2", []byte{2}))
			require.NoError(t, tc.store.Save("a1", []byte{1}))

			keys, err := tc.store.ListKeys()
			require.NoError(t, err)
			assert.Equal(t, []string{"a1", "a2", "b1"}, keys)

			keys, err = tc.store.ListKeysPrefix("a")
			require.NoError(t, err)
			assert.Equal(t, []string{"a1", "a2"}, keys)
		})
	}
}

func TestKeyPrefixStorage(t *testing.T) {
	t.Parallel()

	t.Run("empty_prefix", func(t *testing.T) {
		base := NewMemStorage()
		assert.Same(t, base, KeyPrefixStorage(base, ""))
	})

	t.Run("isolated", func(t *testing.T) {
		base := NewMemStorage()
		a := KeyPrefixStorage(base, "a")
		b := KeyPrefixStorage(base, "b")

		require.NoError(t, a.Save("k", []byte{1}))
		require.NoError(t, b.Save("k", []byte{2}))

		keys, err := base.ListKeys()
		require.NoError(t, err)
		assert.Equal(t, []string{"a;k", "b;k"}, keys)

		require.NoError(t, a.Clear())
		_, ok, err := a.Load("k")
		require.NoError(t, err)
		assert.False(t, ok)

		got, ok, err := b.Load("k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte{2}, got)
	})
}

func TestBadgerStorage(t *testing.T) {
	t.Run("persisted", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skip in short mode")
		}
		t.Parallel()

		path := filepath.Join(t.TempDir(), "db")
		store, err := NewBadgerStorage(path, 32)
		require.NoError(t, err)
		require.NoError(t, store.Save("t1", []byte{1, 2, 3}))
		store.Close()

		entries, err := os.ReadDir(path)
		require.NoError(t, err)
		assert.NotEmpty(t, entries)

		store, err = NewBadgerStorage(path, 32)
		require.NoError(t, err)
		defer store.Close()

		got, ok, err := store.Load("t1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte{1, 2, 3}, got)
	})

	t.Run("in_memory", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skip in short mode")
		}
		t.Parallel()

		store, err := NewBadgerStorage("", 16)
		require.NoError(t, err)
		defer store.Close()

		_, ok, err := store.Load("missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
