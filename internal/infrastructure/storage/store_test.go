package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()

	file, err := OpenSQLite(filepath.Join(t.TempDir(), "state", "nebula.db"), DefaultOptions())
	require.NoError(t, err)
	mem, err := OpenSQLite(":memory:", DefaultOptions())
	require.NoError(t, err)

	all := map[string]Store{
		"memory":        NewMemory(),
		"sqlite-file":   file,
		"sqlite-memory": mem,
	}
	t.Cleanup(func() {
		for _, s := range all {
			_ = s.Close()
		}
	})
	return all
}

func TestStoreContract(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "nebula_history")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Set(ctx, "nebula_history", []byte(`[]`)))
			require.NoError(t, store.Set(ctx, "nebula_notes", []byte("hello")))

			v, err := store.Get(ctx, "nebula_notes")
			require.NoError(t, err)
			assert.Equal(t, "hello", string(v))

			require.NoError(t, store.Set(ctx, "nebula_notes", []byte("updated")))
			v, err = store.Get(ctx, "nebula_notes")
			require.NoError(t, err)
			assert.Equal(t, "updated", string(v))

			keys, err := store.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"nebula_history", "nebula_notes"}, keys)

			require.NoError(t, store.Delete(ctx, "nebula_notes"))
			_, err = store.Get(ctx, "nebula_notes")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Delete(ctx, "never-set"))
		})
	}
}

func TestStoreEmptyValue(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Set(ctx, "nebula_scratchpad", nil))

			v, err := store.Get(ctx, "nebula_scratchpad")
			require.NoError(t, err)
			assert.Empty(t, v)
		})
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", buf))
	buf[0] = 'z'

	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v))

	v[1] = 'z'
	again, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemory()
	assert.ErrorIs(t, m.Set(ctx, "k", []byte("v")), context.Canceled)
	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nebula.db")
	ctx := context.Background()

	first, err := OpenSQLite(path, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "nebula_active_tab", []byte(`"tab_1"`)))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(path, DefaultOptions())
	require.NoError(t, err)
	defer second.Close()

	v, err := second.Get(ctx, "nebula_active_tab")
	require.NoError(t, err)
	assert.Equal(t, `"tab_1"`, string(v))
	assert.Equal(t, path, second.Path())
}

func TestOpen(t *testing.T) {
	s, err := Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	_, err = Open("etcd", "")
	assert.Error(t, err)
}
