package snapshot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGetRemove(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.Set("k", "v1", 0))
	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v1", v)

	require.NoError(t, s.Set("k", "v2", 0))
	v, _ = s.Get("k")
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Remove("k"))
	_, ok = s.Get("k")
	assert.False(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	current := time.Now()
	s.now = func() time.Time { return current }

	require.NoError(t, s.Set("k", "v", time.Hour))
	_, ok := s.Get("k")
	require.True(t, ok)

	current = current.Add(2 * time.Hour)
	_, ok = s.Get("k")
	assert.False(t, ok)
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	s := NewMemoryStore()
	current := time.Now()
	s.now = func() time.Time { return current }

	require.NoError(t, s.Set("k", "v", 0))
	current = current.Add(1000 * time.Hour)
	_, ok := s.Get("k")
	assert.True(t, ok)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.db")

	s, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", "v", 0))
	require.NoError(t, s.Close())

	s, err = OpenSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
	assert.NoError(t, s.Ping())
}

func TestSQLiteStore_ExpiredRowDeleted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.db")
	s, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	current := time.Now()
	s.now = func() time.Time { return current }

	require.NoError(t, s.Set("k", "v", time.Minute))
	_, ok := s.Get("k")
	require.True(t, ok)

	current = current.Add(2 * time.Minute)
	_, ok = s.Get("k")
	assert.False(t, ok)

	// The lazy delete removed the row; a later read misses too.
	_, ok = s.Get("k")
	assert.False(t, ok)
}

func TestSQLiteStore_RemoveMissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.db")
	s, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.Remove("absent"))
}
