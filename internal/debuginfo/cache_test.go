package debuginfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSnapshotKey(t *testing.T) {
	path := writeTempFile(t, "a.elf", "contents")

	key1, err := snapshotKey(path)
	require.NoError(t, err)
	key2, err := snapshotKey(path)
	require.NoError(t, err)
	assert.Equal(t, key1, key2)

	// Rewriting the file changes size or mtime, so the key moves and
	// the stale snapshot can no longer be hit.
	require.NoError(t, os.WriteFile(path, []byte("different contents"), 0o644))
	require.NoError(t, os.Chtimes(path, time.Now(), time.Now().Add(time.Second)))
	key3, err := snapshotKey(path)
	require.NoError(t, err)
	assert.NotEqual(t, key1, key3)
}

func TestSnapshotKey_MissingFile(t *testing.T) {
	_, err := snapshotKey(filepath.Join(t.TempDir(), "absent.elf"))
	require.Error(t, err)
}

func TestCache_LoadErrorNotCached(t *testing.T) {
	cache := NewCache(4, zerolog.Nop())
	path := writeTempFile(t, "bogus.elf", "this is not an ELF file")

	_, err := cache.Load(path)
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestCache_Eviction(t *testing.T) {
	cache := NewCache(2, zerolog.Nop())

	insert := func(key uint64) {
		elem := cache.lruList.PushFront(&cacheEntry{key: key, data: &DebugData{}})
		cache.items[key] = elem
		if cache.lruList.Len() > cache.capacity {
			cache.evictOldest()
		}
	}

	insert(1)
	insert(2)
	insert(3)
	assert.Equal(t, 2, cache.Len())

	_, oldest := cache.items[1]
	assert.False(t, oldest, "least recently used entry must be evicted")
	_, second := cache.items[2]
	assert.True(t, second)
	_, third := cache.items[3]
	assert.True(t, third)
}

func TestCache_CapacityFloor(t *testing.T) {
	cache := NewCache(0, zerolog.Nop())
	assert.Equal(t, 1, cache.capacity)
}

func TestCache_EvictOldestEmpty(t *testing.T) {
	cache := NewCache(1, zerolog.Nop())
	cache.evictOldest()
	assert.Equal(t, 0, cache.Len())
}
