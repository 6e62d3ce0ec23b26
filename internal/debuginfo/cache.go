package debuginfo

import (
	"container/list"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"
)

// Cache keeps recently loaded snapshots so that a front-end resolving
// expressions against the same binary does not reload it on every
// query. Entries are keyed by a hash of the file identity (absolute
// path, size, modification time), so a relinked binary misses the
// cache and is loaded fresh.
type Cache struct {
	capacity int
	logger   zerolog.Logger

	mu      sync.Mutex
	items   map[uint64]*list.Element
	lruList *list.List
}

type cacheEntry struct {
	key  uint64
	data *DebugData
}

// NewCache creates a snapshot cache holding at most capacity binaries.
func NewCache(capacity int, logger zerolog.Logger) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		logger:   logger.With().Str("component", "snapshot-cache").Logger(),
		items:    make(map[uint64]*list.Element),
		lruList:  list.New(),
	}
}

// Load returns the snapshot for the binary at path, loading it on a
// cache miss and marking it as recently used on a hit.
func (c *Cache) Load(path string) (*DebugData, error) {
	key, err := snapshotKey(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		c.lruList.MoveToFront(elem)
		data := elem.Value.(*cacheEntry).data
		c.mu.Unlock()
		c.logger.Debug().Str("binary", path).Msg("snapshot cache hit")
		return data, nil
	}
	c.mu.Unlock()

	data, err := Load(path, c.logger)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		// Lost a race with a concurrent load of the same binary.
		c.lruList.MoveToFront(elem)
		return elem.Value.(*cacheEntry).data, nil
	}
	elem := c.lruList.PushFront(&cacheEntry{key: key, data: data})
	c.items[key] = elem
	if c.lruList.Len() > c.capacity {
		c.evictOldest()
	}
	return data, nil
}

// Len returns the number of cached snapshots.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lruList.Len()
}

func (c *Cache) evictOldest() {
	elem := c.lruList.Back()
	if elem == nil {
		return
	}
	c.lruList.Remove(elem)
	delete(c.items, elem.Value.(*cacheEntry).key)
}

// snapshotKey derives the cache key for a binary from its absolute
// path, size and modification time.
func snapshotKey(path string) (uint64, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolving %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	id := fmt.Sprintf("%s|%d|%d", abs, info.Size(), info.ModTime().UnixNano())
	return xxh3.HashString(id), nil
}
