package bitcask

import (
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// keyIndex maps every live key to the position of its latest Set record.
// Lookups take only a per-shard read lock of the concurrent map, never the
// writer mutex, and may run concurrently with the single writer.
// The stale counter tallies bytes on disk whose record is no longer the
// latest for its key; only the writer path touches it.
type keyIndex struct {
	entries cmap.ConcurrentMap[string, recordPos]
	stale   atomic.Uint64
}

func newKeyIndex() *keyIndex {
	return &keyIndex{
		entries: cmap.New[recordPos](),
	}
}

// insert stores pos as the latest record for key and returns the encoded
// length of the Set it superseded (0 if the key was absent). The caller
// accounts the returned delta as stale bytes.
func (i *keyIndex) insert(key string, pos recordPos) uint64 {
	old, existed := i.entries.Get(key)
	i.entries.Set(key, pos)
	if existed {
		return old.len
	}
	return 0
}

// remove drops key from the index and returns the length of the removed
// Set (0 if the key was absent).
func (i *keyIndex) remove(key string) uint64 {
	old, existed := i.entries.Pop(key)
	if existed {
		return old.len
	}
	return 0
}

func (i *keyIndex) get(key string) (recordPos, bool) {
	return i.entries.Get(key)
}

// snapshot returns a point-in-time copy of the index. Callers that need a
// consistent view (compaction) hold the writer lock while using it.
func (i *keyIndex) snapshot() map[string]recordPos {
	return i.entries.Items()
}

func (i *keyIndex) count() int {
	return i.entries.Count()
}

func (i *keyIndex) addStale(n uint64) {
	i.stale.Add(n)
}

func (i *keyIndex) staleBytes() uint64 {
	return i.stale.Load()
}

func (i *keyIndex) resetStale() {
	i.stale.Store(0)
}
