package bitcask

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"BitcaskDB/internal/domain"

	"github.com/google/uuid"
)

// compactionThreshold is the number of stale bytes that triggers a
// compaction of the log.
const compactionThreshold = 1 << 20

const lockFileName = "LOCK"

// Bitcask is a log-structured key-value engine: an append-only sequence of
// segment files on disk plus a complete in-memory index from key to log
// position. A single mutex serializes writers and compaction; any number of
// goroutines may read in parallel through per-goroutine reader caches.
type Bitcask struct {
	dir string

	// mu guards the active writer, curFid and compaction.
	mu     sync.Mutex
	writer *appendWriter
	curFid uint64

	index *keyIndex

	// safePoint is the lowest fid still referenced by the index. Compaction
	// bumps it; reader caches drop handles below it before every read.
	safePoint atomic.Uint64

	readers sync.Pool
}

// Open builds a Bitcask over the segment files found in dir, creating the
// directory if needed. It replays every segment in ascending fid order to
// rebuild the index, truncates a torn record at the tail of the newest
// segment, and fails with domain.ErrCorrupt on undecodable bytes anywhere
// else. The directory is locked against concurrent engine instances.
func Open(dir string) (*Bitcask, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	if err := acquireLock(dir); err != nil {
		return nil, err
	}

	fids, err := sortedFids(dir)
	if err != nil {
		releaseLock(dir)
		return nil, err
	}

	index := newKeyIndex()
	for i, fid := range fids {
		if err := replaySegment(dir, fid, index, i == len(fids)-1); err != nil {
			releaseLock(dir)
			return nil, err
		}
	}

	var curFid uint64
	if len(fids) > 0 {
		curFid = fids[len(fids)-1] + 1
	}
	writer, err := newAppendWriter(dir, curFid)
	if err != nil {
		releaseLock(dir)
		return nil, err
	}

	b := &Bitcask{
		dir:    dir,
		writer: writer,
		curFid: curFid,
		index:  index,
	}
	b.readers.New = func() any {
		return &readerCache{dir: dir, readers: make(map[uint64]*segmentReader)}
	}
	return b, nil
}

// replaySegment rebuilds index state from one segment. On the active (last)
// segment a torn trailing record is cut off at the last good boundary; in a
// sealed segment the same condition is fatal.
func replaySegment(dir string, fid uint64, index *keyIndex, last bool) error {
	end, err := scanSegment(dir, fid, func(pos uint64, entry domain.DbEntry, length uint64) bool {
		if entry.Tombstone() {
			index.addStale(index.remove(entry.Key()) + length)
		} else {
			index.addStale(index.insert(entry.Key(), recordPos{fid: fid, pos: pos, len: length}))
		}
		return true
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrCorrupt) || !last {
		return fmt.Errorf("replaying segment %d: %w", fid, err)
	}
	log.Printf("Truncating torn record in segment %d at offset %d", fid, end)
	return os.Truncate(segmentPath(dir, fid), int64(end))
}

// Set stores value under key, overwriting any previous value.
func (b *Bitcask) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry := domain.NewDbEntry(key, value, false)
	pos, err := b.append(entry)
	if err != nil {
		return err
	}
	b.index.addStale(b.index.insert(key, pos))

	return b.maybeCompact()
}

// Get returns the value stored under key, or found=false if absent.
func (b *Bitcask) Get(key string) (string, bool, error) {
	pos, ok := b.index.get(key)
	if !ok {
		return "", false, nil
	}
	entry, err := b.readEntry(key, pos)
	if err != nil {
		// A compaction may have replaced the segment between the index
		// lookup and the read; the index holds the new position by now.
		pos, ok = b.index.get(key)
		if !ok {
			return "", false, nil
		}
		if entry, err = b.readEntry(key, pos); err != nil {
			return "", false, err
		}
	}
	return entry.Value(), true, nil
}

// Remove deletes key, appending a tombstone record. Returns
// domain.ErrKeyNotFound when the key is absent; nothing is appended then.
func (b *Bitcask) Remove(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.index.get(key); !ok {
		return domain.ErrKeyNotFound
	}

	tombstone := domain.NewTombstone(key)
	pos, err := b.append(tombstone)
	if err != nil {
		return err
	}
	// The superseded Set and the tombstone itself are both reclaimable.
	b.index.addStale(b.index.remove(key) + pos.len)

	return b.maybeCompact()
}

// StaleBytes reports the bytes currently reclaimable by a compaction.
func (b *Bitcask) StaleBytes() uint64 {
	return b.index.staleBytes()
}

// Close flushes the active segment and releases the directory lock.
func (b *Bitcask) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.writer.close()
	releaseLock(b.dir)
	return err
}

// append encodes entry and appends it to the active segment. Caller holds mu.
func (b *Bitcask) append(entry domain.DbEntry) (recordPos, error) {
	data := Encode(entry)
	pos, err := b.writer.append(data)
	if err != nil {
		return recordPos{}, err
	}
	return recordPos{fid: b.curFid, pos: pos, len: uint64(len(data))}, nil
}

func (b *Bitcask) maybeCompact() error {
	if b.index.staleBytes() < compactionThreshold {
		return nil
	}
	start := time.Now()
	if err := b.compact(); err != nil {
		return err
	}
	log.Printf("Compaction finished in %v, %d live keys", time.Since(start), b.index.count())
	return nil
}

// compact rewrites every live record into a fresh sealed segment, rotates
// the active segment and deletes everything older. Caller holds mu. On any
// failure before the final swap the index is left untouched and the old
// segments stay intact.
func (b *Bitcask) compact() error {
	compactionFid := b.curFid + 1
	newActiveFid := b.curFid + 2

	cw, err := newAppendWriter(b.dir, compactionFid)
	if err != nil {
		return err
	}

	// Copy the raw bytes of every live record into the compaction segment
	// and remember where each one landed.
	newPositions := make(map[string]recordPos, b.index.count())
	for key, pos := range b.index.snapshot() {
		data, err := b.readRaw(pos)
		if err != nil {
			cw.close()
			os.Remove(segmentPath(b.dir, compactionFid))
			return fmt.Errorf("compacting key %q: %w", key, err)
		}
		newPos, err := cw.append(data)
		if err != nil {
			cw.close()
			os.Remove(segmentPath(b.dir, compactionFid))
			return err
		}
		newPositions[key] = recordPos{fid: compactionFid, pos: newPos, len: pos.len}
	}

	// The compaction segment must be durable before any old segment goes
	// away; a crash in between leaves at most a garbage segment that the
	// next Open replays harmlessly.
	if err := cw.sync(); err != nil {
		cw.close()
		os.Remove(segmentPath(b.dir, compactionFid))
		return err
	}
	if err := cw.close(); err != nil {
		return err
	}

	newWriter, err := newAppendWriter(b.dir, newActiveFid)
	if err != nil {
		return err
	}

	oldWriter := b.writer
	b.writer = newWriter
	b.curFid = newActiveFid
	for key, pos := range newPositions {
		b.index.entries.Set(key, pos)
	}
	b.safePoint.Store(compactionFid)
	oldWriter.close()

	staleFids, err := sortedFids(b.dir)
	if err != nil {
		return err
	}
	for _, fid := range staleFids {
		if fid >= compactionFid {
			continue
		}
		name := segmentPath(b.dir, fid)
		if err := os.Remove(name); err != nil {
			log.Printf("Stale segment %s cannot be deleted: %v", name, err)
		}
	}
	b.index.resetStale()
	return nil
}

// readEntry reads and decodes the record at pos and checks it against the
// index: it must be a Set for exactly this key.
func (b *Bitcask) readEntry(key string, pos recordPos) (domain.DbEntry, error) {
	data, err := b.readRaw(pos)
	if err != nil {
		return domain.DbEntry{}, err
	}
	entry, n, err := DecodeOne(bytes.NewReader(data))
	if err != nil {
		return domain.DbEntry{}, err
	}
	if n != pos.len || entry.Tombstone() || entry.Key() != key {
		return domain.DbEntry{}, fmt.Errorf("%w: index entry for %q does not match record", domain.ErrCorrupt, key)
	}
	return entry, nil
}

// readRaw fetches the byte range of pos through this goroutine's reader
// cache. Caches are pooled so file positions are never shared between
// concurrent readers.
func (b *Bitcask) readRaw(pos recordPos) ([]byte, error) {
	cache := b.readers.Get().(*readerCache)
	defer b.readers.Put(cache)

	cache.dropStale(b.safePoint.Load())
	r, err := cache.reader(pos.fid)
	if err != nil {
		return nil, err
	}
	data, err := r.readAt(pos.pos, pos.len)
	if err != nil {
		cache.drop(pos.fid)
		return nil, err
	}
	return data, nil
}

// readerCache holds lazily opened positioned readers for one goroutine at a
// time. safePoint remembers the generation it was last reconciled against.
type readerCache struct {
	dir       string
	safePoint uint64
	readers   map[uint64]*segmentReader
}

func (c *readerCache) dropStale(safePoint uint64) {
	if safePoint == c.safePoint {
		return
	}
	for fid, r := range c.readers {
		if fid < safePoint {
			r.close()
			delete(c.readers, fid)
		}
	}
	c.safePoint = safePoint
}

func (c *readerCache) reader(fid uint64) (*segmentReader, error) {
	if r, ok := c.readers[fid]; ok {
		return r, nil
	}
	r, err := newSegmentReader(c.dir, fid)
	if err != nil {
		return nil, err
	}
	c.readers[fid] = r
	return r, nil
}

func (c *readerCache) drop(fid uint64) {
	if r, ok := c.readers[fid]; ok {
		r.close()
		delete(c.readers, fid)
	}
}

// acquireLock creates dir/LOCK exclusively so two engine instances cannot
// share one directory. The file records who holds the lock.
func acquireLock(dir string) error {
	name := path.Join(dir, lockFileName)
	fd, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyOpen, name)
		}
		return fmt.Errorf("locking %s: %w", dir, err)
	}
	fmt.Fprintf(fd, "%s %d\n", uuid.NewString(), os.Getpid())
	return fd.Close()
}

func releaseLock(dir string) {
	os.Remove(path.Join(dir, lockFileName))
}
