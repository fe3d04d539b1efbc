package bitcask

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"testing"

	"BitcaskDB/internal/domain"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
)

func openTestEngine(t *testing.T) (*Bitcask, string) {
	t.Helper()
	dir := t.TempDir()
	b, err := Open(dir)
	if err != nil {
		t.Fatalf("error opening engine: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b, dir
}

func dirSize(t *testing.T, dir string) uint64 {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var total uint64
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			t.Fatal(err)
		}
		total += uint64(info.Size())
	}
	return total
}

func TestSetAndGet(t *testing.T) {
	b, _ := openTestEngine(t)

	assert.NoError(t, b.Set("k", "v"))

	value, found, err := b.Get("k")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", value)

	_, found, err = b.Get("missing")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestOverwrite(t *testing.T) {
	b, _ := openTestEngine(t)

	assert.NoError(t, b.Set("k", "v1"))
	assert.NoError(t, b.Set("k", "v2"))

	value, found, _ := b.Get("k")
	assert.True(t, found)
	assert.Equal(t, "v2", value)
}

func TestRemove(t *testing.T) {
	b, _ := openTestEngine(t)

	assert.NoError(t, b.Set("k", "v"))
	assert.NoError(t, b.Remove("k"))

	_, found, err := b.Get("k")
	assert.NoError(t, err)
	assert.False(t, found)

	assert.ErrorIs(t, b.Remove("k"), domain.ErrKeyNotFound)
}

func TestRemoveMissingKeyAppendsNothing(t *testing.T) {
	b, dir := openTestEngine(t)

	before := dirSize(t, dir)
	assert.ErrorIs(t, b.Remove("ghost"), domain.ErrKeyNotFound)
	assert.Equal(t, before, dirSize(t, dir))
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	b, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	assert.NoError(t, b.Set("a", "1"))
	assert.NoError(t, b.Set("b", "2"))
	assert.NoError(t, b.Remove("a"))
	assert.NoError(t, b.Close())

	b, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	_, found, err := b.Get("a")
	assert.NoError(t, err)
	assert.False(t, found)

	value, found, _ := b.Get("b")
	assert.True(t, found)
	assert.Equal(t, "2", value)
}

func TestReopenReproducesReplayOrder(t *testing.T) {
	dir := t.TempDir()

	b, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	expected := map[string]string{}
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("key%d", i%50)
		value := fmt.Sprintf("value%d", i)
		assert.NoError(t, b.Set(key, value))
		expected[key] = value
	}
	for _, key := range []string{"key0", "key7", "key49"} {
		assert.NoError(t, b.Remove(key))
		delete(expected, key)
	}
	staleBefore := b.StaleBytes()
	b.Close()

	b, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	assert.Equal(t, staleBefore, b.StaleBytes(), "replay rebuilds the stale count")
	for key, want := range expected {
		got, found, err := b.Get(key)
		assert.NoError(t, err)
		if !found || got != want {
			t.Fatalf("key %s: expected %q, got %s", key, want, spew.Sdump(got, found))
		}
	}
}

func TestStaleBytesGrowAndResetOnCompaction(t *testing.T) {
	b, _ := openTestEngine(t)

	assert.NoError(t, b.Set("k", "v1"))
	assert.Zero(t, b.StaleBytes())

	assert.NoError(t, b.Set("k", "v2"))
	first := b.StaleBytes()
	assert.Positive(t, first)

	assert.NoError(t, b.Set("k", "v3"))
	assert.Greater(t, b.StaleBytes(), first, "stale bytes are non-decreasing between compactions")

	b.mu.Lock()
	err := b.compact()
	b.mu.Unlock()
	assert.NoError(t, err)
	assert.Zero(t, b.StaleBytes())
}

func TestCompactionKeepsEveryLiveKey(t *testing.T) {
	b, _ := openTestEngine(t)

	expected := map[string]string{}
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key%d", i)
		value := fmt.Sprintf("value%d", i)
		assert.NoError(t, b.Set(key, value))
		expected[key] = value
	}
	assert.NoError(t, b.Remove("key42"))
	delete(expected, "key42")

	b.mu.Lock()
	err := b.compact()
	b.mu.Unlock()
	assert.NoError(t, err)

	for key, want := range expected {
		got, found, err := b.Get(key)
		assert.NoError(t, err)
		assert.True(t, found, "key %s lost by compaction", key)
		assert.Equal(t, want, got)
	}
	_, found, _ := b.Get("key42")
	assert.False(t, found)
}

func TestCompactionReclaimsDiskSpace(t *testing.T) {
	b, dir := openTestEngine(t)

	value := strings.Repeat("x", 1024)
	for i := 0; i < 2000; i++ {
		if err := b.Set("k", value); err != nil {
			t.Fatal(err)
		}
	}

	got, found, err := b.Get("k")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, value, got)

	// ~2 MiB were appended; everything but the live record and the
	// not-yet-compacted tail must have been reclaimed.
	size := dirSize(t, dir)
	assert.Less(t, size, uint64(compactionThreshold+64*1024),
		"directory still holds %d bytes after compaction", size)
	assert.Less(t, b.StaleBytes(), uint64(compactionThreshold))
}

func TestCompactionSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	value := strings.Repeat("y", 2048)
	for i := 0; i < 1000; i++ {
		if err := b.Set(fmt.Sprintf("key%d", i%10), value); err != nil {
			t.Fatal(err)
		}
	}
	b.Close()

	b, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	for i := 0; i < 10; i++ {
		got, found, err := b.Get(fmt.Sprintf("key%d", i))
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, value, got)
	}
}

func TestTornTailIsTruncatedOnOpen(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	assert.NoError(t, b.Set("a", "1"))
	assert.NoError(t, b.Set("b", "2"))
	b.Close()

	// Simulate a crash mid-append on the newest segment.
	fd, err := os.OpenFile(path.Join(dir, "0.log"), os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatal(err)
	}
	fd.Write([]byte{0x42, 0x42, 0x42})
	fd.Close()

	b, err = Open(dir)
	assert.NoError(t, err, "a torn tail on the newest segment must not fail open")
	defer b.Close()

	value, found, _ := b.Get("a")
	assert.True(t, found)
	assert.Equal(t, "1", value)
	value, found, _ = b.Get("b")
	assert.True(t, found)
	assert.Equal(t, "2", value)
}

func TestCorruptSealedSegmentFailsOpen(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	assert.NoError(t, b.Set("a", "1"))
	b.Close()

	// Second generation so 0.log becomes a sealed, non-final segment.
	b, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	assert.NoError(t, b.Set("b", "2"))
	b.Close()

	// Flip a byte inside the sealed segment.
	data, err := os.ReadFile(path.Join(dir, "0.log"))
	if err != nil {
		t.Fatal(err)
	}
	data[6] ^= 0xFF
	if err := os.WriteFile(path.Join(dir, "0.log"), data, 0644); err != nil {
		t.Fatal(err)
	}

	_, err = Open(dir)
	assert.ErrorIs(t, err, domain.ErrCorrupt)
}

func TestDirectoryLock(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	_, err = Open(dir)
	assert.ErrorIs(t, err, domain.ErrAlreadyOpen)

	b.Close()
	b, err = Open(dir)
	assert.NoError(t, err, "closing releases the lock")
	b.Close()
}

func TestConcurrentReadersSeeWriterProgress(t *testing.T) {
	b, _ := openTestEngine(t)

	const writes = 10000
	assert.NoError(t, b.Set("k", "0"))

	done := make(chan struct{})
	var wg sync.WaitGroup
	errCh := make(chan error, 8)

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				value, found, err := b.Get("k")
				if err != nil {
					errCh <- err
					return
				}
				if !found {
					errCh <- fmt.Errorf("key vanished during concurrent reads")
					return
				}
				i, err := strconv.Atoi(value)
				if err != nil || i < 0 || i >= writes {
					errCh <- fmt.Errorf("observed value never written: %q", value)
					return
				}
			}
		}()
	}

	for i := 0; i < writes; i++ {
		if err := b.Set("k", strconv.Itoa(i)); err != nil {
			t.Fatal(err)
		}
	}
	close(done)
	wg.Wait()

	select {
	case err := <-errCh:
		t.Fatal(err)
	default:
	}

	value, found, err := b.Get("k")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, strconv.Itoa(writes-1), value)
}

func TestConcurrentReadersDuringCompaction(t *testing.T) {
	b, _ := openTestEngine(t)

	value := strings.Repeat("z", 4096)
	for i := 0; i < 20; i++ {
		assert.NoError(t, b.Set(fmt.Sprintf("key%d", i), value))
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	errCh := make(chan error, 4)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			key := fmt.Sprintf("key%d", r)
			for {
				select {
				case <-done:
					return
				default:
				}
				got, found, err := b.Get(key)
				if err != nil {
					errCh <- err
					return
				}
				if !found || got != value {
					errCh <- fmt.Errorf("reader %d: lost key during compaction", r)
					return
				}
			}
		}(r)
	}

	// Overwrite heavily so compaction runs several times under the readers.
	for i := 0; i < 600; i++ {
		if err := b.Set("hot", value); err != nil {
			t.Fatal(err)
		}
	}
	close(done)
	wg.Wait()

	select {
	case err := <-errCh:
		t.Fatal(err)
	default:
	}
}
