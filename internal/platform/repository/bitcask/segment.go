package bitcask

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"BitcaskDB/internal/domain"
)

const segmentExt = ".log"

// recordPos identifies the byte range of one record inside a segment.
type recordPos struct {
	fid uint64
	pos uint64
	len uint64
}

func segmentPath(dir string, fid uint64) string {
	return path.Join(dir, fmt.Sprintf("%d%s", fid, segmentExt))
}

// sortedFids lists the segment ids present in dir, ascending. Files that do
// not look like <fid>.log are ignored.
func sortedFids(dir string) ([]uint64, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning segment directory %s: %w", dir, err)
	}

	var fids []uint64
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), segmentExt) {
			continue
		}
		fid, err := strconv.ParseUint(strings.TrimSuffix(file.Name(), segmentExt), 10, 64)
		if err != nil {
			continue
		}
		fids = append(fids, fid)
	}
	sort.Slice(fids, func(i, j int) bool { return fids[i] < fids[j] })
	return fids, nil
}

// appendWriter is a buffered appender that tracks its write position.
// It is owned exclusively by the single writer.
type appendWriter struct {
	fd  *os.File
	buf *bufio.Writer
	pos uint64
}

func newAppendWriter(dir string, fid uint64) (*appendWriter, error) {
	name := segmentPath(dir, fid)
	fd, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening segment %s: %w", name, err)
	}
	info, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, fmt.Errorf("stat segment %s: %w", name, err)
	}
	return &appendWriter{
		fd:  fd,
		buf: bufio.NewWriter(fd),
		pos: uint64(info.Size()),
	}, nil
}

// append writes data at the current end of the segment and drains the
// buffer so a reader opened on the same file sees the bytes. Returns the
// starting offset of the record.
func (w *appendWriter) append(data []byte) (uint64, error) {
	pos := w.pos
	n, err := w.buf.Write(data)
	w.pos += uint64(n)
	if err != nil {
		return pos, fmt.Errorf("appending to %s: %w", w.fd.Name(), err)
	}
	if err := w.buf.Flush(); err != nil {
		return pos, fmt.Errorf("flushing %s: %w", w.fd.Name(), err)
	}
	return pos, nil
}

func (w *appendWriter) sync() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.fd.Sync()
}

func (w *appendWriter) close() error {
	if w.fd == nil {
		return nil
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}
	err := w.fd.Close()
	w.fd = nil
	return err
}

// segmentReader is a positioned buffered reader over one segment file.
// It is not safe for concurrent use; every reader goroutine works with its
// own set of segmentReaders (see readerCache).
type segmentReader struct {
	fd  *os.File
	buf *bufio.Reader
	pos uint64
}

func newSegmentReader(dir string, fid uint64) (*segmentReader, error) {
	name := segmentPath(dir, fid)
	fd, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening segment %s: %w", name, err)
	}
	return &segmentReader{
		fd:  fd,
		buf: bufio.NewReader(fd),
	}, nil
}

func (r *segmentReader) seek(pos uint64) error {
	if pos == r.pos {
		return nil
	}
	if _, err := r.fd.Seek(int64(pos), io.SeekStart); err != nil {
		return fmt.Errorf("seeking %s: %w", r.fd.Name(), err)
	}
	r.buf.Reset(r.fd)
	r.pos = pos
	return nil
}

// readAt returns exactly length bytes starting at pos. A range past
// end-of-file is reported as corrupt, not as a plain I/O error.
func (r *segmentReader) readAt(pos, length uint64) ([]byte, error) {
	if err := r.seek(pos); err != nil {
		return nil, err
	}
	data := make([]byte, length)
	n, err := io.ReadFull(r.buf, data)
	r.pos += uint64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: offset %d past end of %s", domain.ErrCorrupt, pos, r.fd.Name())
		}
		return nil, fmt.Errorf("reading %s: %w", r.fd.Name(), err)
	}
	return data, nil
}

func (r *segmentReader) close() error {
	return r.fd.Close()
}

// scanFunc receives each record of a segment together with its starting
// offset and its encoded length. Returning false stops the scan.
type scanFunc func(pos uint64, entry domain.DbEntry, length uint64) bool

// scanSegment walks every record of segment fid in file order. It returns
// the offset of the first byte it could not decode (the end of the file on
// a fully clean segment) and whether the scan stopped on corruption.
func scanSegment(dir string, fid uint64, fn scanFunc) (uint64, error) {
	fd, err := os.Open(segmentPath(dir, fid))
	if err != nil {
		return 0, fmt.Errorf("opening segment %d: %w", fid, err)
	}
	defer fd.Close()

	reader := bufio.NewReader(fd)
	var pos uint64
	for {
		entry, n, err := DecodeOne(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return pos, nil
			}
			return pos, err
		}
		if !fn(pos, entry, n) {
			return pos + n, nil
		}
		pos += n
	}
}
