// Package diskshard implements the per-core append-only log shard:
// every write is appended to a single on-disk file opened with
// O_DIRECT, and an in-memory index maps each live key to its offset so
// reads never need to scan the log. New records are only ever appended;
// a delete flips the status byte of the existing record to DELETED in
// place rather than removing its bytes.
package diskshard

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/corekv/corekv/internal/kverrors"
	"github.com/corekv/corekv/internal/kvlog"
	"github.com/corekv/corekv/internal/metrics"
)

var log = kvlog.Get("diskshard")

// defaultBlockSize is used when the filesystem block size can't be
// probed (blockSizeOf failure, or a non-Linux build).
const defaultBlockSize = 4096

// indexEntry locates one live record in the log file.
type indexEntry struct {
	recordOffset int64
	recordSize   int64
	valueOffset  int64
	valueLen     int64
}

// Shard is a single disk partition: one log file plus its in-memory
// offset index. Like cacheshard.Shard, it is owned exclusively by the
// worker goroutine the router pins it to, so it carries no locks.
type Shard struct {
	path      string
	file      *os.File
	blockSize int
	tail      int64 // append position of the next record

	index map[string]indexEntry
}

// New creates a disk shard backed by the log file at path. The file is
// not opened until Start is called.
func New(path string) *Shard {
	return &Shard{
		path:  path,
		index: make(map[string]indexEntry),
	}
}

// Start opens (creating if needed) the log file and rebuilds the offset
// index by replaying it from offset 0.
func (s *Shard) Start() error {
	f, err := openDirect(s.path)
	if err != nil {
		return kverrors.WrapIO("open", err)
	}
	s.file = f
	s.blockSize = blockSizeOf(s.path)

	if err := s.buildIndex(); err != nil {
		_ = f.Close()
		return err
	}
	log.Infof("opened %s: %d live keys, tail at %d", s.path, len(s.index), s.tail)
	return nil
}

// buildIndex replays the log from offset 0, populating s.index and
// setting s.tail to the offset of the first byte that isn't a complete,
// well-formed record. That stopping point is what makes recovery
// crash-safe: a process killed mid-append leaves a partial record whose
// status byte (or trailing bytes) won't decode as valid, so the replay
// simply treats everything from there on as never having happened.
func (s *Shard) buildIndex() error {
	info, err := s.file.Stat()
	if err != nil {
		return kverrors.WrapIO("stat", err)
	}
	total := info.Size()
	if total == 0 {
		s.tail = 0
		return nil
	}

	aligned := alignUp(total, s.blockSize)
	buf := alignedBuffer(int(aligned), s.blockSize)
	if _, err := s.file.ReadAt(buf, 0); err != nil && err != io.EOF {
		return kverrors.WrapIO("read", err)
	}

	var offset int64
	for offset+headerSize <= total {
		status, keyLen, valueLen := decodeHeader(buf[offset : offset+headerSize])
		if status != statusValid && status != statusDelete {
			break
		}
		recSize := recordSize(int(keyLen), int(valueLen))
		if offset+recSize > total {
			break
		}

		keyStart := offset + headerSize
		key := string(buf[keyStart : keyStart+int64(keyLen)])
		valueStart := keyStart + int64(keyLen)

		switch status {
		case statusValid:
			s.index[key] = indexEntry{
				recordOffset: offset,
				recordSize:   recSize,
				valueOffset:  valueStart,
				valueLen:     int64(valueLen),
			}
		case statusDelete:
			delete(s.index, key)
		}
		offset += recSize
	}
	s.tail = offset
	return nil
}

// Stop truncates away any block-alignment padding written past the
// logical tail, syncs and closes the log file.
func (s *Shard) Stop() error {
	if s.file == nil {
		return nil
	}
	if err := s.file.Truncate(s.tail); err != nil {
		return kverrors.WrapIO("truncate", err)
	}
	if err := s.file.Sync(); err != nil {
		return kverrors.WrapIO("sync", err)
	}
	return kverrors.WrapIO("close", s.file.Close())
}

func (s *Shard) Get(key string) ([]byte, bool, error) {
	start := time.Now()
	defer func() { metrics.ObserveDiskLatency("get", time.Since(start)) }()

	entry, ok := s.index[key]
	if !ok {
		return nil, false, nil
	}

	alignedStart := alignDown(entry.recordOffset, s.blockSize)
	spanLen := alignUp(entry.recordOffset-alignedStart+entry.recordSize, s.blockSize)
	buf := alignedBuffer(int(spanLen), s.blockSize)
	if _, err := s.file.ReadAt(buf, alignedStart); err != nil && err != io.EOF {
		return nil, false, kverrors.WrapIO("read", err)
	}

	valueRel := entry.valueOffset - alignedStart
	out := make([]byte, entry.valueLen)
	copy(out, buf[valueRel:valueRel+entry.valueLen])
	return out, true, nil
}

// Set appends a new record for key at the current tail. If key already
// has a live record, that record is tombstoned first so that at most
// one VALID record for a key ever exists in a fully-replayed log; the
// old record's bytes are left on disk, which is why the log only grows
// and needs a compaction pass to reclaim overwritten space.
//
// Because O_DIRECT requires block-aligned offsets, lengths and buffers,
// the append itself is a read-modify-write cycle over the block(s) that
// overlap the new record: the first block may already hold the tail
// end of a previous record, so its pre-existing bytes must be preserved
// rather than overwritten with zeros.
func (s *Shard) Set(key string, value []byte) error {
	start := time.Now()
	defer func() { metrics.ObserveDiskLatency("set", time.Since(start)) }()

	if _, ok := s.index[key]; ok {
		if err := s.tombstone(key); err != nil {
			return err
		}
	}

	rec := encodeRecord(statusValid, key, value)
	pos := s.tail
	alignedPos := alignDown(pos, s.blockSize)
	span := alignUp(pos-alignedPos+int64(len(rec)), s.blockSize)

	buf := alignedBuffer(int(span), s.blockSize)
	if _, err := s.file.ReadAt(buf, alignedPos); err != nil && err != io.EOF {
		return kverrors.WrapIO("read", err)
	}
	copy(buf[pos-alignedPos:], rec)

	if _, err := s.file.WriteAt(buf, alignedPos); err != nil {
		return kverrors.WrapIO("write", err)
	}
	if err := s.file.Sync(); err != nil {
		return kverrors.WrapIO("sync", err)
	}

	s.index[key] = indexEntry{
		recordOffset: pos,
		recordSize:   int64(len(rec)),
		valueOffset:  pos + headerSize + int64(len(key)),
		valueLen:     int64(len(value)),
	}
	s.tail = pos + int64(len(rec))
	return nil
}

// Del tombstones key's record in place and drops it from the index.
// Deleting a key that isn't present is a no-op that still reports
// success, matching the storage contract's idempotent-delete rule. The
// tail is unchanged: unlike Set, a delete never grows the log.
func (s *Shard) Del(key string) error {
	if _, ok := s.index[key]; !ok {
		return nil
	}
	if err := s.tombstone(key); err != nil {
		return err
	}
	delete(s.index, key)
	return nil
}

// tombstone flips the status byte of key's existing record from VALID
// to DELETED in place. Only the single block containing the status
// byte is read, modified and written back.
func (s *Shard) tombstone(key string) error {
	start := time.Now()
	defer func() { metrics.ObserveDiskLatency("del", time.Since(start)) }()

	entry, ok := s.index[key]
	if !ok {
		return nil
	}

	alignedPos := alignDown(entry.recordOffset, s.blockSize)
	buf := alignedBuffer(s.blockSize, s.blockSize)
	if _, err := s.file.ReadAt(buf, alignedPos); err != nil && err != io.EOF {
		return kverrors.WrapIO("read", err)
	}

	buf[entry.recordOffset-alignedPos] = statusDelete

	if _, err := s.file.WriteAt(buf, alignedPos); err != nil {
		return kverrors.WrapIO("write", err)
	}
	return kverrors.WrapIO("sync", s.file.Sync())
}

func (s *Shard) Query(prefix string) ([]string, error) {
	out := make([]string, 0)
	for k := range s.index {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}
