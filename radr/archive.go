// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package radr

import (
	"os"
	"sync"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/redxtools/radrkit/internal/oodle"
	"github.com/redxtools/radrkit/internal/rlog"
)

// Options tunes Open, mirroring pe.Options: feature flags plus
// an injectable logger.
type Options struct {
	// CheckCRC verifies the metadata tables against the header's
	// CRC-64 at open time. Defaults to true via Open's normalization.
	CheckCRC *bool

	// Oodle resolves compressed segments. If nil, ReadSegment and
	// ReadFile fail for any compressed segment (decompression
	// unavailable), matching the façade's own degraded-mode behavior.
	Oodle *oodle.Facade

	// Logger is wrapped in the Archive's log helper; Open and the read
	// paths emit no records through it.
	Logger rlog.Logger
}

func (o *Options) checkCRC() bool {
	if o == nil || o.CheckCRC == nil {
		return true
	}
	return *o.CheckCRC
}

// FileInfo is the summary Archive.GetFileInfo returns: a file's
// identity, timestamp, and the two sizes callers normally care about
// (§4.5).
type FileInfo struct {
	FileID   FileID
	Time     uint64
	DiskSize uint32 // sum of disk_size across the record's segments
	Size     uint32 // uncompressed size of the first ("main") segment
}

// Archive is one open .archive file: immutable metadata plus one
// mutex-guarded file handle for payload reads, following the same
// "memory-map once, never reopen" shape as pe.File (§4.5, §5).
type Archive struct {
	path    string
	header  Header
	records []FileRecord
	segs    []SegmentDescriptor
	deps    []Dependency

	data mmap.MMap
	f    *os.File

	readMu sync.Mutex

	oodle  *oodle.Facade
	logger *rlog.Helper
}

// Open maps path, validates its header and metadata, and returns a
// ready-to-query Archive (§4.5 step 1-5).
func Open(path string, opts *Options) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	a := &Archive{
		path:   path,
		data:   data,
		f:      f,
		logger: rlog.NewHelper(optsLogger(opts)),
	}
	if opts != nil {
		a.oodle = opts.Oodle
	}

	if err := a.parse(opts.checkCRC()); err != nil {
		data.Unmap()
		f.Close()
		return nil, err
	}
	return a, nil
}

func optsLogger(opts *Options) rlog.Logger {
	if opts == nil || opts.Logger == nil {
		return rlog.NewNopLogger()
	}
	return opts.Logger
}

func (a *Archive) parse(checkCRC bool) error {
	if len(a.data) < headerSize {
		return ErrTruncated
	}
	h, err := decodeHeader(a.data[:headerSize])
	if err != nil {
		return err
	}
	if !h.IsMagicOK() {
		return ErrBadMagic
	}
	fileSize := uint64(len(a.data))
	if h.MetadataOffset+uint64(h.MetadataSize) > fileSize {
		return ErrMetadataOOB
	}
	a.header = h

	metaBuf := a.data[h.MetadataOffset : h.MetadataOffset+uint64(h.MetadataSize)]
	md, err := decodeMetadata(metaBuf, checkCRC)
	if err != nil {
		return err
	}

	for _, seg := range md.Segments {
		if seg.EndOffsetInArchive() > fileSize {
			return ErrSegmentOOB
		}
	}

	a.records = md.Records
	a.segs = md.Segments
	a.deps = md.Dependencies
	return nil
}

// Close unmaps the archive and closes its file handle. An archive is
// not meant to be closed while shared readers are still using it; the
// spec treats archives as living until the last reference drops
// (§3 Lifecycles) — Close exists for the embedder that owns the only
// reference and is tearing the whole mount down.
func (a *Archive) Close() error {
	if a.data != nil {
		_ = a.data.Unmap()
	}
	if a.f != nil {
		return a.f.Close()
	}
	return nil
}

// Path returns the path the archive was opened from.
func (a *Archive) Path() string { return a.path }

// Version returns the header's format version.
func (a *Archive) Version() uint32 { return a.header.Version }

// Size returns the number of files (records) in the archive.
func (a *Archive) Size() int { return len(a.records) }

// Records returns the archive's file records, sorted by FileID.
func (a *Archive) Records() []FileRecord { return a.records }

// Segments returns the archive's segment descriptors.
func (a *Archive) Segments() []SegmentDescriptor { return a.segs }

// Dependencies returns the archive's dependency hashes.
func (a *Archive) Dependencies() []Dependency { return a.deps }

// FindByFileID does a binary search over the sorted record array,
// returning the record index or (0, false).
func (a *Archive) FindByFileID(id FileID) (int, bool) {
	lo, hi := 0, len(a.records)
	for lo < hi {
		mid := (lo + hi) / 2
		if a.records[mid].FileID < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(a.records) && a.records[lo].FileID == id {
		return lo, true
	}
	return 0, false
}

// GetFileInfo computes disk_size as the sum of disk_size across the
// record's segments, and size as the first segment's uncompressed
// size (§4.5).
func (a *Archive) GetFileInfo(fileIdx int) (FileInfo, error) {
	if fileIdx < 0 || fileIdx >= len(a.records) {
		return FileInfo{}, ErrRecordRangeOOB
	}
	r := a.records[fileIdx]
	info := FileInfo{FileID: r.FileID, Time: r.FileTime}
	for i := r.SegmentsRange.Begin; i < r.SegmentsRange.End; i++ {
		info.DiskSize += a.segs[i].DiskSize
	}
	if r.SegmentsRange.Len() > 0 {
		info.Size = a.segs[r.SegmentsRange.Begin].Size
	}
	return info, nil
}

// readRaw reads exactly len(dst) bytes starting at offset from the
// archive file, serializing against the single file-handle mutex
// (§4.5, §5: metadata is lock-free; only the seek+read pair is
// guarded).
func (a *Archive) readRaw(offset uint64, dst []byte) error {
	a.readMu.Lock()
	defer a.readMu.Unlock()

	n, err := a.f.ReadAt(dst, int64(offset))
	if err != nil {
		return err
	}
	if n != len(dst) {
		return ErrShortSegmentRead
	}
	return nil
}

// ReadSegment reads one segment's bytes into dst. When decompress is
// true and the segment is compressed, dst must be sized to
// desc.Size and the bytes are run through Oodle; otherwise dst must
// be sized to desc.DiskSize and bytes are copied through verbatim
// (§4.5).
func (a *Archive) ReadSegment(desc SegmentDescriptor, dst []byte, decompress bool) error {
	if decompress && desc.IsCompressed() {
		if uint32(len(dst)) != desc.Size {
			return ErrDstSizeMismatch
		}
		scratch := make([]byte, desc.DiskSize)
		if err := a.readRaw(desc.OffsetInArchive, scratch); err != nil {
			return err
		}
		if a.oodle == nil || !a.oodle.IsAvailable() {
			return oodle.ErrNotAvailable
		}
		if err := a.oodle.Decompress(scratch, dst, false); err != nil {
			return ErrDecompressFailure
		}
		return nil
	}

	if uint32(len(dst)) != desc.DiskSize {
		return ErrDstSizeMismatch
	}
	return a.readRaw(desc.OffsetInArchive, dst)
}

// ReadFile requires dst to hold at least file_info.Size (the first
// segment's uncompressed size), reads segment 0
// decompressed, and concatenates any remaining segments as opaque
// bytes (inline buffers whose purpose is unspecified, §9) if they fit
// within dst (§4.5).
func (a *Archive) ReadFile(fileIdx int, dst []byte) error {
	if fileIdx < 0 || fileIdx >= len(a.records) {
		return ErrRecordRangeOOB
	}
	r := a.records[fileIdx]
	if r.SegmentsRange.Len() == 0 {
		if len(dst) != 0 {
			return ErrDstSizeMismatch
		}
		return nil
	}

	first := a.segs[r.SegmentsRange.Begin]
	if uint32(len(dst)) < first.Size {
		return ErrDstSizeMismatch
	}
	if err := a.ReadSegment(first, dst[:first.Size], true); err != nil {
		return err
	}

	off := first.Size
	for i := r.SegmentsRange.Begin + 1; i < r.SegmentsRange.End; i++ {
		seg := a.segs[i]
		end := off + seg.DiskSize
		if end > uint32(len(dst)) {
			break
		}
		if err := a.ReadSegment(seg, dst[off:end], false); err != nil {
			return err
		}
		off = end
	}
	return nil
}
