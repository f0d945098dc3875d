// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package radr implements a read-only, thread-safe, random-access
// reader over RADR archives: segmented, Oodle-compressed payloads
// indexed by 64-bit path hashes (§4.5, §6).
package radr

import (
	"encoding/binary"
	"errors"

	"github.com/redxtools/radrkit/internal/rhash"
)

const (
	// Magic is the RADR header's 'RADR' magic, bytes R A D R
	// little-endian as a uint32.
	Magic = 0x52444152

	headerSize      = 40
	trampolineSize  = 8
	tblsHeaderSize  = 20
	fileRecordSize  = 56
	segmentDescSize = 16
	dependencySize  = 8
)

// Errors surfaced by format-level validation (§7 "Format error").
var (
	ErrBadMagic          = errors.New("radr: bad magic, not a RADR archive")
	ErrTruncated         = errors.New("radr: file too small for declared header/metadata")
	ErrMetadataOOB       = errors.New("radr: metadata_offset+metadata_size exceeds file size")
	ErrBadTrampoline     = errors.New("radr: unexpected tbls_offset in metadata trampoline")
	ErrTblsSizeMismatch  = errors.New("radr: tbls_size does not match bytes consumed by tables")
	ErrCRCMismatch       = errors.New("radr: metadata CRC64 mismatch")
	ErrRecordRangeOOB    = errors.New("radr: file_record segment or dependency range out of bounds")
	ErrSegmentOOB        = errors.New("radr: segment offset/size exceeds archive bounds")
	ErrDstSizeMismatch   = errors.New("radr: destination buffer size does not match expected size")
	ErrShortSegmentRead  = errors.New("radr: short read of segment bytes from archive")
	ErrDecompressFailure = errors.New("radr: segment decompression failed")
)

// FileID is the 64-bit FNV1a hash of a lowercased, forward-slash
// normalized archive-relative path (§3).
type FileID uint64

// HashPath computes the FileID for an archive-relative path,
// normalizing to lowercase and forward slashes first.
func HashPath(path string) FileID {
	norm := make([]byte, len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c == '\\':
			c = '/'
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
		}
		norm[i] = c
	}
	return FileID(rhash.FNV1a64(norm))
}

// Header is the 40-byte RADR archive header (§6).
type Header struct {
	Magic          uint32
	Version        uint32
	MetadataOffset uint64
	MetadataSize   uint32
	ExtraOffset    uint64
	ExtraSize      uint32
	TotalSize      uint64
}

func decodeHeader(b []byte) (Header, error) {
	if len(b) < headerSize {
		return Header{}, ErrTruncated
	}
	var h Header
	h.Magic = binary.LittleEndian.Uint32(b[0:4])
	h.Version = binary.LittleEndian.Uint32(b[4:8])
	h.MetadataOffset = binary.LittleEndian.Uint64(b[8:16])
	h.MetadataSize = binary.LittleEndian.Uint32(b[16:20])
	h.ExtraOffset = binary.LittleEndian.Uint64(b[20:28])
	h.ExtraSize = binary.LittleEndian.Uint32(b[28:32])
	h.TotalSize = binary.LittleEndian.Uint64(b[32:40])
	return h, nil
}

func (h Header) encode() []byte {
	b := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint64(b[8:16], h.MetadataOffset)
	binary.LittleEndian.PutUint32(b[16:20], h.MetadataSize)
	binary.LittleEndian.PutUint64(b[20:28], h.ExtraOffset)
	binary.LittleEndian.PutUint32(b[28:32], h.ExtraSize)
	binary.LittleEndian.PutUint64(b[32:40], h.TotalSize)
	return b
}

// IsMagicOK reports whether h.Magic matches the 'RADR' signature.
func (h Header) IsMagicOK() bool { return h.Magic == Magic }

// U32Range is a half-open [Begin, End) index range into one of the
// metadata arrays.
type U32Range struct {
	Begin uint32
	End   uint32
}

// Len returns End-Begin, or 0 if the range is inverted.
func (r U32Range) Len() uint32 {
	if r.End < r.Begin {
		return 0
	}
	return r.End - r.Begin
}

// FileRecord is one 56-byte entry of the file_record array (§3).
// Records are sorted by FileID.
type FileRecord struct {
	FileID                  FileID
	FileTime                uint64 // 100-ns Windows epoch
	InlineBufferSegmentsCnt uint32
	SegmentsRange           U32Range
	DependenciesRange       U32Range
	SHA1                    rhash.SHA1Digest
}

func decodeFileRecord(b []byte) FileRecord {
	var r FileRecord
	r.FileID = FileID(binary.LittleEndian.Uint64(b[0:8]))
	r.FileTime = binary.LittleEndian.Uint64(b[8:16])
	r.InlineBufferSegmentsCnt = binary.LittleEndian.Uint32(b[16:20])
	r.SegmentsRange = U32Range{
		Begin: binary.LittleEndian.Uint32(b[20:24]),
		End:   binary.LittleEndian.Uint32(b[24:28]),
	}
	r.DependenciesRange = U32Range{
		Begin: binary.LittleEndian.Uint32(b[28:32]),
		End:   binary.LittleEndian.Uint32(b[32:36]),
	}
	copy(r.SHA1[:], b[36:56])
	return r
}

func (r FileRecord) encode(b []byte) {
	binary.LittleEndian.PutUint64(b[0:8], uint64(r.FileID))
	binary.LittleEndian.PutUint64(b[8:16], r.FileTime)
	binary.LittleEndian.PutUint32(b[16:20], r.InlineBufferSegmentsCnt)
	binary.LittleEndian.PutUint32(b[20:24], r.SegmentsRange.Begin)
	binary.LittleEndian.PutUint32(b[24:28], r.SegmentsRange.End)
	binary.LittleEndian.PutUint32(b[28:32], r.DependenciesRange.Begin)
	binary.LittleEndian.PutUint32(b[32:36], r.DependenciesRange.End)
	copy(b[36:56], r.SHA1[:])
}

// SegmentDescriptor is one 16-byte entry of the segment_descriptor
// array (§3).
type SegmentDescriptor struct {
	OffsetInArchive uint64
	DiskSize        uint32
	Size            uint32
}

// IsCompressed reports whether the segment is stored compressed
// (disk_size != size).
func (s SegmentDescriptor) IsCompressed() bool { return s.DiskSize != s.Size }

// EndOffsetInArchive is OffsetInArchive + DiskSize.
func (s SegmentDescriptor) EndOffsetInArchive() uint64 {
	return s.OffsetInArchive + uint64(s.DiskSize)
}

func decodeSegmentDescriptor(b []byte) SegmentDescriptor {
	return SegmentDescriptor{
		OffsetInArchive: binary.LittleEndian.Uint64(b[0:8]),
		DiskSize:        binary.LittleEndian.Uint32(b[8:12]),
		Size:            binary.LittleEndian.Uint32(b[12:16]),
	}
}

func (s SegmentDescriptor) encode(b []byte) {
	binary.LittleEndian.PutUint64(b[0:8], s.OffsetInArchive)
	binary.LittleEndian.PutUint32(b[8:12], s.DiskSize)
	binary.LittleEndian.PutUint32(b[12:16], s.Size)
}

// Dependency is one 8-byte entry of the dependency array: a hash of a
// depended-upon path.
type Dependency struct {
	PathHash uint64
}

func decodeDependency(b []byte) Dependency {
	return Dependency{PathHash: binary.LittleEndian.Uint64(b[0:8])}
}

func (d Dependency) encode(b []byte) {
	binary.LittleEndian.PutUint64(b[0:8], d.PathHash)
}

// Metadata holds the three packed arrays read from a RADR archive's
// metadata block.
type Metadata struct {
	Records      []FileRecord
	Segments     []SegmentDescriptor
	Dependencies []Dependency
}

// ComputeTblsCRC64 hashes the three arrays in the fixed order the
// format's CRC covers: files_cnt | segments_cnt | deps_cnt |
// records_bytes | segments_bytes | dependencies_bytes (§3).
func (m Metadata) ComputeTblsCRC64() uint64 {
	var b rhash.CRC64Builder
	var counts [12]byte
	binary.LittleEndian.PutUint32(counts[0:4], uint32(len(m.Records)))
	binary.LittleEndian.PutUint32(counts[4:8], uint32(len(m.Segments)))
	binary.LittleEndian.PutUint32(counts[8:12], uint32(len(m.Dependencies)))
	b.Update(counts[:])

	rec := make([]byte, fileRecordSize)
	for _, r := range m.Records {
		r.encode(rec)
		b.Update(rec)
	}
	seg := make([]byte, segmentDescSize)
	for _, s := range m.Segments {
		s.encode(seg)
		b.Update(seg)
	}
	dep := make([]byte, dependencySize)
	for _, d := range m.Dependencies {
		d.encode(dep)
		b.Update(dep)
	}
	return b.Finalize()
}

// decodeMetadata parses the trampoline, tables header, and the three
// packed arrays starting at the beginning of buf (the metadata block,
// i.e. buf[header.MetadataOffset:header.MetadataOffset+MetadataSize]).
func decodeMetadata(buf []byte, checkCRC bool) (Metadata, error) {
	if len(buf) < trampolineSize {
		return Metadata{}, ErrTruncated
	}
	tblsOffset := binary.LittleEndian.Uint32(buf[0:4])
	tblsSize := binary.LittleEndian.Uint32(buf[4:8])
	if tblsOffset != 8 {
		return Metadata{}, ErrBadTrampoline
	}
	if uint64(tblsOffset)+uint64(tblsSize) > uint64(len(buf)) {
		return Metadata{}, ErrTruncated
	}
	tbls := buf[tblsOffset : uint64(tblsOffset)+uint64(tblsSize)]
	if len(tbls) < tblsHeaderSize {
		return Metadata{}, ErrTruncated
	}

	crc := binary.LittleEndian.Uint64(tbls[0:8])
	filesCnt := binary.LittleEndian.Uint32(tbls[8:12])
	segmentsCnt := binary.LittleEndian.Uint32(tbls[12:16])
	depsCnt := binary.LittleEndian.Uint32(tbls[16:20])

	off := tblsHeaderSize
	need := uint64(filesCnt)*fileRecordSize + uint64(segmentsCnt)*segmentDescSize + uint64(depsCnt)*dependencySize
	if uint64(len(tbls)-off) < need {
		return Metadata{}, ErrTruncated
	}

	var md Metadata
	md.Records = make([]FileRecord, filesCnt)
	for i := range md.Records {
		md.Records[i] = decodeFileRecord(tbls[off : off+fileRecordSize])
		off += fileRecordSize
	}
	md.Segments = make([]SegmentDescriptor, segmentsCnt)
	for i := range md.Segments {
		md.Segments[i] = decodeSegmentDescriptor(tbls[off : off+segmentDescSize])
		off += segmentDescSize
	}
	md.Dependencies = make([]Dependency, depsCnt)
	for i := range md.Dependencies {
		md.Dependencies[i] = decodeDependency(tbls[off : off+dependencySize])
		off += dependencySize
	}

	if uint32(off) != tblsSize {
		return Metadata{}, ErrTblsSizeMismatch
	}

	if checkCRC {
		got := md.ComputeTblsCRC64()
		if got != crc {
			return Metadata{}, ErrCRCMismatch
		}
	}

	if err := validateRanges(md); err != nil {
		return Metadata{}, err
	}

	return md, nil
}

func validateRanges(md Metadata) error {
	nsegs := uint32(len(md.Segments))
	ndeps := uint32(len(md.Dependencies))
	for _, r := range md.Records {
		if r.SegmentsRange.Begin > r.SegmentsRange.End || r.SegmentsRange.End > nsegs {
			return ErrRecordRangeOOB
		}
		if r.DependenciesRange.Begin > r.DependenciesRange.End || r.DependenciesRange.End > ndeps {
			return ErrRecordRangeOOB
		}
	}
	return nil
}

// encodeMetadata is the mirror of decodeMetadata, used by tests and by
// any future archive builder to reproduce the exact on-disk byte
// layout (including the CRC) for round-trip verification.
func encodeMetadata(md Metadata) []byte {
	recBytes := make([]byte, len(md.Records)*fileRecordSize)
	for i, r := range md.Records {
		r.encode(recBytes[i*fileRecordSize : (i+1)*fileRecordSize])
	}
	segBytes := make([]byte, len(md.Segments)*segmentDescSize)
	for i, s := range md.Segments {
		s.encode(segBytes[i*segmentDescSize : (i+1)*segmentDescSize])
	}
	depBytes := make([]byte, len(md.Dependencies)*dependencySize)
	for i, d := range md.Dependencies {
		d.encode(depBytes[i*dependencySize : (i+1)*dependencySize])
	}

	tblsSize := tblsHeaderSize + len(recBytes) + len(segBytes) + len(depBytes)
	crc := md.ComputeTblsCRC64()

	out := make([]byte, trampolineSize+tblsSize)
	binary.LittleEndian.PutUint32(out[0:4], 8)
	binary.LittleEndian.PutUint32(out[4:8], uint32(tblsSize))

	tbls := out[trampolineSize:]
	binary.LittleEndian.PutUint64(tbls[0:8], crc)
	binary.LittleEndian.PutUint32(tbls[8:12], uint32(len(md.Records)))
	binary.LittleEndian.PutUint32(tbls[12:16], uint32(len(md.Segments)))
	binary.LittleEndian.PutUint32(tbls[16:20], uint32(len(md.Dependencies)))
	off := tblsHeaderSize
	copy(tbls[off:], recBytes)
	off += len(recBytes)
	copy(tbls[off:], segBytes)
	off += len(segBytes)
	copy(tbls[off:], depBytes)

	return out
}
