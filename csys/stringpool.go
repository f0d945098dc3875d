// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package csys

import (
	"errors"

	"github.com/redxtools/radrkit/internal/bstream"
	"github.com/redxtools/radrkit/internal/strpool"
)

// ErrStringPoolCorrupt is a resource-corrupt error (§7): a string
// pool descriptor points outside the data section, or a descriptor's
// length would read past the end of the blob.
var ErrStringPoolCorrupt = errors.New("csys: corrupt string pool descriptor")

// descriptor is one on-disk {offset:u24, length:u8} entry (§6
// "CStringPool on-disk").
type descriptor struct {
	offset uint32
	length uint8
}

// decodeStringPool reads a CSystem's local string pool: a count, the
// data section's total size, the descriptor array, then the raw byte
// blob the descriptors index into. Descriptor offsets are stored
// relative to the data section's start and are rebased to absolute
// stream positions as each string is registered (§6: "on read,
// offsets are re-based to zero"), here realized as "rebased against
// the data slice start" since Go slices already start at zero.
//
// The returned pool reuses internal/strpool.Pool directly: a CSystem
// gets its own fresh instance per decode (strpool.New), the same
// registry shape C2 defines for the process-wide NAME/PATH/TDBID/FACT
// pools, just scoped to one save-file system's lifetime instead of
// the whole process (§5 "CSystem instances are rebuilt on every
// save-file load").
func decodeStringPool(s *bstream.Stream) (*strpool.Pool, error) {
	count := s.ReadU32()
	dataSize := s.ReadU32()
	if s.Err() != nil {
		return nil, s.Err()
	}

	descs := make([]descriptor, count)
	for i := range descs {
		off := s.ReadU24()
		length := s.ReadU8()
		if s.Err() != nil {
			return nil, s.Err()
		}
		descs[i] = descriptor{offset: off, length: length}
	}

	data := s.ReadBytes(int(dataSize))
	if s.Err() != nil {
		return nil, s.Err()
	}

	pool := strpool.New(strpool.TagName)
	for _, d := range descs {
		end := uint64(d.offset) + uint64(d.length)
		if end > uint64(len(data)) {
			return nil, ErrStringPoolCorrupt
		}
		str := string(data[d.offset:end])
		if _, _, err := pool.Register(str); err != nil {
			return nil, err
		}
	}
	return pool, nil
}

// encodeStringPool is decodeStringPool's mirror: it walks pool in
// registration order (stable since Pool storage is append-only),
// assigns descriptor offsets in that same order, and writes the
// descriptor table immediately followed by the concatenated byte
// blob (§6: "on write, they are rebased by the descriptor-array
// size" — trivial here since the blob always starts right after the
// descriptors, with no separate rebasing arithmetic needed).
func encodeStringPool(s *bstream.Stream, pool *strpool.Pool) {
	n := pool.Len()
	var blob []byte
	descs := make([]descriptor, n)
	for i := 0; i < n; i++ {
		str, _ := pool.StrOf(int32(i))
		descs[i] = descriptor{offset: uint32(len(blob)), length: uint8(len(str))}
		blob = append(blob, str...)
	}

	s.WriteU32(uint32(n))
	s.WriteU32(uint32(len(blob)))
	for _, d := range descs {
		s.WriteU24(d.offset)
		s.WriteU8(d.length)
	}
	s.Serialize(blob)
}
