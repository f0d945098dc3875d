// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package rhash implements the content-addressing primitives shared by
// the radr archive reader and the csys save decoder: FNV1a-32/64,
// CRC-32, and a CRC-64/ECMA builder.
package rhash

import (
	"hash"
	"hash/crc32"
)

const (
	fnvOffset32 = 0x811C9DC5
	fnvPrime32  = 0x01000193

	fnvOffset64 = 0xCBF29CE484222325
	fnvPrime64  = 0x100000001B3
)

// FNV1a32 hashes b with the standard FNV-1a 32-bit parameters.
func FNV1a32(b []byte) uint32 {
	h := uint32(fnvOffset32)
	for _, c := range b {
		h ^= uint32(c)
		h *= fnvPrime32
	}
	return h
}

// FNV1a64 hashes b with the standard FNV-1a 64-bit parameters.
func FNV1a64(b []byte) uint64 {
	h := uint64(fnvOffset64)
	for _, c := range b {
		h ^= uint64(c)
		h *= fnvPrime64
	}
	return h
}

// FNV1a64String is a convenience wrapper avoiding a []byte copy on the
// common case of hashing a string.
func FNV1a64String(s string) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return h
}

// CRC32 computes the standard (IEEE) CRC-32 of b, continuing from a
// running value of seed (0 for a fresh checksum).
func CRC32(b []byte, seed uint32) uint32 {
	return crc32.Update(seed, crc32.IEEETable, b)
}

// crc64ECMA182Poly is the non-reflected CRC-64/ECMA-182 polynomial.
// Go's stdlib hash/crc64 only exposes the *reflected* ECMA table
// (CRC-64/XZ), whose check value over "123456789" is
// 0x995DC9BBDF1939FA, not the 0x6C40DF5F0B497347 this format's
// metadata checksum actually uses (a non-reflected, MSB-first
// computation with no init/xor-out). Nothing in the reference corpus
// carries a third-party CRC-64 implementation, so this table is
// hand-built the same way hash/crc64's own MakeTable does, just
// without the bit-reflection step.
const crc64ECMA182Poly = 0x42F0E1EBA9EA3693

var crc64ECMA182Table = func() [256]uint64 {
	var table [256]uint64
	for i := range table {
		crc := uint64(i) << 56
		for j := 0; j < 8; j++ {
			if crc&0x8000000000000000 != 0 {
				crc = crc<<1 ^ crc64ECMA182Poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}()

// CRC64Builder computes a non-reflected CRC-64/ECMA-182 over a byte
// stream fed incrementally, matching the metadata checksum in the
// RADR format: init zero, no xor-out.
//
// The zero value is ready to use.
type CRC64Builder struct {
	crc     uint64
	started bool
}

// Update feeds more bytes into the running checksum.
func (b *CRC64Builder) Update(p []byte) {
	b.started = true
	for _, c := range p {
		idx := byte(b.crc>>56) ^ c
		b.crc = b.crc<<8 ^ crc64ECMA182Table[idx]
	}
}

// Finalize returns the checksum. It does not reset the builder.
func (b *CRC64Builder) Finalize() uint64 {
	if !b.started {
		return 0
	}
	return b.crc
}

// CRC64 computes the one-shot CRC-64/ECMA checksum of b.
func CRC64(b []byte) uint64 {
	var builder CRC64Builder
	builder.Update(b)
	return builder.Finalize()
}

// NewCRC64Writer returns an io.Writer adapter over a CRC64Builder so
// callers (the RADR metadata writer/verifier) can hash table bytes as
// they are serialized instead of buffering the whole metadata block.
func NewCRC64Writer(b *CRC64Builder) hash.Hash64 {
	return &crc64Writer{b: b}
}

type crc64Writer struct {
	b *CRC64Builder
}

func (w *crc64Writer) Write(p []byte) (int, error) {
	w.b.Update(p)
	return len(p), nil
}

func (w *crc64Writer) Sum(b []byte) []byte {
	s := w.b.Finalize()
	return append(b,
		byte(s), byte(s>>8), byte(s>>16), byte(s>>24),
		byte(s>>32), byte(s>>40), byte(s>>48), byte(s>>56))
}

func (w *crc64Writer) Reset()         { *w.b = CRC64Builder{} }
func (w *crc64Writer) Size() int      { return 8 }
func (w *crc64Writer) BlockSize() int { return 1 }
func (w *crc64Writer) Sum64() uint64  { return w.b.Finalize() }

// SHA1Digest is a passive 20-byte container: digests travel with
// RADR file records but this subsystem never computes them itself.
type SHA1Digest [20]byte
