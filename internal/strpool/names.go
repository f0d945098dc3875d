// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package strpool

import (
	"fmt"

	"github.com/redxtools/radrkit/internal/rhash"
)

// GName is a gname<tag>/gstring value: it carries only the pool
// index and dereferences through the owning pool. The zero value
// refers to pool index 0; the unset value is NilGName.
type GName struct {
	idx int32
}

// NilGName is the unset GName (index -1): it is not Valid and prints
// as "".
var NilGName = GName{idx: -1}

// Intern registers s in pool and returns the resulting GName.
func Intern(pool *Pool, s string) (GName, error) {
	_, idx, err := pool.Register(s)
	if err != nil {
		return GName{}, err
	}
	return GName{idx: idx}, nil
}

// GNameFromIndex wraps a raw pool index as read off the wire (an
// object header's ctypename_idx, a field's name_idx, ...).
func GNameFromIndex(idx int32) GName { return GName{idx: idx} }

// Index returns the raw pool index.
func (g GName) Index() int32 { return g.idx }

// Valid reports whether g refers to an interned slot.
func (g GName) Valid() bool { return g.idx >= 0 }

// String dereferences g through pool. An invalid or out-of-range
// index prints as the empty string.
func (g GName) String(pool *Pool) string {
	if !g.Valid() {
		return ""
	}
	s, ok := pool.StrOf(g.idx)
	if !ok {
		return ""
	}
	return s
}

// Hash returns the FNV1a-64 hash of the underlying string.
func (g GName) Hash(pool *Pool) (uint64, bool) {
	if !g.Valid() {
		return 0, false
	}
	return pool.HashOf(g.idx)
}

// GStrID is a gstrid<tag> value: it carries only the 64-bit hash and
// looks the string up on demand. Lookup may miss (the name was never
// interned in this process), in which case it prints as
// "<HHHHHHHHHHHHHHHH>" rather than failing.
type GStrID struct {
	Hash uint64
}

// NewGStrID hashes s without requiring it to already be interned.
func NewGStrID(s string) GStrID {
	return GStrID{Hash: rhash.FNV1a64String(s)}
}

// GStrIDFromHash wraps a hash read directly off the wire (CName
// fields encode only the hash, §4.8).
func GStrIDFromHash(h uint64) GStrID { return GStrID{Hash: h} }

// Resolve looks the string up in pool, if present.
func (g GStrID) Resolve(pool *Pool) (string, bool) {
	if g.Hash == 0 {
		return "", false
	}
	return pool.FindByHash(g.Hash)
}

// String resolves through pool, falling back to the hex placeholder
// on miss.
func (g GStrID) String(pool *Pool) string {
	if s, ok := g.Resolve(pool); ok {
		return s
	}
	return fmt.Sprintf("<%016X>", g.Hash)
}

// IsZero reports whether the identifier is the null/unset value.
func (g GStrID) IsZero() bool { return g.Hash == 0 }

// TweakDBID is the tweak database identifier: a 40-bit FNV1a hash of
// the lowercased name plus a length field, packed into 7 bytes on
// disk (§3, §4.8). The original reader fills an 8-byte in-memory
// bitfield (40-bit hash, 24-bit length) from only 7 raw bytes, so the
// top byte of the length field is never populated on disk; this
// implementation follows that and carries a 16-bit length.
type TweakDBID struct {
	Hash40 uint64 // low 40 bits significant
	Length uint16
}

// NewTweakDBID computes a TweakDBID for name the way the original
// encoder does: hash the lowercased string, keep only the low 40
// bits, and record the name's length.
func NewTweakDBID(name string) TweakDBID {
	lower := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		lower[i] = c
	}
	h := rhash.FNV1a64(lower) & 0xFFFFFFFFFF
	return TweakDBID{Hash40: h, Length: uint16(len(name))}
}

// Encode packs the identifier into its 7-byte wire form: 5 bytes of
// hash (40 bits, little-endian) followed by 2 bytes of length.
func (t TweakDBID) Encode() [7]byte {
	var b [7]byte
	h := t.Hash40
	b[0] = byte(h)
	b[1] = byte(h >> 8)
	b[2] = byte(h >> 16)
	b[3] = byte(h >> 24)
	b[4] = byte(h >> 32)
	b[5] = byte(t.Length)
	b[6] = byte(t.Length >> 8)
	return b
}

// DecodeTweakDBID unpacks the 7-byte wire form.
func DecodeTweakDBID(b [7]byte) TweakDBID {
	h := uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 |
		uint64(b[3])<<24 | uint64(b[4])<<32
	length := uint16(b[5]) | uint16(b[6])<<8
	return TweakDBID{Hash40: h, Length: length}
}
