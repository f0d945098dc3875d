// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package invitem decodes the inventory-item identifier, a
// hand-rolled struct layered on top of the generic CSYS property
// system rather than expressed as one (§4.8 "Version branches";
// grounded on original_source's
// Source/cserialization/cnodes/inventory.hpp and
// Source/csav/cnodes/CInventory.hpp, which keep this identifier
// outside the reflective property system too — a handful of
// node-specific structs sit directly on the raw node reader instead
// of going through the blueprint catalog).
package invitem

import (
	"github.com/redxtools/radrkit/internal/bstream"
	"github.com/redxtools/radrkit/internal/strpool"
)

// ID is the inventory item identifier. Its on-disk shape has four
// historical variants selected by the save's v1 version counter
// (§4.8): every shape shares the 8-byte CName-as-u64 base and a
// 4-byte extension; newer saves append one extra field each at the
// 97/190/221 thresholds, so a decoder must branch on v1 exactly there
// and a writer must emit precisely the shape the target version
// implies (round-tripping a save must preserve byte length exactly,
// §8 scenario 4).
type ID struct {
	NameHash  strpool.GStrID // CName stored as a raw hash, as-u64 on disk
	Extension uint32

	HasFlag bool
	Flag    uint8 // present when v1 >= 97

	HasField2 bool
	Field2    uint16 // present when v1 >= 190

	HasField3 bool
	Field3    uint8 // present when v1 >= 221
}

// EncodedLen returns the number of bytes Encode would emit for v1.
func EncodedLen(v1 uint32) int {
	n := 8 + 4 // base {CName as_u64} + extension
	if v1 >= 97 {
		n++
	}
	if v1 >= 190 {
		n += 2
	}
	if v1 >= 221 {
		n++
	}
	return n
}

// Decode reads one identifier from s, branching on v1 exactly at the
// 97/190/221 thresholds (§4.8).
func Decode(s *bstream.Stream, v1 uint32) ID {
	var id ID
	id.NameHash = strpool.GStrIDFromHash(s.ReadU64())
	id.Extension = s.ReadU32()

	if v1 >= 97 {
		id.HasFlag = true
		id.Flag = s.ReadU8()
	}
	if v1 >= 190 {
		id.HasField2 = true
		id.Field2 = s.ReadU16()
	}
	if v1 >= 221 {
		id.HasField3 = true
		id.Field3 = s.ReadU8()
	}
	return id
}

// Encode writes id back out in the shape implied by v1. Callers
// constructing an ID for a specific target version should set the
// corresponding Has* flags to match, or rely on Decode/Encode
// round-tripping an existing value unchanged.
func Encode(s *bstream.Stream, v1 uint32, id ID) {
	s.WriteU64(id.NameHash.Hash)
	s.WriteU32(id.Extension)

	if v1 >= 97 {
		s.WriteU8(id.Flag)
	}
	if v1 >= 190 {
		s.WriteU16(id.Field2)
	}
	if v1 >= 221 {
		s.WriteU8(id.Field3)
	}
}
