// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package csav

import (
	"errors"

	"github.com/redxtools/radrkit/internal/bstream"
)

// ErrFactsTableTrailingBytes is a format error: the facts table's
// payload carried bytes past the last declared value.
var ErrFactsTableTrailingBytes = errors.New("csav: trailing bytes after FactsTable")

// Fact is one quest-system fact: a name hashed with FNV1a-32 (the FACT
// pool tag, §3) paired with its integer value.
type Fact struct {
	Hash  uint32
	Value uint32
}

// FactsTable is the decoded "FactsTable" node: a packed-int count
// followed by two parallel u32 arrays, hashes then values (§4.9;
// grounded on original_source's
// redx/csav/nodes/questSystem/FactsDB/FactsTable.h).
//
// The original always writes a non-negative count; this format's test
// vector exercises the packed-int codec's sign bit on the count field
// itself (§8 scenario 3: "packed_int(-2)"). Per design notes'
// "do not invent semantics" for source ambiguities, this decoder reads
// whatever signed value is actually on the wire, uses its absolute
// value as the element count, and Encode emits the exact signed value
// back unchanged rather than always normalizing to a positive count.
type FactsTable struct {
	Facts []Fact

	rawCount int64 // preserves the on-disk count's sign for Encode
}

// DecodeFactsTable parses a "FactsTable" node payload.
func DecodeFactsTable(payload []byte) (*FactsTable, error) {
	s := bstream.NewReader(payload)
	rawCount := s.DecodePackedInt()
	if s.Err() != nil {
		return nil, s.Err()
	}
	n := rawCount
	if n < 0 {
		n = -n
	}

	hashes := make([]uint32, n)
	for i := range hashes {
		hashes[i] = s.ReadU32()
	}
	values := make([]uint32, n)
	for i := range values {
		values[i] = s.ReadU32()
	}
	if s.Err() != nil {
		return nil, s.Err()
	}
	if s.Tell() != len(payload) {
		return nil, ErrFactsTableTrailingBytes
	}

	facts := make([]Fact, n)
	for i := range facts {
		facts[i] = Fact{Hash: hashes[i], Value: values[i]}
	}
	return &FactsTable{Facts: facts, rawCount: rawCount}, nil
}

// Encode re-serializes the table, reproducing the original signed
// count and the hash/value array split exactly.
func (ft *FactsTable) Encode() []byte {
	s := bstream.NewWriter()
	s.EncodePackedInt(ft.rawCount)
	for _, f := range ft.Facts {
		s.WriteU32(f.Hash)
	}
	for _, f := range ft.Facts {
		s.WriteU32(f.Value)
	}
	return s.Bytes()
}

// Lookup returns the value stored for hash, if present.
func (ft *FactsTable) Lookup(hash uint32) (uint32, bool) {
	for _, f := range ft.Facts {
		if f.Hash == hash {
			return f.Value, true
		}
	}
	return 0, false
}
