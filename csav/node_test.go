// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package csav

import (
	"bytes"
	"testing"

	"github.com/redxtools/radrkit/csys/catalog"
	"github.com/redxtools/radrkit/internal/bstream"
)

type testNodeSpec struct {
	name     string
	payload  []byte
	children []int // indices into the spec slice, in child order
}

// buildContainer lays specs out in depth-first pre-order starting from
// root (specs[0]), matching the order Tree.Encode reproduces so a
// round trip through Decode -> Encode is byte-identical.
func buildContainer(ver Version, specs []testNodeSpec) []byte {
	type flat struct {
		spec     testNodeSpec
		children []int // flat indices
	}
	var order []int
	var walk func(i int)
	walk = func(i int) {
		order = append(order, i)
		for _, c := range specs[i].children {
			walk(c)
		}
	}
	walk(0)

	// position[i] = index of original spec i within order (= its
	// eventual 1-based node id).
	position := make(map[int]int, len(order))
	for pos, specIdx := range order {
		position[specIdx] = pos
	}

	nameBlob := []byte{}
	payloadBlob := []byte{}
	nameOffsets := make([]uint32, len(order))
	payloadOffsets := make([]uint32, len(order))
	sizes := make([]uint32, len(order))
	childIDs := make([]uint32, len(order))
	nextIDs := make([]uint32, len(order))

	for pos, specIdx := range order {
		spec := specs[specIdx]
		nameOffsets[pos] = uint32(len(nameBlob))
		nameBlob = append(nameBlob, spec.name...)
		nameBlob = append(nameBlob, 0)
		payloadOffsets[pos] = uint32(len(payloadBlob))
		payloadBlob = append(payloadBlob, spec.payload...)
		sizes[pos] = uint32(len(spec.payload))

		if len(spec.children) > 0 {
			childIDs[pos] = uint32(position[spec.children[0]]) + 1
		}
		for i, c := range spec.children {
			if i+1 < len(spec.children) {
				nextPos := position[spec.children[i+1]]
				nextIDs[position[c]] = uint32(nextPos) + 1
			}
		}
	}

	s := bstream.NewWriter()
	s.Serialize(Magic[:])
	s.WriteU32(ver.V1)
	s.WriteU32(ver.V2)
	s.WriteU32(ver.V3)
	s.WriteU32(ver.UK0)
	s.WriteU32(ver.UK1)
	s.WriteU32(uint32(len(order)))
	s.WriteU32(uint32(len(nameBlob)))
	s.WriteU32(uint32(len(payloadBlob)))
	for pos := range order {
		s.WriteU32(nameOffsets[pos])
		s.WriteU32(payloadOffsets[pos])
		s.WriteU32(sizes[pos])
		s.WriteU32(uint32(pos) + 1)
		s.WriteU32(nextIDs[pos])
		s.WriteU32(childIDs[pos])
	}
	s.Serialize(nameBlob)
	s.Serialize(payloadBlob)
	return s.Bytes()
}

func TestDecodeTreeAndDispatch(t *testing.T) {
	raw := buildContainer(Version{V1: 150}, []testNodeSpec{
		{name: "root", children: []int{1, 2}},
		{name: "FactsTable", payload: buildFactsPayload()},
		{name: "genericSystem", payload: emptyCSystemBlob()},
	})

	tree, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tree.Root == nil || tree.Root.Name != "root" {
		t.Fatalf("Root = %+v", tree.Root)
	}
	if len(tree.Root.Children) != 2 {
		t.Fatalf("Root.Children len = %d, want 2", len(tree.Root.Children))
	}

	cat := catalog.New(nil)
	save, err := Dispatch(tree, cat)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if save.FactsTable == nil || len(save.FactsTable.Facts) != 2 {
		t.Fatalf("FactsTable = %+v", save.FactsTable)
	}
	gs, ok := save.GenericSystems["genericSystem"]
	if !ok || gs.System == nil {
		t.Fatalf("GenericSystems[genericSystem] missing")
	}
}

func TestTreeEncodeRoundTrip(t *testing.T) {
	raw := buildContainer(Version{V1: 150}, []testNodeSpec{
		{name: "root", children: []int{1, 2}},
		{name: "FactsTable", payload: buildFactsPayload()},
		{name: "genericSystem", payload: emptyCSystemBlob()},
	})

	tree, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	reencoded := tree.Encode()
	if !bytes.Equal(raw, reencoded) {
		t.Errorf("round trip mismatch:\n got  %x\n want %x", reencoded, raw)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	raw := buildContainer(Version{}, []testNodeSpec{{name: "root"}})
	raw[0] = 'X'
	if _, err := Decode(raw); err != ErrBadMagic {
		t.Errorf("err = %v, want ErrBadMagic", err)
	}
}
