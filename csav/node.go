// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package csav implements the save-file node tree (§4.9): an outer
// container holding a flat table of node descriptors that together
// describe a tree, and a dispatch table that hands each recognized
// node's payload to the CSYS codec (csys) while leaving unrecognized
// nodes untouched for byte-identical passthrough.
//
// Grounded on original_source's redx/csav/node_tree.h (the
// {original_descs, root} shape) and the per-node wrapper types under
// redx/csav/nodes/ (CInventory, CGenericSystem, CStatsPool,
// FactsTable), which each hold a node_reader/node_writer pair scoped
// to one node's payload and call back into the shared CSystem codec.
package csav

import (
	"errors"
	"fmt"

	"github.com/redxtools/radrkit/csys/catalog"
	"github.com/redxtools/radrkit/internal/bstream"
)

// Magic is the 4-byte container signature.
var Magic = [4]byte{'C', 'S', 'A', 'V'}

// Version mirrors redx::csav::version: the handful of counters that
// gate wire-format branches elsewhere in the tree (invitem's
// threshold fields chief among them).
type Version struct {
	V1, V2, V3 uint32
	UK0, UK1   uint32
}

// ErrBadMagic is a format error: the container doesn't start with Magic.
var ErrBadMagic = errors.New("csav: bad magic")

// ErrTruncated is a format error: the container ends before a
// declared section is fully present.
var ErrTruncated = errors.New("csav: truncated container")

// nodeDescriptor is one on-disk {name_offset, offset, size, id,
// next_id, child_id} entry (§4.9). id/next_id/child_id are 1-based
// indices into the descriptor table with 0 denoting null, the same
// convention CSYS handles use — chosen because the original headers
// describing the exact on-disk field widths weren't available in the
// retrieved sources; this mirrors the one concrete index convention
// the rest of the tree already commits to (see DESIGN.md).
type nodeDescriptor struct {
	NameOffset uint32
	Offset     uint32
	Size       uint32
	ID         uint32
	NextID     uint32
	ChildID    uint32
}

const nodeDescriptorSize = 24

// Node is one node in the decoded tree: its name and its raw payload
// slice, plus the children discovered by walking child_id/next_id.
type Node struct {
	Name     string
	Payload  []byte
	Children []*Node
}

// Tree is a fully decoded save-file container.
type Tree struct {
	Version Version
	Root    *Node

	descs []nodeDescriptor // descriptor table as read; Encode does not consult it
}

// Decode parses a save-file container: magic, version, node descriptor
// table, and a trailing name blob plus payload blob the descriptors
// index into.
func Decode(raw []byte) (*Tree, error) {
	s := bstream.NewReader(raw)
	var magic [4]byte
	copy(magic[:], s.ReadBytes(4))
	if s.Err() != nil {
		return nil, ErrTruncated
	}
	if magic != Magic {
		return nil, ErrBadMagic
	}

	var ver Version
	ver.V1 = s.ReadU32()
	ver.V2 = s.ReadU32()
	ver.V3 = s.ReadU32()
	ver.UK0 = s.ReadU32()
	ver.UK1 = s.ReadU32()

	descCount := s.ReadU32()
	nameBlobSize := s.ReadU32()
	payloadBlobSize := s.ReadU32()
	if s.Err() != nil {
		return nil, ErrTruncated
	}

	descs := make([]nodeDescriptor, descCount)
	for i := range descs {
		descs[i].NameOffset = s.ReadU32()
		descs[i].Offset = s.ReadU32()
		descs[i].Size = s.ReadU32()
		descs[i].ID = s.ReadU32()
		descs[i].NextID = s.ReadU32()
		descs[i].ChildID = s.ReadU32()
	}
	if s.Err() != nil {
		return nil, ErrTruncated
	}

	nameBlob := s.ReadBytes(int(nameBlobSize))
	payloadBlob := s.ReadBytes(int(payloadBlobSize))
	if s.Err() != nil {
		return nil, ErrTruncated
	}

	nodes := make([]*Node, len(descs))
	for i, d := range descs {
		name, err := readCString(nameBlob, d.NameOffset)
		if err != nil {
			return nil, err
		}
		if uint64(d.Offset)+uint64(d.Size) > uint64(len(payloadBlob)) {
			return nil, ErrTruncated
		}
		nodes[i] = &Node{Name: name, Payload: payloadBlob[d.Offset : d.Offset+d.Size]}
	}
	for i, d := range descs {
		for childIdx := d.ChildID; childIdx != 0; {
			child := nodes[childIdx-1]
			nodes[i].Children = append(nodes[i].Children, child)
			childIdx = descs[childIdx-1].NextID
		}
	}

	var root *Node
	if len(nodes) > 0 {
		root = nodes[0]
	}

	return &Tree{Version: ver, Root: root, descs: descs}, nil
}

func readCString(blob []byte, offset uint32) (string, error) {
	if uint64(offset) > uint64(len(blob)) {
		return "", ErrTruncated
	}
	end := offset
	for end < uint32(len(blob)) && blob[end] != 0 {
		end++
	}
	if end == uint32(len(blob)) {
		return "", ErrTruncated
	}
	return string(blob[offset:end]), nil
}

// Encode re-serializes every node reachable from Root, in depth-first
// pre-order, packing names and payloads in that same order and
// renumbering ids accordingly. Offsets and sizes are recomputed from
// each node's current Payload, so a node whose Payload was replaced is
// written with its new bytes. The output is byte-identical to an
// unmodified input only when that input already laid its nodes out in
// this pre-order; nodes not reachable from Root are not written.
func (t *Tree) Encode() []byte {
	var nodes []*Node
	var walk func(n *Node)
	seen := make(map[*Node]bool)
	walk = func(n *Node) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		nodes = append(nodes, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t.Root)

	nameBlob := []byte{}
	payloadBlob := []byte{}
	nameOffsets := make([]uint32, len(nodes))
	payloadOffsets := make([]uint32, len(nodes))
	indexOf := make(map[*Node]int, len(nodes))
	for i, n := range nodes {
		indexOf[n] = i
		nameOffsets[i] = uint32(len(nameBlob))
		nameBlob = append(nameBlob, n.Name...)
		nameBlob = append(nameBlob, 0)
		payloadOffsets[i] = uint32(len(payloadBlob))
		payloadBlob = append(payloadBlob, n.Payload...)
	}

	s := bstream.NewWriter()
	s.Serialize(Magic[:])
	s.WriteU32(t.Version.V1)
	s.WriteU32(t.Version.V2)
	s.WriteU32(t.Version.V3)
	s.WriteU32(t.Version.UK0)
	s.WriteU32(t.Version.UK1)

	s.WriteU32(uint32(len(nodes)))
	s.WriteU32(uint32(len(nameBlob)))
	s.WriteU32(uint32(len(payloadBlob)))

	for i, n := range nodes {
		var nextID, childID uint32
		if len(n.Children) > 0 {
			childID = uint32(indexOf[n.Children[0]]) + 1
		}
		// next_id chains siblings; find this node's position among its
		// parent's children by scanning (trees here are small).
		nextID = findNextSibling(nodes, n)
		s.WriteU32(nameOffsets[i])
		s.WriteU32(payloadOffsets[i])
		s.WriteU32(uint32(len(n.Payload)))
		s.WriteU32(uint32(i) + 1)
		s.WriteU32(nextID)
		s.WriteU32(childID)
	}

	s.Serialize(nameBlob)
	s.Serialize(payloadBlob)
	return s.Bytes()
}

func findNextSibling(nodes []*Node, target *Node) uint32 {
	for _, n := range nodes {
		for i, c := range n.Children {
			if c == target && i+1 < len(n.Children) {
				return indexOfNode(nodes, n.Children[i+1]) + 1
			}
		}
	}
	return 0
}

func indexOfNode(nodes []*Node, target *Node) uint32 {
	for i, n := range nodes {
		if n == target {
			return uint32(i)
		}
	}
	return 0
}

// FindChild returns the first direct child named name, mirroring the
// original's node_reader::read_child(name) (§4.9).
func (n *Node) FindChild(name string) (*Node, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Dispatch decodes every recognized node directly beneath root,
// returning a Save aggregating them; nodes whose name isn't in the
// recognized set are left in Tree unmodified for passthrough (§4.9).
func Dispatch(t *Tree, cat *catalog.Catalog) (*Save, error) {
	save := &Save{Tree: t}
	if t.Root == nil {
		return save, nil
	}
	for _, child := range t.Root.Children {
		switch child.Name {
		case "inventory":
			inv, err := DecodeInventory(child.Payload, t.Version, cat)
			if err != nil {
				return nil, fmt.Errorf("csav: inventory: %w", err)
			}
			save.Inventory = inv
		case "PSData":
			ps, err := DecodePSData(child.Payload, cat)
			if err != nil {
				return nil, fmt.Errorf("csav: PSData: %w", err)
			}
			save.PSData = ps
		case "FactsTable":
			ft, err := DecodeFactsTable(child.Payload)
			if err != nil {
				return nil, fmt.Errorf("csav: FactsTable: %w", err)
			}
			save.FactsTable = ft
		case "StatPoolsSystem":
			gs, err := DecodeGenericSystem(child.Payload, cat)
			if err != nil {
				return nil, fmt.Errorf("csav: StatPoolsSystem: %w", err)
			}
			save.StatPoolsSystem = gs
		default:
			gs, err := DecodeGenericSystem(child.Payload, cat)
			if err == nil {
				if save.GenericSystems == nil {
					save.GenericSystems = map[string]*GenericSystem{}
				}
				save.GenericSystems[child.Name] = gs
			}
			// A node this package doesn't even recognize as a CSystem
			// payload is left exactly as decoded in Tree — no error,
			// no attempted reinterpretation (§4.9 "Unknown nodes are
			// passed through byte-identically").
		}
	}
	return save, nil
}

// Save aggregates the recognized subsystems decoded from one save's
// node tree, plus the unmodified Tree for round-tripping nodes this
// package doesn't specifically model.
type Save struct {
	Tree *Tree

	Inventory       *Inventory
	PSData          *PSData
	FactsTable      *FactsTable
	StatPoolsSystem *GenericSystem
	GenericSystems  map[string]*GenericSystem // keyed by node name, §4.9 "genericSystem" fallback
}
