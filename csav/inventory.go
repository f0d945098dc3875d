// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package csav

import (
	"fmt"

	"github.com/redxtools/radrkit/csys"
	"github.com/redxtools/radrkit/csys/catalog"
	"github.com/redxtools/radrkit/csys/invitem"
	"github.com/redxtools/radrkit/internal/bstream"
)

// ItemEntry is one inventory slot: the hand-rolled identifier plus the
// item's full object graph (§4.8 "Version branches"; grounded on
// original_source's redx/csav/nodes/inventory/inventory.h, which reads
// the identifier inline then calls read_child("itemData") for the
// rest — here that graph is the inline blob DecodeInventory reads).
type ItemEntry struct {
	ID       invitem.ID
	ItemData *csys.CSystem
}

// SubInventory is one named bucket of items, keyed by a 64-bit uid
// (original_source's SubInventory.uid).
type SubInventory struct {
	UID   uint64
	Items []ItemEntry
}

// Inventory is the decoded "inventory" node: a list of sub-inventories
// each holding a list of items.
type Inventory struct {
	SubInventories []SubInventory
}

// DecodeInventory parses an "inventory" node's payload. The payload is
// treated as a self-contained stream rather than a further node tree:
// each item's object graph follows its identifier inline as a u32
// length-prefixed CSYS blob, and no "itemData" child node is looked up
// by name.
func DecodeInventory(payload []byte, ver Version, cat *catalog.Catalog) (*Inventory, error) {
	s := bstream.NewReader(payload)
	subCount := s.ReadU32()
	if s.Err() != nil {
		return nil, s.Err()
	}

	inv := &Inventory{SubInventories: make([]SubInventory, subCount)}
	for i := range inv.SubInventories {
		sub := &inv.SubInventories[i]
		sub.UID = s.ReadU64()
		itemCount := s.ReadU32()
		if s.Err() != nil {
			return nil, s.Err()
		}
		sub.Items = make([]ItemEntry, itemCount)
		for j := range sub.Items {
			id := invitem.Decode(s, ver.V1)
			if s.Err() != nil {
				return nil, s.Err()
			}

			blobLen := s.ReadU32()
			blob := s.ReadBytes(int(blobLen))
			if s.Err() != nil {
				return nil, s.Err()
			}
			itemData, err := csys.Decode(blob, cat)
			if err != nil {
				return nil, fmt.Errorf("item %d/%d: %w", i, j, err)
			}
			sub.Items[j] = ItemEntry{ID: id, ItemData: itemData}
		}
	}
	if s.Tell() != len(payload) {
		return nil, csys.ErrTrailingBytes
	}
	return inv, nil
}

// Encode re-serializes the inventory back into a node payload, mirroring
// DecodeInventory's framing exactly.
func (inv *Inventory) Encode(ver Version) ([]byte, error) {
	s := bstream.NewWriter()
	s.WriteU32(uint32(len(inv.SubInventories)))
	for _, sub := range inv.SubInventories {
		s.WriteU64(sub.UID)
		s.WriteU32(uint32(len(sub.Items)))
		for _, entry := range sub.Items {
			invitem.Encode(s, ver.V1, entry.ID)
			blob, err := entry.ItemData.Encode()
			if err != nil {
				return nil, err
			}
			s.WriteU32(uint32(len(blob)))
			s.Serialize(blob)
		}
	}
	return s.Bytes(), nil
}
