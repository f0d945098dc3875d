// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package csav

import (
	"bytes"
	"testing"

	"github.com/redxtools/radrkit/csys/catalog"
	"github.com/redxtools/radrkit/csys/invitem"
	"github.com/redxtools/radrkit/internal/bstream"
	"github.com/redxtools/radrkit/internal/strpool"
)

// emptyCSystemBlob is the minimal valid CSYS payload: an empty string
// pool, zero objects, zero handles.
func emptyCSystemBlob() []byte {
	s := bstream.NewWriter()
	s.WriteU32(0) // string pool count
	s.WriteU32(0) // string pool data size
	s.WriteU32(0) // object count
	s.WriteU32(0) // handle count
	return s.Bytes()
}

// buildInventoryPayload hand-assembles one sub-inventory with one item,
// at the given v1 version, so the identifier's encoded length varies
// per §8 scenario 4.
func buildInventoryPayload(t *testing.T, v1 uint32) []byte {
	t.Helper()
	s := bstream.NewWriter()
	s.WriteU32(1) // sub-inventory count
	s.WriteU64(0xAABBCCDDEEFF0011)
	s.WriteU32(1) // item count

	id := invitem.ID{NameHash: strpool.GStrIDFromHash(0x1122334455667788), Extension: 7}
	invitem.Encode(s, v1, id)

	itemSys := emptyCSystemBlob()
	s.WriteU32(uint32(len(itemSys)))
	s.Serialize(itemSys)
	return s.Bytes()
}

func TestInventoryIdentifierLengthVariesByVersion(t *testing.T) {
	ver95 := Version{V1: 95}
	ver100 := Version{V1: 100}
	cat := catalog.New(nil)

	payload95 := buildInventoryPayload(t, 95)
	payload100 := buildInventoryPayload(t, 100)

	if len(payload100) <= len(payload95) {
		t.Fatalf("expected v1=100 payload longer than v1=95 (got %d vs %d)", len(payload100), len(payload95))
	}
	if len(payload100)-len(payload95) != 1 {
		t.Fatalf("expected exactly 1 extra byte for the >=97 flag field, got %d", len(payload100)-len(payload95))
	}

	inv95, err := DecodeInventory(payload95, ver95, cat)
	if err != nil {
		t.Fatalf("DecodeInventory(v1=95): %v", err)
	}
	inv100, err := DecodeInventory(payload100, ver100, cat)
	if err != nil {
		t.Fatalf("DecodeInventory(v1=100): %v", err)
	}

	if inv95.SubInventories[0].Items[0].ID.HasFlag {
		t.Error("v1=95 identifier should not carry the >=97 flag field")
	}
	if !inv100.SubInventories[0].Items[0].ID.HasFlag {
		t.Error("v1=100 identifier should carry the >=97 flag field")
	}
}

func TestInventoryRoundTrip(t *testing.T) {
	cat := catalog.New(nil)
	ver := Version{V1: 200}
	payload := buildInventoryPayload(t, 200)

	inv, err := DecodeInventory(payload, ver, cat)
	if err != nil {
		t.Fatalf("DecodeInventory: %v", err)
	}
	reencoded, err := inv.Encode(ver)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(payload, reencoded) {
		t.Errorf("round trip mismatch:\n got  %x\n want %x", reencoded, payload)
	}
}
