// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package catalog

import (
	"strings"
	"testing"
)

const sampleBlueprints = `[
	{"ctypename": "IScriptable", "fields": []},
	{"ctypename": "gameItemData", "parent": "IScriptable", "fields": [
		{"name": "itemID", "ctypename": "TweakDBID"},
		{"name": "quantity", "ctypename": "u32"}
	]},
	{"ctypename": "gameWeaponItemData", "parent": "gameItemData", "fields": [
		{"name": "attachmentSlots", "ctypename": "array:gname"}
	]}
]`

const sampleEnums = `[
	{"name": "gamedataItemType", "members": ["Weapon", "Clothing", "Consumable"]}
]`

func TestLoadBlueprintsResolvesParentChain(t *testing.T) {
	c := New(nil)
	if err := c.LoadBlueprints(strings.NewReader(sampleBlueprints)); err != nil {
		t.Fatalf("LoadBlueprints: %v", err)
	}

	bp, ok := c.Blueprint("gameWeaponItemData")
	if !ok {
		t.Fatal("gameWeaponItemData not found")
	}
	fields := bp.AllFields()
	if len(fields) != 3 {
		t.Fatalf("AllFields() len = %d, want 3", len(fields))
	}
	if fields[0].Name != "itemID" || fields[2].Name != "attachmentSlots" {
		t.Errorf("AllFields() order = %+v, want parent-first", fields)
	}

	if !bp.IsA("IScriptable") {
		t.Error("gameWeaponItemData should be-a IScriptable through its parent chain")
	}
	if bp.IsA("gameVehicleItemData") {
		t.Error("gameWeaponItemData should not be-a an unrelated type")
	}
}

func TestLoadBlueprintsUnknownParentFails(t *testing.T) {
	c := New(nil)
	bad := `[{"ctypename": "orphan", "parent": "doesNotExist", "fields": []}]`
	if err := c.LoadBlueprints(strings.NewReader(bad)); err == nil {
		t.Fatal("expected an error for an unresolved parent reference")
	}
}

func TestEmptyCatalogReportsUnknown(t *testing.T) {
	c := New(nil)
	if _, ok := c.Blueprint("anything"); ok {
		t.Error("empty catalog should not resolve any blueprint")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestLoadEnumsAndMembership(t *testing.T) {
	c := New(nil)
	if err := c.LoadEnums(strings.NewReader(sampleEnums)); err != nil {
		t.Fatalf("LoadEnums: %v", err)
	}
	if !c.IsEnumMember("gamedataItemType", "Weapon") {
		t.Error("Weapon should be a member of gamedataItemType")
	}
	if c.IsEnumMember("gamedataItemType", "NotAMember") {
		t.Error("NotAMember should not be a member")
	}
	members, ok := c.EnumMembers("gamedataItemType")
	if !ok || len(members) != 3 {
		t.Errorf("EnumMembers() = %v, %v", members, ok)
	}
}

func TestLoadEnumsMalformedJSONFails(t *testing.T) {
	c := New(nil)
	if err := c.LoadEnums(strings.NewReader("{not json")); err == nil {
		t.Fatal("expected a decode error for malformed JSON")
	}
}
