// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package csys

import (
	"bytes"
	"strings"
	"testing"

	"github.com/redxtools/radrkit/csys/catalog"
	"github.com/redxtools/radrkit/internal/strpool"
)

const personBlueprintJSON = `[
	{"ctypename": "Person", "fields": [
		{"name": "name", "ctypename": "gname"},
		{"name": "age", "ctypename": "Uint32"},
		{"name": "best_friend", "ctypename": "handle:Person"}
	]}
]`

// buildSystemBytes hand-assembles a minimal CSYS payload: one string
// pool holding the names referenced below, two Person objects where
// object 1's best_friend handle points at object 2, and no unknown
// fields.
func buildSystemBytes(t *testing.T) []byte {
	t.Helper()
	cat := catalog.New(nil)
	if err := cat.LoadBlueprints(strings.NewReader(personBlueprintJSON)); err != nil {
		t.Fatal(err)
	}

	seedPool := strpool.New(strpool.TagName)

	sys := &CSystem{catalog: cat, strpool: seedPool}
	bp, _ := cat.Blueprint("Person")

	obj1 := &Object{Blueprint: bp, ctypeName: "Person", Fields: map[string]Property{}}
	obj2 := &Object{Blueprint: bp, ctypeName: "Person", Fields: map[string]Property{}}

	setPersonFields(seedPool, obj1, "alice", 30, 2)
	setPersonFields(seedPool, obj2, "bob", 25, 0)

	sys.Objects = []*Object{obj1, obj2}
	sys.Handles = nil

	raw, err := sys.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return raw
}

func setPersonFields(pool *strpool.Pool, obj *Object, name string, age uint32, bestFriendIdx uint32) {
	_, idx, err := pool.Register(name)
	if err != nil {
		panic(err)
	}
	obj.FieldOrder = []string{"name", "age", "best_friend"}
	obj.Fields["name"] = &GNameProp{Value: strpool.GNameFromIndex(idx)}
	obj.Fields["age"] = &IntProp{ctypeName: "Uint32", bits: 32, signed: false, Value: int64(age)}
	obj.Fields["best_friend"] = &HandleProp{ctypeName: "handle:Person", targetType: "Person", Index: bestFriendIdx}
}

func TestDecodeResolvesHandlesAndFields(t *testing.T) {
	cat := catalog.New(nil)
	if err := cat.LoadBlueprints(strings.NewReader(personBlueprintJSON)); err != nil {
		t.Fatal(err)
	}

	raw := buildSystemBytes(t)
	sys, err := Decode(raw, cat)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(sys.Objects) != 2 {
		t.Fatalf("Objects len = %d, want 2", len(sys.Objects))
	}

	obj1 := sys.Objects[0]
	if obj1.CTypeName() != "Person" {
		t.Errorf("obj1.CTypeName() = %q, want Person", obj1.CTypeName())
	}
	hf, ok := obj1.Fields["best_friend"].(*HandleProp)
	if !ok {
		t.Fatal("best_friend field missing or wrong type")
	}
	if hf.Resolved != sys.Objects[1] {
		t.Error("best_friend handle did not resolve to object 2")
	}

	ageProp, ok := obj1.Fields["age"].(*IntProp)
	if !ok || ageProp.Value != 30 {
		t.Errorf("age field = %+v, want 30", obj1.Fields["age"])
	}
}

func TestDecodeEncodeRoundTripByteIdentical(t *testing.T) {
	cat := catalog.New(nil)
	if err := cat.LoadBlueprints(strings.NewReader(personBlueprintJSON)); err != nil {
		t.Fatal(err)
	}

	raw := buildSystemBytes(t)
	sys, err := Decode(raw, cat)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	reencoded, err := sys.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(raw, reencoded) {
		t.Errorf("re-encode not byte-identical:\n got  %x\n want %x", reencoded, raw)
	}
}

func TestHandleOutOfRangeIsIntegrityError(t *testing.T) {
	cat := catalog.New(nil)
	if err := cat.LoadBlueprints(strings.NewReader(personBlueprintJSON)); err != nil {
		t.Fatal(err)
	}

	seedPool := strpool.New(strpool.TagName)
	sys := &CSystem{catalog: cat, strpool: seedPool}
	bp, _ := cat.Blueprint("Person")
	obj := &Object{Blueprint: bp, ctypeName: "Person", Fields: map[string]Property{}}
	setPersonFields(seedPool, obj, "solo", 1, 99) // no object 99 exists
	sys.Objects = []*Object{obj}

	raw, err := sys.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(raw, cat); err == nil {
		t.Fatal("expected an integrity error for an out-of-range handle")
	} else if _, ok := err.(*IntegrityError); !ok {
		t.Errorf("err = %v (%T), want *IntegrityError", err, err)
	}
}

func TestEmptyCatalogDegradesToUnknownObjects(t *testing.T) {
	emptyCat := catalog.New(nil)
	raw := buildSystemBytes(t) // built against a catalog that DOES know Person

	sys, err := Decode(raw, emptyCat)
	if err != nil {
		t.Fatalf("Decode against empty catalog: %v", err)
	}
	for _, obj := range sys.Objects {
		if obj.CTypeName() != "<unknown>" {
			t.Errorf("CTypeName() = %q, want <unknown>", obj.CTypeName())
		}
		for _, name := range obj.FieldOrder {
			if _, ok := obj.Fields[name].(*UnknownProp); !ok {
				t.Errorf("field %q = %T, want *UnknownProp", name, obj.Fields[name])
			}
		}
	}

	reencoded, err := sys.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(raw, reencoded) {
		t.Error("re-encode of a catalog-less decode should still be byte-identical")
	}
}
