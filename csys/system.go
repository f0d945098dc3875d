// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package csys is the CSYS object graph codec (§4.8): it decodes and
// re-encodes one "system" — a self-contained chunk of a save file
// carrying a string pool, an object table, and a flat handle table —
// against a reflection catalog of blueprints describing each object's
// fields.
package csys

import (
	"github.com/redxtools/radrkit/csys/catalog"
	"github.com/redxtools/radrkit/internal/bstream"
	"github.com/redxtools/radrkit/internal/strpool"
)

// objectHeader is the on-disk {handle, ctypename_idx} pair preceding
// every object's payload (§4.8 step 2).
type objectHeader struct {
	Handle       uint32
	CTypeNameIdx int32
}

// CSystem is a decoded save-file subsystem: inventory, PSData,
// FactsTable, StatPoolsSystem, or any other recognized node (§3
// "CSystem").
type CSystem struct {
	catalog *catalog.Catalog
	strpool *strpool.Pool

	Objects []*Object

	// Handles is the flat on-disk handle table read alongside the
	// object headers. Handle *properties* resolve directly by
	// 1-based index into Objects per §3 ("Handles inside properties
	// are 1-based indices into objects"), so this table is carried
	// through decode/encode for byte-identical round-tripping but
	// isn't consulted for resolution.
	Handles []uint32
}

// StringPool returns the system's local interned-name pool, the
// handle a caller needs to resolve a CNameProp/GNameProp/EnumProp's
// String()/MemberName() accessor.
func (sys *CSystem) StringPool() *strpool.Pool { return sys.strpool }

// Decode parses one CSystem payload — already framed and handed to
// this package by the save node tree (C9), which is why Decode takes
// a plain byte slice rather than a Stream plus external bounds.
func Decode(raw []byte, cat *catalog.Catalog) (*CSystem, error) {
	s := bstream.NewReader(raw)
	sys, err := DecodeStream(s, cat)
	if err != nil {
		return nil, err
	}
	if s.Tell() != len(raw) {
		return nil, ErrTrailingBytes
	}
	return sys, nil
}

// DecodeStream parses one CSystem payload off an existing stream
// without requiring the stream to be fully consumed afterwards,
// letting a node type that carries trailing data after its CSystem
// (PSData's CName list, §4.9) keep reading from the same cursor
// instead of re-framing a sub-slice. Decode is the byte-slice
// convenience wrapper most callers want; DecodeStream is for those.
func DecodeStream(s *bstream.Stream, cat *catalog.Catalog) (*CSystem, error) {
	sys := &CSystem{catalog: cat}

	pool, err := decodeStringPool(s)
	if err != nil {
		return nil, err
	}
	sys.strpool = pool
	ctx := &decodeCtx{sys: sys}

	objCount := s.ReadU32()
	handleCount := s.ReadU32()
	if s.Err() != nil {
		return nil, s.Err()
	}

	headers := make([]objectHeader, objCount)
	for i := range headers {
		headers[i].Handle = s.ReadU32()
		headers[i].CTypeNameIdx = int32(s.ReadU32())
	}
	sys.Handles = make([]uint32, handleCount)
	for i := range sys.Handles {
		sys.Handles[i] = s.ReadU32()
	}
	if s.Err() != nil {
		return nil, s.Err()
	}

	sys.Objects = make([]*Object, objCount)
	for i, h := range headers {
		name := strpool.GNameFromIndex(h.CTypeNameIdx).String(pool)
		bp, _ := cat.Blueprint(name)
		sys.Objects[i] = &Object{Blueprint: bp, ctypeName: name, handleID: h.Handle}
	}

	for _, obj := range sys.Objects {
		if err := decodeObjectFields(s, ctx, obj); err != nil {
			return nil, err
		}
	}

	if err := resolveHandles(sys); err != nil {
		return nil, err
	}
	return sys, nil
}

// resolveHandles walks every property reachable from every object
// (through arrays and nested objects) with an explicit worklist
// rather than recursion, setting each HandleProp's Resolved pointer
// and rejecting any handle outside [0, len(Objects)] as an integrity
// error (§8 "Handle invariant", §9 "use an explicit worklist, not
// recursion").
func resolveHandles(sys *CSystem) error {
	var stack []Property
	for _, obj := range sys.Objects {
		for _, name := range obj.FieldOrder {
			stack = append(stack, obj.Fields[name])
		}
	}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch v := p.(type) {
		case *HandleProp:
			if v.IsNull() {
				continue
			}
			if int(v.Index) > len(sys.Objects) {
				return newIntegrityErrorf("handle %d out of range (objects=%d)", v.Index, len(sys.Objects))
			}
			v.Resolved = sys.Objects[v.Index-1]
		case *ArrayProp:
			stack = append(stack, v.Elems...)
		case *ObjectProp:
			if v.Value == nil {
				continue
			}
			for _, name := range v.Value.FieldOrder {
				stack = append(stack, v.Value.Fields[name])
			}
		}
	}
	return nil
}

// Encode re-serializes sys, rebuilding its string pool (§4.8 "Encode
// algorithm"): every string of the existing pool is first re-registered
// at its original index, then the object graph is walked and every
// referenced name not yet present is appended in traversal order. The
// rebuilt pool replaces sys's existing one. Keeping the existing
// strings in place is what lets raw-preserved fields (UnknownProp),
// whose bytes may hold pool indices the walk cannot see, still point
// at the same strings, so a pure decode-then-encode round trip
// reproduces the pool index-for-index.
func (sys *CSystem) Encode() ([]byte, error) {
	oldPool := sys.strpool
	newPool := strpool.New(strpool.TagName)
	if oldPool != nil {
		for i := 0; i < oldPool.Len(); i++ {
			str, _ := oldPool.StrOf(int32(i))
			if _, _, err := newPool.Register(str); err != nil {
				return nil, err
			}
		}
	}
	for _, obj := range sys.Objects {
		if err := rebuildObjectNames(obj, newPool, oldPool); err != nil {
			return nil, err
		}
	}
	sys.strpool = newPool
	ctx := &encodeCtx{sys: sys}

	s := bstream.NewWriter()
	encodeStringPool(s, newPool)

	s.WriteU32(uint32(len(sys.Objects)))
	s.WriteU32(uint32(len(sys.Handles)))
	for _, obj := range sys.Objects {
		s.WriteU32(obj.handleID)
		_, idx, err := newPool.Register(obj.ctypeName)
		if err != nil {
			return nil, err
		}
		s.WriteU32(uint32(idx))
	}
	for _, h := range sys.Handles {
		s.WriteU32(h)
	}

	for _, obj := range sys.Objects {
		if err := encodeObjectFields(s, ctx, obj); err != nil {
			return nil, err
		}
	}

	return s.Bytes(), nil
}

// rebuildObjectNames registers obj's own type name and, for every
// field in declaration order, its field name followed immediately by
// its type name — matching the order the two travel on the wire in
// each field record (§4.8: field_name_idx then type_name_idx) — and
// remaps any property that carries a local pool index (GNameProp,
// EnumProp's member) from oldPool to newPool, recursing into nested
// objects and arrays.
func rebuildObjectNames(obj *Object, newPool, oldPool *strpool.Pool) error {
	if _, _, err := newPool.Register(obj.ctypeName); err != nil {
		return err
	}
	for _, name := range obj.FieldOrder {
		if _, _, err := newPool.Register(name); err != nil {
			return err
		}
		prop := obj.Fields[name]
		if _, _, err := newPool.Register(prop.CTypeName()); err != nil {
			return err
		}
		remapped, err := remapProperty(prop, newPool, oldPool)
		if err != nil {
			return err
		}
		obj.Fields[name] = remapped
	}
	return nil
}

func remapProperty(p Property, newPool, oldPool *strpool.Pool) (Property, error) {
	switch v := p.(type) {
	case *GNameProp:
		s := v.Value.String(oldPool)
		_, idx, err := newPool.Register(s)
		if err != nil {
			return nil, err
		}
		return &GNameProp{Value: strpool.GNameFromIndex(idx)}, nil
	case *EnumProp:
		s := v.Member.String(oldPool)
		_, idx, err := newPool.Register(s)
		if err != nil {
			return nil, err
		}
		return &EnumProp{enumType: v.enumType, Member: strpool.GNameFromIndex(idx)}, nil
	case *ArrayProp:
		for i, elem := range v.Elems {
			remapped, err := remapProperty(elem, newPool, oldPool)
			if err != nil {
				return nil, err
			}
			v.Elems[i] = remapped
		}
		return v, nil
	case *ObjectProp:
		if v.Value != nil {
			if err := rebuildObjectNames(v.Value, newPool, oldPool); err != nil {
				return nil, err
			}
		}
		return v, nil
	default:
		return p, nil
	}
}
