// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package csys

import (
	"strconv"
	"strings"

	"github.com/redxtools/radrkit/internal/bstream"
	"github.com/redxtools/radrkit/internal/strpool"
)

// Property is a polymorphic field value. Concrete implementations
// are the "tagged variant of concrete types" the design notes call
// for (§9): dynamic dispatch over property kinds is a factory mapping
// a declared ctypename to a constructor function, mirroring the
// original CPropertyFactory::get_creator(ctypename).
type Property interface {
	// CTypeName is the declared type name this property instance was
	// constructed for.
	CTypeName() string

	decode(s *bstream.Stream, ctx *decodeCtx) error
	encode(s *bstream.Stream, ctx *encodeCtx) error
}

// decodeCtx threads the per-CSystem state a property needs while
// decoding: the local string pool and the catalog used to resolve
// nested object/enum/array element types.
type decodeCtx struct {
	sys *CSystem
}

// encodeCtx is decodeCtx's write-side counterpart.
type encodeCtx struct {
	sys *CSystem
}

// propertyCreator builds a fresh, zero-valued Property for one
// declared ctypename.
type propertyCreator func(ctypeName string) Property

// propertyFactory is the ctypename -> creator registry (§9). Scalar
// kinds are registered under their exact names; array/static
// array/handle/weak-handle kinds are recognized by a colon-separated
// prefix the same way the original RTTI type name embeds its element
// type (e.g. "handle:gameItemObject", "array:CName").
var propertyFactory = map[string]propertyCreator{
	"Bool":   func(t string) Property { return &BoolProp{} },
	"Int8":   newIntCreator(8, true),
	"Int16":  newIntCreator(16, true),
	"Int32":  newIntCreator(32, true),
	"Int64":  newIntCreator(64, true),
	"Uint8":  newIntCreator(8, false),
	"Uint16": newIntCreator(16, false),
	"Uint32": newIntCreator(32, false),
	"Uint64": newIntCreator(64, false),
	"Float":  func(t string) Property { return &FloatProp{} },
	"CName":   func(t string) Property { return &CNameProp{} },
	"NodeRef": func(t string) Property { return &NodeRefProp{} },
	"TweakDBID": func(t string) Property { return &TweakDBIDProp{} },
	"gname":     func(t string) Property { return &GNameProp{} },
}

func newIntCreator(bits int, signed bool) propertyCreator {
	return func(t string) Property { return &IntProp{ctypeName: t, bits: bits, signed: signed} }
}

// newProperty constructs the Property instance for a declared
// ctypename, consulting the catalog for enum and nested-object
// types and falling back to CUnknownProperty for anything else
// (§9: "unknown types are the raw bytes variant").
func newProperty(ctypeName string, ctx *decodeCtx) Property {
	if creator, ok := propertyFactory[ctypeName]; ok {
		return creator(ctypeName)
	}
	if rest, ok := stripPrefix(ctypeName, "handle:"); ok {
		return &HandleProp{ctypeName: ctypeName, targetType: rest, weak: false}
	}
	if rest, ok := stripPrefix(ctypeName, "whandle:"); ok {
		return &HandleProp{ctypeName: ctypeName, targetType: rest, weak: true}
	}
	if rest, ok := stripPrefix(ctypeName, "array:"); ok {
		return &ArrayProp{ctypeName: ctypeName, elemType: rest}
	}
	if rest, ok := stripStaticPrefix(ctypeName); ok {
		return &ArrayProp{ctypeName: ctypeName, elemType: rest.elemType, static: true, staticCount: rest.count}
	}
	if ctx != nil && ctx.sys != nil && ctx.sys.catalog != nil {
		if _, ok := ctx.sys.catalog.EnumMembers(ctypeName); ok {
			return &EnumProp{enumType: ctypeName}
		}
		if _, ok := ctx.sys.catalog.Blueprint(ctypeName); ok {
			return &ObjectProp{ctypeName: ctypeName}
		}
	}
	return &UnknownProp{ctypeName: ctypeName}
}

func stripPrefix(s, prefix string) (string, bool) {
	if strings.HasPrefix(s, prefix) {
		return s[len(prefix):], true
	}
	return "", false
}

type staticSpec struct {
	count    int
	elemType string
}

// stripStaticPrefix parses "static:N:ElemType".
func stripStaticPrefix(s string) (staticSpec, bool) {
	rest, ok := stripPrefix(s, "static:")
	if !ok {
		return staticSpec{}, false
	}
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return staticSpec{}, false
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return staticSpec{}, false
	}
	return staticSpec{count: n, elemType: parts[1]}, true
}

// --- Scalar properties ---

// BoolProp is a one-byte boolean property.
type BoolProp struct{ Value bool }

func (p *BoolProp) CTypeName() string { return "Bool" }
func (p *BoolProp) decode(s *bstream.Stream, _ *decodeCtx) error {
	p.Value = s.ReadU8() != 0
	return s.Err()
}
func (p *BoolProp) encode(s *bstream.Stream, _ *encodeCtx) error {
	if p.Value {
		s.WriteU8(1)
	} else {
		s.WriteU8(0)
	}
	return nil
}

// IntProp is a fixed-width integer property, signed or unsigned, at
// one of the declared bit widths (§3 "i8/16/32/64, u8/16/32/64").
type IntProp struct {
	ctypeName string
	bits      int
	signed    bool
	Value     int64
}

func (p *IntProp) CTypeName() string { return p.ctypeName }

func (p *IntProp) decode(s *bstream.Stream, _ *decodeCtx) error {
	switch p.bits {
	case 8:
		if p.signed {
			p.Value = int64(s.ReadI8())
		} else {
			p.Value = int64(s.ReadU8())
		}
	case 16:
		if p.signed {
			p.Value = int64(s.ReadI16())
		} else {
			p.Value = int64(s.ReadU16())
		}
	case 32:
		if p.signed {
			p.Value = int64(s.ReadI32())
		} else {
			p.Value = int64(s.ReadU32())
		}
	case 64:
		if p.signed {
			p.Value = s.ReadI64()
		} else {
			p.Value = int64(s.ReadU64())
		}
	}
	return s.Err()
}

func (p *IntProp) encode(s *bstream.Stream, _ *encodeCtx) error {
	switch p.bits {
	case 8:
		s.WriteU8(uint8(p.Value))
	case 16:
		s.WriteU16(uint16(p.Value))
	case 32:
		s.WriteU32(uint32(p.Value))
	case 64:
		s.WriteU64(uint64(p.Value))
	}
	return nil
}

// FloatProp is a 32-bit IEEE-754 float property.
type FloatProp struct{ Value float32 }

func (p *FloatProp) CTypeName() string { return "Float" }
func (p *FloatProp) decode(s *bstream.Stream, _ *decodeCtx) error {
	p.Value = s.ReadF32()
	return s.Err()
}
func (p *FloatProp) encode(s *bstream.Stream, _ *encodeCtx) error {
	s.WriteF32(p.Value)
	return nil
}

// CNameProp stores its value as a hash only, exactly like
// strpool.GStrID: the name may not be resolvable if it was never
// interned in this process (it prints as the hex placeholder then).
type CNameProp struct{ Value strpool.GStrID }

func (p *CNameProp) CTypeName() string { return "CName" }
func (p *CNameProp) decode(s *bstream.Stream, _ *decodeCtx) error {
	p.Value = strpool.GStrIDFromHash(s.ReadU64())
	return s.Err()
}
func (p *CNameProp) encode(s *bstream.Stream, _ *encodeCtx) error {
	s.WriteU64(p.Value.Hash)
	return nil
}

// NodeRefProp is a length-prefixed literal string, distinct from
// CName in that it carries the characters themselves rather than
// only a hash (§4.8 "complete list": "NodeRef: length-prefixed
// string").
type NodeRefProp struct{ Value string }

func (p *NodeRefProp) CTypeName() string { return "NodeRef" }
func (p *NodeRefProp) decode(s *bstream.Stream, _ *decodeCtx) error {
	n := s.ReadU32()
	if s.Err() != nil {
		return s.Err()
	}
	p.Value = string(s.ReadBytes(int(n)))
	return s.Err()
}
func (p *NodeRefProp) encode(s *bstream.Stream, _ *encodeCtx) error {
	s.WriteU32(uint32(len(p.Value)))
	s.Serialize([]byte(p.Value))
	return nil
}

// TweakDBIDProp carries a tweak database identifier in its packed
// 7-byte wire form (§3, §4.8).
type TweakDBIDProp struct{ Value strpool.TweakDBID }

func (p *TweakDBIDProp) CTypeName() string { return "TweakDBID" }
func (p *TweakDBIDProp) decode(s *bstream.Stream, _ *decodeCtx) error {
	raw := s.ReadBytes(7)
	if s.Err() != nil {
		return s.Err()
	}
	var b [7]byte
	copy(b[:], raw)
	p.Value = strpool.DecodeTweakDBID(b)
	return nil
}
func (p *TweakDBIDProp) encode(s *bstream.Stream, _ *encodeCtx) error {
	b := p.Value.Encode()
	s.Serialize(b[:])
	return nil
}

// GNameProp resolves through the CSystem's local string pool by
// index rather than by hash, the gname<tag> shape the spec
// distinguishes from gstrid<tag> (§3).
type GNameProp struct{ Value strpool.GName }

func (p *GNameProp) CTypeName() string { return "gname" }
func (p *GNameProp) decode(s *bstream.Stream, ctx *decodeCtx) error {
	p.Value = strpool.GNameFromIndex(int32(s.ReadU32()) - 1)
	return s.Err()
}
func (p *GNameProp) encode(s *bstream.Stream, _ *encodeCtx) error {
	s.WriteU32(uint32(p.Value.Index() + 1))
	return nil
}

// String resolves the value through sys's local pool.
func (p *GNameProp) String(sys *CSystem) string { return p.Value.String(sys.strpool) }

// String resolves the value through sys's local pool.
func (p *CNameProp) String(sys *CSystem) string { return p.Value.String(sys.strpool) }

// EnumProp is a named enum member. Its own wire encoding is
// {enum_type_name_idx (u16), member_name_idx (u16)} into the local
// string pool (§4.8 "complete list") — the enum's type name travels
// a second time here, independent of the field record's own
// type_name_idx, so the value is self-describing on its own.
type EnumProp struct {
	enumType string
	Member   strpool.GName
}

func (p *EnumProp) CTypeName() string { return p.enumType }
func (p *EnumProp) decode(s *bstream.Stream, ctx *decodeCtx) error {
	typeIdx := s.ReadU16()
	memberIdx := s.ReadU16()
	if s.Err() != nil {
		return s.Err()
	}
	if name, ok := ctx.sys.strpool.StrOf(int32(typeIdx)); ok {
		p.enumType = name
	}
	p.Member = strpool.GNameFromIndex(int32(memberIdx))
	return nil
}
func (p *EnumProp) encode(s *bstream.Stream, ctx *encodeCtx) error {
	_, typeIdx, err := ctx.sys.strpool.Register(p.enumType)
	if err != nil {
		return err
	}
	s.WriteU16(uint16(typeIdx))
	s.WriteU16(uint16(p.Member.Index()))
	return nil
}

// MemberName resolves the enum member through sys's local pool.
func (p *EnumProp) MemberName(sys *CSystem) string { return p.Member.String(sys.strpool) }

// HandleProp is a 1-based index into the owning CSystem's object
// table; 0 denotes null (§3 "Handle"). weak mirrors the original's
// vestigial strong/weak distinction, which design notes say carries
// no behavioral difference at decode time (§9).
type HandleProp struct {
	ctypeName  string
	targetType string
	weak       bool

	Index    uint32
	Resolved *Object
}

func (p *HandleProp) CTypeName() string { return p.ctypeName }
func (p *HandleProp) decode(s *bstream.Stream, _ *decodeCtx) error {
	p.Index = s.ReadU32()
	return s.Err()
}
func (p *HandleProp) encode(s *bstream.Stream, _ *encodeCtx) error {
	s.WriteU32(p.Index)
	return nil
}

// IsNull reports whether the handle is the null handle (index 0).
func (p *HandleProp) IsNull() bool { return p.Index == 0 }

// ArrayProp is a homogeneous array-of-property, either dynamic
// ("array:T", count on the wire) or static ("static:N:T", count
// fixed by the declared type, §3 "static array").
type ArrayProp struct {
	ctypeName   string
	elemType    string
	static      bool
	staticCount int

	Elems []Property
}

func (p *ArrayProp) CTypeName() string { return p.ctypeName }

func (p *ArrayProp) decode(s *bstream.Stream, ctx *decodeCtx) error {
	n := p.staticCount
	if !p.static {
		n = int(s.ReadU32())
	}
	if s.Err() != nil {
		return s.Err()
	}
	p.Elems = make([]Property, n)
	for i := 0; i < n; i++ {
		elem := newProperty(p.elemType, ctx)
		if err := elem.decode(s, ctx); err != nil {
			return err
		}
		p.Elems[i] = elem
	}
	return nil
}

func (p *ArrayProp) encode(s *bstream.Stream, ctx *encodeCtx) error {
	if !p.static {
		s.WriteU32(uint32(len(p.Elems)))
	}
	for _, elem := range p.Elems {
		if err := elem.encode(s, ctx); err != nil {
			return err
		}
	}
	return nil
}

// ObjectProp is a nested object: recursive field encoding inline,
// not a handle into the system's object table (§3 "Nested object").
type ObjectProp struct {
	ctypeName string
	Value     *Object
}

func (p *ObjectProp) CTypeName() string { return p.ctypeName }

func (p *ObjectProp) decode(s *bstream.Stream, ctx *decodeCtx) error {
	bp, _ := ctx.sys.catalog.Blueprint(p.ctypeName)
	obj := &Object{Blueprint: bp, ctypeName: p.ctypeName}
	if err := decodeObjectFields(s, ctx, obj); err != nil {
		return err
	}
	p.Value = obj
	return nil
}

func (p *ObjectProp) encode(s *bstream.Stream, ctx *encodeCtx) error {
	return encodeObjectFields(s, ctx, p.Value)
}

// UnknownProp (CUnknownProperty) preserves a field's raw payload
// bytes verbatim when its declared type isn't recognized, so
// re-encoding without the right blueprint is still byte-identical
// (§3, §7, §8 "Loading a save when the blueprint catalog is empty").
type UnknownProp struct {
	ctypeName string
	Raw       []byte
}

func (p *UnknownProp) CTypeName() string { return p.ctypeName }
func (p *UnknownProp) decode(*bstream.Stream, *decodeCtx) error { return nil }
func (p *UnknownProp) encode(s *bstream.Stream, _ *encodeCtx) error {
	s.Serialize(p.Raw)
	return nil
}
