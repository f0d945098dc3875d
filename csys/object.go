// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package csys

import (
	"github.com/redxtools/radrkit/csys/catalog"
	"github.com/redxtools/radrkit/internal/bstream"
	"github.com/redxtools/radrkit/internal/strpool"
)

// Object is a decoded instance of a CObjectBP blueprint (§3 "CSYS
// object"). FieldOrder preserves on-disk declaration order so
// re-encoding reproduces the original field sequence exactly, even
// for fields the blueprint no longer declares.
type Object struct {
	Blueprint *catalog.Blueprint // nil when the catalog doesn't recognize ctypeName
	ctypeName string
	handleID  uint32

	Fields     map[string]Property
	FieldOrder []string
}

// CTypeName reports the object's resolved type name, or "<unknown>"
// when no blueprint was found for it (§8 scenario 6: "every object
// reporting ctypename = <unknown>").
func (o *Object) CTypeName() string {
	if o.Blueprint == nil {
		return "<unknown>"
	}
	return o.ctypeName
}

// fieldNameBias lets the on-disk field-name index use 0 as the
// field-record terminator (§4.8 "field records terminated by
// field-name-index 0") without reserving pool index 0, which a real
// field name could otherwise legitimately occupy: every name index on
// the wire is the pool index plus one, the same 1-based convention
// handles already use for their own null sentinel. type_name_idx has
// no such sentinel need (the terminator is detected on name_idx
// alone), so it travels as a direct, unbiased pool index.
const fieldNameBias = 1

// fieldRecordHeaderSize is the on-disk size of one field record's
// fixed header: {field_name_idx, type_name_idx, next_field_offset},
// three u16 words (§4.8).
const fieldRecordHeaderSize = 6

// decodeObjectFields reads field records until the terminator
// (name-index 0). Each record's type_name_idx, resolved through the
// system's string pool, names the field's on-disk type directly — the
// wire is self-describing, so no per-field blueprint lookup is
// needed to know how to decode the bytes. The one exception is an
// object whose own ctypename the catalog never recognized
// (obj.Blueprint == nil): every one of its fields degrades to raw
// CUnknownProperty preservation — under the wire's own declared type
// name, so re-encode still registers the same type_name_idx — even
// when that type would otherwise resolve cleanly, matching "every
// object reporting ctypename = <unknown>" also reporting every field
// stored raw (§8 scenario 6). A recognized object's field whose type
// can't be resolved, or whose decode doesn't consume exactly the
// bytes next_field_offset promises it, is likewise preserved as
// CUnknownProperty instead (§4.8 step 3, §7 "Format error").
//
// next_field_offset is the byte offset, measured from the start of
// this object's field-record area, of the position immediately after
// this field's value — i.e. where the next record begins. A reader
// that doesn't understand a field's type can skip straight to it
// without decoding the value at all (§4.8 "an implementer can skip
// unknown fields by seeking to next_field_offset").
func decodeObjectFields(s *bstream.Stream, ctx *decodeCtx, obj *Object) error {
	obj.Fields = make(map[string]Property)
	var pos uint16
	for {
		rawIdx := s.ReadU16()
		if s.Err() != nil {
			return s.Err()
		}
		if rawIdx == 0 {
			break
		}
		typeIdx := s.ReadU16()
		nextOffset := s.ReadU16()
		if s.Err() != nil {
			return s.Err()
		}
		pos += fieldRecordHeaderSize
		if nextOffset < pos {
			return newIntegrityErrorf("field record next_field_offset %d precedes record end %d", nextOffset, pos)
		}
		payload := s.ReadBytes(int(nextOffset - pos))
		if s.Err() != nil {
			return s.Err()
		}
		pos = nextOffset

		nameIdx := int32(rawIdx) - fieldNameBias
		name := strpool.GNameFromIndex(nameIdx).String(ctx.sys.strpool)
		declaredType, _ := ctx.sys.strpool.StrOf(int32(typeIdx))

		var prop Property
		if obj.Blueprint == nil {
			// The object's own type wasn't recognized, so nothing
			// downstream can meaningfully consume a decoded value —
			// preserve the raw bytes under the wire's own declared
			// type name (not just "<unknown>") so the type_name_idx
			// registered on re-encode still matches the original.
			prop = &UnknownProp{ctypeName: declaredType, Raw: payload}
		} else {
			prop = decodeFieldPayload(ctx, declaredType, payload)
		}

		obj.Fields[name] = prop
		obj.FieldOrder = append(obj.FieldOrder, name)
	}
	return nil
}

// decodeFieldPayload decodes payload as declaredType in an isolated
// sub-stream; any failure to resolve the type or fully consume the
// bytes falls back to raw preservation rather than surfacing a
// decode error, since an unmodeled field must never block the rest
// of the object from loading (§7 "the subsystem runs in degraded
// mode").
func decodeFieldPayload(ctx *decodeCtx, declaredType string, payload []byte) Property {
	if declaredType == "" {
		return &UnknownProp{ctypeName: "<unknown>", Raw: payload}
	}
	prop := newProperty(declaredType, ctx)
	if _, isUnknown := prop.(*UnknownProp); isUnknown {
		return &UnknownProp{ctypeName: declaredType, Raw: payload}
	}

	sub := bstream.NewReader(payload)
	if err := prop.decode(sub, ctx); err != nil || sub.Tell() != len(payload) {
		return &UnknownProp{ctypeName: declaredType, Raw: payload}
	}
	return prop
}

// encodeObjectFields mirrors decodeObjectFields: each field's value
// is written to a scratch buffer first so its exact length is known
// before next_field_offset is emitted (§4.8 "a two-pass over each
// object writes payload first to a scratch buffer so next_field_offset
// values are exact").
func encodeObjectFields(s *bstream.Stream, ctx *encodeCtx, obj *Object) error {
	type encodedField struct {
		nameIdx int32
		typeIdx int32
		value   []byte
	}

	fields := make([]encodedField, 0, len(obj.FieldOrder))
	for _, name := range obj.FieldOrder {
		prop := obj.Fields[name]

		scratch := bstream.NewWriter()
		if err := prop.encode(scratch, ctx); err != nil {
			return err
		}

		_, nameIdx, err := ctx.sys.strpool.Register(name)
		if err != nil {
			return err
		}
		_, typeIdx, err := ctx.sys.strpool.Register(prop.CTypeName())
		if err != nil {
			return err
		}
		fields = append(fields, encodedField{nameIdx: nameIdx, typeIdx: typeIdx, value: scratch.Bytes()})
	}

	var pos uint16
	for _, f := range fields {
		nextOffset := pos + fieldRecordHeaderSize + uint16(len(f.value))
		s.WriteU16(uint16(f.nameIdx) + fieldNameBias)
		s.WriteU16(uint16(f.typeIdx))
		s.WriteU16(nextOffset)
		s.Serialize(f.value)
		pos = nextOffset
	}
	s.WriteU16(0)
	return nil
}
