// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package csav

import (
	"github.com/redxtools/radrkit/csys"
	"github.com/redxtools/radrkit/csys/catalog"
	"github.com/redxtools/radrkit/internal/bstream"
)

// GenericSystem wraps a CSystem with nothing else attached: the shape
// StatPoolsSystem and any unrecognized-but-decodable node use
// (grounded on original_source's redx/csav/nodes/generic_system.h and
// nodes/StatPoolsSystem.h, both of which are a thin node_reader/
// node_writer shell around one CSystem).
type GenericSystem struct {
	System *csys.CSystem
}

// DecodeGenericSystem parses a node payload that is nothing but one
// CSYS object graph end to end.
func DecodeGenericSystem(payload []byte, cat *catalog.Catalog) (*GenericSystem, error) {
	sys, err := csys.Decode(payload, cat)
	if err != nil {
		return nil, err
	}
	return &GenericSystem{System: sys}, nil
}

// Encode re-serializes the wrapped system.
func (g *GenericSystem) Encode() ([]byte, error) {
	return g.System.Encode()
}

// PSData is the "PSData" node: a CSystem followed by a trailing list
// of loose CName hashes the original keeps outside the object graph
// proper (§4.9; grounded on original_source's
// Source/csav/cnodes/CPSData.hpp, whose from_node_impl reads the
// system then `cnt` raw CNames after it).
type PSData struct {
	System        *csys.CSystem
	TrailingNames []uint64 // raw CName hashes, not pool-resolved
}

// DecodePSData parses a "PSData" node payload.
func DecodePSData(payload []byte, cat *catalog.Catalog) (*PSData, error) {
	s := bstream.NewReader(payload)
	sys, err := csys.DecodeStream(s, cat)
	if err != nil {
		return nil, err
	}

	cnt := s.ReadU32()
	if s.Err() != nil {
		return nil, s.Err()
	}
	names := make([]uint64, cnt)
	for i := range names {
		names[i] = s.ReadU64()
	}
	if s.Err() != nil {
		return nil, s.Err()
	}
	if s.Tell() != len(payload) {
		return nil, csys.ErrTrailingBytes
	}
	return &PSData{System: sys, TrailingNames: names}, nil
}

// Encode re-serializes the system followed by its trailing names.
func (p *PSData) Encode() ([]byte, error) {
	sysBlob, err := p.System.Encode()
	if err != nil {
		return nil, err
	}
	s := bstream.NewWriter()
	s.Serialize(sysBlob)
	s.WriteU32(uint32(len(p.TrailingNames)))
	for _, n := range p.TrailingNames {
		s.WriteU64(n)
	}
	return s.Bytes(), nil
}
