// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package strpool implements the interned-name registries shared
// across a pool "category tag": immutable-once-registered strings
// with a stable FNV1a-64 hash and a stable integer index, safe for
// concurrent registration and lookup.
package strpool

import (
	"fmt"
	"sync"

	"github.com/redxtools/radrkit/internal/rhash"
)

// Tag is a compile-time category label separating interned-name
// universes (NAME, PATH, TDBID, FACT, ...).
type Tag uint32

const (
	TagName  Tag = 1
	TagPath  Tag = 2
	TagTDBID Tag = 3
	TagFact  Tag = 4
)

// ErrHashCollision is a fatal integrity error: two distinct strings
// hashed to the same 64-bit value within one pool.
type ErrHashCollision struct {
	Hash     uint64
	Existing string
	New      string
}

func (e *ErrHashCollision) Error() string {
	return fmt.Sprintf("strpool: hash collision at %#x between %q and %q",
		e.Hash, e.Existing, e.New)
}

// Pool is one interned-name universe. Storage is an append-only
// []string so indices are stable for the lifetime of the pool;
// writers serialize against a single mutex while readers never block
// on each other, matching the teacher's read-mostly singleton shape
// (the stream/options layer in pe.File is built once and read freely
// afterwards) generalized to a registry that keeps growing during
// decode.
type Pool struct {
	tag Tag

	mu     sync.RWMutex
	strs   []string
	byHash map[uint64]int32
}

// New creates an empty pool for the given category tag.
func New(tag Tag) *Pool {
	return &Pool{tag: tag, byHash: make(map[uint64]int32)}
}

// Tag returns the pool's category tag.
func (p *Pool) Tag() Tag { return p.tag }

// Register interns s, returning its hash and stable index. Calling
// Register again with the same string is idempotent and returns the
// same pair. A different string that happens to hash to an
// already-registered value is a fatal integrity error.
func (p *Pool) Register(s string) (uint64, int32, error) {
	h := rhash.FNV1a64String(s)

	p.mu.RLock()
	if idx, ok := p.byHash[h]; ok {
		existing := p.strs[idx]
		p.mu.RUnlock()
		if existing != s {
			return 0, 0, &ErrHashCollision{Hash: h, Existing: existing, New: s}
		}
		return h, idx, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	// Re-check under the write lock: another goroutine may have
	// registered the same (or colliding) string meanwhile.
	if idx, ok := p.byHash[h]; ok {
		existing := p.strs[idx]
		if existing != s {
			return 0, 0, &ErrHashCollision{Hash: h, Existing: existing, New: s}
		}
		return h, idx, nil
	}

	idx := int32(len(p.strs))
	p.strs = append(p.strs, s)
	p.byHash[h] = idx
	return h, idx, nil
}

// FindByHash looks up a registered string by its FNV1a-64 hash.
func (p *Pool) FindByHash(h uint64) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	idx, ok := p.byHash[h]
	if !ok {
		return "", false
	}
	return p.strs[idx], true
}

// StrOf returns the string at idx.
func (p *Pool) StrOf(idx int32) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if idx < 0 || int(idx) >= len(p.strs) {
		return "", false
	}
	return p.strs[idx], true
}

// HashOf returns the hash of the string at idx.
func (p *Pool) HashOf(idx int32) (uint64, bool) {
	s, ok := p.StrOf(idx)
	if !ok {
		return 0, false
	}
	return rhash.FNV1a64String(s), true
}

// Len returns the number of interned strings.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.strs)
}

// SeedFrom registers every string in strs, in order, as the
// startup path feeds JSON-sourced name lists into the pool (spec
// §4.2). Errors (hash collisions) abort the seed at the first
// failure; already-registered entries remain registered.
func (p *Pool) SeedFrom(strs []string) error {
	for _, s := range strs {
		if _, _, err := p.Register(s); err != nil {
			return err
		}
	}
	return nil
}
