// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package strpool

import (
	"errors"
	"sync"
	"testing"

	"github.com/redxtools/radrkit/internal/rhash"
)

func TestRegisterIdempotent(t *testing.T) {
	p := New(TagName)
	h1, i1, err := p.Register("Attachment_Slots")
	if err != nil {
		t.Fatal(err)
	}
	h2, i2, err := p.Register("Attachment_Slots")
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 || i1 != i2 {
		t.Errorf("re-register produced different pair: (%x,%d) vs (%x,%d)", h1, i1, h2, i2)
	}
}

func TestFindByHashAndHashOf(t *testing.T) {
	p := New(TagPath)
	strs := []string{"base\\gameplay\\items.archive", "ep1\\sound\\soundbanks.archive", "a/b/c.txt"}
	for _, s := range strs {
		if _, _, err := p.Register(s); err != nil {
			t.Fatal(err)
		}
	}
	for _, s := range strs {
		h := rhash.FNV1a64String(s)
		got, ok := p.FindByHash(h)
		if !ok || got != s {
			t.Errorf("FindByHash(%q) = (%q, %v), want (%q, true)", s, got, ok, s)
		}
	}
	for idx := 0; idx < p.Len(); idx++ {
		s, _ := p.StrOf(int32(idx))
		h, _ := p.HashOf(int32(idx))
		if rhash.FNV1a64String(s) != h {
			t.Errorf("HashOf(%d) mismatch for %q", idx, s)
		}
	}
}

func TestHashCollisionIsFatal(t *testing.T) {
	p := New(TagFact)
	if _, _, err := p.Register("first"); err != nil {
		t.Fatal(err)
	}
	// Natural FNV1a64 collisions aren't practical to construct in a
	// unit test, so force one by pointing a second string's real hash
	// at the first string's slot.
	secondHash := rhash.FNV1a64String("second")
	p.mu.Lock()
	p.byHash[secondHash] = 0
	p.mu.Unlock()

	_, _, err := p.Register("second")
	if err == nil {
		t.Fatal("expected collision error")
	}
	var collErr *ErrHashCollision
	if !errors.As(err, &collErr) {
		t.Fatalf("expected *ErrHashCollision, got %T: %v", err, err)
	}
}

func TestConcurrentRegister(t *testing.T) {
	p := New(TagName)
	var wg sync.WaitGroup
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, _ = p.Register(names[i%len(names)])
		}(i)
	}
	wg.Wait()
	if p.Len() != len(names) {
		t.Errorf("Len() = %d, want %d", p.Len(), len(names))
	}
}
