// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bstream

import (
	"math"
	"testing"
)

func TestPackedIntRoundTrip(t *testing.T) {
	values := []int64{
		0, 1, -1, 63, -63, 64, -64, 8191, -8191, 8192, -8192,
		1048575, -1048575, 1048576, -1048576,
		math.MaxInt32, math.MinInt32,
	}
	for _, v := range values {
		w := NewWriter()
		w.EncodePackedInt(v)
		if w.Err() != nil {
			t.Fatalf("encode(%d): %v", v, w.Err())
		}
		r := NewReader(w.Bytes())
		got := r.DecodePackedInt()
		if r.Err() != nil {
			t.Fatalf("decode(%d): %v", v, r.Err())
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestPackedIntMinimalSize(t *testing.T) {
	tests := []struct {
		v    int64
		size int
	}{
		{0, 1}, {63, 1}, {-63, 1},
		{64, 2}, {-64, 2}, {8191, 2}, {-8191, 2},
		{8192, 3}, {-8192, 3}, {1048575, 3}, {-1048575, 3},
		{1048576, 4}, {-1048576, 4},
		{math.MaxInt32, 5}, {math.MinInt32, 5},
	}
	for _, tt := range tests {
		if got := PackedIntSize(tt.v); got != tt.size {
			t.Errorf("PackedIntSize(%d) = %d, want %d", tt.v, got, tt.size)
		}
	}
}

func TestStreamStickyError(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	_ = r.ReadBytes(10)
	if r.Err() == nil {
		t.Fatal("expected sticky error after out-of-bounds read")
	}
	// Further reads are no-ops and keep returning zero/nil without panicking.
	if b := r.ReadBytes(1); b != nil {
		t.Errorf("expected nil after sticky error, got %v", b)
	}
}

func TestSeekWhence(t *testing.T) {
	r := NewReader(make([]byte, 10))
	if err := r.Seek(5, Beg); err != nil {
		t.Fatal(err)
	}
	if r.Tell() != 5 {
		t.Fatalf("tell = %d, want 5", r.Tell())
	}
	if err := r.Seek(2, Cur); err != nil {
		t.Fatal(err)
	}
	if r.Tell() != 7 {
		t.Fatalf("tell = %d, want 7", r.Tell())
	}
	if err := r.Seek(-1, End); err != nil {
		t.Fatal(err)
	}
	if r.Tell() != 9 {
		t.Fatalf("tell = %d, want 9", r.Tell())
	}
}

func TestReadWriteScalars(t *testing.T) {
	w := NewWriter()
	w.WriteU8(0xAB)
	w.WriteU16(0x1234)
	w.WriteU32(0xDEADBEEF)
	w.WriteU64(0x0102030405060708)
	w.WriteF32(3.5)

	r := NewReader(w.Bytes())
	if v := r.ReadU8(); v != 0xAB {
		t.Errorf("u8 = %#x", v)
	}
	if v := r.ReadU16(); v != 0x1234 {
		t.Errorf("u16 = %#x", v)
	}
	if v := r.ReadU32(); v != 0xDEADBEEF {
		t.Errorf("u32 = %#x", v)
	}
	if v := r.ReadU64(); v != 0x0102030405060708 {
		t.Errorf("u64 = %#x", v)
	}
	if v := r.ReadF32(); v != 3.5 {
		t.Errorf("f32 = %v", v)
	}
	if r.Err() != nil {
		t.Fatal(r.Err())
	}
}
