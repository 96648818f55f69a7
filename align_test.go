// Copyright 2026 The rmem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rmem

import "testing"

func TestRoundup(t *testing.T) {
	tab := []struct{ n, m, e uintptr }{
		{0, 8, 0},
		{1, 8, 8},
		{7, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{1, 16, 16},
		{17, 16, 32},
	}
	for _, v := range tab {
		if g := roundup(v.n, v.m); g != v.e {
			t.Fatalf("roundup(%v, %v) = %v, want %v", v.n, v.m, g, v.e)
		}
	}
}

func TestInRange(t *testing.T) {
	if !inRange(5, 0, 10) {
		t.Fatal("5 should be in [0,10)")
	}
	if inRange(10, 0, 10) {
		t.Fatal("10 should not be in [0,10), half-open range")
	}
	if inRange(0, 5, 10) {
		t.Fatal("0 should not be in [5,10)")
	}
}

func TestBufferOwnedRelease(t *testing.T) {
	b := acquireOwned(64)
	if !b.owned {
		t.Fatal("expected owned buffer")
	}
	if b.base == 0 {
		t.Fatal("expected non-zero base for a non-empty owned buffer")
	}
	if b.size != 64 {
		t.Fatalf("size = %v, want 64", b.size)
	}
	b.release()
	if b.base != 0 || b.size != 0 || b.mem != nil {
		t.Fatalf("release did not zero state: %+v", b)
	}
	b.release() // idempotent
}

func TestBufferBorrowedRelease(t *testing.T) {
	mem := make([]byte, 32)
	b := acquireBorrowed(mem)
	if b.owned {
		t.Fatal("expected borrowed buffer")
	}
	b.release()
	if len(mem) != 32 {
		t.Fatal("release must not touch the caller's slice")
	}
}

func TestBufferZeroSize(t *testing.T) {
	b := acquireOwned(0)
	if b.base != 0 {
		t.Fatalf("zero-size owned buffer should have a zero base, got %v", b.base)
	}
	b2 := acquireBorrowed(nil)
	if b2.base != 0 {
		t.Fatalf("nil borrowed buffer should have a zero base, got %v", b2.base)
	}
}
