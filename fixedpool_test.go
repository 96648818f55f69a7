// Copyright 2026 The rmem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rmem

import (
	"math"
	"testing"

	"modernc.org/mathutil"
)

// S4 FixedPool cycle.
func TestFixedPoolCycle(t *testing.T) {
	p := NewFixedPool(16, 4)
	defer p.Destroy()

	a := p.Alloc()
	b := p.Alloc()
	c := p.Alloc()
	d := p.Alloc()
	if a == nil || b == nil || c == nil || d == nil {
		t.Fatal("four allocs from a 4-cell pool should all succeed")
	}
	if e := p.Alloc(); e != nil {
		t.Fatal("fifth alloc should fail: pool exhausted")
	}

	bAddr := addrOfSlice(b)
	p.Free(b)
	next := p.Alloc()
	if addrOfSlice(next) != bAddr {
		t.Fatal("alloc after free should reuse the freed cell")
	}
}

func TestFixedPoolPartition(t *testing.T) {
	p := NewFixedPool(16, 8)
	defer p.Destroy()

	var live [][]byte
	for i := 0; i < 5; i++ {
		live = append(live, p.Alloc())
	}
	p.Free(live[1])
	p.Free(live[3])

	freed := 2
	untouched := p.CellCount() - 5
	if p.FreeCount() != freed+untouched {
		t.Fatalf("free count = %v, want %v", p.FreeCount(), freed+untouched)
	}
}

func TestFixedPoolFreeIgnoresInvalid(t *testing.T) {
	p := NewFixedPool(16, 4)
	defer p.Destroy()

	p.Free(nil)
	p.Free(make([]byte, 16)) // foreign slice
	if p.FreeCount() != 4 {
		t.Fatalf("free count = %v, want 4 (no-ops should not change state)", p.FreeCount())
	}
}

func TestFixedPoolCellSizeFloor(t *testing.T) {
	p := NewFixedPool(1, 4) // smaller than a pointer
	defer p.Destroy()

	if p.CellSize() < int(wordSize) {
		t.Fatalf("cell size %v must be >= pointer size %v", p.CellSize(), wordSize)
	}
}

func TestFixedPoolBorrowedBuffer(t *testing.T) {
	mem := make([]byte, 64)
	p := NewFixedPoolFromBuffer(mem, 16)
	defer p.Destroy()

	if p.CellCount() != 4 {
		t.Fatalf("cell count = %v, want 4", p.CellCount())
	}
}

// TestFixedPoolOddBufferAlignment covers a borrowed buffer whose length
// isn't a multiple of the cell size (spec §3.6): the tail remainder must
// simply go unused, and every cell carved from the front must still
// round-trip through Alloc/Free/Alloc.
func TestFixedPoolOddBufferAlignment(t *testing.T) {
	mem := make([]byte, 100)
	p := NewFixedPoolFromBuffer(mem, 24) // 100 / 24 = 4 cells, 4 bytes unused
	defer p.Destroy()

	if p.CellCount() != 4 {
		t.Fatalf("cell count = %v, want 4", p.CellCount())
	}

	b := p.Alloc()
	if b == nil {
		t.Fatal("alloc over an odd-length borrowed buffer should succeed")
	}
	addr := addrOfSlice(b)
	p.Free(b)
	if p.FreeCount() != p.CellCount() {
		t.Fatalf("free count = %v, want %v after freeing everything", p.FreeCount(), p.CellCount())
	}

	q := p.Alloc()
	if addrOfSlice(q) != addr {
		t.Fatal("alloc after free should reuse the freed cell")
	}
}

func TestFixedPoolDegenerateZeroCount(t *testing.T) {
	p := NewFixedPool(16, 0)
	defer p.Destroy()

	if b := p.Alloc(); b != nil {
		t.Fatal("alloc on a zero-cell pool should fail")
	}
}

func TestFixedPoolSoak(t *testing.T) {
	const cellSize, count = 24, 256
	p := NewFixedPool(cellSize, count)
	defer p.Destroy()

	rng, err := mathutil.NewFC32(0, math.MaxInt32, true)
	if err != nil {
		t.Fatal(err)
	}
	rng.Seed(7)

	live := map[uintptr][]byte{}
	for i := 0; i < count*3; i++ {
		if rng.Next()%3 == 0 && len(live) > 0 {
			for k, v := range live {
				p.Free(v)
				delete(live, k)
				break
			}
			continue
		}
		b := p.Alloc()
		if b == nil {
			continue
		}
		live[addrOfSlice(b)] = b
	}

	if p.FreeCount()+len(live) != p.CellCount() {
		t.Fatalf("partition violated: free=%v live=%v cellCount=%v", p.FreeCount(), len(live), p.CellCount())
	}
}
