// Copyright 2026 The rmem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rmem

import (
	"fmt"
	"os"
	"unsafe"
)

// FixedPool is a free-list allocator over cells of one fixed size
// carved from a single buffer. See spec §3.4 and §4.2.
type FixedPool struct {
	buf       buffer
	cellSize  uintptr
	cellCount int
	freeCount int
	freedHead uintptr // 0 = empty
	nextFresh uintptr
	end       uintptr
}

// fixedCellSize enforces the invariant cellSize >= sizeof(pointer),
// rounded so that every cell boundary stays word-aligned.
func fixedCellSize(objSize int) uintptr {
	if objSize < 0 {
		objSize = 0
	}
	s := uintptr(objSize)
	if s < wordSize {
		s = wordSize
	}
	return roundup(s, wordSize)
}

// NewFixedPool creates a FixedPool owning a freshly allocated buffer
// sized to hold count cells of objSize bytes each.
func NewFixedPool(objSize, count int) *FixedPool {
	cellSize := fixedCellSize(objSize)
	if count < 0 {
		count = 0
	}
	capacity := int(cellSize) * count
	p := &FixedPool{
		buf:       acquireOwned(capacity),
		cellSize:  cellSize,
		cellCount: count,
		freeCount: count,
	}
	p.nextFresh = p.buf.base
	p.end = p.buf.base + uintptr(count)*cellSize
	return p
}

// NewFixedPoolFromBuffer creates a FixedPool over a caller-supplied
// buffer, carving as many cells from it as fit. Each cell is objSize
// rounded up to a multiple of the pointer size, and at least one pointer
// wide.
func NewFixedPoolFromBuffer(buf []byte, objSize int) *FixedPool {
	cellSize := fixedCellSize(objSize)
	b := acquireBorrowed(buf)
	count := 0
	if cellSize > 0 {
		count = int(b.size / cellSize)
	}
	p := &FixedPool{
		buf:       b,
		cellSize:  cellSize,
		cellCount: count,
		freeCount: count,
	}
	p.nextFresh = p.buf.base
	p.end = p.buf.base + uintptr(count)*cellSize
	return p
}

// Destroy releases the pool's buffer, if owned, and zeroes its state.
func (p *FixedPool) Destroy() {
	p.buf.release()
	*p = FixedPool{}
}

// CellSize returns the size in bytes of one cell.
func (p *FixedPool) CellSize() int { return int(p.cellSize) }

// CellCount returns the total number of cells the pool was built with.
func (p *FixedPool) CellCount() int { return p.cellCount }

// FreeCount returns the number of cells currently available to Alloc:
// those on the freed chain plus those in the untouched tail region.
func (p *FixedPool) FreeCount() int { return p.freeCount }

// Alloc returns one cell-sized block with undefined contents, or nil if
// every cell is in use.
func (p *FixedPool) Alloc() (r []byte) {
	if trace {
		defer func() {
			fmt.Fprintf(os.Stderr, "FixedPool.Alloc() %p\n", unsafe.SliceData(r))
		}()
	}

	var addr uintptr
	switch {
	case p.freedHead != 0:
		addr = p.freedHead
		p.freedHead = *(*uintptr)(unsafe.Pointer(addr))
	case p.nextFresh < p.end:
		addr = p.nextFresh
		p.nextFresh += p.cellSize
	default:
		return nil
	}
	p.freeCount--
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), p.cellSize)
}

// Free pushes p's cell onto the intrusive free chain. A nil slice, or
// one outside the buffer or misaligned to a cell boundary, is silently
// ignored.
func (p *FixedPool) Free(cell []byte) {
	if trace {
		defer fmt.Fprintf(os.Stderr, "FixedPool.Free(%p)\n", unsafe.SliceData(cell))
	}

	data := unsafe.SliceData(cell)
	if data == nil {
		return
	}
	addr := uintptr(unsafe.Pointer(data))
	if !inRange(addr, p.buf.base, p.end) {
		return
	}
	if (addr-p.buf.base)%p.cellSize != 0 {
		return
	}
	*(*uintptr)(unsafe.Pointer(addr)) = p.freedHead
	p.freedHead = addr
	p.freeCount++
}

// Cleanup frees *cell and sets *cell to nil.
func (p *FixedPool) Cleanup(cell *[]byte) {
	p.Free(*cell)
	*cell = nil
}
