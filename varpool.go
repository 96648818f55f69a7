// Copyright 2026 The rmem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rmem

import (
	"fmt"
	"os"
	"unsafe"
)

const (
	// varBucketCount is B from spec §3.3: the number of fixed-granularity
	// size-class free lists. The spec allows 8, 12 or 16; 12 is the
	// default chosen here.
	varBucketCount = 12
)

// varHeader precedes every VarPool block, live or free. size is the
// total block size in bytes, header included.
type varHeader struct {
	size uintptr
}

// varLink occupies the first two words of a block's payload while it
// sits on a free list. It is only meaningful for free blocks; a live
// block's caller owns those bytes.
type varLink struct {
	next, prev uintptr
}

var (
	varHeaderSize  = roundup(unsafe.Sizeof(varHeader{}), platformAlign)
	varLinkSize    = 2 * wordSize
	varMinBlock    = varHeaderSize + varLinkSize
	varGranularity = varMinBlock
	varLargeBound  = varGranularity * varBucketCount
)

// varFreeList is a doubly linked chain of block headers, per spec §3.2.
type varFreeList struct {
	head, tail uintptr
	length     int
}

// varLinkAt returns the free-list link embedded in the block at addr.
func varLinkAt(addr uintptr) *varLink {
	return (*varLink)(unsafe.Pointer(addr + varHeaderSize))
}

// varHeaderAt returns the header of the block at addr.
func varHeaderAt(addr uintptr) *varHeader {
	return (*varHeader)(unsafe.Pointer(addr))
}

func (l *varFreeList) pushFront(addr uintptr) {
	lk := varLinkAt(addr)
	lk.prev = 0
	lk.next = l.head
	if l.head != 0 {
		varLinkAt(l.head).prev = addr
	} else {
		l.tail = addr
	}
	l.head = addr
	l.length++
}

func (l *varFreeList) unlink(addr uintptr) {
	lk := varLinkAt(addr)
	switch {
	case lk.prev == 0 && lk.next == 0:
		l.head, l.tail = 0, 0
	case lk.prev == 0:
		l.head = lk.next
		varLinkAt(lk.next).prev = 0
	case lk.next == 0:
		l.tail = lk.prev
		varLinkAt(lk.prev).next = 0
	default:
		varLinkAt(lk.prev).next = lk.next
		varLinkAt(lk.next).prev = lk.prev
	}
	l.length--
}

// popExact removes and returns the first block of exactly size s,
// or 0 if none exists.
func (l *varFreeList) popExact(s uintptr) uintptr {
	for n := l.head; n != 0; n = varLinkAt(n).next {
		if varHeaderAt(n).size == s {
			l.unlink(n)
			return n
		}
	}
	return 0
}

// popFirstFitAtLeast removes and returns the first block whose size is
// >= s, taken whole (no split), or 0 if none exists.
func (l *varFreeList) popFirstFitAtLeast(s uintptr) uintptr {
	for n := l.head; n != 0; n = varLinkAt(n).next {
		if varHeaderAt(n).size >= s {
			l.unlink(n)
			return n
		}
	}
	return 0
}

// sumSizes adds up the total (header-included) size of every block on
// the list.
func (l *varFreeList) sumSizes() uintptr {
	var total uintptr
	for n := l.head; n != 0; n = varLinkAt(n).next {
		total += varHeaderAt(n).size
	}
	return total
}

// VarPool is a hybrid segregated-free-list plus bump-arena allocator
// for requests of arbitrary size. See spec §3.3 and §4.1.
type VarPool struct {
	buf     buffer
	cursor  uintptr // top of the untouched bump region, counts down toward base
	buckets [varBucketCount]varFreeList
	large   varFreeList
}

// varInitialCursor returns the top of buf's bump region, rounded down to
// a platformAlign boundary. Every block the bump path carves is a
// multiple of platformAlign below this point, so the block (and its
// payload) stays base-consistent with addrOfBlock's alignment check even
// when buf.size itself isn't a multiple of platformAlign. A buffer too
// small to hold one minimum-size block gets an empty bump region, so such
// a pool reports zero capacity and zero free space.
func varInitialCursor(buf buffer) uintptr {
	usable := buf.size &^ (platformAlign - 1)
	if usable < varMinBlock {
		usable = 0
	}
	return buf.base + usable
}

// NewVarPool creates a VarPool owning a freshly allocated buffer of
// capacity bytes.
func NewVarPool(capacity int) *VarPool {
	p := &VarPool{buf: acquireOwned(capacity)}
	p.cursor = varInitialCursor(p.buf)
	return p
}

// NewVarPoolFromBuffer creates a VarPool over a caller-supplied buffer.
// The caller retains ownership and must not touch buf while the pool is
// alive. Leading bytes of buf before its first platformAlign boundary are
// left unused, so every payload address is platformAlign-aligned.
func NewVarPoolFromBuffer(buf []byte) *VarPool {
	if pad := int(-addrOfSlice(buf) & (platformAlign - 1)); pad > 0 {
		buf = buf[min(pad, len(buf)):]
	}
	p := &VarPool{buf: acquireBorrowed(buf)}
	p.cursor = varInitialCursor(p.buf)
	return p
}

// Destroy releases the pool's buffer, if owned, and zeroes its state.
func (p *VarPool) Destroy() {
	p.buf.release()
	p.cursor = 0
	p.buckets = [varBucketCount]varFreeList{}
	p.large = varFreeList{}
}

// Capacity returns the usable size of the pool in bytes: the backing
// buffer's size (after any unaligned leading bytes skipped by
// NewVarPoolFromBuffer) rounded down to a platformAlign boundary. A buffer
// whose length isn't already a multiple of platformAlign leaves a few
// trailing bytes permanently outside the bump region (see
// varInitialCursor); those bytes are never part of any block and so are
// excluded here, keeping Capacity and FreeSpace on the same footing. A
// buffer too small to hold one minimum-size block has a Capacity of 0.
func (p *VarPool) Capacity() int { return int(varInitialCursor(p.buf) - p.buf.base) }

func varBucket(p *VarPool, s uintptr) *varFreeList {
	if s > varLargeBound {
		return &p.large
	}
	k := int(s/varGranularity) - 1
	if k < 0 {
		k = 0
	}
	if k >= varBucketCount {
		k = varBucketCount - 1
	}
	return &p.buckets[k]
}

func varBlockSize(n int) uintptr {
	s := uintptr(n) + varHeaderSize
	s = roundup(s, platformAlign)
	if s < varMinBlock {
		s = varMinBlock
	}
	return s
}

// varPayload returns the n user-visible bytes of the block at addr
// (whose total size, header included, is blockSize) as a slice whose
// capacity spans the whole payload region. Keeping cap > 0 even when
// n == 0 ensures the slice's backing pointer is always recoverable via
// unsafe.SliceData, which unsafe.Slice does not otherwise guarantee for
// a zero-length result.
func varPayload(addr, blockSize uintptr, n int) []byte {
	payloadCap := int(blockSize - varHeaderSize)
	full := unsafe.Slice((*byte)(unsafe.Pointer(addr+varHeaderSize)), payloadCap)
	return full[:n:payloadCap]
}

func varZeroPayload(addr, blockSize uintptr, n int) []byte {
	b := varPayload(addr, blockSize, n)
	for i := range b {
		b[i] = 0
	}
	return b
}

// Alloc returns a zeroed block of at least n bytes, aligned to the
// platform word, or nil if no satisfying block exists.
func (p *VarPool) Alloc(n int) (r []byte) {
	if trace {
		defer func() {
			fmt.Fprintf(os.Stderr, "VarPool.Alloc(%#x) %p\n", n, unsafe.SliceData(r))
		}()
	}

	if n < 0 {
		panic("rmem: negative VarPool.Alloc size")
	}

	s := varBlockSize(n)
	list := varBucket(p, s)
	large := list == &p.large

	if addr := list.popExact(s); addr != 0 {
		return varZeroPayload(addr, varHeaderAt(addr).size, n)
	}

	if p.cursor-p.buf.base >= s {
		addr := p.cursor - s
		p.cursor = addr
		varHeaderAt(addr).size = s
		return varZeroPayload(addr, s, n)
	}

	if large {
		if addr := p.large.popFirstFitAtLeast(s); addr != 0 {
			return varZeroPayload(addr, varHeaderAt(addr).size, n)
		}
	}

	return nil
}

// addrOfBlock recovers the header address of a block previously handed
// out by Alloc/Realloc, validating that it lies within the buffer and
// is correctly aligned. Returns 0 for a pointer that should be silently
// ignored (nil, foreign, misaligned, or out of range).
func (p *VarPool) addrOfBlock(b []byte) uintptr {
	data := unsafe.SliceData(b)
	if data == nil {
		return 0
	}
	addr := uintptr(unsafe.Pointer(data)) - varHeaderSize
	lo, hi := p.buf.base, p.buf.base+p.buf.size
	if !inRange(addr, lo, hi) || addr+varHeaderSize > hi {
		return 0
	}
	if (addr-lo)%platformAlign != 0 {
		return 0
	}
	return addr
}

// Free returns b's block to the appropriate free list. A nil slice or a
// slice outside the buffer is silently ignored.
func (p *VarPool) Free(b []byte) {
	if trace {
		defer fmt.Fprintf(os.Stderr, "VarPool.Free(%p)\n", unsafe.SliceData(b))
	}

	addr := p.addrOfBlock(b)
	if addr == 0 {
		return
	}
	s := varHeaderAt(addr).size
	varBucket(p, s).pushFront(addr)
}

// Cleanup frees *b and sets *b to nil.
func (p *VarPool) Cleanup(b *[]byte) {
	p.Free(*b)
	*b = nil
}

// Realloc resizes b to n bytes, preserving bytes [0, min(old, n)). A nil
// b is equivalent to Alloc(n). On failure b remains valid and nil is
// returned.
func (p *VarPool) Realloc(b []byte, n int) []byte {
	if b == nil {
		return p.Alloc(n)
	}

	addr := p.addrOfBlock(b)
	if addr == 0 {
		return nil
	}

	oldBlockSize := varHeaderAt(addr).size
	newBlockSize := varBlockSize(n)
	if newBlockSize <= oldBlockSize {
		return varPayload(addr, oldBlockSize, n)
	}

	newB := p.Alloc(n)
	if newB == nil {
		return nil
	}

	copy(newB, b) // copy copies min(len(newB), len(b)) bytes
	p.Free(b)
	return newB
}

// Reset empties every free list, restores the bump cursor to its
// initial position, and zeroes the buffer.
func (p *VarPool) Reset() {
	p.buckets = [varBucketCount]varFreeList{}
	p.large = varFreeList{}
	p.cursor = varInitialCursor(p.buf)
	for i := range p.buf.mem {
		p.buf.mem[i] = 0
	}
}

// FreeSpace returns the bump region size plus the header-included size
// of every free-listed block.
func (p *VarPool) FreeSpace() int {
	total := p.cursor - p.buf.base
	for i := range p.buckets {
		total += p.buckets[i].sumSizes()
	}
	total += p.large.sumSizes()
	return int(total)
}
