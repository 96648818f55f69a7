// Copyright 2026 The rmem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rmem

import (
	"runtime"
	"unsafe"
)

// trace gates Fprintf-based tracing of allocation calls. It is always
// false in a normal build; flip it locally when chasing a bug.
const trace = false

// wordSize is the platform's native pointer width in bytes.
const wordSize = unsafe.Sizeof(uintptr(0))

// maxAlign is a struct wide enough that its alignment equals the
// strictest alignment of any scalar the platform cares about, mirroring
// C's max_align_t. platformAlign is used to round block and cell
// boundaries so that a payload pointer is always safely usable for any
// built-in scalar type.
type maxAlign struct {
	_ uint64
	_ float64
	_ unsafe.Pointer
}

const platformAlign = unsafe.Alignof(maxAlign{})

// roundup rounds n up to the next multiple of m, m must be a power of 2.
func roundup(n, m uintptr) uintptr {
	return (n + m - 1) &^ (m - 1)
}

// inRange reports whether p lies in the half-open range [lo, hi).
func inRange(p, lo, hi uintptr) bool {
	return p >= lo && p < hi
}

// buffer is the shared acquisition/release primitive embedded by all
// three allocators. In owning mode the backing array comes from the
// host allocation facility (make, for a hosted Go program) and is
// released by simply dropping the reference, letting the garbage
// collector reclaim it. In borrowing mode the caller-supplied slice is
// only referenced, never freed.
type buffer struct {
	mem   []byte
	owned bool
	base  uintptr
	size  uintptr
}

// acquireOwned allocates and zero-initializes a new owned buffer of the
// given size. A non-positive size yields a valid, empty buffer: every
// allocator built on top of it degrades to always-fails, per spec.
func acquireOwned(size int) buffer {
	if size < 0 {
		size = 0
	}
	mem := make([]byte, size)
	b := buffer{mem: mem, owned: true, size: uintptr(size)}
	if size > 0 {
		b.base = uintptr(unsafe.Pointer(&mem[0]))
	}
	return b
}

// acquireBorrowed wraps a caller-supplied buffer without taking
// ownership of its lifetime.
func acquireBorrowed(mem []byte) buffer {
	b := buffer{mem: mem, owned: false, size: uintptr(len(mem))}
	if len(mem) > 0 {
		b.base = uintptr(unsafe.Pointer(&mem[0]))
	}
	return b
}

// release tears down the buffer. For an owned buffer this drops the
// only reference keeping the backing array alive; for a borrowed one it
// is a no-op beyond zeroing this struct. release is idempotent and safe
// to call more than once, matching spec's "use after destroy / double
// destroy" guidance.
func (b *buffer) release() {
	if b.mem != nil {
		runtime.KeepAlive(b.mem)
	}
	*b = buffer{}
}

// addrOfSlice returns the address of b's backing array, or 0 for a
// slice with no backing storage.
func addrOfSlice(b []byte) uintptr {
	data := unsafe.SliceData(b)
	if data == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(data))
}
