// Copyright 2026 The rmem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rmem

import (
	"fmt"
	"os"
	"unsafe"
)

// BiStack is a bump allocator with two monotonic pointers that grow
// from opposite ends of a buffer toward the middle. See spec §3.5 and
// §4.3.
type BiStack struct {
	buf   buffer
	front uintptr
	back  uintptr
}

// NewBiStack creates a BiStack owning a freshly allocated buffer of
// capacity bytes.
func NewBiStack(capacity int) *BiStack {
	s := &BiStack{buf: acquireOwned(capacity)}
	s.front = s.buf.base
	s.back = s.buf.base + s.buf.size
	return s
}

// NewBiStackFromBuffer creates a BiStack over a caller-supplied buffer.
func NewBiStackFromBuffer(buf []byte) *BiStack {
	s := &BiStack{buf: acquireBorrowed(buf)}
	s.front = s.buf.base
	s.back = s.buf.base + s.buf.size
	return s
}

// Destroy releases the stack's buffer, if owned, and zeroes its state.
func (s *BiStack) Destroy() {
	s.buf.release()
	s.front = 0
	s.back = 0
}

// Capacity returns the total size of the backing buffer in bytes.
func (s *BiStack) Capacity() int { return int(s.buf.size) }

// AllocFront bumps the front pointer by n (word-aligned) bytes and
// returns the block, or nil if doing so would cross back. Memory is
// never zeroed.
func (s *BiStack) AllocFront(n int) (r []byte) {
	if trace {
		defer func() {
			fmt.Fprintf(os.Stderr, "BiStack.AllocFront(%#x) %p\n", n, unsafe.SliceData(r))
		}()
	}

	if n < 0 {
		panic("rmem: negative BiStack.AllocFront size")
	}
	an := roundup(uintptr(n), wordSize)
	if an > s.back-s.front {
		return nil
	}
	addr := s.front
	s.front += an
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

// AllocBack bumps the back pointer down by n (word-aligned) bytes and
// returns the block, or nil if doing so would cross front. Memory is
// never zeroed.
func (s *BiStack) AllocBack(n int) (r []byte) {
	if trace {
		defer func() {
			fmt.Fprintf(os.Stderr, "BiStack.AllocBack(%#x) %p\n", n, unsafe.SliceData(r))
		}()
	}

	if n < 0 {
		panic("rmem: negative BiStack.AllocBack size")
	}
	an := roundup(uintptr(n), wordSize)
	if an > s.back-s.front {
		return nil
	}
	s.back -= an
	return unsafe.Slice((*byte)(unsafe.Pointer(s.back)), n)
}

// ResetFront rewinds the front pointer to the start of the buffer.
func (s *BiStack) ResetFront() { s.front = s.buf.base }

// ResetBack rewinds the back pointer to the end of the buffer.
func (s *BiStack) ResetBack() { s.back = s.buf.base + s.buf.size }

// ResetAll rewinds both pointers.
func (s *BiStack) ResetAll() {
	s.ResetFront()
	s.ResetBack()
}

// Margins returns back - front. A non-positive result indicates
// exhaustion.
func (s *BiStack) Margins() int64 {
	return int64(s.back) - int64(s.front)
}
