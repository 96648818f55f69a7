// Copyright 2026 The rmem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rmem implements three buffer-backed memory allocators for
// constrained or performance-sensitive settings: a variable-size pool
// (segregated free lists over a bump arena), a fixed-size pool (an
// intrusive free list over uniform cells), and a double-ended stack
// (two bump pointers growing toward each other).
//
// Each allocator owns or borrows exactly one contiguous []byte buffer,
// hands out blocks as plain []byte slices, and never touches the Go
// allocator again after construction. None of the three are safe for
// concurrent use; callers sharing an instance across goroutines must
// supply their own mutual exclusion around every method, including the
// read-only ones (FreeSpace, Margins).
//
// A block returned by one allocator must never be passed to another.
package rmem
