// This file is part of wsjit.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vm

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// BufferOverflow is panicked by JitMemory's bounds-checked indexing; the
// spec treats an out-of-range access as a programmer error, not a
// recoverable one.
type BufferOverflow struct {
	Index, Size int
}

func (e *BufferOverflow) Error() string {
	return errors.Errorf("wsjit: index %d out of bounds for JitMemory of size %d", e.Index, e.Size).Error()
}

var pageSize = os.Getpagesize()

// JitMemory is num_pages*page_size of anonymous memory, currently
// read-write, addressable byte-by-byte. It starts filled with 0xCC (int3)
// so that jumping into or executing past unemitted bytes traps immediately
// instead of running garbage, the same defensive fill the Rust wspace
// ancestor (zrneely/wspace, src/jit.rs) uses.
type JitMemory struct {
	mem  []byte // mmap'd region, backed by unix.Mmap
	used int    // bytes written so far, for diagnostics only
}

// NewJitMemory allocates numPages (minimum 1) pages of RW anonymous memory.
func NewJitMemory(numPages int) (*JitMemory, error) {
	if numPages < 1 {
		numPages = 1
	}
	size := numPages * pageSize
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrap(err, "wsjit: mmap executable memory")
	}
	for i := range mem {
		mem[i] = 0xCC
	}
	return &JitMemory{mem: mem}, nil
}

// Size returns the total allocated size in bytes (a multiple of the page
// size).
func (m *JitMemory) Size() int { return len(m.mem) }

// At returns the byte at i, panicking with *BufferOverflow if out of range.
func (m *JitMemory) At(i int) byte {
	if i < 0 || i >= len(m.mem) {
		panic(&BufferOverflow{Index: i, Size: len(m.mem)})
	}
	return m.mem[i]
}

// WriteAt copies code into the memory starting at offset, panicking with
// *BufferOverflow if it would run past the end.
func (m *JitMemory) WriteAt(offset int, code []byte) {
	if offset < 0 || offset+len(code) > len(m.mem) {
		panic(&BufferOverflow{Index: offset + len(code), Size: len(m.mem)})
	}
	n := copy(m.mem[offset:], code)
	if offset+n > m.used {
		m.used = offset + n
	}
}

// Freeze transitions the pages to read-execute (dropping write) and
// returns a callable JitFunction. The JitMemory must not be used again
// after Freeze; Thaw on the resulting JitFunction produces a fresh
// JitMemory instead.
func (m *JitMemory) Freeze() (*JitFunction, error) {
	if err := unix.Mprotect(m.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return nil, errors.Wrap(err, "wsjit: mprotect RX")
	}
	return &JitFunction{mem: m.mem}, nil
}

// PageCount returns ceil(codeLength/pageSize), minimum 1.
func PageCount(codeLength int) int {
	if codeLength <= 0 {
		return 1
	}
	n := (codeLength + pageSize - 1) / pageSize
	if n < 1 {
		n = 1
	}
	return n
}

// JitFunction is a frozen (read-execute) code page, callable as a 0-ary
// function returning int64 (spec.md §4.2: "return register is undefined",
// so the int64 result is not meaningful on its own but the signature must
// match what the generated function actually is: no arguments, one
// machine word returned in RAX on ordinary x86-64 return).
type JitFunction struct {
	mem []byte
}

// callAsm is implemented in callasm_amd64.s: it loads addr into a register
// and issues a plain `call`, returning whatever ends up in AX. It is the
// Go-into-machine-code half of the ABI crossing; trampoline_amd64.s is the
// machine-code-into-Go half.
func callAsm(addr uintptr) int64

// Execute calls into the frozen machine code. The caller is responsible
// for ensuring the calling goroutine's OS thread is locked for the
// duration (see Executable.Run): the called code runs on the current Go
// stack and must not be preempted mid-flight the way ordinary Go code can
// be.
func (f *JitFunction) Execute() int64 {
	return callAsm(uintptr(unsafe.Pointer(&f.mem[0])))
}

// Thaw transitions the pages back to read-write, returning a JitMemory
// that can be inspected or re-emitted into. Required before any test wants
// to read back or mutate previously frozen code.
func (f *JitFunction) Thaw() (*JitMemory, error) {
	if err := unix.Mprotect(f.mem, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return nil, errors.Wrap(err, "wsjit: mprotect RW")
	}
	return &JitMemory{mem: f.mem}, nil
}

// Release unmaps the underlying pages. Neither JitMemory nor JitFunction
// may be used afterward.
func (f *JitFunction) Release() error {
	return errors.Wrap(unix.Munmap(f.mem), "wsjit: munmap")
}
