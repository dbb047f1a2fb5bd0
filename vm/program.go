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
	"runtime"

	"github.com/pkg/errors"
)

// Executable is a compiled Whitespace program: a single frozen, callable
// machine-code function tied to the Context it was compiled against
// (spec.md §4.2 bakes the Context's address into every call-site, so one
// Executable cannot be replayed against a different Context — Compile
// again if a fresh run is needed).
type Executable struct {
	prog Program
	fn   *JitFunction
	ctx  *Context
}

// Compile parses src, emits it as x86-64 machine code addressed at ctx,
// links every label reference, and freezes the result into executable
// memory. The returned Executable's Run method is ready to call.
func Compile(src []byte, ctx *Context) (*Executable, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, errors.Wrap(err, "wsjit: parse")
	}

	emission := Emit(prog, helperAddrsFor(ctx))
	if err := Link(emission); err != nil {
		return nil, errors.Wrap(err, "wsjit: link")
	}

	mem, err := NewJitMemory(PageCount(emission.Buf.Len()))
	if err != nil {
		return nil, errors.Wrap(err, "wsjit: allocate executable memory")
	}
	mem.WriteAt(0, emission.Buf.Bytes())

	fn, err := mem.Freeze()
	if err != nil {
		return nil, errors.Wrap(err, "wsjit: freeze executable memory")
	}

	return &Executable{prog: prog, fn: fn, ctx: ctx}, nil
}

// Program returns the parsed instruction list this Executable was compiled
// from, for disassembly and diagnostics.
func (e *Executable) Program() Program { return e.prog }

// stackPrimeDepth is how deep primeStack recurses before Run enters JIT
// code. Each frame is a little over 256 bytes, so this forces on the
// order of a megabyte of goroutine stack to be committed up front.
const stackPrimeDepth = 4096

// primeStack forces the Go runtime's ordinary (safe) stack-growth path to
// commit stackPrimeDepth frames' worth of goroutine stack before Run calls
// into JIT code. See the stack-growth-safety note on Run: once raw JIT
// frames are interleaved with the runtime helper calls the JIT code makes,
// the goroutine stack can no longer be safely grown/copied out from under
// them, so Run arranges for there to already be ample headroom that the
// short, bounded helper call chains those invoke will never approach.
// go:noinline keeps the compiler from collapsing the recursion away; the
// xor against buf keeps it from proving the call dead.
//
//go:noinline
func primeStack(n int) byte {
	var buf [256]byte
	buf[0] = byte(n)
	if n <= 0 {
		return buf[0]
	}
	return buf[0] ^ primeStack(n-1)
}

// Run invokes the compiled function once, synchronously, on the calling
// goroutine. Per spec.md §5 the generated code is raw machine code with no
// Go stack frame of its own; LockOSThread pins it to one OS thread for the
// call so the Go scheduler cannot migrate or asynchronously preempt it
// mid-flight the way it would an ordinary goroutine.
//
// Stack-growth safety: the JIT call chain runs raw machine-code frames
// interleaved with ordinary Go helper calls (vm/trampoline_amd64.s ->
// helpers.go). The Go runtime's stack-growth machinery (morestack) can
// only safely copy a goroutine's stack when every frame on it has a stack
// map; the raw JIT frames have none. The stack/heap-touching helpers
// (push/pop/peek/store/retrieve) are written to never allocate and are
// //go:nosplit, so they can never trigger morestack in the first place.
// print/read perform real I/O and cannot be made NOSPLIT; for those, Run
// primes the goroutine's stack to a generous depth first, via the
// runtime's normal (safe, no-raw-frames-yet) growth path, so that by the
// time JIT frames are live there is enough headroom that the short,
// bounded call chains those two helpers make will not approach the
// stack's low-water mark and trigger morestack during the unsafe window.
func (e *Executable) Run() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	primeStack(stackPrimeDepth)
	e.fn.Execute()
	// e.ctx's address was baked into the machine code as a raw immediate,
	// invisible to the garbage collector; keep it reachable until Execute
	// returns.
	runtime.KeepAlive(e.ctx)
	e.ctx.drainDiagnostics()
	return nil
}

// Release unmaps the Executable's code pages. The Executable must not be
// used afterward.
func (e *Executable) Release() error {
	return e.fn.Release()
}
