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
	"reflect"
	"unsafe"
)

// The emitted function calls back into the Go runtime through a small set
// of hand-written assembly trampolines (trampoline_amd64.s). Emitted code
// is itself raw machine code invoked with the Context pointer and an
// optional second argument in RDI/RSI, System V style, via a plain `call`
// instruction — there is no Go stack frame on the way in. Each trampoline
// below re-lays those two registers out as a Go ABI0 stack frame, calls an
// ordinary Go function (the compiler and linker automatically synthesize
// the ABI0↔register-ABI adapter for any function referenced by name from
// assembly), copies the Number result back into AX — already where System V
// expects a return value — and returns straight to the emitted code's call
// site.
//
// Declared with no body; defined in trampoline_amd64.s.
func pushStackTrampoline()
func popStackTrampoline()
func peekStackTrampoline()
func storeTrampoline()
func retrieveTrampoline()
func printTrampoline()
func readTrampoline()

// callPushStack, et al. are the plain Go functions the trampolines invoke.
// They exist only so the trampolines have a Go-ABI0-reachable symbol to
// CALL; all real behavior lives on Context in helpers.go. The first five
// are //go:nosplit, matching the Context methods they forward to — see
// the stack-growth-safety note on Executable.Run in program.go.
//
//go:nosplit
func callPushStack(ctx *Context, n Number) Number { return ctx.pushStack(n) }

//go:nosplit
func callPopStack(ctx *Context) Number { return ctx.popStack() }

//go:nosplit
func callPeekStack(ctx *Context, k Number) Number { return ctx.peekStack(k) }

//go:nosplit
func callStore(ctx *Context) { ctx.store() }

//go:nosplit
func callRetrieve(ctx *Context) Number { return ctx.retrieve() }

func callPrint(ctx *Context, isChar int64) { ctx.print(isChar != 0) }
func callRead(ctx *Context, isChar int64)  { ctx.read(isChar != 0) }

// funcAddr returns the entry address of a top-level, non-closure Go
// function, suitable for baking into an emitted call-site. reflect.Value's
// Pointer method documents this as valid for a func value; it is not valid
// for closures, which these trampolines are not.
func funcAddr(fn interface{}) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// helperAddrsFor builds the HelperAddrs Emit needs to bake call-sites
// against ctx: one absolute address per runtime helper trampoline, plus
// ctx's own address.
//
// The returned address is only valid while ctx is kept alive by a live Go
// reference for the duration of execution: emitted code holds it as a raw
// immediate, invisible to the garbage collector's stack/register scan, so
// Run must keep ctx referenced on its own Go stack frame for the whole
// call.
func helperAddrsFor(ctx *Context) HelperAddrs {
	return HelperAddrs{
		Ctx:       uintptr(unsafe.Pointer(ctx)),
		PushStack: funcAddr(pushStackTrampoline),
		PopStack:  funcAddr(popStackTrampoline),
		PeekStack: funcAddr(peekStackTrampoline),
		Store:     funcAddr(storeTrampoline),
		Retrieve:  funcAddr(retrieveTrampoline),
		Print:     funcAddr(printTrampoline),
		Read:      funcAddr(readTrampoline),
	}
}
