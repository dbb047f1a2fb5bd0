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
	"io"
	"strconv"
	"strings"
)

// The methods in this file are the seven runtime helpers emitted call-sites
// invoke (vm/emitter.go, vm/trampoline_amd64.s). Per spec.md §4.5/§9 none
// of them may panic or otherwise unwind: a StackUnderflow, HeapMiss or
// CapacityExceeded condition is buffered via Context.record (except read's
// full-heap case, which read logs directly) and answered with a zero
// sentinel instead, since a panic crossing back into raw machine code has
// no handler to catch it.
//
// pushStack/popStack/peekStack/store/retrieve additionally never allocate
// and never call anything that can: the operand stack and heap are
// fixed-capacity (see context.go), so push/store never grow them, and
// record only touches a preallocated array. That is what lets them carry
// //go:nosplit and stay safe to reach from the trampolines while the
// calling goroutine may have raw JIT frames beneath them (see the
// stack-growth-safety note on Executable.Run in program.go). print/read
// perform real I/O and cannot be made NOSPLIT; Run mitigates their risk
// separately by priming the goroutine's stack before entering JIT code.

// pushStack pushes n and returns it, so the emitted call-site chaining
// pattern (push then immediately re-read via RAX) works without a second
// helper call. Pushing past the stack's fixed capacity is a
// CapacityExceeded condition: the value is dropped rather than grown into.
//
//go:nosplit
func (c *Context) pushStack(n Number) Number {
	if len(c.stack) >= cap(c.stack) {
		c.record(diagCapacityExceeded, Number(cap(c.stack)))
		return n
	}
	c.stack = c.stack[:len(c.stack)+1]
	c.stack[len(c.stack)-1] = n
	return n
}

// popStack pops and returns the top of the stack, or records a
// StackUnderflow and returns 0 if the stack is empty.
//
//go:nosplit
func (c *Context) popStack() Number {
	if len(c.stack) == 0 {
		c.record(diagStackUnderflow, 0)
		return 0
	}
	n := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return n
}

// peekStack returns the k'th element from the top (0 = top) without
// removing it, or records a StackUnderflow and returns 0 if k is out of
// range.
//
//go:nosplit
func (c *Context) peekStack(k Number) Number {
	idx := len(c.stack) - 1 - int(k)
	if idx < 0 || idx >= len(c.stack) {
		c.record(diagStackUnderflow, k)
		return 0
	}
	return c.stack[idx]
}

// store pops the value then the address (in that order, per spec.md §4.2)
// and records heap[address] = value. A full heap table is a
// CapacityExceeded condition: the write is dropped.
//
//go:nosplit
func (c *Context) store() {
	if len(c.stack) < 2 {
		c.record(diagStackUnderflow, 0)
		c.stack = c.stack[:0]
		return
	}
	value := c.stack[len(c.stack)-1]
	address := c.stack[len(c.stack)-2]
	c.stack = c.stack[:len(c.stack)-2]
	if !c.heap.set(address, value) {
		c.record(diagCapacityExceeded, Number(len(c.heap.used)))
	}
}

// retrieve pops the address and returns the heap value stored there,
// recording a HeapMiss and returning 0 if the address was never stored.
// Emit pushes this return value back onto the stack itself; retrieve does
// not touch the stack beyond popping the address.
//
//go:nosplit
func (c *Context) retrieve() Number {
	if len(c.stack) < 1 {
		c.record(diagStackUnderflow, 0)
		return 0
	}
	address := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	v, ok := c.heap.get(address)
	if !ok {
		c.record(diagHeapMiss, address)
		return 0
	}
	return v
}

// print peeks (does not pop) the top of the stack and writes it to stdout:
// as a single byte if isChar, or as a decimal integer otherwise. This
// resolves the peek-vs-pop ambiguity noted in spec.md §9 in favor of peek.
func (c *Context) print(isChar bool) {
	n := c.peekStack(0)
	var err error
	if isChar {
		_, err = c.stdout.Write([]byte{byte(n)})
	} else {
		_, err = io.WriteString(c.stdout, strconv.FormatInt(n, 10))
	}
	if err != nil {
		c.log.WithError(err).Error("wsjit: io failure writing output")
	}
}

// read pops the heap address off the top of the stack, reads one line from
// stdin, and stores the parsed value at that address. For isChar, the
// value is the line's first byte (0 if the line was empty); otherwise the
// line is parsed as a base-10 signed integer. A full heap table is logged
// directly (read is already not NOSPLIT, unlike store, so there is no
// benefit to routing this through the diagnostic ring buffer).
func (c *Context) read(isChar bool) {
	address := c.popStack()

	line, err := c.stdin.ReadString('\n')
	if err != nil && line == "" {
		c.log.WithError(err).Error("wsjit: io failure reading input")
		return
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	var value Number
	if isChar {
		if len(line) > 0 {
			value = Number(line[0])
		}
	} else {
		value, err = strconv.ParseInt(line, 10, 64)
		if err != nil {
			c.log.WithError(err).WithField("line", line).Error("wsjit: io failure parsing number")
			value = 0
		}
	}
	if !c.heap.set(address, value) {
		c.log.WithField("capacity", Number(len(c.heap.used))).Warn("wsjit: stack or heap capacity exceeded")
	}
}
