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
	"bufio"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const defaultHeapCapacityHint = 64
const defaultStackCapacity = 1 << 16 // 65536 Numbers (512KiB on amd64)

// Option configures a Context at construction time.
type Option func(*Context) error

// Stdin replaces the Context's input source. Programs that never execute a
// read instruction never touch it.
func Stdin(r io.Reader) Option {
	return func(c *Context) error { c.stdin = bufio.NewReader(r); return nil }
}

// Stdout redirects the Context's output sink. Useful for tests that assert
// on captured bytes instead of the process's real stdout.
func Stdout(w io.Writer) Option {
	return func(c *Context) error { c.stdout = w; return nil }
}

// HeapCapacityHint fixes the heap's capacity: the heap is a fixed-size
// open-addressed table (see heaptable.go), not a Go map, so Store never
// allocates mid-run. n is rounded up internally to keep the table at most
// half full. Exceeding the resulting capacity is a logged, non-fatal
// CapacityExceeded condition (spec.md §7 treats it the same as a
// StackUnderflow or HeapMiss: a diagnostic, not a panic).
func HeapCapacityHint(n int) Option {
	return func(c *Context) error {
		if n < 0 {
			n = 0
		}
		c.heap = newHeapTable(n)
		return nil
	}
}

// StackCapacityHint fixes the operand stack's capacity at construction.
// Like the heap, the stack never reallocates during a run: Push beyond
// this capacity is a logged CapacityExceeded condition rather than a
// silent grow, so the helper that performs it stays allocation-free (see
// the stack-growth-safety note on Executable.Run in program.go). n below 1
// is clamped to 1.
func StackCapacityHint(n int) Option {
	return func(c *Context) error {
		if n < 1 {
			n = 1
		}
		c.stack = make([]Number, 0, n)
		return nil
	}
}

// Logger sets the logger runtime helpers report StackUnderflow, HeapMiss
// and IOFailure conditions to (spec.md §7). A nil logger is replaced with
// logrus's standard logger; passing this option lets a caller silence
// diagnostics or route them somewhere other than logrus's default stderr
// output.
func Logger(l *logrus.Logger) Option {
	return func(c *Context) error { c.log = l; return nil }
}

// diagRingSize bounds how many unreported diagnostic events Context.record
// can buffer during a single Run before the oldest is overwritten. Sized
// generously for a single Whitespace program's worth of StackUnderflow/
// HeapMiss/IOFailure/CapacityExceeded conditions; overflowing it only means
// the oldest events are dropped; it never blocks or allocates.
const diagRingSize = 256

// diagKind identifies a runtime helper's non-fatal diagnostic condition
// (spec.md §7).
type diagKind uint8

const (
	diagStackUnderflow diagKind = iota
	diagHeapMiss
	diagCapacityExceeded
)

// diagEvent is one buffered diagnostic: a kind plus whatever single Number
// gives it context (the stack offset, the heap address, the capacity).
type diagEvent struct {
	kind  diagKind
	value Number
}

// Context is the mutable state a compiled program runs against: the
// operand stack, the heap, and its I/O sinks. It is never process-global;
// every emitted call-site receives a specific Context's address, so
// multiple programs (or multiple test cases) can run independently.
//
// stack and heap are fixed-capacity for the duration of a Run (see
// StackCapacityHint/HeapCapacityHint and the stack-growth-safety note on
// Executable.Run in program.go): the helpers that mutate them during a
// run never call append past capacity or touch Go's map runtime, so they
// stay NOSPLIT-safe. StackUnderflow/HeapMiss/CapacityExceeded conditions
// are buffered into diag during the run and reported through log only
// once Run returns.
type Context struct {
	stack []Number
	heap  *heapTable

	stdin  *bufio.Reader
	stdout io.Writer

	log *logrus.Logger

	diag      [diagRingSize]diagEvent
	diagHead  int
	diagCount int
}

// New constructs a Context. With no options, stdin/stdout default to the
// process's own, the stack and heap start at their default fixed
// capacities, and diagnostics go to logrus's standard logger.
func New(opts ...Option) (*Context, error) {
	c := &Context{
		stdin:  bufio.NewReader(os.Stdin),
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.heap == nil {
		c.heap = newHeapTable(defaultHeapCapacityHint)
	}
	if c.stack == nil {
		c.stack = make([]Number, 0, defaultStackCapacity)
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	return c, nil
}

// Stack returns the operand stack, bottom-first. The returned slice aliases
// the Context's own storage; callers must treat it as read-only.
func (c *Context) Stack() []Number {
	return c.stack
}

// Heap returns the heap's key/value pairs as a fresh map snapshot.
func (c *Context) Heap() map[Number]Number {
	snap := make(map[Number]Number, c.heap.n)
	for i, used := range c.heap.used {
		if used {
			snap[c.heap.keys[i]] = c.heap.vals[i]
		}
	}
	return snap
}

// record buffers a diagnostic event without allocating or calling into
// log: it is invoked from helpers.go's NOSPLIT path, potentially while raw
// JIT frames sit below it on the stack, so it must itself stay
// allocation-free. drainDiagnostics (called after Run returns) is what
// actually logs these.
//
//go:nosplit
func (c *Context) record(kind diagKind, value Number) {
	c.diag[c.diagHead] = diagEvent{kind: kind, value: value}
	c.diagHead = (c.diagHead + 1) % diagRingSize
	if c.diagCount < diagRingSize {
		c.diagCount++
	}
}

// drainDiagnostics logs every event record buffered since the last drain,
// oldest first, then empties the buffer. Safe to call only once back on
// an ordinary Go stack (see Executable.Run); it calls into logrus, which
// is not NOSPLIT-safe.
func (c *Context) drainDiagnostics() {
	start := c.diagHead - c.diagCount
	for i := 0; i < c.diagCount; i++ {
		idx := ((start+i)%diagRingSize + diagRingSize) % diagRingSize
		e := c.diag[idx]
		switch e.kind {
		case diagStackUnderflow:
			c.log.WithField("k", e.value).Warn("wsjit: stack underflow")
		case diagHeapMiss:
			c.log.WithField("address", e.value).Warn("wsjit: heap miss on retrieve")
		case diagCapacityExceeded:
			c.log.WithField("capacity", e.value).Warn("wsjit: stack or heap capacity exceeded")
		}
	}
	c.diagCount = 0
}
