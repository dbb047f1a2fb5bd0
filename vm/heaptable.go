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

// heapTable is a fixed-capacity, open-addressed address->value table:
// Context's heap. Unlike a Go map, get/set never allocate and never call
// into the runtime's map machinery, so they are safe to reach from the
// NOSPLIT helper path a running JIT function calls back into (see
// Context.store/Context.retrieve and the stack-growth-safety note in
// program.go). The price is a capacity fixed at construction: set reports
// false once the table is full rather than growing.
type heapTable struct {
	keys []Number
	vals []Number
	used []bool
	n    int
}

// newHeapTable allocates a table sized for roughly hint entries at a load
// factor no worse than one half, rounded up to a power of two so probing
// can mask instead of mod.
func newHeapTable(hint int) *heapTable {
	size := 16
	for size < hint*2 {
		size <<= 1
	}
	return &heapTable{
		keys: make([]Number, size),
		vals: make([]Number, size),
		used: make([]bool, size),
	}
}

// hash spreads k's bits across the table via a fixed-point multiply-xor
// mix (Murmur3's finalizer), then masks to the table size.
//
//go:nosplit
func (h *heapTable) hash(k Number) int {
	u := uint64(k)
	u ^= u >> 33
	u *= 0xff51afd7ed558ccd
	u ^= u >> 33
	u *= 0xc4ceb9fe1a85ec53
	u ^= u >> 33
	return int(u) & (len(h.used) - 1)
}

// get returns the value stored at k and whether it was ever set.
//
//go:nosplit
func (h *heapTable) get(k Number) (Number, bool) {
	mask := len(h.used) - 1
	i := h.hash(k)
	for probes := 0; probes <= mask; probes++ {
		if !h.used[i] {
			return 0, false
		}
		if h.keys[i] == k {
			return h.vals[i], true
		}
		i = (i + 1) & mask
	}
	return 0, false
}

// set records heap[k] = v, reporting false (without writing) if the table
// is full and k is not already present — the caller must treat this as a
// capacity-exceeded condition, not retry with a bigger table, since
// growing here would mean allocating from the NOSPLIT helper path.
//
//go:nosplit
func (h *heapTable) set(k, v Number) bool {
	mask := len(h.used) - 1
	i := h.hash(k)
	for probes := 0; probes <= mask; probes++ {
		if !h.used[i] || h.keys[i] == k {
			if !h.used[i] {
				if h.n*2 >= len(h.used) {
					return false
				}
				h.n++
				h.used[i] = true
			}
			h.keys[i] = k
			h.vals[i] = v
			return true
		}
		i = (i + 1) & mask
	}
	return false
}
