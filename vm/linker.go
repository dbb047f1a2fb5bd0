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

import "github.com/pkg/errors"

// UnresolvedLabel is returned when a relocation references a label that was
// never defined with Mark.
type UnresolvedLabel struct {
	Name Label
}

func (e *UnresolvedLabel) Error() string {
	return "wsjit: unresolved label " + string(e.Name)
}

// DuplicateLabel is returned when Mark defines the same label more than
// once.
type DuplicateLabel struct {
	Name Label
}

func (e *DuplicateLabel) Error() string {
	return "wsjit: duplicate label " + string(e.Name)
}

// Link resolves every Reloc in emission against its Defs, patching the
// 32-bit signed displacement into emission.Buf. It is idempotent: calling
// it again on the same emission with no new relocations added is a no-op,
// since every relocation site is recomputed from scratch rather than
// accumulated.
func Link(emission *Emission) error {
	defs := make(map[Label]int, len(emission.Defs))
	for _, d := range emission.Defs {
		if _, dup := defs[d.Name]; dup {
			return errors.WithStack(&DuplicateLabel{Name: d.Name})
		}
		defs[d.Name] = d.Offset
	}

	for _, r := range emission.Relocs {
		target, ok := defs[r.Target]
		if !ok {
			return errors.WithStack(&UnresolvedLabel{Name: r.Target})
		}
		// Displacement is relative to the byte following the 4-byte
		// displacement field (spec.md §4.3).
		disp := int64(target) - int64(r.Offset+4)
		if disp > int64(int32(1<<31-1)) || disp < int64(int32(-1<<31)) {
			return errors.Errorf("wsjit: relocation to %q at offset %d overflows 32 bits (disp=%d)", r.Target, r.Offset, disp)
		}
		emission.Buf.PatchUint32(r.Offset, uint32(int32(disp)))
	}
	if emission.Buf.Err != nil {
		return errors.WithStack(emission.Buf.Err)
	}
	return nil
}
