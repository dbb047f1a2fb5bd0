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

package vm_test

import (
	"testing"

	"wsjit/vm"
)

func TestLinkResolvesForwardReference(t *testing.T) {
	prog := vm.Program{
		vm.Jump("loop"),
		vm.Mark("loop"),
		vm.Exit,
	}
	emission := vm.Emit(prog, vm.HelperAddrs{})
	if err := vm.Link(emission); err != nil {
		t.Fatal(err)
	}
}

func TestLinkResolvesBackwardReference(t *testing.T) {
	prog := vm.Program{
		vm.Mark("top"),
		vm.Push(1),
		vm.Jump("top"),
	}
	emission := vm.Emit(prog, vm.HelperAddrs{})
	if err := vm.Link(emission); err != nil {
		t.Fatal(err)
	}
}

func TestLinkUnresolvedLabelIsError(t *testing.T) {
	prog := vm.Program{vm.Jump("nowhere")}
	emission := vm.Emit(prog, vm.HelperAddrs{})
	err := vm.Link(emission)
	if err == nil {
		t.Fatal("expected an error for a jump to an undefined label")
	}
	var target *vm.UnresolvedLabel
	if !asUnresolvedLabel(err, &target) {
		t.Fatalf("got error %v, want *vm.UnresolvedLabel", err)
	}
	if target.Name != "nowhere" {
		t.Fatalf("UnresolvedLabel.Name = %q, want %q", target.Name, "nowhere")
	}
}

func TestLinkDuplicateLabelIsError(t *testing.T) {
	prog := vm.Program{
		vm.Mark("x"),
		vm.Mark("x"),
	}
	emission := vm.Emit(prog, vm.HelperAddrs{})
	err := vm.Link(emission)
	if err == nil {
		t.Fatal("expected an error for a label defined twice")
	}
	var dup *vm.DuplicateLabel
	if !asDuplicateLabel(err, &dup) {
		t.Fatalf("got error %v, want *vm.DuplicateLabel", err)
	}
	if dup.Name != "x" {
		t.Fatalf("DuplicateLabel.Name = %q, want %q", dup.Name, "x")
	}
}

func TestLinkIsIdempotentOnAlreadyLinkedEmission(t *testing.T) {
	prog := vm.Program{
		vm.Jump("end"),
		vm.Mark("end"),
		vm.Exit,
	}
	emission := vm.Emit(prog, vm.HelperAddrs{})
	if err := vm.Link(emission); err != nil {
		t.Fatal(err)
	}
	before := append([]byte{}, emission.Buf.Bytes()...)

	if err := vm.Link(emission); err != nil {
		t.Fatal(err)
	}
	after := emission.Buf.Bytes()

	if len(before) != len(after) {
		t.Fatalf("relinking changed buffer length: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("relinking changed byte %d: %#x -> %#x", i, before[i], after[i])
		}
	}
}

// errors.As would also work here, but these two helpers keep the assertions
// next to the cases that use them without importing errors.As machinery for
// just two call sites.
func asUnresolvedLabel(err error, target **vm.UnresolvedLabel) bool {
	type causer interface{ Cause() error }
	for err != nil {
		if ul, ok := err.(*vm.UnresolvedLabel); ok {
			*target = ul
			return true
		}
		c, ok := err.(causer)
		if !ok {
			return false
		}
		err = c.Cause()
	}
	return false
}

func asDuplicateLabel(err error, target **vm.DuplicateLabel) bool {
	type causer interface{ Cause() error }
	for err != nil {
		if dl, ok := err.(*vm.DuplicateLabel); ok {
			*target = dl
			return true
		}
		c, ok := err.(causer)
		if !ok {
			return false
		}
		err = c.Cause()
	}
	return false
}
