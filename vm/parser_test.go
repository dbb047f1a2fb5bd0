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
	"reflect"
	"testing"

	"wsjit/vm"
)

// Token aliases, spelled out instead of packed into escape literals, so
// each test's intent reads directly off the token stream instead of
// requiring the reader to count backslashes.
const (
	sp = " "
	tb = "\t"
	nl = "\n"
)

func TestParseStackInstructions(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want vm.Instruction
	}{
		// IMP(sp) + opcode(sp) + number(sign + bits[1,0,1] + nl) = Push(5).
		{"push positive", sp + sp + sp + tb + sp + tb + nl, vm.Push(5)},
		// sign=tb (negative) with the same magnitude bits.
		{"push negative", sp + sp + tb + tb + sp + tb + nl, vm.Push(-5)},
		// magnitude with no bits at all is zero.
		{"push zero", sp + sp + sp + nl, vm.Push(0)},
		// IMP(sp) + opcode(nl sp) = Duplicate.
		{"duplicate", sp + nl + sp, vm.Duplicate},
		// IMP(sp) + opcode(tb sp) + number(zero) = Copy(0).
		{"copy", sp + tb + sp + sp + nl, vm.Copy(0)},
		// IMP(sp) + opcode(nl tb) = Swap.
		{"swap", sp + nl + tb, vm.Swap},
		// IMP(sp) + opcode(nl nl) = Pop.
		{"pop", sp + nl + nl, vm.Pop},
		// IMP(sp) + opcode(tb nl) + number(zero) = Slide(0).
		{"slide", sp + tb + nl + sp + nl, vm.Slide(0)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			prog, err := vm.Parse([]byte(c.src))
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", c.src, err)
			}
			if len(prog) != 1 || prog[0] != c.want {
				t.Fatalf("Parse(%q) = %v, want [%v]", c.src, prog, c.want)
			}
		})
	}
}

func TestParseArithmeticInstructions(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want vm.Instruction
	}{
		// IMP(tb sp) + opcode(sp sp) = Add.
		{"add", tb + sp + sp + sp, vm.Add},
		{"subtract", tb + sp + sp + tb, vm.Subtract},
		{"multiply", tb + sp + sp + nl, vm.Multiply},
		{"divide", tb + sp + tb + sp, vm.Divide},
		{"modulus", tb + sp + tb + tb, vm.Modulus},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			prog, err := vm.Parse([]byte(c.src))
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", c.src, err)
			}
			if len(prog) != 1 || prog[0] != c.want {
				t.Fatalf("Parse(%q) = %v, want [%v]", c.src, prog, c.want)
			}
		})
	}
}

func TestParseHeapInstructions(t *testing.T) {
	// IMP(tb tb) + opcode(sp)=Store, IMP(tb tb) + opcode(tb)=Retrieve.
	src := tb + tb + sp + tb + tb + tb
	prog, err := vm.Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	want := vm.Program{vm.Store, vm.Retrieve}
	if !reflect.DeepEqual(prog, want) {
		t.Fatalf("got %v, want %v", prog, want)
	}
}

func TestParseFlowInstructions(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want vm.Instruction
	}{
		// IMP(nl) + opcode(sp sp) + label("1" + nl) = Mark("1").
		{"mark", nl + sp + sp + tb + nl, vm.Mark("1")},
		{"call", nl + sp + tb + sp + nl, vm.Call("0")},
		{"jump", nl + sp + nl + nl, vm.Jump("")},
		{"jumpzero", nl + tb + sp + nl, vm.JumpZero("")},
		{"jumpnegative", nl + tb + tb + nl, vm.JumpNegative("")},
		{"return", nl + tb + nl, vm.Return},
		{"exit", nl + nl + nl, vm.Exit},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			prog, err := vm.Parse([]byte(c.src))
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", c.src, err)
			}
			if len(prog) != 1 || prog[0] != c.want {
				t.Fatalf("Parse(%q) = %v, want [%v]", c.src, prog, c.want)
			}
		})
	}
}

func TestParseIOInstructions(t *testing.T) {
	// IMP(tb nl) + opcode, for each of OutputChar/OutputNum/ReadChar/ReadNum.
	src := tb + nl + sp + sp +
		tb + nl + sp + tb +
		tb + nl + tb + sp +
		tb + nl + tb + tb
	prog, err := vm.Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	want := vm.Program{vm.OutputChar, vm.OutputNum, vm.ReadChar, vm.ReadNum}
	if !reflect.DeepEqual(prog, want) {
		t.Fatalf("got %v, want %v", prog, want)
	}
}

func TestParseSkipsComments(t *testing.T) {
	// Non-whitespace bytes between/around tokens are comments.
	src := "hello" + sp + sp + sp + tb + sp + tb + nl + "world" + sp + nl + sp + "goodbye"
	prog, err := vm.Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(prog) != 2 || prog[0] != vm.Push(5) || prog[1] != vm.Duplicate {
		t.Fatalf("got %v", prog)
	}
}

func TestParseEmptyProgram(t *testing.T) {
	prog, err := vm.Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog) != 0 {
		t.Fatalf("got %v, want empty", prog)
	}
}

func TestParseEmptyLabelIsValid(t *testing.T) {
	prog, err := vm.Parse([]byte(nl + sp + tb + nl)) // Call("")
	if err != nil {
		t.Fatal(err)
	}
	if len(prog) != 1 || prog[0] != vm.Call("") {
		t.Fatalf("got %v", prog)
	}
}

func TestParseTruncatedInstructionIsError(t *testing.T) {
	_, err := vm.Parse([]byte(sp))
	if err == nil {
		t.Fatal("expected a ParseErrors for truncated input")
	}
	if _, ok := err.(vm.ParseErrors); !ok {
		t.Fatalf("got error of type %T, want vm.ParseErrors", err)
	}
}

func TestParseInvalidStackOpcodeIsError(t *testing.T) {
	// tab-tab has no stack meaning (only tab-space Copy and tab-newline
	// Slide are defined).
	_, err := vm.Parse([]byte(sp + tb + tb))
	if err == nil {
		t.Fatal("expected an error for stack tab-tab")
	}
}

func TestParseNumberExceedingBitCapIsError(t *testing.T) {
	// IMP(sp) + opcode(sp) + sign(1 char, from stringOfBits) + 64 magnitude
	// bits before any newline: the cap rejects at the 64th magnitude bit
	// (63 is the largest magnitude width a signed int64 can hold), so 65
	// total stringOfBits characters (1 sign + 64 magnitude) is the smallest
	// input guaranteed to trip it.
	src := sp + sp + stringOfBits(65) + nl
	_, err := vm.Parse([]byte(src))
	if err == nil {
		t.Fatal("expected an error for an oversized number")
	}
}

func stringOfBits(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

func TestRoundTripSerializeParse(t *testing.T) {
	prog := vm.Program{
		vm.Push(42),
		vm.Push(-7),
		vm.Duplicate,
		vm.Copy(1),
		vm.Swap,
		vm.Slide(2),
		vm.Pop,
		vm.Add,
		vm.Subtract,
		vm.Multiply,
		vm.Divide,
		vm.Modulus,
		vm.Store,
		vm.Retrieve,
		vm.Mark("101"),
		vm.Call("101"),
		vm.Jump(""),
		vm.JumpZero("0"),
		vm.JumpNegative("1"),
		vm.Return,
		vm.OutputChar,
		vm.OutputNum,
		vm.ReadChar,
		vm.ReadNum,
		vm.Exit,
	}
	serialized := vm.Serialize(prog)
	got, err := vm.Parse(serialized)
	if err != nil {
		t.Fatalf("re-parsing serialized program: %v", err)
	}
	if !reflect.DeepEqual(got, prog) {
		t.Fatalf("round-trip mismatch:\n got  %v\n want %v", got, prog)
	}
}
