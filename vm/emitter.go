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
	"wsjit/internal/codebuf"
)

// RelocKind identifies the instruction shape a Reloc must patch.
type RelocKind uint8

const (
	// Rel32Call marks a `call rel32` site (E8 xx xx xx xx).
	Rel32Call RelocKind = iota
	// Rel32Jmp marks a `jmp rel32` site (E9 xx xx xx xx).
	Rel32Jmp
	// Rel32Jcc marks a two-byte-opcode conditional jump site
	// (0F 8x xx xx xx xx).
	Rel32Jcc
)

// Reloc is a deferred address-patch site: at Offset, a 32-bit signed
// relative displacement to Target must be written once Target's address is
// known.
type Reloc struct {
	Offset int
	Target Label
	Kind   RelocKind
}

// LabelDef records that Name is defined at Offset in the code buffer. Marks
// are recorded in emission order; a Name appearing twice is a linker-time
// DuplicateLabel error, not an emitter-time one, so duplicates are not
// filtered here.
type LabelDef struct {
	Name   Label
	Offset int
}

// Emission is the output of Emit: an append-only code buffer plus the
// bookkeeping the linker needs to resolve every forward/backward reference.
type Emission struct {
	Buf    *codebuf.Buffer
	Defs   []LabelDef
	Relocs []Reloc
}

// HelperAddrs supplies the absolute addresses Emit bakes into every
// call-site: the Context this function will operate on, and the entry point
// of each runtime helper trampoline. Compile constructs one of these per
// compilation (via helperAddrsFor) from the trampolines' entry addresses
// and the Context pointer passed to Compile.
type HelperAddrs struct {
	Ctx uintptr

	PushStack  uintptr
	PopStack   uintptr
	PeekStack  uintptr
	Store      uintptr
	Retrieve   uintptr
	Print      uintptr
	Read       uintptr
}

// x86-64 register encodings used by the small set of instruction templates
// below. Named the way the System V discipline described in SPEC_FULL.md
// assigns them: RDI/RSI are argument registers, RCX holds the indirect
// call target, RBX/R12 are the emitted function's own scratch registers.
const (
	regRAX byte = 0xb8
	regRCX byte = 0xb9
	regRDX byte = 0xba
	regRBX byte = 0xbb
	regRSI byte = 0xbe
	regRDI byte = 0xbf
)

// movImm64 encodes `mov reg, imm64` (REX.W + B8+reg id, little-endian
// 8-byte immediate); reg is one of the regRAX-family opcode bytes above,
// which already fold the destination register into B8+reg.
func movImm64(reg byte, v uint64) []byte {
	return []byte{
		0x48, reg,
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	}
}

var (
	movRsiRax = []byte{0x48, 0x89, 0xc6} // mov rsi, rax
	movRsiRbx = []byte{0x48, 0x89, 0xde} // mov rsi, rbx
	movRsiR12 = []byte{0x4c, 0x89, 0xe6} // mov rsi, r12
	movRbxRax = []byte{0x48, 0x89, 0xc3} // mov rbx, rax
	movR12Rax = []byte{0x49, 0x89, 0xc4} // mov r12, rax
	movRaxRdx = []byte{0x48, 0x89, 0xd0} // mov rax, rdx
	callRcx   = []byte{0xff, 0xd1}       // call rcx

	addRaxR12  = []byte{0x4c, 0x01, 0xe0} // add rax, r12
	subRaxR12  = []byte{0x4c, 0x29, 0xe0} // sub rax, r12
	imulR12    = []byte{0x49, 0xf7, 0xec} // imul r12 (signed, result low 64 bits in rax)
	cqo        = []byte{0x48, 0x99}       // cqo: sign-extend rax into rdx:rax
	idivR12    = []byte{0x49, 0xf7, 0xfc} // idiv r12
	testRaxRax = []byte{0x48, 0x85, 0xc0} // test rax, rax

	prologue = []byte{
		0x55,                   // push rbp
		0x48, 0x89, 0xe5,       // mov rbp, rsp
		0x53,                   // push rbx
		0x41, 0x54,             // push r12
	}
	epilogue = []byte{
		0x41, 0x5c,             // pop r12
		0x5b,                   // pop rbx
		0x48, 0x89, 0xec,       // mov rsp, rbp
		0x5d,                   // pop rbp
		0xc3,                   // ret
	}
)

// emitter accumulates emitted bytes and the relocation bookkeeping for a
// single compiled program.
type emitter struct {
	buf    *codebuf.Buffer
	defs   []LabelDef
	relocs []Reloc
	h      HelperAddrs
}

// Emit translates prog into a single x86-64 function body: Initialize,
// then each instruction's translation in order, then Deinitialize. Forward
// and backward label references are left as zero placeholders with
// corresponding Reloc entries for Link to resolve.
func Emit(prog Program, h HelperAddrs) *Emission {
	e := &emitter{buf: codebuf.New(64 + 32*len(prog)), h: h}
	e.buf.Write(prologue)
	for _, inst := range prog {
		e.instruction(inst)
	}
	e.buf.Write(epilogue)
	return &Emission{Buf: e.buf, Defs: e.defs, Relocs: e.relocs}
}

// call emits a call-site for helper at addr, loading the Context pointer
// into RDI and the helper address into RCX, then `call rcx`. rsi, if
// non-nil, is written into RSI first: either a 10-byte `mov rsi, imm64`
// (rsiImm) or a short register-to-register mov (rsiReg), matching the
// call-site template in SPEC_FULL.md §4.2.
func (e *emitter) call(addr uintptr, rsiImm *uint64, rsiReg []byte) {
	e.buf.Write(movImm64(regRDI, uint64(e.h.Ctx)))
	if rsiImm != nil {
		e.buf.Write(movImm64(regRSI, *rsiImm))
	} else if rsiReg != nil {
		e.buf.Write(rsiReg)
	}
	e.buf.Write(movImm64(regRCX, uint64(addr)))
	e.buf.Write(callRcx)
}

func imm(n uint64) *uint64 { return &n }

func (e *emitter) instruction(inst Instruction) {
	switch inst.Kind {
	case KindPush:
		e.call(e.h.PushStack, imm(uint64(inst.Number)), nil)
	case KindDuplicate:
		e.call(e.h.PeekStack, imm(0), nil)
		e.call(e.h.PushStack, nil, movRsiRax)
	case KindCopy:
		e.call(e.h.PeekStack, imm(uint64(inst.Number)), nil)
		e.call(e.h.PushStack, nil, movRsiRax)
	case KindSwap:
		e.call(e.h.PopStack, nil, nil)
		e.buf.Write(movRbxRax)
		e.call(e.h.PopStack, nil, nil)
		e.buf.Write(movR12Rax)
		e.call(e.h.PushStack, nil, movRsiRbx)
		e.call(e.h.PushStack, nil, movRsiR12)
	case KindPop:
		e.call(e.h.PopStack, nil, nil)
	case KindSlide:
		// pop top T, discard n below it, push T back (spec.md §9).
		e.call(e.h.PopStack, nil, nil)
		e.buf.Write(movRbxRax)
		for i := Number(0); i < inst.Number; i++ {
			e.call(e.h.PopStack, nil, nil)
		}
		e.call(e.h.PushStack, nil, movRsiRbx)
	case KindAdd:
		e.arith(addRaxR12)
	case KindSubtract:
		e.arith(subRaxR12)
	case KindMultiply:
		e.arith(imulR12)
	case KindDivide:
		e.arith(append(append([]byte{}, cqo...), idivR12...))
	case KindModulus:
		ops := append(append([]byte{}, cqo...), idivR12...)
		ops = append(ops, movRaxRdx...)
		e.arith(ops)
	case KindStore:
		e.call(e.h.Store, nil, nil)
	case KindRetrieve:
		e.call(e.h.Retrieve, nil, nil)
		e.call(e.h.PushStack, nil, movRsiRax)
	case KindMark:
		e.defs = append(e.defs, LabelDef{Name: inst.Label, Offset: e.buf.Len()})
	case KindCall:
		e.jumpLike(Rel32Call, inst.Label, []byte{0xe8})
	case KindJump:
		e.jumpLike(Rel32Jmp, inst.Label, []byte{0xe9})
	case KindJumpZero:
		e.call(e.h.PopStack, nil, nil)
		e.buf.Write(testRaxRax)
		e.jumpLike(Rel32Jcc, inst.Label, []byte{0x0f, 0x84})
	case KindJumpNegative:
		e.call(e.h.PopStack, nil, nil)
		e.buf.Write(testRaxRax)
		e.jumpLike(Rel32Jcc, inst.Label, []byte{0x0f, 0x88})
	case KindReturn:
		e.buf.Write([]byte{0xc3})
	case KindExit:
		e.buf.Write(epilogue)
	case KindOutputChar:
		e.call(e.h.Print, imm(1), nil)
	case KindOutputNum:
		e.call(e.h.Print, imm(0), nil)
	case KindReadChar:
		e.call(e.h.Read, imm(1), nil)
	case KindReadNum:
		e.call(e.h.Read, imm(0), nil)
	}
}

// arith emits the shared pop/pop/op/push shape that every binary arithmetic
// instruction follows: pop into R12, pop into RAX, run op (which combines
// RAX and R12 leaving the result in RAX), push RAX.
func (e *emitter) arith(op []byte) {
	e.call(e.h.PopStack, nil, nil)
	e.buf.Write(movR12Rax)
	e.call(e.h.PopStack, nil, nil)
	e.buf.Write(op)
	e.call(e.h.PushStack, nil, movRsiRax)
}

// jumpLike emits a call/jmp/jcc with a placeholder rel32 displacement and
// records a Reloc for the 4 placeholder bytes, which always immediately
// follow opcode.
func (e *emitter) jumpLike(kind RelocKind, target Label, opcode []byte) {
	e.buf.Write(opcode)
	offset := e.buf.Write([]byte{0, 0, 0, 0})
	e.relocs = append(e.relocs, Reloc{Offset: offset, Target: target, Kind: kind})
}
