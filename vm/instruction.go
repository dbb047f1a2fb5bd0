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

import "fmt"

// Number is the arithmetic width of operand values and heap cells. Overflow
// wraps per two's-complement, same as plain Go int64 arithmetic.
type Number = int64

// Label names a jump target as its raw, parsed bit-string. Two distinct
// Names are distinct labels even if one is a prefix of the other: a
// terminating newline is required at parse time, so prefix-ambiguity never
// arises.
type Label string

// Kind identifies which variant of Instruction a value holds.
type Kind uint8

// Instruction kinds, grouped by IMP family.
const (
	KindPush Kind = iota
	KindDuplicate
	KindCopy
	KindSwap
	KindPop
	KindSlide

	KindAdd
	KindSubtract
	KindMultiply
	KindDivide
	KindModulus

	KindStore
	KindRetrieve

	KindMark
	KindCall
	KindJump
	KindJumpZero
	KindJumpNegative
	KindReturn
	KindExit

	KindOutputChar
	KindOutputNum
	KindReadChar
	KindReadNum
)

var kindNames = [...]string{
	KindPush:         "push",
	KindDuplicate:    "dup",
	KindCopy:         "copy",
	KindSwap:         "swap",
	KindPop:          "pop",
	KindSlide:        "slide",
	KindAdd:          "add",
	KindSubtract:     "sub",
	KindMultiply:     "mul",
	KindDivide:       "div",
	KindModulus:      "mod",
	KindStore:        "store",
	KindRetrieve:     "retrieve",
	KindMark:         "mark",
	KindCall:         "call",
	KindJump:         "jump",
	KindJumpZero:     "jz",
	KindJumpNegative: "jn",
	KindReturn:       "ret",
	KindExit:         "exit",
	KindOutputChar:   "outchar",
	KindOutputNum:    "outnum",
	KindReadChar:     "readchar",
	KindReadNum:      "readnum",
}

// String returns the instruction kind's mnemonic, for disassembly and
// diagnostics.
func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// HasNumberOperand reports whether instructions of this kind carry a Number
// operand (Push, Copy, Slide).
func (k Kind) HasNumberOperand() bool {
	switch k {
	case KindPush, KindCopy, KindSlide:
		return true
	}
	return false
}

// HasLabelOperand reports whether instructions of this kind carry a Label
// operand (Mark, Call, Jump, JumpZero, JumpNegative).
func (k Kind) HasLabelOperand() bool {
	switch k {
	case KindMark, KindCall, KindJump, KindJumpZero, KindJumpNegative:
		return true
	}
	return false
}

// Instruction is a single parsed Whitespace command: a Kind tag plus,
// depending on the kind, a Number or a Label operand (never both).
type Instruction struct {
	Kind   Kind
	Number Number
	Label  Label
}

// Push returns a Push(n) instruction.
func Push(n Number) Instruction { return Instruction{Kind: KindPush, Number: n} }

// Copy returns a Copy(n) instruction.
func Copy(n Number) Instruction { return Instruction{Kind: KindCopy, Number: n} }

// Slide returns a Slide(n) instruction.
func Slide(n Number) Instruction { return Instruction{Kind: KindSlide, Number: n} }

// Mark returns a Mark(label) instruction.
func Mark(l Label) Instruction { return Instruction{Kind: KindMark, Label: l} }

// Call returns a Call(label) instruction.
func Call(l Label) Instruction { return Instruction{Kind: KindCall, Label: l} }

// Jump returns a Jump(label) instruction.
func Jump(l Label) Instruction { return Instruction{Kind: KindJump, Label: l} }

// JumpZero returns a JumpZero(label) instruction.
func JumpZero(l Label) Instruction { return Instruction{Kind: KindJumpZero, Label: l} }

// JumpNegative returns a JumpNegative(label) instruction.
func JumpNegative(l Label) Instruction { return Instruction{Kind: KindJumpNegative, Label: l} }

// simple no-operand instruction constructors, for readable test fixtures and
// hand-assembled programs.
var (
	Duplicate    = Instruction{Kind: KindDuplicate}
	Swap         = Instruction{Kind: KindSwap}
	Pop          = Instruction{Kind: KindPop}
	Add          = Instruction{Kind: KindAdd}
	Subtract     = Instruction{Kind: KindSubtract}
	Multiply     = Instruction{Kind: KindMultiply}
	Divide       = Instruction{Kind: KindDivide}
	Modulus      = Instruction{Kind: KindModulus}
	Store        = Instruction{Kind: KindStore}
	Retrieve     = Instruction{Kind: KindRetrieve}
	Return       = Instruction{Kind: KindReturn}
	Exit         = Instruction{Kind: KindExit}
	OutputChar   = Instruction{Kind: KindOutputChar}
	OutputNum    = Instruction{Kind: KindOutputNum}
	ReadChar     = Instruction{Kind: KindReadChar}
	ReadNum      = Instruction{Kind: KindReadNum}
)

// Program is the ordered instruction sequence produced by Parse.
type Program []Instruction

// imp identifies the instruction-modification-parameter family a token
// belongs to.
type imp uint8

const (
	impStack imp = iota
	impArithmetic
	impHeap
	impFlow
	impIO
)
