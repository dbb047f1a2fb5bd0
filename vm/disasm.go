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
	"strconv"
)

// Disassemble writes one line per instruction to w: its mnemonic, and for
// Push/Copy/Slide its Number operand or for Mark/Call/Jump/JumpZero/
// JumpNegative its Label operand rendered as a quoted bit-string.
func Disassemble(prog Program, w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, inst := range prog {
		if _, err := io.WriteString(bw, inst.Kind.String()); err != nil {
			return err
		}
		switch {
		case inst.Kind.HasNumberOperand():
			if _, err := io.WriteString(bw, " "+strconv.FormatInt(inst.Number, 10)); err != nil {
				return err
			}
		case inst.Kind.HasLabelOperand():
			if _, err := io.WriteString(bw, " "+strconv.Quote(string(inst.Label))); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Serialize re-encodes prog as a canonical Whitespace byte stream: no
// comment bytes, one instruction immediately after another. Parsing the
// result reproduces prog exactly (spec.md §8's round-trip property).
func Serialize(prog Program) []byte {
	var s serializer
	for _, inst := range prog {
		s.instruction(inst)
	}
	return s.buf
}

type serializer struct{ buf []byte }

func (s *serializer) space()   { s.buf = append(s.buf, ' ') }
func (s *serializer) tab()     { s.buf = append(s.buf, '\t') }
func (s *serializer) newline() { s.buf = append(s.buf, '\n') }

func (s *serializer) number(n Number) {
	if n < 0 {
		s.tab()
	} else {
		s.space()
	}
	mag := n
	if mag < 0 {
		mag = -mag
	}
	// MSB-first magnitude bits, matching parser.number's read order; a
	// zero magnitude serializes as a bare terminator (spec.md §4.1 does
	// not require a minimum bit width).
	started := false
	for bit := maxNumberBits - 1; bit >= 0; bit-- {
		if mag&(1<<uint(bit)) != 0 {
			started = true
		}
		if started {
			if mag&(1<<uint(bit)) != 0 {
				s.tab()
			} else {
				s.space()
			}
		}
	}
	s.newline()
}

func (s *serializer) label(l Label) {
	for _, c := range string(l) {
		if c == '1' {
			s.tab()
		} else {
			s.space()
		}
	}
	s.newline()
}

func (s *serializer) instruction(inst Instruction) {
	switch inst.Kind {
	case KindPush:
		s.space()
		s.space()
		s.number(inst.Number)
	case KindDuplicate:
		s.space()
		s.newline()
		s.space()
	case KindCopy:
		s.space()
		s.tab()
		s.space()
		s.number(inst.Number)
	case KindSwap:
		s.space()
		s.newline()
		s.tab()
	case KindPop:
		s.space()
		s.newline()
		s.newline()
	case KindSlide:
		s.space()
		s.tab()
		s.newline()
		s.number(inst.Number)
	case KindAdd:
		s.tab()
		s.space()
		s.space()
		s.space()
	case KindSubtract:
		s.tab()
		s.space()
		s.space()
		s.tab()
	case KindMultiply:
		s.tab()
		s.space()
		s.space()
		s.newline()
	case KindDivide:
		s.tab()
		s.space()
		s.tab()
		s.space()
	case KindModulus:
		s.tab()
		s.space()
		s.tab()
		s.tab()
	case KindStore:
		s.tab()
		s.tab()
		s.space()
	case KindRetrieve:
		s.tab()
		s.tab()
		s.tab()
	case KindMark:
		s.newline()
		s.space()
		s.space()
		s.label(inst.Label)
	case KindCall:
		s.newline()
		s.space()
		s.tab()
		s.label(inst.Label)
	case KindJump:
		s.newline()
		s.space()
		s.newline()
		s.label(inst.Label)
	case KindJumpZero:
		s.newline()
		s.tab()
		s.space()
		s.label(inst.Label)
	case KindJumpNegative:
		s.newline()
		s.tab()
		s.tab()
		s.label(inst.Label)
	case KindReturn:
		s.newline()
		s.tab()
		s.newline()
	case KindExit:
		s.newline()
		s.newline()
		s.newline()
	case KindOutputChar:
		s.tab()
		s.newline()
		s.space()
		s.space()
	case KindOutputNum:
		s.tab()
		s.newline()
		s.space()
		s.tab()
	case KindReadChar:
		s.tab()
		s.newline()
		s.tab()
		s.space()
	case KindReadNum:
		s.tab()
		s.newline()
		s.tab()
		s.tab()
	}
}
