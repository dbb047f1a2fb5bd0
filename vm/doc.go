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

// Package vm implements a just-in-time compiler and runtime for the
// Whitespace programming language.
//
// A Whitespace source is a byte stream whose only semantically significant
// characters are space (0x20), tab (0x09) and newline (0x0A); every other
// byte is a comment and ignored between tokens. Compile parses that stream,
// emits a single x86-64 function directly into executable memory, and
// returns an Executable whose Run method invokes it against a Context.
//
// Compiled code is specific to amd64/linux+darwin (the Executable Memory
// manager relies on mmap/mprotect via golang.org/x/sys/unix): there is no
// portable fallback, by design (see spec.md's Non-goals).
//
// Instruction set
//
//	IMP            opcode          command
//	Stack (space)  space           Push(n)
//	               newline space   Duplicate
//	               tab space       Copy(n)
//	               newline tab     Swap
//	               newline newline Pop
//	               tab newline     Slide(n)
//	Arithmetic     space space     Add
//	(tab space)    space tab       Subtract
//	               space newline   Multiply
//	               tab space       Divide
//	               tab tab         Modulus
//	Heap           space           Store
//	(tab tab)      tab             Retrieve
//	Flow           space space     Mark(L)
//	(newline)      space tab       Call(L)
//	               space newline   Jump(L)
//	               tab space       JumpZero(L)
//	               tab tab         JumpNegative(L)
//	               tab newline     Return
//	               newline newline Exit
//	IO             space space     OutputChar
//	(tab newline)  space tab       OutputNum
//	               tab space       ReadChar
//	               tab tab         ReadNum
//
// Numbers are a sign bit (space=+, tab=-) followed by an MSB-first magnitude
// (space=0, tab=1) terminated by a newline. Labels are a bit-string
// (space=0, tab=1) terminated by a newline; the empty bit-string is a valid
// label.
package vm
